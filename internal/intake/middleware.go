package intake

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/juju/ratelimit"

	"github.com/Vovarama1992/dental-order-bridge/internal/metrics"
)

// Вызов инструмента может дойти до LLM, поэтому стоит дороже остального
const (
	costDefault = 1
	costTool    = 5
	costFree    = 0
)

// RateLimiter — token bucket на каждый клиентский IP
type RateLimiter struct {
	mu       sync.RWMutex
	clients  map[string]*ratelimit.Bucket
	rate     float64
	capacity int64
}

func NewRateLimiter(rate float64, capacity int64) *RateLimiter {
	return &RateLimiter{
		clients:  make(map[string]*ratelimit.Bucket),
		rate:     rate,
		capacity: capacity,
	}
}

func (rl *RateLimiter) bucket(clientIP string) *ratelimit.Bucket {
	rl.mu.RLock()
	b, ok := rl.clients[clientIP]
	rl.mu.RUnlock()
	if ok {
		return b
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if b, ok = rl.clients[clientIP]; !ok {
		b = ratelimit.NewBucketWithRate(rl.rate, rl.capacity)
		rl.clients[clientIP] = b
	}
	return b
}

// Cleanup убирает клиентов с полным ведром, пока не закрыт stop
func (rl *RateLimiter) Cleanup(every time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(every)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				rl.mu.Lock()
				for ip, b := range rl.clients {
					if b.Available() == b.Capacity() {
						delete(rl.clients, ip)
					}
				}
				rl.mu.Unlock()
			}
		}
	}()
}

func tokenCost(r *http.Request) int64 {
	switch r.URL.Path {
	case "/ping", "/metrics":
		return costFree
	}
	// маршрут ещё не разобран, параметры chi недоступны
	if r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/tools/") {
		return costTool
	}
	return costDefault
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := rl.bucket(clientIP(r))
		cost := tokenCost(r)

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(rl.capacity, 10))
		if cost > 0 && b.TakeAvailable(cost) < cost {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", "1")
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			return
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(b.Available(), 10))

		next.ServeHTTP(w, r)
	})
}

// Metrics считает запросы по шаблону маршрута chi, а не по сырому пути
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequestTotals.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}
