package intake

import (
	"sync"
	"time"

	"github.com/Vovarama1992/dental-order-bridge/internal/order"
)

// session — черновик заказа; mu сериализует вызовы инструментов одной сессии
type session struct {
	mu      sync.Mutex
	slots   order.Slots
	touched time.Time
}

// sessions хранит черновики по id. Общий mu держится только на время
// поиска в map, работа с самой сессией идёт под её собственным mu.
type sessions struct {
	mu   sync.Mutex
	byID map[string]*session
	now  func() time.Time
}

func newSessions() *sessions {
	return &sessions{byID: make(map[string]*session), now: time.Now}
}

func (s *sessions) getOrCreate(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[id]
	if !ok {
		sess = &session{touched: s.now()}
		s.byID[id] = sess
	}
	return sess
}

func (s *sessions) get(id string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byID[id]
	return sess, ok
}

func (s *sessions) live(id string, sess *session) bool {
	cur, ok := s.get(id)
	return ok && cur == sess
}

// acquire отдаёт залоченную сессию, которая всё ещё лежит в map.
// Пока ждали mu, сессию могли подтвердить или сбросить: тогда берём новую.
func (s *sessions) acquire(id string) *session {
	for {
		sess := s.getOrCreate(id)
		sess.mu.Lock()
		if s.live(id, sess) {
			sess.touched = s.now()
			return sess
		}
		sess.mu.Unlock()
	}
}

// lock — то же для существующей сессии, без создания
func (s *sessions) lock(id string) (*session, bool) {
	sess, ok := s.get(id)
	if !ok {
		return nil, false
	}
	sess.mu.Lock()
	if !s.live(id, sess) {
		sess.mu.Unlock()
		return nil, false
	}
	return sess, true
}

func (s *sessions) discard(id string) {
	s.mu.Lock()
	delete(s.byID, id)
	s.mu.Unlock()
}

// evictIdle убирает черновики, которых не трогали дольше maxIdle.
// Занятая сессия пропускается.
func (s *sessions) evictIdle(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxIdle)
	evicted := 0
	for id, sess := range s.byID {
		if !sess.mu.TryLock() {
			continue
		}
		if sess.touched.Before(cutoff) {
			delete(s.byID, id)
			evicted++
		}
		sess.mu.Unlock()
	}
	return evicted
}

func (s *sessions) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
