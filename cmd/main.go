package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Vovarama1992/dental-order-bridge/internal/ai"
	"github.com/Vovarama1992/dental-order-bridge/internal/config"
	"github.com/Vovarama1992/dental-order-bridge/internal/intake"
	"github.com/Vovarama1992/dental-order-bridge/internal/logging"
	"github.com/Vovarama1992/dental-order-bridge/internal/material"
	"github.com/Vovarama1992/dental-order-bridge/internal/order"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// --- DB ---
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db open error", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("db ping error", zap.Error(err))
	}

	// --- Material wiring ---
	var opts []material.Option
	if cfg.ClassifierActive() {
		aiClient, err := ai.NewOpenAIClient(ai.Options{
			APIKey:     cfg.OpenAIKey,
			Model:      cfg.OpenAIModel,
			BaseURL:    cfg.OpenAIBaseURL,
			APIVersion: cfg.OpenAIAPIVersion,
			MaxTokens:  50,
		}, logger.Named("ai"))
		if err != nil {
			logger.Fatal("openai client error", zap.Error(err))
		}
		opts = append(opts, material.WithClassifier(material.NewAIClassifier(aiClient), cfg.ClassifierTimeout))
	} else {
		logger.Info("llm classifier disabled, normalizer runs table-only")
	}

	normalizer := material.NewNormalizer(material.NewCache(), logger.Named("normalizer"), opts...)
	engine := material.NewEngine(normalizer)

	// --- Intake wiring ---
	intakeService := intake.NewService(
		engine,
		normalizer,
		order.NewCatalog(db),
		order.NewRepo(db),
		logger.Named("intake"),
	)
	intakeHandler := intake.NewHandler(intakeService, logger.Named("http"))

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.SessionIdleTimeout / 4)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				intakeService.EvictIdle(cfg.SessionIdleTimeout)
			}
		}
	}()

	// --- Router ---
	limiter := intake.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	limiter.Cleanup(5*time.Minute, stop)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))
	r.Use(limiter.Middleware)
	r.Use(intake.Metrics)

	intake.RegisterRoutes(r, intakeHandler)

	// --- health ---
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	close(stop)

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
