package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"quality-dashboard/internal/analysis"
	"quality-dashboard/internal/api"
	"quality-dashboard/internal/config"
	"quality-dashboard/internal/llm"
	"quality-dashboard/internal/logging"
	"quality-dashboard/internal/reference"
	"quality-dashboard/internal/sentiment"
	"quality-dashboard/internal/state"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	catalogue, err := reference.Load()
	if err != nil {
		logger.Fatal("failed to load reference data", zap.Error(err))
	}

	// Initialize Services
	classifier := sentiment.Default()
	llmService := llm.NewService(
		llm.Config{BaseURL: cfg.LLM.BaseURL, UserAgent: cfg.LLM.UserAgent},
		catalogue.Resolve(os.Getenv, cfg.LLM.APIKey),
		catalogue.Sources,
		logger.Named("llm"),
	)
	store := state.NewStore(state.Deps{
		Analyzer:  analysis.NewAnalyzer(classifier, logger.Named("analysis")),
		Labeler:   classifier,
		Assistant: llmService,
		Logger:    logger.Named("session"),
	}, cfg.SessionTTL)

	// Initialize Handler
	handler := api.NewHandler(store, llmService, catalogue.Sources, logger.Named("api"), api.Options{
		MaxUploadBytes: cfg.MaxUploadBytes(),
		RatePerSec:     cfg.LLM.RatePerSec,
		RateBurst:      cfg.LLM.RateBurst,
	})

	// Router Setup
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(api.RequestLogger(logger.Named("http")))
	r.Use(middleware.Recoverer)

	// CORS - Allow frontend
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.HTTP.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", api.SessionHeader},
		ExposedHeaders:   []string{api.SessionHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Root endpoint
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Hospital Quality Dashboard backend is running"))
	})

	// Register all API Routes
	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// chat calls may take up to 35s upstream
		WriteTimeout: 60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go store.Run(ctx, time.Minute)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("addr", cfg.HTTP.Addr),
			zap.Strings("cors_origins", cfg.HTTP.CORSOrigins),
			zap.String("llm_base_url", cfg.LLM.BaseURL),
			zap.Strings("models", catalogue.Labels()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", zap.Error(err))
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}
