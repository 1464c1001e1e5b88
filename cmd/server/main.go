package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vatworks/api/internal/audit"
	"github.com/vatworks/api/internal/config"
	"github.com/vatworks/api/internal/database"
	apihandlers "github.com/vatworks/api/internal/handlers/api"
	"github.com/vatworks/api/internal/middleware"
	"github.com/vatworks/api/internal/ratewatch"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()

	// The database is optional; without one the service runs stateless with
	// the audit log and rate-check history disabled.
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		var err error
		pool, err = database.Connect(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		slog.Info("database connected")

		if err := database.Migrate(cfg.DatabaseURL); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}

		slog.Info("migrations complete")
	} else {
		slog.Info("no DATABASE_URL configured, running stateless")
	}

	auditSvc := audit.NewService(pool, logger)

	// Rate drift monitor
	monitor := ratewatch.NewMonitor(pool, cfg.RateWatch, logger)
	scheduler := ratewatch.NewScheduler(monitor, logger)

	// API server (JSON REST)
	apiMux := http.NewServeMux()

	vatHandler := apihandlers.NewVATHandler(auditSvc, logger)
	vatHandler.RegisterRoutes(apiMux)
	ratesHandler := apihandlers.NewRatesHandler(auditSvc)
	ratesHandler.RegisterRoutes(apiMux)

	// Apply API middleware stack (CORS for callers, rate limiting, logging, recovery)
	var apiChain http.Handler = apiMux
	apiChain = middleware.CORS(cfg.BaseURL)(apiChain)
	apiChain = middleware.RateLimiter(20, 40)(apiChain) // 20 req/s, burst 40 per IP
	apiChain = middleware.Recover(logger)(apiChain)
	apiChain = middleware.RequestLogger(logger)(apiChain)

	apiServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      apiChain,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if cfg.RateWatch.Enabled {
		scheduler.Start(context.Background())
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("API server starting", "port", cfg.Port)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down", "signal", sig)
	case err := <-errCh:
		slog.Error("server error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	scheduler.Stop()

	if err := apiServer.Shutdown(ctx); err != nil {
		slog.Error("api server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}
