// Package main is the entry point for the trip itinerary API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/pkordes/trip-itinerary/backend/internal/config"
	"github.com/pkordes/trip-itinerary/backend/internal/handler"
	"github.com/pkordes/trip-itinerary/backend/internal/logging"
	"github.com/pkordes/trip-itinerary/backend/internal/middleware"
	"github.com/pkordes/trip-itinerary/backend/internal/repo"
	"github.com/pkordes/trip-itinerary/backend/internal/store"
	"github.com/pkordes/trip-itinerary/backend/migrations"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	logger, logCloser := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	defer logCloser.Close()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	// --- Database ---------------------------------------------------------
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		return err
	}
	logger.Info("database connection established")

	if cfg.MigrateOnStart {
		sqlDB := stdlib.OpenDBFromPool(pool)
		err := migrations.Up(context.Background(), sqlDB, logger)
		sqlDB.Close()
		if err != nil {
			return err
		}
	}

	// --- Store ------------------------------------------------------------
	recon := store.NewReconciler(logger.With("component", "reconciler"), store.ReconcilerConfig{
		Workers:    cfg.ReconcileWorkers,
		MaxRetries: cfg.ReconcileMaxRetries,
		BaseDelay:  cfg.ReconcileBaseDelay,
	})
	registry := store.NewRegistry(
		repo.NewItineraryRepo(pool),
		repo.NewDayRepo(pool),
		repo.NewItemRepo(pool),
		recon,
		logger,
		cfg.SessionIdleTTL,
	)

	// --- Router -----------------------------------------------------------
	// Middleware order: RequestID → RealIP → Logger → Recoverer → CORS →
	// body limit → rate limit. The limiter keys on RemoteAddr, so it runs
	// after RealIP.
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	r.Use(limiter.Limit)

	srv := handler.NewServer(handler.RegistrySessions(registry), recon, logger)
	r.Mount("/", srv.Routes())

	// --- HTTP Server ------------------------------------------------------
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete, then drain background writes.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		return err
	}
	if err := recon.Close(ctx); err != nil {
		logger.Warn("background writes abandoned", "pending", recon.Pending(), "error", err)
	}
	logger.Info("server stopped", "sessions", registry.Len(), "reconciled", recon.Succeeded(), "failed", recon.Failed())
	return nil
}
