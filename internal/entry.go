// Package internal wires configuration, storage and the index service into
// the semindex verbs and the long-running server.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/semindex/internal/api"
	"github.com/starford/semindex/internal/index"
	"github.com/starford/semindex/internal/lock"
	"github.com/starford/semindex/internal/misslog"
	"github.com/starford/semindex/internal/models"
	"github.com/starford/semindex/internal/storage"
	"github.com/starford/semindex/internal/vaultservice"
)

var errConfigRequired = errors.New("config is required")

// NewLogger builds a structured logger writing to w in the configured format.
func NewLogger(cfg ApplicationConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Open builds the index service described by the configuration. The caller
// must Close it.
func Open(opts ...Option) (*vaultservice.Service, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	cfg, logger := app.config, app.logger

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path, cfg.Vault.Extensions...)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	backend, err := index.Open(cfg.Index.Backend, cfg.IndexPath())
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	logger.Debug("Configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("index_backend", cfg.Index.Backend),
		slog.String("index_path", backend.Location()),
		slog.String("misslog_path", cfg.MissLogPath()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	return vaultservice.New(store, backend, misslog.New(cfg.MissLogPath()),
		vaultservice.WithLogger(logger),
		vaultservice.WithLock(lock.New(cfg.LockPath()), lock.DefaultTimeout),
		vaultservice.WithSearchLimit(cfg.Index.SearchLimit),
		vaultservice.WithRequireRelated(cfg.Index.RequireRelatedExists),
		vaultservice.WithDebounce(cfg.Watch.Debounce),
	), nil
}

// Serve runs the HTTP API and the vault watcher until ctx is cancelled or
// the process receives SIGINT or SIGTERM.
func Serve(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg, logger := app.config, app.logger

	svc, err := Open(opts...)
	if err != nil {
		return err
	}
	defer svc.Close()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Mount("/api", api.NewRouter(svc, logger))

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := svc.Watch(gCtx, func(pending []models.ScanResult) {
			for _, p := range pending {
				logger.Info("vault change", slog.String("status", string(p.Status)), slog.String("path", p.Path))
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("watcher: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped")
	return nil
}
