// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quill/internal/api"
	"github.com/starford/quill/internal/catalog"
	"github.com/starford/quill/internal/index"
	"github.com/starford/quill/internal/mcpserver"
	"github.com/starford/quill/internal/noteservice"
	"github.com/starford/quill/internal/sse"
	"github.com/starford/quill/internal/storage"
)

var errConfigRequired = errors.New("config is required")

// OpenService builds a note service over cfg.Notes.Root. The SQLite index is
// opened only when withIndex is set; the returned closer releases both.
func OpenService(cfg *Config, withIndex bool, logger *slog.Logger) (*noteservice.Service, func(), error) {
	store, err := catalog.New(cfg.Notes.Root, catalog.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("init catalog: %w", err)
	}
	files, err := storage.NewFS(cfg.Notes.Root)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	var db *index.DB
	if withIndex {
		db, err = index.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("init index: %w", err)
		}
	}

	svc := noteservice.NewService(store, files, db, logger)
	closer := func() {
		svc.Close()
		if db != nil {
			if err := db.Close(); err != nil {
				logger.Warn("close index", slog.String("error", err.Error()))
			}
		}
	}
	return svc, closer, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
		slog.SetDefault(logger)
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("notes_root", cfg.Notes.Root),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure the notes root exists.
	if err := os.MkdirAll(cfg.Notes.Root, 0o755); err != nil {
		return fmt.Errorf("create notes root: %w", err)
	}

	svc, closeSvc, err := OpenService(cfg, true, logger)
	if err != nil {
		return err
	}
	defer closeSvc()

	// Initial scan; also populates the index.
	if err := svc.Refresh(ctx); err != nil {
		logger.Warn("initial refresh failed", slog.String("error", err.Error()))
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	svc.OnChange(func(kind noteservice.ChangeKind, category, note string) {
		if kind != noteservice.Refreshed {
			broker.PublishChange(string(kind), category, note)
			return
		}
		counts, err := svc.Indexed()
		if err != nil {
			logger.Warn("index counts failed", slog.String("error", err.Error()))
		}
		broker.Publish(sse.Event{Type: string(kind), Data: counts})
	})

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := os.Stat(svc.Root()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"notes root unavailable"}`))
			return
		}
		if _, err := svc.Indexed(); err != nil {
			logger.Warn("readiness: index query failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"index unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// External edits: rescan; subscribers hear about it through OnChange.
	g.Go(func() error {
		err := index.Watch(gCtx, svc.Root(), logger, func() {
			if err := svc.Refresh(gCtx); err != nil {
				logger.Warn("refresh after change failed", slog.String("error", err.Error()))
			}
		})
		if err != nil {
			logger.Error("watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
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

		logger.Info("Shutting down server...", slog.Int("sse_clients", broker.ClientCount()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr since stdout
// carries the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}

	svc, closeSvc, err := OpenService(cfg, true, logger)
	if err != nil {
		return err
	}
	defer closeSvc()

	logger.Info("MCP server starting", slog.String("notes_root", svc.Root()))
	return mcpserver.New(svc, app.version).ServeStdio()
}
