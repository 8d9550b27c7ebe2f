// Package internal provides the main application initialization and runtime logic.
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

	"github.com/starford/doclib/internal/api"
	"github.com/starford/doclib/internal/catalog"
	"github.com/starford/doclib/internal/index"
	"github.com/starford/doclib/internal/library"
	"github.com/starford/doclib/internal/mcpserver"
	"github.com/starford/doclib/internal/metrics"
	"github.com/starford/doclib/internal/remote"
	"github.com/starford/doclib/internal/render"
	"github.com/starford/doclib/internal/sse"
	"github.com/starford/doclib/internal/storage"
)

var errConfigRequired = errors.New("config is required")

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func newLibrary(cfg *Config, events library.Publisher) *library.Service {
	client := remote.New(remote.Config{
		BaseURL:      cfg.Remote.BaseURL,
		Token:        cfg.Remote.Token,
		Timeout:      cfg.Remote.Timeout,
		MaxBodyBytes: cfg.Remote.MaxBodyBytes,
		Retry:        cfg.Remote.Retry,
	})
	return library.NewService(client, library.NewStore(), render.Default(), events, library.Config{
		StripPrefix:     cfg.Remote.FilesPrefix,
		PageSize:        cfg.Library.PageSize,
		RefreshInterval: cfg.Library.RefreshInterval,
		PreviewTimeout:  cfg.Library.PreviewTimeout,
	})
}

// baseRouter returns a router with the shared middleware stack, health
// endpoints and the Prometheus handler. ready reports a non-empty reason
// when the process should not receive traffic.
func baseRouter(ready func() string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if reason := ready(); reason != "" {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprintf(w, `{"status":"degraded","reason":%q}`, reason)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())
	return r
}

// serve runs srv until ctx is cancelled or a shutdown signal arrives, then
// calls stop so sibling goroutines wind down.
func serve(ctx context.Context, g *errgroup.Group, srv *http.Server, logger *slog.Logger, stop context.CancelFunc) {
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
		case <-ctx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		stop()
		return nil
	})
}

// Run starts the library service: the REST API, the SSE stream and the
// periodic refresh against the document store.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(os.Stdout, cfg.App.LogLevel)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("remote_url", cfg.Remote.BaseURL),
		slog.Int("page_size", cfg.Library.PageSize),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker("library", cfg.Library.EventThrottle)
	defer broker.Close()

	svc := newLibrary(cfg, broker)
	defer svc.Close()

	r := baseRouter(svc.LastError)
	r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svc.Run(gCtx)
	})
	serve(gCtx, g, httpServer, logger, cancel)

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("Server stopped successfully")
	return nil
}

// RunStore starts the reference document store: the catalog API, file
// serving, uploads and the index kept in sync with the backend.
func RunStore(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(os.Stdout, cfg.App.LogLevel)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.Store.HTTP.Address()),
		slog.String("backend", cfg.Store.Backend),
		slog.String("sqlite_path", cfg.Store.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	var (
		store storage.Provider
		fsys  *storage.FS
	)
	switch cfg.Store.Backend {
	case BackendS3:
		s3, err := storage.NewS3(ctx, cfg.Store.S3, cfg.Store.Extensions)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
		store = s3
	default:
		if err := os.MkdirAll(cfg.Store.FS.Path, 0o755); err != nil {
			return fmt.Errorf("create documents dir: %w", err)
		}
		fsys, err = storage.NewFS(cfg.Store.FS.Path, cfg.Store.Extensions)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
		store = fsys
	}

	db, err := index.Open(cfg.Store.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	if _, err := index.Sync(ctx, db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	broker := sse.NewBroker("store", cfg.Library.EventThrottle)
	defer broker.Close()

	catSvc := catalog.NewService(store, db, broker)
	r := baseRouter(func() string { return "" })
	r.Mount("/", catalog.NewRouter(catSvc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

	httpServer := &http.Server{
		Addr:    cfg.Store.HTTP.Address(),
		Handler: r,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if fsys != nil {
			if err := index.Watch(gCtx, db, fsys, logger, catSvc.Notify); err != nil {
				logger.Error("file watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		}
		index.Resync(gCtx, db, store, cfg.Store.ResyncInterval, logger, catSvc.Notify)
		return nil
	})
	serve(gCtx, g, httpServer, logger, cancel)

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the library over MCP on stdio. Logs go to stderr since
// stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(os.Stderr, cfg.App.LogLevel)

	svc := newLibrary(cfg, nil)
	defer svc.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := svc.Run(ctx); err != nil {
			logger.Error("library refresh stopped", slog.String("error", err.Error()))
		}
	}()

	logger.Info("MCP server starting", slog.String("version", app.version), slog.String("remote_url", cfg.Remote.BaseURL))
	if err := mcpserver.New(svc, app.version).ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
