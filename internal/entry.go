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

	"github.com/starford/notegate/internal/api"
	"github.com/starford/notegate/internal/controller"
	"github.com/starford/notegate/internal/mcpserver"
	"github.com/starford/notegate/internal/sse"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) logger() *slog.Logger {
	logger := NewLogger(a.logOutput, a.config.App.LogLevel)
	slog.SetDefault(logger)
	return logger
}

// Run starts the view server: controller, HTTP API, SSE stream and cookie
// watcher, until ctx is cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("backend_url", cfg.Backend.BaseURL),
		slog.String("stale_notes", cfg.Sync.StaleNotes),
		slog.Bool("cookie_file", cfg.Backend.CookieFile != ""),
		slog.String("log_level", cfg.App.LogLevel.String()))

	g, gCtx := errgroup.WithContext(ctx)

	client, err := NewClient(gCtx, cfg, logger, app.navigator)
	if err != nil {
		return err
	}
	ctrl := client.Controller
	defer ctrl.Close()

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	apiRouter := api.NewRouter(ctrl, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", readyHandler(ctrl))

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Stream controller state to SSE clients.
	snaps := ctrl.Subscribe()
	g.Go(func() error {
		broker.Follow(gCtx, snaps)
		return nil
	})

	// Reload the session when the cookie file changes.
	g.Go(func() error {
		if err := client.WatchCookies(gCtx, cfg.Backend.CookieFile, logger); err != nil {
			logger.Warn("cookie watcher disabled", slog.String("error", err.Error()))
		}
		return nil
	})

	ctrl.Start()

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

		logger.Info("Shutting down server...")

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

// errShutdown cancels the group once the server has been shut down, so the
// watcher and the SSE pump stop too.
var errShutdown = errors.New("shutdown")

// RunMCP serves the controller as MCP tools over stdio. Logs go to the
// configured output, which must not be stdout.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if app.logOutput == os.Stdout {
		app.logOutput = os.Stderr
	}
	cfg := app.config
	logger := app.logger()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client, err := NewClient(ctx, cfg, logger, app.navigator)
	if err != nil {
		return err
	}
	defer client.Controller.Close()

	go func() {
		if err := client.WatchCookies(ctx, cfg.Backend.CookieFile, logger); err != nil {
			logger.Warn("cookie watcher disabled", slog.String("error", err.Error()))
		}
	}()

	client.Controller.Start()
	logger.Info("MCP server starting on stdio", slog.String("backend_url", cfg.Backend.BaseURL))
	return mcpserver.New(client.Controller, 30*time.Second).ServeStdio()
}

func readyHandler(ctrl *controller.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snap := ctrl.Snapshot()
		status, code := "ok", http.StatusOK
		if snap.Phase == controller.PhaseInit || snap.Phase == "" {
			status, code = "starting", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = fmt.Fprintf(w, `{"status":%q,"phase":%q}`, status, snap.Phase)
	}
}
