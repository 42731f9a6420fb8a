package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/starford/notegate/internal/backend"
	"github.com/starford/notegate/internal/controller"
	"github.com/starford/notegate/internal/cookiefile"
	"github.com/starford/notegate/internal/notes"
	"github.com/starford/notegate/internal/session"
)

// NewLogger creates the structured JSON logger used by every command.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// LogNavigator records the login redirect in the log. It suits surfaces
// where the redirect is delivered by other means, such as an HTTP 302.
func LogNavigator(logger *slog.Logger) controller.Navigator {
	return controller.NavigatorFunc(func(url string) error {
		logger.Info("login redirect", slog.String("url", url))
		return nil
	})
}

// Client bundles a controller with the backend client it drives.
type Client struct {
	Controller *controller.Controller
	Backend    *backend.Client
}

// NewClient builds the backend client, session probe, notes repository and
// controller from cfg. The controller is not started. ctx bounds every
// network operation the controller issues.
func NewClient(ctx context.Context, cfg *Config, logger *slog.Logger, nav controller.Navigator) (*Client, error) {
	cookies, err := sessionCookies(cfg.Backend)
	if err != nil {
		return nil, err
	}

	be, err := backend.New(backend.Options{
		BaseURL:   cfg.Backend.BaseURL,
		Endpoints: cfg.Backend.Endpoints,
		Cookies:   cookies,
		Logger:    logger.With(slog.String("component", "backend")),
	})
	if err != nil {
		return nil, fmt.Errorf("init backend client: %w", err)
	}

	if nav == nil {
		nav = LogNavigator(logger)
	}
	ctrl := controller.New(
		session.NewProber(be, logger.With(slog.String("component", "session"))),
		notes.NewRepository(be, logger.With(slog.String("component", "notes"))),
		nav,
		be.LoginURL(),
		controller.WithLogger(logger),
		controller.WithStalePolicy(cfg.Sync.Policy()),
		controller.WithContext(ctx),
	)
	return &Client{Controller: ctrl, Backend: be}, nil
}

// WatchCookies reloads the session whenever the configured cookie file
// changes, the equivalent of a page reload after signing in. It returns
// immediately when no cookie file is configured.
func (c *Client) WatchCookies(ctx context.Context, path string, logger *slog.Logger) error {
	if path == "" {
		return nil
	}
	return cookiefile.Watch(ctx, path, logger, func(cookies []*http.Cookie) {
		c.Backend.SetCookies(cookies)
		c.Controller.Reload()
	})
}

func sessionCookies(cfg BackendConfig) ([]*http.Cookie, error) {
	cookies, err := backend.ParseCookieHeader(cfg.SessionCookie)
	if err != nil {
		return nil, err
	}
	if cfg.CookieFile != "" {
		fromFile, err := cookiefile.Read(cfg.CookieFile)
		if err != nil {
			return nil, err
		}
		cookies = append(cookies, fromFile...)
	}
	return cookies, nil
}
