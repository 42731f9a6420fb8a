package internal

import (
	"fmt"
	"log/slog"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notegate/internal/backend"
	"github.com/starford/notegate/internal/controller"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Backend BackendConfig     `yaml:"backend"`
	Sync    SyncConfig        `yaml:"sync"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Backend.Validate(); err != nil {
		return err
	}
	if err := c.Sync.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds view server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// BackendConfig locates the proxying backend. Endpoint paths default to the
// backend's standard routes when left empty.
type BackendConfig struct {
	BaseURL           string `yaml:"base_url"`
	backend.Endpoints `yaml:",inline"`
	// SessionCookie is a raw Cookie header value seeded into the jar.
	SessionCookie string `yaml:"session_cookie"`
	// CookieFile is a watched file holding a raw Cookie header value.
	CookieFile string `yaml:"cookie_file"`
}

// Validate validates the backend configuration.
func (c *BackendConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, validation.By(httpURL)),
		validation.Field(&c.SessionCookie, validation.By(cookieHeader)),
	)
}

func httpURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an absolute http or https URL")
	}
	return nil
}

func cookieHeader(value any) error {
	s, _ := value.(string)
	_, err := backend.ParseCookieHeader(s)
	return err
}

// SyncConfig controls client-side notes handling.
type SyncConfig struct {
	// StaleNotes is "keep" (default) or "clear": what happens to loaded notes
	// when the session stops being authenticated.
	StaleNotes string `yaml:"stale_notes"`
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	if c.StaleNotes == "" {
		c.StaleNotes = string(controller.StaleKeep)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.StaleNotes, validation.In(string(controller.StaleClear), string(controller.StaleKeep))),
	)
}

// Policy returns the stale-notes policy.
func (c *SyncConfig) Policy() controller.StalePolicy {
	return controller.StalePolicy(c.StaleNotes)
}

// AuthConfig holds authentication configuration for the local view server.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Backend: BackendConfig{
			BaseURL:   "http://localhost:3000",
			Endpoints: backend.DefaultEndpoints(),
		},
		Sync: SyncConfig{
			StaleNotes: string(controller.StaleKeep),
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
