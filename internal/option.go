package internal

import (
	"io"

	"github.com/starford/notegate/internal/controller"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	navigator controller.Navigator
	logOutput io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithNavigator sets how the login redirect is performed. The default only
// logs it; the view server answers GET /api/login with the redirect itself.
func WithNavigator(nav controller.Navigator) Option {
	return func(a *application) {
		a.navigator = nav
	}
}

// WithLogOutput sets where structured logs are written (default stdout).
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}
