package session

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/starford/notegate/internal/backend"
	"github.com/starford/notegate/internal/result"
)

// Prober queries the backend session-info endpoint.
type Prober struct {
	client *backend.Client
	logger *slog.Logger
}

// NewProber creates a Prober.
func NewProber(client *backend.Client, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{client: client, logger: logger}
}

// Probe performs one credentialed request and classifies the session.
// Failures are logged and yield an indeterminate state; absence of a
// session is not an error. Probe never retries.
func (p *Prober) Probe(ctx context.Context) AuthState {
	path := p.client.Endpoints().SessionInfo
	resp, err := p.client.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		p.logger.Warn("session probe failed", slog.String("error", err.Error()))
		return Indeterminate()
	}
	if resp.Status < 200 || resp.Status > 299 {
		p.logger.Warn("session probe rejected", slog.Int("status", resp.Status))
		return Indeterminate()
	}

	body, malformed := result.Decode(resp.Body)
	if malformed {
		p.logger.Warn("session probe: malformed body treated as empty", slog.Int("status", resp.Status))
	}
	state := FromPayload(body)
	p.logger.Debug("session probed", slog.String("status", state.Status.String()))
	return state
}
