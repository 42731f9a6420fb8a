// Package backend is the cookie-credentialed HTTP plumbing shared by the
// session probe and the notes repository.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Endpoints are the backend paths consumed by the client.
type Endpoints struct {
	SessionInfo string `yaml:"session_info_path"`
	Login       string `yaml:"login_path"`
	Notes       string `yaml:"notes_path"`
	CreateNote  string `yaml:"create_note_path"`
}

// DefaultEndpoints returns the paths served by the proxying backend.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		SessionInfo: "/session/info",
		Login:       "/oauth/login",
		Notes:       "/client/notes",
		CreateNote:  "/client/create-note",
	}
}

func (e Endpoints) withDefaults() Endpoints {
	d := DefaultEndpoints()
	if e.SessionInfo == "" {
		e.SessionInfo = d.SessionInfo
	}
	if e.Login == "" {
		e.Login = d.Login
	}
	if e.Notes == "" {
		e.Notes = d.Notes
	}
	if e.CreateNote == "" {
		e.CreateNote = d.CreateNote
	}
	return e
}

// Options configure a Client.
type Options struct {
	BaseURL    string
	Endpoints  Endpoints
	HTTPClient *http.Client
	// Cookies are seeded into the jar for the backend origin.
	Cookies []*http.Cookie
	Logger  *slog.Logger
}

// Client performs requests against the backend. Credentials travel only as
// cookies held in the client's jar; no Authorization header is ever set.
type Client struct {
	baseURL    *url.URL
	endpoints  Endpoints
	httpClient *http.Client
	logger     *slog.Logger
}

// Response is a raw backend response.
type Response struct {
	Status int
	Body   []byte
}

// New creates a Client. Requests carry no timeout: they either resolve or
// the transport fails them.
func New(opts Options) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if raw == "" {
		return nil, fmt.Errorf("backend base url is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse backend base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend base url must be http or https, got %q", base.Scheme)
	}

	httpClient := &http.Client{}
	if opts.HTTPClient != nil {
		c := *opts.HTTPClient
		httpClient = &c
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		baseURL:    base,
		endpoints:  opts.Endpoints.withDefaults(),
		httpClient: httpClient,
		logger:     logger,
	}
	c.SetCookies(opts.Cookies)
	return c, nil
}

// Endpoints returns the configured endpoint paths.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// URL resolves an endpoint path against the base URL.
func (c *Client) URL(path string) string {
	return c.baseURL.String() + "/" + strings.TrimLeft(path, "/")
}

// LoginURL is the authorization-initiation endpoint the browser navigates to.
func (c *Client) LoginURL() string {
	return c.URL(c.endpoints.Login)
}

// SetCookies stores session cookies for the backend origin.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}
	for _, ck := range cookies {
		if ck.Path == "" {
			ck.Path = "/"
		}
	}
	c.httpClient.Jar.SetCookies(c.baseURL, cookies)
	c.logger.Debug("backend: session cookies set", slog.Int("count", len(cookies)))
}

// Do sends one request. payload, when non-nil, is sent as a JSON body. A
// non-nil error means no response was received.
func (c *Client) Do(ctx context.Context, method, path string, payload any) (Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Response{}, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), body)
	if err != nil {
		return Response{}, err
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("backend: request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return Response{}, err
	}
	data, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return Response{}, fmt.Errorf("read response body: %w", readErr)
	}

	c.logger.Debug("backend: response",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("request_id", requestID),
		slog.Int("status", resp.StatusCode))
	return Response{Status: resp.StatusCode, Body: data}, nil
}

// ParseCookieHeader parses a raw Cookie header value ("a=1; b=2").
func ParseCookieHeader(raw string) ([]*http.Cookie, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	cookies, err := http.ParseCookie(raw)
	if err != nil {
		return nil, fmt.Errorf("parse cookie header: %w", err)
	}
	return cookies, nil
}
