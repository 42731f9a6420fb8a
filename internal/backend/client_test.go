package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notegate/internal/testutil"
)

func newClient(t *testing.T, baseURL string, cookies ...*http.Cookie) *Client {
	t.Helper()
	c, err := New(Options{BaseURL: baseURL, Cookies: cookies, Logger: testutil.Logger()})
	require.NoError(t, err)
	return c
}

func TestDo_CredentialsTravelAsCookiesOnly(t *testing.T) {
	reqs := make(chan *http.Request, 1)
	bodies := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		reqs <- r.Clone(context.Background())
		bodies <- body
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"status":201}`)
	}))
	t.Cleanup(srv.Close)

	c := newClient(t, srv.URL, &http.Cookie{Name: "connect.sid", Value: "s%3Aabc"})
	resp, err := c.Do(context.Background(), http.MethodPost, "/client/create-note", map[string]string{"title": "T", "content": "C"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.JSONEq(t, `{"status":201}`, string(resp.Body))
	got, body := <-reqs, <-bodies
	assert.Empty(t, got.Header.Get("Authorization"))
	assert.Equal(t, "/client/create-note", got.URL.Path)
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, map[string]any{"title": "T", "content": "C"}, body)

	ck, err := got.Cookie("connect.sid")
	require.NoError(t, err)
	assert.Equal(t, "s%3Aabc", ck.Value)

	_, err = uuid.Parse(got.Header.Get("X-Request-Id"))
	assert.NoError(t, err, "request id must be a uuid")
}

func TestDo_GetHasNoBody(t *testing.T) {
	reqs := make(chan *http.Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqs <- r.Clone(context.Background())
		_, _ = io.WriteString(w, `[]`)
	}))
	t.Cleanup(srv.Close)

	resp, err := newClient(t, srv.URL).Do(context.Background(), http.MethodGet, "client/notes", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	got := <-reqs
	assert.Equal(t, "/client/notes", got.URL.Path)
	assert.Empty(t, got.Header.Get("Content-Type"))
	assert.Zero(t, got.ContentLength)
}

func TestDo_RequestIDsDiffer(t *testing.T) {
	ids := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids <- r.Header.Get("X-Request-Id")
	}))
	t.Cleanup(srv.Close)

	c := newClient(t, srv.URL)
	for range 2 {
		_, err := c.Do(context.Background(), http.MethodGet, "/session/info", nil)
		require.NoError(t, err)
	}
	first, second := <-ids, <-ids
	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

func TestDo_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := newClient(t, addr).Do(context.Background(), http.MethodGet, "/session/info", nil)
	assert.Error(t, err)
}

func TestNew_BaseURL(t *testing.T) {
	for _, raw := range []string{"", "   ", "ftp://backend.test", "backend.test:3000"} {
		_, err := New(Options{BaseURL: raw})
		assert.Error(t, err, "base url %q", raw)
	}

	c := newClient(t, " http://backend.test:3000/ ")
	assert.Equal(t, "http://backend.test:3000/client/notes", c.URL("/client/notes"))
	assert.Equal(t, "http://backend.test:3000/client/notes", c.URL("client/notes"))
	assert.Equal(t, "http://backend.test:3000/oauth/login", c.LoginURL())

	prefixed := newClient(t, "https://host.test/proxy/")
	assert.Equal(t, "https://host.test/proxy/session/info", prefixed.URL("/session/info"))
}

func TestNew_EndpointDefaults(t *testing.T) {
	c, err := New(Options{
		BaseURL:   "http://backend.test",
		Endpoints: Endpoints{Login: "/auth/start"},
		Logger:    testutil.Logger(),
	})
	require.NoError(t, err)

	want := DefaultEndpoints()
	want.Login = "/auth/start"
	assert.Equal(t, want, c.Endpoints())
	assert.Equal(t, "http://backend.test/auth/start", c.LoginURL())
}

func TestSetCookies_ScopedToBaseOrigin(t *testing.T) {
	c := newClient(t, "http://backend.test:3000")
	c.SetCookies([]*http.Cookie{{Name: "sid", Value: "1"}})
	c.SetCookies(nil)

	base, _ := url.Parse("http://backend.test:3000/client/notes")
	cookies := c.httpClient.Jar.Cookies(base)
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)

	other, _ := url.Parse("http://elsewhere.test/client/notes")
	assert.Empty(t, c.httpClient.Jar.Cookies(other))
}

func TestParseCookieHeader(t *testing.T) {
	cookies, err := ParseCookieHeader(" connect.sid=abc; theme=dark ")
	require.NoError(t, err)
	require.Len(t, cookies, 2)
	assert.Equal(t, "connect.sid", cookies[0].Name)
	assert.Equal(t, "abc", cookies[0].Value)
	assert.Equal(t, "theme", cookies[1].Name)

	cookies, err = ParseCookieHeader("   ")
	assert.NoError(t, err)
	assert.Nil(t, cookies)

	_, err = ParseCookieHeader("no-equals-sign")
	assert.Error(t, err)
}
