package internal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/notegate/internal/controller"
	"github.com/starford/notegate/internal/testutil"
)

func testConfig(baseURL string) *Config {
	cfg := NewDefaultConfig()
	cfg.Backend.BaseURL = baseURL
	return cfg
}

func TestNewClient_SeedsSessionCookie(t *testing.T) {
	be := testutil.TestBackend(t)
	be.SetSession("tok")
	be.RequireCookie(&http.Cookie{Name: "sid", Value: "abc"})

	cfg := testConfig(be.URL())
	cfg.Backend.SessionCookie = "sid=abc"
	client, err := NewClient(context.Background(), cfg, testutil.Logger(), nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Controller.Close()

	client.Controller.Start()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := client.Controller.WaitIdle(ctx)
	if err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}
	if !snap.Auth.IsAuthenticated() {
		t.Errorf("auth = %s, want authenticated via cookie", snap.Auth.Status)
	}
}

func TestNewClient_CookieFileAndWatch(t *testing.T) {
	be := testutil.TestBackend(t)
	be.SetSession("tok")
	be.RequireCookie(&http.Cookie{Name: "sid", Value: "fresh"})

	path := filepath.Join(t.TempDir(), "cookies.txt")
	if err := os.WriteFile(path, []byte("sid=stale"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig(be.URL())
	cfg.Backend.CookieFile = path

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client, err := NewClient(ctx, cfg, testutil.Logger(), nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Controller.Close()
	go func() { _ = client.WatchCookies(ctx, path, testutil.Logger()) }()

	client.Controller.Start()
	waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer waitCancel()
	snap, _ := client.Controller.WaitIdle(waitCtx)
	if snap.Phase != controller.PhaseUnauthenticated {
		t.Fatalf("phase = %s with stale cookie", snap.Phase)
	}

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("sid=fresh"), 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		snap = client.Controller.Snapshot()
		if snap.Generation == 1 && snap.Phase == controller.PhaseIdle {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Errorf("cookie change did not reload the session: %+v", snap)
}

func TestNewClient_InvalidCookie(t *testing.T) {
	cfg := testConfig("http://localhost:3000")
	cfg.Backend.SessionCookie = "not a cookie"
	if _, err := NewClient(context.Background(), cfg, testutil.Logger(), nil); err == nil {
		t.Fatal("expected error for invalid cookie header")
	}
}

func TestReadyHandler(t *testing.T) {
	be := testutil.TestBackend(t)
	client, err := NewClient(context.Background(), testConfig(be.URL()), testutil.Logger(), nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Controller.Close()
	h := readyHandler(client.Controller)

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("ready before start = %d, want 503", w.Code)
	}

	client.Controller.Start()
	w = httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("ready after start = %d %s", w.Code, w.Body.String())
	}
}
