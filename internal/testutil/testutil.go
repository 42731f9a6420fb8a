// Package testutil provides shared test helpers: a fake proxying backend
// and a quiet logger.
package testutil

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Shape selects how the fake backend wraps a successful notes listing.
type Shape int

const (
	// ShapeEnvelope answers {"status":200,"data":[...]}.
	ShapeEnvelope Shape = iota
	// ShapeBare answers the raw array.
	ShapeBare
)

type canned struct {
	status int
	body   string
}

// Backend is an in-process fake of the proxying backend. It serves the
// session, list and create endpoints with the default paths and counts calls.
type Backend struct {
	Server *httptest.Server

	mu            sync.Mutex
	token         string
	sessionFail   int
	requireCookie *http.Cookie
	shape         Shape
	notes         []map[string]any
	nextID        int
	listCanned    *canned
	createCanned  *canned
	lastCreate    map[string]any

	sessionCalls atomic.Int64
	listCalls    atomic.Int64
	createCalls  atomic.Int64
}

// TestBackend starts a fake backend that is closed when the test ends.
func TestBackend(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{nextID: 1}

	r := chi.NewRouter()
	r.Get("/session/info", b.sessionInfo)
	r.Get("/client/notes", b.listNotes)
	r.Post("/client/create-note", b.createNote)
	r.Get("/oauth/login", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/authorize?response_type=code", http.StatusFound)
	})

	b.Server = httptest.NewServer(r)
	t.Cleanup(b.Server.Close)
	return b
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// URL returns the base URL of the fake backend.
func (b *Backend) URL() string {
	return b.Server.URL
}

// SetSession makes the session authenticated with token, or unauthenticated
// when token is empty.
func (b *Backend) SetSession(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
}

// FailSession makes the session endpoint answer with status (0 restores it).
func (b *Backend) FailSession(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessionFail = status
}

// RequireCookie makes the session visible only to requests carrying ck.
func (b *Backend) RequireCookie(ck *http.Cookie) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requireCookie = ck
}

// SetShape selects the successful listing shape.
func (b *Backend) SetShape(s Shape) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shape = s
}

// AddNote appends a note to the fake store.
func (b *Backend) AddNote(title, content string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.appendNoteLocked(title, content)
}

// SetListResponse overrides the notes listing with a canned response.
func (b *Backend) SetListResponse(status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listCanned = &canned{status: status, body: body}
}

// SetCreateResponse overrides note creation with a canned response.
func (b *Backend) SetCreateResponse(status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.createCanned = &canned{status: status, body: body}
}

// LastCreate returns the JSON body of the most recent create request.
func (b *Backend) LastCreate() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastCreate
}

// SessionCalls returns the number of session probes served.
func (b *Backend) SessionCalls() int { return int(b.sessionCalls.Load()) }

// ListCalls returns the number of listings served.
func (b *Backend) ListCalls() int { return int(b.listCalls.Load()) }

// CreateCalls returns the number of create requests served.
func (b *Backend) CreateCalls() int { return int(b.createCalls.Load()) }

func (b *Backend) authenticated(r *http.Request) bool {
	if b.token == "" {
		return false
	}
	if b.requireCookie == nil {
		return true
	}
	ck, err := r.Cookie(b.requireCookie.Name)
	return err == nil && ck.Value == b.requireCookie.Value
}

func (b *Backend) sessionInfo(w http.ResponseWriter, r *http.Request) {
	b.sessionCalls.Add(1)
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sessionFail != 0 {
		writeJSON(w, b.sessionFail, map[string]any{"error": "session store unavailable"})
		return
	}
	if !b.authenticated(r) {
		writeJSON(w, http.StatusOK, map[string]any{"access_token": nil, "refresh_token": nil, "scope": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  b.token,
		"refresh_token": "refresh-" + b.token,
		"scope":         "notes:read notes:write",
	})
}

func (b *Backend) listNotes(w http.ResponseWriter, r *http.Request) {
	b.listCalls.Add(1)
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.listCanned != nil {
		writeRaw(w, b.listCanned.status, b.listCanned.body)
		return
	}
	if !b.authenticated(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "not_authenticated"})
		return
	}
	notes := make([]map[string]any, len(b.notes))
	copy(notes, b.notes)
	if b.shape == ShapeBare {
		writeJSON(w, http.StatusOK, notes)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": http.StatusOK, "data": notes})
}

func (b *Backend) createNote(w http.ResponseWriter, r *http.Request) {
	b.createCalls.Add(1)
	var req map[string]any
	_ = json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastCreate = req

	if b.createCanned != nil {
		writeRaw(w, b.createCanned.status, b.createCanned.body)
		return
	}
	if !b.authenticated(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "not_authenticated"})
		return
	}
	title, _ := req["title"].(string)
	content, _ := req["content"].(string)
	if title == "" {
		// The proxy relays the upstream status inside a 200 envelope.
		writeJSON(w, http.StatusOK, map[string]any{"status": http.StatusBadRequest, "data": map[string]any{"error": "title_required"}})
		return
	}
	note := b.appendNoteLocked(title, content)
	writeJSON(w, http.StatusOK, map[string]any{"status": http.StatusCreated, "data": note})
}

func (b *Backend) appendNoteLocked(title, content string) map[string]any {
	note := map[string]any{
		"id":         b.nextID,
		"owner":      "user:alice",
		"title":      title,
		"content":    content,
		"created_at": 1700000000 + b.nextID,
	}
	b.nextID++
	b.notes = append(b.notes, note)
	return note
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
