package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/starford/notegate/internal/controller"
	"github.com/starford/notegate/internal/view"
)

// Controller is the subset of the sync controller the API drives.
type Controller interface {
	Snapshot() controller.Snapshot
	Refresh()
	Probe()
	Reload()
	Login()
	LoginURL() string
	UpdateDraft(title, content string)
	CreateNote(title, content string)
}

// Handler holds API route handlers.
type Handler struct {
	ctrl Controller
}

// NewHandler creates a new Handler.
func NewHandler(ctrl Controller) *Handler {
	return &Handler{ctrl: ctrl}
}

// accepted answers 202 with the view as of the moment the operation was
// queued. Completion is observed through GET /state or the event stream.
func (h *Handler) accepted(w http.ResponseWriter) {
	writeJSON(w, http.StatusAccepted, view.Project(h.ctrl.Snapshot()))
}

// State handles GET /api/state.
//
//	@Summary		Current view state
//	@Tags			state
//	@Produce		json
//	@Success		200	{object}	StateResponse
//	@Security		BearerAuth
//	@Router			/state [get]
func (h *Handler) State(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, view.Project(h.ctrl.Snapshot()))
}

// ListNotes handles GET /api/notes. It never reaches the backend; use
// POST /api/notes/refresh to reload.
//
//	@Summary		Current notes collection
//	@Tags			notes
//	@Produce		json
//	@Success		200	{object}	NoteListResponse
//	@Failure		401	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, _ *http.Request) {
	v := view.Project(h.ctrl.Snapshot())
	if !v.ShowNotes {
		writeJSON(w, http.StatusUnauthorized, errorBody("not authenticated"))
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{
		Notes:    v.Notes,
		Revision: v.Revision,
		Loaded:   v.Loaded,
	})
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Submit a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		202		{object}	StateResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	slog.Debug("create note requested", slog.Int("title_len", len(req.Title)))
	h.ctrl.CreateNote(req.Title, req.Content)
	h.accepted(w)
}

// UpdateDraft handles PUT /api/draft.
//
//	@Summary		Replace the create-note form buffer
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DraftRequest	true	"Draft"
//	@Success		202		{object}	StateResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/draft [put]
func (h *Handler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	h.ctrl.UpdateDraft(req.Title, req.Content)
	h.accepted(w)
}

// Refresh handles POST /api/notes/refresh.
//
//	@Summary		Reload the notes collection
//	@Tags			notes
//	@Produce		json
//	@Success		202	{object}	StateResponse
//	@Security		BearerAuth
//	@Router			/notes/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, _ *http.Request) {
	h.ctrl.Refresh()
	h.accepted(w)
}

// Probe handles POST /api/session/probe.
//
//	@Summary		Re-probe the backend session
//	@Tags			session
//	@Produce		json
//	@Success		202	{object}	StateResponse
//	@Security		BearerAuth
//	@Router			/session/probe [post]
func (h *Handler) Probe(w http.ResponseWriter, _ *http.Request) {
	h.ctrl.Probe()
	h.accepted(w)
}

// Reload handles POST /api/session/reload.
//
//	@Summary		Discard client state and probe again
//	@Tags			session
//	@Produce		json
//	@Success		202	{object}	StateResponse
//	@Security		BearerAuth
//	@Router			/session/reload [post]
func (h *Handler) Reload(w http.ResponseWriter, _ *http.Request) {
	h.ctrl.Reload()
	h.accepted(w)
}

// Login handles GET /api/login: the full-page redirect to the backend's
// authorization endpoint.
//
//	@Summary		Start the login flow
//	@Tags			session
//	@Success		302	"Redirect to the backend login endpoint"
//	@Security		BearerAuth
//	@Router			/login [get]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	h.ctrl.Login()
	http.Redirect(w, r, h.ctrl.LoginURL(), http.StatusFound)
}
