// Package view projects controller snapshots into the renderable shape
// served to the presentation layer.
package view

import (
	"time"

	"github.com/starford/notegate/internal/checksum"
	"github.com/starford/notegate/internal/controller"
	"github.com/starford/notegate/internal/models"
)

// Session is the renderable session block. The access token itself is
// never exposed.
type Session struct {
	Status    string     `json:"status"`
	Subject   string     `json:"subject,omitempty"`
	Scopes    []string   `json:"scopes,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Note is one rendered list entry.
type Note struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Owner     string `json:"owner,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Draft is the create-note form buffer.
type Draft struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// View is the full renderable state.
type View struct {
	Phase   string  `json:"phase"`
	Session Session `json:"session"`
	// ShowNotes gates the notes panel; it is true exactly when authenticated.
	ShowNotes bool `json:"show_notes"`
	// ShowLogin offers the login action.
	ShowLogin bool   `json:"show_login"`
	Notes     []Note `json:"notes"`
	Banner    string `json:"banner,omitempty"`
	Draft     Draft  `json:"draft"`
	Busy      bool   `json:"busy"`
	Loaded    bool   `json:"loaded"`
	// Revision fingerprints Notes; equal collections share a revision.
	Revision   string `json:"revision"`
	Generation int    `json:"generation"`
}

// Project renders a snapshot. It is a pure function of its input.
func Project(s controller.Snapshot) View {
	authed := s.Auth.IsAuthenticated()
	v := View{
		Phase:      string(s.Phase),
		Session:    projectSession(s),
		ShowNotes:  authed,
		ShowLogin:  !authed && s.Phase != controller.PhaseRedirected,
		Notes:      []Note{},
		Banner:     s.Banner,
		Draft:      Draft{Title: s.Draft.Title, Content: s.Draft.Content},
		Busy:       !s.Idle(),
		Loaded:     s.Loaded,
		Generation: s.Generation,
	}
	if authed {
		v.Notes = projectNotes(s.Notes)
	}
	v.Revision = checksum.Of(v.Notes)
	return v
}

func projectSession(s controller.Snapshot) Session {
	out := Session{Status: s.Auth.Status.String()}
	if !s.Auth.IsAuthenticated() {
		return out
	}
	claims := s.Auth.Claims()
	out.Subject = claims.Subject
	out.Scopes = claims.Scopes
	if !claims.ExpiresAt.IsZero() {
		exp := claims.ExpiresAt.UTC()
		out.ExpiresAt = &exp
	}
	return out
}

func projectNotes(notes []models.Note) []Note {
	out := make([]Note, 0, len(notes))
	for _, n := range notes {
		vn := Note{
			ID:      string(n.ID),
			Title:   n.Title,
			Content: n.Content,
			Owner:   n.Owner,
		}
		if n.CreatedAt > 0 {
			vn.CreatedAt = time.Unix(n.CreatedAt, 0).UTC().Format(time.RFC3339)
		}
		out = append(out, vn)
	}
	return out
}
