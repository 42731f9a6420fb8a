package api

import "github.com/starford/notegate/internal/view"

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title   string `json:"title" example:"Groceries" validate:"required"`
	Content string `json:"content" example:"milk, eggs"`
}

// DraftRequest is the request body for updating the create-note form buffer.
type DraftRequest struct {
	Title   string `json:"title" example:"Groceries"`
	Content string `json:"content" example:"milk"`
}

// StateResponse is the full renderable state (aliased from the view layer).
type StateResponse = view.View

// NoteListResponse wraps the current notes collection.
type NoteListResponse struct {
	Notes    []view.Note `json:"notes" validate:"required"`
	Revision string      `json:"revision" example:"9f86d0..." validate:"required"`
	Loaded   bool        `json:"loaded"`
}
