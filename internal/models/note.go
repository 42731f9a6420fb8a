// Package models defines the domain types for notegate.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// NoteID is the opaque, server-assigned identity of a note. The backend
// may send it as a JSON number or a string; both are kept verbatim.
type NoteID string

// UnmarshalJSON accepts numeric and string identifiers.
func (id *NoteID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = NoteID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("note id: %w", err)
	}
	*id = NoteID(n.String())
	return nil
}

// Note is a single entry of the remote notes resource. The client never
// mutates a Note after decoding it.
type Note struct {
	ID        NoteID `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Owner     string `json:"owner,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// Draft is the transient input buffer of the create-note form.
type Draft struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// TrimmedTitle returns the title with surrounding whitespace removed.
func (d Draft) TrimmedTitle() string {
	return strings.TrimSpace(d.Title)
}

// IsZero reports whether the draft holds no input.
func (d Draft) IsZero() bool {
	return d.Title == "" && d.Content == ""
}
