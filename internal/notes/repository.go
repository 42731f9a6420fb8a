// Package notes lists and creates notes through the backend notes proxy.
package notes

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/starford/notegate/internal/backend"
	"github.com/starford/notegate/internal/models"
	"github.com/starford/notegate/internal/result"
)

type createRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Repository performs note operations. Every call collapses to a
// result.Result; transport failures never escape as errors.
type Repository struct {
	client *backend.Client
	logger *slog.Logger
}

// NewRepository creates a Repository.
func NewRepository(client *backend.Client, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{client: client, logger: logger}
}

// List fetches the notes collection. On success Data holds models.Note
// values in server order; use Collection to read them.
func (r *Repository) List(ctx context.Context) result.Result {
	resp, err := r.client.Do(ctx, http.MethodGet, r.client.Endpoints().Notes, nil)
	if err != nil {
		r.logger.Warn("list notes: transport failure", slog.String("error", err.Error()))
		return result.NetworkFailure()
	}

	body, malformed := result.Decode(resp.Body)
	if malformed {
		r.logger.Warn("list notes: malformed body treated as empty", slog.Int("status", resp.Status))
	}
	res := result.Normalize(resp.Status, body)
	res.Malformed = malformed
	if !res.OK {
		r.logger.Info("list notes failed",
			slog.String("kind", res.Kind.String()),
			slog.Int("status", resp.Status),
			slog.String("message", res.Message))
		return res
	}
	res.Data = toAny(decodeNotes(res.Data, r.logger))
	return res
}

// Create submits a new note. HTTP 201, or a body-declared logical status of
// 200 or 201, is success. The created note, when the body carries one, is
// returned in Data but callers must reload the list to observe it.
func (r *Repository) Create(ctx context.Context, title, content string) result.Result {
	req := createRequest{Title: title, Content: content}
	resp, err := r.client.Do(ctx, http.MethodPost, r.client.Endpoints().CreateNote, req)
	if err != nil {
		r.logger.Warn("create note: transport failure", slog.String("error", err.Error()))
		return result.NetworkFailure()
	}

	body, malformed := result.Decode(resp.Body)
	res := result.Normalize(resp.Status, body)
	res.Malformed = malformed
	if !res.OK {
		r.logger.Info("create note failed",
			slog.String("kind", res.Kind.String()),
			slog.Int("status", resp.Status),
			slog.String("message", res.Message))
		return res
	}

	if !created(resp.Status, body) {
		kind := result.KindServerError
		if malformed {
			kind = result.KindParseFailure
		}
		r.logger.Warn("create note: response lacks a success marker",
			slog.Int("status", resp.Status),
			slog.Bool("malformed", malformed))
		failed := result.Failure(kind, resp.Status, result.UnexpectedMessage)
		failed.Body = body
		failed.Malformed = malformed
		return failed
	}

	res.Data = toAny(decodeNotes(createdItems(body), r.logger))
	return res
}

// Collection returns the notes carried by a successful List or Create result.
func Collection(res result.Result) []models.Note {
	out := make([]models.Note, 0, len(res.Data))
	for _, item := range res.Data {
		if n, ok := item.(models.Note); ok {
			out = append(out, n)
		}
	}
	return out
}

func created(status int, body any) bool {
	if status == http.StatusCreated {
		return true
	}
	obj, ok := body.(map[string]any)
	if !ok {
		return false
	}
	logical, ok := result.LogicalStatus(obj)
	return ok && (logical == http.StatusOK || logical == http.StatusCreated)
}

func createdItems(body any) []any {
	obj, ok := body.(map[string]any)
	if !ok {
		return nil
	}
	switch v := obj["data"].(type) {
	case map[string]any:
		return []any{v}
	case []any:
		return v
	}
	return nil
}

func toAny(notes []models.Note) []any {
	out := make([]any, len(notes))
	for i, n := range notes {
		out[i] = n
	}
	return out
}
