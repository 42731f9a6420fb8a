package notes

import (
	"encoding/json"
	"log/slog"

	"github.com/starford/notegate/internal/models"
)

// decodeNotes converts decoded JSON items to notes, preserving order.
// Items that are not note objects are skipped.
func decodeNotes(items []any, logger *slog.Logger) []models.Note {
	out := make([]models.Note, 0, len(items))
	for i, item := range items {
		if _, ok := item.(map[string]any); !ok {
			logger.Warn("notes: skipping non-object item", slog.Int("index", i))
			continue
		}
		data, err := json.Marshal(item)
		if err != nil {
			logger.Warn("notes: skipping item", slog.Int("index", i), slog.String("error", err.Error()))
			continue
		}
		var n models.Note
		if err := json.Unmarshal(data, &n); err != nil {
			logger.Warn("notes: skipping item", slog.Int("index", i), slog.String("error", err.Error()))
			continue
		}
		out = append(out, n)
	}
	return out
}
