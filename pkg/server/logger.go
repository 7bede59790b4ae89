package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Jinksi/ai-hero-deepsearch-course/pkg/database"
)

// DBLogHandler is a slog.Handler that writes a research run's records to
// the database, keyed by conversation.
type DBLogHandler struct {
	DB             *database.PostgresDB
	ConversationID uuid.UUID
}

func NewDBLogHandler(db *database.PostgresDB, conversationID uuid.UUID) *DBLogHandler {
	return &DBLogHandler{
		DB:             db,
		ConversationID: conversationID,
	}
}

func (h *DBLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true // Log everything
}

func (h *DBLogHandler) Handle(ctx context.Context, r slog.Record) error {
	attrs := make(map[string]interface{})
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	metaJSON, err := json.Marshal(attrs)
	if err != nil {
		metaJSON = []byte("{}")
	}

	query := `
		INSERT INTO research_logs (conversation_id, timestamp, level, message, metadata)
		VALUES ($1, $2, $3, $4, $5)
	`

	// Use background context so logs persist even if the request context
	// cancels mid-run.
	_, err = h.DB.Pool.Exec(context.Background(), query, h.ConversationID, r.Time, r.Level.String(), r.Message, metaJSON)
	return err
}

func (h *DBLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	// Attribute chaining is not needed for run logs; attributes attached
	// per-record are enough.
	return h
}

func (h *DBLogHandler) WithGroup(name string) slog.Handler {
	return h
}
