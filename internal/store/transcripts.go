// Package store persists conversations and booking records.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TranscriptMessage is one line of a conversation transcript.
type TranscriptMessage struct {
	ID             string
	ConversationID string
	Role           string // "user" or "assistant"
	Content        string
	CreatedAt      time.Time
}

// TranscriptStore records conversations in Postgres via database/sql.
type TranscriptStore struct {
	db *sql.DB
}

func NewTranscriptStore(db *sql.DB) *TranscriptStore {
	return &TranscriptStore{db: db}
}

// EnsureConversation creates the conversation row if it does not exist yet.
func (s *TranscriptStore) EnsureConversation(ctx context.Context, conversationID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, started_at)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`,
		conversationID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: ensure conversation: %w", err)
	}
	return nil
}

// AppendMessage stores one transcript line and returns its generated ID.
func (s *TranscriptStore) AppendMessage(ctx context.Context, conversationID, role, content string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcript_messages (id, conversation_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		id, conversationID, role, content, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("store: append message: %w", err)
	}
	return id, nil
}

// ListMessages returns the transcript in insertion order.
func (s *TranscriptStore) ListMessages(ctx context.Context, conversationID string) ([]TranscriptMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, created_at
		FROM transcript_messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("store: list messages: %w", err)
	}
	defer rows.Close()

	var out []TranscriptMessage
	for rows.Next() {
		var m TranscriptMessage
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		out = append(out, m)
	}
	if out == nil {
		out = []TranscriptMessage{}
	}
	return out, rows.Err()
}

// EndConversation stamps a terminal outcome ("completed" or "aborted") on
// the conversation row.
func (s *TranscriptStore) EndConversation(ctx context.Context, conversationID, outcome string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET outcome = $2, ended_at = $3 WHERE id = $1`,
		conversationID, outcome, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: end conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("store: unknown conversation %s", conversationID)
	}
	return nil
}
