package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/clinic-ai-scheduler/internal/appointment"
)

// pgxQuerier is the slice of pgx used by the booking store. Both
// *pgxpool.Pool and pgxmock satisfy it.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// BookingStore persists confirmed booking records.
type BookingStore struct {
	db pgxQuerier
}

func NewBookingStore(db pgxQuerier) *BookingStore {
	return &BookingStore{db: db}
}

// InsertRecord stores a confirmed booking. Replays of the same
// conversation update the row in place instead of failing.
func (s *BookingStore) InsertRecord(ctx context.Context, rec appointment.BookingRecord) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO bookings (
			id, conversation_id, confirmation_id, patient_name, specialty,
			reason, phone, email, slot_id, start_at, end_at, committed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (conversation_id) DO UPDATE SET
			confirmation_id = EXCLUDED.confirmation_id,
			committed_at = EXCLUDED.committed_at`,
		rec.ID,
		rec.ConversationID,
		rec.ConfirmationID,
		rec.Request.PatientName,
		rec.Request.Specialty,
		rec.Request.Reason,
		rec.Request.Phone,
		rec.Request.Email,
		rec.Slot.SlotID,
		rec.Slot.Start.UTC(),
		rec.Slot.End.UTC(),
		rec.CommittedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("store: insert booking: %w", err)
	}
	return nil
}

// GetByConversation returns the booking for a conversation, or nil when
// none has been committed.
func (s *BookingStore) GetByConversation(ctx context.Context, conversationID string) (*appointment.BookingRecord, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, conversation_id, confirmation_id, patient_name, specialty,
		       reason, phone, email, slot_id, start_at, end_at, committed_at
		FROM bookings
		WHERE conversation_id = $1`, conversationID)

	var rec appointment.BookingRecord
	err := row.Scan(
		&rec.ID,
		&rec.ConversationID,
		&rec.ConfirmationID,
		&rec.Request.PatientName,
		&rec.Request.Specialty,
		&rec.Request.Reason,
		&rec.Request.Phone,
		&rec.Request.Email,
		&rec.Slot.SlotID,
		&rec.Slot.Start,
		&rec.Slot.End,
		&rec.CommittedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get booking: %w", err)
	}
	return &rec, nil
}
