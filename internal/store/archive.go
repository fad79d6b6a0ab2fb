package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/wolfman30/clinic-ai-scheduler/internal/appointment"
)

// S3API is the subset of the S3 client used by Archiver.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// TranscriptArchive is the durable snapshot written when a conversation ends.
type TranscriptArchive struct {
	ConversationID string              `json:"conversation_id"`
	Outcome        string              `json:"outcome"`
	Messages       []TranscriptMessage `json:"messages"`
	Booking        *archivedBooking    `json:"booking,omitempty"`
	ArchivedAt     time.Time           `json:"archived_at"`
}

type archivedBooking struct {
	ConfirmationID string    `json:"confirmation_id"`
	PatientName    string    `json:"patient_name"`
	Specialty      string    `json:"specialty"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
}

// Archiver writes completed conversation transcripts to S3.
type Archiver struct {
	bucket   string
	s3Client S3API
	logger   *slog.Logger
}

// NewArchiver creates an Archiver. If bucket is empty, all operations are no-ops.
func NewArchiver(s3Client S3API, bucket string, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{bucket: bucket, s3Client: s3Client, logger: logger}
}

// Enabled returns true if archival is configured (bucket is set).
func (a *Archiver) Enabled() bool {
	return a != nil && a.bucket != "" && a.s3Client != nil
}

// ArchiveTranscript writes the transcript as JSON under a date-partitioned key.
func (a *Archiver) ArchiveTranscript(ctx context.Context, conversationID, outcome string, messages []TranscriptMessage, booking *appointment.BookingRecord) error {
	if !a.Enabled() {
		return nil
	}

	record := TranscriptArchive{
		ConversationID: conversationID,
		Outcome:        outcome,
		Messages:       messages,
		ArchivedAt:     time.Now().UTC(),
	}
	if booking != nil {
		record.Booking = &archivedBooking{
			ConfirmationID: booking.ConfirmationID,
			PatientName:    booking.Request.PatientName,
			Specialty:      booking.Request.Specialty,
			Start:          booking.Slot.Start,
			End:            booking.Slot.End,
		}
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("store: marshal archive: %w", err)
	}

	now := record.ArchivedAt
	s3Key := fmt.Sprintf("transcripts/v1/by-date/%d/%02d/%02d/%s.json",
		now.Year(), now.Month(), now.Day(), conversationID)

	_, err = a.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(s3Key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("store: s3 put %s: %w", s3Key, err)
	}

	a.logger.Info("archived transcript to S3",
		"conversation_id", conversationID,
		"s3_key", s3Key,
		"message_count", len(messages),
		"outcome", outcome,
	)
	return nil
}
