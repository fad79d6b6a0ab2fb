// Package scheduling defines the provider interface the clinic books against
// and the error taxonomy callers use to decide whether to retry, re-check
// availability, or give up.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/clinic-ai-scheduler/internal/appointment"
)

var (
	// ErrSlotTaken means the slot was valid but someone else booked it between
	// our availability check and the reserve call. Callers should re-check
	// availability rather than retry the same slot.
	ErrSlotTaken = errors.New("scheduling: slot no longer available")

	// ErrRejected means the provider refused the request for a non-recoverable
	// reason (bad event type, invalid invitee, revoked credentials). Retrying
	// will not help.
	ErrRejected = errors.New("scheduling: request rejected")
)

// TransientError wraps provider failures that are worth retrying, such as
// timeouts and 5xx responses.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("scheduling: transient provider failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable. Returns nil for a nil err.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err (or anything it wraps) is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// ReserveRequest carries everything a provider needs to commit a slot.
type ReserveRequest struct {
	SlotID      string
	Start       time.Time
	End         time.Time
	PatientName string
	Email       string
	Phone       string
	Specialty   appointment.Specialty
	Reason      string
}

// Provider is implemented by scheduling backends (Calendly today). Listing
// and reserving are separate calls, so a listed slot can still fail with
// ErrSlotTaken at reserve time.
type Provider interface {
	// Name returns the provider identifier (e.g. "calendly").
	Name() string

	// ListAvailability returns bookable slots for the specialty within
	// [from, to), sorted by start time.
	ListAvailability(ctx context.Context, specialty appointment.Specialty, from, to time.Time) ([]appointment.Candidate, error)

	// Reserve commits a slot and returns the provider's confirmation ID.
	// Errors follow the package taxonomy: ErrSlotTaken, ErrRejected, or a
	// TransientError.
	Reserve(ctx context.Context, req ReserveRequest) (string, error)
}
