package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-ai-scheduler/internal/appointment"
	"github.com/wolfman30/clinic-ai-scheduler/internal/scheduling"
	"github.com/wolfman30/clinic-ai-scheduler/pkg/logging"
)

var commitTracer = otel.Tracer("scheduler.internal.booking")

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 1 * time.Second
	maxDelay           = 8 * time.Second
)

// Result is the outcome of a commit. AlreadyBooked is true when the ledger
// already held a confirmation for this conversation and no provider call was
// made.
type Result struct {
	Record        appointment.BookingRecord
	AlreadyBooked bool
}

// Committer reserves a slot with the provider exactly once per conversation.
type Committer struct {
	provider    scheduling.Provider
	ledger      Ledger
	logger      *logging.Logger
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(time.Duration)
	now         func() time.Time
}

// NewCommitter builds a committer. logger defaults to the package default
// when nil.
func NewCommitter(provider scheduling.Provider, ledger Ledger, logger *logging.Logger) *Committer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Committer{
		provider:    provider,
		ledger:      ledger,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		sleep:       time.Sleep,
		now:         time.Now,
	}
}

// WithRetryPolicy overrides the transient-failure retry bounds. Zero values
// keep the defaults.
func (c *Committer) WithRetryPolicy(maxAttempts int, baseDelay time.Duration) *Committer {
	if maxAttempts > 0 {
		c.maxAttempts = maxAttempts
	}
	if baseDelay > 0 {
		c.baseDelay = baseDelay
	}
	return c
}

// Commit reserves the chosen slot. The ledger is consulted first so a
// conversation that already booked returns its original confirmation instead
// of reserving twice. ErrSlotTaken and ErrRejected pass through untouched;
// transient provider failures are retried with capped exponential backoff.
func (c *Committer) Commit(ctx context.Context, conversationID string, req appointment.Request, slot appointment.Candidate) (Result, error) {
	ctx, span := commitTracer.Start(ctx, "booking.commit")
	defer span.End()
	span.SetAttributes(
		attribute.String("scheduler.conversation_id", conversationID),
		attribute.String("scheduler.slot_id", slot.SlotID),
	)

	if confirmed, ok, err := c.ledger.Get(ctx, conversationID); err != nil {
		span.RecordError(err)
		return Result{}, err
	} else if ok {
		c.logger.Info("booking already committed, reusing confirmation",
			"conversation_id", conversationID,
			"confirmation_id", confirmed,
		)
		record := appointment.NewBookingRecord(conversationID, req, slot, confirmed, c.now())
		return Result{Record: record, AlreadyBooked: true}, nil
	}

	specialty, _ := appointment.ParseSpecialty(req.Specialty)
	reserve := scheduling.ReserveRequest{
		SlotID:      slot.SlotID,
		Start:       slot.Start,
		End:         slot.End,
		PatientName: req.PatientName,
		Email:       req.Email,
		Phone:       req.Phone,
		Specialty:   specialty,
		Reason:      req.Reason,
	}

	confirmationID, err := c.reserveWithRetry(ctx, reserve)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}

	if err := c.ledger.Put(ctx, conversationID, confirmationID); err != nil {
		// The reservation went through; a ledger write failure must not
		// surface as a booking failure.
		c.logger.Error("failed to record confirmation in ledger",
			"conversation_id", conversationID,
			"confirmation_id", confirmationID,
			"error", err.Error(),
		)
	}

	record := appointment.NewBookingRecord(conversationID, req, slot, confirmationID, c.now())
	c.logger.Info("booking committed",
		"conversation_id", conversationID,
		"confirmation_id", confirmationID,
		"slot_id", slot.SlotID,
		"start", slot.Start.Format(time.RFC3339),
	)
	return Result{Record: record}, nil
}

func (c *Committer) reserveWithRetry(ctx context.Context, reserve scheduling.ReserveRequest) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(1<<(attempt-1))
			if delay > maxDelay {
				delay = maxDelay
			}
			c.logger.Warn("retrying reservation",
				"attempt", attempt+1,
				"delay", delay.String(),
				"error", lastErr.Error(),
			)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			default:
			}
			c.sleep(delay)
		}

		confirmationID, err := c.provider.Reserve(ctx, reserve)
		if err == nil {
			return confirmationID, nil
		}
		if errors.Is(err, scheduling.ErrSlotTaken) || errors.Is(err, scheduling.ErrRejected) {
			return "", err
		}
		if !scheduling.IsTransient(err) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("booking: provider unavailable after %d attempts: %w", c.maxAttempts, lastErr)
}
