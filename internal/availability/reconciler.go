// Package availability reconciles the patient's requested slot against what
// the scheduling provider can actually offer.
package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-ai-scheduler/internal/appointment"
	"github.com/wolfman30/clinic-ai-scheduler/internal/scheduling"
	"github.com/wolfman30/clinic-ai-scheduler/pkg/logging"
)

var reconcileTracer = otel.Tracer("scheduler.internal.availability")

// Outcome classifies a reconciliation result.
type Outcome int

const (
	// ExactMatch means the provider can host the requested slot as asked.
	ExactMatch Outcome = iota
	// Alternatives means the requested slot is unavailable but nearby slots
	// exist.
	Alternatives
	// NoCapacity means nothing bookable exists within the search horizon.
	NoCapacity
)

func (o Outcome) String() string {
	switch o {
	case ExactMatch:
		return "exact_match"
	case Alternatives:
		return "alternatives"
	case NoCapacity:
		return "no_capacity"
	}
	return "unknown"
}

// Result is what a reconciliation run produced. Match is set for ExactMatch;
// Alternatives holds the ranked nearby slots otherwise.
type Result struct {
	Outcome      Outcome
	Match        appointment.Candidate
	Alternatives []appointment.Candidate
}

// Config tunes the reconciliation search.
type Config struct {
	// HorizonDays bounds how far ahead alternatives are searched.
	HorizonDays int
	// ToleranceMinutes is how far a provider slot may drift from the
	// requested start and still count as an exact match.
	ToleranceMinutes int
	// TopK caps how many alternatives are offered.
	TopK int
	// MaxAttempts bounds retries of transient provider failures.
	MaxAttempts int
	// RetryBaseDelay seeds the exponential backoff between attempts.
	RetryBaseDelay time.Duration
}

// DefaultConfig mirrors the standard clinic policy.
func DefaultConfig() Config {
	return Config{
		HorizonDays:      14,
		ToleranceMinutes: 0,
		TopK:             3,
		MaxAttempts:      3,
		RetryBaseDelay:   500 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HorizonDays <= 0 {
		c.HorizonDays = d.HorizonDays
	}
	if c.ToleranceMinutes < 0 {
		c.ToleranceMinutes = 0
	}
	if c.TopK <= 0 {
		c.TopK = d.TopK
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = d.RetryBaseDelay
	}
	return c
}

// Reconciler checks a requested appointment against provider availability and
// ranks alternatives when the exact slot is gone.
type Reconciler struct {
	provider scheduling.Provider
	cfg      Config
	loc      *time.Location
	logger   *logging.Logger
	sleep    func(time.Duration)
}

// New builds a reconciler. loc defaults to time.Local and logger to the
// package default when nil.
func New(provider scheduling.Provider, cfg Config, loc *time.Location, logger *logging.Logger) *Reconciler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Reconciler{
		provider: provider,
		cfg:      cfg.withDefaults(),
		loc:      loc,
		logger:   logger,
		sleep:    time.Sleep,
	}
}

// Reconcile lists provider availability around the requested start and
// classifies the result. Transient provider failures are retried with
// exponential backoff before giving up.
func (r *Reconciler) Reconcile(ctx context.Context, req appointment.Request) (Result, error) {
	requested, err := req.StartAt(r.loc)
	if err != nil {
		return Result{}, fmt.Errorf("availability: requested slot unparseable: %w", err)
	}
	specialty, ok := appointment.ParseSpecialty(req.Specialty)
	if !ok {
		return Result{}, fmt.Errorf("availability: unknown specialty %q", req.Specialty)
	}

	ctx, span := reconcileTracer.Start(ctx, "availability.reconcile")
	defer span.End()
	span.SetAttributes(
		attribute.String("scheduler.specialty", string(specialty)),
		attribute.String("scheduler.requested_start", requested.Format(time.RFC3339)),
	)

	from := startOfDay(requested, r.loc)
	to := from.AddDate(0, 0, r.cfg.HorizonDays)

	candidates, err := r.listWithRetry(ctx, specialty, from, to)
	if err != nil {
		return Result{}, err
	}

	result := r.classify(requested, candidates)
	span.SetAttributes(
		attribute.String("scheduler.outcome", result.Outcome.String()),
		attribute.Int("scheduler.alternatives", len(result.Alternatives)),
	)
	r.logger.Info("availability reconciled",
		"specialty", specialty,
		"requested_start", requested.Format(time.RFC3339),
		"outcome", result.Outcome.String(),
		"candidates", len(candidates),
	)
	return result, nil
}

func (r *Reconciler) listWithRetry(ctx context.Context, specialty appointment.Specialty, from, to time.Time) ([]appointment.Candidate, error) {
	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := r.cfg.RetryBaseDelay * time.Duration(1<<(attempt-1))
			r.logger.Warn("availability listing retry",
				"attempt", attempt+1,
				"delay", delay.String(),
				"error", lastErr.Error(),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			r.sleep(delay)
		}

		candidates, err := r.provider.ListAvailability(ctx, specialty, from, to)
		if err == nil {
			return candidates, nil
		}
		if !scheduling.IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("availability: provider unavailable after %d attempts: %w", r.cfg.MaxAttempts, lastErr)
}

// classify splits candidates into an exact match or a ranked alternative
// list. Ranking is deterministic: closest to the requested start first,
// same-day slots preferred on ties, provider listing order as the final
// tiebreak.
func (r *Reconciler) classify(requested time.Time, candidates []appointment.Candidate) Result {
	tolerance := time.Duration(r.cfg.ToleranceMinutes) * time.Minute

	type ranked struct {
		appointment.Candidate
		distance time.Duration
		sameDay  bool
		index    int
	}

	scored := make([]ranked, 0, len(candidates))
	for i, c := range candidates {
		d := c.Start.Sub(requested)
		if d < 0 {
			d = -d
		}
		if d <= tolerance {
			return Result{Outcome: ExactMatch, Match: c}
		}
		scored = append(scored, ranked{
			Candidate: c,
			distance:  d,
			sameDay:   sameDay(c.Start.In(r.loc), requested.In(r.loc)),
			index:     i,
		})
	}

	if len(scored) == 0 {
		return Result{Outcome: NoCapacity}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].distance != scored[j].distance {
			return scored[i].distance < scored[j].distance
		}
		if scored[i].sameDay != scored[j].sameDay {
			return scored[i].sameDay
		}
		return scored[i].index < scored[j].index
	})

	top := r.cfg.TopK
	if top > len(scored) {
		top = len(scored)
	}
	alts := make([]appointment.Candidate, 0, top)
	for _, s := range scored[:top] {
		alts = append(alts, s.Candidate)
	}
	return Result{Outcome: Alternatives, Alternatives: alts}
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
