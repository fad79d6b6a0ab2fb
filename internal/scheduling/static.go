package scheduling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-ai-scheduler/internal/appointment"
)

// StaticProvider is an in-memory Provider for local development and demos.
// It offers half-hour slots across clinic hours and accepts every
// reservation once. Not for production use.
type StaticProvider struct {
	mu       sync.Mutex
	loc      *time.Location
	now      func() time.Time
	reserved map[string]bool
}

var _ Provider = (*StaticProvider)(nil)

func NewStaticProvider(loc *time.Location) *StaticProvider {
	if loc == nil {
		loc = time.Local
	}
	return &StaticProvider{
		loc:      loc,
		now:      time.Now,
		reserved: make(map[string]bool),
	}
}

func (p *StaticProvider) Name() string { return "static" }

// ListAvailability generates open half-hour slots within clinic hours for
// the requested window, skipping anything already reserved or in the past.
func (p *StaticProvider) ListAvailability(ctx context.Context, specialty appointment.Specialty, from, to time.Time) ([]appointment.Candidate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now().In(p.loc)
	var out []appointment.Candidate
	for day := from.In(p.loc); day.Before(to); day = day.AddDate(0, 0, 1) {
		hours, open := appointment.HoursFor(day.Weekday())
		if !open {
			continue
		}
		for m := hours.Open.Minutes(); m+appointment.DefaultDurationMinutes <= hours.Close.Minutes(); m += 30 {
			start := time.Date(day.Year(), day.Month(), day.Day(), m/60, m%60, 0, 0, p.loc)
			if start.Before(now) || start.Before(from) || !start.Before(to) {
				continue
			}
			id := fmt.Sprintf("%s/%s", specialty, start.Format(time.RFC3339))
			if p.reserved[id] {
				continue
			}
			out = append(out, appointment.Candidate{
				SlotID: id,
				Start:  start,
				End:    start.Add(appointment.DefaultDurationMinutes * time.Minute),
			})
		}
	}
	return out, nil
}

// Reserve books a slot once; a second reservation of the same slot fails
// with ErrSlotTaken.
func (p *StaticProvider) Reserve(ctx context.Context, req ReserveRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.reserved[req.SlotID] {
		return "", ErrSlotTaken
	}
	p.reserved[req.SlotID] = true
	return uuid.NewString(), nil
}
