package calendly

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/clinic-ai-scheduler/internal/appointment"
	"github.com/wolfman30/clinic-ai-scheduler/internal/scheduling"
	"github.com/wolfman30/clinic-ai-scheduler/pkg/logging"
)

// calendlyAPI is the slice of Client the adapter needs. Kept narrow so tests
// can stub it.
type calendlyAPI interface {
	AvailableTimes(ctx context.Context, eventType string, from, to time.Time) ([]Slot, error)
	CreateEvent(ctx context.Context, req CreateEventRequest) (ScheduledEvent, error)
}

// Adapter implements scheduling.Provider on top of the Calendly client. Each
// clinic specialty maps to one Calendly event type.
type Adapter struct {
	api        calendlyAPI
	eventTypes map[appointment.Specialty]string
	logger     *logging.Logger
}

// NewAdapter wires a Calendly client to the scheduling interface. eventTypes
// maps specialties to Calendly event type URIs.
func NewAdapter(api calendlyAPI, eventTypes map[appointment.Specialty]string, logger *logging.Logger) *Adapter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Adapter{
		api:        api,
		eventTypes: eventTypes,
		logger:     logger,
	}
}

var _ scheduling.Provider = (*Adapter)(nil)

func (a *Adapter) Name() string { return "calendly" }

// ListAvailability pages weekly through the window, since Calendly rejects
// availability queries wider than 7 days.
func (a *Adapter) ListAvailability(ctx context.Context, specialty appointment.Specialty, from, to time.Time) ([]appointment.Candidate, error) {
	eventType, err := a.eventTypeFor(specialty)
	if err != nil {
		return nil, err
	}

	var candidates []appointment.Candidate
	for cursor := from; cursor.Before(to); cursor = cursor.AddDate(0, 0, 7) {
		end := cursor.AddDate(0, 0, 7)
		if end.After(to) {
			end = to
		}
		slots, err := a.api.AvailableTimes(ctx, eventType, cursor, end)
		if err != nil {
			return nil, err
		}
		for _, s := range slots {
			c := appointment.Candidate{
				SlotID: fmt.Sprintf("%s/%s", eventType, s.Start.UTC().Format(time.RFC3339)),
				Start:  s.Start,
				End:    s.End,
			}
			if c.End.IsZero() {
				c.End = c.Start.Add(appointment.DefaultDurationMinutes * time.Minute)
			}
			candidates = append(candidates, c)
		}
	}
	return candidates, nil
}

// Reserve books the slot and returns the scheduled event URI as the
// confirmation ID.
func (a *Adapter) Reserve(ctx context.Context, req scheduling.ReserveRequest) (string, error) {
	eventType, err := a.eventTypeFor(req.Specialty)
	if err != nil {
		return "", err
	}

	event, err := a.api.CreateEvent(ctx, CreateEventRequest{
		EventType: eventType,
		StartTime: req.Start.UTC().Format(time.RFC3339),
		EndTime:   req.End.UTC().Format(time.RFC3339),
		Invitee: EventInvitee{
			Name:  req.PatientName,
			Email: req.Email,
			Phone: req.Phone,
		},
		Notes: req.Reason,
	})
	if err != nil {
		return "", err
	}

	a.logger.Info("calendly event scheduled",
		"event_uri", event.URI,
		"specialty", req.Specialty,
		"start", req.Start.Format(time.RFC3339),
	)
	return event.URI, nil
}

func (a *Adapter) eventTypeFor(specialty appointment.Specialty) (string, error) {
	eventType, ok := a.eventTypes[specialty]
	if !ok || eventType == "" {
		return "", fmt.Errorf("calendly: no event type configured for specialty %q: %w", specialty, scheduling.ErrRejected)
	}
	return eventType, nil
}
