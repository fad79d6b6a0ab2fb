package calendly

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-ai-scheduler/internal/appointment"
	"github.com/wolfman30/clinic-ai-scheduler/internal/scheduling"
)

type stubAPI struct {
	slots    []Slot
	event    ScheduledEvent
	err      error
	windows  [][2]time.Time
	lastReq  CreateEventRequest
	lastType string
}

func (s *stubAPI) AvailableTimes(_ context.Context, eventType string, from, to time.Time) ([]Slot, error) {
	s.lastType = eventType
	s.windows = append(s.windows, [2]time.Time{from, to})
	return s.slots, s.err
}

func (s *stubAPI) CreateEvent(_ context.Context, req CreateEventRequest) (ScheduledEvent, error) {
	s.lastReq = req
	return s.event, s.err
}

func testEventTypes() map[appointment.Specialty]string {
	return map[appointment.Specialty]string{
		appointment.Cardiology: "et_cardio",
	}
}

func TestAdapterListAvailabilityPagesWeekly(t *testing.T) {
	start := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)
	api := &stubAPI{slots: []Slot{{Start: start}}}
	a := NewAdapter(api, testEventTypes(), nil)

	from := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 14)
	candidates, err := a.ListAvailability(context.Background(), appointment.Cardiology, from, to)
	require.NoError(t, err)

	// 14 days means two weekly pages, each returning the stub slot.
	require.Len(t, api.windows, 2)
	assert.Equal(t, from, api.windows[0][0])
	assert.Equal(t, from.AddDate(0, 0, 7), api.windows[0][1])
	assert.Equal(t, to, api.windows[1][1])
	assert.Equal(t, "et_cardio", api.lastType)

	require.Len(t, candidates, 2)
	assert.Equal(t, start, candidates[0].Start)
	// Missing end times default to the standard visit length.
	assert.Equal(t, start.Add(30*time.Minute), candidates[0].End)
	assert.NotEmpty(t, candidates[0].SlotID)
}

func TestAdapterReserve(t *testing.T) {
	api := &stubAPI{event: ScheduledEvent{URI: "https://api.calendly.com/scheduled_events/ev_9", Status: "active"}}
	a := NewAdapter(api, testEventTypes(), nil)

	start := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)
	confirmation, err := a.Reserve(context.Background(), scheduling.ReserveRequest{
		Start:       start,
		End:         start.Add(30 * time.Minute),
		PatientName: "Jordan Reyes",
		Email:       "jordan@example.com",
		Phone:       "555-867-5309",
		Specialty:   appointment.Cardiology,
		Reason:      "follow-up",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://api.calendly.com/scheduled_events/ev_9", confirmation)
	assert.Equal(t, "et_cardio", api.lastReq.EventType)
	assert.Equal(t, "2026-09-02T10:00:00Z", api.lastReq.StartTime)
	assert.Equal(t, "Jordan Reyes", api.lastReq.Invitee.Name)
	assert.Equal(t, "follow-up", api.lastReq.Notes)
}

func TestAdapterUnmappedSpecialty(t *testing.T) {
	a := NewAdapter(&stubAPI{}, testEventTypes(), nil)

	_, err := a.ListAvailability(context.Background(), appointment.Neurology, time.Now(), time.Now().AddDate(0, 0, 7))
	assert.ErrorIs(t, err, scheduling.ErrRejected)

	_, err = a.Reserve(context.Background(), scheduling.ReserveRequest{Specialty: appointment.Neurology})
	assert.ErrorIs(t, err, scheduling.ErrRejected)
}
