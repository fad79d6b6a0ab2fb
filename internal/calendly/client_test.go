package calendly

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-ai-scheduler/internal/scheduling"
)

func TestAvailableTimes(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/event_type_available_times", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "et_cardio", r.URL.Query().Get("event_type"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"collection": []map[string]any{
				{"status": "available", "start_time": "2026-09-02T10:00:00Z", "invitees_remaining": 1},
				{"status": "available", "start_time": "2026-09-02T11:00:00Z", "invitees_remaining": 0},
				{"status": "unavailable", "start_time": "2026-09-02T12:00:00Z", "invitees_remaining": 1},
				{"status": "available", "start_time": "not-a-time", "invitees_remaining": 1},
			},
		})
	}))
	defer ts.Close()

	c := NewClient("tok", nil).WithBaseURL(ts.URL)
	slots, err := c.AvailableTimes(context.Background(), "et_cardio",
		time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 9, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC), slots[0].Start)
}

func TestCreateEvent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/scheduled_events", r.URL.Path)

		var req CreateEventRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "et_cardio", req.EventType)
		assert.Equal(t, "jordan@example.com", req.Invitee.Email)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"resource": map[string]any{
				"uri":        "https://api.calendly.com/scheduled_events/ev_123",
				"status":     "active",
				"start_time": req.StartTime,
			},
		})
	}))
	defer ts.Close()

	c := NewClient("tok", nil).WithBaseURL(ts.URL)
	event, err := c.CreateEvent(context.Background(), CreateEventRequest{
		EventType: "et_cardio",
		StartTime: "2026-09-02T10:00:00Z",
		EndTime:   "2026-09-02T10:30:00Z",
		Invitee:   EventInvitee{Name: "Jordan Reyes", Email: "jordan@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://api.calendly.com/scheduled_events/ev_123", event.URI)
	assert.Equal(t, "active", event.Status)
}

func TestStatusErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		check     func(t *testing.T, err error)
	}{
		{"conflict is slot taken", http.StatusConflict, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, scheduling.ErrSlotTaken)
		}},
		{"gone is slot taken", http.StatusGone, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, scheduling.ErrSlotTaken)
		}},
		{"server error is transient", http.StatusInternalServerError, func(t *testing.T, err error) {
			assert.True(t, scheduling.IsTransient(err))
		}},
		{"throttle is transient", http.StatusTooManyRequests, func(t *testing.T, err error) {
			assert.True(t, scheduling.IsTransient(err))
		}},
		{"forbidden is rejected", http.StatusForbidden, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, scheduling.ErrRejected)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(map[string]any{"title": "err", "message": "boom"})
			}))
			defer ts.Close()

			c := NewClient("tok", nil).WithBaseURL(ts.URL)
			_, err := c.CreateEvent(context.Background(), CreateEventRequest{
				EventType: "et",
				Invitee:   EventInvitee{Email: "a@b.co"},
			})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestMissingTokenRejected(t *testing.T) {
	c := NewClient("", nil)
	_, err := c.AvailableTimes(context.Background(), "et", time.Now(), time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, scheduling.ErrRejected)
}
