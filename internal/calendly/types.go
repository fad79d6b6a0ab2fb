package calendly

import "time"

// availableTimesResponse is the envelope for GET /event_type_available_times.
type availableTimesResponse struct {
	Collection []AvailableTime `json:"collection"`
}

// AvailableTime is one bookable start offered by Calendly.
type AvailableTime struct {
	Status            string `json:"status"`
	StartTime         string `json:"start_time"`
	SchedulingURL     string `json:"scheduling_url"`
	InviteesRemaining int    `json:"invitees_remaining"`
}

// CreateEventRequest is the payload for POST /scheduled_events.
type CreateEventRequest struct {
	EventType string       `json:"event_type"`
	StartTime string       `json:"start_time"`
	EndTime   string       `json:"end_time"`
	Invitee   EventInvitee `json:"invitee"`
	Notes     string       `json:"notes,omitempty"`
}

// EventInvitee identifies the patient on a scheduled event.
type EventInvitee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type createEventResponse struct {
	Resource ScheduledEvent `json:"resource"`
}

// ScheduledEvent is a committed Calendly event.
type ScheduledEvent struct {
	URI       string `json:"uri"`
	Status    string `json:"status"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type apiError struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Slot is a normalized availability window.
type Slot struct {
	Start time.Time
	End   time.Time
}
