// Package appointment holds the core data model for appointment requests and
// committed bookings, plus the local date/time parsing shared by the slot
// validator and the dialogue engine.
package appointment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Specialty is a clinic consultation type. The set is closed; anything the
// extractor produces is mapped through ParseSpecialty before it is trusted.
type Specialty string

const (
	GeneralMedicine Specialty = "General Medicine"
	Cardiology      Specialty = "Cardiology"
	Orthopedics     Specialty = "Orthopedics"
	Pediatrics      Specialty = "Pediatrics"
	Neurology       Specialty = "Neurology"
	Dermatology     Specialty = "Dermatology"
	Ophthalmology   Specialty = "Ophthalmology"
)

// Specialties lists every valid specialty in presentation order.
var Specialties = []Specialty{
	GeneralMedicine,
	Cardiology,
	Orthopedics,
	Pediatrics,
	Neurology,
	Dermatology,
	Ophthalmology,
}

// specialtyAliases maps common patient phrasings to specialties.
var specialtyAliases = map[string]Specialty{
	"general":        GeneralMedicine,
	"general doctor": GeneralMedicine,
	"gp":             GeneralMedicine,
	"heart":          Cardiology,
	"cardiologist":   Cardiology,
	"bones":          Orthopedics,
	"orthopedist":    Orthopedics,
	"orthopedic":     Orthopedics,
	"kids":           Pediatrics,
	"children":       Pediatrics,
	"pediatrician":   Pediatrics,
	"neurologist":    Neurology,
	"skin":           Dermatology,
	"dermatologist":  Dermatology,
	"eyes":           Ophthalmology,
	"eye doctor":     Ophthalmology,
	"ophthalmologist": Ophthalmology,
}

// ParseSpecialty maps free text onto a member of the closed specialty set.
// Returns false when the text matches nothing.
func ParseSpecialty(text string) (Specialty, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return "", false
	}
	for _, s := range Specialties {
		if normalized == strings.ToLower(string(s)) {
			return s, true
		}
	}
	if s, ok := specialtyAliases[normalized]; ok {
		return s, true
	}
	// Tolerate phrasings like "a cardiology appointment".
	for _, s := range Specialties {
		if strings.Contains(normalized, strings.ToLower(string(s))) {
			return s, true
		}
	}
	for alias, s := range specialtyAliases {
		if strings.Contains(normalized, alias) {
			return s, true
		}
	}
	return "", false
}

// ClockTime is a time of day with minute resolution.
type ClockTime struct {
	Hour   int
	Minute int
}

// Minutes returns the minutes elapsed since midnight.
func (c ClockTime) Minutes() int { return c.Hour*60 + c.Minute }

// String renders the 24-hour HH:MM form.
func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// Display renders the 12-hour form shown to patients, e.g. "2:30 PM".
func (c ClockTime) Display() string {
	h := c.Hour % 12
	if h == 0 {
		h = 12
	}
	suffix := "AM"
	if c.Hour >= 12 {
		suffix = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", h, c.Minute, suffix)
}

// OperatingHours is the open/close window for one weekday.
type OperatingHours struct {
	Open  ClockTime
	Close ClockTime
}

// clinicHours is the clinic schedule: weekdays 9-5, Saturday 9-12, closed Sunday.
var clinicHours = map[time.Weekday]OperatingHours{
	time.Monday:    {Open: ClockTime{9, 0}, Close: ClockTime{17, 0}},
	time.Tuesday:   {Open: ClockTime{9, 0}, Close: ClockTime{17, 0}},
	time.Wednesday: {Open: ClockTime{9, 0}, Close: ClockTime{17, 0}},
	time.Thursday:  {Open: ClockTime{9, 0}, Close: ClockTime{17, 0}},
	time.Friday:    {Open: ClockTime{9, 0}, Close: ClockTime{17, 0}},
	time.Saturday:  {Open: ClockTime{9, 0}, Close: ClockTime{12, 0}},
}

// HoursFor returns the operating hours for a weekday. ok is false when the
// clinic is closed that day.
func HoursFor(day time.Weekday) (OperatingHours, bool) {
	h, ok := clinicHours[day]
	return h, ok
}

// dateLayouts are the accepted absolute date formats, most specific first.
var dateLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"01/02/2006",
	"1/2/2006",
	"2 January 2006",
}

// ParseDate parses an absolute calendar date in any accepted human format.
// The result is normalized to midnight in the supplied location.
func ParseDate(text string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	trimmed := strings.TrimSpace(text)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, loc); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("appointment: unrecognized date %q", text)
}

// clockLayouts are the accepted time-of-day formats.
var clockLayouts = []string{
	"15:04",
	"3:04 PM",
	"3 PM",
	"3:04PM",
	"3PM",
	"15",
}

// ParseClock parses a time of day in any accepted human format.
func ParseClock(text string) (ClockTime, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(text))
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return ClockTime{}, fmt.Errorf("appointment: unrecognized time %q", text)
}

// Request is the appointment request aggregate, filled incrementally across
// conversation turns. Field values are kept as collected; validation and
// normalization happen in the schema package.
type Request struct {
	PatientName     string
	Phone           string
	Email           string
	Specialty       string
	Date            string // normalized or human-format date
	Time            string // requested start time of day
	DurationMinutes int    // 0 means the default visit length
	Reason          string
}

// DefaultDurationMinutes is the visit length assumed when the patient doesn't
// specify one.
const DefaultDurationMinutes = 30

// Duration returns the requested visit length.
func (r Request) Duration() time.Duration {
	if r.DurationMinutes <= 0 {
		return DefaultDurationMinutes * time.Minute
	}
	return time.Duration(r.DurationMinutes) * time.Minute
}

// StartAt resolves the requested date and time into an absolute timestamp.
// Only meaningful once the date and time fields validate.
func (r Request) StartAt(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	day, err := ParseDate(r.Date, loc)
	if err != nil {
		return time.Time{}, err
	}
	clock, err := ParseClock(r.Time)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour, clock.Minute, 0, 0, loc), nil
}

// Candidate is one open slot returned by the scheduling provider. Ephemeral:
// never persisted unless selected for booking.
type Candidate struct {
	SlotID string
	Start  time.Time
	End    time.Time
}

// BookingRecord is the durable record of a committed booking. Created exactly
// once per conversation and immutable afterward; the embedded Request is a
// snapshot frozen at commit time.
type BookingRecord struct {
	ID             string
	ConversationID string
	Request        Request
	Slot           Candidate
	ConfirmationID string
	CommittedAt    time.Time
}

// NewBookingRecord freezes a request/candidate pair into a booking record.
func NewBookingRecord(conversationID string, req Request, slot Candidate, confirmationID string, at time.Time) BookingRecord {
	return BookingRecord{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Request:        req,
		Slot:           slot,
		ConfirmationID: confirmationID,
		CommittedAt:    at.UTC(),
	}
}
