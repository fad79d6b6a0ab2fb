// Package schema defines the slot schema for an appointment request: which
// fields exist, which are required, how each is validated, and the prompt used
// to ask the patient for it. Validation is pure and local; it never calls
// external services.
package schema

import (
	"strconv"

	"github.com/wolfman30/clinic-ai-scheduler/internal/appointment"
)

// Field identifies one slot in the appointment request.
type Field string

const (
	FieldPatientName Field = "patient_name"
	FieldSpecialty   Field = "specialty"
	FieldReason      Field = "reason"
	FieldDate        Field = "date"
	FieldTime        Field = "time"
	FieldPhone       Field = "phone"
	FieldEmail       Field = "email"
	FieldDuration    Field = "duration"
)

// Definition is one static schema entry. Read-only at runtime.
type Definition struct {
	Field    Field
	Required bool
	Prompt   string
}

// definitions lists every slot in the order the conversation collects them.
var definitions = []Definition{
	{FieldPatientName, true, "May I have your full name?"},
	{FieldSpecialty, true, "Which specialty do you need? We offer General Medicine, Cardiology, Orthopedics, Pediatrics, Neurology, Dermatology, and Ophthalmology."},
	{FieldReason, false, "What is the reason for your visit?"},
	{FieldDate, true, "What date would you like to come in?"},
	{FieldTime, true, "What time works best for you?"},
	{FieldPhone, true, "What is the best phone number to reach you?"},
	{FieldEmail, true, "What email address should we send your confirmation to?"},
	{FieldDuration, false, "How long should the visit be? (default is 30 minutes)"},
}

// Definitions returns the static slot schema.
func Definitions() []Definition {
	return definitions
}

// PromptFor returns the patient-facing prompt for a field.
func PromptFor(f Field) string {
	for _, d := range definitions {
		if d.Field == f {
			return d.Prompt
		}
	}
	return ""
}

// Get reads the raw value of a field from a request.
func Get(req appointment.Request, f Field) string {
	switch f {
	case FieldPatientName:
		return req.PatientName
	case FieldSpecialty:
		return req.Specialty
	case FieldReason:
		return req.Reason
	case FieldDate:
		return req.Date
	case FieldTime:
		return req.Time
	case FieldPhone:
		return req.Phone
	case FieldEmail:
		return req.Email
	case FieldDuration:
		if req.DurationMinutes == 0 {
			return ""
		}
		return strconv.Itoa(req.DurationMinutes)
	}
	return ""
}

// Set writes a field value into a request. Specialty values are canonicalized
// against the closed specialty set when they parse.
func Set(req *appointment.Request, f Field, value string) {
	switch f {
	case FieldPatientName:
		req.PatientName = value
	case FieldSpecialty:
		if s, ok := appointment.ParseSpecialty(value); ok {
			req.Specialty = string(s)
		} else {
			req.Specialty = value
		}
	case FieldReason:
		req.Reason = value
	case FieldDate:
		req.Date = value
	case FieldTime:
		req.Time = value
	case FieldPhone:
		req.Phone = value
	case FieldEmail:
		req.Email = value
	case FieldDuration:
		if n, err := strconv.Atoi(value); err == nil {
			req.DurationMinutes = n
		}
	}
}

// Clear resets a field to its unset state. Used when the patient corrects a
// value during confirmation.
func Clear(req *appointment.Request, f Field) {
	if f == FieldDuration {
		req.DurationMinutes = 0
		return
	}
	Set(req, f, "")
}

