package schema

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/wolfman30/clinic-ai-scheduler/internal/appointment"
)

// Status classifies the validation outcome for one field.
type Status int

const (
	Valid Status = iota
	Missing
	Invalid
)

// Result is the validation outcome for a field. Reason is set for Invalid.
type Result struct {
	Status Status
	Reason string
}

func valid() Result { return Result{Status: Valid} }
func missing() Result { return Result{Status: Missing} }
func invalid(r string) Result { return Result{Status: Invalid, Reason: r} }

const (
	minVisitMinutes = 15
	maxVisitMinutes = 120
)

var (
	emailRE  = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	letterRE = regexp.MustCompile(`\p{L}`)
)

// Validator validates appointment requests against the slot schema. The clock
// is injected so past-date checks stay deterministic in tests.
type Validator struct {
	loc *time.Location
	now func() time.Time
}

// NewValidator creates a validator. loc defaults to time.Local and now to
// time.Now when nil.
func NewValidator(loc *time.Location, now func() time.Time) *Validator {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Validator{loc: loc, now: now}
}

// Location returns the validator's clinic timezone.
func (v *Validator) Location() *time.Location { return v.loc }

// Validate checks every schema field of a request. Pure and deterministic for
// a fixed clock; unparseable input yields Invalid, never an error.
func (v *Validator) Validate(req appointment.Request) map[Field]Result {
	results := map[Field]Result{
		FieldPatientName: v.validateName(req.PatientName),
		FieldSpecialty:   v.validateSpecialty(req.Specialty),
		FieldReason:      valid(), // optional free text
		FieldDate:        v.validateDate(req.Date),
		FieldTime:        v.validateTime(req),
		FieldPhone:       v.validatePhone(req.Phone),
		FieldEmail:       v.validateEmail(req.Email),
		FieldDuration:    v.validateDuration(req.DurationMinutes),
	}
	return results
}

// IsComplete reports whether every required field validates to Valid.
func (v *Validator) IsComplete(req appointment.Request) bool {
	results := v.Validate(req)
	for _, d := range definitions {
		if !d.Required {
			continue
		}
		if results[d.Field].Status != Valid {
			return false
		}
	}
	return true
}

// NextUnfilled returns the first required field that is not Valid, in schema
// order, along with its result. ok is false when the request is complete.
func (v *Validator) NextUnfilled(req appointment.Request) (Field, Result, bool) {
	results := v.Validate(req)
	for _, d := range definitions {
		if !d.Required {
			continue
		}
		if r := results[d.Field]; r.Status != Valid {
			return d.Field, r, true
		}
	}
	return "", Result{}, false
}

func (v *Validator) validateName(name string) Result {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return missing()
	}
	if !letterRE.MatchString(trimmed) {
		return invalid("a name needs at least one letter")
	}
	if len(trimmed) > 120 {
		return invalid("that name is too long")
	}
	return valid()
}

func (v *Validator) validateSpecialty(value string) Result {
	if strings.TrimSpace(value) == "" {
		return missing()
	}
	if _, ok := appointment.ParseSpecialty(value); !ok {
		return invalid(fmt.Sprintf("%q is not a specialty we offer", value))
	}
	return valid()
}

func (v *Validator) validateDate(value string) Result {
	if strings.TrimSpace(value) == "" {
		return missing()
	}
	day, err := appointment.ParseDate(value, v.loc)
	if err != nil {
		return invalid(fmt.Sprintf("I couldn't understand the date %q", value))
	}
	if day.Weekday() == time.Sunday {
		return invalid("the clinic is closed on Sundays")
	}
	today := v.today()
	if day.Before(today) {
		return invalid("that date is in the past")
	}
	return valid()
}

// validateTime checks the time parses and, when a valid date is present,
// cross-checks the window against the clinic hours for that weekday.
func (v *Validator) validateTime(req appointment.Request) Result {
	if strings.TrimSpace(req.Time) == "" {
		return missing()
	}
	clock, err := appointment.ParseClock(req.Time)
	if err != nil {
		return invalid(fmt.Sprintf("I couldn't understand the time %q", req.Time))
	}

	day, err := appointment.ParseDate(req.Date, v.loc)
	if err != nil {
		return valid() // date not usable yet; hours check waits for it
	}
	hours, open := appointment.HoursFor(day.Weekday())
	if !open {
		return invalid("the clinic is closed that day")
	}
	start := clock.Minutes()
	end := start + int(req.Duration().Minutes())
	if start < hours.Open.Minutes() || end > hours.Close.Minutes() {
		return invalid(fmt.Sprintf(
			"the clinic is open %s to %s on %ss",
			hours.Open.Display(), hours.Close.Display(), day.Weekday(),
		))
	}
	return valid()
}

func (v *Validator) validatePhone(value string) Result {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return missing()
	}
	digits := 0
	for _, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == '-' || r == '(' || r == ')' || r == '.' || r == ' ':
			// separators are fine
		default:
			return invalid("that doesn't look like a phone number")
		}
	}
	if digits < 10 || digits > 11 {
		return invalid("please provide a 10-digit phone number")
	}
	return valid()
}

func (v *Validator) validateEmail(value string) Result {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return missing()
	}
	if !emailRE.MatchString(trimmed) {
		return invalid("that doesn't look like an email address")
	}
	return valid()
}

func (v *Validator) validateDuration(minutes int) Result {
	if minutes == 0 {
		return valid() // defaulted
	}
	if minutes < minVisitMinutes || minutes > maxVisitMinutes {
		return invalid(fmt.Sprintf("visits run between %d and %d minutes", minVisitMinutes, maxVisitMinutes))
	}
	return valid()
}

func (v *Validator) today() time.Time {
	now := v.now().In(v.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, v.loc)
}
