package extract

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-ai-scheduler/internal/appointment"
	"github.com/wolfman30/clinic-ai-scheduler/internal/schema"
)

// Tuesday.
var ruleNow = time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)

func newRuleExtractor() *RuleExtractor {
	return NewRuleExtractor(time.UTC, func() time.Time { return ruleNow })
}

func updateFor(t *testing.T, updates []FieldUpdate, f schema.Field) FieldUpdate {
	t.Helper()
	for _, u := range updates {
		if u.Field == f {
			return u
		}
	}
	t.Fatalf("no update for field %s in %v", f, updates)
	return FieldUpdate{}
}

func TestExtractContactDetails(t *testing.T) {
	e := newRuleExtractor()
	updates, err := e.Extract(context.Background(), "You can reach me at 555-867-5309 or jordan@example.com", "", appointment.Request{})
	require.NoError(t, err)

	phone := updateFor(t, updates, schema.FieldPhone)
	assert.Equal(t, "555-867-5309", phone.Value)
	assert.InDelta(t, confidenceExplicit, phone.Confidence, 0.001)

	email := updateFor(t, updates, schema.FieldEmail)
	assert.Equal(t, "jordan@example.com", email.Value)
}

func TestExtractNameWithMarker(t *testing.T) {
	e := newRuleExtractor()
	tests := []struct {
		name      string
		utterance string
		want      string
	}{
		{"my name is", "Hi, my name is Jordan Reyes", "Jordan Reyes"},
		{"i'm", "I'm Maria Lopez and I need an appointment", "Maria Lopez"},
		{"this is", "this is Sam O'Neil", "Sam O'Neil"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updates, err := e.Extract(context.Background(), tt.utterance, "", appointment.Request{})
			require.NoError(t, err)
			u := updateFor(t, updates, schema.FieldPatientName)
			assert.Equal(t, tt.want, u.Value)
			assert.InDelta(t, confidenceExplicit, u.Confidence, 0.001)
		})
	}
}

func TestExtractSpecialtyFromAlias(t *testing.T) {
	e := newRuleExtractor()
	updates, err := e.Extract(context.Background(), "I need to see a heart doctor", "", appointment.Request{})
	require.NoError(t, err)

	u := updateFor(t, updates, schema.FieldSpecialty)
	assert.Equal(t, string(appointment.Cardiology), u.Value)
}

func TestExtractRelativeDates(t *testing.T) {
	e := newRuleExtractor()
	tests := []struct {
		name      string
		utterance string
		want      string
	}{
		{"tomorrow", "can I come in tomorrow", "2026-09-02"},
		{"today", "today if possible", "2026-09-01"},
		{"day after tomorrow", "the day after tomorrow works", "2026-09-03"},
		{"weekday", "how about on Friday", "2026-09-04"},
		{"next weekday", "next Friday please", "2026-09-11"},
		{"same weekday rolls a week", "on Tuesday", "2026-09-08"},
		{"iso passthrough", "book me for 2026-09-10", "2026-09-10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updates, err := e.Extract(context.Background(), tt.utterance, "", appointment.Request{})
			require.NoError(t, err)
			u := updateFor(t, updates, schema.FieldDate)
			assert.Equal(t, tt.want, u.Value)
		})
	}
}

func TestExtractMonthDayWithoutYearRollsForward(t *testing.T) {
	e := newRuleExtractor()
	updates, err := e.Extract(context.Background(), "what about March 3rd?", "", appointment.Request{})
	require.NoError(t, err)

	// March has already passed relative to the fixed clock.
	u := updateFor(t, updates, schema.FieldDate)
	assert.Equal(t, "March 3, 2027", u.Value)
}

func TestExtractTimes(t *testing.T) {
	e := newRuleExtractor()
	tests := []struct {
		name      string
		utterance string
		want      string
		conf      float64
	}{
		{"meridiem", "around 3pm works", "3:00 PM", confidenceExplicit},
		{"meridiem with minutes", "at 10:30 am", "10:30 AM", confidenceExplicit},
		{"noon", "noon would be great", "12:00 PM", confidenceExplicit},
		{"24 hour", "14:30 is fine", "14:30", confidenceInferred},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updates, err := e.Extract(context.Background(), tt.utterance, "", appointment.Request{})
			require.NoError(t, err)
			u := updateFor(t, updates, schema.FieldTime)
			assert.Equal(t, tt.want, u.Value)
			assert.InDelta(t, tt.conf, u.Confidence, 0.001)
		})
	}
}

func TestExtractBareReplyBindsToAskedField(t *testing.T) {
	e := newRuleExtractor()

	updates, err := e.Extract(context.Background(), "Jordan Reyes", schema.FieldPatientName, appointment.Request{})
	require.NoError(t, err)
	u := updateFor(t, updates, schema.FieldPatientName)
	assert.Equal(t, "Jordan Reyes", u.Value)
	assert.InDelta(t, confidenceReply, u.Confidence, 0.001)

	updates, err = e.Extract(context.Background(), "Dermatology", schema.FieldSpecialty, appointment.Request{})
	require.NoError(t, err)
	assert.Equal(t, string(appointment.Dermatology), updateFor(t, updates, schema.FieldSpecialty).Value)

	updates, err = e.Extract(context.Background(), "annual checkup", schema.FieldReason, appointment.Request{})
	require.NoError(t, err)
	assert.Equal(t, "annual checkup", updateFor(t, updates, schema.FieldReason).Value)
}

func TestExtractImplausibleBareReplyDropped(t *testing.T) {
	e := newRuleExtractor()
	updates, err := e.Extract(context.Background(), "hmm", schema.FieldDate, appointment.Request{})
	require.NoError(t, err)
	assert.Empty(t, updates)
}

func TestExtractSkipsAlreadyCollectedFields(t *testing.T) {
	e := newRuleExtractor()
	current := appointment.Request{PatientName: "Jordan Reyes"}

	updates, err := e.Extract(context.Background(), "my name is Maria Lopez, tomorrow at 3pm", "", current)
	require.NoError(t, err)

	for _, u := range updates {
		assert.NotEqual(t, schema.FieldPatientName, u.Field)
	}
	assert.Equal(t, "2026-09-02", updateFor(t, updates, schema.FieldDate).Value)
	assert.Equal(t, "3:00 PM", updateFor(t, updates, schema.FieldTime).Value)
}

func TestExtractDuration(t *testing.T) {
	e := newRuleExtractor()
	updates, err := e.Extract(context.Background(), "I'd like 45 minutes with the doctor", "", appointment.Request{})
	require.NoError(t, err)
	assert.Equal(t, "45", updateFor(t, updates, schema.FieldDuration).Value)

	updates, err = e.Extract(context.Background(), "make it an hour", "", appointment.Request{})
	require.NoError(t, err)
	assert.Equal(t, "60", updateFor(t, updates, schema.FieldDuration).Value)
}

func TestExtractEmptyUtterance(t *testing.T) {
	e := newRuleExtractor()
	updates, err := e.Extract(context.Background(), "   ", "", appointment.Request{})
	require.NoError(t, err)
	assert.Empty(t, updates)
}
