package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-ai-scheduler/internal/appointment"
)

func TestDefinitionsOrder(t *testing.T) {
	defs := Definitions()
	require.Len(t, defs, 8)
	assert.Equal(t, FieldPatientName, defs[0].Field)
	assert.Equal(t, FieldSpecialty, defs[1].Field)
	assert.Equal(t, FieldEmail, defs[6].Field)

	required := 0
	for _, d := range defs {
		if d.Required {
			required++
		}
		assert.NotEmpty(t, d.Prompt, "field %s has no prompt", d.Field)
	}
	assert.Equal(t, 6, required)
}

func TestSetCanonicalizesSpecialty(t *testing.T) {
	var req appointment.Request
	Set(&req, FieldSpecialty, "heart doctor")
	assert.Equal(t, string(appointment.Cardiology), req.Specialty)
}

func TestSetAndGetRoundTrip(t *testing.T) {
	var req appointment.Request
	Set(&req, FieldPatientName, "Jordan Reyes")
	Set(&req, FieldPhone, "555-867-5309 x")
	Set(&req, FieldDuration, "45")

	assert.Equal(t, "Jordan Reyes", Get(req, FieldPatientName))
	assert.Equal(t, "555-867-5309 x", Get(req, FieldPhone))
	assert.Equal(t, 45, req.DurationMinutes)
	assert.Equal(t, "45", Get(req, FieldDuration))
}

func TestSetDurationIgnoresGarbage(t *testing.T) {
	var req appointment.Request
	Set(&req, FieldDuration, "half an hour")
	assert.Zero(t, req.DurationMinutes)
	assert.Empty(t, Get(req, FieldDuration))
}

func TestClear(t *testing.T) {
	var req appointment.Request
	Set(&req, FieldDate, "2026-09-03")
	Clear(&req, FieldDate)
	assert.Empty(t, req.Date)

	Set(&req, FieldDuration, "30")
	Clear(&req, FieldDuration)
	assert.Zero(t, req.DurationMinutes)
}

func TestPromptFor(t *testing.T) {
	assert.NotEmpty(t, PromptFor(FieldEmail))
	assert.Empty(t, PromptFor(Field("bogus")))
}
