package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-ai-scheduler/internal/appointment"
	"github.com/wolfman30/clinic-ai-scheduler/internal/schema"
)

type stubLLMClient struct {
	resp LLMResponse
	err  error
	last LLMRequest
}

func (s *stubLLMClient) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	s.last = req
	return s.resp, s.err
}

func TestLLMExtractorParsesUpdates(t *testing.T) {
	client := &stubLLMClient{resp: LLMResponse{
		Text: `[{"field":"patient_name","value":"Jordan Reyes","confidence":0.95},
		       {"field":"date","value":"2026-09-02","confidence":0.9}]`,
	}}
	e := NewLLMExtractor(client, "gemini-2.5-flash", nil, nil)

	updates, err := e.Extract(context.Background(), "I'm Jordan Reyes, tomorrow please", "", appointment.Request{})
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, schema.FieldPatientName, updates[0].Field)
	assert.Equal(t, "Jordan Reyes", updates[0].Value)
	assert.InDelta(t, 0.95, updates[0].Confidence, 0.001)

	require.NotEmpty(t, client.last.System)
	assert.Zero(t, client.last.Temperature)
}

func TestLLMExtractorToleratesMarkdownFence(t *testing.T) {
	client := &stubLLMClient{resp: LLMResponse{
		Text: "```json\n[{\"field\":\"time\",\"value\":\"3:00 PM\",\"confidence\":0.8}]\n```",
	}}
	e := NewLLMExtractor(client, "m", nil, nil)

	updates, err := e.Extract(context.Background(), "3pm", "", appointment.Request{})
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, "3:00 PM", updates[0].Value)
}

func TestLLMExtractorDropsUnknownFieldsAndClampsConfidence(t *testing.T) {
	client := &stubLLMClient{resp: LLMResponse{
		Text: `[{"field":"favorite_color","value":"blue","confidence":0.9},
		       {"field":"phone","value":"555-867-5309","confidence":1.7}]`,
	}}
	e := NewLLMExtractor(client, "m", nil, nil)

	updates, err := e.Extract(context.Background(), "x", "", appointment.Request{})
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, schema.FieldPhone, updates[0].Field)
	assert.InDelta(t, 1.0, updates[0].Confidence, 0.001)
}

func TestLLMExtractorFallsBackToRules(t *testing.T) {
	client := &stubLLMClient{err: errors.New("throttled")}
	rules := NewRuleExtractor(time.UTC, func() time.Time { return ruleNow })
	e := NewLLMExtractor(client, "m", rules, nil)

	updates, err := e.Extract(context.Background(), "my name is Jordan Reyes", "", appointment.Request{})
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, "Jordan Reyes", updates[0].Value)
}

func TestLLMExtractorErrorWithoutFallback(t *testing.T) {
	client := &stubLLMClient{err: errors.New("throttled")}
	e := NewLLMExtractor(client, "m", nil, nil)

	_, err := e.Extract(context.Background(), "hello", "", appointment.Request{})
	assert.Error(t, err)
}

func TestLLMExtractorFiltersCollectedFields(t *testing.T) {
	client := &stubLLMClient{resp: LLMResponse{
		Text: `[{"field":"patient_name","value":"Maria Lopez","confidence":0.9},
		       {"field":"email","value":"maria@example.com","confidence":0.9}]`,
	}}
	e := NewLLMExtractor(client, "m", nil, nil)

	current := appointment.Request{PatientName: "Jordan Reyes"}
	updates, err := e.Extract(context.Background(), "x", "", current)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, schema.FieldEmail, updates[0].Field)
}

func TestParseUpdateJSONWithProsePreamble(t *testing.T) {
	raw, err := parseUpdateJSON(`Here are the fields: [{"field":"date","value":"2026-09-02","confidence":0.9}]`)
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, "date", raw[0].Field)
}
