package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wolfman30/clinic-ai-scheduler/internal/appointment"
	"github.com/wolfman30/clinic-ai-scheduler/internal/schema"
)

const extractSystemPrompt = `You extract appointment details from a patient message at a medical clinic.
Respond with ONLY a JSON array, no prose. Each element:
{"field": "<name>", "value": "<string>", "confidence": <0.0-1.0>}

Allowed fields: patient_name, specialty, reason, date, time, phone, email, duration.
Specialty must be one of: General Medicine, Cardiology, Orthopedics, Pediatrics, Neurology, Dermatology, Ophthalmology.
Dates as YYYY-MM-DD. Times as H:MM AM/PM. Duration in minutes as a bare number.
Only include fields the message actually mentions. Use low confidence when the message is ambiguous.
Return [] when nothing matches.`

// LLMExtractor asks a language model for structured field updates and falls
// back to the rule extractor when the model fails or returns unusable output.
type LLMExtractor struct {
	client LLMClient
	model  string
	rules  *RuleExtractor
	logger *slog.Logger
}

func NewLLMExtractor(client LLMClient, model string, rules *RuleExtractor, logger *slog.Logger) *LLMExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMExtractor{
		client: client,
		model:  model,
		rules:  rules,
		logger: logger,
	}
}

type llmFieldUpdate struct {
	Field      string  `json:"field"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

func (e *LLMExtractor) Extract(ctx context.Context, utterance string, asked schema.Field, current appointment.Request) ([]FieldUpdate, error) {
	updates, err := e.extractLLM(ctx, utterance, asked)
	if err != nil {
		if e.rules == nil {
			return nil, err
		}
		e.logger.Warn("llm extraction failed, using rule extractor",
			"error", err.Error(),
		)
		return e.rules.Extract(ctx, utterance, asked, current)
	}
	return filterUpdates(updates, asked, current), nil
}

func (e *LLMExtractor) extractLLM(ctx context.Context, utterance string, asked schema.Field) ([]FieldUpdate, error) {
	userPrompt := utterance
	if asked != "" {
		userPrompt = fmt.Sprintf("The assistant just asked the patient for their %s.\nPatient message: %s", asked, utterance)
	}

	resp, err := e.client.Complete(ctx, LLMRequest{
		Model:       e.model,
		System:      []string{extractSystemPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: userPrompt}},
		MaxTokens:   512,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("extract: llm completion: %w", err)
	}

	raw, err := parseUpdateJSON(resp.Text)
	if err != nil {
		return nil, err
	}

	updates := make([]FieldUpdate, 0, len(raw))
	for _, u := range raw {
		f := schema.Field(strings.TrimSpace(u.Field))
		if !knownField(f) {
			continue
		}
		value := strings.TrimSpace(u.Value)
		if value == "" {
			continue
		}
		conf := u.Confidence
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		updates = append(updates, FieldUpdate{Field: f, Value: value, Confidence: conf})
	}
	return updates, nil
}

// parseUpdateJSON tolerates models that wrap the array in a markdown fence.
func parseUpdateJSON(text string) ([]llmFieldUpdate, error) {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}
	if start := strings.Index(cleaned, "["); start > 0 {
		cleaned = cleaned[start:]
	}
	if end := strings.LastIndex(cleaned, "]"); end >= 0 {
		cleaned = cleaned[:end+1]
	}

	var raw []llmFieldUpdate
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("extract: unparseable llm output: %w", err)
	}
	return raw, nil
}

func knownField(f schema.Field) bool {
	for _, d := range schema.Definitions() {
		if d.Field == f {
			return true
		}
	}
	return false
}

// filterUpdates drops updates for fields already collected, unless the field
// was the one just asked about. Duplicate fields keep the first occurrence.
func filterUpdates(updates []FieldUpdate, asked schema.Field, current appointment.Request) []FieldUpdate {
	kept := make([]FieldUpdate, 0, len(updates))
	seen := make(map[schema.Field]bool, len(updates))
	for _, u := range updates {
		if seen[u.Field] {
			continue
		}
		if u.Field != asked && schema.Get(current, u.Field) != "" {
			continue
		}
		seen[u.Field] = true
		kept = append(kept, u)
	}
	return kept
}
