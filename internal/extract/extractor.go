package extract

import (
	"context"

	"github.com/wolfman30/clinic-ai-scheduler/internal/appointment"
	"github.com/wolfman30/clinic-ai-scheduler/internal/schema"
)

// FieldUpdate is one extracted field with the extractor's confidence in it.
// Confidence below the dialogue threshold routes the value to an explicit
// confirmation question instead of silently filling the slot.
type FieldUpdate struct {
	Field      schema.Field
	Value      string
	Confidence float64
}

// Extractor pulls appointment fields out of a single patient utterance.
// asked is the field the assistant just prompted for ("" when none), which
// lets short bare replies like "tomorrow" bind to the right slot. current is
// the request as collected so far, so extractors can avoid re-emitting
// already-filled fields.
type Extractor interface {
	Extract(ctx context.Context, utterance string, asked schema.Field, current appointment.Request) ([]FieldUpdate, error)
}
