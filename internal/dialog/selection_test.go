package dialog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/clinic-ai-scheduler/internal/appointment"
)

func presentedSlots() []appointment.Candidate {
	return []appointment.Candidate{
		slotAt(time.Date(2026, time.September, 8, 15, 0, 0, 0, time.UTC)),
		slotAt(time.Date(2026, time.September, 8, 16, 30, 0, 0, time.UTC)),
		slotAt(time.Date(2026, time.September, 9, 14, 0, 0, 0, time.UTC)),
	}
}

func TestParseSelection(t *testing.T) {
	slots := presentedSlots()
	tests := []struct {
		name     string
		text     string
		wantKind SelectionKind
		wantSlot int // index into slots, -1 when unused
	}{
		{"bare number", "2", SelectionPicked, 1},
		{"option prefix", "option 1", SelectionPicked, 0},
		{"hash prefix", "#3", SelectionPicked, 2},
		{"ordinal word", "the first one", SelectionPicked, 0},
		{"ordinal suffix", "2nd", SelectionPicked, 1},
		{"time with meridiem", "the 4:30 pm works", SelectionPicked, 1},
		{"time pm shorthand", "3pm", SelectionPicked, 0},
		{"number in sentence", "let's do 3", SelectionPicked, 2},
		{"decline phrase", "none of these work for me", SelectionDeclined, -1},
		{"plain no", "no", SelectionDeclined, -1},
		{"different day", "can we try a different day?", SelectionConstraintChange, -1},
		{"how about", "how about Friday instead", SelectionConstraintChange, -1},
		{"unoffered time", "9am", SelectionConstraintChange, -1},
		{"out of range number", "7", SelectionNone, -1},
		{"unrelated text", "hmm let me think", SelectionNone, -1},
		{"empty", "", SelectionNone, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := ParseSelection(tt.text, slots, time.UTC)
			assert.Equal(t, tt.wantKind, sel.Kind)
			if tt.wantSlot >= 0 {
				assert.Equal(t, slots[tt.wantSlot].SlotID, sel.Slot.SlotID)
			}
		})
	}
}

func TestParseSelectionNoSlots(t *testing.T) {
	sel := ParseSelection("1", nil, time.UTC)
	assert.Equal(t, SelectionNone, sel.Kind)
}
