// Package dialog drives the slot-filling conversation: it owns per
// conversation state, decides the next system action each turn, and
// sequences extraction, validation, availability reconciliation and the
// booking commit.
package dialog

import (
	"github.com/wolfman30/clinic-ai-scheduler/internal/appointment"
	"github.com/wolfman30/clinic-ai-scheduler/internal/schema"
)

// Phase is where the conversation currently sits.
type Phase int

const (
	// Collecting gathers required appointment fields turn by turn.
	Collecting Phase = iota
	// Confirming holds a low-confidence extraction until the patient
	// affirms or corrects it.
	Confirming
	// ReconcilingAvailability checks the requested slot against the
	// provider's live calendar.
	ReconcilingAvailability
	// PresentingAlternatives waits for the patient to pick one of the
	// ranked nearby slots.
	PresentingAlternatives
	// Committing reserves the chosen slot with the provider.
	Committing
	// Completed and Aborted are terminal; no further input is accepted.
	Completed
	Aborted
)

func (p Phase) String() string {
	switch p {
	case Collecting:
		return "collecting"
	case Confirming:
		return "confirming"
	case ReconcilingAvailability:
		return "reconciling_availability"
	case PresentingAlternatives:
		return "presenting_alternatives"
	case Committing:
		return "committing"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

// Terminal reports whether the phase accepts no further input.
func (p Phase) Terminal() bool { return p == Completed || p == Aborted }

// State is everything the machine knows about one conversation. One State
// exists per conversation and is mutated only between turns, never during
// an in-flight provider call.
type State struct {
	ConversationID string
	Phase          Phase

	Request   appointment.Request
	Confirmed map[schema.Field]bool

	// Set while Phase == Confirming: the staged value waiting on the
	// patient's yes/no.
	PendingField schema.Field
	PendingValue string

	// Set while Phase == PresentingAlternatives.
	Alternatives []appointment.Candidate

	// Set once a slot has been chosen, so a commit interrupted by a
	// transient outage can be retried on the next turn.
	Selected    appointment.Candidate
	HasSelected bool

	// LastAsked is the field the assistant most recently prompted for,
	// used to bind short bare replies.
	LastAsked schema.Field

	Booking *appointment.BookingRecord
	Turn    int
}

// NewState starts a conversation in Collecting.
func NewState(conversationID string) *State {
	return &State{
		ConversationID: conversationID,
		Phase:          Collecting,
		Confirmed:      make(map[schema.Field]bool),
	}
}
