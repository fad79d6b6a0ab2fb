package dialog

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/wolfman30/clinic-ai-scheduler/internal/appointment"
	"github.com/wolfman30/clinic-ai-scheduler/internal/availability"
	"github.com/wolfman30/clinic-ai-scheduler/internal/booking"
	"github.com/wolfman30/clinic-ai-scheduler/internal/extract"
	"github.com/wolfman30/clinic-ai-scheduler/internal/schema"
	"github.com/wolfman30/clinic-ai-scheduler/internal/scheduling"
)

// DefaultConfidenceThreshold is the extraction confidence below which a
// value is routed to an explicit confirmation question.
const DefaultConfidenceThreshold = 0.6

// Event is one unit of input the machine reacts to: a patient turn already
// interpreted by the engine, or the result of an internal step.
type Event interface{ isEvent() }

// FieldsExtracted carries the extractor's proposed updates for a patient
// utterance during Collecting.
type FieldsExtracted struct {
	Updates []extract.FieldUpdate
}

// ConfirmationReply answers a pending confirmation question. When the
// patient corrected instead of affirming, Updates holds the extraction of
// the correction text.
type ConfirmationReply struct {
	Affirmed bool
	Updates  []extract.FieldUpdate
}

// AlternativePicked selects one of the presented slots.
type AlternativePicked struct {
	Slot appointment.Candidate
}

// AlternativesDeclined rejects every presented slot.
type AlternativesDeclined struct{}

// ConstraintChange reopens collection from PresentingAlternatives with a
// changed constraint (e.g. a different day). Previously confirmed fields
// are preserved.
type ConstraintChange struct {
	Updates []extract.FieldUpdate
}

// ReconcileOutcome reports an availability check.
type ReconcileOutcome struct {
	Result availability.Result
	Err    error
}

// CommitOutcome reports a booking commit.
type CommitOutcome struct {
	Result booking.Result
	Err    error
}

// UserAborted is an explicit cancellation by the patient.
type UserAborted struct{}

func (FieldsExtracted) isEvent()      {}
func (ConfirmationReply) isEvent()    {}
func (AlternativePicked) isEvent()    {}
func (AlternativesDeclined) isEvent() {}
func (ConstraintChange) isEvent()     {}
func (ReconcileOutcome) isEvent()     {}
func (CommitOutcome) isEvent()        {}
func (UserAborted) isEvent()          {}

// Effect is a side effect the engine must perform after a transition. The
// machine itself never touches the network.
type Effect interface{ isEffect() }

// AskField prompts the patient for a missing or invalid field.
type AskField struct {
	Field  schema.Field
	Prompt string
}

// AskConfirmation asks the patient to confirm a low-confidence value.
type AskConfirmation struct {
	Field  schema.Field
	Value  string
	Prompt string
}

// RunReconcile triggers an availability check for the current request.
type RunReconcile struct{}

// PresentAlternatives shows ranked nearby slots to the patient.
type PresentAlternatives struct {
	Slots []appointment.Candidate
}

// RunCommit reserves the chosen slot with the provider.
type RunCommit struct {
	Slot appointment.Candidate
}

// Say sends a plain message to the patient.
type Say struct {
	Text string
}

// End terminates the conversation with outcome "completed" or "aborted".
type End struct {
	Outcome string
}

func (AskField) isEffect()            {}
func (AskConfirmation) isEffect()     {}
func (RunReconcile) isEffect()        {}
func (PresentAlternatives) isEffect() {}
func (RunCommit) isEffect()           {}
func (Say) isEffect()                 {}
func (End) isEffect()                 {}

// Machine computes conversation transitions. Apply is pure aside from the
// returned state copy; every side effect comes back as an Effect for the
// engine to run.
type Machine struct {
	validator   *schema.Validator
	threshold   float64
	horizonDays int
}

// NewMachine builds a Machine. threshold <= 0 selects
// DefaultConfidenceThreshold; horizonDays <= 0 selects the reconciler
// default and only affects the no-capacity message.
func NewMachine(validator *schema.Validator, threshold float64, horizonDays int) *Machine {
	if validator == nil {
		validator = schema.NewValidator(nil, nil)
	}
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	if horizonDays <= 0 {
		horizonDays = availability.DefaultConfig().HorizonDays
	}
	return &Machine{validator: validator, threshold: threshold, horizonDays: horizonDays}
}

// Apply advances the conversation by one event. The input state is not
// mutated; terminal states ignore every event.
func (m *Machine) Apply(st State, ev Event) (State, []Effect) {
	if st.Phase.Terminal() {
		return st, nil
	}
	st.Confirmed = maps.Clone(st.Confirmed)
	if st.Confirmed == nil {
		st.Confirmed = make(map[schema.Field]bool)
	}

	switch e := ev.(type) {
	case UserAborted:
		st.Phase = Aborted
		return st, []Effect{
			Say{Text: "No problem, I've cancelled this request. Feel free to reach out whenever you're ready."},
			End{Outcome: "aborted"},
		}

	case FieldsExtracted:
		switch st.Phase {
		case ReconcilingAvailability:
			return st, []Effect{RunReconcile{}}
		case Committing:
			if st.HasSelected {
				return st, []Effect{RunCommit{Slot: st.Selected}}
			}
			st.Phase = ReconcilingAvailability
			return st, []Effect{RunReconcile{}}
		}
		effects := m.ingest(&st, e.Updates)
		return st, append(effects, m.route(&st)...)

	case ConfirmationReply:
		if st.Phase != Confirming {
			return st, nil
		}
		field := st.PendingField
		if e.Affirmed {
			schema.Set(&st.Request, field, st.PendingValue)
			st.Confirmed[field] = true
		} else {
			schema.Clear(&st.Request, field)
			delete(st.Confirmed, field)
		}
		st.PendingField = ""
		st.PendingValue = ""
		st.Phase = Collecting
		var effects []Effect
		if !e.Affirmed {
			effects = m.ingest(&st, e.Updates)
		}
		return st, append(effects, m.route(&st)...)

	case AlternativePicked:
		if st.Phase != PresentingAlternatives {
			return st, nil
		}
		m.adoptSlot(&st, e.Slot)
		st.Alternatives = nil
		st.Phase = Committing
		return st, []Effect{RunCommit{Slot: e.Slot}}

	case AlternativesDeclined:
		if st.Phase != PresentingAlternatives {
			return st, nil
		}
		st.Phase = Aborted
		return st, []Effect{
			Say{Text: "Understood. I won't book anything for now. Please call us back if another time would work."},
			End{Outcome: "aborted"},
		}

	case ConstraintChange:
		if st.Phase != PresentingAlternatives {
			return st, nil
		}
		st.Alternatives = nil
		st.Phase = Collecting
		effects := m.ingest(&st, e.Updates)
		return st, append(effects, m.route(&st)...)

	case ReconcileOutcome:
		if st.Phase != ReconcilingAvailability {
			return st, nil
		}
		return m.onReconcile(st, e)

	case CommitOutcome:
		if st.Phase != Committing {
			return st, nil
		}
		return m.onCommit(st, e)
	}
	return st, nil
}

// ingest applies extractor updates to the request. Values at or above the
// confidence threshold are trusted directly; the first below-threshold
// value is staged for confirmation and the phase moves to Confirming.
func (m *Machine) ingest(st *State, updates []extract.FieldUpdate) []Effect {
	for _, u := range updates {
		if u.Value == "" {
			continue
		}
		if u.Confidence < m.threshold {
			if st.Phase != Confirming {
				st.PendingField = u.Field
				st.PendingValue = u.Value
				st.Phase = Confirming
			}
			continue
		}
		schema.Set(&st.Request, u.Field, u.Value)
		st.Confirmed[u.Field] = true
	}
	return nil
}

// route decides the next action after the request changed: confirm a staged
// value, re-prompt for an invalid field, ask for the next missing field, or
// move on to availability once the request is complete.
func (m *Machine) route(st *State) []Effect {
	if st.Phase == Confirming {
		st.LastAsked = st.PendingField
		return []Effect{AskConfirmation{
			Field:  st.PendingField,
			Value:  st.PendingValue,
			Prompt: fmt.Sprintf("Just to double-check, you'd like %s for the %s?", st.PendingValue, fieldLabel(st.PendingField)),
		}}
	}

	results := m.validator.Validate(st.Request)
	for _, d := range schema.Definitions() {
		res := results[d.Field]
		if res.Status != schema.Invalid {
			continue
		}
		schema.Clear(&st.Request, d.Field)
		delete(st.Confirmed, d.Field)
		st.LastAsked = d.Field
		return []Effect{
			Say{Text: res.Reason},
			AskField{Field: d.Field, Prompt: schema.PromptFor(d.Field)},
		}
	}

	if f, _, ok := m.validator.NextUnfilled(st.Request); ok {
		st.LastAsked = f
		return []Effect{AskField{Field: f, Prompt: schema.PromptFor(f)}}
	}

	st.LastAsked = ""
	st.Phase = ReconcilingAvailability
	return []Effect{RunReconcile{}}
}

func (m *Machine) onReconcile(st State, e ReconcileOutcome) (State, []Effect) {
	if e.Err != nil {
		if scheduling.IsTransient(e.Err) {
			// transport trouble, not a scheduling verdict; the next
			// turn retries the check
			return st, []Effect{Say{Text: "I'm having trouble reaching our scheduling system right now. Give me a moment and send any message to try again."}}
		}
		st.Phase = Aborted
		return st, []Effect{
			Say{Text: "I'm sorry, I can't reach our scheduling provider for this request. Please call the front desk and we'll get you booked."},
			End{Outcome: "aborted"},
		}
	}
	switch e.Result.Outcome {
	case availability.ExactMatch:
		m.adoptSlot(&st, e.Result.Match)
		st.Phase = Committing
		return st, []Effect{RunCommit{Slot: e.Result.Match}}
	case availability.Alternatives:
		st.Alternatives = e.Result.Alternatives
		st.Phase = PresentingAlternatives
		return st, []Effect{PresentAlternatives{Slots: e.Result.Alternatives}}
	default:
		st.Phase = Aborted
		return st, []Effect{
			Say{Text: fmt.Sprintf("I'm sorry, I couldn't find any %s openings in the next %d days. Please call the front desk and we'll do our best to help.", st.Request.Specialty, m.horizonDays)},
			End{Outcome: "aborted"},
		}
	}
}

func (m *Machine) onCommit(st State, e CommitOutcome) (State, []Effect) {
	switch {
	case e.Err == nil:
		rec := e.Result.Record
		st.Booking = &rec
		st.Phase = Completed
		loc := m.validator.Location()
		when := rec.Slot.Start.In(loc)
		return st, []Effect{
			Say{Text: fmt.Sprintf("You're all set, %s. Your %s appointment is booked for %s at %s. Confirmation: %s. A confirmation email is on its way.",
				rec.Request.PatientName, rec.Request.Specialty,
				when.Format("Monday, January 2"), when.Format("3:04 PM"), rec.ConfirmationID)},
			End{Outcome: "completed"},
		}
	case errors.Is(e.Err, scheduling.ErrSlotTaken):
		// someone else booked it between reconcile and commit
		st.HasSelected = false
		st.Selected = appointment.Candidate{}
		st.Phase = ReconcilingAvailability
		return st, []Effect{
			Say{Text: "It looks like that time was just taken. Let me check what's still open."},
			RunReconcile{},
		}
	case scheduling.IsTransient(e.Err):
		return st, []Effect{Say{Text: "Our scheduling system isn't responding right now. Send any message in a moment and I'll try the booking again."}}
	default:
		st.Phase = Aborted
		return st, []Effect{
			Say{Text: "I'm sorry, our scheduling provider declined this booking. Please call the front desk so we can sort it out."},
			End{Outcome: "aborted"},
		}
	}
}

// adoptSlot records the chosen candidate and folds its start back into the
// request so the frozen snapshot matches what was actually booked.
func (m *Machine) adoptSlot(st *State, slot appointment.Candidate) {
	st.Selected = slot
	st.HasSelected = true
	start := slot.Start.In(m.validator.Location())
	schema.Set(&st.Request, schema.FieldDate, start.Format("2006-01-02"))
	clock := appointment.ClockTime{Hour: start.Hour(), Minute: start.Minute()}
	schema.Set(&st.Request, schema.FieldTime, clock.Display())
}

func fieldLabel(f schema.Field) string {
	switch f {
	case schema.FieldPatientName:
		return "name"
	case schema.FieldSpecialty:
		return "specialty"
	case schema.FieldReason:
		return "visit reason"
	case schema.FieldDate:
		return "appointment date"
	case schema.FieldTime:
		return "appointment time"
	case schema.FieldPhone:
		return "phone number"
	case schema.FieldEmail:
		return "email address"
	case schema.FieldDuration:
		return "visit length"
	}
	return string(f)
}

// FormatSlot renders a candidate the way it is presented to patients.
func FormatSlot(slot appointment.Candidate, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	start := slot.Start.In(loc)
	return fmt.Sprintf("%s at %s", start.Format("Monday, January 2"), start.Format("3:04 PM"))
}
