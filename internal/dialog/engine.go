package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-ai-scheduler/internal/appointment"
	"github.com/wolfman30/clinic-ai-scheduler/internal/availability"
	"github.com/wolfman30/clinic-ai-scheduler/internal/booking"
	"github.com/wolfman30/clinic-ai-scheduler/internal/extract"
	"github.com/wolfman30/clinic-ai-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-ai-scheduler/internal/schema"
	"github.com/wolfman30/clinic-ai-scheduler/internal/scheduling"
	"github.com/wolfman30/clinic-ai-scheduler/internal/store"
	"github.com/wolfman30/clinic-ai-scheduler/pkg/logging"
)

var engineTracer = otel.Tracer("scheduler.internal.dialog")

// Reconciler checks a complete request against live provider availability.
type Reconciler interface {
	Reconcile(ctx context.Context, req appointment.Request) (availability.Result, error)
}

// Committer reserves a slot at most once per conversation.
type Committer interface {
	Commit(ctx context.Context, conversationID string, req appointment.Request, slot appointment.Candidate) (booking.Result, error)
}

// Notifier sends the confirmation email after a successful commit.
type Notifier interface {
	SendConfirmation(ctx context.Context, rec appointment.BookingRecord) error
}

// TranscriptStore persists the running conversation transcript.
type TranscriptStore interface {
	EnsureConversation(ctx context.Context, conversationID string) error
	AppendMessage(ctx context.Context, conversationID, role, content string) (string, error)
	ListMessages(ctx context.Context, conversationID string) ([]store.TranscriptMessage, error)
	EndConversation(ctx context.Context, conversationID, outcome string) error
}

// BookingStore persists the frozen booking record.
type BookingStore interface {
	InsertRecord(ctx context.Context, rec appointment.BookingRecord) error
}

// Archiver backs up the finished transcript.
type Archiver interface {
	Enabled() bool
	ArchiveTranscript(ctx context.Context, conversationID, outcome string, messages []store.TranscriptMessage, booking *appointment.BookingRecord) error
}

// EngineParams wires an Engine. Extractor, Machine, Reconciler and
// Committer are required; everything else is optional and skipped when
// nil.
type EngineParams struct {
	Machine     *Machine
	Extractor   extract.Extractor
	Reconciler  Reconciler
	Committer   Committer
	Notifier    Notifier
	Transcripts TranscriptStore
	Bookings    BookingStore
	Archiver    Archiver
	Metrics     *metrics.SchedulerMetrics
	Location    *time.Location
	Logger      *logging.Logger
}

// Engine runs one conversation turn at a time: interpret the utterance,
// apply the transition, execute the returned effects (including the
// internal reconcile and commit steps) to completion, and persist the
// transcript along the way.
type Engine struct {
	machine     *Machine
	extractor   extract.Extractor
	reconciler  Reconciler
	committer   Committer
	notifier    Notifier
	transcripts TranscriptStore
	bookings    BookingStore
	archiver    Archiver
	metrics     *metrics.SchedulerMetrics
	loc         *time.Location
	logger      *logging.Logger
}

func NewEngine(p EngineParams) *Engine {
	if p.Logger == nil {
		p.Logger = logging.Default()
	}
	if p.Location == nil {
		p.Location = time.Local
	}
	if p.Machine == nil {
		p.Machine = NewMachine(nil, 0, 0)
	}
	return &Engine{
		machine:     p.Machine,
		extractor:   p.Extractor,
		reconciler:  p.Reconciler,
		committer:   p.Committer,
		notifier:    p.Notifier,
		transcripts: p.Transcripts,
		bookings:    p.Bookings,
		archiver:    p.Archiver,
		metrics:     p.Metrics,
		loc:         p.Location,
		logger:      p.Logger,
	}
}

// Greeting is the opening line for a fresh conversation.
func (e *Engine) Greeting() string {
	return "Hello! I can help you schedule an appointment at our clinic. What can I do for you today?"
}

// Start registers a new conversation and returns its greeting.
func (e *Engine) Start(ctx context.Context, st *State) []string {
	if e.transcripts != nil {
		if err := e.transcripts.EnsureConversation(ctx, st.ConversationID); err != nil {
			e.logger.Warn("transcript conversation create failed", "error", err, "conversation_id", st.ConversationID)
		}
	}
	greeting := e.Greeting()
	e.appendTranscript(ctx, st.ConversationID, "assistant", greeting)
	return []string{greeting}
}

var abortPhrases = []string{
	"cancel", "never mind", "nevermind", "goodbye", "good bye",
	"i give up", "stop this", "quit", "i don't want an appointment",
	"no longer need",
}

var affirmations = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "yup": true, "correct": true,
	"right": true, "that's right": true, "thats right": true, "sure": true,
	"exactly": true, "that is correct": true, "y": true, "ok": true, "okay": true,
}

// Turn processes one patient utterance to completion, including any
// internal reconcile or commit steps, and returns the assistant replies.
func (e *Engine) Turn(ctx context.Context, st *State, userText string) ([]string, error) {
	ctx, span := engineTracer.Start(ctx, "dialog.Turn")
	defer span.End()
	span.SetAttributes(
		attribute.String("conversation.id", st.ConversationID),
		attribute.String("conversation.phase", st.Phase.String()),
	)

	if st.Phase.Terminal() {
		return []string{"This conversation has ended. Please start a new one to book another appointment."}, nil
	}

	started := time.Now()
	st.Turn++
	e.appendTranscript(ctx, st.ConversationID, "user", userText)

	ev, directReply := e.interpret(ctx, st, userText)
	var replies []string
	if ev != nil {
		replies = e.dispatch(ctx, st, ev)
	}
	if directReply != "" {
		replies = append(replies, directReply)
		e.appendTranscript(ctx, st.ConversationID, "assistant", directReply)
	}
	if len(replies) == 0 {
		fallback := "Sorry, I didn't catch that. Could you rephrase?"
		replies = append(replies, fallback)
		e.appendTranscript(ctx, st.ConversationID, "assistant", fallback)
	}

	e.metrics.ObserveTurn(time.Since(started).Seconds())
	return replies, nil
}

// interpret maps raw text to the event the current phase expects. A
// non-empty directReply short-circuits without a transition.
func (e *Engine) interpret(ctx context.Context, st *State, text string) (Event, string) {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, p := range abortPhrases {
		if strings.Contains(lower, p) {
			return UserAborted{}, ""
		}
	}

	switch st.Phase {
	case Confirming:
		if affirmations[lower] {
			return ConfirmationReply{Affirmed: true}, ""
		}
		updates := e.extract(ctx, text, st.PendingField, st.Request)
		return ConfirmationReply{Affirmed: false, Updates: updates}, ""

	case PresentingAlternatives:
		sel := ParseSelection(text, st.Alternatives, e.loc)
		switch sel.Kind {
		case SelectionPicked:
			return AlternativePicked{Slot: sel.Slot}, ""
		case SelectionDeclined:
			return AlternativesDeclined{}, ""
		case SelectionConstraintChange:
			updates := e.extract(ctx, text, "", st.Request)
			return ConstraintChange{Updates: updates}, ""
		default:
			return nil, "Please reply with the number of the time that works for you, or tell me if a different day would be better."
		}

	case ReconcilingAvailability, Committing:
		// a previous turn hit a transient outage; any input retries
		return FieldsExtracted{}, ""

	default:
		updates := e.extract(ctx, text, st.LastAsked, st.Request)
		return FieldsExtracted{Updates: updates}, ""
	}
}

func (e *Engine) extract(ctx context.Context, text string, asked schema.Field, current appointment.Request) []extract.FieldUpdate {
	if e.extractor == nil {
		return nil
	}
	updates, err := e.extractor.Extract(ctx, text, asked, current)
	if err != nil {
		e.logger.Warn("field extraction failed", "error", err)
		return nil
	}
	return updates
}

// dispatch applies the event and runs every resulting effect, feeding the
// outcomes of internal steps back into the machine until the turn settles.
func (e *Engine) dispatch(ctx context.Context, st *State, ev Event) []string {
	var replies []string
	say := func(text string) {
		replies = append(replies, text)
		e.appendTranscript(ctx, st.ConversationID, "assistant", text)
	}

	queue := []Event{ev}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		newState, effects := e.machine.Apply(*st, next)
		*st = newState

		for _, eff := range effects {
			switch f := eff.(type) {
			case Say:
				say(f.Text)
			case AskField:
				say(f.Prompt)
			case AskConfirmation:
				say(f.Prompt)
			case PresentAlternatives:
				say(e.renderAlternatives(f.Slots))
			case RunReconcile:
				res, err := e.reconciler.Reconcile(ctx, st.Request)
				if err != nil {
					e.logger.Warn("availability reconcile failed", "error", err, "conversation_id", st.ConversationID)
				} else {
					e.metrics.ObserveReconcile(res.Outcome.String())
				}
				queue = append(queue, ReconcileOutcome{Result: res, Err: err})
			case RunCommit:
				res, err := e.committer.Commit(ctx, st.ConversationID, st.Request, f.Slot)
				e.metrics.ObserveCommit(commitMetricLabel(res, err))
				if err != nil {
					e.logger.Warn("booking commit failed", "error", err, "conversation_id", st.ConversationID)
				}
				queue = append(queue, CommitOutcome{Result: res, Err: err})
			case End:
				e.finish(ctx, st, f.Outcome, say)
			}
		}
	}
	return replies
}

// finish handles the terminal bookkeeping: persist the booking, send the
// confirmation email, close and archive the transcript. None of these may
// undo a committed booking.
func (e *Engine) finish(ctx context.Context, st *State, outcome string, say func(string)) {
	e.metrics.ObserveConversationEnd(outcome)

	if outcome == "completed" && st.Booking != nil {
		if e.bookings != nil {
			if err := e.bookings.InsertRecord(ctx, *st.Booking); err != nil {
				e.logger.Error("booking record persist failed", "error", err, "conversation_id", st.ConversationID)
			}
		}
		if e.notifier != nil {
			if err := e.notifier.SendConfirmation(ctx, *st.Booking); err != nil {
				e.metrics.ObserveNotifyFailure()
				e.logger.Warn("confirmation email failed", "error", err, "conversation_id", st.ConversationID)
				say("Heads up: I couldn't send the confirmation email just now, but your booking is confirmed.")
			}
		}
	}

	if e.transcripts != nil {
		if err := e.transcripts.EndConversation(ctx, st.ConversationID, outcome); err != nil {
			e.logger.Warn("transcript close failed", "error", err, "conversation_id", st.ConversationID)
		}
	}
	e.archive(ctx, st, outcome)
}

func (e *Engine) archive(ctx context.Context, st *State, outcome string) {
	if e.archiver == nil || !e.archiver.Enabled() || e.transcripts == nil {
		return
	}
	msgs, err := e.transcripts.ListMessages(ctx, st.ConversationID)
	if err != nil {
		e.logger.Warn("transcript read for archive failed", "error", err, "conversation_id", st.ConversationID)
		return
	}
	if err := e.archiver.ArchiveTranscript(ctx, st.ConversationID, outcome, msgs, st.Booking); err != nil {
		e.logger.Warn("transcript archive failed", "error", err, "conversation_id", st.ConversationID)
	}
}

func (e *Engine) renderAlternatives(slots []appointment.Candidate) string {
	var b strings.Builder
	b.WriteString("That exact time isn't open, but here's what we have nearby:\n")
	for i, s := range slots {
		fmt.Fprintf(&b, "%d) %s\n", i+1, FormatSlot(s, e.loc))
	}
	b.WriteString("Reply with the number that works for you, or tell me if a different day would be better.")
	return b.String()
}

func (e *Engine) appendTranscript(ctx context.Context, conversationID, role, content string) {
	if e.transcripts == nil {
		return
	}
	if _, err := e.transcripts.AppendMessage(ctx, conversationID, role, content); err != nil {
		e.logger.Warn("transcript append failed", "error", err, "conversation_id", conversationID, "role", role)
	}
}

func commitMetricLabel(res booking.Result, err error) string {
	switch {
	case err == nil && res.AlreadyBooked:
		return "replayed"
	case err == nil:
		return "booked"
	case errors.Is(err, scheduling.ErrSlotTaken):
		return "slot_taken"
	case scheduling.IsTransient(err):
		return "transient"
	default:
		return "rejected"
	}
}
