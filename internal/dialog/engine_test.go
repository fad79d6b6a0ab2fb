package dialog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-ai-scheduler/internal/appointment"
	"github.com/wolfman30/clinic-ai-scheduler/internal/availability"
	"github.com/wolfman30/clinic-ai-scheduler/internal/booking"
	"github.com/wolfman30/clinic-ai-scheduler/internal/extract"
	"github.com/wolfman30/clinic-ai-scheduler/internal/schema"
	"github.com/wolfman30/clinic-ai-scheduler/internal/store"
)

type stubExtractor struct {
	byText map[string][]extract.FieldUpdate
}

func (s *stubExtractor) Extract(ctx context.Context, text string, asked schema.Field, current appointment.Request) ([]extract.FieldUpdate, error) {
	return s.byText[text], nil
}

type scriptReconciler struct {
	results []availability.Result
	errs    []error
	calls   int
}

func (r *scriptReconciler) Reconcile(ctx context.Context, req appointment.Request) (availability.Result, error) {
	i := r.calls
	r.calls++
	if i < len(r.errs) && r.errs[i] != nil {
		return availability.Result{}, r.errs[i]
	}
	if i >= len(r.results) {
		i = len(r.results) - 1
	}
	return r.results[i], nil
}

type scriptCommitter struct {
	err   error
	calls int
}

func (c *scriptCommitter) Commit(ctx context.Context, conversationID string, req appointment.Request, slot appointment.Candidate) (booking.Result, error) {
	c.calls++
	if c.err != nil {
		return booking.Result{}, c.err
	}
	return booking.Result{Record: appointment.NewBookingRecord(conversationID, req, slot, "conf-7", machineNow)}, nil
}

type stubNotifier struct {
	err   error
	calls int
}

func (n *stubNotifier) SendConfirmation(ctx context.Context, rec appointment.BookingRecord) error {
	n.calls++
	return n.err
}

type memTranscripts struct {
	messages []store.TranscriptMessage
	outcome  string
}

func (m *memTranscripts) EnsureConversation(ctx context.Context, id string) error { return nil }

func (m *memTranscripts) AppendMessage(ctx context.Context, id, role, content string) (string, error) {
	m.messages = append(m.messages, store.TranscriptMessage{ConversationID: id, Role: role, Content: content})
	return "m", nil
}

func (m *memTranscripts) ListMessages(ctx context.Context, id string) ([]store.TranscriptMessage, error) {
	return m.messages, nil
}

func (m *memTranscripts) EndConversation(ctx context.Context, id, outcome string) error {
	m.outcome = outcome
	return nil
}

type memBookings struct {
	records []appointment.BookingRecord
}

func (m *memBookings) InsertRecord(ctx context.Context, rec appointment.BookingRecord) error {
	m.records = append(m.records, rec)
	return nil
}

type stubArchiver struct {
	archived bool
	outcome  string
}

func (a *stubArchiver) Enabled() bool { return true }

func (a *stubArchiver) ArchiveTranscript(ctx context.Context, id, outcome string, msgs []store.TranscriptMessage, rec *appointment.BookingRecord) error {
	a.archived = true
	a.outcome = outcome
	return nil
}

type engineFixture struct {
	engine      *Engine
	reconciler  *scriptReconciler
	committer   *scriptCommitter
	notifier    *stubNotifier
	transcripts *memTranscripts
	bookings    *memBookings
	archiver    *stubArchiver
}

func newEngineFixture(t *testing.T, extractor extract.Extractor, results ...availability.Result) *engineFixture {
	t.Helper()
	v := schema.NewValidator(time.UTC, func() time.Time { return machineNow })
	f := &engineFixture{
		reconciler:  &scriptReconciler{results: results},
		committer:   &scriptCommitter{},
		notifier:    &stubNotifier{},
		transcripts: &memTranscripts{},
		bookings:    &memBookings{},
		archiver:    &stubArchiver{},
	}
	f.engine = NewEngine(EngineParams{
		Machine:     NewMachine(v, 0.6, 14),
		Extractor:   extractor,
		Reconciler:  f.reconciler,
		Committer:   f.committer,
		Notifier:    f.notifier,
		Transcripts: f.transcripts,
		Bookings:    f.bookings,
		Archiver:    f.archiver,
		Location:    time.UTC,
	})
	return f
}

const bookEverything = "I'm Maria Lopez, cardiology next Tuesday at 2pm, 5551234567, maria@example.com"

func bookEverythingExtractor() *stubExtractor {
	return &stubExtractor{byText: map[string][]extract.FieldUpdate{
		bookEverything: fullUpdates(0.9),
	}}
}

func TestEngineExactMatchBooksAndConfirms(t *testing.T) {
	match := slotAt(time.Date(2026, time.September, 8, 14, 0, 0, 0, time.UTC))
	f := newEngineFixture(t, bookEverythingExtractor(),
		availability.Result{Outcome: availability.ExactMatch, Match: match})

	st := NewState("c1")
	replies, err := f.engine.Turn(context.Background(), st, bookEverything)
	require.NoError(t, err)

	assert.Equal(t, Completed, st.Phase)
	require.NotNil(t, st.Booking)
	assert.Equal(t, "conf-7", st.Booking.ConfirmationID)
	assert.Contains(t, strings.Join(replies, "\n"), "conf-7")

	assert.Equal(t, 1, f.committer.calls)
	assert.Equal(t, 1, f.notifier.calls)
	require.Len(t, f.bookings.records, 1)
	assert.Equal(t, "completed", f.transcripts.outcome)
	assert.True(t, f.archiver.archived)
	assert.Equal(t, "completed", f.archiver.outcome)
}

func TestEngineAlternativesThenNumericPick(t *testing.T) {
	alts := []appointment.Candidate{
		slotAt(time.Date(2026, time.September, 8, 15, 0, 0, 0, time.UTC)),
		slotAt(time.Date(2026, time.September, 9, 14, 0, 0, 0, time.UTC)),
	}
	f := newEngineFixture(t, bookEverythingExtractor(),
		availability.Result{Outcome: availability.Alternatives, Alternatives: alts})

	st := NewState("c1")
	replies, err := f.engine.Turn(context.Background(), st, bookEverything)
	require.NoError(t, err)
	assert.Equal(t, PresentingAlternatives, st.Phase)
	joined := strings.Join(replies, "\n")
	assert.Contains(t, joined, "1)")
	assert.Contains(t, joined, "2)")
	assert.Equal(t, 0, f.committer.calls)

	replies, err = f.engine.Turn(context.Background(), st, "2")
	require.NoError(t, err)
	assert.Equal(t, Completed, st.Phase)
	assert.Equal(t, 1, f.committer.calls)
	assert.Contains(t, strings.Join(replies, "\n"), "conf-7")
	assert.Equal(t, "2026-09-09", st.Request.Date)
}

func TestEngineNoCapacityAborts(t *testing.T) {
	f := newEngineFixture(t, bookEverythingExtractor(),
		availability.Result{Outcome: availability.NoCapacity})

	st := NewState("c1")
	replies, err := f.engine.Turn(context.Background(), st, bookEverything)
	require.NoError(t, err)
	assert.Equal(t, Aborted, st.Phase)
	assert.Contains(t, strings.Join(replies, "\n"), "couldn't find any")
	assert.Equal(t, "aborted", f.transcripts.outcome)
	assert.True(t, f.archiver.archived)
	assert.Empty(t, f.bookings.records)
}

func TestEngineNotifierFailureDoesNotUndoBooking(t *testing.T) {
	match := slotAt(time.Date(2026, time.September, 8, 14, 0, 0, 0, time.UTC))
	f := newEngineFixture(t, bookEverythingExtractor(),
		availability.Result{Outcome: availability.ExactMatch, Match: match})
	f.notifier.err = errors.New("smtp down")

	st := NewState("c1")
	replies, err := f.engine.Turn(context.Background(), st, bookEverything)
	require.NoError(t, err)

	assert.Equal(t, Completed, st.Phase)
	require.Len(t, f.bookings.records, 1)
	assert.Contains(t, strings.Join(replies, "\n"), "couldn't send the confirmation email")
	assert.Equal(t, "completed", f.transcripts.outcome)
}

func TestEngineConfirmationRoundTrip(t *testing.T) {
	extractor := &stubExtractor{byText: map[string][]extract.FieldUpdate{
		"heart doctor maybe": {{Field: schema.FieldSpecialty, Value: "Cardiology", Confidence: 0.4}},
	}}
	f := newEngineFixture(t, extractor, availability.Result{Outcome: availability.NoCapacity})

	st := NewState("c1")
	replies, err := f.engine.Turn(context.Background(), st, "heart doctor maybe")
	require.NoError(t, err)
	assert.Equal(t, Confirming, st.Phase)
	assert.Contains(t, strings.Join(replies, "\n"), "double-check")

	replies, err = f.engine.Turn(context.Background(), st, "yes")
	require.NoError(t, err)
	assert.Equal(t, Collecting, st.Phase)
	assert.Equal(t, "Cardiology", st.Request.Specialty)
	assert.NotEmpty(t, replies)
}

func TestEngineAbortPhraseEndsConversation(t *testing.T) {
	f := newEngineFixture(t, &stubExtractor{}, availability.Result{Outcome: availability.NoCapacity})

	st := NewState("c1")
	replies, err := f.engine.Turn(context.Background(), st, "actually, cancel that")
	require.NoError(t, err)
	assert.Equal(t, Aborted, st.Phase)
	assert.NotEmpty(t, replies)
	assert.Equal(t, "aborted", f.transcripts.outcome)
}

func TestEngineTerminalStateRefusesInput(t *testing.T) {
	f := newEngineFixture(t, &stubExtractor{}, availability.Result{Outcome: availability.NoCapacity})

	st := NewState("c1")
	st.Phase = Completed
	replies, err := f.engine.Turn(context.Background(), st, "hello?")
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "ended")
	assert.Empty(t, f.transcripts.messages)
}

func TestEngineTranscriptRecordsBothSides(t *testing.T) {
	f := newEngineFixture(t, &stubExtractor{}, availability.Result{Outcome: availability.NoCapacity})

	st := NewState("c1")
	f.engine.Start(context.Background(), st)
	_, err := f.engine.Turn(context.Background(), st, "hello")
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(f.transcripts.messages), 3)
	assert.Equal(t, "assistant", f.transcripts.messages[0].Role)
	assert.Equal(t, "user", f.transcripts.messages[1].Role)
}
