package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriptStoreEnsureConversation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO conversations").
		WithArgs("conv-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewTranscriptStore(db)
	require.NoError(t, store.EnsureConversation(context.Background(), "conv-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranscriptStoreAppendMessage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO transcript_messages").
		WithArgs(sqlmock.AnyArg(), "conv-1", "user", "I need an appointment", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewTranscriptStore(db)
	id, err := store.AppendMessage(context.Background(), "conv-1", "user", "I need an appointment")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranscriptStoreListMessages(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "conversation_id", "role", "content", "created_at"}).
		AddRow("m1", "conv-1", "user", "hello", created).
		AddRow("m2", "conv-1", "assistant", "hi there", created.Add(time.Second))

	mock.ExpectQuery("SELECT id, conversation_id, role, content, created_at").
		WithArgs("conv-1").
		WillReturnRows(rows)

	store := NewTranscriptStore(db)
	msgs, err := store.ListMessages(context.Background(), "conv-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "hi there", msgs[1].Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranscriptStoreListMessagesEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, conversation_id, role, content, created_at").
		WithArgs("conv-9").
		WillReturnRows(sqlmock.NewRows([]string{"id", "conversation_id", "role", "content", "created_at"}))

	store := NewTranscriptStore(db)
	msgs, err := store.ListMessages(context.Background(), "conv-9")
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.NotNil(t, msgs)
}

func TestTranscriptStoreEndConversation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE conversations SET outcome").
		WithArgs("conv-1", "completed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewTranscriptStore(db)
	require.NoError(t, store.EndConversation(context.Background(), "conv-1", "completed"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranscriptStoreEndConversationUnknown(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE conversations SET outcome").
		WithArgs("missing", "aborted", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewTranscriptStore(db)
	err = store.EndConversation(context.Background(), "missing", "aborted")
	assert.ErrorContains(t, err, "unknown conversation")
}
