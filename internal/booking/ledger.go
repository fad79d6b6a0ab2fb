// Package booking commits reconciled appointments against the scheduling
// provider, exactly once per conversation.
package booking

import (
	"context"
	"sync"
)

// Ledger remembers which conversations already produced a confirmed booking,
// keyed by conversation ID. A hit short-circuits the commit so retries and
// duplicate submissions never double-book.
type Ledger interface {
	// Get returns the confirmation ID recorded for the conversation, if any.
	Get(ctx context.Context, conversationID string) (string, bool, error)
	// Put records the confirmation ID for a conversation.
	Put(ctx context.Context, conversationID, confirmationID string) error
}

// MemoryLedger is the in-process Ledger used by the CLI and in tests.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]string)}
}

func (l *MemoryLedger) Get(_ context.Context, conversationID string) (string, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	id, ok := l.entries[conversationID]
	return id, ok, nil
}

func (l *MemoryLedger) Put(_ context.Context, conversationID, confirmationID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[conversationID] = confirmationID
	return nil
}
