// Package httpapi exposes the scheduling conversation over HTTP.
package httpapi

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-ai-scheduler/internal/dialog"
)

// ErrNotFound is returned for an unknown conversation ID.
var ErrNotFound = errors.New("httpapi: conversation not found")

// session serializes turns for one conversation. Turns within a
// conversation are strictly sequential; different conversations proceed in
// parallel.
type session struct {
	mu    sync.Mutex
	state *dialog.State
}

// Manager owns the active conversations and routes each message through
// the dialogue engine.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session
	engine   *dialog.Engine
}

func NewManager(engine *dialog.Engine) *Manager {
	return &Manager{
		sessions: make(map[string]*session),
		engine:   engine,
	}
}

// Create starts a new conversation and returns its ID and greeting.
func (m *Manager) Create(ctx context.Context) (string, []string) {
	id := uuid.NewString()
	s := &session{state: dialog.NewState(id)}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return id, m.engine.Start(ctx, s.state)
}

// Message runs one turn and returns the assistant replies and the
// resulting phase.
func (m *Manager) Message(ctx context.Context, id, text string) ([]string, dialog.Phase, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, 0, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	replies, err := m.engine.Turn(ctx, s.state, text)
	return replies, s.state.Phase, err
}

// Snapshot returns a copy of the conversation state for inspection.
func (m *Manager) Snapshot(id string) (dialog.State, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return dialog.State{}, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.state, nil
}
