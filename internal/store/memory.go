package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ashureev/studymate/internal/domain"
)

// MemoryStore implements Repository in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*domain.Session)}
}

// CreateSession starts an empty session, replacing any existing one with the same id.
func (m *MemoryStore) CreateSession(_ context.Context, id string, now time.Time) (*domain.Session, error) {
	s := domain.NewSession(id, now)
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s.Clone(), nil
}

// GetSession returns a copy of the session, or nil if it does not exist.
func (m *MemoryStore) GetSession(_ context.Context, id string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

// TouchSession records activity on the session.
func (m *MemoryStore) TouchSession(_ context.Context, id string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.LastSeenAt = now
	return nil
}

// AppendChatTurns appends turns in order.
func (m *MemoryStore) AppendChatTurns(_ context.Context, id string, turns ...domain.ChatTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	for _, t := range turns {
		s.AppendChatTurn(t.Speaker, t.Message)
	}
	return nil
}

// AppendPlannerEntry appends a planner entry.
func (m *MemoryStore) AppendPlannerEntry(_ context.Context, id string, entry domain.PlannerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if _, err := s.AppendPlannerEntry(entry.Subject, entry.Goal, entry.Deadline); err != nil {
		return fmt.Errorf("append planner entry: %w", err)
	}
	return nil
}

// DeleteSession drops the session. Deleting a missing session is not an error.
func (m *MemoryStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// GetExpiredSessions lists sessions last seen before cutoff.
func (m *MemoryStore) GetExpiredSessions(_ context.Context, cutoff time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for id, s := range m.sessions {
		if s.LastSeenAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close drops all sessions.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.sessions = make(map[string]*domain.Session)
	m.mu.Unlock()
	return nil
}

var _ Repository = (*MemoryStore)(nil)
