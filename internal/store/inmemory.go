package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process store for local/dev use.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]SessionRecord
	turns    map[string][]TurnRecord
	audits   map[string][]AuditRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]SessionRecord),
		turns:    make(map[string][]TurnRecord),
		audits:   make(map[string][]AuditRecord),
	}
}

func (s *InMemoryStore) SaveSession(_ context.Context, rec SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.UpdatedAt = rec.CreatedAt
	s.sessions[rec.ID] = rec
	return nil
}

func (s *InMemoryStore) UpdateSessionStatus(_ context.Context, sessionID, status string, turnCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	rec.Status = status
	rec.TurnCount = turnCount
	rec.UpdatedAt = time.Now().UTC()
	s.sessions[sessionID] = rec
	return nil
}

func (s *InMemoryStore) SaveTurn(_ context.Context, rec TurnRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	s.turns[rec.SessionID] = append(s.turns[rec.SessionID], rec)
	return nil
}

func (s *InMemoryStore) History(_ context.Context, sessionID string) (SessionRecord, []TurnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return SessionRecord{}, nil, ErrSessionNotFound
	}
	turns := append([]TurnRecord(nil), s.turns[sessionID]...)
	return rec, turns, nil
}

func (s *InMemoryStore) AppendAudit(_ context.Context, rec AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	s.audits[rec.SessionID] = append(s.audits[rec.SessionID], rec)
	return nil
}

// Audits returns recorded audit events for a session, for tests and local
// inspection.
func (s *InMemoryStore) Audits(sessionID string) []AuditRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]AuditRecord(nil), s.audits[sessionID]...)
}

func (s *InMemoryStore) Close() error { return nil }
