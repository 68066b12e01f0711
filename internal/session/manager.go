package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmauro/triago/internal/triage"
)

var (
	ErrNotFound  = errors.New("session not found")
	ErrCompleted = errors.New("session has ended")
)

// Manager owns the in-memory session state machines. Sessions are independent
// units of mutation: one mutex guards the map and each session's transitions,
// so turn numbers stay strictly increasing and gap-free under concurrent
// requests against the same session.
type Manager struct {
	mu             sync.RWMutex
	sessions       map[string]*Session
	maxTurns       int
	sessionTimeout time.Duration
	contextWindow  int
	onExpire       func(*Session)
}

func NewManager(maxTurns int, sessionTimeout time.Duration, contextWindow int) *Manager {
	if maxTurns <= 0 {
		maxTurns = 20
	}
	if sessionTimeout <= 0 {
		sessionTimeout = time.Hour
	}
	if contextWindow <= 0 {
		contextWindow = 3
	}
	return &Manager{
		sessions:       make(map[string]*Session),
		maxTurns:       maxTurns,
		sessionTimeout: sessionTimeout,
		contextWindow:  contextWindow,
	}
}

func (m *Manager) SetExpireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

func (m *Manager) MaxTurns() int { return m.maxTurns }

func (m *Manager) Create(patient PatientContext) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:          uuid.NewString(),
		Patient:     patient,
		Status:      StatusActive,
		CreatedAt:   now,
		LastUpdated: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return clone(s)
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

// AddTurn appends a turn and returns its number. Termination conditions are
// re-evaluated under the lock so two concurrent calls cannot both slip past
// the limit, and turn numbering cannot interleave.
func (m *Manager) AddTurn(sessionID string, turn Turn) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return 0, ErrNotFound
	}
	if m.shouldEndLocked(s, time.Now().UTC()) {
		if s.Status == StatusActive {
			s.Status = StatusCompleted
		}
		return 0, ErrCompleted
	}

	turn.Number = s.TurnCount + 1
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	s.Turns = append(s.Turns, turn)
	s.TurnCount++
	s.LastUpdated = time.Now().UTC()
	return turn.Number, nil
}

// ShouldEnd reports whether the session is due for termination: turn limit
// reached, already completed, or session timeout elapsed.
func (m *Manager) ShouldEnd(sessionID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return false, ErrNotFound
	}
	return m.shouldEndLocked(s, time.Now().UTC()), nil
}

func (m *Manager) shouldEndLocked(s *Session, now time.Time) bool {
	if s.Status == StatusCompleted {
		return true
	}
	if s.TurnCount >= m.maxTurns {
		return true
	}
	return now.Sub(s.CreatedAt) >= m.sessionTimeout
}

// End forces the transition to completed. Completed is terminal; ending an
// already-completed session is a no-op, not an error.
func (m *Manager) End(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	s.Status = StatusCompleted
	s.LastUpdated = time.Now().UTC()
	return clone(s), nil
}

// BuildContext renders a deterministic summary of the patient plus the last
// few turns for the reasoning prompt. The window bounds prompt size; older
// turns live on in the durable store only.
func (m *Manager) BuildContext(sessionID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return "", ErrNotFound
	}

	if len(s.Turns) == 0 {
		return "No previous conversation.", nil
	}

	var parts []string
	age := "unknown age"
	if s.Patient.Age != nil {
		age = fmt.Sprintf("%d year old", *s.Patient.Age)
	}
	sex := s.Patient.Sex
	if sex == "" {
		sex = "person"
	}
	parts = append(parts, fmt.Sprintf("Patient: %s %s", age, sex))

	if len(s.Patient.MedicalHistory) > 0 {
		parts = append(parts, "Medical History: "+strings.Join(s.Patient.MedicalHistory, ", "))
	}
	if len(s.Patient.Medications) > 0 {
		parts = append(parts, "Current Medications: "+strings.Join(s.Patient.Medications, ", "))
	}
	if len(s.Patient.Allergies) > 0 {
		parts = append(parts, "Allergies: "+strings.Join(s.Patient.Allergies, ", "))
	}

	parts = append(parts, "", "Conversation History:")
	start := len(s.Turns) - m.contextWindow
	if start < 0 {
		start = 0
	}
	for _, turn := range s.Turns[start:] {
		parts = append(parts, fmt.Sprintf("Turn %d:", turn.Number))
		parts = append(parts, "User: "+turn.UserMessage)
		parts = append(parts, fmt.Sprintf("Assessment: %s urgency", turn.Assessment.Urgency))
		if len(turn.Assessment.ProbableConditions) > 0 {
			names := make([]string, 0, len(turn.Assessment.ProbableConditions))
			for _, c := range turn.Assessment.ProbableConditions {
				names = append(names, c.Name)
			}
			parts = append(parts, "Conditions: "+strings.Join(names, ", "))
		}
	}

	return strings.Join(parts, "\n"), nil
}

// Summarize builds the session summary returned on explicit end.
func (m *Manager) Summarize(sessionID string) (Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return Summary{}, ErrNotFound
	}

	sum := Summary{
		SessionID:           s.ID,
		TotalTurns:          s.TurnCount,
		DurationMinutes:     s.LastUpdated.Sub(s.CreatedAt).Minutes(),
		UrgencyDistribution: map[string]int{},
		Status:              s.Status,
	}
	for _, turn := range s.Turns {
		sum.UrgencyDistribution[string(turn.Assessment.Urgency)]++
	}
	if len(s.Turns) > 0 {
		last := s.Turns[len(s.Turns)-1]
		sum.FinalUrgency = last.Assessment.Urgency
		sum.ProbableConditions = append([]triage.Condition(nil), last.Assessment.ProbableConditions...)
		sum.Recommendations = append([]string(nil), last.Assessment.Recommendations...)
	}
	return sum, nil
}

// StartJanitor evicts idle sessions on a fixed interval until ctx is done.
// Eviction never blocks request handling: it runs on its own goroutine and
// takes the same per-manager lock only briefly.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.evictExpired()
			}
		}
	}()
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.sessions {
		if s.Status == StatusActive {
			count++
		}
	}
	return count
}

func (m *Manager) evictExpired() {
	now := time.Now().UTC()
	var expired []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		if now.Sub(s.LastUpdated) < m.sessionTimeout {
			continue
		}
		if s.Status == StatusActive {
			s.Status = StatusCompleted
			s.LastUpdated = now
		}
		expired = append(expired, clone(s))
		delete(m.sessions, id)
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
}

func clone(s *Session) *Session {
	c := *s
	c.Turns = append([]Turn(nil), s.Turns...)
	return &c
}
