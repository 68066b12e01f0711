package store

import (
	"context"
	"errors"
	"time"

	"github.com/dmauro/triago/internal/triage"
)

var ErrSessionNotFound = errors.New("session record not found")

// SessionRecord mirrors the durable shape of a triage session.
type SessionRecord struct {
	ID             string    `json:"session_id"`
	Age            *int      `json:"age,omitempty"`
	Sex            string    `json:"sex,omitempty"`
	MedicalHistory []string  `json:"medical_history,omitempty"`
	Medications    []string  `json:"medications,omitempty"`
	Allergies      []string  `json:"allergies,omitempty"`
	Status         string    `json:"status"`
	TurnCount      int       `json:"turn_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TurnRecord stores one conversation turn with its assessment.
type TurnRecord struct {
	ID          string            `json:"id"`
	SessionID   string            `json:"session_id"`
	TurnNumber  int               `json:"turn_number"`
	UserMessage string            `json:"user_message"`
	Assessment  triage.Assessment `json:"assessment"`
	Severity    *int              `json:"severity,omitempty"`
	Urgency     string            `json:"urgency_level"`
	Timestamp   time.Time         `json:"timestamp"`
}

// AuditRecord is one safety-audit event.
type AuditRecord struct {
	ID               string             `json:"id"`
	SessionID        string             `json:"session_id"`
	EventType        string             `json:"event_type"`
	Urgency          string             `json:"urgency_level,omitempty"`
	DetectedKeywords []string           `json:"detected_keywords,omitempty"`
	ConfidenceScores map[string]float64 `json:"confidence_scores,omitempty"`
	Metadata         map[string]any     `json:"metadata,omitempty"`
	Timestamp        time.Time          `json:"timestamp"`
}

// Store persists sessions, turns and audit events. The pipeline treats write
// failures as logged-and-continue; reads back the caller's own data for the
// history endpoints.
type Store interface {
	SaveSession(ctx context.Context, rec SessionRecord) error
	UpdateSessionStatus(ctx context.Context, sessionID, status string, turnCount int) error
	SaveTurn(ctx context.Context, rec TurnRecord) error
	History(ctx context.Context, sessionID string) (SessionRecord, []TurnRecord, error)
	AppendAudit(ctx context.Context, rec AuditRecord) error
	Close() error
}
