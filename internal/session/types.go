package session

import (
	"time"

	"github.com/dmauro/triago/internal/triage"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// PatientContext is immutable after session creation.
type PatientContext struct {
	Age            *int     `json:"age,omitempty"`
	Sex            string   `json:"sex,omitempty"`
	MedicalHistory []string `json:"medical_history,omitempty"`
	Medications    []string `json:"medications,omitempty"`
	Allergies      []string `json:"allergies,omitempty"`
}

// Turn is one conversation exchange. Append-only: never mutated once created.
type Turn struct {
	Number      int               `json:"turn_number"`
	UserMessage string            `json:"user_message"`
	Assessment  triage.Assessment `json:"assessment"`
	Severity    *int              `json:"severity,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Session is one bounded multi-turn triage conversation.
type Session struct {
	ID          string         `json:"session_id"`
	Patient     PatientContext `json:"patient"`
	Turns       []Turn         `json:"turns"`
	Status      Status         `json:"status"`
	TurnCount   int            `json:"turn_count"`
	CreatedAt   time.Time      `json:"created_at"`
	LastUpdated time.Time      `json:"last_updated"`
}

// Summary condenses a finished (or in-flight) session for the end-session
// response and history views.
type Summary struct {
	SessionID           string              `json:"session_id"`
	TotalTurns          int                 `json:"total_turns"`
	DurationMinutes     float64             `json:"duration_minutes"`
	FinalUrgency        triage.UrgencyLevel `json:"final_urgency"`
	UrgencyDistribution map[string]int      `json:"urgency_distribution"`
	ProbableConditions  []triage.Condition  `json:"probable_conditions"`
	Recommendations     []string            `json:"recommendations"`
	Status              Status              `json:"status"`
}

// CreateRequest defines the payload for starting a new triage session.
type CreateRequest struct {
	Age            *int     `json:"age,omitempty"`
	Sex            string   `json:"sex,omitempty"`
	MedicalHistory []string `json:"medical_history,omitempty"`
	Medications    []string `json:"medications,omitempty"`
	Allergies      []string `json:"allergies,omitempty"`
}

// CreateResponse returns created session metadata.
type CreateResponse struct {
	SessionID string    `json:"session_id"`
	Status    Status    `json:"status"`
	Message   string    `json:"message"`
	MaxTurns  int       `json:"max_turns"`
	CreatedAt time.Time `json:"created_at"`
}
