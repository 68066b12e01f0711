package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmauro/triago/internal/session"
	"github.com/dmauro/triago/internal/triage"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeUserMessage   MessageType = "user_message"
	TypeClientControl MessageType = "client_control"
	TypeAssessment    MessageType = "assessment"
	TypeSessionEvent  MessageType = "session_event"
	TypeErrorEvent    MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// UserMessage is one symptom description from the client.
type UserMessage struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Message   string      `json:"message"`
	Duration  string      `json:"duration,omitempty"`
	Severity  *int        `json:"severity,omitempty"`
	TSMs      int64       `json:"ts_ms,omitempty"`
}

// ClientControl carries out-of-band session actions. Supported actions:
// "end_session".
type ClientControl struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Action    string      `json:"action"`
}

// AssessmentEvent delivers the triage verdict for one turn.
type AssessmentEvent struct {
	Type         MessageType       `json:"type"`
	SessionID    string            `json:"session_id"`
	TurnNumber   int               `json:"turn_number"`
	Assessment   triage.Assessment `json:"assessment"`
	Confidence   float64           `json:"confidence"`
	SessionEnded bool              `json:"session_ended"`
}

// SessionEvent announces session lifecycle transitions. The summary is set
// only on "session_ended".
type SessionEvent struct {
	Type      MessageType      `json:"type"`
	SessionID string           `json:"session_id"`
	Code      string           `json:"code"`
	Summary   *session.Summary `json:"summary,omitempty"`
	Detail    string           `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

// ParseClientMessage decodes and validates one inbound websocket frame.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeUserMessage:
		var msg UserMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Message == "" {
			return nil, errors.New("invalid user_message")
		}
		if msg.Severity != nil && (*msg.Severity < 1 || *msg.Severity > 10) {
			return nil, errors.New("severity must be between 1 and 10")
		}
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Action == "" {
			return nil, errors.New("invalid client_control")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
