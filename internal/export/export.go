package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dmauro/triago/internal/store"
)

// Format selects the export rendering for a session transcript.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
	FormatPDF  Format = "pdf"
)

// ParseFormat maps a query parameter onto a Format, defaulting to JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "text", "txt":
		return FormatText, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the response media type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatText:
		return "text/plain; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/json"
	}
}

// Transcript is the exportable view of one session.
type Transcript struct {
	Session store.SessionRecord `json:"session"`
	Turns   []store.TurnRecord  `json:"turns"`
}

// Render produces the export document in the requested format.
func Render(f Format, tr Transcript) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.MarshalIndent(tr, "", "  ")
	case FormatText:
		return []byte(renderText(tr)), nil
	case FormatPDF:
		return renderPDF(tr)
	default:
		return nil, fmt.Errorf("unsupported export format %q", f)
	}
}

func renderText(tr Transcript) string {
	var b strings.Builder
	b.WriteString("SYMPTOM TRIAGE SESSION TRANSCRIPT\n")
	b.WriteString("=================================\n\n")
	fmt.Fprintf(&b, "Session: %s\n", tr.Session.ID)
	fmt.Fprintf(&b, "Status: %s\n", tr.Session.Status)
	fmt.Fprintf(&b, "Started: %s\n", tr.Session.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Turns: %d\n", len(tr.Turns))
	if tr.Session.Age != nil {
		fmt.Fprintf(&b, "Patient age: %d\n", *tr.Session.Age)
	}
	if tr.Session.Sex != "" {
		fmt.Fprintf(&b, "Patient sex: %s\n", tr.Session.Sex)
	}
	if len(tr.Session.MedicalHistory) > 0 {
		fmt.Fprintf(&b, "Medical history: %s\n", strings.Join(tr.Session.MedicalHistory, ", "))
	}
	b.WriteString("\n")

	for _, turn := range tr.Turns {
		fmt.Fprintf(&b, "--- Turn %d (%s) ---\n", turn.TurnNumber, turn.Timestamp.Format(time.RFC3339))
		fmt.Fprintf(&b, "Patient: %s\n", turn.UserMessage)
		fmt.Fprintf(&b, "Urgency: %s\n", turn.Assessment.Urgency)
		if turn.Assessment.EmergencyWarning != "" {
			fmt.Fprintf(&b, "Warning: %s\n", turn.Assessment.EmergencyWarning)
		}
		for _, c := range turn.Assessment.ProbableConditions {
			fmt.Fprintf(&b, "Condition: %s (probability %.2f)\n", c.Name, c.Probability)
		}
		if turn.Assessment.Reasoning != "" {
			fmt.Fprintf(&b, "Reasoning: %s\n", turn.Assessment.Reasoning)
		}
		for _, r := range turn.Assessment.Recommendations {
			fmt.Fprintf(&b, "Recommendation: %s\n", r)
		}
		if len(turn.Assessment.ClarifyingQuestions) > 0 {
			fmt.Fprintf(&b, "Questions: %s\n", strings.Join(turn.Assessment.ClarifyingQuestions, " | "))
		}
		fmt.Fprintf(&b, "Disclaimer: %s\n\n", turn.Assessment.Disclaimer)
	}
	return b.String()
}
