package reasoning

import (
	"context"

	"github.com/dmauro/triago/internal/retrieval"
	"github.com/dmauro/triago/internal/triage"
)

// Request carries everything the reasoning step needs for one analysis.
type Request struct {
	Symptoms            string
	Duration            string
	Severity            *int
	MedicalHistory      []string
	Context             []retrieval.Snippet
	ConversationContext string
}

// Result is the structured output expected from the reasoning provider.
// Urgency stays a free-form string here; the combiner owns the mapping onto
// the closed enumeration.
type Result struct {
	Urgency             string             `json:"urgency"`
	EmergencyWarning    string             `json:"emergency_warning,omitempty"`
	ProbableConditions  []triage.Condition `json:"probable_conditions"`
	ConfidenceScores    map[string]float64 `json:"confidence_scores"`
	ClarifyingQuestions []string           `json:"clarifying_questions"`
	Reasoning           string             `json:"reasoning"`
	Recommendations     []string           `json:"recommendations"`
	BodySystems         []string           `json:"body_systems_affected"`
	Disclaimer          string             `json:"disclaimer"`
}

// OverallConfidence averages the named confidence metrics, or 0 when the
// provider supplied none.
func (r Result) OverallConfidence() float64 {
	if len(r.ConfidenceScores) == 0 {
		return 0
	}
	var sum float64
	for _, v := range r.ConfidenceScores {
		sum += v
	}
	return sum / float64(len(r.ConfidenceScores))
}

// GenerationOptions are passed through to the underlying provider.
type GenerationOptions struct {
	Temperature float32
	MaxTokens   int
}

// Provider is one reasoning backend. Generate returns the raw text response;
// parsing and validation happen in the analyzer.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string, opts GenerationOptions) (string, error)
}
