package reasoning

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/dmauro/triago/internal/triage"
)

// MockProvider produces deterministic local analyses when no real provider is
// configured. Useful for development and for the httpapi tests.
type MockProvider struct{}

func NewMockProvider() *MockProvider { return &MockProvider{} }

func (p *MockProvider) Name() string { return "mock" }

func (p *MockProvider) Generate(ctx context.Context, prompt string, _ GenerationOptions) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	urgency := "ROUTINE"
	lower := strings.ToLower(prompt)
	if strings.Contains(lower, "severe") || strings.Contains(lower, "worsening") {
		urgency = "URGENT"
	}

	res := Result{
		Urgency:            urgency,
		ProbableConditions: []triage.Condition{},
		ConfidenceScores: map[string]float64{
			"overall_confidence": 0.5,
		},
		ClarifyingQuestions: []string{
			"How long have you had these symptoms?",
			"Have the symptoms changed since they started?",
		},
		Reasoning:       "Mock analysis based on symptom description only.",
		Recommendations: []string{"Monitor your symptoms and consult a healthcare provider if they persist."},
		BodySystems:     []string{},
		Disclaimer:      triage.DefaultDisclaimer,
	}
	out, err := json.Marshal(res)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
