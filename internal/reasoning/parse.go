package reasoning

import (
	"encoding/json"
	"strings"

	"github.com/dmauro/triago/internal/triage"
)

// SafeDefaultResult is the conservative fallback returned when the provider
// response cannot be parsed or no provider could be reached. It deliberately
// reads as low-confidence and routine rather than as an authoritative
// all-clear.
func SafeDefaultResult() Result {
	return Result{
		Urgency:            "ROUTINE",
		ProbableConditions: []triage.Condition{},
		ConfidenceScores:   map[string]float64{},
		ClarifyingQuestions: []string{
			"Can you describe your symptoms in more detail?",
			"How long have you been experiencing these symptoms?",
		},
		Reasoning:       "Unable to process the symptom analysis. Please provide more details.",
		Recommendations: []string{"Consult with a healthcare provider for proper evaluation."},
		BodySystems:     []string{},
		Disclaimer:      "This is not a medical diagnosis. Please consult a healthcare professional.",
	}
}

// ParseResult decodes a raw provider response into a Result, stripping any
// Markdown code-fence wrapping first. The boolean reports whether the decode
// succeeded; on failure the safe default is returned instead of an error so
// an unparseable response can never masquerade as a confident verdict.
func ParseResult(raw string) (Result, bool) {
	cleaned := stripCodeFence(raw)

	var res Result
	if err := json.Unmarshal([]byte(cleaned), &res); err != nil {
		return SafeDefaultResult(), false
	}
	if strings.TrimSpace(res.Urgency) == "" {
		return SafeDefaultResult(), false
	}
	if res.ConfidenceScores == nil {
		res.ConfidenceScores = map[string]float64{}
	}
	return res, true
}

// stripCodeFence unwraps ```json ... ``` or ``` ... ``` blocks, returning the
// inner payload. Text without fences passes through trimmed.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)

	if idx := strings.Index(s, "```json"); idx >= 0 {
		s = s[idx+len("```json"):]
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
		return strings.TrimSpace(s)
	}
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+len("```"):]
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
		return strings.TrimSpace(s)
	}
	return s
}
