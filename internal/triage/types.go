package triage

import "strings"

// UrgencyLevel orders triage verdicts by severity.
type UrgencyLevel string

const (
	Emergency UrgencyLevel = "emergency"
	Urgent    UrgencyLevel = "urgent"
	Moderate  UrgencyLevel = "moderate"
	Low       UrgencyLevel = "low"
	Routine   UrgencyLevel = "routine"
	SelfCare  UrgencyLevel = "self_care"
)

// Rank maps an urgency level onto the severity order used for combination.
// Low, routine and self-care share the bottom tier.
func (u UrgencyLevel) Rank() int {
	switch u {
	case Emergency:
		return 3
	case Urgent:
		return 2
	case Moderate:
		return 1
	default:
		return 0
	}
}

// ParseUrgency maps free-form model output onto the closed enumeration.
// Matching is substring-based and case-insensitive; anything unrecognized
// lands on the bottom tier rather than failing.
func ParseUrgency(s string) UrgencyLevel {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "emergency"):
		return Emergency
	case strings.Contains(lower, "urgent"):
		return Urgent
	case strings.Contains(lower, "moderate"), strings.Contains(lower, "routine"):
		return Moderate
	default:
		return Low
	}
}

// Signal is the outcome of keyword classification: an urgency level plus the
// matched keywords (or severity tags) that justify it.
type Signal struct {
	Urgency  UrgencyLevel `json:"urgency"`
	Evidence []string     `json:"evidence"`
}

// Condition is one candidate diagnosis produced by the reasoning step.
type Condition struct {
	Name            string       `json:"name"`
	Probability     float64      `json:"probability"`
	Description     string       `json:"description"`
	UrgencyLevel    UrgencyLevel `json:"urgency_level"`
	Recommendations []string     `json:"recommendations"`
}

// DefaultDisclaimer accompanies every assessment that does not carry a more
// specific one.
const DefaultDisclaimer = "This is not a medical diagnosis. Please consult a healthcare professional."

// Assessment is the terminal output of one triage cycle.
type Assessment struct {
	Urgency             UrgencyLevel `json:"urgency"`
	EmergencyWarning    string       `json:"emergency_warning,omitempty"`
	ProbableConditions  []Condition  `json:"probable_conditions"`
	ClarifyingQuestions []string     `json:"clarifying_questions"`
	Reasoning           string       `json:"reasoning"`
	Recommendations     []string     `json:"recommendations"`
	BodySystems         []string     `json:"body_systems_affected"`
	Disclaimer          string       `json:"disclaimer"`
}
