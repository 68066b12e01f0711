package triage

import (
	"fmt"
	"strings"
)

// EmergencyRecommendations is the fixed call-to-action attached to every
// emergency verdict, whichever layer detected it.
var EmergencyRecommendations = []string{
	"Call 911 immediately",
	"Do not drive yourself",
	"Stay calm and wait for emergency services",
}

// EmergencyWarning renders the warning block for an emergency verdict,
// listing the keyword evidence that triggered it. Returns "" without
// evidence so callers can fall through to the model's own warning text.
func EmergencyWarning(evidence []string) string {
	if len(evidence) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("MEDICAL EMERGENCY DETECTED\n\n")
	b.WriteString("Based on your symptoms, this appears to be a medical emergency.\n\n")
	b.WriteString("IMMEDIATE ACTION REQUIRED:\n")
	b.WriteString("- Call 911 or go to the nearest emergency room immediately\n")
	b.WriteString("- Do not drive yourself if possible\n")
	b.WriteString("- Stay calm and follow emergency operator instructions\n\n")
	fmt.Fprintf(&b, "Emergency indicators detected: %s\n\n", strings.Join(evidence, ", "))
	b.WriteString("This system cannot replace emergency medical care. Please seek immediate professional help.")
	return b.String()
}

// UrgentWarning renders the warning block for an urgent verdict.
func UrgentWarning(evidence []string) string {
	if len(evidence) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("URGENT MEDICAL ATTENTION NEEDED\n\n")
	b.WriteString("Your symptoms require prompt medical evaluation.\n\n")
	b.WriteString("RECOMMENDED ACTION:\n")
	b.WriteString("- Contact your doctor immediately or visit urgent care\n")
	b.WriteString("- If symptoms worsen, go to the emergency room\n")
	b.WriteString("- Monitor your condition closely\n\n")
	fmt.Fprintf(&b, "Urgent indicators detected: %s\n\n", strings.Join(evidence, ", "))
	b.WriteString("Please consult with a healthcare professional as soon as possible.")
	return b.String()
}

// EmergencyAssessment builds the short-circuit assessment returned when the
// keyword pass alone detects an emergency, without waiting on retrieval or
// the reasoning provider.
func EmergencyAssessment(text string, evidence []string) Assessment {
	return Assessment{
		Urgency:             Emergency,
		EmergencyWarning:    EmergencyWarning(evidence),
		ProbableConditions:  []Condition{},
		ClarifyingQuestions: []string{},
		Reasoning:           "Emergency keywords detected in symptoms. Immediate medical attention required.",
		Recommendations:     append([]string(nil), EmergencyRecommendations...),
		BodySystems:         CategorizeBodySystems(text),
		Disclaimer:          "This is a medical emergency. Call 911 now.",
	}
}
