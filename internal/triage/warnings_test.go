package triage

import (
	"strings"
	"testing"
)

func TestEmergencyWarningListsEvidence(t *testing.T) {
	w := EmergencyWarning([]string{"chest pain", "can't breathe"})
	if !strings.Contains(w, "chest pain, can't breathe") {
		t.Fatalf("warning missing evidence list: %q", w)
	}
	if !strings.Contains(w, "Call 911") {
		t.Fatalf("warning missing call-to-action: %q", w)
	}
}

func TestWarningsEmptyWithoutEvidence(t *testing.T) {
	if w := EmergencyWarning(nil); w != "" {
		t.Fatalf("EmergencyWarning(nil) = %q, want empty", w)
	}
	if w := UrgentWarning(nil); w != "" {
		t.Fatalf("UrgentWarning(nil) = %q, want empty", w)
	}
}

func TestUrgentWarningDistinctTemplate(t *testing.T) {
	e := EmergencyWarning([]string{"seizure"})
	u := UrgentWarning([]string{"high fever"})
	if e == u {
		t.Fatalf("emergency and urgent warnings should differ")
	}
	if !strings.Contains(u, "urgent care") {
		t.Fatalf("urgent warning missing provider instruction: %q", u)
	}
}

func TestEmergencyAssessmentShape(t *testing.T) {
	a := EmergencyAssessment("crushing chest pain", []string{"chest pain", "crushing pain"})
	if a.Urgency != Emergency {
		t.Fatalf("Urgency = %q, want %q", a.Urgency, Emergency)
	}
	if a.EmergencyWarning == "" {
		t.Fatalf("EmergencyWarning should be set")
	}
	foundCall := false
	for _, r := range a.Recommendations {
		if strings.Contains(r, "911") {
			foundCall = true
		}
	}
	if !foundCall {
		t.Fatalf("Recommendations = %v, want a call-emergency-services instruction", a.Recommendations)
	}
	if len(a.BodySystems) == 0 {
		t.Fatalf("BodySystems should not be empty")
	}
}
