package triage

import "testing"

func TestCombineKeywordEmergencyAlwaysWins(t *testing.T) {
	for _, model := range []string{"", "self_care", "ROUTINE", "garbage", "EMERGENCY"} {
		for _, conf := range []float64{0, 0.5, 1} {
			if got := Combine(Emergency, model, conf, 0.7); got != Emergency {
				t.Fatalf("Combine(emergency, %q, %v) = %q, want %q", model, conf, got, Emergency)
			}
		}
	}
}

func TestCombineModelEmergencyConfidenceBoundary(t *testing.T) {
	if got := Combine(Low, "EMERGENCY", 0.9, 0.7); got != Emergency {
		t.Fatalf("high-confidence model emergency = %q, want %q", got, Emergency)
	}
	// Threshold is exclusive: exactly 0.7 is not enough.
	if got := Combine(Low, "EMERGENCY", 0.7, 0.7); got != Urgent {
		t.Fatalf("threshold-confidence model emergency = %q, want %q", got, Urgent)
	}
	if got := Combine(Low, "EMERGENCY", 0.5, 0.7); got != Urgent {
		t.Fatalf("low-confidence model emergency = %q, want %q", got, Urgent)
	}
}

func TestCombinePrecedenceTable(t *testing.T) {
	tests := []struct {
		name    string
		keyword UrgencyLevel
		model   string
		conf    float64
		want    UrgencyLevel
	}{
		{"keyword urgent beats model moderate", Urgent, "moderate", 0.9, Urgent},
		{"model urgent", Low, "This looks URGENT to me", 0.4, Urgent},
		{"model moderate", Low, "moderate", 0.4, Moderate},
		{"routine maps to moderate tier", Low, "ROUTINE", 0.6, Moderate},
		{"both low", Low, "self_care", 0.9, Low},
		{"empty model string", Low, "", 0.9, Low},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Combine(tt.keyword, tt.model, tt.conf, 0.7); got != tt.want {
				t.Fatalf("Combine(%q, %q, %v) = %q, want %q", tt.keyword, tt.model, tt.conf, got, tt.want)
			}
		})
	}
}

func TestCombineInvalidThresholdFallsBack(t *testing.T) {
	if got := Combine(Low, "emergency", 0.8, 0); got != Emergency {
		t.Fatalf("Combine with zero threshold = %q, want %q", got, Emergency)
	}
}

func TestParseUrgency(t *testing.T) {
	tests := []struct {
		in   string
		want UrgencyLevel
	}{
		{"EMERGENCY", Emergency},
		{"this is an emergency situation", Emergency},
		{"Urgent", Urgent},
		{"moderate concern", Moderate},
		{"routine checkup", Moderate},
		{"self_care", Low},
		{"", Low},
		{"nonsense", Low},
	}
	for _, tt := range tests {
		if got := ParseUrgency(tt.in); got != tt.want {
			t.Fatalf("ParseUrgency(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAssessConfidence(t *testing.T) {
	if got := AssessConfidence("vague", nil); got != 0.3 {
		t.Fatalf("vague symptoms confidence = %v, want 0.3", got)
	}
	if got := AssessConfidence("persistent cough with mild fever", nil); got != 0.4 {
		t.Fatalf("no-condition confidence = %v, want 0.4", got)
	}
	conds := []Condition{
		{Name: "common cold", Probability: 0.8},
		{Name: "flu", Probability: 0.6},
	}
	got := AssessConfidence("persistent dry cough with mild fever and fatigue for the last three days", conds)
	// 0.5 base + 0.1 detail + 0.8*0.3 max prob + 0.1 agreement
	if got < 0.93 || got > 0.95 {
		t.Fatalf("detailed confidence = %v, want ~0.94", got)
	}
}

func TestUrgencyRankOrdering(t *testing.T) {
	if !(Emergency.Rank() > Urgent.Rank() && Urgent.Rank() > Moderate.Rank() && Moderate.Rank() > Low.Rank()) {
		t.Fatalf("rank ordering broken: %d %d %d %d", Emergency.Rank(), Urgent.Rank(), Moderate.Rank(), Low.Rank())
	}
	if Routine.Rank() != Low.Rank() || SelfCare.Rank() != Low.Rank() {
		t.Fatalf("routine/self_care should share the bottom tier")
	}
}
