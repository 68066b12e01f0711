package triage

import "strings"

// DefaultEmergencyConfidenceThreshold is the model confidence above which a
// model-reported emergency is accepted at full strength. Below it the verdict
// is downgraded to urgent instead of discarded.
const DefaultEmergencyConfidenceThreshold = 0.7

// Combine merges the keyword signal with the model's free-form urgency output
// into one final verdict. Keyword-detected emergencies always win; a
// model-detected emergency needs confidence above threshold to hold, and is
// otherwise kept as urgent so the signal is never lost entirely.
func Combine(keywordUrgency UrgencyLevel, modelUrgency string, confidence, threshold float64) UrgencyLevel {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultEmergencyConfidenceThreshold
	}
	model := ParseUrgency(modelUrgency)

	if keywordUrgency == Emergency {
		return Emergency
	}
	if model == Emergency && confidence > threshold {
		return Emergency
	}
	if keywordUrgency == Urgent {
		return Urgent
	}
	switch model {
	case Emergency:
		return Urgent
	case Urgent:
		return Urgent
	case Moderate:
		return Moderate
	default:
		return Low
	}
}

// AssessConfidence derives an overall confidence score from symptom detail and
// condition agreement, used when the model response carries no usable
// confidence scores of its own.
func AssessConfidence(symptoms string, conditions []Condition) float64 {
	if len(strings.TrimSpace(symptoms)) < 10 {
		return 0.3
	}
	if len(conditions) == 0 {
		return 0.4
	}

	confidence := 0.5
	if wordCount(symptoms) > 10 {
		confidence += 0.1
	}

	var maxProb float64
	var sum float64
	for _, c := range conditions {
		if c.Probability > maxProb {
			maxProb = c.Probability
		}
		sum += c.Probability
	}
	confidence += maxProb * 0.3

	if len(conditions) > 1 && sum/float64(len(conditions)) > 0.5 {
		confidence += 0.1
	}

	if confidence > 1.0 {
		return 1.0
	}
	return confidence
}

func wordCount(s string) int {
	count := 0
	inWord := false
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\t' {
			inWord = false
			continue
		}
		if !inWord {
			count++
			inWord = true
		}
	}
	return count
}
