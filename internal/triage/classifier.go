package triage

import (
	"sort"
	"strings"
)

// Severity tags recorded as evidence when the verdict comes from the reported
// severity score rather than a keyword match.
const (
	evidenceHighSeverity     = "high_severity"
	evidenceModerateSeverity = "moderate_severity"
)

// Classify performs the fast keyword triage pass. Emergency keywords win over
// everything, then urgent keywords, then the reported severity tiers. A nil
// severity means unset, not zero.
func Classify(text string, severity *int) Signal {
	lower := strings.ToLower(text)

	var matched []string
	for _, kw := range emergencyKeywords {
		if strings.Contains(lower, kw) {
			matched = append(matched, kw)
		}
	}
	if len(matched) > 0 {
		return Signal{Urgency: Emergency, Evidence: matched}
	}

	for _, kw := range urgentKeywords {
		if strings.Contains(lower, kw) {
			matched = append(matched, kw)
		}
	}
	if len(matched) > 0 {
		return Signal{Urgency: Urgent, Evidence: matched}
	}

	if severity != nil {
		switch {
		case *severity >= 8:
			return Signal{Urgency: Urgent, Evidence: []string{evidenceHighSeverity}}
		case *severity >= 6:
			return Signal{Urgency: Moderate, Evidence: []string{evidenceModerateSeverity}}
		}
	}

	return Signal{Urgency: Low}
}

// CategorizeBodySystems returns the set of body systems implicated by the
// text, or {"general"} when nothing matches. The result is sorted so callers
// get a stable order out of the underlying map iteration.
func CategorizeBodySystems(text string) []string {
	lower := strings.ToLower(text)

	var affected []string
	for system, keywords := range bodySystems {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				affected = append(affected, system)
				break
			}
		}
	}
	if len(affected) == 0 {
		return []string{"general"}
	}
	sort.Strings(affected)
	return affected
}
