package retrieval

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ConditionEntry is one knowledge-base record describing a medical condition.
type ConditionEntry struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Symptoms     []string `json:"symptoms"`
	Treatment    string   `json:"treatment,omitempty"`
	Category     string   `json:"category,omitempty"`
	UrgencyLevel string   `json:"urgency_level,omitempty"`
}

type knowledgeBase struct {
	Conditions []ConditionEntry `json:"conditions"`
}

// LoadKnowledgeBase reads a conditions file, or returns the built-in seed set
// when path is empty.
func LoadKnowledgeBase(path string) ([]ConditionEntry, error) {
	if strings.TrimSpace(path) == "" {
		return seedConditions(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base: %w", err)
	}
	var kb knowledgeBase
	if err := json.Unmarshal(data, &kb); err != nil {
		return nil, fmt.Errorf("parse knowledge base: %w", err)
	}
	if len(kb.Conditions) == 0 {
		return nil, fmt.Errorf("knowledge base %s contains no conditions", path)
	}
	return kb.Conditions, nil
}

// seedConditions keeps the service functional with no configured knowledge
// base. Small on purpose: real deployments point KNOWLEDGE_BASE_PATH at a
// curated file.
func seedConditions() []ConditionEntry {
	return []ConditionEntry{
		{
			Name:         "Common Cold",
			Description:  "Viral infection of the upper respiratory tract",
			Symptoms:     []string{"runny nose", "sneezing", "cough", "sore throat"},
			Treatment:    "Rest, fluids, over-the-counter medications",
			Category:     "respiratory",
			UrgencyLevel: "low",
		},
		{
			Name:         "Influenza",
			Description:  "Viral infection causing fever and body aches",
			Symptoms:     []string{"fever", "body aches", "fatigue", "cough"},
			Treatment:    "Rest, fluids, antiviral medications if severe",
			Category:     "respiratory",
			UrgencyLevel: "moderate",
		},
		{
			Name:         "Migraine",
			Description:  "Recurrent headache disorder with moderate to severe attacks",
			Symptoms:     []string{"headache", "nausea", "light sensitivity", "aura"},
			Treatment:    "Rest in a dark room, hydration, prescribed abortive medication",
			Category:     "neurological",
			UrgencyLevel: "moderate",
		},
		{
			Name:         "Gastroenteritis",
			Description:  "Inflammation of the stomach and intestines, usually infectious",
			Symptoms:     []string{"nausea", "vomiting", "diarrhea", "abdominal cramps"},
			Treatment:    "Oral rehydration, rest, bland diet",
			Category:     "gastrointestinal",
			UrgencyLevel: "low",
		},
		{
			Name:         "Acute Coronary Syndrome",
			Description:  "Reduced blood flow to the heart muscle, including heart attack",
			Symptoms:     []string{"chest pain", "shortness of breath", "radiating pain", "sweating"},
			Treatment:    "Emergency medical care",
			Category:     "cardiovascular",
			UrgencyLevel: "emergency",
		},
		{
			Name:         "Anaphylaxis",
			Description:  "Severe systemic allergic reaction with airway compromise",
			Symptoms:     []string{"throat swelling", "difficulty breathing", "hives", "rapid swelling"},
			Treatment:    "Epinephrine and emergency medical care",
			Category:     "immunological",
			UrgencyLevel: "emergency",
		},
	}
}
