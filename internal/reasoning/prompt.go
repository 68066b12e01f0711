package reasoning

import (
	"fmt"
	"strconv"
	"strings"
)

// BuildAnalysisPrompt renders the full symptom-analysis prompt. The output is
// deterministic for a given request so provider calls are reproducible and
// auditable.
func BuildAnalysisPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("You are a medical triage assistant. Analyze the following symptoms and provide a structured assessment.\n\n")

	b.WriteString("PATIENT INFORMATION:\n")
	fmt.Fprintf(&b, "- Symptoms: %s\n", req.Symptoms)
	fmt.Fprintf(&b, "- Duration: %s\n", orNotSpecified(req.Duration))
	severity := "Not specified"
	if req.Severity != nil {
		severity = strconv.Itoa(*req.Severity)
	}
	fmt.Fprintf(&b, "- Severity (1-10): %s\n", severity)
	history := "None provided"
	if len(req.MedicalHistory) > 0 {
		history = strings.Join(req.MedicalHistory, ", ")
	}
	fmt.Fprintf(&b, "- Medical History: %s\n", history)
	fmt.Fprintf(&b, "- Conversation Context: %s\n\n", orNone(req.ConversationContext))

	b.WriteString("RELEVANT MEDICAL CONDITIONS:\n")
	if len(req.Context) == 0 {
		b.WriteString("No specific conditions retrieved\n")
	} else {
		for i, s := range req.Context {
			fmt.Fprintf(&b, "%d. (relevance %.2f) %s\n", i+1, s.Score, s.Content)
		}
	}
	b.WriteString("\n")

	b.WriteString(`ANALYSIS REQUIREMENTS:
1. Assess urgency level: EMERGENCY, URGENT, ROUTINE, or SELF_CARE
2. Identify probable conditions with confidence scores
3. Generate clarifying questions to gather more information
4. Provide evidence-based reasoning
5. Suggest appropriate recommendations
6. Identify affected body systems
7. Include appropriate disclaimers

RESPONSE FORMAT (JSON):
{
    "urgency": "EMERGENCY|URGENT|ROUTINE|SELF_CARE",
    "emergency_warning": "string or null",
    "probable_conditions": [
        {
            "name": "condition name",
            "probability": 0.0,
            "description": "brief description",
            "urgency_level": "emergency|urgent|routine|self_care",
            "recommendations": ["recommendation1", "recommendation2"]
        }
    ],
    "confidence_scores": {
        "overall_confidence": 0.0,
        "condition_confidence": 0.0
    },
    "clarifying_questions": ["question1", "question2", "question3"],
    "reasoning": "detailed reasoning for the assessment",
    "recommendations": ["immediate action 1", "immediate action 2"],
    "body_systems_affected": ["system1", "system2"],
    "disclaimer": "appropriate medical disclaimer"
}

SAFETY GUIDELINES:
- If ANY emergency symptoms are present, set urgency to EMERGENCY
- Always include appropriate disclaimers
- Recommend immediate medical attention for emergencies
- Be conservative in assessments
- Focus on patient safety above all else

Analyze the symptoms now and provide your assessment:
`)

	return b.String()
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not specified"
	}
	return s
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return s
}
