package triage

// emergencyKeywords trigger an immediate EMERGENCY verdict on substring match.
// Ordering is stable so the evidence list is deterministic for a given input.
var emergencyKeywords = []string{
	"chest pain", "crushing pain", "radiating pain", "squeezing chest",
	"difficulty breathing", "can't breathe", "gasping", "choking",
	"sudden severe headache", "worst headache", "thunderclap headache",
	"slurred speech", "face drooping", "arm weakness", "facial paralysis",
	"severe bleeding", "heavy bleeding", "hemorrhage", "uncontrolled bleeding",
	"unconscious", "loss of consciousness", "passed out", "unresponsive",
	"severe allergic reaction", "anaphylaxis", "throat swelling", "airway closing",
	"suicidal", "want to die", "kill myself", "end my life",
	"seizure", "convulsions", "fitting",
	"severe abdominal pain", "rigid abdomen", "board-like abdomen",
	"severe burn", "large burn", "third degree burn",
	"poisoning", "overdose", "swallowed poison",
	"severe head injury", "head trauma", "skull fracture",
	"stroke symptoms", "stroke", "brain attack",
	"heart attack", "myocardial infarction",
}

// urgentKeywords trigger an URGENT verdict when no emergency keyword matched.
var urgentKeywords = []string{
	"high fever", "fever over 103", "persistent fever", "fever 104",
	"severe pain", "pain 8", "pain 9", "pain 10", "unbearable pain",
	"persistent vomiting", "can't keep anything down", "vomiting blood",
	"blood in stool", "blood in urine", "coughing blood", "bloody discharge",
	"severe injury", "broken bone", "deep cut", "deep wound",
	"severe dehydration", "very dehydrated", "no urination",
	"severe rash", "spreading rash", "painful rash",
	"eye injury", "vision loss", "sudden vision change", "eye trauma",
	"severe swelling", "rapid swelling", "swelling spreading",
}

// bodySystems maps each system tag to the symptom keywords that implicate it.
var bodySystems = map[string][]string{
	"respiratory": {
		"breathing", "cough", "lungs", "chest", "wheezing",
		"shortness of breath", "respiratory", "airway",
	},
	"cardiovascular": {
		"heart", "chest pain", "palpitations", "pulse",
		"blood pressure", "circulation", "cardiac",
	},
	"gastrointestinal": {
		"stomach", "nausea", "vomiting", "diarrhea", "abdominal",
		"bowel", "intestinal", "digestive", "gastric",
	},
	"neurological": {
		"headache", "dizziness", "confusion", "numbness", "tingling",
		"weakness", "seizure", "neurological", "brain",
	},
	"musculoskeletal": {
		"pain", "joint", "muscle", "back", "sprain",
		"fracture", "bone", "tendon", "ligament",
	},
	"dermatological": {
		"skin", "rash", "itching", "lesion", "wound",
		"burn", "cut", "bruise", "swelling",
	},
	"mental_health": {
		"anxiety", "depression", "stress", "panic", "mood",
		"mental", "psychological", "psychiatric",
	},
	"general": {
		"fever", "fatigue", "weakness", "weight loss",
		"malaise", "tired", "exhausted",
	},
}
