package core

// prompts.go defines the instruction text bound to each pipeline stage,
// the canonical follow-up question per OLDCARTS field, and the keyword
// tables the completeness checker matches against. Keeping these in a
// separate file makes them easy to tweak without touching the rest of
// the code.

const (
	// HistoryInstructions drives the history-taking stage. The stage must
	// cover every OLDCARTS dimension before the orchestrator lets it
	// finalize.
	HistoryInstructions = "You are an expert medical assistant conducting detailed " +
		"history-taking from a patient presenting with a medical complaint. " +
		"Structure your output with the OLDCARTS framework and label each element " +
		"explicitly: Onset, Location, Duration, Character, Aggravating factors, " +
		"Relieving factors, Timing, Severity, Temporality. Be concise, avoid " +
		"medical jargon, and base every statement only on what the patient said. " +
		"Return the patient's history."

	// MedicalHistoryInstructions compiles the raw history into a clinical
	// narrative (chief complaint + history of present illness).
	MedicalHistoryInstructions = "You are an emergency room doctor synthesizing a patient's " +
		"symptom history collected with the OLDCARTS framework. Produce a structured, " +
		"medically coherent narrative for a clinical audience: state the Chief Complaint, " +
		"then a History of Present Illness paragraph integrating all OLDCARTS elements, " +
		"then Medications, Allergies and relevant Social or Family History when mentioned. " +
		"Use standard clinical language. Do not speculate beyond the provided data."

	// AssessmentInstructions produces the clinical assessment.
	AssessmentInstructions = "Analyze the patient history and symptoms to provide a " +
		"comprehensive medical assessment. Identify potential diagnoses and key " +
		"clinical observations, labelling the sections Assessment and Differential."

	// TreatmentInstructions produces the treatment plan.
	TreatmentInstructions = "Based on the medical assessment, recommend an evidence-based " +
		"treatment plan. Consider the patient's history and current condition. Label the " +
		"output Treatment Plan and list concrete recommendations."

	// MedicationInstructions builds the medication list, optionally informed
	// by reference excerpts retrieved from the medication knowledge base.
	MedicationInstructions = "You are the medication management agent. Using the treatment " +
		"plan and any reference excerpts provided, produce a comprehensive Medication list. " +
		"For each medication include dosage, frequency, common side effects and " +
		"contraindications. Check for potential interactions."

	// PrescriptionInstructions formats the final prescription document text.
	PrescriptionInstructions = "Generate a precise medical prescription following standard " +
		"Rx writing protocols. List each medication on its own line as: name, dose, " +
		"then dash, then patient instructions (frequency and duration). Ensure clarity, " +
		"dosage accuracy and safety."

	// knowledgeQueryPreamble prefixes the treatment text when querying the
	// medication knowledge base.
	knowledgeQueryPreamble = "Based on the following treatment recommendations, identify " +
		"relevant medications, their dosages, common side effects, and contraindications:\n"
)

// OLDCARTS field names. FieldOrder below is the canonical precedence used
// to pick which missing field to ask about next.
const (
	FieldOnset       = "Onset"
	FieldLocation    = "Location"
	FieldDuration    = "Duration"
	FieldCharacter   = "Character"
	FieldAggravating = "Aggravating"
	FieldRelieving   = "Relieving"
	FieldTiming      = "Timing"
	FieldSeverity    = "Severity"
	FieldTemporality = "Temporality"
)

// FieldOrder fixes the follow-up precedence: the first missing field in
// this order is always the one asked about, so the interrogation sequence
// is deterministic regardless of what a given response omits.
var FieldOrder = []string{
	FieldOnset,
	FieldLocation,
	FieldDuration,
	FieldCharacter,
	FieldAggravating,
	FieldRelieving,
	FieldTiming,
	FieldSeverity,
	FieldTemporality,
}

// followUpQuestions maps each OLDCARTS field to its canonical patient-facing
// clarifying question.
var followUpQuestions = map[string]string{
	FieldOnset:       "When did these symptoms first begin?",
	FieldLocation:    "Where exactly do you feel these symptoms?",
	FieldDuration:    "How long do these symptoms typically last?",
	FieldCharacter:   "How would you describe the nature of these symptoms?",
	FieldAggravating: "What makes these symptoms worse?",
	FieldRelieving:   "What makes these symptoms better?",
	FieldTiming:      "Do these symptoms follow any particular pattern or timing?",
	FieldSeverity:    "On a scale of 1-10, how severe are your symptoms?",
	FieldTemporality: "Have you experienced similar symptoms before?",
}

// FollowUpQuestion returns the canonical question for a field. Unknown
// fields get a generic prompt so the pipeline never stalls on a schema
// extension that lacks a question.
func FollowUpQuestion(field string) string {
	if q, ok := followUpQuestions[field]; ok {
		return q
	}
	return "Could you tell me more about the " + field + " of your symptoms?"
}

// oldcartsSynonyms lists, per field, the trigger keywords whose presence in
// generated text counts as the field being addressed. The match is a
// case-insensitive substring check, a cheap proxy rather than a semantic
// one; the history instructions ask the model to label fields explicitly
// so the field names themselves are the primary triggers.
var oldcartsSynonyms = map[string][]string{
	FieldOnset:       {"onset", "began", "started", "when"},
	FieldLocation:    {"location", "located", "where", "area"},
	FieldDuration:    {"duration", "how long", "lasts", "lasting"},
	FieldCharacter:   {"character", "describe", "nature", "feels like"},
	FieldAggravating: {"aggravat", "worse", "worsen"},
	FieldRelieving:   {"reliev", "better", "helps"},
	FieldTiming:      {"timing", "intermittent", "constant", "pattern"},
	FieldSeverity:    {"severity", "severe", "scale", "intensity"},
	FieldTemporality: {"temporality", "previous episode", "similar symptoms", "recurr"},
}
