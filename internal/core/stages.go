package core

import "fmt"

// Stage identifiers, in pipeline order.
const (
	StageHistory        = "history"
	StageMedicalHistory = "medical_history"
	StageAssessment     = "assessment"
	StageTreatment      = "treatment"
	StageMedication     = "medication"
	StagePrescription   = "prescription"
)

// Stage is one pipeline step bound to a generation role. Stages are static
// data defined at process start and never mutated at runtime.
type Stage struct {
	// ID uniquely names the stage and keys its context entries.
	ID string
	// Label is the heading used when this stage's output is rendered as
	// input for a downstream stage.
	Label string
	// Position is the ordinal position in the pipeline, starting at 0.
	Position int
	// Instructions is the system-level directive for the generation role.
	Instructions string
	// Schema lists the field names the stage's output must address before
	// it may finalize early. An empty schema means any output is complete.
	Schema []string
	// Synonyms maps each schema field to its trigger keywords. Every schema
	// field must have a non-empty synonym set.
	Synonyms map[string][]string
	// MaxFollowUps caps how many clarifying-question rounds the stage may
	// use before it is force-completed with best-available data. Zero
	// disables follow-ups entirely for the stage.
	MaxFollowUps int
	// Consumes lists the upstream stage IDs whose finalized outputs feed
	// this stage's input, in pipeline order. Only earlier stages may be
	// referenced.
	Consumes []string
	// UseKnowledgeBase marks the stage whose input is augmented with
	// excerpts retrieved from the medication knowledge base.
	UseKnowledgeBase bool
}

// DefaultFollowUpBudget is the clarifying-question cap for the interactive
// history stage unless overridden by configuration.
const DefaultFollowUpBudget = 3

// Stages returns the ordered pipeline registry. Only the history stage is
// interactive; downstream stages run with a zero follow-up budget and
// force-complete on their first pass.
func Stages(followUpBudget int) []Stage {
	if followUpBudget < 0 {
		followUpBudget = DefaultFollowUpBudget
	}
	return []Stage{
		{
			ID:           StageHistory,
			Label:        "Patient History",
			Position:     0,
			Instructions: HistoryInstructions,
			Schema:       append([]string(nil), FieldOrder...),
			Synonyms:     oldcartsSynonyms,
			MaxFollowUps: followUpBudget,
		},
		{
			ID:           StageMedicalHistory,
			Label:        "Medical History",
			Position:     1,
			Instructions: MedicalHistoryInstructions,
			Schema:       []string{"ChiefComplaint", "PresentIllness"},
			Synonyms: map[string][]string{
				"ChiefComplaint": {"chief complaint", "presents with", "complains of"},
				"PresentIllness": {"history of present illness", "hpi", "reports"},
			},
			Consumes: []string{StageHistory},
		},
		{
			ID:           StageAssessment,
			Label:        "Assessment",
			Position:     2,
			Instructions: AssessmentInstructions,
			Schema:       []string{"Assessment"},
			Synonyms: map[string][]string{
				"Assessment": {"assessment", "diagnos", "impression"},
			},
			Consumes: []string{StageHistory, StageMedicalHistory},
		},
		{
			ID:           StageTreatment,
			Label:        "Treatment Plan",
			Position:     3,
			Instructions: TreatmentInstructions,
			Schema:       []string{"Plan"},
			Synonyms: map[string][]string{
				"Plan": {"treatment", "plan", "recommend"},
			},
			Consumes: []string{StageMedicalHistory, StageAssessment},
		},
		{
			ID:           StageMedication,
			Label:        "Medication List",
			Position:     4,
			Instructions: MedicationInstructions,
			Schema:       []string{"Medication"},
			Synonyms: map[string][]string{
				"Medication": {"medication", "dose", "dosage", "mg"},
			},
			Consumes:         []string{StageTreatment},
			UseKnowledgeBase: true,
		},
		{
			ID:           StagePrescription,
			Label:        "Prescription",
			Position:     5,
			Instructions: PrescriptionInstructions,
			Schema:       []string{"Prescription"},
			Synonyms: map[string][]string{
				"Prescription": {"rx", "prescription", "take", "daily"},
			},
			Consumes: []string{StageMedicalHistory, StageTreatment, StageMedication},
		},
	}
}

// ValidateRegistry checks the static invariants of a stage registry: unique
// IDs, contiguous positions, non-empty synonym sets for every schema field,
// and consumption lists that reference only earlier stages in ascending
// order. A violation is a ConfigurationError; callers fail fast on it since
// a cyclic or forward reference would deadlock the orchestrator.
func ValidateRegistry(stages []Stage) error {
	if len(stages) == 0 {
		return &ConfigurationError{Reason: "stage registry is empty"}
	}
	position := map[string]int{}
	for i, st := range stages {
		if st.ID == "" {
			return &ConfigurationError{Reason: fmt.Sprintf("stage at position %d has no id", i)}
		}
		if _, dup := position[st.ID]; dup {
			return &ConfigurationError{Reason: fmt.Sprintf("duplicate stage id %q", st.ID)}
		}
		if st.Position != i {
			return &ConfigurationError{Reason: fmt.Sprintf("stage %q: position %d does not match registry order %d", st.ID, st.Position, i)}
		}
		if st.MaxFollowUps < 0 {
			return &ConfigurationError{Reason: fmt.Sprintf("stage %q: negative follow-up budget", st.ID)}
		}
		for _, field := range st.Schema {
			if len(st.Synonyms[field]) == 0 {
				return &ConfigurationError{Reason: fmt.Sprintf("stage %q: field %q has no synonyms", st.ID, field)}
			}
		}
		prev := -1
		for _, dep := range st.Consumes {
			p, ok := position[dep]
			if !ok {
				return &ConfigurationError{Reason: fmt.Sprintf("stage %q consumes %q, which is not an earlier stage", st.ID, dep)}
			}
			if p <= prev {
				return &ConfigurationError{Reason: fmt.Sprintf("stage %q: consumption list not in pipeline order", st.ID)}
			}
			prev = p
		}
		position[st.ID] = i
	}
	return nil
}

// StageByID finds a stage in the registry.
func StageByID(stages []Stage, id string) (Stage, bool) {
	for _, st := range stages {
		if st.ID == id {
			return st, true
		}
	}
	return Stage{}, false
}
