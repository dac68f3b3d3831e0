package pkg

import "time"

// WorkflowState names the externally visible states of a consultation
// session. Transitions are owned by the orchestrator; callers only read
// these values.
type WorkflowState string

const (
	// StatePending means the orchestrator is ready to run (or re-run) the
	// current stage.
	StatePending WorkflowState = "pending"
	// StateAwaitingFollowUp means the pipeline is suspended on a clarifying
	// question and will not progress until an answer is submitted.
	StateAwaitingFollowUp WorkflowState = "awaiting_followup"
	// StateWorkflowComplete means every stage finalized and a WorkflowResult
	// is available.
	StateWorkflowComplete WorkflowState = "workflow_complete"
	// StateFailed is terminal: generation failed after retries on some stage.
	StateFailed WorkflowState = "failed"
)

// PrescriptionEntry is one medication line of the assembled document.
type PrescriptionEntry struct {
	Name         string `json:"name"`
	Quantity     string `json:"quantity"`
	Instructions string `json:"instructions"`
}

// WorkflowResult holds the finalized clinical artifact for a completed
// consultation. Created once at pipeline completion and immutable after.
type WorkflowResult struct {
	Assessment    string              `json:"assessment"`
	TreatmentPlan string              `json:"treatment_plan"`
	Prescription  string              `json:"prescription"`
	Entries       []PrescriptionEntry `json:"entries"`
}

// StartRequest begins a consultation with the patient's initial free-text
// description of their complaint.
type StartRequest struct {
	PatientText string `json:"patient_text"`
}

// AnswerRequest submits the patient's reply to a pending follow-up question.
type AnswerRequest struct {
	Answer string `json:"answer"`
}

// SessionView is the API representation of a session's current position.
// Question is non-empty only while the session awaits a follow-up answer.
type SessionView struct {
	SessionID string          `json:"session_id"`
	State     WorkflowState   `json:"state"`
	Stage     string          `json:"stage,omitempty"`
	Question  string          `json:"question,omitempty"`
	Error     string          `json:"error,omitempty"`
	Result    *WorkflowResult `json:"result,omitempty"`
	UpdatedAt time.Time       `json:"updated_at,omitempty"`
}
