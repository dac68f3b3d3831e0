package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"agenticmd/pkg"
)

// ErrNoPendingQuestion is returned by SubmitAnswer when the session is not
// suspended on a follow-up.
var ErrNoPendingQuestion = errors.New("session has no pending follow-up question")

// Session owns one workflow run: an orchestrator position, its private
// ConversationContext and the per-stage follow-up budgets. Each patient
// session constructs its own Session; nothing here is shared process-wide.
//
// The state machine per stage: render input, execute the generation role,
// run the completeness check, then either finalize and advance (all fields
// present, or budget exhausted) or suspend on the canonical question for
// the first missing field in OLDCARTS precedence. Suspension is the only
// point where the pipeline yields for external input, and the session is
// resumable from a Snapshot across process restarts.
type Session struct {
	mu sync.Mutex

	id       string
	registry []Stage
	exec     *Executor

	convo      *ConversationContext
	stageIndex int
	state      pkg.WorkflowState
	remaining  map[string]int

	pendingField    string
	pendingQuestion string

	failureStage  string
	failureReason string

	result *pkg.WorkflowResult
}

// NewSession starts a session over a validated registry with the patient's
// initial text. Call Run to drive it to its first suspension or completion.
func NewSession(id string, registry []Stage, exec *Executor, patientText string) *Session {
	remaining := make(map[string]int, len(registry))
	for _, st := range registry {
		remaining[st.ID] = st.MaxFollowUps
	}
	return &Session{
		id:        id,
		registry:  registry,
		exec:      exec,
		convo:     NewConversationContext(patientText),
		state:     pkg.StatePending,
		remaining: remaining,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Run advances the pipeline until it suspends on a follow-up question,
// completes, or fails. It is a no-op when the session is not in the
// pending state.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx)
}

// SubmitAnswer resolves the pending follow-up question with the patient's
// answer, decrements the stage's remaining budget and re-runs the stage
// with the augmented input.
func (s *Session) SubmitAnswer(ctx context.Context, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != pkg.StateAwaitingFollowUp {
		return ErrNoPendingQuestion
	}
	stage := s.registry[s.stageIndex]
	fu := FollowUp{Field: s.pendingField, Question: s.pendingQuestion, Answer: answer}
	if err := s.convo.AppendFollowUp(stage.ID, fu); err != nil {
		return err
	}
	s.remaining[stage.ID]--
	s.pendingField = ""
	s.pendingQuestion = ""
	s.state = pkg.StatePending
	return s.run(ctx)
}

func (s *Session) run(ctx context.Context) error {
	for s.state == pkg.StatePending {
		stage := s.registry[s.stageIndex]
		input := s.convo.RenderInputFor(stage, s.registry)

		text, err := s.exec.Run(ctx, stage, input)
		if err != nil {
			s.state = pkg.StateFailed
			s.failureStage = stage.ID
			s.failureReason = err.Error()
			return err
		}

		result := Check(text, stage.Schema, stage.Synonyms)
		if result.Complete() || s.remaining[stage.ID] <= 0 {
			if err := s.convo.RecordOutput(stage.ID, text); err != nil {
				return err
			}
			if s.stageIndex == len(s.registry)-1 {
				s.state = pkg.StateWorkflowComplete
				s.result = s.buildResult()
				return nil
			}
			s.stageIndex++
			continue
		}

		field := FirstMissing(result.Missing)
		s.pendingField = field
		s.pendingQuestion = FollowUpQuestion(field)
		s.state = pkg.StateAwaitingFollowUp
		return nil
	}
	return nil
}

func (s *Session) buildResult() *pkg.WorkflowResult {
	assessment, _ := s.convo.Output(StageAssessment)
	treatment, _ := s.convo.Output(StageTreatment)
	prescription, _ := s.convo.Output(StagePrescription)
	return &pkg.WorkflowResult{
		Assessment:    assessment,
		TreatmentPlan: treatment,
		Prescription:  prescription,
		Entries:       Assemble(prescription),
	}
}

// View reports the session's current externally visible position.
func (s *Session) View() pkg.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	view := pkg.SessionView{
		SessionID: s.id,
		State:     s.state,
	}
	switch s.state {
	case pkg.StateWorkflowComplete:
		view.Result = s.result
	case pkg.StateFailed:
		view.Stage = s.failureStage
		view.Error = s.failureReason
	default:
		view.Stage = s.registry[s.stageIndex].ID
		view.Question = s.pendingQuestion
	}
	return view
}

// Result returns the finalized WorkflowResult, or an error while the
// workflow is incomplete or failed. No partial result is ever exposed.
func (s *Session) Result() (*pkg.WorkflowResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case pkg.StateWorkflowComplete:
		return s.result, nil
	case pkg.StateFailed:
		return nil, fmt.Errorf("session %s failed at stage %s: %s", s.id, s.failureStage, s.failureReason)
	default:
		return nil, fmt.Errorf("session %s is not complete", s.id)
	}
}

// Snapshot is the serializable form of a session: everything needed to
// resume exactly where it suspended (context contents, stage position,
// pending question and per-stage remaining budgets).
type Snapshot struct {
	ID              string               `json:"id"`
	State           pkg.WorkflowState    `json:"state"`
	StageIndex      int                  `json:"stage_index"`
	Remaining       map[string]int       `json:"remaining"`
	PendingField    string               `json:"pending_field,omitempty"`
	PendingQuestion string               `json:"pending_question,omitempty"`
	Context         *ConversationContext `json:"context"`
	FailureStage    string               `json:"failure_stage,omitempty"`
	FailureReason   string               `json:"failure_reason,omitempty"`
	Result          *pkg.WorkflowResult  `json:"result,omitempty"`
}

// Snapshot captures the session state for persistence.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining := make(map[string]int, len(s.remaining))
	for k, v := range s.remaining {
		remaining[k] = v
	}
	return Snapshot{
		ID:              s.id,
		State:           s.state,
		StageIndex:      s.stageIndex,
		Remaining:       remaining,
		PendingField:    s.pendingField,
		PendingQuestion: s.pendingQuestion,
		Context:         s.convo,
		FailureStage:    s.failureStage,
		FailureReason:   s.failureReason,
		Result:          s.result,
	}
}

// Restore rebuilds a session from a snapshot against the current registry
// and executor. The snapshot must come from the same registry shape.
func Restore(snap Snapshot, registry []Stage, exec *Executor) (*Session, error) {
	if snap.Context == nil {
		return nil, &ConfigurationError{Reason: "snapshot has no conversation context"}
	}
	if snap.StageIndex < 0 || snap.StageIndex >= len(registry) {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("snapshot stage index %d out of range", snap.StageIndex)}
	}
	remaining := make(map[string]int, len(registry))
	for _, st := range registry {
		remaining[st.ID] = st.MaxFollowUps
	}
	for k, v := range snap.Remaining {
		remaining[k] = v
	}
	return &Session{
		id:              snap.ID,
		registry:        registry,
		exec:            exec,
		convo:           snap.Context,
		stageIndex:      snap.StageIndex,
		state:           snap.State,
		remaining:       remaining,
		pendingField:    snap.PendingField,
		pendingQuestion: snap.PendingQuestion,
		failureStage:    snap.FailureStage,
		failureReason:   snap.FailureReason,
		result:          snap.Result,
	}, nil
}
