package core

import "strings"

// FollowUp is one resolved clarifying-question round for a stage.
type FollowUp struct {
	Field    string `json:"field,omitempty"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ConversationContext accumulates all inputs and outputs across one
// workflow run, keyed by stage. It is owned exclusively by a single
// session and never shared across concurrent patient sessions. All fields
// are exported for JSON serialization so a session can be resumed from
// persisted state verbatim.
type ConversationContext struct {
	// InitialInput is the patient's unstructured opening statement. It
	// feeds the input of stages that consume no upstream output.
	InitialInput string `json:"initial_input"`
	// Outputs holds each stage's finalized text, write-once.
	Outputs map[string]string `json:"outputs"`
	// FollowUps holds resolved (question, answer) pairs per stage, in
	// collection order.
	FollowUps map[string][]FollowUp `json:"follow_ups,omitempty"`
}

// NewConversationContext starts an empty context for one workflow run.
func NewConversationContext(initialInput string) *ConversationContext {
	return &ConversationContext{
		InitialInput: initialInput,
		Outputs:      map[string]string{},
		FollowUps:    map[string][]FollowUp{},
	}
}

// RecordOutput finalizes a stage's output. The write is allowed at most
// once per stage; a second call is an orchestrator bug and fails with
// DuplicateWriteError.
func (c *ConversationContext) RecordOutput(stageID, text string) error {
	if _, exists := c.Outputs[stageID]; exists {
		return &DuplicateWriteError{StageID: stageID}
	}
	c.Outputs[stageID] = text
	return nil
}

// Output returns a stage's finalized text, if recorded.
func (c *ConversationContext) Output(stageID string) (string, bool) {
	text, ok := c.Outputs[stageID]
	return text, ok
}

// AppendFollowUp records a resolved clarifying question for a stage. It is
// only legal while the stage has no finalized output.
func (c *ConversationContext) AppendFollowUp(stageID string, fu FollowUp) error {
	if _, finalized := c.Outputs[stageID]; finalized {
		return &StageAlreadyFinalizedError{StageID: stageID}
	}
	if c.FollowUps == nil {
		c.FollowUps = map[string][]FollowUp{}
	}
	c.FollowUps[stageID] = append(c.FollowUps[stageID], fu)
	return nil
}

// RenderInputFor builds the input text for a stage: the initial patient
// statement when the stage consumes no upstream output, otherwise the
// consumed upstream outputs in pipeline order under their stage labels,
// followed by the stage's own collected follow-up answers in collection
// order. For the same recorded state the result is byte-identical on every
// call: iteration follows the registry's consumption slice and the
// follow-up slice, never map order.
func (c *ConversationContext) RenderInputFor(stage Stage, registry []Stage) string {
	var b strings.Builder
	if len(stage.Consumes) == 0 {
		b.WriteString(c.InitialInput)
	}
	for _, dep := range stage.Consumes {
		text, ok := c.Outputs[dep]
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		label := dep
		if up, found := StageByID(registry, dep); found {
			label = up.Label
		}
		b.WriteString(label)
		b.WriteString(":\n")
		b.WriteString(text)
	}
	for _, fu := range c.FollowUps[stage.ID] {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		if fu.Field != "" {
			b.WriteString(fu.Field)
			b.WriteString(" - ")
		}
		b.WriteString("Q: ")
		b.WriteString(fu.Question)
		b.WriteString("\nA: ")
		b.WriteString(fu.Answer)
	}
	return b.String()
}
