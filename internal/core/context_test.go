package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOutputWriteOnce(t *testing.T) {
	c := NewConversationContext("initial complaint")
	require.NoError(t, c.RecordOutput(StageHistory, "first"))

	err := c.RecordOutput(StageHistory, "second")
	var dup *DuplicateWriteError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, StageHistory, dup.StageID)

	// The first write is untouched.
	text, ok := c.Output(StageHistory)
	require.True(t, ok)
	assert.Equal(t, "first", text)
}

func TestAppendFollowUpAfterFinalizeFails(t *testing.T) {
	c := NewConversationContext("initial complaint")
	require.NoError(t, c.AppendFollowUp(StageHistory, FollowUp{Question: "q1", Answer: "a1"}))
	require.NoError(t, c.RecordOutput(StageHistory, "done"))

	err := c.AppendFollowUp(StageHistory, FollowUp{Question: "q2", Answer: "a2"})
	var finalized *StageAlreadyFinalizedError
	require.ErrorAs(t, err, &finalized)
	assert.Equal(t, StageHistory, finalized.StageID)
}

func TestRenderInputForDeterministic(t *testing.T) {
	registry := Stages(3)
	c := NewConversationContext("I have chest pain")
	require.NoError(t, c.AppendFollowUp(StageHistory, FollowUp{Field: FieldOnset, Question: "When did it start?", Answer: "Two days ago"}))
	require.NoError(t, c.AppendFollowUp(StageHistory, FollowUp{Field: FieldSeverity, Question: "How severe?", Answer: "7 out of 10"}))
	require.NoError(t, c.RecordOutput(StageHistory, "history text"))
	require.NoError(t, c.RecordOutput(StageMedicalHistory, "medical history text"))

	assessment, ok := StageByID(registry, StageAssessment)
	require.True(t, ok)

	first := c.RenderInputFor(assessment, registry)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.RenderInputFor(assessment, registry))
	}
	// Upstream outputs appear in pipeline order under their labels.
	assert.Equal(t, "Patient History:\nhistory text\n\nMedical History:\nmedical history text", first)
}

func TestRenderInputForHistoryStage(t *testing.T) {
	registry := Stages(3)
	history, ok := StageByID(registry, StageHistory)
	require.True(t, ok)

	c := NewConversationContext("burning when I urinate")
	assert.Equal(t, "burning when I urinate", c.RenderInputFor(history, registry))

	require.NoError(t, c.AppendFollowUp(StageHistory, FollowUp{Field: FieldSeverity, Question: "On a scale of 1-10, how severe are your symptoms?", Answer: "about an 8"}))
	rendered := c.RenderInputFor(history, registry)
	assert.Equal(t,
		"burning when I urinate\n"+
			"Severity - Q: On a scale of 1-10, how severe are your symptoms?\n"+
			"A: about an 8",
		rendered)
}

func TestConversationContextJSONRoundTrip(t *testing.T) {
	registry := Stages(3)
	c := NewConversationContext("initial")
	require.NoError(t, c.AppendFollowUp(StageHistory, FollowUp{Field: FieldOnset, Question: "q", Answer: "a"}))
	require.NoError(t, c.RecordOutput(StageHistory, "out"))

	data, err := json.Marshal(c)
	require.NoError(t, err)
	var restored ConversationContext
	require.NoError(t, json.Unmarshal(data, &restored))

	history, _ := StageByID(registry, StageHistory)
	assert.Equal(t, c.RenderInputFor(history, registry), restored.RenderInputFor(history, registry))
	text, ok := restored.Output(StageHistory)
	require.True(t, ok)
	assert.Equal(t, "out", text)
}
