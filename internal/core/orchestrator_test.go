package core

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"agenticmd/internal/llm"
	"agenticmd/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scripted stage outputs. historyComplete addresses every OLDCARTS field;
// historyNoSeverity omits every Severity trigger keyword.
const (
	historyComplete = "Onset: the burning began yesterday. Location: urinary tract area. " +
		"Duration: lasts only while urinating. Character: feels like burning. " +
		"Aggravating factors: coffee makes it worse. Relieving factors: water helps. " +
		"Timing: intermittent. Severity: rated 8 on the scale. " +
		"Temporality: never had similar symptoms before."

	historyNoSeverity = "Onset: the burning began yesterday. Location: urinary tract area. " +
		"Duration: lasts only while urinating. Character: feels like burning. " +
		"Aggravating factors: coffee makes it worse. Relieving factors: water helps. " +
		"Timing: intermittent. Temporality: never had similar symptoms before."

	medHistOut = "Chief Complaint: dysuria. History of Present Illness: the patient reports " +
		"a burning sensation during urination beginning one day ago."

	assessOut = "Assessment: findings consistent with an uncomplicated urinary tract " +
		"infection. Differential: urethritis."

	treatOut = "Treatment Plan: recommend a short course of antibiotics with hydration."

	medOut = "Medication: Nitrofurantoin 100 mg twice daily. Dosage and " +
		"contraindications reviewed."

	rxOut = "Rx:\n" +
		"- Nitrofurantoin 100 mg - take one capsule twice daily for 5 days\n" +
		"- Phenazopyridine 200 mg - take one tablet three times daily after meals"
)

func scripted(texts ...string) []llm.FakeResponse {
	out := make([]llm.FakeResponse, len(texts))
	for i, t := range texts {
		out[i] = llm.FakeResponse{Text: t}
	}
	return out
}

func newTestSession(t *testing.T, fake *llm.Fake) *Session {
	t.Helper()
	registry := Stages(3)
	require.NoError(t, ValidateRegistry(registry))
	exec := NewExecutor(fake, nil)
	exec.Backoff = time.Millisecond
	return NewSession("test-session", registry, exec, "I have a burning sensation when I urinate")
}

func TestWorkflowCompletesWithoutFollowUps(t *testing.T) {
	fake := llm.NewFake(scripted(historyComplete, medHistOut, assessOut, treatOut, medOut, rxOut)...)
	s := newTestSession(t, fake)

	require.NoError(t, s.Run(context.Background()))

	view := s.View()
	assert.Equal(t, pkg.StateWorkflowComplete, view.State)
	assert.Empty(t, view.Question)
	// All nine OLDCARTS fields were present on the first pass: one
	// generation per stage, zero follow-up rounds.
	assert.Len(t, fake.Calls(), 6)

	result, err := s.Result()
	require.NoError(t, err)
	assert.Equal(t, assessOut, result.Assessment)
	assert.Equal(t, treatOut, result.TreatmentPlan)
	assert.Equal(t, rxOut, result.Prescription)
	require.Len(t, result.Entries, 2)
	assert.Equal(t, "Nitrofurantoin", result.Entries[0].Name)
	assert.Equal(t, "100 mg", result.Entries[0].Quantity)
	assert.Equal(t, "take one capsule twice daily for 5 days", result.Entries[0].Instructions)
}

func TestSeverityFollowUpAskedExactlyOnce(t *testing.T) {
	fake := llm.NewFake(scripted(historyNoSeverity, historyComplete, medHistOut, assessOut, treatOut, medOut, rxOut)...)
	s := newTestSession(t, fake)

	require.NoError(t, s.Run(context.Background()))

	view := s.View()
	require.Equal(t, pkg.StateAwaitingFollowUp, view.State)
	assert.Equal(t, StageHistory, view.Stage)
	assert.Equal(t, FollowUpQuestion(FieldSeverity), view.Question)

	require.NoError(t, s.SubmitAnswer(context.Background(), "about an 8 out of 10"))

	assert.Equal(t, pkg.StateWorkflowComplete, s.View().State)
	// One extra history generation for the single follow-up round.
	calls := fake.Calls()
	require.Len(t, calls, 7)
	assert.Contains(t, calls[1].User, "about an 8 out of 10")
	assert.Contains(t, calls[1].User, FollowUpQuestion(FieldSeverity))
}

func TestBudgetTerminationAfterExactRounds(t *testing.T) {
	probe := []Stage{{
		ID:           "history",
		Label:        "Patient History",
		Position:     0,
		Instructions: "probe",
		Schema:       []string{FieldOnset},
		Synonyms:     map[string][]string{FieldOnset: {"onset"}},
		MaxFollowUps: 3,
	}}
	require.NoError(t, ValidateRegistry(probe))

	// The generated text never satisfies the schema.
	fake := llm.NewFake(llm.FakeResponse{Text: "nothing useful in here"})
	exec := NewExecutor(fake, nil)
	exec.Backoff = time.Millisecond
	s := NewSession("probe", probe, exec, "hello")

	require.NoError(t, s.Run(context.Background()))
	for round := 1; round <= 3; round++ {
		view := s.View()
		require.Equal(t, pkg.StateAwaitingFollowUp, view.State, "round %d", round)
		require.Equal(t, FollowUpQuestion(FieldOnset), view.Question)
		require.NoError(t, s.SubmitAnswer(context.Background(), "still unclear"))
	}
	// Force-completed after exactly max_follow_ups rounds, not before,
	// not infinitely.
	assert.Equal(t, pkg.StateWorkflowComplete, s.View().State)
	assert.Len(t, fake.Calls(), 4)
}

func TestGenerationFailureReachesFailedState(t *testing.T) {
	boom := errors.New("upstream timeout")
	fake := llm.NewFake(
		llm.FakeResponse{Text: historyComplete},
		llm.FakeResponse{Text: medHistOut},
		llm.FakeResponse{Err: boom},
	)
	s := newTestSession(t, fake)

	err := s.Run(context.Background())
	var gen *GenerationFailure
	require.ErrorAs(t, err, &gen)
	assert.Equal(t, StageAssessment, gen.StageID)

	view := s.View()
	assert.Equal(t, pkg.StateFailed, view.State)
	assert.Equal(t, StageAssessment, view.Stage)
	assert.Contains(t, view.Error, "upstream timeout")

	// No partial WorkflowResult is ever returned.
	_, err = s.Result()
	require.Error(t, err)
	assert.Contains(t, err.Error(), StageAssessment)
}

func TestSubmitAnswerWithoutPendingQuestion(t *testing.T) {
	fake := llm.NewFake(scripted(historyComplete, medHistOut, assessOut, treatOut, medOut, rxOut)...)
	s := newTestSession(t, fake)
	require.NoError(t, s.Run(context.Background()))

	err := s.SubmitAnswer(context.Background(), "unsolicited")
	assert.ErrorIs(t, err, ErrNoPendingQuestion)
}

func TestSnapshotRestoreResumesSuspendedSession(t *testing.T) {
	fake := llm.NewFake(scripted(historyNoSeverity)...)
	s := newTestSession(t, fake)
	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, pkg.StateAwaitingFollowUp, s.View().State)

	data, err := json.Marshal(s.Snapshot())
	require.NoError(t, err)

	// Simulate a process restart: fresh executor, snapshot from storage.
	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	resumedFake := llm.NewFake(scripted(historyComplete, medHistOut, assessOut, treatOut, medOut, rxOut)...)
	exec := NewExecutor(resumedFake, nil)
	exec.Backoff = time.Millisecond
	resumed, err := Restore(snap, Stages(3), exec)
	require.NoError(t, err)

	view := resumed.View()
	assert.Equal(t, pkg.StateAwaitingFollowUp, view.State)
	assert.Equal(t, FollowUpQuestion(FieldSeverity), view.Question)

	require.NoError(t, resumed.SubmitAnswer(context.Background(), "an 8"))
	assert.Equal(t, pkg.StateWorkflowComplete, resumed.View().State)

	result, err := resumed.Result()
	require.NoError(t, err)
	assert.Equal(t, treatOut, result.TreatmentPlan)
}

func TestRestoreRejectsCorruptSnapshot(t *testing.T) {
	exec := NewExecutor(llm.NewFake(), nil)
	_, err := Restore(Snapshot{StageIndex: 99, Context: NewConversationContext("x")}, Stages(3), exec)
	var cfg *ConfigurationError
	require.ErrorAs(t, err, &cfg)

	_, err = Restore(Snapshot{}, Stages(3), exec)
	require.ErrorAs(t, err, &cfg)
}
