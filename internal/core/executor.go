package core

import (
	"context"
	"time"

	"agenticmd/internal/llm"
)

// KnowledgeBase is the reference-lookup capability used by the medication
// stage. It shares the generation capability's failure contract.
type KnowledgeBase interface {
	Query(ctx context.Context, question string) (string, error)
}

// DefaultRetryAttempts and DefaultRetryBackoff bound the retry policy for
// transient generation failures. Backoff doubles per attempt.
const (
	DefaultRetryAttempts = 3
	DefaultRetryBackoff  = 500 * time.Millisecond
)

// Executor invokes the text-generation capability for one stage. The stage
// instruction text goes out as the system-level directive and the rendered
// context as user-level content; the generated text comes back verbatim.
// Transient failures are retried with bounded exponential backoff; after
// exhaustion the caller receives a GenerationFailure carrying the failing
// stage and the last cause.
type Executor struct {
	LLM       llm.Client
	Knowledge KnowledgeBase
	Attempts  int
	Backoff   time.Duration
}

// NewExecutor builds an executor with the default retry policy. kb may be
// nil, in which case the medication stage runs without reference excerpts.
func NewExecutor(client llm.Client, kb KnowledgeBase) *Executor {
	return &Executor{
		LLM:       client,
		Knowledge: kb,
		Attempts:  DefaultRetryAttempts,
		Backoff:   DefaultRetryBackoff,
	}
}

// Run executes one stage against the given input text.
func (e *Executor) Run(ctx context.Context, stage Stage, input string) (string, error) {
	attempts := e.Attempts
	if attempts <= 0 {
		attempts = DefaultRetryAttempts
	}
	backoff := e.Backoff
	if backoff <= 0 {
		backoff = DefaultRetryBackoff
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", &GenerationFailure{StageID: stage.ID, Cause: ctx.Err()}
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		text, err := e.runOnce(ctx, stage, input)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", &GenerationFailure{StageID: stage.ID, Cause: lastErr}
}

func (e *Executor) runOnce(ctx context.Context, stage Stage, input string) (string, error) {
	user := input
	if stage.UseKnowledgeBase && e.Knowledge != nil {
		excerpts, err := e.Knowledge.Query(ctx, knowledgeQueryPreamble+input)
		if err != nil {
			return "", err
		}
		if excerpts != "" {
			user = input + "\n\nReference excerpts:\n" + excerpts
		}
	}
	return e.LLM.Generate(ctx, stage.Instructions, user)
}
