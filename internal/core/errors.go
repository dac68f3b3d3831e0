package core

import "fmt"

// ConfigurationError reports an invalid stage registry or runtime
// configuration. It is fatal at startup and never recovered.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// DuplicateWriteError indicates a second finalization of the same stage's
// output. This is an orchestrator bug, not a recoverable condition.
type DuplicateWriteError struct {
	StageID string
}

func (e *DuplicateWriteError) Error() string {
	return fmt.Sprintf("stage %s: output already recorded", e.StageID)
}

// StageAlreadyFinalizedError indicates a follow-up append after the stage's
// output was finalized. Also an orchestrator bug.
type StageAlreadyFinalizedError struct {
	StageID string
}

func (e *StageAlreadyFinalizedError) Error() string {
	return fmt.Sprintf("stage %s: cannot append follow-up, output finalized", e.StageID)
}

// GenerationFailure reports that the generation capability failed for a
// stage after the retry policy was exhausted. It wraps the last cause.
type GenerationFailure struct {
	StageID string
	Cause   error
}

func (e *GenerationFailure) Error() string {
	return fmt.Sprintf("stage %s: generation failed: %v", e.StageID, e.Cause)
}

func (e *GenerationFailure) Unwrap() error {
	return e.Cause
}
