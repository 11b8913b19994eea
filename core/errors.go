package core

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned by session stores when an append targets an
// unknown session id. The orchestrator always calls GetOrCreate first, so
// seeing this error indicates a programming bug rather than a runtime
// condition.
var ErrSessionNotFound = errors.New("session not found")

// StageErrorKind identifies which pipeline stage an error escaped from.
type StageErrorKind string

const (
	StageTranscription StageErrorKind = "transcription"
	StageGeneration    StageErrorKind = "generation"
	StageSynthesis     StageErrorKind = "synthesis"
	StageStorage       StageErrorKind = "storage"
)

// StageError wraps an adapter-level failure with the stage it occurred in.
// Only transcription and synthesis stage errors ever reach the caller;
// generation and storage failures are absorbed inside their stages.
type StageError struct {
	Kind StageErrorKind
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// NewTranscriptionError wraps an adapter failure from the transcription stage.
func NewTranscriptionError(err error) *StageError {
	return &StageError{Kind: StageTranscription, Err: err}
}

// NewGenerationError wraps a per-candidate failure inside the fallback loop.
func NewGenerationError(err error) *StageError {
	return &StageError{Kind: StageGeneration, Err: err}
}

// NewSynthesisError wraps an adapter failure from the synthesis stage.
func NewSynthesisError(err error) *StageError {
	return &StageError{Kind: StageSynthesis, Err: err}
}

// NewStorageError wraps an artifact store failure. Always non-fatal.
func NewStorageError(err error) *StageError {
	return &StageError{Kind: StageStorage, Err: err}
}

// IsStage reports whether err is a StageError of the given kind.
func IsStage(err error, kind StageErrorKind) bool {
	var se *StageError
	return errors.As(err, &se) && se.Kind == kind
}
