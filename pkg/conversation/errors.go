package conversation

import (
	"errors"
	"fmt"
)

// Sentinel errors for the conversation package.
var (
	// ErrEmptyInput indicates capture returned nothing to answer.
	ErrEmptyInput = errors.New("conversation: empty input")

	// ErrMissingCollaborator indicates a required dependency was not set.
	ErrMissingCollaborator = errors.New("conversation: missing collaborator")
)

// TurnPanic is recorded when post-processing a reply panics. The turn is
// abandoned and the loop continues.
type TurnPanic struct {
	Value any
}

// Error implements the error interface.
func (e *TurnPanic) Error() string {
	return fmt.Sprintf("conversation: turn panicked: %v", e.Value)
}

// SynthesisError wraps a failure to produce speech for an answer.
type SynthesisError struct {
	Stage string // "tts" or "convert"
	Err   error
}

// Error implements the error interface.
func (e *SynthesisError) Error() string {
	return fmt.Sprintf("conversation: %s failed: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *SynthesisError) Unwrap() error {
	return e.Err
}
