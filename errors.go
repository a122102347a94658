package mousepca

import (
	"fmt"
)

// ShapeMismatchError reports a frame whose flattened dimension disagrees
// with the model or basis it was handed to.  It is fatal for the offending
// session but never for the batch.
type ShapeMismatchError struct {
	// Session key the frame belongs to, may be empty for bare frames
	Session string
	// Want is the expected flattened dimension
	Want int
	// Got is the dimension received
	Got int
}

func (e *ShapeMismatchError) Error() string {

	if e.Session == "" {
		return fmt.Sprintf("shape mismatch: want dimension %d, got %d",
			e.Want, e.Got)
	}

	return fmt.Sprintf("shape mismatch in session %s: want dimension %d, got %d",
		e.Session, e.Want, e.Got)
}

// InsufficientDataError reports that too few observations were accumulated
// to produce the requested number of components.
type InsufficientDataError struct {
	// Observations folded into the trainer
	Observations int
	// Requested component count
	Requested int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d observations cannot support %d components",
		e.Observations, e.Requested)
}

// SessionError wraps a per-session failure with the offending session key so
// batch reports always identify the source recording.
type SessionError struct {
	Key string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s: %v", e.Key, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}
