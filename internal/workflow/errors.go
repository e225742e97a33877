package workflow

import "fmt"

// NotFoundError reports an unknown pipeline id. No core state is touched and
// no network call is made.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("pipeline %q not found", e.ID)
}

// ValidationError reports an input payload that fails the minimum-content
// precondition. It is raised before any network round trip.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// SessionError reports a failed session acquisition. No steps ran and no
// partial results exist.
type SessionError struct {
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session acquisition failed: %v", e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// StepError reports a step whose remote query failed or timed out. The
// remaining steps are not attempted and there is no automatic retry. Partial
// holds the answers of the steps completed before the failure so the caller
// can decide whether they are still useful.
type StepError struct {
	// Index is the zero-based position of the failed step.
	Index int
	// Role is the failed step's analysis role.
	Role string
	// Completed counts the steps that finished before the failure.
	Completed int
	// Partial is the accumulator at the moment of failure. Never nil.
	Partial *Accumulator
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s) failed after %d completed: %v", e.Index+1, e.Role, e.Completed, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
