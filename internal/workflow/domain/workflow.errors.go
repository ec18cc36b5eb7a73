package domain

import (
	"errors"
	"fmt"
)

var (
	ErrWorkflowNotFound      = errors.New("workflow not found")
	ErrInstanceNotFound      = errors.New("workflow instance not found")
	ErrInstanceNotActive     = errors.New("workflow instance is not active")
	ErrWorkflowAlreadyExists = errors.New("workflow already registered")
	ErrNoHistory             = errors.New("cannot navigate back from the initial step")
	ErrTooManyInstances      = errors.New("too many active workflow instances")
)

// TransitionError means a step produced no resolvable next step. It flags a
// malformed workflow definition, not a user mistake; the offending instance
// is aborted while other instances and the server keep running.
type TransitionError struct {
	WorkflowID string
	StepID     string
	Field      string
	Value      string
}

func (e *TransitionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("workflow %s: step %s: no transition for %s=%q", e.WorkflowID, e.StepID, e.Field, e.Value)
	}
	return fmt.Sprintf("workflow %s: step %s: no transition resolved", e.WorkflowID, e.StepID)
}

// IsTransitionError returns true when err is (or wraps) a TransitionError.
func IsTransitionError(err error) bool {
	if err == nil {
		return false
	}
	var te *TransitionError
	return errors.As(err, &te)
}
