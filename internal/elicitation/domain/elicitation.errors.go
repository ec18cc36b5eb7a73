package domain

import "errors"

// Elicitation domain specific errors
var (
	ErrRequestNotFound = errors.New("elicitation request not found")
	ErrInvalidState    = errors.New("elicitation request is not pending")
	ErrRequestExpired  = errors.New("elicitation request has expired")
	ErrStoreFull       = errors.New("too many pending elicitation requests")
)

// ValidationError indicates a malformed definition or a submitted value that
// does not satisfy the field model. It is user-recoverable and never mutates
// request or workflow state.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// IsValidationError returns true when err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var ve *ValidationError
	return errors.As(err, &ve)
}
