package domain

import (
	"errors"
	"fmt"
)

// ErrAlreadyAcknowledged signals a redelivered kvittering for a batch that is
// already in a terminal state. Callers treat it as a no-op, not a failure.
var ErrAlreadyAcknowledged = errors.New("batch already acknowledged")

// ErrIllegalTransition signals a lifecycle transition that the state machine
// does not permit.
var ErrIllegalTransition = errors.New("illegal batch transition")

// ValidationError rejects malformed input before any external call. Never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// InconsistencyError means the stored payment history contradicts itself, for
// example overlapping timeline entries or a reactivation that cannot be covered
// from history. The computation that found it must halt; a best-effort result
// would be financially wrong.
type InconsistencyError struct {
	Message string
}

func (e *InconsistencyError) Error() string {
	return "inconsistent payment history: " + e.Message
}

func inconsistencyf(format string, args ...any) error {
	return &InconsistencyError{Message: fmt.Sprintf(format, args...)}
}
