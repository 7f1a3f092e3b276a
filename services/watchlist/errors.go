package watchlist

import "errors"

// ErrUnauthorized is returned when no caller identity was resolved for a
// mutating operation. Reads degrade to neutral results instead.
var ErrUnauthorized = errors.New("unauthorized")

// ValidationError reports malformed input. It is always detected before any
// I/O and is safe to show to the user.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// ConflictError reports an attempted creation of an entry that already
// exists. It is informational, not a system fault.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// PersistenceError wraps a storage-layer failure. Its message is the only
// thing that may cross the API boundary; the cause stays in the logs.
type PersistenceError struct {
	Action string
	Err    error
}

func (e *PersistenceError) Error() string {
	return "failed to " + e.Action
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
