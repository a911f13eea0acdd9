package history

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned by a strict Manager when an operation runs
// before Configure registered both hooks.
var ErrNotConfigured = errors.New("history hooks not configured")

// ErrInvalidSnapshot indicates captured state did not encode to valid JSON.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// CaptureError wraps a failure to capture or encode the host state.
// No stack is modified when it is returned.
type CaptureError struct {
	Op  string
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("%s: capture state: %v", e.Op, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// RestoreError wraps an error returned by the restore hook.
// The snapshot that failed to restore has already been removed from its stack.
type RestoreError struct {
	Op       string
	Snapshot Snapshot
	Err      error
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("%s: restore state: %v", e.Op, e.Err)
}

func (e *RestoreError) Unwrap() error {
	return e.Err
}
