package types

import "errors"

// ErrorKind is the stable, user-visible failure classification attached to
// a failed task.
type ErrorKind string

const (
	KindInvalidGeometry       ErrorKind = "invalid_geometry"
	KindInsufficientData      ErrorKind = "insufficient_data"
	KindDependencyUnavailable ErrorKind = "dependency_unavailable"
	KindTimeout               ErrorKind = "timeout"
	KindTaskNotFound          ErrorKind = "task_not_found"
	KindCancelled             ErrorKind = "cancelled"
	KindInternal              ErrorKind = "internal"
)

// Sentinel errors for the engine's failure taxonomy. Components wrap these
// with fmt.Errorf("...: %w", ...) and the worker resolves the kind at the
// pipeline boundary with errors.Is.
var (
	ErrInvalidGeometry       = errors.New("invalid geometry")
	ErrInsufficientData      = errors.New("insufficient data")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrTimeout               = errors.New("timeout")
	ErrNoData                = errors.New("no data")
	ErrTaskNotFound          = errors.New("task not found")
	ErrTaskCancelled         = errors.New("task cancelled")
)

// KindOf maps an error chain to its ErrorKind. Unrecognized errors are
// reported as internal rather than leaking ad-hoc messages to callers.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrInvalidGeometry):
		return KindInvalidGeometry
	case errors.Is(err, ErrInsufficientData), errors.Is(err, ErrNoData):
		return KindInsufficientData
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrDependencyUnavailable):
		return KindDependencyUnavailable
	case errors.Is(err, ErrTaskNotFound):
		return KindTaskNotFound
	case errors.Is(err, ErrTaskCancelled):
		return KindCancelled
	default:
		return KindInternal
	}
}
