// Package errors defines the TaskError sum type: every component
// in the substrate returns either a success ports.TaskResult or one of the
// two variants below. Neither variant is retried by any caller — retries,
// if ever warranted, belong to the (out-of-scope) provider adapter.
package errors

import (
	"errors"
	"fmt"

	"github.com/nullstream/taskrt/internal/logging"
	"github.com/nullstream/taskrt/internal/ports"
)

// ResourceExhaustionError is raised when a session- or turn-scoped budget
// is exceeded before dispatch.
type ResourceExhaustionError struct {
	Resource ports.ResourceKind
	Reason string // optional finer-grained tag, e.g. "tool_budget_exceeded"
	Used int
	Limit int
}

func (e *ResourceExhaustionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("RESOURCE_EXHAUSTION[%s/%s]: used=%d limit=%d", e.Resource, e.Reason, e.Used, e.Limit)
	}
	return fmt.Sprintf("RESOURCE_EXHAUSTION[%s]: used=%d limit=%d", e.Resource, e.Used, e.Limit)
}

// TaskFailureError carries an enumerated reason and a human-readable
// message, plus optional structured details (e.g. expectedType/actualType
// for output_format_failure).
type TaskFailureError struct {
	Reason ports.FailureReason
	Message string
	Details map[string]any
	Err error
}

func (e *TaskFailureError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("TASK_FAILURE[%s]: %s", e.Reason, e.Message)
	}
	return fmt.Sprintf("TASK_FAILURE[%s]", e.Reason)
}

func (e *TaskFailureError) Unwrap() error {
	return e.Err
}

// NewTaskFailure constructs a TaskFailureError with no wrapped cause.
func NewTaskFailure(reason ports.FailureReason, message string, details map[string]any) *TaskFailureError {
	return &TaskFailureError{Reason: reason, Message: message, Details: details}
}

// NewResourceExhaustion constructs a ResourceExhaustionError.
func NewResourceExhaustion(resource ports.ResourceKind, used, limit int) *ResourceExhaustionError {
	return &ResourceExhaustionError{Resource: resource, Used: used, Limit: limit}
}

// IsResourceExhaustion reports whether err is (or wraps) a
// ResourceExhaustionError.
func IsResourceExhaustion(err error) bool {
	var re *ResourceExhaustionError
	return errors.As(err, &re)
}

// IsTaskFailure reports whether err is (or wraps) a TaskFailureError.
func IsTaskFailure(err error) bool {
	var tf *TaskFailureError
	return errors.As(err, &tf)
}

// AsTaskFailure extracts the TaskFailureError wrapped in err, if any.
func AsTaskFailure(err error) (*TaskFailureError, bool) {
	var tf *TaskFailureError
	if errors.As(err, &tf) {
		return tf, true
	}
	return nil, false
}

// AsResourceExhaustion extracts the ResourceExhaustionError wrapped in err,
// if any.
func AsResourceExhaustion(err error) (*ResourceExhaustionError, bool) {
	var re *ResourceExhaustionError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// ToTaskResult converts an error produced anywhere in the substrate into the
// FAILED TaskResult shape used at the Dispatcher boundary.
func ToTaskResult(err error) ports.TaskResult {
	notes := map[string]any{}
	if re, ok := AsResourceExhaustion(err); ok {
		notes[ports.NoteError] = map[string]any{
			"kind": "RESOURCE_EXHAUSTION",
			"resource": string(re.Resource),
			"reason": re.Reason,
			"used": re.Used,
			"limit": re.Limit,
		}
		return ports.TaskResult{Status: ports.StatusFailed, Notes: notes}
	}
	if tf, ok := AsTaskFailure(err); ok {
		notes[ports.NoteError] = map[string]any{
			"kind": "TASK_FAILURE",
			"reason": string(tf.Reason),
			"message": tf.Message,
			"details": tf.Details,
		}
		return ports.TaskResult{Status: ports.StatusFailed, Notes: notes}
	}
	notes[ports.NoteError] = map[string]any{
		"kind": "TASK_FAILURE",
		"reason": string(ports.ReasonProviderError),
		"message": err.Error(),
	}
	return ports.TaskResult{Status: ports.StatusFailed, Notes: notes}
}

// LogDispatchError logs err exactly once, at the boundary where it is
// converted to a TaskResult or surfaced to a caller: warn for a budget
// that ran out before a result existed, error for everything else. Callers
// (the REPL, the API server) call this at most once per dispatch error, at
// the point they call ToTaskResult, so an error is never logged twice as it
// propagates back up the call stack.
func LogDispatchError(logger logging.Logger, msg string, err error) {
	logger = logging.OrNop(logger)
	if IsResourceExhaustion(err) {
		logger.Warn(msg, "err", err)
		return
	}
	logger.Error(msg, "err", err)
}
