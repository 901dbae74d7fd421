package domain

import (
	"errors"
	"fmt"
)

// Status is the terminal state of an executed node.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// ErrorKind classifies failures. Kinds are data, not error types.
type ErrorKind string

const (
	ErrorKindActionNotFound   ErrorKind = "ActionNotFound"
	ErrorKindHandlerException ErrorKind = "HandlerException"
	ErrorKindTimeout          ErrorKind = "Timeout"
	ErrorKindCancelled        ErrorKind = "Cancelled"
	ErrorKindHTTPError        ErrorKind = "HttpError"
	ErrorKindValidationError  ErrorKind = "ValidationError"
	ErrorKindSecurityRejected ErrorKind = "SecurityRejected"
)

// ActionResult is the single outcome every executed node resolves to.
type ActionResult struct {
	Status    Status    `json:"status"`
	Value     any       `json:"value,omitempty"`
	ErrorKind ErrorKind `json:"errorKind,omitempty"`
	Message   string    `json:"message,omitempty"`
	NodeID    string    `json:"nodeId,omitempty"`
	Cause     error     `json:"-"`

	// Patch is the state change produced by a leaf handler, if any.
	Patch *StatePatch `json:"-"`
}

// Succeeded reports a success result.
func (r ActionResult) Succeeded() bool { return r.Status == StatusSuccess }

// Failed reports an error result.
func (r ActionResult) Failed() bool { return r.Status == StatusError }

// Skipped reports a skipped result.
func (r ActionResult) Skipped() bool { return r.Status == StatusSkipped }

// Err converts an error result into a Go error (nil otherwise).
func (r ActionResult) Err() error {
	if !r.Failed() {
		return nil
	}
	return &ActionError{NodeID: r.NodeID, Kind: r.ErrorKind, Message: r.Message, Cause: r.Cause}
}

// Success builds a success result.
func Success(value any) ActionResult {
	return ActionResult{Status: StatusSuccess, Value: value}
}

// Skip builds a skipped result.
func Skip() ActionResult {
	return ActionResult{Status: StatusSkipped}
}

// Failure builds an error result. An empty message is replaced by a readable default.
func Failure(kind ErrorKind, message string, cause error) ActionResult {
	if message == "" {
		message = defaultMessage(kind, cause)
	}
	return ActionResult{Status: StatusError, ErrorKind: kind, Message: message, Cause: cause}
}

// FailureFromError classifies err: errors carrying their own kind keep it,
// anything else is a HandlerException.
func FailureFromError(err error) ActionResult {
	var kinded interface{ ErrorKind() ErrorKind }
	if errors.As(err, &kinded) {
		return Failure(kinded.ErrorKind(), err.Error(), err)
	}
	return Failure(ErrorKindHandlerException, err.Error(), err)
}

func defaultMessage(kind ErrorKind, cause error) string {
	if cause != nil && cause.Error() != "" {
		return cause.Error()
	}
	switch kind {
	case ErrorKindActionNotFound:
		return "action is not registered"
	case ErrorKindTimeout:
		return "action timed out"
	case ErrorKindCancelled:
		return "action was cancelled"
	case ErrorKindHTTPError:
		return "request failed"
	case ErrorKindValidationError:
		return "validation failed"
	case ErrorKindSecurityRejected:
		return "expression rejected"
	default:
		return "action failed"
	}
}

// Output is what a leaf handler returns: a value and an optional state patch.
type Output struct {
	Value any
	Patch *StatePatch
}

// ValueOutput wraps a plain value.
func ValueOutput(v any) Output { return Output{Value: v} }

// PatchOutput wraps a state patch; the patch values double as the result value.
func PatchOutput(p StatePatch) Output { return Output{Value: p.Values, Patch: &p} }

// Execution is the record of one Run: the terminal result and the context
// obtained by applying every state patch, in order, to the input snapshot.
type Execution struct {
	ID      string            `json:"id"`
	Result  ActionResult      `json:"result"`
	Context *ExecutionContext `json:"context,omitempty"`
	Patches []StatePatch      `json:"patches,omitempty"`
}

// ActionError is the Go error form of a failed ActionResult.
type ActionError struct {
	NodeID  string
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *ActionError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("action %q failed (%s): %s", e.NodeID, e.Kind, e.Message)
}

func (e *ActionError) Unwrap() error { return e.Cause }

// ErrorKind lets an ActionError keep its kind when it crosses a handler boundary.
func (e *ActionError) ErrorKind() ErrorKind { return e.Kind }
