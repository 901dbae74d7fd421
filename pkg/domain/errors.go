package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrActionNotFound is returned when no handler is registered for a kind.
var ErrActionNotFound = errors.New("action not found")

// ErrMalformedNode is returned for action trees that cannot be executed at all.
var ErrMalformedNode = errors.New("malformed action node")

// ErrServiceUnavailable is returned by handlers whose service handle is not configured.
var ErrServiceUnavailable = errors.New("service not configured")

// ErrFormNotFound is returned when a form handler addresses an unmounted form.
var ErrFormNotFound = errors.New("form not found")

// ErrCancelled is the cause attached to cancelled results.
var ErrCancelled = errors.New("execution cancelled")

// ErrTimeout is the cause attached to timed out results.
var ErrTimeout = errors.New("action timed out")

// MalformedNodeError points at the node that broke the tree.
type MalformedNodeError struct {
	Path   string
	Reason string
}

func (e *MalformedNodeError) Error() string {
	return fmt.Sprintf("malformed action node at %s: %s", e.Path, e.Reason)
}

func (e *MalformedNodeError) Unwrap() error { return ErrMalformedNode }

// HTTPError is raised by HTTP-backed handlers for non-2xx responses.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       any
}

func (e *HTTPError) Error() string {
	if msg := bodyMessage(e.Body); msg != "" {
		return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.URL, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s %s returned %d", e.Method, e.URL, e.StatusCode)
}

// ErrorKind classifies the error as HttpError.
func (e *HTTPError) ErrorKind() ErrorKind { return ErrorKindHTTPError }

func bodyMessage(body any) string {
	switch b := body.(type) {
	case string:
		return strings.TrimSpace(b)
	case map[string]any:
		for _, key := range []string{"message", "error", "detail"} {
			if s, ok := b[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// ServerValidationError is a field-level error reported by the backend.
type ServerValidationError struct {
	Field   string `json:"field" mapstructure:"field"`
	Message string `json:"message" mapstructure:"message"`
}

// ServerValidationErrors extracts field errors from a failed result whose cause
// is an HTTPError with an "errors" or "fieldErrors" array in its body.
func ServerValidationErrors(result ActionResult) []ServerValidationError {
	var httpErr *HTTPError
	if !result.Failed() || !errors.As(result.Cause, &httpErr) {
		return nil
	}
	body, ok := httpErr.Body.(map[string]any)
	if !ok {
		return nil
	}

	var out []ServerValidationError
	for _, key := range []string{"errors", "fieldErrors"} {
		raw, ok := body[key].([]any)
		if !ok {
			continue
		}
		for _, item := range raw {
			var sve ServerValidationError
			if err := decode(item, &sve); err != nil || sve.Field == "" {
				continue
			}
			out = append(out, sve)
		}
	}
	return out
}

// FormValidationError reports a form whose fields failed validation.
type FormValidationError struct {
	FormID string
	Errors map[string]string
}

func (e *FormValidationError) Error() string {
	if len(e.Errors) == 1 {
		for field, msg := range e.Errors {
			return fmt.Sprintf("form %q: %s: %s", e.FormID, field, msg)
		}
	}
	return fmt.Sprintf("form %q has %d invalid fields", e.FormID, len(e.Errors))
}

// ErrorKind classifies the error as ValidationError.
func (e *FormValidationError) ErrorKind() ErrorKind { return ErrorKindValidationError }
