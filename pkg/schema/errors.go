package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents a single param failure.
type ValidationError struct {
	Key    string
	Reason string
	Value  any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("param %q: %s", e.Key, e.Reason)
}

// AggregateError represents multiple param failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d invalid params: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// ValidationErrors returns all validation errors if err is an AggregateError.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}
