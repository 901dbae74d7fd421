package expr

import (
	"errors"
	"fmt"
)

// ErrRejected is the sentinel wrapped by every SecurityError.
var ErrRejected = errors.New("expression rejected")

// SyntaxError reports an expression that does not parse.
type SyntaxError struct {
	Expr   string
	Pos    int
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d in %q: %s", e.Pos, e.Expr, e.Reason)
}

// SecurityError reports an expression that references a forbidden identifier.
type SecurityError struct {
	Expr       string
	Identifier string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("expression %q rejected: forbidden identifier %q", e.Expr, e.Identifier)
}

func (e *SecurityError) Unwrap() error { return ErrRejected }
