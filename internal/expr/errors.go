package expr

import (
	"errors"
	"fmt"
)

// ParseError reports a malformed expression at compile time
type ParseError struct {
	Expr string // the full expression text
	Pos  int    // byte offset of the offending token
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d: %s", e.Pos, e.Msg)
}

func newParseError(expr string, pos int, format string, args ...interface{}) *ParseError {
	return &ParseError{Expr: expr, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// EvalError reports a runtime evaluation failure: a missing field without a
// null-guard, a type or arity mismatch, or an arithmetic fault
type EvalError struct {
	Msg string
	err error // optional wrapped cause
}

func (e *EvalError) Error() string {
	return "eval error: " + e.Msg
}

func (e *EvalError) Unwrap() error {
	return e.err
}

func newEvalError(format string, args ...interface{}) *EvalError {
	return &EvalError{Msg: fmt.Sprintf(format, args...)}
}

// ErrMissingField marks an EvalError caused by a reference to an absent
// field. The null-handling builtins (isnull, nz, coalesce) absorb this
// class of failure; everything else propagates it.
var ErrMissingField = errors.New("missing field")

func newMissingFieldError(path string) *EvalError {
	return &EvalError{Msg: fmt.Sprintf("field %q is not present in context", path), err: ErrMissingField}
}

// IsMissingField reports whether err is a missing-field evaluation error
func IsMissingField(err error) bool {
	return errors.Is(err, ErrMissingField)
}
