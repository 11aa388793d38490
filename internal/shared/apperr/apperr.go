// Package apperr classifies failures so message handlers can turn any error
// into a structured failure reply instead of letting it escape to the broker.
package apperr

import (
	"errors"
	"fmt"
)

// Code names a failure class with an HTTP-equivalent status.
type Code string

const (
	CodeValidation Code = "validation" // malformed or missing fields -> 400
	CodeNotFound   Code = "not_found"  // referenced entity absent -> 404
	CodeRPCTimeout Code = "rpc_timeout"
	CodeExternal   Code = "external" // collaborator unreachable; degrades, not fatal
	CodeInternal   Code = "internal"
)

// Error carries a failure class alongside the underlying cause.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a classified error without a cause.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Wrap builds a classified error around a cause.
func Wrap(code Code, msg string, err error) *Error {
	return &Error{Code: code, Msg: msg, Err: err}
}

// Validation is shorthand for a 400-class error.
func Validation(msg string) *Error { return New(CodeValidation, msg) }

// NotFound is shorthand for a 404-class error.
func NotFound(msg string) *Error { return New(CodeNotFound, msg) }

// CodeOf extracts the failure class, defaulting to internal for
// unclassified errors.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// HTTPStatus maps a failure class to the status carried in the reply
// envelope. The original services collapse everything unexpected to 400.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeNotFound:
		return 404
	case CodeValidation:
		return 400
	case CodeRPCTimeout, CodeExternal:
		return 503
	default:
		return 400
	}
}
