// Package dErrors defines code-carrying domain errors shared by services and
// the HTTP layer. Services return these; transport maps codes to status codes
// without inspecting error strings.
package dErrors

import "fmt"

// Code classifies a domain error.
type Code string

const (
	CodeBadRequest  Code = "bad_request"
	CodeNotFound    Code = "not_found"
	CodeConflict    Code = "conflict"
	CodeUnavailable Code = "unavailable"
	CodeInternal    Code = "internal_error"
)

// Error is a domain error with a stable code and a human description.
type Error struct {
	Code        Code
	Description string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// New builds a domain error.
func New(code Code, description string) *Error {
	return &Error{Code: code, Description: description}
}

// Wrap builds a domain error that preserves the underlying cause in its
// description for logs while keeping the code for transport.
func Wrap(code Code, msg string, err error) *Error {
	return &Error{Code: code, Description: fmt.Sprintf("%s: %v", msg, err)}
}
