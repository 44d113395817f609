// Package apperr defines the error kinds surfaced by the query service and
// how they map onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error kind.
type Code string

const (
	CodeValidation  Code = "VALIDATION"  // 400
	CodeNotFound    Code = "NOT_FOUND"   // 404
	CodeForeignKey  Code = "FOREIGN_KEY" // 409
	CodeConflict    Code = "CONFLICT"    // 409
	CodePersistence Code = "PERSISTENCE" // 500
	CodeFetch       Code = "FETCH"       // 502
)

// Error is a structured error carrying a code, an HTTP status and an
// optional cause.
type Error struct {
	Code    Code
	Status  int
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports input rejected before any persistence happened.
func Validation(field, msg string) *Error {
	return &Error{
		Code:    CodeValidation,
		Status:  http.StatusBadRequest,
		Message: msg,
		Details: map[string]any{"field": field},
	}
}

// NotFound reports an unknown identifier.
func NotFound(kind string, id any) *Error {
	return &Error{
		Code:    CodeNotFound,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("%s not found: %v", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
	}
}

// ForeignKey reports a record referencing a query that does not exist.
func ForeignKey(queryID uint) *Error {
	return &Error{
		Code:    CodeForeignKey,
		Status:  http.StatusConflict,
		Message: fmt.Sprintf("query %d does not exist", queryID),
		Details: map[string]any{"query_id": queryID},
	}
}

// Conflict reports a write that contradicts the stored state.
func Conflict(msg string) *Error {
	return &Error{
		Code:    CodeConflict,
		Status:  http.StatusConflict,
		Message: msg,
	}
}

// Persistence wraps a store failure.
func Persistence(op string, err error) *Error {
	return &Error{
		Code:    CodePersistence,
		Status:  http.StatusInternalServerError,
		Message: op,
		Err:     err,
	}
}

// Fetch wraps a provider failure that is surfaced to the caller.
func Fetch(msg string, err error) *Error {
	return &Error{
		Code:    CodeFetch,
		Status:  http.StatusBadGateway,
		Message: msg,
		Err:     err,
	}
}

// Is reports whether err, or any error it wraps, is an *Error with code.
func Is(err error, code Code) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// StatusOf returns the HTTP status for err, 500 for unknown errors.
func StatusOf(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// CodeOf returns the code for err, CodePersistence for unknown errors.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodePersistence
}
