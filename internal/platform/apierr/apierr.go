// Package apierr carries the error taxonomy shared by every service:
// NotFound, Conflict, FailedPrecondition, Unavailable and CascadeFailure.
// Services return *Error values; HTTP handlers map them to a status with
// Status(). NotFound/Conflict/FailedPrecondition are terminal, Unavailable
// is caller-retryable, CascadeFailure names the store and step that failed
// so the whole cascade can be rerun.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeFailedPrecondition Code = "failed_precondition"
	CodeUnavailable        Code = "unavailable"
	CodeCascadeFailure     Code = "cascade_failure"
)

type Error struct {
	Code   Code
	Reason string
	Err    error

	// Set on CodeCascadeFailure only.
	Store string
	Step  string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Reason
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Store != "" || e.Step != "" {
		msg = fmt.Sprintf("%s (store=%s step=%s)", msg, e.Store, e.Step)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(reason string) *Error {
	return &Error{Code: CodeNotFound, Reason: reason}
}

func Conflict(reason string) *Error {
	return &Error{Code: CodeConflict, Reason: reason}
}

func FailedPrecondition(reason string) *Error {
	return &Error{Code: CodeFailedPrecondition, Reason: reason}
}

func Unavailable(reason string, err error) *Error {
	return &Error{Code: CodeUnavailable, Reason: reason, Err: err}
}

func CascadeFailure(store, step string, err error) *Error {
	return &Error{Code: CodeCascadeFailure, Reason: "cascade step failed", Store: store, Step: step, Err: err}
}

func Is(err error, code Code) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

func IsNotFound(err error) bool { return Is(err, CodeNotFound) }
func IsConflict(err error) bool { return Is(err, CodeConflict) }

// Status maps a taxonomy code to its HTTP equivalent. Anything outside the
// taxonomy is a 500.
func Status(err error) int {
	var ae *Error
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError
	}
	switch ae.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeFailedPrecondition:
		return http.StatusPreconditionFailed
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeCascadeFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode extracts the machine code for response envelopes.
func ErrorCode(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return string(ae.Code)
	}
	return "internal"
}
