// Package dberr defines the error kinds raised by the session layer itself.
// Failures coming from GORM or the database driver are returned unmodified and
// never carry one of these codes.
package dberr

import (
	"errors"
	"fmt"
	"strings"
)

// Code classifies session-layer failures.
type Code string

const (
	CodeInvalidArgument      Code = "invalid_argument"
	CodeInvalidConfiguration Code = "invalid_configuration"
	CodeInvalidOperation     Code = "invalid_operation"
)

var (
	// ErrInvalidArgument matches any error carrying CodeInvalidArgument.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidConfiguration matches any error carrying CodeInvalidConfiguration.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrInvalidOperation matches any error carrying CodeInvalidOperation.
	ErrInvalidOperation = errors.New("invalid operation")
)

// Error is the canonical session-layer error.
type Error struct {
	Code    Code
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is the sentinel for e's code.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	return sentinelFor(e.Code) == target
}

func sentinelFor(code Code) error {
	switch code {
	case CodeInvalidArgument:
		return ErrInvalidArgument
	case CodeInvalidConfiguration:
		return ErrInvalidConfiguration
	case CodeInvalidOperation:
		return ErrInvalidOperation
	default:
		return nil
	}
}

// NewError builds an error with explicit code + operation.
func NewError(code Code, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates an existing error with a code.
func Wrap(code Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// NilArgument reports a required argument that was nil.
func NilArgument(op, name string) error {
	return NewError(CodeInvalidArgument, op, fmt.Sprintf("%s must not be nil", name), nil)
}

// InvalidConfiguration reports a configuration problem.
func InvalidConfiguration(op, message string) error {
	return NewError(CodeInvalidConfiguration, op, message, nil)
}

// InvalidOperation reports a call that is not valid in the current state.
func InvalidOperation(op, message string) error {
	return NewError(CodeInvalidOperation, op, message, nil)
}

// IsCode checks whether err (or wrapped err) carries the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// CodeOf extracts the code when available.
func CodeOf(err error) Code {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Code
}
