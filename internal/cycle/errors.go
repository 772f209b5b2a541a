package cycle

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes runtime errors.
type ErrorCode string

const (
	// ErrCodeInvalidMain indicates main is nil.
	ErrCodeInvalidMain ErrorCode = "INVALID_MAIN"

	// ErrCodeInvalidDrivers indicates the drivers map is nil or holds a nil driver.
	ErrCodeInvalidDrivers ErrorCode = "INVALID_DRIVERS"

	// ErrCodeEmptyDrivers indicates the drivers map has no entries.
	ErrCodeEmptyDrivers ErrorCode = "EMPTY_DRIVERS"

	// ErrCodeMissingAdapter indicates no stream adapter could be resolved.
	ErrCodeMissingAdapter ErrorCode = "MISSING_ADAPTER"

	// ErrCodeInvalidProxy indicates the adapter produced an invalid placeholder.
	ErrCodeInvalidProxy ErrorCode = "INVALID_PROXY"

	// ErrCodeInvalidSink indicates main returned a sink the adapter rejects.
	ErrCodeInvalidSink ErrorCode = "INVALID_SINK"

	// ErrCodeInvalidSource indicates a driver returned a source the adapter rejects.
	ErrCodeInvalidSource ErrorCode = "INVALID_SOURCE"

	// ErrCodeImitation indicates the adapter failed to bind a proxy at Run.
	ErrCodeImitation ErrorCode = "IMITATION_FAILED"

	// ErrCodeAlreadyRunning indicates Run was called on a running wiring.
	ErrCodeAlreadyRunning ErrorCode = "ALREADY_RUNNING"

	// ErrCodeAlreadyDisposed indicates Run was called on a disposed wiring.
	ErrCodeAlreadyDisposed ErrorCode = "ALREADY_DISPOSED"
)

// Error is returned for argument contract violations and state machine
// misuse.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description naming the offending argument.
	Message string

	// Key is the driver key involved, if any.
	Key string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Key != "" {
		msg = fmt.Sprintf("%s (driver=%s)", msg, e.Key)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsCode reports whether err is an *Error with the given code.
// Uses errors.As to handle wrapped errors.
func IsCode(err error, code ErrorCode) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// SinkError is an error that surfaced through a driver's source after Run.
// It is reported, never returned.
type SinkError struct {
	// Key is the driver whose stream carried the error.
	Key string

	// Err is the error as emitted by the stream.
	Err error
}

// Error returns the original message unchanged so that it can be matched
// verbatim on the diagnostic channel.
func (e *SinkError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the emitted error.
func (e *SinkError) Unwrap() error {
	return e.Err
}

func newInvalidMainError() *Error {
	return &Error{
		Code:    ErrCodeInvalidMain,
		Message: "first argument given to New() must be the 'main' function",
	}
}

func newInvalidDriversError(key string) *Error {
	return &Error{
		Code:    ErrCodeInvalidDrivers,
		Message: "second argument given to New() must be a map of driver functions",
		Key:     key,
	}
}

func newEmptyDriversError() *Error {
	return &Error{
		Code:    ErrCodeEmptyDrivers,
		Message: "second argument given to New() must be a map with at least one driver function declared as a key",
	}
}

func newMissingAdapterError() *Error {
	return &Error{
		Code:    ErrCodeMissingAdapter,
		Message: "third argument given to New() must be a config with the StreamAdapter field supplied with a valid stream adapter",
	}
}
