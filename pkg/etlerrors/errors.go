// Package etlerrors provides structured error handling for the migration
// pipeline with error categorization, key-value context and stack traces.
//
// # Overview
//
// Every component reports failures as an *Error carrying an ErrorType.
// The type, not the message, drives policy:
//   - source_read and record_construction errors abort the run
//   - target_write errors abort or are skipped, depending on configuration
//   - config and validation errors are reported before any data moves
//
// # Basic Usage
//
//	rows, err := db.QueryContext(ctx, query)
//	if err != nil {
//	    return etlerrors.Wrap(err, etlerrors.ErrorTypeSourceRead, "failed to query table").
//	        WithDetail("table", table)
//	}
//
// Error instances are not safe for concurrent modification. Add details
// before sharing an error across goroutines.
package etlerrors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error, used to pick a failure policy.
type ErrorType string

const (
	// ErrorTypeSourceRead represents a failed read from the source store
	ErrorTypeSourceRead ErrorType = "source_read"
	// ErrorTypeRecordConstruction represents a row that cannot be mapped to a record
	ErrorTypeRecordConstruction ErrorType = "record_construction"
	// ErrorTypeTargetWrite represents a failed batch write to the target store
	ErrorTypeTargetWrite ErrorType = "target_write"
	// ErrorTypeConnection represents a failure to open or reach a store
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeConfig represents invalid or missing configuration
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeValidation represents invalid arguments or table ordering
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeInternal represents internal errors
	ErrorTypeInternal ErrorType = "internal"
)

// Error represents a structured error with context.
//
// Fields:
//   - Type: Categorizes the error for handling strategies
//   - Message: Human-readable error description
//   - Cause: The underlying error that caused this error
//   - Details: Key-value pairs providing additional context
//   - Stack: Call stack at the point of error creation
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack.
type StackFrame struct {
	Function string // Fully qualified function name
	File     string // Source file path
	Line     int    // Line number in source file
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error. Calls can be chained.
//
// Example:
//
//	err := etlerrors.New(etlerrors.ErrorTypeValidation, "batch too large").
//	    WithDetail("table", "film_work").
//	    WithDetail("params", 70000)
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message, capturing the
// call stack at the point of creation.
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf is New with a formatted message.
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context, preserving the
// original error as the cause. If the error is already an *Error its stack
// trace is kept. Returns nil if err is nil; callers should only wrap
// non-nil errors to avoid returning a typed nil through the error interface.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType reports whether the outermost *Error in err's chain has the given type.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// HasType reports whether any *Error in err's chain has the given type.
// A record_construction error wrapped as source_read matches both.
func HasType(err error, errType ErrorType) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Type == errType {
			return true
		}
		err = e.Cause
	}
	return false
}

// IsFatal reports whether err must abort the whole migration regardless of
// the configured write policy.
func IsFatal(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return true
	}

	switch e.Type {
	case ErrorTypeTargetWrite:
		return false
	default:
		return true
	}
}

// DetailsOf returns the details of the outermost *Error in err's chain.
func DetailsOf(err error) map[string]interface{} {
	var e *Error
	if !errors.As(err, &e) {
		return nil
	}
	return e.Details
}

// captureStack captures the current call stack up to maxFrames deep,
// skipping the specified number of frames from the top.
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
