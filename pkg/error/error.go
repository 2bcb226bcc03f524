package error

import (
	"fmt"
	"runtime"
	"strings"
)

// ErrorCategory classifies errors by their nature and appropriate handling strategy.
// The store never retries on its own; the category tells the caller whether a
// retry, a reformat, or a code fix is the sensible reaction.
type ErrorCategory int

const (
	// ErrCategoryUser represents errors caused by invalid caller input.
	// Examples: writing an identifier outside the schema, reading a variable
	// that was never written, a malformed geometry.
	ErrCategoryUser ErrorCategory = iota

	// ErrCategorySystem represents failures reported by the block device.
	// Flash wear or a failed program is not safely retryable from inside the store.
	ErrCategorySystem

	// ErrCategoryData represents an on-device state the store cannot interpret,
	// such as two ACTIVE pages outside of recovery.
	ErrCategoryData
)

func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryUser:
		return "user"
	case ErrCategorySystem:
		return "system"
	case ErrCategoryData:
		return "data"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Error codes produced by the store.
const (
	CodeDevice            = "DEVICE_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidIdentifier = "INVALID_IDENTIFIER"
	CodeInconsistent      = "INCONSISTENT"
	CodeInvalidConfig     = "INVALID_CONFIG"
)

// Sentinels for errors.Is. A StoreError matches a sentinel when their codes match.
var (
	ErrDevice            = &StoreError{Code: CodeDevice, Category: ErrCategorySystem, Message: "device operation failed"}
	ErrNotFound          = &StoreError{Code: CodeNotFound, Category: ErrCategoryUser, Message: "variable not found"}
	ErrInvalidIdentifier = &StoreError{Code: CodeInvalidIdentifier, Category: ErrCategoryUser, Message: "identifier not in schema"}
	ErrInconsistent      = &StoreError{Code: CodeInconsistent, Category: ErrCategoryData, Message: "inconsistent page state"}
	ErrInvalidConfig     = &StoreError{Code: CodeInvalidConfig, Category: ErrCategoryUser, Message: "invalid configuration"}
)

// StoreError represents a structured store error with rich context information.
type StoreError struct {
	// Code is a unique identifier for this error type (e.g., "DEVICE_ERROR", "NOT_FOUND").
	Code string

	// Category classifies the error for appropriate handling strategy.
	Category ErrorCategory

	// Message is a human-readable description of what went wrong.
	Message string

	// Detail provides additional context about the specific error instance.
	// Example: "page0=ACTIVE page1=ACTIVE".
	Detail string

	// Operation identifies the store operation that was being performed.
	// Examples: "Write", "Transfer", "Recover", "ClearPage".
	Operation string

	// Component identifies where the error originated.
	// Examples: "PageState", "RecordLog", "Recovery", "Flash".
	Component string

	// Cause is the underlying error that triggered this error.
	Cause error

	// Stack contains the call stack where this error was created.
	Stack []uintptr
}

// New creates a new StoreError with the specified code, category, and message.
func New(category ErrorCategory, code, message string) *StoreError {
	return &StoreError{
		Code:     code,
		Category: category,
		Message:  message,
		Stack:    captureStack(),
	}
}

// Wrap wraps an existing error with store-specific context information.
// If the error is already a StoreError, it enriches the existing error with
// operation and component context (only if not already set).
func Wrap(err error, code, operation, component string) *StoreError {
	if err == nil {
		return nil
	}

	if se, ok := err.(*StoreError); ok {
		if se.Operation == "" {
			se.Operation = operation
		}
		if se.Component == "" {
			se.Component = component
		}
		return se
	}

	return &StoreError{
		Code:      code,
		Category:  ErrCategorySystem,
		Message:   err.Error(),
		Operation: operation,
		Component: component,
		Cause:     err,
		Stack:     captureStack(),
	}
}

// Device wraps a failure reported by the block device.
func Device(err error, operation, component string) *StoreError {
	return Wrap(err, CodeDevice, operation, component)
}

// NotFound reports a read of a variable with no record yet.
func NotFound(operation, detail string) *StoreError {
	e := New(ErrCategoryUser, CodeNotFound, ErrNotFound.Message)
	e.Operation = operation
	e.Detail = detail
	return e
}

// InvalidIdentifier reports a write outside the fixed schema.
func InvalidIdentifier(operation, detail string) *StoreError {
	e := New(ErrCategoryUser, CodeInvalidIdentifier, ErrInvalidIdentifier.Message)
	e.Operation = operation
	e.Detail = detail
	return e
}

// Inconsistent reports a marker configuration the caller cannot act on.
func Inconsistent(operation, detail string) *StoreError {
	e := New(ErrCategoryData, CodeInconsistent, ErrInconsistent.Message)
	e.Operation = operation
	e.Detail = detail
	return e
}

// InvalidConfig reports a rejected geometry or schema.
func InvalidConfig(detail string) *StoreError {
	e := New(ErrCategoryUser, CodeInvalidConfig, ErrInvalidConfig.Message)
	e.Detail = detail
	return e
}

// captureStack captures the current call stack for debugging purposes.
// It skips the first 3 frames to exclude captureStack, New/Wrap, and the
// immediate caller, focusing on the actual error origin.
func captureStack() []uintptr {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	return pcs[0:n]
}

// Error implements the standard Go error interface
//
// The format follows the pattern:
// [ERROR_CODE] Message: Detail (operation: Operation, component: Component) caused by: underlying error
func (e *StoreError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Detail != "" {
		b.WriteString(fmt.Sprintf(": %s", e.Detail))
	}

	if e.Operation != "" {
		b.WriteString(fmt.Sprintf(" (operation: %s", e.Operation))
		if e.Component != "" {
			b.WriteString(fmt.Sprintf(", component: %s", e.Component))
		}
		b.WriteString(")")
	}

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(" caused by: %v", e.Cause))
	}

	return b.String()
}

// Unwrap returns the underlying cause error, enabling error chain traversal
// with Go's standard error handling functions like errors.Is and errors.As.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Is matches any StoreError carrying the same code, so callers can test
// against the package sentinels.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// FormatStack returns a human-readable stack trace for debugging purposes.
func (e *StoreError) FormatStack() string {
	if len(e.Stack) == 0 {
		return ""
	}

	var b strings.Builder
	frames := runtime.CallersFrames(e.Stack)

	b.WriteString("Stack trace:\n")
	for {
		f, more := frames.Next()
		b.WriteString(fmt.Sprintf("  %s\n    %s:%d\n",
			f.Function, f.File, f.Line))
		if !more {
			break
		}
	}

	return b.String()
}
