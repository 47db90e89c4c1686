// Package errors provides error context and stack capture for the lastmile
// routing service. Service-layer failures are wrapped here; domain errors
// (invalid input, unreachable stops) stay typed in the routing package and
// pass through unwrapped so handlers can map them to status codes.
package errors

import (
	"fmt"
	"runtime"
	"strings"
)

// Error is an error with operation context and a captured stack trace.
type Error struct {
	// Err is the underlying error, if any.
	Err error
	// Message describes the failure.
	Message string
	// Operation names what was being attempted, e.g. "matrix.Build".
	Operation string
	// Component names the package or subsystem, e.g. "roadnet".
	Component string
	// Stack holds the captured stack trace.
	Stack []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	if e.Message != "" {
		b.WriteString(e.Message)
	}
	if e.Operation != "" {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString("operation=")
		b.WriteString(e.Operation)
	}
	if e.Component != "" {
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString("component=")
		b.WriteString(e.Component)
	}
	if e.Err != nil {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithOperation sets the operation and returns the error.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// WithComponent sets the component and returns the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// StackTrace returns the captured stack trace.
func (e *Error) StackTrace() []string {
	return e.Stack
}

// New creates an error with a message and captures the stack.
func New(msg string) *Error {
	return &Error{
		Message: msg,
		Stack:   captureStack(),
	}
}

// Errorf creates an error with a formatted message and captures the stack.
func Errorf(format string, args ...interface{}) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(),
	}
}

// Wrap adds a message to an existing error, capturing the stack when the
// error is not already an *Error. Wrapping nil returns nil.
func Wrap(err error, msg string) *Error {
	if err == nil {
		return nil
	}

	e, ok := err.(*Error)
	if !ok {
		e = &Error{
			Err:   err,
			Stack: captureStack(),
		}
	}
	if msg != "" {
		e.Message = msg
	}
	return e
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// captureStack records the caller frames above this package.
func captureStack() []string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]string, 0, n)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") && !strings.Contains(frame.File, "internal/errors") {
			stack = append(stack, fmt.Sprintf("%s\n\t%s:%d", frame.Function, frame.File, frame.Line))
		}
		if !more {
			break
		}
	}
	return stack
}
