package routing

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by GraphSource implementations. The matrix
// provider translates them into the typed errors below, which carry the
// offending stop identifiers.
var (
	// ErrNoNearbyNode is returned by NearestNode when no road node lies
	// within the source's snap radius.
	ErrNoNearbyNode = errors.New("no road node within snap radius")

	// ErrNoPath is returned by PathCost when the destination cannot be
	// reached from the origin.
	ErrNoPath = errors.New("no path between nodes")
)

// InputError reports an invalid stop set. It is raised before any
// computation begins.
type InputError struct {
	// Field names the offending field or stop ID when known.
	Field string
	// Message describes the violation.
	Message string
}

// Error returns the string representation of the error.
func (e *InputError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid input: %s", e.Message)
}

// NewInputError creates a new InputError for the given field.
func NewInputError(field, message string) *InputError {
	return &InputError{Field: field, Message: message}
}

// NewInputErrorf creates a new InputError with a formatted message.
func NewInputErrorf(field, format string, args ...interface{}) *InputError {
	return &InputError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// UnreachableStopError reports a stop whose coordinates could not be snapped
// to any road-network node. It is fatal to the run: the optimizer never sees
// a partially built matrix.
type UnreachableStopError struct {
	StopID string
	Lat    float64
	Lon    float64
	// Err is the underlying snap failure, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *UnreachableStopError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stop %q at (%.6f, %.6f) unreachable: %v", e.StopID, e.Lat, e.Lon, e.Err)
	}
	return fmt.Sprintf("stop %q at (%.6f, %.6f) unreachable", e.StopID, e.Lat, e.Lon)
}

// Unwrap returns the underlying error, if any.
func (e *UnreachableStopError) Unwrap() error {
	return e.Err
}

// NoPathError reports a pair of snapped stops with no connecting path on the
// road network. Like UnreachableStopError it aborts the whole run.
type NoPathError struct {
	FromStopID string
	ToStopID   string
	FromNode   int64
	ToNode     int64
}

// Error returns the string representation of the error.
func (e *NoPathError) Error() string {
	return fmt.Sprintf("no path from stop %q (node %d) to stop %q (node %d)",
		e.FromStopID, e.FromNode, e.ToStopID, e.ToNode)
}

// ConfigError reports an invalid optimizer or provider parameter. It is
// raised before the search starts.
type ConfigError struct {
	// Param is the offending parameter name.
	Param string
	// Message describes the constraint that was violated.
	Message string
}

// Error returns the string representation of the error.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Param, e.Message)
}

// NewConfigError creates a new ConfigError for the given parameter.
func NewConfigError(param, message string) *ConfigError {
	return &ConfigError{Param: param, Message: message}
}

// NewConfigErrorf creates a new ConfigError with a formatted message.
func NewConfigErrorf(param, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Param: param, Message: fmt.Sprintf(format, args...)}
}

// AsInputError checks if an error is of type InputError.
// If it is, it returns the error and true. Otherwise, it returns nil and false.
func AsInputError(err error) (*InputError, bool) {
	var e *InputError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// AsUnreachableStopError checks if an error is of type UnreachableStopError.
func AsUnreachableStopError(err error) (*UnreachableStopError, bool) {
	var e *UnreachableStopError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// AsNoPathError checks if an error is of type NoPathError.
func AsNoPathError(err error) (*NoPathError, bool) {
	var e *NoPathError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// AsConfigError checks if an error is of type ConfigError.
func AsConfigError(err error) (*ConfigError, bool) {
	var e *ConfigError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
