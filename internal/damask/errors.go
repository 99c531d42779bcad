package damask

import (
	"errors"
	"fmt"
	"strings"
)

// Failure classes for artifact parsing.
var (
	// ErrMissingField indicates a mandatory field or block is absent.
	ErrMissingField = errors.New("damask: missing mandatory field")

	// ErrInconsistent indicates fields that are individually valid but disagree
	// with each other (metric key drift, out-of-range index, row count mismatch).
	ErrInconsistent = errors.New("damask: structural inconsistency")

	// ErrUnsupportedShape indicates an array column whose element count has no tensor shape.
	ErrUnsupportedShape = errors.New("damask: unsupported array shape")

	// ErrFormat indicates a token that cannot be converted to the expected type.
	ErrFormat = errors.New("damask: malformed token")
)

// ParseError wraps a failure class with the position it was detected at.
// Increment and Iteration are -1 when not applicable.
type ParseError struct {
	Source    string
	Increment int
	Iteration int
	Key       string
	Detail    string
	Wrapped   error
}

// NewParseError returns a ParseError without position information.
func NewParseError(source string, wrapped error, format string, args ...any) *ParseError {
	return &ParseError{
		Source:    source,
		Increment: -1,
		Iteration: -1,
		Detail:    fmt.Sprintf(format, args...),
		Wrapped:   wrapped,
	}
}

func (e *ParseError) Error() string {
	var parts []string
	if e.Source != "" {
		parts = append(parts, e.Source)
	}
	if e.Increment >= 0 {
		parts = append(parts, fmt.Sprintf("increment %d", e.Increment))
	}
	if e.Iteration >= 0 {
		parts = append(parts, fmt.Sprintf("iteration %d", e.Iteration))
	}
	if e.Key != "" {
		parts = append(parts, fmt.Sprintf("key %q", e.Key))
	}

	var sb strings.Builder
	if len(parts) > 0 {
		sb.WriteString(strings.Join(parts, ", "))
		sb.WriteString(": ")
	}
	if e.Detail != "" {
		sb.WriteString(e.Detail)
		sb.WriteString(": ")
	}
	if e.Wrapped != nil {
		sb.WriteString(e.Wrapped.Error())
	}
	return strings.TrimSuffix(sb.String(), ": ")
}

func (e *ParseError) Unwrap() error {
	return e.Wrapped
}

// AtIncrement records the increment position on err. Errors that are not
// ParseErrors are wrapped in one.
func AtIncrement(err error, position int) error {
	if err == nil {
		return nil
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		if pe.Increment < 0 {
			pe.Increment = position
		}
		return err
	}
	return &ParseError{Increment: position, Iteration: -1, Wrapped: err}
}

// AtIteration records the iteration index on err.
func AtIteration(err error, iteration int) error {
	if err == nil {
		return nil
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		if pe.Iteration < 0 {
			pe.Iteration = iteration
		}
		return err
	}
	return &ParseError{Increment: -1, Iteration: iteration, Wrapped: err}
}
