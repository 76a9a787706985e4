package reliability

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common sentinel errors
var (
	ErrInvalidSequence = errors.New("invalid skill sequence")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrInvalidModel    = errors.New("invalid reliability model")
	ErrNonConvergence  = errors.New("solver did not converge")
	ErrNumericRange    = errors.New("probability out of range")
	ErrTimeout         = errors.New("assessment timed out")
	ErrUnknownSkill    = errors.New("unknown skill")
)

// InvalidSequenceError reports a malformed skill ordering or interval.
// Index is the position of the offending instance in the input sequence.
type InvalidSequenceError struct {
	Index  int
	ID     string
	Reason string
}

func (e *InvalidSequenceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%v: instance %d (%s): %s", ErrInvalidSequence, e.Index, e.ID, e.Reason)
	}
	return fmt.Sprintf("%v: instance %d: %s", ErrInvalidSequence, e.Index, e.Reason)
}

func (e *InvalidSequenceError) Unwrap() error {
	return ErrInvalidSequence
}

// NonConvergenceError is returned when absorption cannot be computed:
// either the iteration bound was hit, or a closed set of transient
// states never reaches an absorbing state.
type NonConvergenceError struct {
	Strategy   string
	Iterations int
	Residual   float64  // last max-abs change between iterates
	States     []string // trapped states, when detected structurally
}

func (e *NonConvergenceError) Error() string {
	if len(e.States) > 0 {
		return fmt.Sprintf("%v: states [%s] form a closed class that never reaches FAILURE or SUCCESS",
			ErrNonConvergence, strings.Join(e.States, " "))
	}
	return fmt.Sprintf("%v: %s strategy stopped after %d iterations (residual %.3g)",
		ErrNonConvergence, e.Strategy, e.Iterations, e.Residual)
}

func (e *NonConvergenceError) Unwrap() error {
	return ErrNonConvergence
}

// NumericRangeError reports a computed probability outside [0,1]
// beyond the clamping tolerance. It indicates a modelling bug.
type NumericRangeError struct {
	Node  string
	Value float64
}

func (e *NumericRangeError) Error() string {
	return fmt.Sprintf("%v: %s evaluated to %.12g", ErrNumericRange, e.Node, e.Value)
}

func (e *NumericRangeError) Unwrap() error {
	return ErrNumericRange
}

// TimeoutError is returned when a caller-specified deadline expires
// before the solve finishes. No partial report accompanies it.
type TimeoutError struct {
	After time.Duration
	Cause error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%v after %s", ErrTimeout, e.After)
}

func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

// Is lets errors.Is match both ErrTimeout and the context cause.
func (e *TimeoutError) Is(target error) bool {
	if target == nil {
		return false
	}
	if target == ErrTimeout {
		return true
	}
	return e.Cause != nil && errors.Is(e.Cause, target)
}

// ModelError provides structured error information for model construction.
type ModelError struct {
	Op      string // Operation that failed (e.g., "NewMarkovModel")
	Entity  string // Entity type (e.g., "state", "gate", "event")
	ID      string // Entity identifier (if applicable)
	Cause   error  // Underlying error
	Context string // Additional context
}

// Error implements the error interface.
func (e *ModelError) Error() string {
	if e.ID != "" {
		if e.Context != "" {
			return fmt.Sprintf("%s %s %q (%s): %v", e.Op, e.Entity, e.ID, e.Context, e.Cause)
		}
		return fmt.Sprintf("%s %s %q: %v", e.Op, e.Entity, e.ID, e.Cause)
	}
	if e.Context != "" {
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Entity, e.Context, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *ModelError) Unwrap() error {
	return e.Cause
}

// ErrorBuilder provides a fluent interface for building ModelErrors.
type ErrorBuilder struct {
	err ModelError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: ModelError{Op: op, Cause: ErrInvalidModel}}
}

// State sets the entity to "state" with the given label.
func (b *ErrorBuilder) State(label string) *ErrorBuilder {
	b.err.Entity = "state"
	b.err.ID = label
	return b
}

// Gate sets the entity to "gate" with the given node id.
func (b *ErrorBuilder) Gate(id string) *ErrorBuilder {
	b.err.Entity = "gate"
	b.err.ID = id
	return b
}

// Event sets the entity to "event" with the given node id.
func (b *ErrorBuilder) Event(id string) *ErrorBuilder {
	b.err.Entity = "event"
	b.err.ID = id
	return b
}

// Entity sets a free-form entity name.
func (b *ErrorBuilder) Entity(entity string) *ErrorBuilder {
	b.err.Entity = entity
	return b
}

// Context adds additional context to the error.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Contextf adds formatted context to the error.
func (b *ErrorBuilder) Contextf(format string, args ...any) *ErrorBuilder {
	b.err.Context = fmt.Sprintf(format, args...)
	return b
}

// Cause sets the underlying cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Build returns the constructed error.
func (b *ErrorBuilder) Build() error {
	e := b.err
	return &e
}
