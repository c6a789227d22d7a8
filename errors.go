package eloquent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/eloquent/dialect/sql"
)

// Standard sentinel errors for common operations.
var (
	// ErrInvalidArgument is matched by errors caused by malformed clause
	// arguments, e.g. a between clause with three bounds or a zero page.
	ErrInvalidArgument = errors.New("eloquent: invalid argument")

	// ErrInvalidState is matched by errors caused by an operation that is not
	// allowed in the entity's lifecycle state.
	ErrInvalidState = errors.New("eloquent: invalid state")

	// ErrNotFound is returned by the OrFail terminals only. Find and First
	// report a missing row as a nil entity.
	ErrNotFound = errors.New("eloquent: entity not found")

	// ErrTxStarted is returned when attempting to start a new transaction
	// within an existing transaction.
	ErrTxStarted = errors.New("eloquent: cannot start a transaction within a transaction")
)

// ArgumentError reports a malformed argument to a clause or terminal.
type ArgumentError struct {
	Op  string // Builder method, e.g. "WhereBetween"
	Msg string
	Err error // Optional underlying error
}

// Error returns the error string.
func (e *ArgumentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("eloquent: %s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("eloquent: %s: %s", e.Op, e.Msg)
}

// Is reports whether the target error matches ErrInvalidArgument.
func (e *ArgumentError) Is(err error) bool {
	return err == ErrInvalidArgument
}

// Unwrap returns the underlying error.
func (e *ArgumentError) Unwrap() error {
	return e.Err
}

func argumentError(op, format string, args ...any) *ArgumentError {
	return &ArgumentError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// IsInvalidArgument returns true if the error is an ArgumentError.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// StateError reports an operation attempted in a lifecycle state that does
// not allow it, such as deleting an entity that was never saved.
type StateError struct {
	Entity string
	Op     string
	State  State
}

// Error returns the error string.
func (e *StateError) Error() string {
	return fmt.Sprintf("eloquent: cannot %s %s in state %s", e.Op, e.Entity, e.State)
}

// Is reports whether the target error matches ErrInvalidState.
func (e *StateError) Is(err error) bool {
	return err == ErrInvalidState
}

// IsInvalidState returns true if the error is a StateError.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// NotFoundError represents an error when an entity is not found.
type NotFoundError struct {
	label string
	id    any // Optional: the ID that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("eloquent: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("eloquent: %s not found", e.label)
}

// Is reports whether the target error matches ErrNotFound.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity label.
func (e *NotFoundError) Label() string {
	return e.label
}

// ID returns the ID that was searched for, if available.
func (e *NotFoundError) ID() any {
	return e.id
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// PersistenceError reports a write that failed or affected an unexpected
// number of rows.
type PersistenceError struct {
	Entity   string
	Op       string // "insert", "update" or "delete"
	Affected int64
	Err      error // Driver error, nil when the row count was unexpected
}

// Error returns the error string.
func (e *PersistenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("eloquent: %s %s: %v", e.Op, e.Entity, e.Err)
	}
	return fmt.Sprintf("eloquent: %s %s: affected %d rows, expected 1", e.Op, e.Entity, e.Affected)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Constraint returns the kind of constraint the write violated, or "".
func (e *PersistenceError) Constraint() string {
	return sql.ConstraintKind(e.Err)
}

// IsPersistenceError returns true if the error is a PersistenceError.
func IsPersistenceError(err error) bool {
	if err == nil {
		return false
	}
	var e *PersistenceError
	return errors.As(err, &e)
}

// ExecutorError wraps a failure reported by the executor for a read.
type ExecutorError struct {
	Entity string
	Op     string // "select" or "count"
	Err    error
}

// Error returns the error string.
func (e *ExecutorError) Error() string {
	return fmt.Sprintf("eloquent: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExecutorError) Unwrap() error {
	return e.Err
}

// IsExecutorError returns true if the error is an ExecutorError.
func IsExecutorError(err error) bool {
	if err == nil {
		return false
	}
	var e *ExecutorError
	return errors.As(err, &e)
}

// QueryError wraps a failure while loading a relation.
type QueryError struct {
	Entity string // Entity type being queried
	Op     string // Operation, e.g. "with posts"
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("eloquent: querying %s (%s): %v", e.Entity, e.Op, e.Err)
	}
	return fmt.Sprintf("eloquent: querying %s: %v", e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// RollbackError wraps an error that occurred during a transaction rollback.
// It is joined with the error that triggered the rollback.
type RollbackError struct {
	Err error // Error returned by Rollback
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("eloquent: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "eloquent: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("eloquent: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
