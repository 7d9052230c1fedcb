package model

import "fmt"

// TaskError represents a domain error for tasks.
type TaskError struct {
	Message string
}

func (e TaskError) Error() string {
	return e.Message
}

var (
	// ErrTaskNotFound is returned when an operation targets an id that does
	// not exist in the store.
	ErrTaskNotFound = TaskError{Message: "task not found"}

	// ErrMalformedID is returned when an id does not match the store's id
	// format. Distinct from ErrTaskNotFound.
	ErrMalformedID = TaskError{Message: "malformed task id"}

	// ErrPastDueDate is returned when an update moves the due date into the
	// past while the resulting status is not "completed".
	ErrPastDueDate = TaskError{Message: "Due date cannot be in the past for non-completed tasks"}
)

// SchemaError reports a value that violates a schema-level constraint, such
// as an unknown enum value or a negative estimate.
type SchemaError struct {
	Field string
	Value string
}

func (e SchemaError) Error() string {
	return fmt.Sprintf("invalid value for %s: %q", e.Field, e.Value)
}
