package workflow

import (
	"errors"
	"fmt"

	"katara/models"
)

// ValidationError marks bad input to a transition: non-positive amount,
// missing rejection note, missing required location. Never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// StateConflictError marks a transition requested against a submission that
// is not in the required source state.
type StateConflictError struct {
	ID     string
	Status models.BudgetStatus
	Want   string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("submission %s is %s, expected %s", e.ID, e.Status, e.Want)
}

// NotFoundError marks a reference to a record that is not in the cache.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsStateConflict(err error) bool {
	var ce *StateConflictError
	return errors.As(err, &ce)
}

func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}
