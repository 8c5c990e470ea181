package rules

import (
	"errors"
	"fmt"
)

var (
	ErrTypeMismatch        = errors.New("type mismatch")
	ErrMissingField        = errors.New("missing field")
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrInvalidRule         = errors.New("invalid rule")
	ErrNotFound            = errors.New("rule not found")
	ErrActionPanic         = errors.New("action panicked")
	ErrEvaluationPanic     = errors.New("condition evaluation panicked")
)

// ConditionError is returned when a condition cannot be evaluated
// against a record. It wraps one of the sentinel errors above.
type ConditionError struct {
	Param    string
	Operator Operator
	Message  string
	Err      error
}

func (e *ConditionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("condition on '%s' with operator '%s': %v: %s", e.Param, e.Operator, e.Err, e.Message)
	}
	return fmt.Sprintf("condition on '%s' with operator '%s': %v", e.Param, e.Operator, e.Err)
}

func (e *ConditionError) Unwrap() error {
	return e.Err
}
