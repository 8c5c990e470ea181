package rules

import (
	"time"

	"github.com/liamcoop/arules/schema"
)

// Operator names a comparison between a record field and a condition value
type Operator string

const (
	OpEquals         Operator = "equals"
	OpNotEquals      Operator = "notEquals"
	OpGreaterThan    Operator = "greaterThan"
	OpLessThan       Operator = "lessThan"
	OpGreaterOrEqual Operator = "greaterOrEqual"
	OpLessOrEqual    Operator = "lessOrEqual"
	OpContains       Operator = "contains"
	OpStartsWith     Operator = "startsWith"
	OpEndsWith       Operator = "endsWith"

	// OpSatisfies evaluates the condition value as a CEL expression
	// over the record's fields.
	OpSatisfies Operator = "satisfies"
)

// Operators returns every supported operator in display order
func Operators() []Operator {
	return []Operator{
		OpEquals,
		OpNotEquals,
		OpGreaterThan,
		OpLessThan,
		OpGreaterOrEqual,
		OpLessOrEqual,
		OpContains,
		OpStartsWith,
		OpEndsWith,
		OpSatisfies,
	}
}

// Record is a schema-shaped value passed to Dispatch
type Record interface {
	// Field returns the value stored under key and whether it exists
	Field(key string) (any, bool)
}

// Fields is a map-backed Record
type Fields map[string]any

// Field implements Record
func (f Fields) Field(key string) (any, bool) {
	v, ok := f[key]
	return v, ok
}

// Condition tests one param of a record against a value
type Condition struct {
	Param    schema.Param `json:"param"`
	Operator Operator     `json:"operator"`
	Value    any          `json:"value"`
}

// NewCondition creates a condition. Operator and value are checked when the
// condition is evaluated, so a malformed condition degrades to a failing rule.
func NewCondition(param schema.Param, op Operator, value any) Condition {
	return Condition{Param: param, Operator: op, Value: value}
}

// Action is the side effect a rule runs when all its conditions pass
type Action func()

// Rule binds ordered conditions and an action to a trigger.
// Rules are never mutated after creation; the conditions are only
// reachable through Conditions, which returns a copy.
type Rule struct {
	ID                string
	Name              string
	Description       string
	Trigger           schema.Trigger
	ActionDescription string
	CreatedAt         time.Time

	conditions []Condition
	action     Action
}

// Conditions returns a copy of the rule's conditions in evaluation order
func (r *Rule) Conditions() []Condition {
	return append([]Condition(nil), r.conditions...)
}

// Failure describes why a rule did not fire
type Failure struct {
	// Condition is the first condition that did not pass.
	// It is nil when every condition passed but the action panicked.
	Condition *Condition

	// Err is nil when Condition simply evaluated to false
	Err error
}
