// Package catalog persists rules in a serialisable form and rebuilds engine
// rules from it. A rule's action is a closure and cannot be stored, so a
// definition names an action kind and value that an ActionFactory turns back
// into a callable action.
package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/liamcoop/arules/rules"
)

var (
	ErrUnknownAction       = errors.New("unknown action kind")
	ErrDefinitionNotFound  = errors.New("rule definition not found")
	ErrDuplicateDefinition = errors.New("rule definition already exists")
	ErrInvalidDefinition   = errors.New("invalid rule definition")
)

// ConditionSpec is a condition keyed by param name
type ConditionSpec struct {
	Param    string         `json:"param" yaml:"param"`
	Operator rules.Operator `json:"operator" yaml:"operator"`
	Value    any            `json:"value" yaml:"value"`
}

// ActionSpec names an action kind and its argument, e.g. alert "hello"
type ActionSpec struct {
	Kind  string `json:"kind" yaml:"kind"`
	Value string `json:"value" yaml:"value"`
}

// Definition is the stored form of a rule
type Definition struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description,omitempty" yaml:"description"`
	Schema      string          `json:"schema" yaml:"schema"`
	Event       string          `json:"event" yaml:"event"`
	Conditions  []ConditionSpec `json:"conditions" yaml:"conditions"`
	Action      ActionSpec      `json:"action" yaml:"action"`
	CreatedAt   time.Time       `json:"created_at" yaml:"-"`
}

// Validate checks the fields that do not need a registry
func (d *Definition) Validate() error {
	if d.Schema == "" || d.Event == "" {
		return fmt.Errorf("%w: schema and event are required", ErrInvalidDefinition)
	}
	if len(d.Conditions) == 0 {
		return fmt.Errorf("%w: at least one condition is required", ErrInvalidDefinition)
	}
	for i, c := range d.Conditions {
		if c.Param == "" || c.Operator == "" {
			return fmt.Errorf("%w: condition %d needs a param and an operator", ErrInvalidDefinition, i)
		}
	}
	if d.Action.Kind == "" {
		return fmt.Errorf("%w: action kind is required", ErrInvalidDefinition)
	}
	return nil
}

// FromRule rebuilds a definition from an engine rule and the action spec it was created with
func FromRule(rule *rules.Rule, action ActionSpec) *Definition {
	ruleConds := rule.Conditions()
	conds := make([]ConditionSpec, len(ruleConds))
	for i, c := range ruleConds {
		conds[i] = ConditionSpec{Param: c.Param.Key, Operator: c.Operator, Value: c.Value}
	}
	return &Definition{
		ID:          rule.ID,
		Name:        rule.Name,
		Description: rule.Description,
		Schema:      rule.Trigger.Schema,
		Event:       rule.Trigger.Event,
		Conditions:  conds,
		Action:      action,
		CreatedAt:   rule.CreatedAt,
	}
}
