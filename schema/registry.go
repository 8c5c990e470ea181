// Package schema declares the kinds of records rules can be written against:
// the trigger events each kind emits and the typed params a condition may test.
package schema

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// entry is a declared schema with its lookup indexes
type entry struct {
	schema Schema
	params map[string]ParamSpec
	events map[string]bool
	env    *cel.Env
}

// Registry holds declared schemas. Schemas are immutable once declared.
type Registry struct {
	schemas map[string]*entry
	order   []string
	mu      sync.RWMutex
}

// NewRegistry creates an empty schema registry
func NewRegistry() *Registry {
	return &Registry{
		schemas: make(map[string]*entry),
	}
}

// Declare registers a schema with its trigger events and params.
// Declaration order of events and params is preserved.
func (r *Registry) Declare(name string, events []string, params []ParamSpec) error {
	s := Schema{
		Name:   name,
		Events: append([]string(nil), events...),
		Params: append([]ParamSpec(nil), params...),
	}

	if err := ValidateSchema(s); err != nil {
		return err
	}

	env, err := NewEnv(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}

	e := &entry{
		schema: s,
		params: make(map[string]ParamSpec, len(s.Params)),
		events: make(map[string]bool, len(s.Events)),
		env:    env,
	}
	for _, p := range s.Params {
		e.params[p.Key] = p
	}
	for _, ev := range s.Events {
		e.events[ev] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSchema, name)
	}
	r.schemas[name] = e
	r.order = append(r.order, name)
	return nil
}

// Schemas returns the declared schema names in declaration order
func (r *Registry) Schemas() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Schema returns a copy of a declared schema
func (r *Registry) Schema(name string) (Schema, error) {
	e, err := r.lookup(name)
	if err != nil {
		return Schema{}, err
	}
	return Schema{
		Name:   e.schema.Name,
		Events: append([]string(nil), e.schema.Events...),
		Params: append([]ParamSpec(nil), e.schema.Params...),
	}, nil
}

// TriggerEvents returns the event names of a schema in declaration order
func (r *Registry) TriggerEvents(name string) ([]string, error) {
	e, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), e.schema.Events...), nil
}

// ParamKeys returns the param keys of a schema in declaration order
func (r *Registry) ParamKeys(name string) ([]string, error) {
	e, err := r.lookup(name)
	if err != nil {
		return nil, err
	}

	keys := make([]string, len(e.schema.Params))
	for i, p := range e.schema.Params {
		keys[i] = p.Key
	}
	return keys, nil
}

// Trigger resolves an event of a schema to a Trigger
func (r *Registry) Trigger(name, event string) (Trigger, error) {
	e, err := r.lookup(name)
	if err != nil {
		return Trigger{}, err
	}
	if !e.events[event] {
		return Trigger{}, fmt.Errorf("%w: schema %s has no event %q", ErrUnknownTrigger, name, event)
	}
	return Trigger{Schema: name, Event: event}, nil
}

// Triggers returns every trigger of a schema in declaration order
func (r *Registry) Triggers(name string) ([]Trigger, error) {
	e, err := r.lookup(name)
	if err != nil {
		return nil, err
	}

	triggers := make([]Trigger, len(e.schema.Events))
	for i, ev := range e.schema.Events {
		triggers[i] = Trigger{Schema: name, Event: ev}
	}
	return triggers, nil
}

// Param resolves a param key of a schema to a typed Param
func (r *Registry) Param(name, key string) (Param, error) {
	e, err := r.lookup(name)
	if err != nil {
		return Param{}, err
	}
	spec, ok := e.params[key]
	if !ok {
		return Param{}, fmt.Errorf("%w: schema %s has no param %q", ErrUnknownParam, name, key)
	}
	return Param{Schema: name, Key: key, Type: spec.Type}, nil
}

// Params returns every param of a schema in declaration order
func (r *Registry) Params(name string) ([]Param, error) {
	e, err := r.lookup(name)
	if err != nil {
		return nil, err
	}

	params := make([]Param, len(e.schema.Params))
	for i, p := range e.schema.Params {
		params[i] = Param{Schema: name, Key: p.Key, Type: p.Type}
	}
	return params, nil
}

// Env returns the CEL environment built for a schema at declaration time
func (r *Registry) Env(name string) (*cel.Env, error) {
	e, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.env, nil
}

func (r *Registry) lookup(name string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, name)
	}
	return e, nil
}
