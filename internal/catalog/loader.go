package catalog

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/liamcoop/arules/rules"
	"github.com/liamcoop/arules/schema"
)

// ActionFactory turns an action spec into a callable action and its description
type ActionFactory interface {
	Build(kind, value string) (rules.Action, string, error)
}

// Loader keeps an engine and a DefinitionStore in step
type Loader struct {
	registry *schema.Registry
	engine   *rules.Engine
	store    DefinitionStore
	actions  ActionFactory

	mu            sync.RWMutex
	actionsByRule map[string]ActionSpec
}

func NewLoader(registry *schema.Registry, engine *rules.Engine, store DefinitionStore, actions ActionFactory) *Loader {
	return &Loader{
		registry:      registry,
		engine:        engine,
		store:         store,
		actions:       actions,
		actionsByRule: make(map[string]ActionSpec),
	}
}

// Install creates the engine rule described by def without persisting it.
// Schema lookups fail with the registry's sentinel errors.
func (l *Loader) Install(def *Definition) (*rules.Rule, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	trigger, err := l.registry.Trigger(def.Schema, def.Event)
	if err != nil {
		return nil, err
	}

	conds := make([]rules.Condition, len(def.Conditions))
	for i, c := range def.Conditions {
		param, err := l.registry.Param(def.Schema, c.Param)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		conds[i] = rules.NewCondition(param, c.Operator, c.Value)
	}

	action, description, err := l.actions.Build(def.Action.Kind, def.Action.Value)
	if err != nil {
		return nil, err
	}

	opts := []rules.RuleOption{rules.WithDescription(def.Description)}
	if def.ID != "" {
		opts = append(opts, rules.WithID(def.ID))
	}

	rule, err := l.engine.CreateRule(trigger, conds, action, description, def.Name, opts...)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.actionsByRule[rule.ID] = def.Action
	l.mu.Unlock()

	return rule, nil
}

// Create installs def and persists it. A missing ID is generated.
// If the store rejects the definition the engine rule is removed again.
func (l *Loader) Create(def *Definition) (*rules.Rule, error) {
	if def.ID == "" {
		def.ID = uuid.NewString()
	}

	rule, err := l.Install(def)
	if err != nil {
		return nil, err
	}
	def.CreatedAt = rule.CreatedAt

	if err := l.store.Add(def); err != nil {
		l.forget(rule.ID)
		if rmErr := l.engine.RemoveRule(rule.ID); rmErr != nil {
			return nil, fmt.Errorf("%w (rollback failed: %v)", err, rmErr)
		}
		return nil, err
	}

	return rule, nil
}

// Remove deletes a rule from the engine and the store
func (l *Loader) Remove(id string) error {
	if err := l.engine.RemoveRule(id); err != nil {
		return err
	}
	l.forget(id)

	if err := l.store.Delete(id); err != nil {
		return fmt.Errorf("rule removed from engine but not from store: %w", err)
	}
	return nil
}

// LoadAll installs every stored definition in creation order
func (l *Loader) LoadAll() (int, error) {
	defs, err := l.store.List()
	if err != nil {
		return 0, fmt.Errorf("failed to list rule definitions: %w", err)
	}

	for _, def := range defs {
		if _, err := l.Install(def); err != nil {
			return 0, fmt.Errorf("failed to install rule definition %s: %w", def.ID, err)
		}
	}

	return len(defs), nil
}

// Describe returns the definition form of an engine rule installed by l
func (l *Loader) Describe(rule *rules.Rule) *Definition {
	l.mu.RLock()
	action := l.actionsByRule[rule.ID]
	l.mu.RUnlock()

	return FromRule(rule, action)
}

func (l *Loader) forget(id string) {
	l.mu.Lock()
	delete(l.actionsByRule, id)
	l.mu.Unlock()
}
