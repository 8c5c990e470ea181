// Package rules stores automation rules and dispatches trigger events to them.
//
// A rule binds a trigger to an ordered list of conditions and an action.
// Dispatch evaluates every rule bound to a trigger in creation order; a rule
// fires when all its conditions pass. Failures are isolated per rule and
// reported through the engine's Logger, never returned to the caller.
package rules

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/liamcoop/arules/schema"
)

// Engine owns the rule store and dispatches triggers to bound rules.
// All methods run synchronously on the calling goroutine.
type Engine struct {
	registry  *schema.Registry
	store     RuleStore
	cache     TriggerCache
	evaluator *Evaluator
	log       *Logger
	metrics   *Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithTriggerCache replaces the default in-memory trigger cache
func WithTriggerCache(cache TriggerCache) Option {
	return func(en *Engine) {
		en.cache = cache
	}
}

// WithMetrics records dispatch metrics
func WithMetrics(m *Metrics) Option {
	return func(en *Engine) {
		en.metrics = m
	}
}

// WithLogger sets the structured logger used for diagnostics
func WithLogger(l *slog.Logger) Option {
	return func(en *Engine) {
		en.logger = l
	}
}

// WithClock overrides the clock used for rule creation timestamps
func WithClock(now func() time.Time) Option {
	return func(en *Engine) {
		en.now = now
	}
}

// NewEngine creates an engine over a schema registry and a rule store.
// Expressions of rules already in the store are compiled up front.
func NewEngine(registry *schema.Registry, store RuleStore, opts ...Option) (*Engine, error) {
	en := &Engine{
		registry:  registry,
		store:     store,
		cache:     NewInMemoryTriggerCache(DefaultCacheConfig()),
		evaluator: NewEvaluator(registry),
		log:       NewLogger(),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(en)
	}

	if err := en.compileAll(); err != nil {
		return nil, fmt.Errorf("failed to compile rules: %w", err)
	}

	return en, nil
}

// Log returns the outcome logger fed by Dispatch
func (en *Engine) Log() *Logger {
	return en.log
}

// Evaluator returns the condition evaluator used by Dispatch
func (en *Engine) Evaluator() *Evaluator {
	return en.evaluator
}

type ruleOptions struct {
	id          string
	description string
}

// RuleOption configures CreateRule
type RuleOption func(*ruleOptions)

// WithID assigns a known ID instead of a generated UUID
func WithID(id string) RuleOption {
	return func(o *ruleOptions) {
		o.id = id
	}
}

// WithDescription attaches a longer human-readable description
func WithDescription(description string) RuleOption {
	return func(o *ruleOptions) {
		o.description = description
	}
}

// CreateRule validates a rule, assigns it an ID, and appends it to the store.
// Every validation failure wraps ErrInvalidRule; registry lookup failures
// also wrap the schema sentinel that caused them.
func (en *Engine) CreateRule(trigger schema.Trigger, conditions []Condition, action Action, actionDescription, name string, opts ...RuleOption) (*Rule, error) {
	o := ruleOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	if _, err := en.registry.Trigger(trigger.Schema, trigger.Event); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}
	if len(conditions) == 0 {
		return nil, fmt.Errorf("%w: rule must have at least one condition", ErrInvalidRule)
	}
	if action == nil {
		return nil, fmt.Errorf("%w: rule must have an action", ErrInvalidRule)
	}

	for i, cond := range conditions {
		if err := en.validateCondition(trigger, cond); err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
	}

	if o.id == "" {
		o.id = uuid.NewString()
	}

	rule := &Rule{
		ID:                o.id,
		Name:              name,
		Description:       o.description,
		Trigger:           trigger,
		ActionDescription: actionDescription,
		CreatedAt:         en.now(),
		conditions:        append([]Condition(nil), conditions...),
		action:            action,
	}

	if err := en.store.Add(rule); err != nil {
		return nil, err
	}

	en.cache.Invalidate()
	en.refreshRuleCount()

	en.logger.Debug("rule created",
		"rule_id", rule.ID,
		"rule_name", rule.Name,
		"trigger", trigger.String(),
		"conditions", len(rule.conditions))

	return rule, nil
}

// validateCondition checks a condition belongs to the trigger's schema and
// that its param handle matches the declared param
func (en *Engine) validateCondition(trigger schema.Trigger, cond Condition) error {
	if cond.Param.Schema != trigger.Schema {
		return fmt.Errorf("%w: param %s does not belong to schema %s", ErrInvalidRule, cond.Param, trigger.Schema)
	}

	declared, err := en.registry.Param(cond.Param.Schema, cond.Param.Key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}
	if declared.Type != cond.Param.Type {
		return fmt.Errorf("%w: param %s is declared as %s, not %s", ErrInvalidRule, cond.Param, declared.Type, cond.Param.Type)
	}

	if err := en.evaluator.Compile(cond); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}
	return nil
}

// Rule returns a rule by ID
func (en *Engine) Rule(id string) (*Rule, error) {
	return en.store.Get(id)
}

// Rules returns every rule in creation order
func (en *Engine) Rules() ([]*Rule, error) {
	return en.store.List()
}

// RulesByTrigger returns the rules bound to trigger in creation order
func (en *Engine) RulesByTrigger(trigger schema.Trigger) ([]*Rule, error) {
	return en.rulesFor(trigger)
}

// RemoveRule deletes a rule by ID
func (en *Engine) RemoveRule(id string) error {
	if err := en.store.Delete(id); err != nil {
		return err
	}

	en.cache.Invalidate()
	en.refreshRuleCount()

	en.logger.Debug("rule removed", "rule_id", id)
	return nil
}

// Dispatch evaluates every rule bound to trigger against record, in creation
// order, and runs the action of each rule whose conditions all pass.
// A trigger without rules is a no-op.
func (en *Engine) Dispatch(trigger schema.Trigger, record Record) {
	bound, err := en.rulesFor(trigger)
	if err != nil {
		en.logger.Error("failed to load rules for dispatch", "trigger", trigger.String(), "error", err)
		return
	}

	en.metrics.recordDispatch(trigger)
	en.logger.Debug("dispatching", "trigger", trigger.String(), "rules", len(bound))

	// bound is a snapshot, so actions may create rules or dispatch again
	for _, rule := range bound {
		en.run(rule, record)
	}
}

// run evaluates one rule and emits its outcome
func (en *Engine) run(rule *Rule, record Record) {
	success, failure := en.outcome(rule, record)
	en.emit(rule, success, record, failure)
}

func (en *Engine) outcome(rule *Rule, record Record) (bool, *Failure) {
	for i := range rule.conditions {
		cond := rule.conditions[i]

		matched, err := en.evaluate(cond, record)
		if err != nil {
			en.logger.Warn("rule condition failed to evaluate",
				"rule_id", rule.ID,
				"rule_name", rule.Name,
				"condition", i,
				"error", err)
			en.metrics.recordEvaluation(rule, resultError)
			return false, &Failure{Condition: &cond, Err: err}
		}
		if !matched {
			en.metrics.recordEvaluation(rule, resultFailure)
			return false, &Failure{Condition: &cond}
		}
	}

	if err := en.invoke(rule); err != nil {
		en.logger.Warn("rule action failed", "rule_id", rule.ID, "rule_name", rule.Name, "error", err)
		en.metrics.recordEvaluation(rule, resultError)
		return false, &Failure{Err: err}
	}

	en.metrics.recordEvaluation(rule, resultSuccess)
	return true, nil
}

// evaluate runs one condition, turning a panicking Record into ErrEvaluationPanic
func (en *Engine) evaluate(cond Condition, record Record) (matched bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			matched = false
			err = conditionError(cond, ErrEvaluationPanic, fmt.Sprint(r))
		}
	}()
	return en.evaluator.Evaluate(cond, record)
}

// emit forwards an outcome to the log callback.
// A panicking callback loses its entry; later rules still run.
func (en *Engine) emit(rule *Rule, success bool, record Record, failure *Failure) {
	defer func() {
		if r := recover(); r != nil {
			en.logger.Error("log callback panicked", "rule_id", rule.ID, "rule_name", rule.Name, "panic", r)
		}
	}()
	en.log.emit(rule, success, record, failure)
}

// invoke runs a rule's action, turning a panic into ErrActionPanic
func (en *Engine) invoke(rule *Rule) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrActionPanic, r)
		}
		en.metrics.recordAction(rule, time.Since(start))
	}()

	rule.action()
	return nil
}

func (en *Engine) rulesFor(trigger schema.Trigger) ([]*Rule, error) {
	if cached, ok := en.cache.Get(trigger); ok {
		return cached, nil
	}

	// Read the generation before the store so a concurrent create or
	// remove makes this fill a no-op
	generation := en.cache.Generation()
	bound, err := en.store.ListByTrigger(trigger)
	if err != nil {
		return nil, err
	}
	en.cache.SetIfGeneration(trigger, bound, generation)
	return bound, nil
}

// compileAll compiles the expressions of rules already in the store
func (en *Engine) compileAll() error {
	existing, err := en.store.List()
	if err != nil {
		return err
	}

	for _, rule := range existing {
		for _, cond := range rule.conditions {
			if err := en.evaluator.Compile(cond); err != nil {
				return fmt.Errorf("failed to compile rule %s: %w", rule.ID, err)
			}
		}
	}

	en.metrics.setRulesDefined(len(existing))
	return nil
}

func (en *Engine) refreshRuleCount() {
	if en.metrics == nil {
		return
	}
	all, err := en.store.List()
	if err != nil {
		return
	}
	en.metrics.setRulesDefined(len(all))
}
