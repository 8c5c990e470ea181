package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/liamcoop/arules/internal/board"
	"github.com/liamcoop/arules/internal/catalog"
	"github.com/liamcoop/arules/internal/person"
	"github.com/liamcoop/arules/rules"
	"github.com/liamcoop/arules/schema"
)

// Scenario is a YAML file of schemas, rules, and events to dispatch.
// Without a schemas section the person schema is declared.
type Scenario struct {
	Schemas []schema.Schema      `yaml:"schemas"`
	Rules   []catalog.Definition `yaml:"rules"`
	Events  []Event              `yaml:"events"`
}

// Event is one dispatch of a record to a trigger
type Event struct {
	Schema string         `yaml:"schema"`
	Event  string         `yaml:"event"`
	Record map[string]any `yaml:"record"`
}

// LoadScenario reads and decodes a scenario file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario %s: %w", path, err)
	}
	return &sc, nil
}

// scenarioEngine is an engine prepared from a scenario
type scenarioEngine struct {
	registry *schema.Registry
	engine   *rules.Engine
	board    *board.Board
	rules    []*rules.Rule
}

// build declares the scenario's schemas and installs its rules
func (sc *Scenario) build() (*scenarioEngine, error) {
	reg := schema.NewRegistry()
	if len(sc.Schemas) == 0 {
		if err := person.Declare(reg); err != nil {
			return nil, err
		}
	}
	for _, s := range sc.Schemas {
		if err := reg.Declare(s.Name, s.Events, s.Params); err != nil {
			return nil, fmt.Errorf("schema %q: %w", s.Name, err)
		}
	}

	engine, err := rules.NewEngine(reg, rules.NewInMemoryRuleStore())
	if err != nil {
		return nil, err
	}

	b := board.New(0)
	loader := catalog.NewLoader(reg, engine, catalog.NewInMemoryStore(), b)

	installed := make([]*rules.Rule, 0, len(sc.Rules))
	for i := range sc.Rules {
		def := &sc.Rules[i]
		rule, err := loader.Install(def)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, def.Name, err)
		}
		installed = append(installed, rule)
	}

	return &scenarioEngine{registry: reg, engine: engine, board: b, rules: installed}, nil
}

// dispatch resolves every event before dispatching any of them
func (se *scenarioEngine) dispatch(events []Event) error {
	triggers := make([]schema.Trigger, len(events))
	for i, ev := range events {
		trigger, err := se.registry.Trigger(ev.Schema, ev.Event)
		if err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		triggers[i] = trigger
	}

	for i, ev := range events {
		se.engine.Dispatch(triggers[i], rules.Fields(ev.Record))
	}
	return nil
}
