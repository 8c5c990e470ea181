package catalog

import (
	"errors"
	"fmt"
	"testing"

	"github.com/liamcoop/arules/rules"
	"github.com/liamcoop/arules/schema"
)

// recordingFactory builds actions that append their value to fired
type recordingFactory struct {
	fired []string
}

func (f *recordingFactory) Build(kind, value string) (rules.Action, string, error) {
	if kind != "alert" {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownAction, kind)
	}
	return func() { f.fired = append(f.fired, value) }, fmt.Sprintf("Show alert %q", value), nil
}

// failingStore rejects every Add
type failingStore struct {
	*InMemoryStore
}

func (failingStore) Add(*Definition) error {
	return errors.New("disk full")
}

func newTestLoader(t *testing.T, store DefinitionStore) (*Loader, *rules.Engine, *recordingFactory) {
	t.Helper()

	reg := schema.NewRegistry()
	err := reg.Declare("person", []string{"created", "deleted"}, []schema.ParamSpec{
		{Key: "name", Type: schema.TypeString},
		{Key: "age", Type: schema.TypeNumber},
		{Key: "hometown", Type: schema.TypeString},
	})
	if err != nil {
		t.Fatalf("Declare() failed: %v", err)
	}

	engine, err := rules.NewEngine(reg, rules.NewInMemoryRuleStore())
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}

	factory := &recordingFactory{}
	return NewLoader(reg, engine, store, factory), engine, factory
}

func TestLoaderCreate(t *testing.T) {
	store := NewInMemoryStore()
	loader, engine, factory := newTestLoader(t, store)

	def := validDefinition()
	rule, err := loader.Create(def)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if def.ID == "" || rule.ID != def.ID {
		t.Errorf("Expected generated ID shared by rule and definition, got %q / %q", rule.ID, def.ID)
	}
	if rule.ActionDescription != `Show alert "welcome"` {
		t.Errorf("ActionDescription = %q", rule.ActionDescription)
	}

	stored, _ := store.List()
	if len(stored) != 1 || stored[0].ID != rule.ID {
		t.Errorf("Definition not persisted: %v", stored)
	}

	engine.Dispatch(schema.Trigger{Schema: "person", Event: "created"}, rules.Fields{"age": 30})
	if len(factory.fired) != 1 || factory.fired[0] != "welcome" {
		t.Errorf("Expected action to fire once, got %v", factory.fired)
	}

	described := loader.Describe(rule)
	if described.Action != def.Action || described.Conditions[0].Param != "age" {
		t.Errorf("Describe() = %+v", described)
	}
}

func TestLoaderInstallErrors(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(d *Definition)
		want   error
	}{
		{"Invalid definition", func(d *Definition) { d.Conditions = nil }, ErrInvalidDefinition},
		{"Unknown schema", func(d *Definition) { d.Schema = "pet" }, schema.ErrUnknownSchema},
		{"Unknown event", func(d *Definition) { d.Event = "renamed" }, schema.ErrUnknownTrigger},
		{"Unknown param", func(d *Definition) { d.Conditions[0].Param = "email" }, schema.ErrUnknownParam},
		{"Unknown action", func(d *Definition) { d.Action.Kind = "email" }, ErrUnknownAction},
		{"Bad expression", func(d *Definition) {
			d.Conditions[0] = ConditionSpec{Param: "age", Operator: rules.OpSatisfies, Value: "value >"}
		}, rules.ErrInvalidRule},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			loader, engine, _ := newTestLoader(t, NewInMemoryStore())

			d := validDefinition()
			tc.mutate(d)

			if _, err := loader.Install(d); !errors.Is(err, tc.want) {
				t.Fatalf("Install() error = %v, want %v", err, tc.want)
			}

			all, _ := engine.Rules()
			if len(all) != 0 {
				t.Errorf("Failed install left %d rules in the engine", len(all))
			}
		})
	}
}

func TestLoaderCreateRollsBack(t *testing.T) {
	loader, engine, _ := newTestLoader(t, failingStore{NewInMemoryStore()})

	if _, err := loader.Create(validDefinition()); err == nil {
		t.Fatal("Expected store error")
	}

	all, _ := engine.Rules()
	if len(all) != 0 {
		t.Errorf("Expected rollback, engine still has %d rules", len(all))
	}
}

func TestLoaderRemove(t *testing.T) {
	store := NewInMemoryStore()
	loader, engine, _ := newTestLoader(t, store)

	rule, err := loader.Create(validDefinition())
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if err := loader.Remove(rule.ID); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	if _, err := engine.Rule(rule.ID); !errors.Is(err, rules.ErrNotFound) {
		t.Errorf("Rule still in engine: %v", err)
	}
	if stored, _ := store.List(); len(stored) != 0 {
		t.Errorf("Definition still stored: %v", stored)
	}

	if err := loader.Remove(rule.ID); !errors.Is(err, rules.ErrNotFound) {
		t.Errorf("Second Remove() error = %v, want ErrNotFound", err)
	}
}

func TestLoaderLoadAll(t *testing.T) {
	store := NewInMemoryStore()
	for i, value := range []string{"first", "second", "third"} {
		d := validDefinition()
		d.ID = fmt.Sprintf("rule-%d", i)
		d.Action.Value = value
		if err := store.Add(d); err != nil {
			t.Fatalf("Add() failed: %v", err)
		}
	}

	loader, engine, factory := newTestLoader(t, store)

	n, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}
	if n != 3 {
		t.Errorf("LoadAll() = %d, want 3", n)
	}

	engine.Dispatch(schema.Trigger{Schema: "person", Event: "created"}, rules.Fields{"age": 40})

	want := []string{"first", "second", "third"}
	if fmt.Sprint(factory.fired) != fmt.Sprint(want) {
		t.Errorf("Fired %v, want creation order %v", factory.fired, want)
	}

	if _, err := engine.Rule("rule-1"); err != nil {
		t.Errorf("Stored IDs should be kept: %v", err)
	}
}

func TestLoaderLoadAllStopsOnBadDefinition(t *testing.T) {
	store := NewInMemoryStore()
	d := validDefinition()
	d.ID = "orphan"
	d.Schema = "pet"
	if err := store.Add(d); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	loader, _, _ := newTestLoader(t, store)
	if _, err := loader.LoadAll(); !errors.Is(err, schema.ErrUnknownSchema) {
		t.Errorf("LoadAll() error = %v, want ErrUnknownSchema", err)
	}
}
