package catalog

import (
	"errors"
	"testing"
	"time"

	"github.com/liamcoop/arules/rules"
	"github.com/liamcoop/arules/schema"
)

func validDefinition() *Definition {
	return &Definition{
		Name:   "adults",
		Schema: "person",
		Event:  "created",
		Conditions: []ConditionSpec{
			{Param: "age", Operator: rules.OpGreaterThan, Value: 18.0},
		},
		Action: ActionSpec{Kind: "alert", Value: "welcome"},
	}
}

func TestDefinitionValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(d *Definition)
		wantErr bool
	}{
		{"Valid", func(*Definition) {}, false},
		{"Missing schema", func(d *Definition) { d.Schema = "" }, true},
		{"Missing event", func(d *Definition) { d.Event = "" }, true},
		{"No conditions", func(d *Definition) { d.Conditions = nil }, true},
		{"Condition without param", func(d *Definition) { d.Conditions[0].Param = "" }, true},
		{"Condition without operator", func(d *Definition) { d.Conditions[0].Operator = "" }, true},
		{"Missing action kind", func(d *Definition) { d.Action.Kind = "" }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := validDefinition()
			tc.mutate(d)

			err := d.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidDefinition) {
				t.Errorf("Expected ErrInvalidDefinition, got %v", err)
			}
		})
	}
}

func TestFromRule(t *testing.T) {
	created := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	reg := schema.NewRegistry()
	if err := reg.Declare("person", []string{"created"}, []schema.ParamSpec{{Key: "age", Type: schema.TypeNumber}}); err != nil {
		t.Fatalf("Declare() failed: %v", err)
	}
	engine, err := rules.NewEngine(reg, rules.NewInMemoryRuleStore(), rules.WithClock(func() time.Time { return created }))
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}
	trigger, _ := reg.Trigger("person", "created")
	age, _ := reg.Param("person", "age")

	rule, err := engine.CreateRule(trigger,
		[]rules.Condition{rules.NewCondition(age, rules.OpGreaterThan, 18.0)},
		func() {}, `Show alert "hi"`, "adults",
		rules.WithID("r1"), rules.WithDescription("greets adults"))
	if err != nil {
		t.Fatalf("CreateRule() failed: %v", err)
	}

	def := FromRule(rule, ActionSpec{Kind: "alert", Value: "hi"})

	if def.ID != "r1" || def.Schema != "person" || def.Event != "created" || def.Description != "greets adults" {
		t.Errorf("Unexpected definition: %+v", def)
	}
	if len(def.Conditions) != 1 || def.Conditions[0].Param != "age" || def.Conditions[0].Value != 18.0 {
		t.Errorf("Unexpected conditions: %+v", def.Conditions)
	}
	if def.Action.Kind != "alert" || !def.CreatedAt.Equal(created) {
		t.Errorf("Unexpected action or time: %+v", def)
	}
}
