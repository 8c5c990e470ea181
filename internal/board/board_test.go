package board

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/liamcoop/arules/internal/catalog"
	"github.com/liamcoop/arules/internal/person"
	"github.com/liamcoop/arules/rules"
	"github.com/liamcoop/arules/schema"
)

func TestBuild(t *testing.T) {
	b := New(0)

	alert, desc, err := b.Build(KindAlert, "hello")
	if err != nil {
		t.Fatalf("Build(alert) failed: %v", err)
	}
	if desc != `Show alert "hello"` {
		t.Errorf("alert description = %q", desc)
	}

	paint, desc, err := b.Build(KindBackground, "red")
	if err != nil {
		t.Fatalf("Build(background) failed: %v", err)
	}
	if desc != `Set background to "red"` {
		t.Errorf("background description = %q", desc)
	}

	alert()
	alert()
	paint()

	snap := b.Snapshot()
	if len(snap.Alerts) != 2 || snap.Alerts[0] != "hello" {
		t.Errorf("Alerts = %v", snap.Alerts)
	}
	if snap.Background != "red" {
		t.Errorf("Background = %q", snap.Background)
	}

	if _, _, err := b.Build("email", "x"); !errors.Is(err, catalog.ErrUnknownAction) {
		t.Errorf("Build(email) error = %v, want ErrUnknownAction", err)
	}
}

func TestFeedsAreBounded(t *testing.T) {
	b := New(3)
	for i := 0; i < 5; i++ {
		b.Alert(fmt.Sprint(i))
		b.Append(fmt.Sprint(i))
	}

	want := "[2 3 4]"
	if got := fmt.Sprint(b.Alerts()); got != want {
		t.Errorf("Alerts() = %s, want %s", got, want)
	}
	if got := fmt.Sprint(b.Lines()); got != want {
		t.Errorf("Lines() = %s, want %s", got, want)
	}
}

func TestFormatOutcome(t *testing.T) {
	rule := &rules.Rule{Name: "adults"}
	keys := []string{"name", "age", "hometown"}

	testCases := []struct {
		name    string
		success bool
		record  rules.Record
		want    string
	}{
		{"Success", true, person.Person{Name: "Ann", Age: 30, Hometown: "X"}, "SUCCESS:  adults (Ann, 30, X)"},
		{"Failure", false, person.Person{Name: "Bo", Age: 10, Hometown: "Y"}, "FAIL:  adults (Bo, 10, Y)"},
		{"Missing field", false, rules.Fields{"name": "Cy"}, "FAIL:  adults (Cy, -, -)"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatOutcome(rule, tc.success, tc.record, keys); got != tc.want {
				t.Errorf("FormatOutcome() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBoardAsEngineSink(t *testing.T) {
	reg := schema.NewRegistry()
	if err := person.Declare(reg); err != nil {
		t.Fatalf("Declare() failed: %v", err)
	}
	engine, err := rules.NewEngine(reg, rules.NewInMemoryRuleStore())
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}

	b := New(0)
	engine.Log().SetLogging(rules.LogOptions{OnSuccess: true, OnFailure: true})
	engine.Log().SetLogCallback(b.LogFunc(reg))

	age, _ := reg.Param(person.SchemaName, person.ParamAge)
	action, desc, _ := b.Build(KindAlert, "welcome")
	if _, err := engine.CreateRule(person.Created(), []rules.Condition{rules.NewCondition(age, rules.OpGreaterThan, 18)}, action, desc, "adults"); err != nil {
		t.Fatalf("CreateRule() failed: %v", err)
	}

	engine.Dispatch(person.Created(), person.Person{Name: "Ann", Age: 30, Hometown: "X"})
	engine.Dispatch(person.Created(), person.Person{Name: "Bo", Age: 10, Hometown: "Y"})

	snap := b.Snapshot()
	wantLog := []string{"SUCCESS:  adults (Ann, 30, X)", "FAIL:  adults (Bo, 10, Y)"}
	if fmt.Sprint(snap.Log) != fmt.Sprint(wantLog) {
		t.Errorf("Log = %q, want %q", snap.Log, wantLog)
	}
	if len(snap.Alerts) != 1 || snap.Alerts[0] != "welcome" {
		t.Errorf("Alerts = %v", snap.Alerts)
	}
}

func TestBoardConcurrentUse(t *testing.T) {
	b := New(50)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Alert("a")
				b.SetBackground(fmt.Sprint(i))
				b.Append("l")
				_ = b.Snapshot()
			}
		}(i)
	}
	wg.Wait()

	if got := len(b.Alerts()); got != 50 {
		t.Errorf("Expected capacity-bounded alerts, got %d", got)
	}
}
