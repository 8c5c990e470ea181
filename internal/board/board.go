// Package board is the side-effect surface of the demo: rule actions post
// alerts or change the background colour, and rule outcomes are appended to
// a log feed.
package board

import (
	"fmt"
	"strings"
	"sync"

	"github.com/liamcoop/arules/internal/catalog"
	"github.com/liamcoop/arules/rules"
	"github.com/liamcoop/arules/schema"
)

// Action kinds understood by Build
const (
	KindAlert      = "alert"
	KindBackground = "background"
)

// DefaultCapacity bounds the alert and log feeds
const DefaultCapacity = 1000

// Board is safe for concurrent use
type Board struct {
	mu         sync.RWMutex
	capacity   int
	alerts     []string
	background string
	lines      []string
}

// Snapshot is a point-in-time copy of a board
type Snapshot struct {
	Alerts     []string `json:"alerts"`
	Background string   `json:"background"`
	Log        []string `json:"log"`
}

// New creates a board keeping at most capacity alerts and log lines.
// A capacity below 1 uses DefaultCapacity.
func New(capacity int) *Board {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Board{capacity: capacity}
}

// Alert appends msg to the alert feed
func (b *Board) Alert(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alerts = appendBounded(b.alerts, msg, b.capacity)
}

// SetBackground sets the background colour
func (b *Board) SetBackground(color string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.background = color
}

// Append adds a line to the log feed
func (b *Board) Append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = appendBounded(b.lines, line, b.capacity)
}

func (b *Board) Alerts() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string{}, b.alerts...)
}

func (b *Board) Background() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.background
}

func (b *Board) Lines() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string{}, b.lines...)
}

func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Snapshot{
		Alerts:     append([]string{}, b.alerts...),
		Background: b.background,
		Log:        append([]string{}, b.lines...),
	}
}

// Build implements catalog.ActionFactory for the alert and background kinds
func (b *Board) Build(kind, value string) (rules.Action, string, error) {
	switch kind {
	case KindAlert:
		return func() { b.Alert(value) }, fmt.Sprintf("Show alert %q", value), nil
	case KindBackground:
		return func() { b.SetBackground(value) }, fmt.Sprintf("Set background to %q", value), nil
	default:
		return nil, "", fmt.Errorf("%w: %q", catalog.ErrUnknownAction, kind)
	}
}

// LogFunc returns a rule outcome sink that appends one line per outcome.
// Record fields are listed in the schema's param order.
func (b *Board) LogFunc(reg *schema.Registry) rules.LogFunc {
	return func(rule *rules.Rule, success bool, record rules.Record, _ *rules.Failure) {
		keys, err := reg.ParamKeys(rule.Trigger.Schema)
		if err != nil {
			keys = nil
		}
		b.Append(FormatOutcome(rule, success, record, keys))
	}
}

// FormatOutcome renders a rule outcome as "SUCCESS:  name (a, b)" or "FAIL:  name (a, b)"
func FormatOutcome(rule *rules.Rule, success bool, record rules.Record, keys []string) string {
	status := "FAIL: "
	if success {
		status = "SUCCESS: "
	}

	values := make([]string, 0, len(keys))
	for _, key := range keys {
		v, ok := record.Field(key)
		if !ok {
			values = append(values, "-")
			continue
		}
		values = append(values, fmt.Sprint(v))
	}

	return fmt.Sprintf("%s %s (%s)", status, rule.Name, strings.Join(values, ", "))
}

func appendBounded(feed []string, item string, capacity int) []string {
	feed = append(feed, item)
	if over := len(feed) - capacity; over > 0 {
		feed = append(feed[:0], feed[over:]...)
	}
	return feed
}
