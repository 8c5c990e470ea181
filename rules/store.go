package rules

import (
	"fmt"
	"sync"
	"time"

	"github.com/liamcoop/arules/schema"
)

// RuleStore holds defined rules in creation order
type RuleStore interface {
	// Add appends a new rule
	Add(rule *Rule) error

	// Get returns a rule by ID
	Get(id string) (*Rule, error)

	// List returns all rules in creation order
	List() ([]*Rule, error)

	// ListByTrigger returns the rules bound to a trigger in creation order
	ListByTrigger(trigger schema.Trigger) ([]*Rule, error)

	// Delete removes a rule by ID
	Delete(id string) error
}

// InMemoryRuleStore implements RuleStore with an ordered slice and an ID index
type InMemoryRuleStore struct {
	rules []*Rule
	byID  map[string]*Rule
	mu    sync.RWMutex
}

// NewInMemoryRuleStore creates a new in-memory rule store
func NewInMemoryRuleStore() *InMemoryRuleStore {
	return &InMemoryRuleStore{
		byID: make(map[string]*Rule),
	}
}

// Add appends a rule; IDs must be unique.
// CreatedAt is set if the caller left it empty.
func (s *InMemoryRuleStore) Add(rule *Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[rule.ID]; exists {
		return fmt.Errorf("%w: rule with ID %s already exists", ErrInvalidRule, rule.ID)
	}

	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}
	s.rules = append(s.rules, rule)
	s.byID[rule.ID] = rule
	return nil
}

// Get retrieves a rule by ID
func (s *InMemoryRuleStore) Get(id string) (*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, exists := s.byID[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rule, nil
}

// List returns a snapshot of all rules in creation order
func (s *InMemoryRuleStore) List() ([]*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]*Rule, len(s.rules))
	copy(snapshot, s.rules)
	return snapshot, nil
}

// ListByTrigger returns a snapshot of the rules bound to trigger
func (s *InMemoryRuleStore) ListByTrigger(trigger schema.Trigger) ([]*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := []*Rule{}
	for _, rule := range s.rules {
		if rule.Trigger == trigger {
			matched = append(matched, rule)
		}
	}
	return matched, nil
}

// Delete removes a rule, keeping the order of the remaining rules
func (s *InMemoryRuleStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[id]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	for i, rule := range s.rules {
		if rule.ID == id {
			s.rules = append(s.rules[:i], s.rules[i+1:]...)
			break
		}
	}
	delete(s.byID, id)
	return nil
}
