package catalog

import (
	"fmt"
	"sync"
	"time"
)

// DefinitionStore persists rule definitions in creation order
type DefinitionStore interface {
	Add(def *Definition) error
	List() ([]*Definition, error)
	Delete(id string) error
}

// InMemoryStore is a DefinitionStore for tests and database-less runs
type InMemoryStore struct {
	mu   sync.RWMutex
	defs []*Definition
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Add(def *Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.defs {
		if d.ID == def.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateDefinition, def.ID)
		}
	}
	if def.CreatedAt.IsZero() {
		def.CreatedAt = time.Now()
	}

	s.defs = append(s.defs, def)
	return nil
}

func (s *InMemoryStore) List() ([]*Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]*Definition{}, s.defs...), nil
}

func (s *InMemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, d := range s.defs {
		if d.ID == id {
			s.defs = append(s.defs[:i], s.defs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrDefinitionNotFound, id)
}
