package rules

import (
	"sync"
	"time"

	"github.com/liamcoop/arules/schema"
)

type cachedRules struct {
	rules    []*Rule
	cachedAt time.Time
}

// InMemoryTriggerCache is an in-memory implementation of TriggerCache
type InMemoryTriggerCache struct {
	entries    map[schema.Trigger]cachedRules
	config     CacheConfig
	generation uint64
	mu         sync.RWMutex
}

// NewInMemoryTriggerCache creates a new in-memory trigger cache
func NewInMemoryTriggerCache(config CacheConfig) *InMemoryTriggerCache {
	return &InMemoryTriggerCache{
		entries: make(map[schema.Trigger]cachedRules),
		config:  config,
	}
}

// Get retrieves the cached rules for a trigger
func (c *InMemoryTriggerCache) Get(trigger schema.Trigger) ([]*Rule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[trigger]
	if !ok {
		return nil, false
	}

	if c.config.TTL > 0 && time.Since(entry.cachedAt) > c.config.TTL {
		return nil, false
	}

	// Return copy to prevent external modifications
	rulesCopy := make([]*Rule, len(entry.rules))
	copy(rulesCopy, entry.rules)
	return rulesCopy, true
}

// Generation returns the number of invalidations so far
func (c *InMemoryTriggerCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.generation
}

// SetIfGeneration stores the rules for a trigger unless the cache was
// invalidated after generation was read
func (c *InMemoryTriggerCache) SetIfGeneration(trigger schema.Trigger, rules []*Rule, generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		return false
	}

	stored := make([]*Rule, len(rules))
	copy(stored, rules)
	c.entries[trigger] = cachedRules{rules: stored, cachedAt: time.Now()}
	return true
}

// Invalidate clears the cache
func (c *InMemoryTriggerCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[schema.Trigger]cachedRules)
	c.generation++
}
