package rules

import (
	"time"

	"github.com/liamcoop/arules/schema"
)

// TriggerCache caches the per-trigger rule lists used by Dispatch.
// This allows swapping the in-memory cache for a shared one.
//
// Every Invalidate advances the cache generation. A list read from the store
// is only cached if no invalidation happened since the read started, so a
// rule created or removed mid-dispatch is never hidden by a stale fill.
type TriggerCache interface {
	// Get returns the cached rules for a trigger, or ok=false on a miss or expiry
	Get(trigger schema.Trigger) (rules []*Rule, ok bool)

	// Generation returns the current invalidation generation
	Generation() uint64

	// SetIfGeneration stores the rules for a trigger if the cache is still at
	// generation. It reports whether the rules were stored.
	SetIfGeneration(trigger schema.Trigger, rules []*Rule, generation uint64) bool

	// Invalidate clears every cached trigger and advances the generation
	Invalidate()
}

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL is the time-to-live for cached entries.
	// Set to 0 for no expiration (invalidation on create/remove only).
	TTL time.Duration
}

// DefaultCacheConfig returns defaults for trigger caching
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL: 0,
	}
}
