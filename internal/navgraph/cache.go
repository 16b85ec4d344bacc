package navgraph

import (
	"sync"
	"time"

	"hostcp/internal/domain"
)

// DefaultTTL is the unified-graph cache entry lifetime.
const DefaultTTL = 24 * time.Hour

type cacheKey struct {
	rootTreeID string
	teamID     string
}

type entry struct {
	graph     *domain.UnifiedGraph
	expiresAt time.Time
}

// Cache holds the UnifiedGraph in memory only, keyed by
// (root_tree_id, team_id). It owns a single mutex; callers never reach
// into it without going through this type.
type Cache struct {
	mu      sync.Mutex
	entries map[cacheKey]*entry
	ttl     time.Duration
	now     func() time.Time
}

func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]*entry), ttl: DefaultTTL, now: time.Now}
}

// Get returns the cached graph for (rootTreeID, teamID) if present and
// unexpired.
func (c *Cache) Get(rootTreeID, teamID string) (*domain.UnifiedGraph, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[cacheKey{rootTreeID, teamID}]
	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}
	return e.graph, true
}

// Put installs or replaces the cached graph for (rootTreeID, teamID),
// resetting its TTL.
func (c *Cache) Put(rootTreeID, teamID string, g *domain.UnifiedGraph) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{rootTreeID, teamID}] = &entry{graph: g, expiresAt: c.now().Add(c.ttl)}
}

// Refresh extends an entry's TTL without rebuilding the graph.
func (c *Cache) Refresh(rootTreeID, teamID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[cacheKey{rootTreeID, teamID}]
	if !ok {
		return false
	}
	e.expiresAt = c.now().Add(c.ttl)
	return true
}

// Invalidate drops the cached graph for (rootTreeID, teamID); the next
// read rebuilds from persistence.
func (c *Cache) Invalidate(rootTreeID, teamID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey{rootTreeID, teamID})
}

// Sweep drops every expired entry. It is additive to the lazy
// TTL-on-read check above: a background cron job (internal/navgraph's
// sweep.go) calls it periodically so long-idle entries don't linger in
// memory between reads.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	dropped := 0
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			dropped++
		}
	}
	return dropped
}

// Len reports the number of live (not-necessarily-unexpired) entries;
// used by tests.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
