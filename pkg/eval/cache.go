package eval

import (
	"sync"
	"sync/atomic"

	"github.com/chazu/glyphgraph/pkg/fragment"
	"github.com/chazu/glyphgraph/pkg/graph"
)

// DefaultCacheCapacity is the number of fragments kept when no capacity is
// configured.
const DefaultCacheCapacity = 4096

type entry struct {
	node graph.NodeID
	frag fragment.Fragment
	seq  uint64
}

type slot struct {
	key string
	seq uint64
}

// Cache is a bounded, thread-safe fragment cache. Entries are evicted in
// insertion order once the capacity is reached.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]entry
	byNode   map[graph.NodeID]map[string]struct{}
	order    []slot // insertion order, may hold stale slots
	seq      uint64

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// NewCache returns a cache holding at most capacity fragments. A capacity
// of zero or less selects DefaultCacheCapacity.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]entry),
		byNode:   make(map[graph.NodeID]map[string]struct{}),
	}
}

// Get returns the fragment stored under key.
func (c *Cache) Get(key string) (fragment.Fragment, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return e.frag, ok
}

// Put stores f under key on behalf of node.
func (c *Cache) Put(key string, node graph.NodeID, f fragment.Fragment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && e.node == node {
		e.frag = f
		c.entries[key] = e
		return
	}
	c.removeLocked(key)
	for len(c.entries) >= c.capacity && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		if c.liveLocked(oldest) {
			c.removeLocked(oldest.key)
			c.evictions.Add(1)
		}
	}
	c.seq++
	c.entries[key] = entry{node: node, frag: f, seq: c.seq}
	keys := c.byNode[node]
	if keys == nil {
		keys = make(map[string]struct{})
		c.byNode[node] = keys
	}
	keys[key] = struct{}{}
	c.order = append(c.order, slot{key: key, seq: c.seq})
	if len(c.order) > 2*c.capacity {
		c.compactLocked()
	}
}

// DropNode removes every entry stored on behalf of node and returns how many
// were removed.
func (c *Cache) DropNode(node graph.NodeID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := c.byNode[node]
	n := len(keys)
	for k := range keys {
		c.removeLocked(k)
	}
	return n
}

// Len returns the number of cached fragments.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear removes all entries. Statistics are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	c.byNode = make(map[graph.NodeID]map[string]struct{})
	c.order = nil
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Len       int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Stats returns the current counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Len:       c.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

func (c *Cache) removeLocked(key string) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)
	if keys := c.byNode[e.node]; keys != nil {
		delete(keys, key)
		if len(keys) == 0 {
			delete(c.byNode, e.node)
		}
	}
}

// compactLocked drops order slots whose entries are gone.
func (c *Cache) compactLocked() {
	live := c.order[:0:0]
	for _, s := range c.order {
		if c.liveLocked(s) {
			live = append(live, s)
		}
	}
	c.order = live
}

func (c *Cache) liveLocked(s slot) bool {
	e, ok := c.entries[s.key]
	return ok && e.seq == s.seq
}

// peek is Get without touching the counters.
func (c *Cache) peek(key string) (fragment.Fragment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e.frag, ok
}
