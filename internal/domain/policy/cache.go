package policy

import (
	"encoding/json"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// lruEntry is a doubly-linked list node for the LRU decision cache.
type lruEntry struct {
	key      uint64
	decision Decision
	prev     *lruEntry
	next     *lruEntry
}

// ResultCache provides bounded LRU caching for PDP evaluation results, keyed
// by the hash of a Request against the PolicySet it was evaluated under.
// Thread-safe: both Get and Put mutate LRU order under mu.
type ResultCache struct {
	mu      sync.Mutex
	entries map[uint64]*lruEntry
	head    *lruEntry // most recently used
	tail    *lruEntry // least recently used
	maxSize int
}

// NewResultCache creates a new LRU cache holding at most maxSize decisions.
func NewResultCache(maxSize int) *ResultCache {
	return &ResultCache{
		entries: make(map[uint64]*lruEntry, maxSize),
		maxSize: maxSize,
	}
}

// Get retrieves a cached decision. Returns (decision, true) on hit, promoting
// the entry to the head; (zero, false) on miss.
func (c *ResultCache) Get(key uint64) (Decision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.moveToHeadLocked(e)
		return e.decision, true
	}
	return Decision{}, false
}

// Put stores a decision in the cache, evicting the least recently used entry
// if at capacity.
func (c *ResultCache) Put(key uint64, decision Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.decision = decision
		c.moveToHeadLocked(e)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictTailLocked()
	}

	e := &lruEntry{key: key, decision: decision}
	c.entries[key] = e
	c.pushHeadLocked(e)
}

// Clear empties the cache. Called whenever the underlying PolicySet changes,
// since a cached decision is only valid for the PolicySet it was computed
// against.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uint64]*lruEntry, c.maxSize)
	c.head = nil
	c.tail = nil
}

// Size returns the current number of cached entries.
func (c *ResultCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ResultCache) moveToHeadLocked(e *lruEntry) {
	if c.head == e {
		return
	}
	c.unlinkLocked(e)
	c.pushHeadLocked(e)
}

func (c *ResultCache) pushHeadLocked(e *lruEntry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *ResultCache) unlinkLocked(e *lruEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev = nil
	e.next = nil
}

func (c *ResultCache) evictTailLocked() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlinkLocked(c.tail)
}

// computeCacheKey hashes the (subject, resource, context, action) tuple a
// Request carries. Subject/Resource/Context are JSON-marshaled — Go's
// encoding/json sorts map keys, so the encoding (and the resulting hash) is
// deterministic regardless of map iteration order.
func computeCacheKey(req Request) uint64 {
	h := xxhash.New()

	writeJSON(h, req.Subject)
	_, _ = h.Write([]byte{0})
	writeJSON(h, req.Resource)
	_, _ = h.Write([]byte{0})
	writeJSON(h, req.Context)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(req.Action)

	return h.Sum64()
}

func writeJSON(h *xxhash.Digest, v map[string]interface{}) {
	if len(v) == 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = h.Write(b)
}
