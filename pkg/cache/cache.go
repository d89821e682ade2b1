// Package cache implements the resolver's object cache: a bounded LRU of idle
// objects plus an unbounded, reference counted set of objects in use.
//
// An object handed out by Get stays pinned until every Get has been matched
// by a Return. Only idle objects are ever evicted, so a long lived reader or
// writer never loses its instance mid-use.
package cache

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/papercomputeco/aff4meta/pkg/logger"
	"github.com/papercomputeco/aff4meta/pkg/rdfvalue"
)

// DefaultMaxItems is the idle capacity used when the config leaves it unset.
const DefaultMaxItems = 10

// Object is the part of a constructed AFF4 object the cache depends on.
type Object interface {
	// URN identifies the object; its serialized form is the cache key.
	URN() rdfvalue.URN

	// IsDirty reports whether the object holds unflushed state.
	IsDirty() bool

	// Flush persists dirty state. It may open other objects through the
	// resolver, which can dirty them in turn.
	Flush() error

	// Close releases the object. It is called once, after a final Flush.
	Close() error
}

// Config configures an ObjectCache.
type Config struct {
	// MaxItems bounds the number of idle entries. Defaults to DefaultMaxItems.
	MaxItems int

	// Logger is the provided slog logger. Defaults to a no-op logger.
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *Metrics
}

// sentinel is the arena slot of the ring head. entries[sentinel].next is the
// most recently idled entry, entries[sentinel].prev the least recent.
const sentinel = 0

// entry is one arena slot. prev and next are arena indices; an unlinked
// entry points at itself.
type entry struct {
	key      string
	obj      Object
	useCount int
	prev     int
	next     int
}

// ObjectCache tracks every live object instance. Each entry is either in
// inUse (useCount >= 1) or in the idle ring (useCount == 0), never both.
//
// ObjectCache is not safe for concurrent use.
type ObjectCache struct {
	maxItems int

	entries []entry
	free    []int

	// inUse and lru map the serialized URN to an arena index.
	inUse map[string]int
	lru   map[string]int

	logger  *slog.Logger
	metrics *Metrics
}

// New creates an empty cache.
func New(c *Config) *ObjectCache {
	if c == nil {
		c = &Config{}
	}
	maxItems := c.MaxItems
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	oc := &ObjectCache{
		maxItems: maxItems,
		entries:  make([]entry, 1, maxItems+1),
		inUse:    make(map[string]int),
		lru:      make(map[string]int),
		logger:   log,
		metrics:  c.Metrics,
	}
	oc.entries[sentinel].prev = sentinel
	oc.entries[sentinel].next = sentinel
	return oc
}

// MaxItems returns the idle capacity.
func (c *ObjectCache) MaxItems() int {
	return c.maxItems
}

// Put registers obj. An in-use object starts with a use count of 1 and must
// be Returned; otherwise it becomes the most recently used idle entry and the
// ring is trimmed. Registering a URN that is already cached is a contract
// violation.
func (c *ObjectCache) Put(obj Object, inUse bool) error {
	key := obj.URN().String()
	if _, ok := c.inUse[key]; ok {
		return contractError("put", key, "object put in cache while already in use")
	}
	if _, ok := c.lru[key]; ok {
		return contractError("put", key, "object put in cache while already in cache")
	}

	idx := c.alloc(key, obj)
	if inUse {
		c.entries[idx].useCount = 1
		c.inUse[key] = idx
		c.observe()
		return nil
	}

	c.linkFront(idx)
	c.lru[key] = idx
	c.observe()
	return c.trim(c.maxItems)
}

// Get returns the cached instance for u. An in-use hit gains one more use;
// an idle hit leaves the ring and is pinned with a use count of 1. A miss
// returns (nil, false).
func (c *ObjectCache) Get(u rdfvalue.URN) (Object, bool) {
	key := u.String()
	if idx, ok := c.inUse[key]; ok {
		c.entries[idx].useCount++
		c.metrics.hit()
		return c.entries[idx].obj, true
	}

	idx, ok := c.lru[key]
	if !ok {
		c.metrics.miss()
		return nil, false
	}

	delete(c.lru, key)
	c.unlink(idx)
	c.entries[idx].useCount = 1
	c.inUse[key] = idx

	c.metrics.hit()
	c.observe()
	return c.entries[idx].obj, true
}

// Return releases one use of obj. When the last use is released the entry
// becomes the most recently used idle entry and the ring is trimmed; errors
// from flushing evicted objects are returned.
func (c *ObjectCache) Return(obj Object) error {
	key := obj.URN().String()
	idx, ok := c.inUse[key]
	if !ok {
		return contractError("return", key, "object returned to cache, but it is not in use")
	}
	if c.entries[idx].useCount <= 0 {
		return contractError("return", key, "returned object is not used")
	}

	c.entries[idx].useCount--
	if c.entries[idx].useCount > 0 {
		return nil
	}

	delete(c.inUse, key)
	c.linkFront(idx)
	c.lru[key] = idx
	c.observe()

	return c.trim(c.maxItems)
}

// Remove drops obj from whichever collection holds it, then flushes and
// closes it. The URN is constructed afresh on next access.
func (c *ObjectCache) Remove(obj Object) error {
	key := obj.URN().String()

	idx, ok := c.lru[key]
	if ok {
		delete(c.lru, key)
		c.unlink(idx)
	} else if idx, ok = c.inUse[key]; ok {
		delete(c.inUse, key)
	} else {
		return contractError("remove", key, "object removed from cache, but was never there")
	}

	target := c.entries[idx].obj
	c.release(idx)
	c.observe()

	return finalize(key, target)
}

// Trim evicts least recently used idle entries until at most limit remain.
// Pinned entries are never evicted.
func (c *ObjectCache) Trim(limit int) error {
	if limit < 0 {
		limit = 0
	}
	return c.trim(limit)
}

func (c *ObjectCache) trim(limit int) error {
	var errs []error
	for len(c.lru) > limit {
		idx := c.entries[sentinel].prev
		key := c.entries[idx].key
		obj := c.entries[idx].obj

		c.logger.Debug("trimming object from cache", "urn", key)

		delete(c.lru, key)
		c.unlink(idx)
		c.release(idx)
		c.metrics.evict()

		if err := finalize(key, obj); err != nil {
			errs = append(errs, err)
		}
	}
	c.observe()
	return errors.Join(errs...)
}

// Flush persists and closes every idle object. It is a contract violation to
// flush while any object is still in use.
//
// Dirty objects are flushed repeatedly until a whole pass finds none dirty,
// since flushing one object may dirty another (or add new entries). Only
// then are the idle entries closed and dropped.
func (c *ObjectCache) Flush() error {
	if len(c.inUse) > 0 {
		c.logger.Error("object cache flushed while objects are in use", "in_use", len(c.inUse))
		c.dumpToLogger()
		return contractError("flush", "", fmt.Sprintf("object cache flushed while %d objects in use", len(c.inUse)))
	}

	for {
		dirty := false
		for _, idx := range c.ring() {
			obj := c.entries[idx].obj
			if obj == nil || !obj.IsDirty() {
				continue
			}
			dirty = true
			if err := obj.Flush(); err != nil {
				return fmt.Errorf("flushing %s: %w", c.entries[idx].key, err)
			}
		}
		if !dirty {
			break
		}
	}

	var errs []error
	for _, idx := range c.ring() {
		key := c.entries[idx].key
		if err := c.entries[idx].obj.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", key, err))
		}
		delete(c.lru, key)
		c.unlink(idx)
		c.release(idx)
	}
	clear(c.lru)
	c.observe()

	return errors.Join(errs...)
}

// Dump writes the in-use keys with their use counts followed by the idle
// keys, most recently used first.
func (c *ObjectCache) Dump(w io.Writer) {
	fmt.Fprintln(w, "Objects in use:")
	for key, idx := range c.inUse {
		fmt.Fprintf(w, "%s - %d\n", key, c.entries[idx].useCount)
	}

	fmt.Fprintln(w, "Objects in cache:")
	for _, idx := range c.ring() {
		fmt.Fprintf(w, "%s - %d\n", c.entries[idx].key, c.entries[idx].useCount)
	}
}

func (c *ObjectCache) dumpToLogger() {
	for key, idx := range c.inUse {
		c.logger.Debug("object in use", "urn", key, "use_count", c.entries[idx].useCount)
	}
}

// UseCount returns the use count of the entry for u and whether it is
// cached at all. Idle entries report 0.
func (c *ObjectCache) UseCount(u rdfvalue.URN) (int, bool) {
	key := u.String()
	if idx, ok := c.inUse[key]; ok {
		return c.entries[idx].useCount, true
	}
	if _, ok := c.lru[key]; ok {
		return 0, true
	}
	return 0, false
}

// InUse returns the number of pinned entries.
func (c *ObjectCache) InUse() int {
	return len(c.inUse)
}

// Idle returns the number of entries in the idle ring.
func (c *ObjectCache) Idle() int {
	return len(c.lru)
}

// IdleKeys lists idle entries from most to least recently used.
func (c *ObjectCache) IdleKeys() []string {
	ring := c.ring()
	keys := make([]string, 0, len(ring))
	for _, idx := range ring {
		keys = append(keys, c.entries[idx].key)
	}
	return keys
}

// ring snapshots the idle ring MRU first so callers may mutate the cache
// while walking it.
func (c *ObjectCache) ring() []int {
	out := make([]int, 0, len(c.lru))
	for idx := c.entries[sentinel].next; idx != sentinel; idx = c.entries[idx].next {
		out = append(out, idx)
	}
	return out
}

func (c *ObjectCache) alloc(key string, obj Object) int {
	var idx int
	if n := len(c.free); n > 0 {
		idx = c.free[n-1]
		c.free = c.free[:n-1]
	} else {
		c.entries = append(c.entries, entry{})
		idx = len(c.entries) - 1
	}
	c.entries[idx] = entry{key: key, obj: obj, prev: idx, next: idx}
	return idx
}

func (c *ObjectCache) release(idx int) {
	c.entries[idx] = entry{prev: idx, next: idx}
	c.free = append(c.free, idx)
}

func (c *ObjectCache) linkFront(idx int) {
	head := c.entries[sentinel].next
	c.entries[idx].prev = sentinel
	c.entries[idx].next = head
	c.entries[head].prev = idx
	c.entries[sentinel].next = idx
}

func (c *ObjectCache) unlink(idx int) {
	e := c.entries[idx]
	c.entries[e.prev].next = e.next
	c.entries[e.next].prev = e.prev
	c.entries[idx].prev = idx
	c.entries[idx].next = idx
}

func (c *ObjectCache) observe() {
	c.metrics.set(len(c.inUse), len(c.lru))
}

// finalize flushes then closes an object leaving the cache.
func finalize(key string, obj Object) error {
	flushErr := obj.Flush()
	closeErr := obj.Close()
	if flushErr != nil || closeErr != nil {
		return fmt.Errorf("evicting %s: %w", key, errors.Join(flushErr, closeErr))
	}
	return nil
}
