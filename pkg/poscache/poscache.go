// Package poscache remembers where evicted nodes were last drawn.
//
// When the viewer scrolls a lane out of its window, the nodes of that lane are
// removed from the live graph and their simulated coordinates are written
// here. When a node with the same id comes back, the viewer places it at the
// cached coordinate with physics disabled, so scrolling back and forth does
// not reshuffle the drawing.
//
// The cache is bounded: entries are ordered by the time they were written and
// the oldest eviction is dropped first once capacity is reached. A node that
// never comes back therefore cannot pin memory forever.
package poscache

import (
	"container/list"
	"sync"

	"github.com/matzehuels/tracelane/pkg/graph"
	"github.com/matzehuels/tracelane/pkg/layout"
)

// DefaultCapacity bounds the number of remembered positions.
const DefaultCapacity = 10_000

// Stats reports cache activity since creation or the last Purge.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Len       int
}

// Cache maps node ids to their last known coordinate. It is safe for
// concurrent use, although the viewer only uses it from its event loop.
type Cache struct {
	mu       sync.Mutex
	capacity int
	items    map[graph.NodeID]*list.Element
	order    *list.List // front = most recently evicted from the view

	hits, misses, evictions int64
}

type entry struct {
	id  graph.NodeID
	pos layout.Point
}

// New creates a cache holding at most capacity entries. A non-positive
// capacity selects DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		items:    make(map[graph.NodeID]*list.Element),
		order:    list.New(),
	}
}

// Put records the coordinate of a node leaving the view. Writing an existing
// id refreshes both the coordinate and its eviction time.
func (c *Cache) Put(id graph.NodeID, pos layout.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[id]; ok {
		elem.Value.(*entry).pos = pos
		c.order.MoveToFront(elem)
		return
	}
	if c.order.Len() >= c.capacity {
		c.evictOldest()
	}
	c.items[id] = c.order.PushFront(&entry{id: id, pos: pos})
}

// Get returns the cached coordinate without consuming it.
func (c *Cache) Get(id graph.NodeID) (layout.Point, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[id]; ok {
		c.hits++
		return elem.Value.(*entry).pos, true
	}
	c.misses++
	return layout.Point{}, false
}

// Take returns the cached coordinate and removes the entry. This is the
// reinsertion path: once the node is back in the view its live position is
// authoritative again.
func (c *Cache) Take(id graph.NodeID) (layout.Point, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[id]
	if !ok {
		c.misses++
		return layout.Point{}, false
	}
	c.hits++
	c.order.Remove(elem)
	delete(c.items, id)
	return elem.Value.(*entry).pos, true
}

// Delete drops an entry. It reports whether the id was present.
func (c *Cache) Delete(id graph.NodeID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[id]
	if !ok {
		return false
	}
	c.order.Remove(elem)
	delete(c.items, id)
	return true
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Purge drops every entry and resets the statistics.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[graph.NodeID]*list.Element)
	c.order.Init()
	c.hits, c.misses, c.evictions = 0, 0, 0
}

// Stats returns hit/miss/eviction counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Evictions: c.evictions, Len: c.order.Len()}
}

// evictOldest must be called with mu held.
func (c *Cache) evictOldest() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	c.order.Remove(elem)
	delete(c.items, elem.Value.(*entry).id)
	c.evictions++
}
