package eventbus

import (
	"container/list"
	"errors"
	"fmt"
	"sync"

	"github.com/samber/lo"
	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
)

var (
	// ErrCausalCycle rejects an event whose type already appears in its causal ancestry.
	ErrCausalCycle = errors.New("causal cycle detected")

	// ErrChainTooDeep rejects an event that would exceed the configured chain depth.
	ErrChainTooDeep = errors.New("causal chain too deep")
)

const defaultChainIndexCapacity = 10000

// chainLink is what the guard remembers about one published event.
type chainLink struct {
	id        string
	eventType v1.EventType
	depth     int
	ancestors []v1.EventType
}

// chainIndex is a bounded LRU of recently published events keyed by id.
// It lets the publisher reject cycles without walking the event store.
type chainIndex struct {
	mu       sync.Mutex
	capacity int
	maxDepth int
	links    map[string]*list.Element
	order    *list.List
}

func newChainIndex(capacity, maxDepth int) *chainIndex {
	if capacity <= 0 {
		capacity = defaultChainIndexCapacity
	}
	return &chainIndex{
		capacity: capacity,
		maxDepth: maxDepth,
		links:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// check computes the link for a new event caused by causationID.
// known is false when the cause is not indexed; the link then starts a fresh depth count.
func (c *chainIndex) check(eventType v1.EventType, causationID string) (link chainLink, known bool, err error) {
	link = chainLink{eventType: eventType}
	if causationID == "" {
		return link, true, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.links[causationID]
	if !ok {
		link.depth = 1
		return link, false, nil
	}
	c.order.MoveToFront(elem)
	cause := elem.Value.(*chainLink)

	lineage := append(append([]v1.EventType(nil), cause.ancestors...), cause.eventType)
	if lo.Contains(lineage, eventType) {
		return link, true, fmt.Errorf("%w: %s already in chain %v", ErrCausalCycle, eventType, lineage)
	}

	link.depth = cause.depth + 1
	if c.maxDepth > 0 && link.depth > c.maxDepth {
		return link, true, fmt.Errorf("%w: depth %d exceeds %d", ErrChainTooDeep, link.depth, c.maxDepth)
	}
	link.ancestors = lineage
	return link, true, nil
}

// record remembers a published event, evicting the least recently used link when full.
func (c *chainIndex) record(id string, link chainLink) {
	c.mu.Lock()
	defer c.mu.Unlock()

	link.id = id
	if elem, ok := c.links[id]; ok {
		c.order.MoveToFront(elem)
		elem.Value = &link
		return
	}

	if c.order.Len() >= c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			delete(c.links, oldest.Value.(*chainLink).id)
			c.order.Remove(oldest)
		}
	}
	c.links[id] = c.order.PushFront(&link)
}

// has reports whether id is still indexed.
func (c *chainIndex) has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.links[id]
	return ok
}

func (c *chainIndex) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
