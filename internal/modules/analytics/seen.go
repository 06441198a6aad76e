package analytics

import "container/list"

const defaultSeenCapacity = 50000

// seenSet is a bounded LRU of applied (handler, event id) keys. Keys evicted
// from it can be applied again, so the window should cover the bus retry and
// replay horizon. Not safe for concurrent use; Service guards it with mu.
type seenSet struct {
	capacity int
	keys     map[string]*list.Element
	order    *list.List
}

func newSeenSet(capacity int) *seenSet {
	if capacity <= 0 {
		capacity = defaultSeenCapacity
	}
	return &seenSet{
		capacity: capacity,
		keys:     make(map[string]*list.Element),
		order:    list.New(),
	}
}

// add records key and reports whether it was new.
func (s *seenSet) add(key string) bool {
	if elem, ok := s.keys[key]; ok {
		s.order.MoveToFront(elem)
		return false
	}
	if s.order.Len() >= s.capacity {
		if oldest := s.order.Back(); oldest != nil {
			delete(s.keys, oldest.Value.(string))
			s.order.Remove(oldest)
		}
	}
	s.keys[key] = s.order.PushFront(key)
	return true
}

func (s *seenSet) len() int {
	return s.order.Len()
}
