package eventbus

import (
	"time"

	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
)

const bucketCount = int(v1.PriorityLow) + 1

// entry wraps one event waiting for delivery.
type entry struct {
	event *v1.Event

	// handlers restricts delivery to these registration names. Nil means every
	// handler registered for the type. After a partial failure it holds only
	// the handlers that failed.
	handlers []string

	// attempt counts failed deliveries so far.
	attempt       int
	nextAttemptAt time.Time
	lastErr       error

	// tick is the drain pass that last dispatched the entry. A retried entry
	// is not picked up again in the same pass.
	tick uint64

	// redelivery marks entries re-enqueued from the dead letter queue.
	redelivery bool
}

// priorityQueues holds one FIFO bucket per priority. Not safe for concurrent use;
// the Bus guards it with its mutex.
type priorityQueues struct {
	buckets [bucketCount][]*entry
}

func (q *priorityQueues) push(e *entry) {
	p := e.event.Priority
	if !p.Valid() {
		p = v1.PriorityNormal
	}
	q.buckets[p] = append(q.buckets[p], e)
}

// pop removes the first due entry, scanning buckets in priority order.
// Entries still waiting on their retry delay are skipped, not blocking the bucket.
func (q *priorityQueues) pop(now time.Time, tick uint64) *entry {
	for p := range q.buckets {
		bucket := q.buckets[p]
		for i, e := range bucket {
			if e.tick == tick || e.nextAttemptAt.After(now) {
				continue
			}
			q.buckets[p] = append(bucket[:i:i], bucket[i+1:]...)
			return e
		}
	}
	return nil
}

func (q *priorityQueues) counts() [bucketCount]int {
	var out [bucketCount]int
	for p, bucket := range q.buckets {
		out[p] = len(bucket)
	}
	return out
}
