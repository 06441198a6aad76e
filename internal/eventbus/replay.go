package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
)

const defaultReplayPageSize = 500

// Ranger reads stored events in chronological order.
type Ranger interface {
	Range(ctx context.Context, start, end time.Time, types []v1.EventType, limit int) ([]*v1.Event, error)
}

// Replayer re-enqueues stored events without persisting them again.
type Replayer struct {
	store    Ranger
	bus      *Bus
	pageSize int
}

// NewReplayer creates a replayer reading pageSize events per query.
func NewReplayer(store Ranger, bus *Bus, pageSize int) *Replayer {
	if store == nil || bus == nil {
		panic("eventbus: replayer requires a store and a bus")
	}
	if pageSize <= 0 {
		pageSize = defaultReplayPageSize
	}
	return &Replayer{store: store, bus: bus, pageSize: pageSize}
}

// Replay enqueues every stored event in [start, end], oldest first, optionally
// restricted to types. Handlers see the original ids, so idempotent handlers
// ignore events they already applied.
func (r *Replayer) Replay(ctx context.Context, start, end time.Time, types []v1.EventType) (int, error) {
	if end.Before(start) {
		return 0, fmt.Errorf("replay window end %s is before start %s", end, start)
	}

	replayed := 0
	cursor := start
	seenAtCursor := make(map[string]struct{})

	for {
		// Events already seen at the cursor come back first; widen the page to skip them.
		limit := r.pageSize + len(seenAtCursor)
		page, err := r.store.Range(ctx, cursor, end, types, limit)
		if err != nil {
			return replayed, fmt.Errorf("replay: read events after %s: %w", cursor, err)
		}

		fresh := 0
		for _, event := range page {
			if _, dup := seenAtCursor[event.ID]; dup {
				continue
			}
			if event.Timestamp.After(cursor) {
				cursor = event.Timestamp
				seenAtCursor = make(map[string]struct{})
			}
			seenAtCursor[event.ID] = struct{}{}

			r.bus.Enqueue(event)
			replayed++
			fresh++
		}

		if len(page) < limit || fresh == 0 {
			break
		}
	}

	slog.Info("[EventBus] Replay enqueued",
		"start", start,
		"end", end,
		"types", types,
		"replayed", replayed,
	)
	return replayed, nil
}
