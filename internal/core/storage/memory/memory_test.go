package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
	"github.com/xkorin-lab/xkorin/internal/core/storage"
)

func testEvent(id string, typ v1.EventType, userID string, ts time.Time) *v1.Event {
	return &v1.Event{
		ID:        id,
		Type:      typ,
		Priority:  v1.PriorityNormal,
		Timestamp: ts,
		UserID:    userID,
		Metadata:  v1.Metadata{CorrelationID: "corr-" + id, Version: 1},
	}
}

func TestEventStore_QueryNewestFirstWithDefaultLimit(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore()
	base := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 60; i++ {
		id := "evt-" + time.Duration(i).String()
		require.NoError(t, store.Append(ctx, testEvent(id, v1.XPGained, "u1", base.Add(time.Duration(i)*time.Second))))
	}

	events, err := store.Query(ctx, storage.EventQuery{})
	require.NoError(t, err)
	require.Len(t, events, storage.DefaultHistoryLimit)
	for i := 1; i < len(events); i++ {
		require.False(t, events[i].Timestamp.After(events[i-1].Timestamp))
	}
	require.Equal(t, base.Add(59*time.Second), events[0].Timestamp)
}

func TestEventStore_QueryFilters(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore()
	base := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, testEvent("a", v1.AttemptGraded, "u1", base)))
	require.NoError(t, store.Append(ctx, testEvent("b", v1.XPGained, "u1", base.Add(time.Minute))))
	require.NoError(t, store.Append(ctx, testEvent("c", v1.XPGained, "u2", base.Add(2*time.Minute))))

	events, err := store.Query(ctx, storage.EventQuery{Type: v1.XPGained})
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "c", events[0].ID)

	events, err = store.Query(ctx, storage.EventQuery{UserID: "u1", StartDate: base.Add(30 * time.Second)})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "b", events[0].ID)

	events, err = store.Query(ctx, storage.EventQuery{CorrelationID: "corr-a"})
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestEventStore_AppendDuplicate(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore()
	event := testEvent("a", v1.AttemptGraded, "u1", time.Now())

	require.NoError(t, store.Append(ctx, event))
	require.ErrorIs(t, store.Append(ctx, event), storage.ErrDuplicate)
	require.Equal(t, 1, store.Len())
}

func TestEventStore_DeleteOlderThanBatches(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore()
	base := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, testEvent("old-1", v1.XPGained, "u1", base.Add(-48*time.Hour))))
	require.NoError(t, store.Append(ctx, testEvent("old-2", v1.XPGained, "u1", base.Add(-36*time.Hour))))
	require.NoError(t, store.Append(ctx, testEvent("new", v1.XPGained, "u1", base)))

	deleted, err := store.DeleteOlderThan(ctx, base.Add(-24*time.Hour), 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	deleted, err = store.DeleteOlderThan(ctx, base.Add(-24*time.Hour), 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)
	require.Equal(t, 1, store.Len())

	require.NoError(t, store.Append(ctx, testEvent("old-1", v1.XPGained, "u1", base)))
}

func TestEventStore_RangeAscending(t *testing.T) {
	ctx := context.Background()
	store := NewEventStore()
	base := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, testEvent("b", v1.XPGained, "u1", base.Add(time.Minute))))
	require.NoError(t, store.Append(ctx, testEvent("a", v1.AttemptGraded, "u1", base)))
	require.NoError(t, store.Append(ctx, testEvent("c", v1.LevelUp, "u1", base.Add(2*time.Minute))))

	events, err := store.Range(ctx, base, base.Add(time.Hour), []v1.EventType{v1.AttemptGraded, v1.LevelUp}, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "a", events[0].ID)
	require.Equal(t, "c", events[1].ID)
}

func TestDeadLetterStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewDeadLetterStore()
	now := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)

	entry := &storage.DeadLetter{
		ID:          "dl-1",
		EventID:     "evt-1",
		EventType:   v1.XPGained,
		Handlers:    []string{"messaging.xp_gained"},
		Error:       "boom",
		LastAttempt: now,
		CreatedAt:   now,
	}
	require.NoError(t, store.Upsert(ctx, entry))
	require.Equal(t, 1, entry.AttemptCount)

	require.NoError(t, store.IncrementAttempt(ctx, "evt-1", now.Add(time.Minute)))

	again := &storage.DeadLetter{ID: "dl-2", EventID: "evt-1", EventType: v1.XPGained, Error: "boom again", LastAttempt: now.Add(2 * time.Minute)}
	require.NoError(t, store.Upsert(ctx, again))
	require.Equal(t, "dl-1", again.ID)
	require.Equal(t, 2, again.AttemptCount)

	stats, err := store.Stats(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Unresolved)
	require.Equal(t, 1, stats.MaxRetriesReached)
	require.Equal(t, 1, stats.ByType[v1.XPGained])

	require.NoError(t, store.Resolve(ctx, "evt-1", now.Add(time.Hour)))
	require.NoError(t, store.Resolve(ctx, "evt-1", now.Add(2*time.Hour)))
	got, ok := store.Get("evt-1")
	require.True(t, ok)
	require.True(t, got.Resolved)
	require.Equal(t, now.Add(time.Hour), *got.ResolvedAt)

	require.ErrorIs(t, store.Resolve(ctx, "missing", now), storage.ErrNotFound)

	unresolved, err := store.ListUnresolved(ctx, storage.DeadLetterFilter{})
	require.NoError(t, err)
	require.Empty(t, unresolved)

	deleted, err := store.DeleteResolvedBefore(ctx, now.Add(30*time.Minute))
	require.NoError(t, err)
	require.Zero(t, deleted)

	deleted, err = store.DeleteResolvedBefore(ctx, now.Add(3*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)
}

func TestLedger_CreditIsIdempotentPerEventAndSource(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger()
	now := time.Now()

	res, err := ledger.Credit(ctx, storage.XPCredit{UserID: "u1", EventID: "e1", Source: "exam", Amount: 80, At: now})
	require.NoError(t, err)
	require.True(t, res.Applied)
	require.Equal(t, 80, res.NewTotal)

	res, err = ledger.Credit(ctx, storage.XPCredit{UserID: "u1", EventID: "e1", Source: "exam", Amount: 80, At: now})
	require.NoError(t, err)
	require.False(t, res.Applied)
	require.Equal(t, 80, res.NewTotal)

	res, err = ledger.Credit(ctx, storage.XPCredit{UserID: "u1", EventID: "e1", Source: "badge", Amount: 50, At: now})
	require.NoError(t, err)
	require.True(t, res.Applied)
	require.Equal(t, 130, res.NewTotal)

	require.Equal(t, 2, ledger.Transactions("u1", "e1"))

	// Another event moves the total; a replayed credit still reports its own totals.
	_, err = ledger.Credit(ctx, storage.XPCredit{UserID: "u1", EventID: "e2", Source: "enrollment", Amount: 10, At: now})
	require.NoError(t, err)
	res, err = ledger.Credit(ctx, storage.XPCredit{UserID: "u1", EventID: "e1", Source: "badge", Amount: 50, At: now})
	require.NoError(t, err)
	require.Equal(t, storage.XPResult{Applied: false, OldTotal: 80, NewTotal: 130}, res)

	total, err := ledger.TotalXP(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 140, total)
}

func TestLedger_AwardBadgeReportsHoldingEvent(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger()
	now := time.Now()

	awarded, err := ledger.AwardBadge(ctx, "u1", "perfect-score", "e1", now)
	require.NoError(t, err)
	require.True(t, awarded)

	awarded, err = ledger.AwardBadge(ctx, "u1", "perfect-score", "e1", now)
	require.NoError(t, err)
	require.True(t, awarded, "redelivery of the earning event still holds the badge")

	awarded, err = ledger.AwardBadge(ctx, "u1", "perfect-score", "e2", now)
	require.NoError(t, err)
	require.False(t, awarded)
}
