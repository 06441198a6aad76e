package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
	"github.com/xkorin-lab/xkorin/internal/core/storage"
)

func TestDeadLetterAdapter_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)
	firstSeen := now.Add(-time.Hour)
	entry := &storage.DeadLetter{
		ID:        "dl-new",
		EventID:   "evt-1",
		EventType: v1.AttemptGraded,
		Event: &v1.Event{
			ID:        "evt-1",
			Type:      v1.AttemptGraded,
			Timestamp: now,
			Metadata:  v1.Metadata{CorrelationID: "corr-1", Version: 1},
		},
		Handlers:    []string{"gamification.attempt_graded"},
		Error:       "ledger unavailable",
		LastAttempt: now,
		CreatedAt:   now,
	}

	// Existing row keeps its id, attempt count and creation time.
	mock.ExpectQuery(regexp.QuoteMeta(queryUpsertDeadLetter)).
		WithArgs(
			"dl-new",
			"evt-1",
			"ATTEMPT_GRADED",
			sqlmock.AnyArg(),
			pq.Array([]string{"gamification.attempt_graded"}),
			"ledger unavailable",
			1,
			now,
			now,
		).
		WillReturnRows(sqlmock.NewRows([]string{"id", "attempt_count", "created_at"}).AddRow("dl-old", 3, firstSeen))

	adapter := NewDeadLetterAdapter(db)
	require.NoError(t, adapter.Upsert(context.Background(), entry))
	require.Equal(t, "dl-old", entry.ID)
	require.Equal(t, 3, entry.AttemptCount)
	require.Equal(t, firstSeen, entry.CreatedAt)
	require.False(t, entry.Resolved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeadLetterAdapter_ListUnresolved(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-5 * time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta(queryListUnresolvedDeadLetters)).
		WithArgs("XP_GAINED", 3, sql.NullTime{Time: cutoff, Valid: true}, 10).
		WillReturnRows(sqlmock.NewRows(deadLetterColumns()).
			AddRow(
				"dl-1", "evt-1", "XP_GAINED",
				[]byte(`{"id":"evt-1","type":"XP_GAINED","priority":2,"timestamp":"2026-02-08T11:00:00Z","metadata":{"correlationId":"corr-1","version":1},"data":{"amount":10}}`),
				"{messaging.xp_gained}", "smtp timeout", 1, now.Add(-time.Hour), false, nil, now.Add(-time.Hour),
			),
		).RowsWillBeClosed()

	adapter := NewDeadLetterAdapter(db)
	entries, err := adapter.ListUnresolved(context.Background(), storage.DeadLetterFilter{
		EventType:         v1.XPGained,
		MaxAttempts:       3,
		LastAttemptBefore: cutoff,
		Limit:             10,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "evt-1", entries[0].EventID)
	require.Equal(t, []string{"messaging.xp_gained"}, entries[0].Handlers)
	require.Nil(t, entries[0].ResolvedAt)
	require.NotNil(t, entries[0].Event)
	require.Equal(t, "corr-1", entries[0].Event.Metadata.CorrelationID)
	require.Equal(t, float64(10), entries[0].Event.Data["amount"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeadLetterAdapter_Stats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	oldest := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(queryDeadLetterTotals)).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"total", "unresolved", "max_reached", "oldest"}).AddRow(5, 3, 1, oldest))
	mock.ExpectQuery(regexp.QuoteMeta(queryDeadLettersByType)).
		WillReturnRows(sqlmock.NewRows([]string{"event_type", "count"}).
			AddRow("XP_GAINED", 2).
			AddRow("LEVEL_UP", 1))

	adapter := NewDeadLetterAdapter(db)
	stats, err := adapter.Stats(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, 5, stats.Total)
	require.Equal(t, 3, stats.Unresolved)
	require.Equal(t, 1, stats.MaxRetriesReached)
	require.Equal(t, 2, stats.ByType[v1.XPGained])
	require.Equal(t, 1, stats.ByType[v1.LevelUp])
	require.NotNil(t, stats.OldestUnresolved)
	require.True(t, oldest.Equal(*stats.OldestUnresolved))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeadLetterAdapter_Resolve(t *testing.T) {
	now := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		matched int64
		wantErr error
	}{
		{name: "matched row", matched: 1},
		{name: "missing entry", matched: 0, wantErr: storage.ErrNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectExec(regexp.QuoteMeta(queryResolveDeadLetter)).
				WithArgs("evt-1", now).
				WillReturnResult(sqlmock.NewResult(0, tc.matched))

			err = NewDeadLetterAdapter(db).Resolve(context.Background(), "evt-1", now)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDeadLetterAdapter_DeleteResolvedBefore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cutoff := time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(queryDeleteResolvedDeadLetters)).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))

	deleted, err := NewDeadLetterAdapter(db).DeleteResolvedBefore(context.Background(), cutoff)
	require.NoError(t, err)
	require.Equal(t, int64(4), deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func deadLetterColumns() []string {
	return []string{
		"id", "event_id", "event_type", "payload", "handlers", "error",
		"attempt_count", "last_attempt", "resolved", "resolved_at", "created_at",
	}
}
