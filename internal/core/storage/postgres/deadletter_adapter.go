package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
	"github.com/xkorin-lab/xkorin/internal/core/storage"
)

const (
	queryUpsertDeadLetter = `
		INSERT INTO dead_letters (
			id, event_id, event_type, payload, handlers, error,
			attempt_count, last_attempt, resolved, resolved_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, NULL, $9)
		ON CONFLICT (event_id) DO UPDATE SET
			payload      = EXCLUDED.payload,
			handlers     = EXCLUDED.handlers,
			error        = EXCLUDED.error,
			last_attempt = EXCLUDED.last_attempt,
			resolved     = FALSE,
			resolved_at  = NULL
		RETURNING id, attempt_count, created_at
	`

	queryListUnresolvedDeadLetters = `
		SELECT
			id, event_id, event_type, payload, handlers, error,
			attempt_count, last_attempt, resolved, resolved_at, created_at
		FROM dead_letters
		WHERE resolved = FALSE
		  AND ($1 = '' OR event_type = $1)
		  AND ($2 <= 0 OR attempt_count < $2)
		  AND ($3::timestamptz IS NULL OR last_attempt < $3)
		ORDER BY created_at DESC
		LIMIT $4
	`

	queryDeadLetterTotals = `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE resolved = FALSE),
			COUNT(*) FILTER (WHERE resolved = FALSE AND attempt_count >= $1),
			MIN(created_at) FILTER (WHERE resolved = FALSE)
		FROM dead_letters
	`

	queryDeadLettersByType = `
		SELECT event_type, COUNT(*)
		FROM dead_letters
		WHERE resolved = FALSE
		GROUP BY event_type
	`

	queryIncrementDeadLetterAttempt = `
		UPDATE dead_letters
		SET attempt_count = attempt_count + 1, last_attempt = $2
		WHERE event_id = $1
	`

	// COALESCE keeps the first resolution time when resolving twice.
	queryResolveDeadLetter = `
		UPDATE dead_letters
		SET resolved = TRUE, resolved_at = COALESCE(resolved_at, $2)
		WHERE event_id = $1
	`

	queryDeleteResolvedDeadLetters = `
		DELETE FROM dead_letters
		WHERE resolved = TRUE
		  AND resolved_at < $1
	`
)

// DeadLetterAdapter implements storage.DeadLetterStore using PostgreSQL.
type DeadLetterAdapter struct {
	db *sql.DB
}

// NewDeadLetterAdapter creates a DeadLetterAdapter sharing the given connection.
func NewDeadLetterAdapter(db *sql.DB) *DeadLetterAdapter {
	return &DeadLetterAdapter{db: db}
}

// Upsert inserts or refreshes the dead letter for entry.EventID and fills in
// the persisted ID, AttemptCount and CreatedAt.
func (a *DeadLetterAdapter) Upsert(ctx context.Context, entry *storage.DeadLetter) error {
	payload, err := json.Marshal(entry.Event)
	if err != nil {
		return fmt.Errorf("dead letter upsert: marshal payload: %w", err)
	}

	attempts := entry.AttemptCount
	if attempts <= 0 {
		attempts = 1
	}

	err = a.db.QueryRowContext(ctx, queryUpsertDeadLetter,
		entry.ID,
		entry.EventID,
		string(entry.EventType),
		payload,
		pq.Array(entry.Handlers),
		entry.Error,
		attempts,
		entry.LastAttempt,
		entry.CreatedAt,
	).Scan(&entry.ID, &entry.AttemptCount, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("dead letter upsert %s: %w", entry.EventID, err)
	}

	entry.Resolved = false
	entry.ResolvedAt = nil

	slog.Debug("[DeadLetterAdapter] Upserted",
		"event_id", entry.EventID,
		"event_type", entry.EventType,
		"attempt_count", entry.AttemptCount)
	return nil
}

// ListUnresolved returns unresolved dead letters newest first.
func (a *DeadLetterAdapter) ListUnresolved(ctx context.Context, filter storage.DeadLetterFilter) ([]*storage.DeadLetter, error) {
	rows, err := a.db.QueryContext(ctx, queryListUnresolvedDeadLetters,
		string(filter.EventType),
		filter.MaxAttempts,
		nullTime(filter.LastAttemptBefore),
		filter.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list unresolved dead letters: %w", err)
	}
	defer rows.Close()

	var entries []*storage.DeadLetter
	for rows.Next() {
		entry, err := scanDeadLetterRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dead letters: %w", err)
	}

	return entries, nil
}

// Stats aggregates totals and the unresolved breakdown by event type.
func (a *DeadLetterAdapter) Stats(ctx context.Context, maxAttempts int) (*storage.DeadLetterStats, error) {
	stats := &storage.DeadLetterStats{ByType: make(map[v1.EventType]int)}

	var oldest sql.NullTime
	err := a.db.QueryRowContext(ctx, queryDeadLetterTotals, maxAttempts).Scan(
		&stats.Total,
		&stats.Unresolved,
		&stats.MaxRetriesReached,
		&oldest,
	)
	if err != nil {
		return nil, fmt.Errorf("dead letter stats: totals: %w", err)
	}
	if oldest.Valid {
		t := oldest.Time
		stats.OldestUnresolved = &t
	}

	rows, err := a.db.QueryContext(ctx, queryDeadLettersByType)
	if err != nil {
		return nil, fmt.Errorf("dead letter stats: by type: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var eventType string
		var count int
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, fmt.Errorf("dead letter stats: scan by type: %w", err)
		}
		stats.ByType[v1.EventType(eventType)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dead letter stats: iterate by type: %w", err)
	}

	return stats, nil
}

// IncrementAttempt bumps attempt_count for one event id.
func (a *DeadLetterAdapter) IncrementAttempt(ctx context.Context, eventID string, at time.Time) error {
	return a.execOne(ctx, "increment attempt", queryIncrementDeadLetterAttempt, eventID, at)
}

// Resolve marks one entry resolved. Resolving twice is a no-op.
func (a *DeadLetterAdapter) Resolve(ctx context.Context, eventID string, at time.Time) error {
	return a.execOne(ctx, "resolve", queryResolveDeadLetter, eventID, at)
}

// DeleteResolvedBefore removes resolved entries whose resolved_at is before cutoff.
func (a *DeadLetterAdapter) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := a.db.ExecContext(ctx, queryDeleteResolvedDeadLetters, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete resolved dead letters: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete resolved dead letters: rows affected: %w", err)
	}
	return deleted, nil
}

// execOne runs an update keyed by event_id and maps zero matched rows to ErrNotFound.
func (a *DeadLetterAdapter) execOne(ctx context.Context, op, query, eventID string, at time.Time) error {
	result, err := a.db.ExecContext(ctx, query, eventID, at)
	if err != nil {
		return fmt.Errorf("dead letter %s %s: %w", op, eventID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("dead letter %s %s: rows affected: %w", op, eventID, err)
	}
	if rowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanDeadLetterRow scans a dead_letters row and decodes the payload snapshot.
func scanDeadLetterRow(row scanner) (*storage.DeadLetter, error) {
	var entry storage.DeadLetter
	var eventType string
	var payload []byte
	var resolvedAt sql.NullTime

	err := row.Scan(
		&entry.ID,
		&entry.EventID,
		&eventType,
		&payload,
		pq.Array(&entry.Handlers),
		&entry.Error,
		&entry.AttemptCount,
		&entry.LastAttempt,
		&entry.Resolved,
		&resolvedAt,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan dead letter row: %w", err)
	}

	entry.EventType = v1.EventType(eventType)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		entry.ResolvedAt = &t
	}

	if len(payload) > 0 {
		var evt v1.Event
		if err := json.Unmarshal(payload, &evt); err != nil {
			return nil, fmt.Errorf("failed to unmarshal dead letter payload: %w", err)
		}
		entry.Event = &evt
	}

	return &entry, nil
}
