package postgres

// SQL queries for the event history.

const (
	// queryAppendEvent inserts an envelope keyed by its id.
	// ON CONFLICT DO NOTHING returns no rows (sql.ErrNoRows) for duplicates.
	queryAppendEvent = `
		INSERT INTO events (
			id, type, priority, occurred_at, user_id,
			correlation_id, causation_id, version, data
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
		RETURNING seq
	`

	// queryEventHistory filters the history newest first.
	// Empty strings and NULL timestamps disable their filter.
	queryEventHistory = `
		SELECT
			id, type, priority, occurred_at, user_id,
			correlation_id, causation_id, version, data
		FROM events
		WHERE ($1 = '' OR type = $1)
		  AND ($2 = '' OR user_id = $2)
		  AND ($3 = '' OR correlation_id = $3)
		  AND ($4::timestamptz IS NULL OR occurred_at >= $4)
		  AND ($5::timestamptz IS NULL OR occurred_at <= $5)
		ORDER BY occurred_at DESC, seq DESC
		LIMIT $6
	`

	// queryEventRange feeds replay in chronological order.
	// An empty type array matches every type.
	queryEventRange = `
		SELECT
			id, type, priority, occurred_at, user_id,
			correlation_id, causation_id, version, data
		FROM events
		WHERE occurred_at >= $1
		  AND occurred_at <= $2
		  AND (cardinality($3::text[]) = 0 OR type = ANY($3::text[]))
		ORDER BY occurred_at ASC, seq ASC
		LIMIT $4
	`

	// queryExpireEvents deletes one batch of events past retention.
	queryExpireEvents = `
		DELETE FROM events
		WHERE seq IN (
			SELECT seq FROM events
			WHERE occurred_at < $1
			ORDER BY seq ASC
			LIMIT $2
		)
	`
)
