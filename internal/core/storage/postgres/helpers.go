package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	v1 "github.com/xkorin-lab/xkorin/internal/api/v1"
)

// marshalEventData marshals the payload to JSON. A nil map is stored as {}.
func marshalEventData(event *v1.Event) ([]byte, error) {
	if event.Data == nil {
		return []byte(`{}`), nil
	}
	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data: %w", err)
	}
	return dataJSON, nil
}

// nullString maps "" to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullTime maps the zero time to SQL NULL.
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanEventRow scans an events row into an Event.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanEventRow(row scanner) (*v1.Event, error) {
	var evt v1.Event
	var userID, causationID sql.NullString
	var dataJSON []byte

	err := row.Scan(
		&evt.ID,
		&evt.Type,
		&evt.Priority,
		&evt.Timestamp,
		&userID,
		&evt.Metadata.CorrelationID,
		&causationID,
		&evt.Metadata.Version,
		&dataJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan event row: %w", err)
	}

	evt.UserID = userID.String
	evt.Metadata.CausationID = causationID.String

	if len(dataJSON) > 0 {
		if err := json.Unmarshal(dataJSON, &evt.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal data: %w", err)
		}
	}

	return &evt, nil
}

// collectEvents drains rows through scanEventRow.
func collectEvents(rows *sql.Rows) ([]*v1.Event, error) {
	defer rows.Close()

	var events []*v1.Event
	for rows.Next() {
		event, err := scanEventRow(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}
