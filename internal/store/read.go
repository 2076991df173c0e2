package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/marloweapp/marlowe/internal/event"
)

// LoadAll returns every event in the log, pre-ordered by the replay key:
// ORDER BY timestamp ASC, device_id ASC, id COLLATE BINARY ASC.
//
// Bootstrap still runs event.SortEvents over the result; the SQL ordering
// is an optimization, not the authority on replay order.
func (s *Store) LoadAll(ctx context.Context) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, entity_id, payload, timestamp, device_id
		FROM events
		ORDER BY timestamp ASC, device_id ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListRecent returns the newest events by replay order, newest first.
// Used by the log inspection command.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, entity_id, payload, timestamp, device_id
		FROM events
		ORDER BY timestamp DESC, device_id DESC, id COLLATE BINARY DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]event.Event, error) {
	var events []event.Event
	for rows.Next() {
		var ev event.Event
		var payloadJSON string
		if err := rows.Scan(&ev.ID, &ev.Type, &ev.EntityID, &payloadJSON, &ev.Timestamp, &ev.DeviceID); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		payload, err := unmarshalPayload(payloadJSON)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", ev.ID, err)
		}
		ev.Payload = payload
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	// Return empty slice instead of nil
	if events == nil {
		events = []event.Event{}
	}
	return events, nil
}
