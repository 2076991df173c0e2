package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/marloweapp/marlowe/internal/event"
)

// Append inserts a batch of events into the log in one transaction.
// Uses ON CONFLICT(id) DO NOTHING for idempotency: re-appending an event
// that already landed is a no-op, which makes at-least-once delivery from
// the dispatch queue safe.
func (s *Store) Append(ctx context.Context, events []event.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append events: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, ev := range events {
		if err := insertEvent(ctx, tx, ev); err != nil {
			return fmt.Errorf("append events: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append events: commit: %w", err)
	}
	return nil
}

// ReplaceAll discards the current log and adopts the given events as the
// entire new log, in one transaction. Used by replace-mode backup import.
func (s *Store) ReplaceAll(ctx context.Context, events []event.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace log: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("replace log: clear: %w", err)
	}

	for _, ev := range events {
		if err := insertEvent(ctx, tx, ev); err != nil {
			return fmt.Errorf("replace log: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace log: commit: %w", err)
	}
	return nil
}

// Merge unions the given events into the log, deduplicating by event id.
// On an id collision the locally-held event wins: the incoming row is
// dropped by ON CONFLICT DO NOTHING. Returns how many events were added
// and how many collided.
func (s *Store) Merge(ctx context.Context, events []event.Event) (added, collisions int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("merge log: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, ev := range events {
		payloadJSON, err := marshalPayload(ev.Payload)
		if err != nil {
			return 0, 0, fmt.Errorf("merge log: event %s: %w", ev.ID, err)
		}
		res, err := tx.ExecContext(ctx, insertEventSQL,
			ev.ID, ev.Type, ev.EntityID, payloadJSON, ev.Timestamp, ev.DeviceID)
		if err != nil {
			return 0, 0, fmt.Errorf("merge log: insert %s: %w", ev.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, 0, fmt.Errorf("merge log: rows affected: %w", err)
		}
		if n > 0 {
			added++
		} else {
			collisions++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("merge log: commit: %w", err)
	}
	return added, collisions, nil
}

const insertEventSQL = `
	INSERT INTO events (id, type, entity_id, payload, timestamp, device_id)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO NOTHING
`

func insertEvent(ctx context.Context, tx *sql.Tx, ev event.Event) error {
	payloadJSON, err := marshalPayload(ev.Payload)
	if err != nil {
		return fmt.Errorf("event %s: %w", ev.ID, err)
	}
	_, err = tx.ExecContext(ctx, insertEventSQL,
		ev.ID, ev.Type, ev.EntityID, payloadJSON, ev.Timestamp, ev.DeviceID)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", ev.ID, err)
	}
	return nil
}
