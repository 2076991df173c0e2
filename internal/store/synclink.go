package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrLinkNotFound is returned when a sync link id does not exist.
var ErrLinkNotFound = errors.New("sync link not found")

// SyncLink holds the per-link reconciliation cursors for one
// appointment/external-event pair. Device-local state: never part of the
// shared document, never exported in backups.
type SyncLink struct {
	ID                     string
	AppointmentID          string
	Provider               string
	ExternalCalendarID     string
	ExternalEventID        string
	LastSyncedAt           *time.Time
	LastExternalModifiedAt *time.Time
}

// cursorFormat mirrors the event timestamp format so cursor strings sort
// chronologically too.
const cursorFormat = "2006-01-02T15:04:05.000Z"

// PutSyncLink inserts or updates a sync link.
func (s *Store) PutSyncLink(ctx context.Context, link SyncLink) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_links
		(id, appointment_id, provider, external_calendar_id, external_event_id, last_synced_at, last_external_modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			appointment_id = excluded.appointment_id,
			external_event_id = excluded.external_event_id,
			last_synced_at = excluded.last_synced_at,
			last_external_modified_at = excluded.last_external_modified_at
	`,
		link.ID,
		link.AppointmentID,
		link.Provider,
		link.ExternalCalendarID,
		link.ExternalEventID,
		formatCursor(link.LastSyncedAt),
		formatCursor(link.LastExternalModifiedAt),
	)
	if err != nil {
		return fmt.Errorf("put sync link: %w", err)
	}
	return nil
}

// GetSyncLink returns one link by id, or ErrLinkNotFound.
func (s *Store) GetSyncLink(ctx context.Context, id string) (SyncLink, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, appointment_id, provider, external_calendar_id, external_event_id,
		       last_synced_at, last_external_modified_at
		FROM sync_links WHERE id = ?
	`, id)
	link, err := scanSyncLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SyncLink{}, ErrLinkNotFound
	}
	if err != nil {
		return SyncLink{}, fmt.Errorf("get sync link: %w", err)
	}
	return link, nil
}

// GetSyncLinkByAppointment looks up the link for a local appointment within
// one provider calendar, or ErrLinkNotFound.
func (s *Store) GetSyncLinkByAppointment(ctx context.Context, provider, externalCalendarID, appointmentID string) (SyncLink, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, appointment_id, provider, external_calendar_id, external_event_id,
		       last_synced_at, last_external_modified_at
		FROM sync_links
		WHERE provider = ? AND external_calendar_id = ? AND appointment_id = ?
	`, provider, externalCalendarID, appointmentID)
	link, err := scanSyncLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SyncLink{}, ErrLinkNotFound
	}
	if err != nil {
		return SyncLink{}, fmt.Errorf("get sync link by appointment: %w", err)
	}
	return link, nil
}

// ListSyncLinks returns all links for one provider calendar, ordered by id
// for deterministic batch processing.
func (s *Store) ListSyncLinks(ctx context.Context, provider, externalCalendarID string) ([]SyncLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, appointment_id, provider, external_calendar_id, external_event_id,
		       last_synced_at, last_external_modified_at
		FROM sync_links
		WHERE provider = ? AND external_calendar_id = ?
		ORDER BY id COLLATE BINARY ASC
	`, provider, externalCalendarID)
	if err != nil {
		return nil, fmt.Errorf("list sync links: %w", err)
	}
	defer rows.Close()

	var links []SyncLink
	for rows.Next() {
		link, err := scanSyncLink(rows)
		if err != nil {
			return nil, fmt.Errorf("list sync links: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync links: %w", err)
	}
	if links == nil {
		links = []SyncLink{}
	}
	return links, nil
}

// DeleteSyncLink removes a link. Deleting an absent link is a no-op.
func (s *Store) DeleteSyncLink(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sync_links WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete sync link: %w", err)
	}
	return nil
}

// AdvanceSyncCursors updates the two cursors for a link. Called after
// every reconciliation outcome, including no-op, so an unchanged pair is
// never reprocessed.
func (s *Store) AdvanceSyncCursors(ctx context.Context, id string, lastSyncedAt time.Time, lastExternalModifiedAt *time.Time) error {
	syncedAt := lastSyncedAt
	res, err := s.db.ExecContext(ctx, `
		UPDATE sync_links
		SET last_synced_at = ?, last_external_modified_at = ?
		WHERE id = ?
	`, formatCursor(&syncedAt), formatCursor(lastExternalModifiedAt), id)
	if err != nil {
		return fmt.Errorf("advance sync cursors: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("advance sync cursors: rows affected: %w", err)
	}
	if n == 0 {
		return ErrLinkNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncLink(row rowScanner) (SyncLink, error) {
	var link SyncLink
	var syncedAt, externalModifiedAt string
	err := row.Scan(
		&link.ID,
		&link.AppointmentID,
		&link.Provider,
		&link.ExternalCalendarID,
		&link.ExternalEventID,
		&syncedAt,
		&externalModifiedAt,
	)
	if err != nil {
		return SyncLink{}, err
	}
	link.LastSyncedAt, err = parseCursor(syncedAt)
	if err != nil {
		return SyncLink{}, fmt.Errorf("link %s: %w", link.ID, err)
	}
	link.LastExternalModifiedAt, err = parseCursor(externalModifiedAt)
	if err != nil {
		return SyncLink{}, fmt.Errorf("link %s: %w", link.ID, err)
	}
	return link, nil
}

func formatCursor(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(cursorFormat)
}

func parseCursor(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(cursorFormat, s)
	if err != nil {
		return nil, fmt.Errorf("parse cursor %q: %w", s, err)
	}
	return &t, nil
}
