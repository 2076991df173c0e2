// Package sync reconciles appointments in the document with an external
// calendar provider: per linked pair it derives push, pull, or no-op from
// four timestamps, diffs the changed fields, and advances the link's
// cursors.
package sync

import (
	"context"
	"fmt"
	"time"
)

// ExternalEvent is the provider-neutral view of one calendar item.
type ExternalEvent struct {
	ID         string
	CalendarID string
	Title      string
	StartsAt   time.Time
	EndsAt     time.Time
	Location   string
	Notes      string
	// ModifiedAt is the provider's last-modified stamp; nil when the
	// provider does not expose one.
	ModifiedAt *time.Time
}

// EventPatch carries only the fields a push actually changes. A nil field
// is "leave as is".
type EventPatch struct {
	Title    *string
	StartsAt *time.Time
	EndsAt   *time.Time
	Location *string
	Notes    *string
}

// Empty reports whether the patch changes nothing.
func (p EventPatch) Empty() bool {
	return p.Title == nil && p.StartsAt == nil && p.EndsAt == nil && p.Location == nil && p.Notes == nil
}

// Provider is one external calendar backend.
type Provider interface {
	// Name identifies the backend ("ics", "caldav", ...). Stored in sync
	// links, so it must be stable across releases.
	Name() string

	// Authorized reports whether the provider can currently be used.
	Authorized(ctx context.Context) (bool, error)

	// GetEvent fetches one event. Returns ErrEventNotFound when the
	// external side deleted it.
	GetEvent(ctx context.Context, calendarID, eventID string) (ExternalEvent, error)

	// ListEvents returns the calendar's events starting within [from, to).
	ListEvents(ctx context.Context, calendarID string, from, to time.Time) ([]ExternalEvent, error)

	// CreateEvent writes a new external event and returns its external id.
	CreateEvent(ctx context.Context, calendarID string, ev ExternalEvent) (string, error)

	// UpdateEvent applies a patch to an existing external event.
	UpdateEvent(ctx context.Context, calendarID, eventID string, patch EventPatch) error
}

// ErrEventNotFound is returned by providers when the external event no
// longer exists.
var ErrEventNotFound = fmt.Errorf("external event not found")

// ProviderError wraps a provider failure with enough context to log and
// count it without aborting the rest of a reconciliation run.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
