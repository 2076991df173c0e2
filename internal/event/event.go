// Package event defines the immutable event record and its total order.
//
// Every state change in the CRM is an Event appended to a device-local log.
// Replaying the sorted log through the document reducers materializes the
// same document on every device, regardless of the order events arrived in.
package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimestampFormat is the wire format for event timestamps.
//
// Timestamps are always rendered in UTC with fixed millisecond precision so
// that lexicographic comparison of the strings equals chronological
// comparison. Replay ordering depends on this property; never store a
// timestamp in any other format.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Event is an immutable, timestamped record of one semantic state change.
//
// Events are created once, appended once, and never mutated. The log is
// append-only; the only operation that removes events is a wholesale
// replace-mode backup import.
type Event struct {
	// ID is a globally unique opaque string (UUID).
	ID string `json:"id"`

	// Type is a dotted taxonomy string, e.g. "contact.created".
	// The segment before the first dot selects the reducer domain.
	Type string `json:"type"`

	// EntityID addresses the target entity. Optional for creation events
	// whose payload carries the id.
	EntityID string `json:"entity_id,omitempty"`

	// Payload carries the domain fields for this change.
	Payload map[string]any `json:"payload"`

	// Timestamp is the UTC creation instant in TimestampFormat.
	Timestamp string `json:"timestamp"`

	// DeviceID identifies the authoring device.
	DeviceID string `json:"device_id"`
}

// Domain returns the reducer domain, the segment before the first dot.
func (e Event) Domain() string {
	if i := strings.IndexByte(e.Type, '.'); i >= 0 {
		return e.Type[:i]
	}
	return e.Type
}

// Time parses the event timestamp. Events constructed through New always
// carry a parseable timestamp; events from an imported backup may not.
func (e Event) Time() (time.Time, error) {
	t, err := time.Parse(TimestampFormat, e.Timestamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse event timestamp %q: %w", e.Timestamp, err)
	}
	return t, nil
}

// Validate checks structural well-formedness. It does not validate the
// payload shape; that is the schema package's job at construction time.
func (e Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("event missing id")
	}
	if e.Type == "" {
		return fmt.Errorf("event %s missing type", e.ID)
	}
	if !strings.Contains(e.Type, ".") {
		return fmt.Errorf("event %s has malformed type %q: want dotted taxonomy", e.ID, e.Type)
	}
	if e.DeviceID == "" {
		return fmt.Errorf("event %s missing device id", e.ID)
	}
	if _, err := time.Parse(TimestampFormat, e.Timestamp); err != nil {
		return fmt.Errorf("event %s has malformed timestamp %q", e.ID, e.Timestamp)
	}
	return nil
}

// FormatTime renders t in TimestampFormat (always UTC).
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// NewID returns a fresh globally unique id, usable for events and any
// other record needing one.
func NewID() string {
	return uuid.NewString()
}

// New constructs an event stamped with a fresh UUID and the clock's now.
// Callers wanting payload validation should go through a builder that
// consults the schema package first.
func New(clock Clock, deviceID, eventType, entityID string, payload map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		EntityID:  entityID,
		Payload:   payload,
		Timestamp: FormatTime(clock.Now()),
		DeviceID:  deviceID,
	}
}
