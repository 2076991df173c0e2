package event

import (
	"fmt"

	"github.com/marloweapp/marlowe/internal/schema"
)

// NewValidated constructs an event and checks its payload against the
// schema for the event type before returning it. This is the constructor
// application code should use; a malformed payload is rejected here, before
// the event can reach the document or the log.
func NewValidated(clock Clock, deviceID, eventType, entityID string, payload map[string]any) (Event, error) {
	if err := schema.ValidatePayload(eventType, payload); err != nil {
		return Event{}, fmt.Errorf("build %s event: %w", eventType, err)
	}
	ev := New(clock, deviceID, eventType, entityID, payload)
	if err := ev.Validate(); err != nil {
		return Event{}, fmt.Errorf("build %s event: %w", eventType, err)
	}
	return ev, nil
}
