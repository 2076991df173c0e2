package document

import (
	"encoding/json"
	"fmt"

	"github.com/marloweapp/marlowe/internal/event"
	"github.com/marloweapp/marlowe/internal/schema"
)

// Reducer is a pure function mapping (document, event) to a new document
// for one domain. Reducers must not mutate the input document.
type Reducer func(Document, event.Event) (Document, error)

// registry maps the reducer domain (first dotted segment of the event
// type) to its reducer. Populated once; never modified at runtime.
var registry = map[string]Reducer{
	"organization": reduceOrganization,
	"account":      reduceAccount,
	"contact":      reduceContact,
	"note":         reduceNote,
	"interaction":  reduceInteraction,
	"appointment":  reduceAppointment,
	"accesscode":   reduceAccessCode,
	"settings":     reduceSettings,
	"relation":     reduceRelation,
}

// Apply routes one event to its domain reducer and returns the new
// document. The input document is never modified.
func Apply(doc Document, ev event.Event) (Document, error) {
	if err := ev.Validate(); err != nil {
		return doc, &Error{
			Code:      CodeValidation,
			Message:   err.Error(),
			EventID:   ev.ID,
			EventType: ev.Type,
		}
	}
	reducer, ok := registry[ev.Domain()]
	if !ok {
		return doc, unhandled(ev)
	}
	// Events are validated at construction, but the log may hold events
	// written by other devices; re-check before reducing. Unknown types
	// fall through so the reducer reports them as unhandled.
	if schema.KnownType(ev.Type) {
		if err := schema.ValidatePayload(ev.Type, ev.Payload); err != nil {
			return doc, &Error{
				Code:      CodeValidation,
				Message:   err.Error(),
				EventID:   ev.ID,
				EventType: ev.Type,
				EntityID:  ev.EntityID,
			}
		}
	}
	return reducer(doc, ev)
}

// resolveEntityID applies the target-id rules: if both entityId and
// payload.id are present they must be equal; if only one is present, use
// it; if neither is present, fail.
func resolveEntityID(ev event.Event) (string, error) {
	payloadID, _ := str(ev.Payload, "id")

	switch {
	case ev.EntityID != "" && payloadID != "":
		if ev.EntityID != payloadID {
			return "", &Error{
				Code:      CodeEntityIDMismatch,
				Message:   fmt.Sprintf("entityId %q disagrees with payload.id %q", ev.EntityID, payloadID),
				EventID:   ev.ID,
				EventType: ev.Type,
				EntityID:  ev.EntityID,
			}
		}
		return ev.EntityID, nil
	case ev.EntityID != "":
		return ev.EntityID, nil
	case payloadID != "":
		return payloadID, nil
	default:
		return "", &Error{
			Code:      CodeMissingEntityID,
			Message:   "neither entityId nor payload.id is present",
			EventID:   ev.ID,
			EventType: ev.Type,
		}
	}
}

func alreadyExists(ev event.Event, id string) error {
	return &Error{
		Code:      CodeAlreadyExists,
		Message:   "creation event targets an existing entity",
		EventID:   ev.ID,
		EventType: ev.Type,
		EntityID:  id,
	}
}

func notFound(ev event.Event, id string) error {
	return &Error{
		Code:      CodeNotFound,
		Message:   "event targets an absent entity",
		EventID:   ev.ID,
		EventType: ev.Type,
		EntityID:  id,
	}
}

func unhandled(ev event.Event) error {
	return &Error{
		Code:      CodeUnhandledEventType,
		Message:   fmt.Sprintf("no reducer handles %q", ev.Type),
		EventID:   ev.ID,
		EventType: ev.Type,
	}
}

// str reads a string payload field.
func str(p map[string]any, key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// strOr reads a string payload field with a default.
func strOr(p map[string]any, key, def string) string {
	if s, ok := str(p, key); ok && s != "" {
		return s
	}
	return def
}

// setStr overwrites dst when the payload carries the field.
func setStr(p map[string]any, key string, dst *string) {
	if s, ok := str(p, key); ok {
		*dst = s
	}
}

// boolField reads a bool payload field.
func boolField(p map[string]any, key string) (bool, bool) {
	v, ok := p[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// intField reads an integer payload field. JSON round-trips deliver
// numbers as json.Number or float64 depending on the decoder.
func intField(p map[string]any, key string) (int, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}
