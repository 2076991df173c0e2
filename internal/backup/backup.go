package backup

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/marloweapp/marlowe/internal/canonical"
	"github.com/marloweapp/marlowe/internal/event"
	"github.com/marloweapp/marlowe/internal/store"
)

// Mode selects how an import treats the existing log.
type Mode string

const (
	// ModeReplace discards the local log and installs the backup's.
	ModeReplace Mode = "replace"
	// ModeMerge unions the backup's events into the local log. On an id
	// collision the local event wins.
	ModeMerge Mode = "merge"
)

// ParseMode validates a mode string from a flag or config value.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeReplace, ModeMerge:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown import mode %q (want %q or %q)", s, ModeReplace, ModeMerge)
	}
}

// ImportResult summarizes what an import did to the log.
type ImportResult struct {
	Mode       Mode
	Events     int
	Added      int
	Collisions int
}

// Codec exports and imports encrypted backups against one store.
type Codec struct {
	store    *store.Store
	deviceID string
	secret   string
	clock    event.Clock
}

// NewCodec builds a backup codec. The secret is the key material; it never
// appears in the envelope.
func NewCodec(s *store.Store, deviceID, secret string, clock event.Clock) *Codec {
	if clock == nil {
		clock = event.SystemClock{}
	}
	return &Codec{store: s, deviceID: deviceID, secret: secret, clock: clock}
}

// Export serializes the full event log to canonical JSON, encrypts it,
// and returns the envelope as a JSON blob.
func (c *Codec) Export(ctx context.Context) ([]byte, error) {
	events, err := c.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	plaintext, err := encodeLog(events)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	salt, nonce, ciphertext, err := seal(c.secret, plaintext)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	env := Envelope{
		FormatVersion: FormatVersion,
		ExportedAt:    event.FormatTime(c.clock.Now()),
		DeviceID:      c.deviceID,
		Salt:          salt,
		Nonce:         nonce,
		Ciphertext:    ciphertext,
	}
	blob, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("export: marshal envelope: %w", err)
	}
	return blob, nil
}

// Import decrypts a backup blob and installs its events per mode.
// The version check runs before decryption, so an unsupported envelope
// fails fast without touching key derivation.
//
// Import changes only the log. The caller must follow a successful import
// with a full replay of the merged log (engine.Rebuild or equivalent);
// the state transition is always install-then-replay, never a patch of
// the live document.
func (c *Codec) Import(ctx context.Context, blob []byte, mode Mode) (ImportResult, error) {
	env, err := parseEnvelope(blob)
	if err != nil {
		return ImportResult{}, err
	}

	plaintext, err := open(c.secret, env.Salt, env.Nonce, env.Ciphertext)
	if err != nil {
		return ImportResult{}, err
	}

	events, err := decodeLog(plaintext)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import: %w", err)
	}

	res := ImportResult{Mode: mode, Events: len(events)}
	switch mode {
	case ModeReplace:
		if err := c.store.ReplaceAll(ctx, events); err != nil {
			return ImportResult{}, fmt.Errorf("import replace: %w", err)
		}
		res.Added = len(events)
	case ModeMerge:
		added, collisions, err := c.store.Merge(ctx, events)
		if err != nil {
			return ImportResult{}, fmt.Errorf("import merge: %w", err)
		}
		res.Added = added
		res.Collisions = collisions
	default:
		return ImportResult{}, fmt.Errorf("unknown import mode %q", mode)
	}
	return res, nil
}

// encodeLog renders the event list as one canonical JSON document, so the
// same log always encrypts from identical plaintext bytes.
func encodeLog(events []event.Event) ([]byte, error) {
	items := make([]any, len(events))
	for i, ev := range events {
		payload := ev.Payload
		if payload == nil {
			payload = map[string]any{}
		}
		item := map[string]any{
			"id":        ev.ID,
			"type":      ev.Type,
			"payload":   payload,
			"timestamp": ev.Timestamp,
			"deviceId":  ev.DeviceID,
		}
		if ev.EntityID != "" {
			item["entityId"] = ev.EntityID
		}
		items[i] = item
	}
	return canonical.Marshal(map[string]any{"events": items})
}

// decodeLog parses the canonical log document back into events.
func decodeLog(data []byte) ([]event.Event, error) {
	doc, err := canonical.DecodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("decode log: %w", err)
	}
	rawEvents, ok := doc["events"].([]any)
	if !ok {
		return nil, fmt.Errorf("decode log: missing events array")
	}

	events := make([]event.Event, 0, len(rawEvents))
	for i, raw := range rawEvents {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("decode log: event %d is not an object", i)
		}
		ev := event.Event{
			ID:        stringField(obj, "id"),
			Type:      stringField(obj, "type"),
			EntityID:  stringField(obj, "entityId"),
			Timestamp: stringField(obj, "timestamp"),
			DeviceID:  stringField(obj, "deviceId"),
		}
		if payload, ok := obj["payload"].(map[string]any); ok {
			ev.Payload = payload
		} else {
			ev.Payload = map[string]any{}
		}
		if err := ev.Validate(); err != nil {
			return nil, fmt.Errorf("decode log: event %d: %w", i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}
