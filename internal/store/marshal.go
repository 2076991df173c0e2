package store

import (
	"fmt"

	"github.com/marloweapp/marlowe/internal/canonical"
)

// marshalPayload converts a payload map to canonical JSON TEXT for storage.
// Canonical serialization keeps stored bytes identical across devices for
// the same logical payload.
func marshalPayload(payload map[string]any) (string, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := canonical.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses stored payload TEXT. Numbers come back as
// json.Number to avoid float64 precision loss.
func unmarshalPayload(data string) (map[string]any, error) {
	if data == "" || data == "{}" {
		return map[string]any{}, nil
	}
	obj, err := canonical.DecodeObject([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return obj, nil
}
