// Package schema validates event payloads against embedded CUE definitions.
//
// Validation happens at event construction time, not at reducer time: a
// builder that produces a malformed payload is rejected before the event
// ever reaches the log. Reducers may therefore assume payload field types
// are correct and only enforce referential invariants.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed payload.cue
var payloadCUE string

var (
	compileOnce sync.Once
	compiled    cue.Value
	compileErr  error
)

// ValidationError reports a payload that does not satisfy the schema for
// its event type.
type ValidationError struct {
	EventType string
	Detail    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid payload for %q: %s", e.EventType, e.Detail)
}

// schemas returns the compiled schema map value, compiling the embedded
// CUE source on first use.
func schemas() (cue.Value, error) {
	compileOnce.Do(func() {
		ctx := cuecontext.New()
		root := ctx.CompileString(payloadCUE, cue.Filename("payload.cue"))
		if err := root.Err(); err != nil {
			compileErr = fmt.Errorf("compile payload schemas: %w", err)
			return
		}
		compiled = root.LookupPath(cue.ParsePath("schemas"))
		if err := compiled.Err(); err != nil {
			compileErr = fmt.Errorf("lookup schemas: %w", err)
		}
	})
	return compiled, compileErr
}

// KnownType reports whether a schema exists for the given event type.
func KnownType(eventType string) bool {
	root, err := schemas()
	if err != nil {
		return false
	}
	return root.LookupPath(cue.MakePath(cue.Str(eventType))).Exists()
}

// ValidatePayload checks payload against the schema for eventType.
// Returns a *ValidationError when the type is unknown or the payload does
// not unify with its closed definition.
func ValidatePayload(eventType string, payload map[string]any) error {
	root, err := schemas()
	if err != nil {
		return err
	}

	sch := root.LookupPath(cue.MakePath(cue.Str(eventType)))
	if !sch.Exists() {
		return &ValidationError{EventType: eventType, Detail: "no schema for event type"}
	}

	// A nil payload is the empty payload. Marshaling nil would produce
	// JSON null, which never unifies with a struct definition.
	if payload == nil {
		payload = map[string]any{}
	}

	// Round-trip through JSON so json.Number and nested maps become plain
	// CUE values. JSON is a subset of CUE, so the bytes compile directly.
	data, err := json.Marshal(payload)
	if err != nil {
		return &ValidationError{EventType: eventType, Detail: fmt.Sprintf("payload not serializable: %v", err)}
	}

	ctx := sch.Context()
	val := ctx.CompileBytes(data, cue.Filename("payload.json"))
	if err := val.Err(); err != nil {
		return &ValidationError{EventType: eventType, Detail: cueerrors.Details(err, nil)}
	}

	unified := sch.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{EventType: eventType, Detail: cueerrors.Details(err, nil)}
	}
	return nil
}
