package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test: batches of events dispatched in
// order, then assertions on the materialized document. Scenarios use a
// fixed clock, so every run of the same scenario produces an identical
// document.
type Scenario struct {
	// Name uniquely identifies this scenario; also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Start is the fixed clock's first timestamp (TimestampFormat).
	// Defaults to 2025-03-01T09:00:00.000Z.
	Start string `yaml:"start,omitempty"`

	// Batches are dispatched one batch at a time, in order. A batch whose
	// Expect names an error code must be rejected with that code and must
	// leave the document unchanged.
	Batches []Batch `yaml:"batches"`

	// Assertions validate the final document.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Batch is one dispatch call.
type Batch struct {
	// Events lists the batch's events in dispatch order.
	Events []EventStep `yaml:"events"`

	// Expect is the error code the dispatch must fail with
	// (e.g. "ALREADY_EXISTS"). Empty means the batch must succeed.
	Expect string `yaml:"expect,omitempty"`
}

// EventStep describes one event to construct.
type EventStep struct {
	// Type is the dotted event type, e.g. "contact.created".
	Type string `yaml:"type"`

	// Entity is the optional entityId.
	Entity string `yaml:"entity,omitempty"`

	// Device overrides the scenario's default device id ("dev-harness").
	Device string `yaml:"device,omitempty"`

	// Payload is the event payload.
	Payload map[string]any `yaml:"payload,omitempty"`
}

// LoadScenario parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML bytes. Unknown fields are errors so
// a typo in a scenario file fails loudly.
func ParseScenario(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("parse scenario: missing name")
	}
	if len(s.Batches) == 0 {
		return nil, fmt.Errorf("parse scenario %s: no batches", s.Name)
	}
	for i, b := range s.Batches {
		if len(b.Events) == 0 {
			return nil, fmt.Errorf("parse scenario %s: batch %d has no events", s.Name, i)
		}
		for j, ev := range b.Events {
			if ev.Type == "" {
				return nil, fmt.Errorf("parse scenario %s: batch %d event %d has no type", s.Name, i, j)
			}
		}
	}
	return &s, nil
}
