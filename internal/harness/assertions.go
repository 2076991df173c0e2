package harness

import (
	"encoding/json"
	"fmt"

	"github.com/marloweapp/marlowe/internal/document"
)

// Assertion types.
const (
	AssertEntityCount = "entity_count" // collection holds exactly Count entities
	AssertExists      = "exists"       // collection holds entity ID
	AssertAbsent      = "absent"       // collection does not hold entity ID
	AssertField       = "field"        // entity's Field equals Value
)

// Assertion validates one property of the final document.
type Assertion struct {
	Type       string `yaml:"type"`
	Collection string `yaml:"collection,omitempty"`
	ID         string `yaml:"id,omitempty"`
	Count      int    `yaml:"count,omitempty"`
	Field      string `yaml:"field,omitempty"`
	Value      any    `yaml:"value,omitempty"`
}

// AssertionError reports a failed assertion with expected/actual context.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s\n  expected: %s\n  actual: %s", e.Type, e.Expected, e.Actual)
}

// Check evaluates the assertion against a document.
func (a Assertion) Check(doc document.Document) error {
	entities, err := collectionEntities(doc, a.Collection)
	if err != nil {
		return err
	}

	switch a.Type {
	case AssertEntityCount:
		if len(entities) != a.Count {
			return &AssertionError{
				Type:     AssertEntityCount,
				Expected: fmt.Sprintf("%d entities in %s", a.Count, a.Collection),
				Actual:   fmt.Sprintf("%d entities", len(entities)),
			}
		}
		return nil

	case AssertExists:
		if _, ok := entities[a.ID]; !ok {
			return &AssertionError{
				Type:     AssertExists,
				Expected: fmt.Sprintf("%s/%s present", a.Collection, a.ID),
				Actual:   "not found",
			}
		}
		return nil

	case AssertAbsent:
		if _, ok := entities[a.ID]; ok {
			return &AssertionError{
				Type:     AssertAbsent,
				Expected: fmt.Sprintf("%s/%s absent", a.Collection, a.ID),
				Actual:   "present",
			}
		}
		return nil

	case AssertField:
		entity, ok := entities[a.ID]
		if !ok {
			return &AssertionError{
				Type:     AssertField,
				Expected: fmt.Sprintf("%s/%s present", a.Collection, a.ID),
				Actual:   "not found",
			}
		}
		got, ok := entity[a.Field]
		if !ok {
			return &AssertionError{
				Type:     AssertField,
				Expected: fmt.Sprintf("%s/%s has field %s", a.Collection, a.ID, a.Field),
				Actual:   "field missing or empty",
			}
		}
		want := fmt.Sprintf("%v", a.Value)
		if fmt.Sprintf("%v", got) != want {
			return &AssertionError{
				Type:     AssertField,
				Expected: fmt.Sprintf("%s/%s.%s = %v", a.Collection, a.ID, a.Field, want),
				Actual:   fmt.Sprintf("%v", got),
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// collectionEntities flattens one document collection into generic maps
// keyed by entity id, using the collection's JSON names.
func collectionEntities(doc document.Document, collection string) (map[string]map[string]any, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var generic map[string]map[string]map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	entities, ok := generic[collection]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
	return entities, nil
}
