// Package document materializes the CRM document by replaying events
// through pure per-domain reducers.
//
// A reducer never mutates its input document; it returns a new document
// with only the affected collection replaced. The same ordered event
// sequence therefore always materializes the same document, which is the
// property multi-device merge relies on.
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Document is the materialized snapshot built from the event log.
// Collections map entity id to entity snapshot. Relation collections are
// entities in their own right so a relation can be unlinked by id.
type Document struct {
	Organizations   map[string]Organization      `json:"organizations"`
	Accounts        map[string]Account           `json:"accounts"`
	Contacts        map[string]Contact           `json:"contacts"`
	Notes           map[string]Note              `json:"notes"`
	Interactions    map[string]Interaction       `json:"interactions"`
	Appointments    map[string]Appointment       `json:"appointments"`
	AccessCodes     map[string]AccessCode        `json:"accessCodes"`
	Settings        map[string]Settings          `json:"settings"`
	AccountContacts map[string]AccountContactLink `json:"accountContacts"`
	EntityLinks     map[string]EntityLink        `json:"entityLinks"`
}

// Empty returns a document with all collections initialized.
// Replay always starts from Empty, never from an existing document.
func Empty() Document {
	return Document{
		Organizations:   map[string]Organization{},
		Accounts:        map[string]Account{},
		Contacts:        map[string]Contact{},
		Notes:           map[string]Note{},
		Interactions:    map[string]Interaction{},
		Appointments:    map[string]Appointment{},
		AccessCodes:     map[string]AccessCode{},
		Settings:        map[string]Settings{},
		AccountContacts: map[string]AccountContactLink{},
		EntityLinks:     map[string]EntityLink{},
	}
}

// EntityCount returns the total number of entities across all collections.
func (d Document) EntityCount() int {
	return len(d.Organizations) + len(d.Accounts) + len(d.Contacts) +
		len(d.Notes) + len(d.Interactions) + len(d.Appointments) +
		len(d.AccessCodes) + len(d.Settings) + len(d.AccountContacts) +
		len(d.EntityLinks)
}

// MarshalIndented renders the document as readable JSON for inspection.
func (d Document) MarshalIndented() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Fingerprint returns a stable hash of the document. Two devices holding
// the same merged log report the same fingerprint, which makes drift
// between them cheap to detect. encoding/json sorts map keys, so the
// serialization is deterministic.
func (d Document) Fingerprint() (string, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("fingerprint document: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// cloneMap shallow-copies a collection so a reducer can replace one entry
// without touching the input document.
func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// withoutKey shallow-copies a collection minus one entry.
func withoutKey[V any](m map[string]V, key string) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		if k != key {
			out[k] = v
		}
	}
	return out
}
