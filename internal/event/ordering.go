package event

import (
	"slices"
	"strings"
)

// Compare defines the deterministic total order used for replay.
//
// Primary key: timestamp (chronological, via string comparison on the
// fixed-width UTC format). Tie-break 1: device id. Tie-break 2: event id.
// No wall-clock value is consulted; only these three embedded fields.
func Compare(a, b Event) int {
	if c := strings.Compare(a.Timestamp, b.Timestamp); c != 0 {
		return c
	}
	if c := strings.Compare(a.DeviceID, b.DeviceID); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// SortEvents sorts events into replay order in place and returns the slice.
//
// The order is a total order over (timestamp, deviceID, id), so the result
// is independent of the input arrangement: shuffling the input before
// sorting must not change the output.
func SortEvents(events []Event) []Event {
	slices.SortFunc(events, Compare)
	return events
}
