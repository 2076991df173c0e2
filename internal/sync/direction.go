package sync

import "time"

// Direction is the outcome of direction resolution for one link.
type Direction string

const (
	DirectionPush Direction = "push"
	DirectionPull Direction = "pull"
	DirectionNoop Direction = "noop"
)

// Timestamps collects the four inputs to direction resolution. Nil means
// the timestamp is unknown or was never recorded.
type Timestamps struct {
	LocalUpdatedAt         *time.Time
	ExternalModifiedAt     *time.Time
	LastSyncedAt           *time.Time
	LastExternalModifiedAt *time.Time
}

// Resolve derives push, pull, or no-op for one link.
//
// The local document is the system of record: a concurrent edit on both
// sides resolves to push, and once the appointment has left the scheduled
// state (completed or canceled) pull is never chosen, because lifecycle
// transitions only happen locally.
func Resolve(ts Timestamps, localLifecycleScheduled bool) Direction {
	if ts.LocalUpdatedAt == nil {
		return DirectionNoop
	}

	dir := resolveByTimestamps(ts)
	if dir == DirectionPull && !localLifecycleScheduled {
		return DirectionPush
	}
	return dir
}

func resolveByTimestamps(ts Timestamps) Direction {
	local := *ts.LocalUpdatedAt

	// First pass for this link: whoever edited last wins the seed write.
	if ts.LastSyncedAt == nil {
		if ts.ExternalModifiedAt != nil && ts.ExternalModifiedAt.After(local) {
			return DirectionPull
		}
		return DirectionPush
	}

	localChanged := local.After(*ts.LastSyncedAt)

	externalChanged := false
	if ts.ExternalModifiedAt != nil {
		if ts.LastExternalModifiedAt != nil {
			externalChanged = ts.ExternalModifiedAt.After(*ts.LastExternalModifiedAt)
		} else {
			externalChanged = ts.ExternalModifiedAt.After(*ts.LastSyncedAt)
		}
	}

	switch {
	case localChanged:
		return DirectionPush
	case externalChanged:
		return DirectionPull
	default:
		return DirectionNoop
	}
}
