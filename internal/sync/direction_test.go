package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func tp(t *testing.T, s string) *time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return &parsed
}

func TestResolve_DirectionTable(t *testing.T) {
	t0 := "2025-03-01T10:00:00Z"
	t1 := "2025-03-01T11:00:00Z"
	t2 := "2025-03-01T12:00:00Z"

	cases := []struct {
		name      string
		ts        Timestamps
		scheduled bool
		want      Direction
	}{
		{
			name:      "unknown local timestamp is a no-op",
			ts:        Timestamps{ExternalModifiedAt: tp(t, t1)},
			scheduled: true,
			want:      DirectionNoop,
		},
		{
			name:      "first pass, external newer, pull",
			ts:        Timestamps{LocalUpdatedAt: tp(t, t0), ExternalModifiedAt: tp(t, t1)},
			scheduled: true,
			want:      DirectionPull,
		},
		{
			name:      "first pass, external older, push",
			ts:        Timestamps{LocalUpdatedAt: tp(t, t1), ExternalModifiedAt: tp(t, t0)},
			scheduled: true,
			want:      DirectionPush,
		},
		{
			name:      "first pass, no external stamp, push",
			ts:        Timestamps{LocalUpdatedAt: tp(t, t0)},
			scheduled: true,
			want:      DirectionPush,
		},
		{
			name: "both changed since last sync, local wins",
			ts: Timestamps{
				LocalUpdatedAt:     tp(t, t2),
				ExternalModifiedAt: tp(t, t2),
				LastSyncedAt:       tp(t, t1),
			},
			scheduled: true,
			want:      DirectionPush,
		},
		{
			name: "only external changed, pull",
			ts: Timestamps{
				LocalUpdatedAt:     tp(t, t0),
				ExternalModifiedAt: tp(t, t2),
				LastSyncedAt:       tp(t, t1),
			},
			scheduled: true,
			want:      DirectionPull,
		},
		{
			name: "only local changed, push",
			ts: Timestamps{
				LocalUpdatedAt:     tp(t, t2),
				ExternalModifiedAt: tp(t, t0),
				LastSyncedAt:       tp(t, t1),
			},
			scheduled: true,
			want:      DirectionPush,
		},
		{
			name: "neither changed, no-op",
			ts: Timestamps{
				LocalUpdatedAt:     tp(t, t0),
				ExternalModifiedAt: tp(t, t0),
				LastSyncedAt:       tp(t, t1),
			},
			scheduled: true,
			want:      DirectionNoop,
		},
		{
			name: "external change tracked against last external cursor",
			ts: Timestamps{
				LocalUpdatedAt:         tp(t, t0),
				ExternalModifiedAt:     tp(t, t1),
				LastSyncedAt:           tp(t, t2),
				LastExternalModifiedAt: tp(t, t0),
			},
			scheduled: true,
			want:      DirectionPull,
		},
		{
			name: "lifecycle left scheduled, pull becomes push",
			ts: Timestamps{
				LocalUpdatedAt:     tp(t, t0),
				ExternalModifiedAt: tp(t, t2),
				LastSyncedAt:       tp(t, t1),
			},
			scheduled: false,
			want:      DirectionPush,
		},
		{
			name: "lifecycle override does not touch a no-op",
			ts: Timestamps{
				LocalUpdatedAt:     tp(t, t0),
				ExternalModifiedAt: tp(t, t0),
				LastSyncedAt:       tp(t, t1),
			},
			scheduled: false,
			want:      DirectionNoop,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Resolve(tc.ts, tc.scheduled))
		})
	}
}
