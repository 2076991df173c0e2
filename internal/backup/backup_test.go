package backup

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marloweapp/marlowe/internal/engine"
	"github.com/marloweapp/marlowe/internal/event"
	"github.com/marloweapp/marlowe/internal/store"
)

const testSecret = "correct horse battery staple"

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.TempDir() + "/backup.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newClock(t *testing.T, startTS string) *event.FixedClock {
	t.Helper()
	start, err := time.Parse(event.TimestampFormat, startTS)
	require.NoError(t, err)
	return event.NewFixedClock(start, time.Second)
}

func seedEvents(t *testing.T, s *store.Store, clock event.Clock, deviceID string, contacts ...string) []event.Event {
	t.Helper()
	events := make([]event.Event, 0, len(contacts))
	for _, name := range contacts {
		ev, err := event.NewValidated(clock, deviceID, event.TypeContactCreated, "", map[string]any{
			"id": "c-" + name, "firstName": name,
		})
		require.NoError(t, err)
		events = append(events, ev)
	}
	require.NoError(t, s.Append(context.Background(), events))
	return events
}

func TestExportImport_ReplaceRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := openTestStore(t)
	clock := newClock(t, "2025-03-01T09:00:00.000Z")
	seeded := seedEvents(t, src, clock, "dev-1", "Ada", "Grace", "Edsger")

	codec := NewCodec(src, "dev-1", testSecret, clock)
	blob, err := codec.Export(ctx)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(blob, &env))
	assert.Equal(t, FormatVersion, env.FormatVersion)
	assert.Equal(t, "dev-1", env.DeviceID)
	assert.NotContains(t, string(env.Ciphertext), "Ada", "plaintext must not leak")
	assert.NotContains(t, string(blob), "Ada")

	dst := openTestStore(t)
	res, err := NewCodec(dst, "dev-2", testSecret, clock).Import(ctx, blob, ModeReplace)
	require.NoError(t, err)
	assert.Equal(t, len(seeded), res.Events)
	assert.Equal(t, len(seeded), res.Added)

	got, err := dst.LoadAll(ctx)
	require.NoError(t, err)
	want, err := src.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestImport_WrongSecret(t *testing.T) {
	ctx := context.Background()
	src := openTestStore(t)
	clock := newClock(t, "2025-03-01T09:00:00.000Z")
	seedEvents(t, src, clock, "dev-1", "Ada")

	blob, err := NewCodec(src, "dev-1", testSecret, clock).Export(ctx)
	require.NoError(t, err)

	dst := openTestStore(t)
	_, err = NewCodec(dst, "dev-2", "wrong secret", clock).Import(ctx, blob, ModeReplace)
	var derr *DecryptionError
	require.ErrorAs(t, err, &derr)

	// A failed import leaves the target untouched.
	count, err := dst.CountEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestImport_TamperedCiphertext(t *testing.T) {
	ctx := context.Background()
	src := openTestStore(t)
	clock := newClock(t, "2025-03-01T09:00:00.000Z")
	seedEvents(t, src, clock, "dev-1", "Ada")

	codec := NewCodec(src, "dev-1", testSecret, clock)
	blob, err := codec.Export(ctx)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(blob, &env))
	env.Ciphertext[0] ^= 0xff
	tampered, err := json.Marshal(env)
	require.NoError(t, err)

	_, err = codec.Import(ctx, tampered, ModeReplace)
	var derr *DecryptionError
	require.ErrorAs(t, err, &derr)
}

func TestImport_UnsupportedVersion(t *testing.T) {
	ctx := context.Background()
	src := openTestStore(t)
	clock := newClock(t, "2025-03-01T09:00:00.000Z")
	seedEvents(t, src, clock, "dev-1", "Ada")

	codec := NewCodec(src, "dev-1", testSecret, clock)
	blob, err := codec.Export(ctx)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(blob, &env))
	env.FormatVersion = 99
	future, err := json.Marshal(env)
	require.NoError(t, err)

	_, err = codec.Import(ctx, future, ModeReplace)
	var verr *VersionError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 99, verr.Got)
	assert.False(t, errors.As(err, new(*DecryptionError)), "version check runs before decryption")
}

func TestImport_MergeLocalWins(t *testing.T) {
	ctx := context.Background()
	clock := newClock(t, "2025-03-01T09:00:00.000Z")

	src := openTestStore(t)
	srcEvents := seedEvents(t, src, clock, "dev-1", "Ada")

	blob, err := NewCodec(src, "dev-1", testSecret, clock).Export(ctx)
	require.NoError(t, err)

	// The target already holds the same event id with different content.
	dst := openTestStore(t)
	local := srcEvents[0]
	local.Payload = map[string]any{"id": "c-Ada", "firstName": "Adaline"}
	require.NoError(t, dst.Append(ctx, []event.Event{local}))

	res, err := NewCodec(dst, "dev-2", testSecret, clock).Import(ctx, blob, ModeMerge)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Added)
	assert.Equal(t, 1, res.Collisions)

	got, err := dst.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Adaline", got[0].Payload["firstName"], "local event survives the merge")
}

// Merging two devices' backups must converge to the same document no
// matter which direction the merge runs.
func TestImport_MergeConverges(t *testing.T) {
	ctx := context.Background()

	storeA := openTestStore(t)
	clockA := newClock(t, "2025-03-01T09:00:00.000Z")
	seedEvents(t, storeA, clockA, "dev-a", "Ada", "Grace")

	storeB := openTestStore(t)
	clockB := newClock(t, "2025-03-01T10:00:00.000Z")
	seedEvents(t, storeB, clockB, "dev-b", "Edsger", "Barbara")

	blobA, err := NewCodec(storeA, "dev-a", testSecret, clockA).Export(ctx)
	require.NoError(t, err)
	blobB, err := NewCodec(storeB, "dev-b", testSecret, clockB).Export(ctx)
	require.NoError(t, err)

	_, err = NewCodec(storeA, "dev-a", testSecret, clockA).Import(ctx, blobB, ModeMerge)
	require.NoError(t, err)
	_, err = NewCodec(storeB, "dev-b", testSecret, clockB).Import(ctx, blobA, ModeMerge)
	require.NoError(t, err)

	eventsA, err := storeA.LoadAll(ctx)
	require.NoError(t, err)
	eventsB, err := storeB.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, eventsA, 4)
	assert.Equal(t, eventsA, eventsB)

	docA, _ := engine.Replay(eventsA, nil)
	docB, _ := engine.Replay(eventsB, nil)
	assert.Equal(t, docA, docB)
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"replace", "merge"} {
		mode, err := ParseMode(s)
		require.NoError(t, err)
		assert.Equal(t, Mode(s), mode)
	}
	_, err := ParseMode("append")
	assert.Error(t, err)
}
