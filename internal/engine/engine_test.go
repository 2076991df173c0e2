package engine

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marloweapp/marlowe/internal/document"
	"github.com/marloweapp/marlowe/internal/event"
	"github.com/marloweapp/marlowe/internal/store"
)

// setupTestEngine creates an engine over a fresh on-disk store.
func setupTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(dir + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	e := New(s, nil)
	t.Cleanup(e.Close)
	return e, s
}

func testClock(t *testing.T) *event.FixedClock {
	t.Helper()
	start, err := time.Parse(event.TimestampFormat, "2025-03-01T09:00:00.000Z")
	require.NoError(t, err)
	return event.NewFixedClock(start, time.Second)
}

func mustEvent(t *testing.T, clock event.Clock, deviceID, eventType, entityID string, payload map[string]any) event.Event {
	t.Helper()
	return event.New(clock, deviceID, eventType, entityID, payload)
}

func TestDispatch_AppliesAndPersists(t *testing.T) {
	e, s := setupTestEngine(t)
	ctx := context.Background()
	clock := testClock(t)

	batch := []event.Event{
		mustEvent(t, clock, "dev-1", event.TypeContactCreated, "c-1", map[string]any{
			"id": "c-1", "firstName": "Ada",
		}),
		mustEvent(t, clock, "dev-1", event.TypeContactUpdated, "c-1", map[string]any{
			"lastName": "Lovelace",
		}),
	}

	receipt, err := e.Dispatch(ctx, batch)
	require.NoError(t, err)

	doc := e.Document()
	require.Contains(t, doc.Contacts, "c-1")
	assert.Equal(t, "Ada", doc.Contacts["c-1"].FirstName)
	assert.Equal(t, "Lovelace", doc.Contacts["c-1"].LastName)

	require.NoError(t, receipt.Wait(ctx))
	assert.Equal(t, StatusDurable, receipt.Status())

	count, err := s.CountEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDispatch_RejectedBatchLeavesDocumentUnchanged(t *testing.T) {
	e, s := setupTestEngine(t)
	ctx := context.Background()
	clock := testClock(t)

	_, err := e.Dispatch(ctx, []event.Event{
		mustEvent(t, clock, "dev-1", event.TypeContactCreated, "c-1", map[string]any{
			"id": "c-1", "firstName": "Ada",
		}),
	})
	require.NoError(t, err)
	before := e.Document()

	// Valid first event, failing second: whole batch must abort.
	batch := []event.Event{
		mustEvent(t, clock, "dev-1", event.TypeContactUpdated, "c-1", map[string]any{
			"firstName": "Grace",
		}),
		mustEvent(t, clock, "dev-1", event.TypeContactUpdated, "c-missing", map[string]any{
			"firstName": "Nobody",
		}),
	}
	_, err = e.Dispatch(ctx, batch)
	require.Error(t, err)
	assert.True(t, document.IsNotFound(err))

	after := e.Document()
	assert.Equal(t, "Ada", after.Contacts["c-1"].FirstName, "partial batch must not apply")
	assert.Equal(t, before.EntityCount(), after.EntityCount())

	// Nothing from the aborted batch reaches the log either.
	e.Flush()
	count, err := s.CountEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDispatch_EmptyBatch(t *testing.T) {
	e, _ := setupTestEngine(t)

	receipt, err := e.Dispatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, StatusDurable, receipt.Status())
	assert.NoError(t, receipt.Wait(context.Background()))
}

func TestDispatch_InvalidPayloadRejected(t *testing.T) {
	e, _ := setupTestEngine(t)
	clock := testClock(t)

	ev := mustEvent(t, clock, "dev-1", event.TypeContactCreated, "c-1", map[string]any{
		"id": "c-1", "firstName": "Ada",
	})
	ev.Payload = map[string]any{"id": "c-1"} // strip required field after construction

	_, err := e.Dispatch(context.Background(), []event.Event{ev})
	require.Error(t, err)
	assert.Equal(t, document.CodeValidation, document.CodeOf(err))
	assert.Empty(t, e.Document().Contacts)
}

func TestReplay_OrderIndependent(t *testing.T) {
	clock := testClock(t)

	events := []event.Event{
		mustEvent(t, clock, "dev-1", event.TypeOrganizationCreated, "o-1", map[string]any{
			"id": "o-1", "name": "Acme",
		}),
		mustEvent(t, clock, "dev-1", event.TypeAccountCreated, "a-1", map[string]any{
			"id": "a-1", "organizationId": "o-1", "name": "Acme HQ",
		}),
		mustEvent(t, clock, "dev-1", event.TypeContactCreated, "c-1", map[string]any{
			"id": "c-1", "firstName": "Ada",
		}),
		mustEvent(t, clock, "dev-1", event.TypeContactUpdated, "c-1", map[string]any{
			"firstName": "Grace",
		}),
		mustEvent(t, clock, "dev-1", event.TypeOrganizationStatusUpdated, "o-1", map[string]any{
			"status": "inactive",
		}),
	}

	want, wantStats := Replay(events, nil)
	require.Equal(t, 0, wantStats.Skipped)
	require.Equal(t, len(events), wantStats.Applied)

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		shuffled := make([]event.Event, len(events))
		copy(shuffled, events)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		got, stats := Replay(shuffled, nil)
		require.Equal(t, 0, stats.Skipped)
		assert.Equal(t, want, got, "trial %d: replay must be order independent", trial)
	}
}

func TestReplay_Idempotent(t *testing.T) {
	clock := testClock(t)
	events := []event.Event{
		mustEvent(t, clock, "dev-1", event.TypeContactCreated, "c-1", map[string]any{
			"id": "c-1", "firstName": "Ada",
		}),
		mustEvent(t, clock, "dev-1", event.TypeNoteCreated, "n-1", map[string]any{
			"id": "n-1", "parentType": "contact", "parentId": "c-1", "body": "First call went well",
		}),
	}

	first, _ := Replay(events, nil)
	second, _ := Replay(events, nil)
	assert.Equal(t, first, second)
}

func TestReplay_SkipsConflictingEvents(t *testing.T) {
	clock := testClock(t)

	// Two devices created the same contact; after a merge both events are
	// in the log. Replay keeps the earlier one and skips the duplicate.
	a := mustEvent(t, clock, "dev-a", event.TypeContactCreated, "c-1", map[string]any{
		"id": "c-1", "firstName": "Ada",
	})
	b := mustEvent(t, clock, "dev-b", event.TypeContactCreated, "c-1", map[string]any{
		"id": "c-1", "firstName": "Grace",
	})

	doc, stats := Replay([]event.Event{b, a}, nil)
	assert.Equal(t, 1, stats.Applied)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, "Ada", doc.Contacts["c-1"].FirstName, "earlier event wins the total order")
}

func TestRebuild_MaterializesPersistedLog(t *testing.T) {
	e, s := setupTestEngine(t)
	ctx := context.Background()
	clock := testClock(t)

	receipt, err := e.Dispatch(ctx, []event.Event{
		mustEvent(t, clock, "dev-1", event.TypeAccountCreated, "a-1", map[string]any{
			"id": "a-1", "name": "Acme HQ",
		}),
		mustEvent(t, clock, "dev-1", event.TypeContactCreated, "c-1", map[string]any{
			"id": "c-1", "firstName": "Ada",
		}),
		mustEvent(t, clock, "dev-1", event.TypeAccountContactLinked, "", map[string]any{
			"id": "l-1", "accountId": "a-1", "contactId": "c-1",
		}),
	})
	require.NoError(t, err)
	require.NoError(t, receipt.Wait(ctx))

	// A second engine over the same store starts empty and rebuilds to
	// the same document.
	e2 := New(s, nil)
	t.Cleanup(e2.Close)
	require.Equal(t, 0, e2.Document().EntityCount())

	stats, err := e2.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Applied)
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, e.Document(), e2.Document())
}

func TestFlush_WaitsForQueuedAppends(t *testing.T) {
	e, s := setupTestEngine(t)
	ctx := context.Background()
	clock := testClock(t)

	for i := 0; i < 10; i++ {
		_, err := e.Dispatch(ctx, []event.Event{
			mustEvent(t, clock, "dev-1", event.TypeNoteCreated, "", map[string]any{
				"id": fmt.Sprintf("n-%d", i), "parentType": "contact", "parentId": "c-1", "body": "note",
			}),
		})
		require.NoError(t, err)
	}
	e.Flush()
	assert.Equal(t, 0, e.PendingAppends())

	count, err := s.CountEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, count)
	assert.Empty(t, e.FailedBatches())
}
