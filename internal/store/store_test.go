package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marloweapp/marlowe/internal/event"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testEvent(id, ts, deviceID string) event.Event {
	return event.Event{
		ID:        id,
		Type:      "contact.created",
		EntityID:  "c-" + id,
		Payload:   map[string]any{"id": "c-" + id, "firstName": "Ada"},
		Timestamp: ts,
		DeviceID:  deviceID,
	}
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"events", "sync_links"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestAppend_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ev := testEvent("e1", "2025-03-01T09:00:00.000Z", "dev-a")
	if err := s.Append(ctx, []event.Event{ev}); err != nil {
		t.Fatalf("first append failed: %v", err)
	}
	// Re-appending the same event must be a silent no-op.
	if err := s.Append(ctx, []event.Event{ev}); err != nil {
		t.Fatalf("second append failed: %v", err)
	}

	count, err := s.CountEvents(ctx)
	if err != nil {
		t.Fatalf("CountEvents() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestLoadAll_ReplayOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Insert out of order; LoadAll must come back in replay order.
	batch := []event.Event{
		testEvent("e2", "2025-03-01T09:00:02.000Z", "dev-a"),
		testEvent("e1", "2025-03-01T09:00:01.000Z", "dev-b"),
		testEvent("e0", "2025-03-01T09:00:01.000Z", "dev-a"),
	}
	if err := s.Append(ctx, batch); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	events, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}
	wantIDs := []string{"e0", "e1", "e2"}
	if len(events) != len(wantIDs) {
		t.Fatalf("got %d events, want %d", len(events), len(wantIDs))
	}
	for i, want := range wantIDs {
		if events[i].ID != want {
			t.Errorf("position %d: got %s, want %s", i, events[i].ID, want)
		}
	}
	// Payload survives the round trip.
	if events[0].Payload["firstName"] != "Ada" {
		t.Errorf("payload lost: %v", events[0].Payload)
	}
}

func TestMerge_LocalWinsOnCollision(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	local := testEvent("e1", "2025-03-01T09:00:00.000Z", "dev-a")
	if err := s.Append(ctx, []event.Event{local}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	imported := testEvent("e1", "2025-03-01T09:00:00.000Z", "dev-b")
	imported.Payload = map[string]any{"id": "c-e1", "firstName": "Grace"}
	fresh := testEvent("e2", "2025-03-01T09:00:05.000Z", "dev-b")

	added, collisions, err := s.Merge(ctx, []event.Event{imported, fresh})
	if err != nil {
		t.Fatalf("Merge() failed: %v", err)
	}
	if added != 1 || collisions != 1 {
		t.Errorf("added=%d collisions=%d, want 1/1", added, collisions)
	}

	events, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}
	for _, ev := range events {
		if ev.ID == "e1" && ev.Payload["firstName"] != "Ada" {
			t.Error("imported event overwrote the local one")
		}
	}
}

func TestReplaceAll(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, []event.Event{testEvent("old", "2025-03-01T09:00:00.000Z", "dev-a")}); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := s.ReplaceAll(ctx, []event.Event{
		testEvent("new1", "2025-03-02T09:00:00.000Z", "dev-b"),
		testEvent("new2", "2025-03-02T09:00:01.000Z", "dev-b"),
	}); err != nil {
		t.Fatalf("ReplaceAll() failed: %v", err)
	}

	events, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	for _, ev := range events {
		if ev.ID == "old" {
			t.Error("old event survived replace")
		}
	}
}

func TestSyncLink_CRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	link := SyncLink{
		ID:                 "link-1",
		AppointmentID:      "ap1",
		Provider:           "ics",
		ExternalCalendarID: "work",
		ExternalEventID:    "ext-1",
	}
	if err := s.PutSyncLink(ctx, link); err != nil {
		t.Fatalf("PutSyncLink() failed: %v", err)
	}

	got, err := s.GetSyncLink(ctx, "link-1")
	if err != nil {
		t.Fatalf("GetSyncLink() failed: %v", err)
	}
	if got.LastSyncedAt != nil {
		t.Error("new link should have no sync cursor")
	}

	byAppt, err := s.GetSyncLinkByAppointment(ctx, "ics", "work", "ap1")
	if err != nil {
		t.Fatalf("GetSyncLinkByAppointment() failed: %v", err)
	}
	if byAppt.ID != "link-1" {
		t.Errorf("lookup returned %s, want link-1", byAppt.ID)
	}

	syncedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	extModified := syncedAt.Add(-time.Minute)
	if err := s.AdvanceSyncCursors(ctx, "link-1", syncedAt, &extModified); err != nil {
		t.Fatalf("AdvanceSyncCursors() failed: %v", err)
	}

	got, err = s.GetSyncLink(ctx, "link-1")
	if err != nil {
		t.Fatalf("GetSyncLink() after advance failed: %v", err)
	}
	if got.LastSyncedAt == nil || !got.LastSyncedAt.Equal(syncedAt) {
		t.Errorf("LastSyncedAt = %v, want %v", got.LastSyncedAt, syncedAt)
	}
	if got.LastExternalModifiedAt == nil || !got.LastExternalModifiedAt.Equal(extModified) {
		t.Errorf("LastExternalModifiedAt = %v, want %v", got.LastExternalModifiedAt, extModified)
	}

	if err := s.DeleteSyncLink(ctx, "link-1"); err != nil {
		t.Fatalf("DeleteSyncLink() failed: %v", err)
	}
	if _, err := s.GetSyncLink(ctx, "link-1"); err != ErrLinkNotFound {
		t.Errorf("after delete: got %v, want ErrLinkNotFound", err)
	}
}

func TestAdvanceSyncCursors_MissingLink(t *testing.T) {
	s := openTestStore(t)
	err := s.AdvanceSyncCursors(context.Background(), "nope", time.Now(), nil)
	if err != ErrLinkNotFound {
		t.Errorf("got %v, want ErrLinkNotFound", err)
	}
}
