package document

import (
	"testing"
	"time"

	"github.com/marloweapp/marlowe/internal/event"
)

var testClockStart = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func ev(t *testing.T, clock *event.FixedClock, eventType, entityID string, payload map[string]any) event.Event {
	t.Helper()
	return event.New(clock, "dev-test", eventType, entityID, payload)
}

func newClock() *event.FixedClock {
	return event.NewFixedClock(testClockStart, time.Second)
}

func TestApply_CreationGuard(t *testing.T) {
	clock := newClock()
	doc := Empty()

	create := ev(t, clock, event.TypeContactCreated, "c1", map[string]any{"id": "c1", "firstName": "Ada"})
	doc, err := Apply(doc, create)
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	again := ev(t, clock, event.TypeContactCreated, "c1", map[string]any{"id": "c1", "firstName": "Ada"})
	_, err = Apply(doc, again)
	if !IsAlreadyExists(err) {
		t.Errorf("second create: got %v, want ALREADY_EXISTS", err)
	}
}

func TestApply_MutationGuard(t *testing.T) {
	clock := newClock()
	update := ev(t, clock, event.TypeContactUpdated, "ghost", map[string]any{"email": "x@y.test"})
	_, err := Apply(Empty(), update)
	if !IsNotFound(err) {
		t.Errorf("got %v, want NOT_FOUND", err)
	}
}

func TestApply_EntityIDMismatch(t *testing.T) {
	clock := newClock()
	bad := ev(t, clock, event.TypeContactCreated, "c1", map[string]any{"id": "c2", "firstName": "Ada"})
	doc := Empty()
	next, err := Apply(doc, bad)
	if !IsEntityIDMismatch(err) {
		t.Errorf("got %v, want ENTITY_ID_MISMATCH", err)
	}
	// Mismatch must be detected before any mutation.
	if len(next.Contacts) != 0 {
		t.Error("document mutated despite id mismatch")
	}
}

func TestApply_MissingEntityID(t *testing.T) {
	clock := newClock()
	bad := ev(t, clock, event.TypeContactUpdated, "", map[string]any{"email": "x@y.test"})
	_, err := Apply(Empty(), bad)
	if CodeOf(err) != CodeMissingEntityID {
		t.Errorf("got %v, want MISSING_ENTITY_ID", err)
	}
}

func TestApply_UnhandledEventType(t *testing.T) {
	clock := newClock()
	cases := []string{"contact.teleported", "widget.created"}
	for _, typ := range cases {
		bad := ev(t, clock, typ, "x1", map[string]any{"id": "x1"})
		_, err := Apply(Empty(), bad)
		if !IsUnhandledEventType(err) {
			t.Errorf("%s: got %v, want UNHANDLED_EVENT_TYPE", typ, err)
		}
	}
}

func TestApply_NeverMutatesInput(t *testing.T) {
	clock := newClock()
	doc, err := Apply(Empty(), ev(t, clock, event.TypeOrganizationCreated, "", map[string]any{
		"id": "org1", "name": "Acme", "status": "active",
	}))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	before := doc.Organizations["org1"]
	next, err := Apply(doc, ev(t, clock, event.TypeOrganizationStatusUpdated, "org1", map[string]any{
		"status": "inactive",
	}))
	if err != nil {
		t.Fatalf("status update failed: %v", err)
	}

	if doc.Organizations["org1"].Status != "active" {
		t.Error("input document was mutated")
	}
	if doc.Organizations["org1"] != before {
		t.Error("input entity snapshot changed")
	}
	if next.Organizations["org1"].Status != "inactive" {
		t.Error("output document missing the update")
	}
}

// Mirrors the organization lifecycle end to end: create, then flip status,
// checking createdAt stays fixed while updatedAt advances.
func TestApply_OrganizationLifecycle(t *testing.T) {
	clock := newClock()
	doc, err := Apply(Empty(), ev(t, clock, event.TypeOrganizationCreated, "", map[string]any{
		"id": "org1", "name": "Acme", "status": "active",
	}))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	org := doc.Organizations["org1"]
	if org.Name != "Acme" {
		t.Errorf("name = %q, want Acme", org.Name)
	}
	created := org.CreatedAt

	doc, err = Apply(doc, ev(t, clock, event.TypeOrganizationStatusUpdated, "org1", map[string]any{
		"status": "inactive",
	}))
	if err != nil {
		t.Fatalf("status update failed: %v", err)
	}
	org = doc.Organizations["org1"]
	if org.Status != "inactive" {
		t.Errorf("status = %q, want inactive", org.Status)
	}
	if org.CreatedAt != created {
		t.Error("createdAt changed on update")
	}
	if !(org.UpdatedAt > created) {
		t.Errorf("updatedAt %q did not advance past createdAt %q", org.UpdatedAt, created)
	}
}

func TestApply_AppointmentStatusTransitions(t *testing.T) {
	clock := newClock()
	doc, err := Apply(Empty(), ev(t, clock, event.TypeAppointmentCreated, "", map[string]any{
		"id": "ap1", "title": "Kickoff",
		"startsAt": "2025-03-02T10:00:00.000Z", "endsAt": "2025-03-02T11:00:00.000Z",
	}))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if got := doc.Appointments["ap1"].Status; got != AppointmentScheduled {
		t.Errorf("initial status = %q, want scheduled", got)
	}

	doc, err = Apply(doc, ev(t, clock, event.TypeAppointmentCompleted, "ap1", map[string]any{}))
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if got := doc.Appointments["ap1"].Status; got != AppointmentCompleted {
		t.Errorf("status = %q, want completed", got)
	}

	// Completed is a status transition, not a delete.
	if _, ok := doc.Appointments["ap1"]; !ok {
		t.Error("completed appointment vanished from the document")
	}
}

func TestApply_RelationLinkUnlink(t *testing.T) {
	clock := newClock()
	doc, err := Apply(Empty(), ev(t, clock, event.TypeAccountContactLinked, "", map[string]any{
		"id": "l1", "accountId": "a1", "contactId": "c1", "role": "champion",
	}))
	if err != nil {
		t.Fatalf("link failed: %v", err)
	}
	if doc.AccountContacts["l1"].Role != "champion" {
		t.Error("link not materialized")
	}

	doc, err = Apply(doc, ev(t, clock, event.TypeAccountContactUnlinked, "l1", map[string]any{}))
	if err != nil {
		t.Fatalf("unlink failed: %v", err)
	}
	if _, ok := doc.AccountContacts["l1"]; ok {
		t.Error("link still present after unlink")
	}

	_, err = Apply(doc, ev(t, clock, event.TypeAccountContactUnlinked, "l1", map[string]any{}))
	if !IsNotFound(err) {
		t.Errorf("double unlink: got %v, want NOT_FOUND", err)
	}
}

func TestApply_AccessCodeRevokeRemoves(t *testing.T) {
	clock := newClock()
	doc, err := Apply(Empty(), ev(t, clock, event.TypeAccessCodeCreated, "", map[string]any{
		"id": "code1", "label": "Office door", "code": "4812",
	}))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	doc, err = Apply(doc, ev(t, clock, event.TypeAccessCodeRevoked, "code1", map[string]any{}))
	if err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, ok := doc.AccessCodes["code1"]; ok {
		t.Error("revoked code still present")
	}
}
