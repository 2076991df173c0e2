package sync

import (
	"strings"
	"time"

	"github.com/marloweapp/marlowe/internal/document"
	"github.com/marloweapp/marlowe/internal/event"
)

// normalizeText trims surrounding whitespace and collapses CRLF so a
// cosmetic difference never counts as a change.
func normalizeText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
}

// sameInstant compares to second precision; providers rarely keep
// sub-second resolution, and a truncated millisecond must not produce an
// endless push loop.
func sameInstant(a, b time.Time) bool {
	return a.UTC().Truncate(time.Second).Equal(b.UTC().Truncate(time.Second))
}

// diffAppointment computes the patch that would make the external event
// match the local appointment. Timestamps that fail to parse locally are
// skipped rather than pushed.
func diffAppointment(appt document.Appointment, external ExternalEvent) EventPatch {
	var patch EventPatch

	if normalizeText(appt.Title) != normalizeText(external.Title) {
		title := normalizeText(appt.Title)
		patch.Title = &title
	}
	if starts, err := time.Parse(event.TimestampFormat, appt.StartsAt); err == nil {
		if !sameInstant(starts, external.StartsAt) {
			patch.StartsAt = &starts
		}
	}
	if ends, err := time.Parse(event.TimestampFormat, appt.EndsAt); err == nil {
		if !sameInstant(ends, external.EndsAt) {
			patch.EndsAt = &ends
		}
	}
	if normalizeText(appt.Location) != normalizeText(external.Location) {
		location := normalizeText(appt.Location)
		patch.Location = &location
	}
	if normalizeText(appt.Notes) != normalizeText(external.Notes) {
		notes := normalizeText(appt.Notes)
		patch.Notes = &notes
	}
	return patch
}

// pullPayload builds the appointment.updated payload for fields where the
// external snapshot differs from the local appointment. Empty map means
// nothing to pull.
func pullPayload(appt document.Appointment, external ExternalEvent) map[string]any {
	payload := map[string]any{}

	if normalizeText(external.Title) != normalizeText(appt.Title) && normalizeText(external.Title) != "" {
		payload["title"] = normalizeText(external.Title)
	}
	if starts, err := time.Parse(event.TimestampFormat, appt.StartsAt); err != nil || !sameInstant(external.StartsAt, starts) {
		payload["startsAt"] = event.FormatTime(external.StartsAt)
	}
	if ends, err := time.Parse(event.TimestampFormat, appt.EndsAt); err != nil || !sameInstant(external.EndsAt, ends) {
		payload["endsAt"] = event.FormatTime(external.EndsAt)
	}
	if normalizeText(external.Location) != normalizeText(appt.Location) {
		payload["location"] = normalizeText(external.Location)
	}
	if normalizeText(external.Notes) != normalizeText(appt.Notes) {
		payload["notes"] = normalizeText(external.Notes)
	}
	return payload
}

// externalFromAppointment renders a local appointment as a full external
// event, used when the push has to create the external side.
func externalFromAppointment(appt document.Appointment, calendarID string) ExternalEvent {
	ev := ExternalEvent{
		CalendarID: calendarID,
		Title:      normalizeText(appt.Title),
		Location:   normalizeText(appt.Location),
		Notes:      normalizeText(appt.Notes),
	}
	if starts, err := time.Parse(event.TimestampFormat, appt.StartsAt); err == nil {
		ev.StartsAt = starts
	}
	if ends, err := time.Parse(event.TimestampFormat, appt.EndsAt); err == nil {
		ev.EndsAt = ends
	}
	return ev
}
