package document

import "github.com/marloweapp/marlowe/internal/event"

// reduceAppointment handles the calendar entity domain.
//
// appointment.completed and appointment.canceled are status transitions,
// not deletes: the entity stays in the document so history and sync links
// remain resolvable. appointment.deleted is the hard delete.
func reduceAppointment(doc Document, ev event.Event) (Document, error) {
	id, err := resolveEntityID(ev)
	if err != nil {
		return doc, err
	}
	p := ev.Payload

	switch ev.Type {
	case event.TypeAppointmentCreated:
		if _, ok := doc.Appointments[id]; ok {
			return doc, alreadyExists(ev, id)
		}
		ap := Appointment{
			ID:        id,
			Title:     strOr(p, "title", ""),
			StartsAt:  strOr(p, "startsAt", ""),
			EndsAt:    strOr(p, "endsAt", ""),
			Location:  strOr(p, "location", ""),
			Notes:     strOr(p, "notes", ""),
			ContactID: strOr(p, "contactId", ""),
			Status:    AppointmentScheduled,
			CreatedAt: ev.Timestamp,
			UpdatedAt: ev.Timestamp,
		}
		next := doc
		next.Appointments = cloneMap(doc.Appointments)
		next.Appointments[id] = ap
		return next, nil

	case event.TypeAppointmentUpdated:
		ap, ok := doc.Appointments[id]
		if !ok {
			return doc, notFound(ev, id)
		}
		setStr(p, "title", &ap.Title)
		setStr(p, "startsAt", &ap.StartsAt)
		setStr(p, "endsAt", &ap.EndsAt)
		setStr(p, "location", &ap.Location)
		setStr(p, "notes", &ap.Notes)
		setStr(p, "contactId", &ap.ContactID)
		ap.UpdatedAt = ev.Timestamp
		next := doc
		next.Appointments = cloneMap(doc.Appointments)
		next.Appointments[id] = ap
		return next, nil

	case event.TypeAppointmentCompleted:
		return setAppointmentStatus(doc, ev, id, AppointmentCompleted)

	case event.TypeAppointmentCanceled:
		return setAppointmentStatus(doc, ev, id, AppointmentCanceled)

	case event.TypeAppointmentDeleted:
		if _, ok := doc.Appointments[id]; !ok {
			return doc, notFound(ev, id)
		}
		next := doc
		next.Appointments = withoutKey(doc.Appointments, id)
		return next, nil

	default:
		return doc, unhandled(ev)
	}
}

func setAppointmentStatus(doc Document, ev event.Event, id, status string) (Document, error) {
	ap, ok := doc.Appointments[id]
	if !ok {
		return doc, notFound(ev, id)
	}
	ap.Status = status
	ap.UpdatedAt = ev.Timestamp
	next := doc
	next.Appointments = cloneMap(doc.Appointments)
	next.Appointments[id] = ap
	return next, nil
}
