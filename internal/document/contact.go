package document

import "github.com/marloweapp/marlowe/internal/event"

func reduceContact(doc Document, ev event.Event) (Document, error) {
	id, err := resolveEntityID(ev)
	if err != nil {
		return doc, err
	}
	p := ev.Payload

	switch ev.Type {
	case event.TypeContactCreated:
		if _, ok := doc.Contacts[id]; ok {
			return doc, alreadyExists(ev, id)
		}
		c := Contact{
			ID:        id,
			AccountID: strOr(p, "accountId", ""),
			FirstName: strOr(p, "firstName", ""),
			LastName:  strOr(p, "lastName", ""),
			Email:     strOr(p, "email", ""),
			Phone:     strOr(p, "phone", ""),
			Title:     strOr(p, "title", ""),
			Status:    strOr(p, "status", StatusActive),
			CreatedAt: ev.Timestamp,
			UpdatedAt: ev.Timestamp,
		}
		next := doc
		next.Contacts = cloneMap(doc.Contacts)
		next.Contacts[id] = c
		return next, nil

	case event.TypeContactUpdated:
		c, ok := doc.Contacts[id]
		if !ok {
			return doc, notFound(ev, id)
		}
		setStr(p, "accountId", &c.AccountID)
		setStr(p, "firstName", &c.FirstName)
		setStr(p, "lastName", &c.LastName)
		setStr(p, "email", &c.Email)
		setStr(p, "phone", &c.Phone)
		setStr(p, "title", &c.Title)
		setStr(p, "status", &c.Status)
		c.UpdatedAt = ev.Timestamp
		next := doc
		next.Contacts = cloneMap(doc.Contacts)
		next.Contacts[id] = c
		return next, nil

	case event.TypeContactDeleted:
		if _, ok := doc.Contacts[id]; !ok {
			return doc, notFound(ev, id)
		}
		next := doc
		next.Contacts = withoutKey(doc.Contacts, id)
		return next, nil

	default:
		return doc, unhandled(ev)
	}
}
