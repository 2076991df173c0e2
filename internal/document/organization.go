package document

import "github.com/marloweapp/marlowe/internal/event"

// reduceOrganization handles the organization domain.
func reduceOrganization(doc Document, ev event.Event) (Document, error) {
	id, err := resolveEntityID(ev)
	if err != nil {
		return doc, err
	}
	p := ev.Payload

	switch ev.Type {
	case event.TypeOrganizationCreated:
		if _, ok := doc.Organizations[id]; ok {
			return doc, alreadyExists(ev, id)
		}
		org := Organization{
			ID:        id,
			Name:      strOr(p, "name", ""),
			Status:    strOr(p, "status", StatusActive),
			Industry:  strOr(p, "industry", ""),
			Website:   strOr(p, "website", ""),
			CreatedAt: ev.Timestamp,
			UpdatedAt: ev.Timestamp,
		}
		next := doc
		next.Organizations = cloneMap(doc.Organizations)
		next.Organizations[id] = org
		return next, nil

	case event.TypeOrganizationUpdated:
		org, ok := doc.Organizations[id]
		if !ok {
			return doc, notFound(ev, id)
		}
		setStr(p, "name", &org.Name)
		setStr(p, "industry", &org.Industry)
		setStr(p, "website", &org.Website)
		org.UpdatedAt = ev.Timestamp
		next := doc
		next.Organizations = cloneMap(doc.Organizations)
		next.Organizations[id] = org
		return next, nil

	case event.TypeOrganizationStatusUpdated:
		org, ok := doc.Organizations[id]
		if !ok {
			return doc, notFound(ev, id)
		}
		setStr(p, "status", &org.Status)
		org.UpdatedAt = ev.Timestamp
		next := doc
		next.Organizations = cloneMap(doc.Organizations)
		next.Organizations[id] = org
		return next, nil

	case event.TypeOrganizationDeleted:
		if _, ok := doc.Organizations[id]; !ok {
			return doc, notFound(ev, id)
		}
		next := doc
		next.Organizations = withoutKey(doc.Organizations, id)
		return next, nil

	default:
		return doc, unhandled(ev)
	}
}
