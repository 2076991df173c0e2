package document

import "github.com/marloweapp/marlowe/internal/event"

// reduceRelation handles the join-record domain: account–contact links and
// generic entity links. Each relation is an entity with its own id so it
// can be unlinked by id.
func reduceRelation(doc Document, ev event.Event) (Document, error) {
	id, err := resolveEntityID(ev)
	if err != nil {
		return doc, err
	}
	p := ev.Payload

	switch ev.Type {
	case event.TypeAccountContactLinked:
		if _, ok := doc.AccountContacts[id]; ok {
			return doc, alreadyExists(ev, id)
		}
		link := AccountContactLink{
			ID:        id,
			AccountID: strOr(p, "accountId", ""),
			ContactID: strOr(p, "contactId", ""),
			Role:      strOr(p, "role", ""),
			CreatedAt: ev.Timestamp,
			UpdatedAt: ev.Timestamp,
		}
		next := doc
		next.AccountContacts = cloneMap(doc.AccountContacts)
		next.AccountContacts[id] = link
		return next, nil

	case event.TypeAccountContactUnlinked:
		if _, ok := doc.AccountContacts[id]; !ok {
			return doc, notFound(ev, id)
		}
		next := doc
		next.AccountContacts = withoutKey(doc.AccountContacts, id)
		return next, nil

	case event.TypeEntityLinked:
		if _, ok := doc.EntityLinks[id]; ok {
			return doc, alreadyExists(ev, id)
		}
		link := EntityLink{
			ID:        id,
			FromType:  strOr(p, "fromType", ""),
			FromID:    strOr(p, "fromId", ""),
			ToType:    strOr(p, "toType", ""),
			ToID:      strOr(p, "toId", ""),
			Kind:      strOr(p, "kind", ""),
			CreatedAt: ev.Timestamp,
			UpdatedAt: ev.Timestamp,
		}
		next := doc
		next.EntityLinks = cloneMap(doc.EntityLinks)
		next.EntityLinks[id] = link
		return next, nil

	case event.TypeEntityUnlinked:
		if _, ok := doc.EntityLinks[id]; !ok {
			return doc, notFound(ev, id)
		}
		next := doc
		next.EntityLinks = withoutKey(doc.EntityLinks, id)
		return next, nil

	default:
		return doc, unhandled(ev)
	}
}
