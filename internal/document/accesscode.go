package document

import "github.com/marloweapp/marlowe/internal/event"

func reduceAccessCode(doc Document, ev event.Event) (Document, error) {
	id, err := resolveEntityID(ev)
	if err != nil {
		return doc, err
	}
	p := ev.Payload

	switch ev.Type {
	case event.TypeAccessCodeCreated:
		if _, ok := doc.AccessCodes[id]; ok {
			return doc, alreadyExists(ev, id)
		}
		ac := AccessCode{
			ID:        id,
			Label:     strOr(p, "label", ""),
			Code:      strOr(p, "code", ""),
			ExpiresAt: strOr(p, "expiresAt", ""),
			CreatedAt: ev.Timestamp,
			UpdatedAt: ev.Timestamp,
		}
		next := doc
		next.AccessCodes = cloneMap(doc.AccessCodes)
		next.AccessCodes[id] = ac
		return next, nil

	case event.TypeAccessCodeUpdated:
		ac, ok := doc.AccessCodes[id]
		if !ok {
			return doc, notFound(ev, id)
		}
		setStr(p, "label", &ac.Label)
		setStr(p, "code", &ac.Code)
		setStr(p, "expiresAt", &ac.ExpiresAt)
		ac.UpdatedAt = ev.Timestamp
		next := doc
		next.AccessCodes = cloneMap(doc.AccessCodes)
		next.AccessCodes[id] = ac
		return next, nil

	case event.TypeAccessCodeRevoked:
		// Revocation is a hard delete: the code must not linger in a
		// document that syncs to other devices via backup.
		if _, ok := doc.AccessCodes[id]; !ok {
			return doc, notFound(ev, id)
		}
		next := doc
		next.AccessCodes = withoutKey(doc.AccessCodes, id)
		return next, nil

	default:
		return doc, unhandled(ev)
	}
}
