package document

import "github.com/marloweapp/marlowe/internal/event"

func reduceNote(doc Document, ev event.Event) (Document, error) {
	id, err := resolveEntityID(ev)
	if err != nil {
		return doc, err
	}
	p := ev.Payload

	switch ev.Type {
	case event.TypeNoteCreated:
		if _, ok := doc.Notes[id]; ok {
			return doc, alreadyExists(ev, id)
		}
		n := Note{
			ID:         id,
			ParentType: strOr(p, "parentType", ""),
			ParentID:   strOr(p, "parentId", ""),
			Body:       strOr(p, "body", ""),
			CreatedAt:  ev.Timestamp,
			UpdatedAt:  ev.Timestamp,
		}
		if pinned, ok := boolField(p, "pinned"); ok {
			n.Pinned = pinned
		}
		next := doc
		next.Notes = cloneMap(doc.Notes)
		next.Notes[id] = n
		return next, nil

	case event.TypeNoteUpdated:
		n, ok := doc.Notes[id]
		if !ok {
			return doc, notFound(ev, id)
		}
		setStr(p, "body", &n.Body)
		if pinned, ok := boolField(p, "pinned"); ok {
			n.Pinned = pinned
		}
		n.UpdatedAt = ev.Timestamp
		next := doc
		next.Notes = cloneMap(doc.Notes)
		next.Notes[id] = n
		return next, nil

	case event.TypeNoteDeleted:
		if _, ok := doc.Notes[id]; !ok {
			return doc, notFound(ev, id)
		}
		next := doc
		next.Notes = withoutKey(doc.Notes, id)
		return next, nil

	default:
		return doc, unhandled(ev)
	}
}
