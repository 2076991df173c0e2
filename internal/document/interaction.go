package document

import "github.com/marloweapp/marlowe/internal/event"

func reduceInteraction(doc Document, ev event.Event) (Document, error) {
	id, err := resolveEntityID(ev)
	if err != nil {
		return doc, err
	}
	p := ev.Payload

	switch ev.Type {
	case event.TypeInteractionLogged:
		if _, ok := doc.Interactions[id]; ok {
			return doc, alreadyExists(ev, id)
		}
		in := Interaction{
			ID:         id,
			ContactID:  strOr(p, "contactId", ""),
			Kind:       strOr(p, "kind", ""),
			OccurredAt: strOr(p, "occurredAt", ""),
			Summary:    strOr(p, "summary", ""),
			Sentiment:  strOr(p, "sentiment", ""),
			CreatedAt:  ev.Timestamp,
			UpdatedAt:  ev.Timestamp,
		}
		next := doc
		next.Interactions = cloneMap(doc.Interactions)
		next.Interactions[id] = in
		return next, nil

	case event.TypeInteractionUpdated:
		in, ok := doc.Interactions[id]
		if !ok {
			return doc, notFound(ev, id)
		}
		setStr(p, "kind", &in.Kind)
		setStr(p, "occurredAt", &in.OccurredAt)
		setStr(p, "summary", &in.Summary)
		setStr(p, "sentiment", &in.Sentiment)
		in.UpdatedAt = ev.Timestamp
		next := doc
		next.Interactions = cloneMap(doc.Interactions)
		next.Interactions[id] = in
		return next, nil

	case event.TypeInteractionDeleted:
		if _, ok := doc.Interactions[id]; !ok {
			return doc, notFound(ev, id)
		}
		next := doc
		next.Interactions = withoutKey(doc.Interactions, id)
		return next, nil

	default:
		return doc, unhandled(ev)
	}
}
