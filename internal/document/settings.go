package document

import "github.com/marloweapp/marlowe/internal/event"

func reduceSettings(doc Document, ev event.Event) (Document, error) {
	id, err := resolveEntityID(ev)
	if err != nil {
		return doc, err
	}
	p := ev.Payload

	switch ev.Type {
	case event.TypeSettingsCreated:
		if _, ok := doc.Settings[id]; ok {
			return doc, alreadyExists(ev, id)
		}
		s := Settings{
			ID:                id,
			Timezone:          strOr(p, "timezone", "UTC"),
			DefaultCalendarID: strOr(p, "defaultCalendarId", ""),
			CreatedAt:         ev.Timestamp,
			UpdatedAt:         ev.Timestamp,
		}
		if ws, ok := intField(p, "weekStart"); ok {
			s.WeekStart = ws
		}
		next := doc
		next.Settings = cloneMap(doc.Settings)
		next.Settings[id] = s
		return next, nil

	case event.TypeSettingsUpdated:
		s, ok := doc.Settings[id]
		if !ok {
			return doc, notFound(ev, id)
		}
		setStr(p, "timezone", &s.Timezone)
		setStr(p, "defaultCalendarId", &s.DefaultCalendarID)
		if ws, ok := intField(p, "weekStart"); ok {
			s.WeekStart = ws
		}
		s.UpdatedAt = ev.Timestamp
		next := doc
		next.Settings = cloneMap(doc.Settings)
		next.Settings[id] = s
		return next, nil

	default:
		return doc, unhandled(ev)
	}
}
