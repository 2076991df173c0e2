package document

import "github.com/marloweapp/marlowe/internal/event"

func reduceAccount(doc Document, ev event.Event) (Document, error) {
	id, err := resolveEntityID(ev)
	if err != nil {
		return doc, err
	}
	p := ev.Payload

	switch ev.Type {
	case event.TypeAccountCreated:
		if _, ok := doc.Accounts[id]; ok {
			return doc, alreadyExists(ev, id)
		}
		acct := Account{
			ID:             id,
			OrganizationID: strOr(p, "organizationId", ""),
			Name:           strOr(p, "name", ""),
			Status:         strOr(p, "status", StatusActive),
			Tier:           strOr(p, "tier", ""),
			CreatedAt:      ev.Timestamp,
			UpdatedAt:      ev.Timestamp,
		}
		next := doc
		next.Accounts = cloneMap(doc.Accounts)
		next.Accounts[id] = acct
		return next, nil

	case event.TypeAccountUpdated:
		acct, ok := doc.Accounts[id]
		if !ok {
			return doc, notFound(ev, id)
		}
		setStr(p, "organizationId", &acct.OrganizationID)
		setStr(p, "name", &acct.Name)
		setStr(p, "status", &acct.Status)
		setStr(p, "tier", &acct.Tier)
		acct.UpdatedAt = ev.Timestamp
		next := doc
		next.Accounts = cloneMap(doc.Accounts)
		next.Accounts[id] = acct
		return next, nil

	case event.TypeAccountDeleted:
		if _, ok := doc.Accounts[id]; !ok {
			return doc, notFound(ev, id)
		}
		next := doc
		next.Accounts = withoutKey(doc.Accounts, id)
		return next, nil

	default:
		return doc, unhandled(ev)
	}
}
