package event

// Event type taxonomy. The segment before the first dot is the reducer
// domain; the remainder names the semantic change.
const (
	TypeOrganizationCreated       = "organization.created"
	TypeOrganizationUpdated       = "organization.updated"
	TypeOrganizationStatusUpdated = "organization.status.updated"
	TypeOrganizationDeleted       = "organization.deleted"

	TypeAccountCreated = "account.created"
	TypeAccountUpdated = "account.updated"
	TypeAccountDeleted = "account.deleted"

	TypeContactCreated = "contact.created"
	TypeContactUpdated = "contact.updated"
	TypeContactDeleted = "contact.deleted"

	TypeNoteCreated = "note.created"
	TypeNoteUpdated = "note.updated"
	TypeNoteDeleted = "note.deleted"

	TypeInteractionLogged  = "interaction.logged"
	TypeInteractionUpdated = "interaction.updated"
	TypeInteractionDeleted = "interaction.deleted"

	TypeAppointmentCreated   = "appointment.created"
	TypeAppointmentUpdated   = "appointment.updated"
	TypeAppointmentCompleted = "appointment.completed"
	TypeAppointmentCanceled  = "appointment.canceled"
	TypeAppointmentDeleted   = "appointment.deleted"

	TypeAccessCodeCreated = "accesscode.created"
	TypeAccessCodeUpdated = "accesscode.updated"
	TypeAccessCodeRevoked = "accesscode.revoked"

	TypeSettingsCreated = "settings.created"
	TypeSettingsUpdated = "settings.updated"

	TypeAccountContactLinked   = "relation.account_contact.linked"
	TypeAccountContactUnlinked = "relation.account_contact.unlinked"
	TypeEntityLinked           = "relation.entity.linked"
	TypeEntityUnlinked         = "relation.entity.unlinked"
)
