package document

// Entity lifecycle statuses. Statuses are free-form strings in update
// payloads; these constants cover the values produced by dedicated
// lifecycle events.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusArchived = "archived"

	AppointmentScheduled = "scheduled"
	AppointmentCompleted = "completed"
	AppointmentCanceled  = "canceled"
)

// Organization is a company-level record.
type Organization struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Industry  string `json:"industry,omitempty"`
	Website   string `json:"website,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Account is a sellable relationship under an organization.
type Account struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organizationId,omitempty"`
	Name           string `json:"name"`
	Status         string `json:"status"`
	Tier           string `json:"tier,omitempty"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

// Contact is a person record.
type Contact struct {
	ID        string `json:"id"`
	AccountID string `json:"accountId,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Title     string `json:"title,omitempty"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Note is free-form text attached to another entity.
type Note struct {
	ID         string `json:"id"`
	ParentType string `json:"parentType"`
	ParentID   string `json:"parentId"`
	Body       string `json:"body"`
	Pinned     bool   `json:"pinned,omitempty"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

// Interaction records one touchpoint with a contact.
type Interaction struct {
	ID         string `json:"id"`
	ContactID  string `json:"contactId"`
	Kind       string `json:"kind"`
	OccurredAt string `json:"occurredAt"`
	Summary    string `json:"summary,omitempty"`
	Sentiment  string `json:"sentiment,omitempty"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

// Appointment is the calendar entity kept in sync with external providers.
// Status transitions (completed/canceled) are local-only facts: once the
// status has left "scheduled", reconciliation never pulls external changes
// over it.
type Appointment struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	StartsAt  string `json:"startsAt"`
	EndsAt    string `json:"endsAt"`
	Location  string `json:"location,omitempty"`
	Notes     string `json:"notes,omitempty"`
	ContactID string `json:"contactId,omitempty"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// AccessCode is a shared credential record (door codes, gate codes).
type AccessCode struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Code      string `json:"code"`
	ExpiresAt string `json:"expiresAt,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Settings holds user preferences, keyed like any other entity so the
// reducer invariants apply uniformly.
type Settings struct {
	ID                string `json:"id"`
	Timezone          string `json:"timezone,omitempty"`
	WeekStart         int    `json:"weekStart"`
	DefaultCalendarID string `json:"defaultCalendarId,omitempty"`
	CreatedAt         string `json:"createdAt"`
	UpdatedAt         string `json:"updatedAt"`
}

// AccountContactLink is a many-to-many join between accounts and contacts.
type AccountContactLink struct {
	ID        string `json:"id"`
	AccountID string `json:"accountId"`
	ContactID string `json:"contactId"`
	Role      string `json:"role,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// EntityLink is a generic typed link between any two entities.
type EntityLink struct {
	ID        string `json:"id"`
	FromType  string `json:"fromType"`
	FromID    string `json:"fromId"`
	ToType    string `json:"toType"`
	ToID      string `json:"toId"`
	Kind      string `json:"kind,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}
