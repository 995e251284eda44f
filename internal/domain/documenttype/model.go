package documenttype

import (
	"time"

	"github.com/google/uuid"
)

// DocumentType is an organization-defined kind of screening document, e.g. a
// nursing license or a background check. An empty AppliesTo list means the
// type applies to every professional type.
type DocumentType struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	OrganizationID uuid.UUID  `db:"organization_id" json:"organization_id"`
	Name           string     `db:"name" json:"name"`
	Description    string     `db:"description" json:"description,omitempty"`
	AppliesTo      []string   `db:"applies_to" json:"applies_to"`
	Required       bool       `db:"required" json:"required"`
	Active         bool       `db:"active" json:"active"`
	DeletedAt      *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Matches reports whether the type applies to the given professional type.
func (d *DocumentType) Matches(professionalType string) bool {
	if len(d.AppliesTo) == 0 {
		return true
	}
	for _, t := range d.AppliesTo {
		if t == professionalType {
			return true
		}
	}
	return false
}
