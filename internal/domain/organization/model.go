package organization

import (
	"time"

	"github.com/google/uuid"
)

// Organization is a client company running screening processes. Organizations
// form a tree: child organizations (agencies, branches) share configuration
// visibility with the rest of their family.
type Organization struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	Name                 string     `db:"name" json:"name"`
	Slug                 string     `db:"slug" json:"slug"`
	ParentOrganizationID *uuid.UUID `db:"parent_organization_id" json:"parent_organization_id,omitempty"`
	StepTemplate         []string   `db:"step_template" json:"step_template"`
	ScreeningTTLDays     int        `db:"screening_ttl_days" json:"screening_ttl_days"`
	Active               bool       `db:"active" json:"active"`
	DeletedAt            *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}
