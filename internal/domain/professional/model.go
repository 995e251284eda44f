package professional

import (
	"time"

	"github.com/google/uuid"
)

// Professional is a healthcare worker going through screening for an
// organization. The professional type drives which document types apply.
type Professional struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	OrganizationID     uuid.UUID  `db:"organization_id" json:"organization_id"`
	FullName           string     `db:"full_name" json:"full_name"`
	Email              string     `db:"email" json:"email"`
	Phone              string     `db:"phone" json:"phone,omitempty"`
	ProfessionalType   string     `db:"professional_type" json:"professional_type"`
	RegistrationNumber string     `db:"registration_number" json:"registration_number,omitempty"`
	Active             bool       `db:"active" json:"active"`
	DeletedAt          *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}
