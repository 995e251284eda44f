package documenttype

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("document type not found")
	// ErrInUse prevents deleting a type that existing screening documents
	// still reference.
	ErrInUse = errors.New("document type is referenced by screening documents")
)

type Repository interface {
	Create(ctx context.Context, d *DocumentType) error
	GetByID(ctx context.Context, id uuid.UUID) (*DocumentType, error)
	Update(ctx context.Context, d *DocumentType) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	// ListByOrganizations returns active types across an organization
	// family, so child organizations see types defined by their parents.
	ListByOrganizations(ctx context.Context, orgIDs []uuid.UUID, includeDeleted bool, limit, offset int) ([]*DocumentType, int, error)
	// ReferenceCount counts screening documents pointing at the type.
	ReferenceCount(ctx context.Context, id uuid.UUID) (int, error)
}
