package organization

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("organization not found")
	ErrSlugTaken     = errors.New("organization slug already in use")
	ErrInvalidParent = errors.New("invalid parent organization")
)

type Repository interface {
	Create(ctx context.Context, o *Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	GetBySlug(ctx context.Context, slug string) (*Organization, error)
	Update(ctx context.Context, o *Organization) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, includeDeleted bool, limit, offset int) ([]*Organization, int, error)
	// FamilyIDs returns the ids of every organization in the same tree as
	// the given one: its root ancestor and all of that root's descendants.
	FamilyIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
}
