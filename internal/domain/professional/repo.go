package professional

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("professional not found")

type Repository interface {
	Create(ctx context.Context, p *Professional) error
	GetByID(ctx context.Context, id uuid.UUID) (*Professional, error)
	Update(ctx context.Context, p *Professional) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ListByOrganization(ctx context.Context, orgID uuid.UUID, includeDeleted bool, limit, offset int) ([]*Professional, int, error)
}
