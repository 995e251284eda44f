package screening

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository loads and persists process aggregates. Implementations must be
// safe to use inside the serializable transactions the service runs.
type Repository interface {
	CreateAggregate(ctx context.Context, agg *Aggregate) error
	GetAggregate(ctx context.Context, id uuid.UUID) (*Aggregate, error)
	SaveAggregate(ctx context.Context, agg *Aggregate) error
	ListByOrganization(ctx context.Context, orgID uuid.UUID, status ProcessStatus, limit, offset int) ([]*Process, int, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	FindReusableDocument(ctx context.Context, professionalID, documentTypeID uuid.UUID) (*Document, error)
}
