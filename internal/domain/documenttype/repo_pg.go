package documenttype

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medscreen/medscreen/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const typeCols = `id, organization_id, name, description, applies_to, required,
	active, deleted_at, created_at, updated_at`

func scanType(row pgx.Row) (*DocumentType, error) {
	var d DocumentType
	err := row.Scan(&d.ID, &d.OrganizationID, &d.Name, &d.Description, &d.AppliesTo, &d.Required,
		&d.Active, &d.DeletedAt, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repoPG) Create(ctx context.Context, d *DocumentType) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO document_type (id, organization_id, name, description, applies_to, required, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		d.ID, d.OrganizationID, d.Name, d.Description, d.AppliesTo, d.Required, d.Active)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*DocumentType, error) {
	return scanType(r.conn(ctx).QueryRow(ctx,
		`SELECT `+typeCols+` FROM document_type WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *repoPG) Update(ctx context.Context, d *DocumentType) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE document_type SET name=$2, description=$3, applies_to=$4, required=$5,
			active=$6, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		d.ID, d.Name, d.Description, d.AppliesTo, d.Required, d.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE document_type SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) ListByOrganizations(ctx context.Context, orgIDs []uuid.UUID, includeDeleted bool, limit, offset int) ([]*DocumentType, int, error) {
	qb := db.NewScopedQuery("document_type", typeCols, orgIDs, includeDeleted)
	qb.OrderBy("name")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*DocumentType
	for rows.Next() {
		d, err := scanType(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ReferenceCount(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM screening_document WHERE document_type_id = $1`, id).Scan(&n)
	return n, err
}
