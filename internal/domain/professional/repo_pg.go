package professional

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

const profCols = `id, organization_id, full_name, email, phone, professional_type,
	registration_number, active, deleted_at, created_at, updated_at`

func scanProf(row pgx.Row) (*Professional, error) {
	var p Professional
	err := row.Scan(&p.ID, &p.OrganizationID, &p.FullName, &p.Email, &p.Phone, &p.ProfessionalType,
		&p.RegistrationNumber, &p.Active, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Professional) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO professional (id, organization_id, full_name, email, phone,
			professional_type, registration_number, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.OrganizationID, p.FullName, p.Email, p.Phone,
		p.ProfessionalType, p.RegistrationNumber, p.Active)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Professional, error) {
	return scanProf(r.conn(ctx).QueryRow(ctx,
		`SELECT `+profCols+` FROM professional WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Professional) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE professional SET full_name=$2, email=$3, phone=$4, professional_type=$5,
			registration_number=$6, active=$7, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		p.ID, p.FullName, p.Email, p.Phone, p.ProfessionalType,
		p.RegistrationNumber, p.Active)
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
		UPDATE professional SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) ListByOrganization(ctx context.Context, orgID uuid.UUID, includeDeleted bool, limit, offset int) ([]*Professional, int, error) {
	qb := db.NewScopedQuery("professional", profCols, []uuid.UUID{orgID}, includeDeleted)
	qb.OrderBy("full_name")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Professional
	for rows.Next() {
		p, err := scanProf(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
