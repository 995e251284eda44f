package organization

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

const orgCols = `id, name, slug, parent_organization_id, step_template,
	screening_ttl_days, active, deleted_at, created_at, updated_at`

func scanOrg(row pgx.Row) (*Organization, error) {
	var o Organization
	err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.ParentOrganizationID, &o.StepTemplate,
		&o.ScreeningTTLDays, &o.Active, &o.DeletedAt, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repoPG) Create(ctx context.Context, o *Organization) error {
	o.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO organization (id, name, slug, parent_organization_id, step_template,
			screening_ttl_days, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		o.ID, o.Name, o.Slug, o.ParentOrganizationID, o.StepTemplate,
		o.ScreeningTTLDays, o.Active)
	if isUniqueViolation(err) {
		return ErrSlugTaken
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return scanOrg(r.conn(ctx).QueryRow(ctx,
		`SELECT `+orgCols+` FROM organization WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *repoPG) GetBySlug(ctx context.Context, slug string) (*Organization, error) {
	return scanOrg(r.conn(ctx).QueryRow(ctx,
		`SELECT `+orgCols+` FROM organization WHERE slug = $1 AND deleted_at IS NULL`, slug))
}

func (r *repoPG) Update(ctx context.Context, o *Organization) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE organization SET name=$2, slug=$3, parent_organization_id=$4,
			step_template=$5, screening_ttl_days=$6, active=$7, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		o.ID, o.Name, o.Slug, o.ParentOrganizationID,
		o.StepTemplate, o.ScreeningTTLDays, o.Active)
	if isUniqueViolation(err) {
		return ErrSlugTaken
	}
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
		UPDATE organization SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, includeDeleted bool, limit, offset int) ([]*Organization, int, error) {
	where := " WHERE 1=1"
	if !includeDeleted {
		where += " AND deleted_at IS NULL"
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM organization`+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+orgCols+` FROM organization`+where+` ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Organization
	for rows.Next() {
		o, err := scanOrg(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, rows.Err()
}

func (r *repoPG) FamilyIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	// Walk up to the root, then collect the whole subtree under it.
	rows, err := r.conn(ctx).Query(ctx, `
		WITH RECURSIVE ancestors AS (
			SELECT id, parent_organization_id FROM organization WHERE id = $1
			UNION ALL
			SELECT o.id, o.parent_organization_id
			FROM organization o
			JOIN ancestors a ON o.id = a.parent_organization_id
		), root AS (
			SELECT id FROM ancestors WHERE parent_organization_id IS NULL
		), family AS (
			SELECT id FROM root
			UNION ALL
			SELECT o.id FROM organization o
			JOIN family f ON o.parent_organization_id = f.id
			WHERE o.deleted_at IS NULL
		)
		SELECT id FROM family`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var fid uuid.UUID
		if err := rows.Scan(&fid); err != nil {
			return nil, err
		}
		ids = append(ids, fid)
	}
	if len(ids) == 0 {
		return nil, ErrNotFound
	}
	return ids, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
