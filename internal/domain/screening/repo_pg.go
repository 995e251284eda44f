package screening

import (
	"context"
	"errors"
	"time"

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

const processCols = `id, organization_id, professional_id, status, current_step_type,
	configured_step_types, supervisor_id, cancelled_at, cancelled_by, cancellation_reason,
	compliance_report_url, expires_at, created_at, updated_at`

func scanProcess(row pgx.Row) (*Process, error) {
	var p Process
	var configured []string
	err := row.Scan(&p.ID, &p.OrganizationID, &p.ProfessionalID, &p.Status, &p.CurrentStepType,
		&configured, &p.SupervisorID, &p.CancelledAt, &p.CancelledBy, &p.CancellationReason,
		&p.ComplianceReportURL, &p.ExpiresAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.ConfiguredStepTypes = make([]StepType, len(configured))
	for i, s := range configured {
		p.ConfiguredStepTypes[i] = StepType(s)
	}
	return &p, nil
}

func stepTypeStrings(types []StepType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func (r *repoPG) CreateAggregate(ctx context.Context, agg *Aggregate) error {
	c := r.conn(ctx)
	p := agg.Process

	_, err := c.Exec(ctx, `
		INSERT INTO screening_process (id, organization_id, professional_id, status,
			current_step_type, configured_step_types, supervisor_id, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.OrganizationID, p.ProfessionalID, p.Status,
		p.CurrentStepType, stepTypeStrings(p.ConfiguredStepTypes), p.SupervisorID, p.ExpiresAt)
	if err != nil {
		return err
	}

	for _, s := range agg.Steps {
		_, err := c.Exec(ctx, `
			INSERT INTO screening_step (id, process_id, step_type, position, completed, completed_at, data)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			s.ID, s.ProcessID, s.StepType, s.Position, s.Completed, s.CompletedAt, s.Data)
		if err != nil {
			return err
		}
	}

	for _, d := range agg.Documents {
		if err := r.upsertDocument(ctx, c, d); err != nil {
			return err
		}
	}

	for _, al := range agg.Alerts {
		if err := r.upsertAlert(ctx, c, al); err != nil {
			return err
		}
	}

	return nil
}

func (r *repoPG) GetAggregate(ctx context.Context, id uuid.UUID) (*Aggregate, error) {
	return r.getAggregate(ctx, r.conn(ctx), id)
}

func (r *repoPG) getAggregate(ctx context.Context, c queryable, id uuid.UUID) (*Aggregate, error) {
	p, err := scanProcess(c.QueryRow(ctx, `SELECT `+processCols+` FROM screening_process WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	agg := &Aggregate{Process: p}

	rows, err := c.Query(ctx, `
		SELECT id, process_id, step_type, position, completed, completed_at, data, created_at, updated_at
		FROM screening_step WHERE process_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s Step
		if err := rows.Scan(&s.ID, &s.ProcessID, &s.StepType, &s.Position, &s.Completed,
			&s.CompletedAt, &s.Data, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		agg.Steps = append(agg.Steps, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	docRows, err := c.Query(ctx, `
		SELECT id, process_id, upload_step_id, document_type_id, is_required, position,
			status, artifact_ref, created_at, updated_at
		FROM screening_document WHERE process_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer docRows.Close()
	for docRows.Next() {
		var d Document
		if err := docRows.Scan(&d.ID, &d.ProcessID, &d.UploadStepID, &d.DocumentTypeID,
			&d.IsRequired, &d.Position, &d.Status, &d.ArtifactRef, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		agg.Documents = append(agg.Documents, &d)
	}
	if err := docRows.Err(); err != nil {
		return nil, err
	}
	docRows.Close()

	for _, d := range agg.Documents {
		notes, err := r.loadNotes(ctx, c, `SELECT id, text, action, actor_id, created_at
			FROM document_review_note WHERE document_id = $1 ORDER BY created_at, id`, d.ID)
		if err != nil {
			return nil, err
		}
		d.ReviewNotes = notes
	}

	alertRows, err := c.Query(ctx, `
		SELECT id, process_id, reason, category, raised_at_step, is_resolved,
			resolution, resolved_at, resolved_by, created_at
		FROM screening_alert WHERE process_id = $1 ORDER BY created_at, id`, id)
	if err != nil {
		return nil, err
	}
	defer alertRows.Close()
	for alertRows.Next() {
		var al Alert
		if err := alertRows.Scan(&al.ID, &al.ProcessID, &al.Reason, &al.Category, &al.RaisedAtStep,
			&al.IsResolved, &al.Resolution, &al.ResolvedAt, &al.ResolvedBy, &al.CreatedAt); err != nil {
			return nil, err
		}
		agg.Alerts = append(agg.Alerts, &al)
	}
	if err := alertRows.Err(); err != nil {
		return nil, err
	}
	alertRows.Close()

	for _, al := range agg.Alerts {
		notes, err := r.loadNotes(ctx, c, `SELECT id, text, action, actor_id, created_at
			FROM alert_note WHERE alert_id = $1 ORDER BY created_at, id`, al.ID)
		if err != nil {
			return nil, err
		}
		al.Notes = notes
	}

	return agg, nil
}

func (r *repoPG) loadNotes(ctx context.Context, c queryable, sql string, ownerID uuid.UUID) ([]ReviewNote, error) {
	rows, err := c.Query(ctx, sql, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []ReviewNote
	for rows.Next() {
		var n ReviewNote
		if err := rows.Scan(&n.ID, &n.Text, &n.Action, &n.ActorID, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// SaveAggregate writes the mutated aggregate back. Notes are insert-only:
// existing rows are never touched, so the audit trail cannot shrink.
func (r *repoPG) SaveAggregate(ctx context.Context, agg *Aggregate) error {
	c := r.conn(ctx)
	p := agg.Process

	_, err := c.Exec(ctx, `
		UPDATE screening_process SET status=$2, current_step_type=$3, supervisor_id=$4,
			cancelled_at=$5, cancelled_by=$6, cancellation_reason=$7,
			compliance_report_url=$8, expires_at=$9, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Status, p.CurrentStepType, p.SupervisorID,
		p.CancelledAt, p.CancelledBy, p.CancellationReason,
		p.ComplianceReportURL, p.ExpiresAt)
	if err != nil {
		return err
	}

	for _, s := range agg.Steps {
		_, err := c.Exec(ctx, `
			UPDATE screening_step SET completed=$2, completed_at=$3, data=$4, updated_at=NOW()
			WHERE id = $1`,
			s.ID, s.Completed, s.CompletedAt, s.Data)
		if err != nil {
			return err
		}
	}

	for _, d := range agg.Documents {
		if err := r.upsertDocument(ctx, c, d); err != nil {
			return err
		}
	}

	for _, al := range agg.Alerts {
		if err := r.upsertAlert(ctx, c, al); err != nil {
			return err
		}
	}

	return nil
}

func (r *repoPG) upsertDocument(ctx context.Context, c queryable, d *Document) error {
	_, err := c.Exec(ctx, `
		INSERT INTO screening_document (id, process_id, upload_step_id, document_type_id,
			is_required, position, status, artifact_ref)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET status=EXCLUDED.status,
			artifact_ref=EXCLUDED.artifact_ref, updated_at=NOW()`,
		d.ID, d.ProcessID, d.UploadStepID, d.DocumentTypeID,
		d.IsRequired, d.Position, d.Status, d.ArtifactRef)
	if err != nil {
		return err
	}

	for _, n := range d.ReviewNotes {
		_, err := c.Exec(ctx, `
			INSERT INTO document_review_note (id, document_id, text, action, actor_id, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (id) DO NOTHING`,
			n.ID, d.ID, n.Text, n.Action, n.ActorID, n.CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) upsertAlert(ctx context.Context, c queryable, al *Alert) error {
	_, err := c.Exec(ctx, `
		INSERT INTO screening_alert (id, process_id, reason, category, raised_at_step,
			is_resolved, resolution, resolved_at, resolved_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET is_resolved=EXCLUDED.is_resolved,
			resolution=EXCLUDED.resolution, resolved_at=EXCLUDED.resolved_at,
			resolved_by=EXCLUDED.resolved_by`,
		al.ID, al.ProcessID, al.Reason, al.Category, al.RaisedAtStep,
		al.IsResolved, al.Resolution, al.ResolvedAt, al.ResolvedBy, al.CreatedAt)
	if err != nil {
		return err
	}

	for _, n := range al.Notes {
		_, err := c.Exec(ctx, `
			INSERT INTO alert_note (id, alert_id, text, action, actor_id, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (id) DO NOTHING`,
			n.ID, al.ID, n.Text, n.Action, n.ActorID, n.CreatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) ListByOrganization(ctx context.Context, orgID uuid.UUID, status ProcessStatus, limit, offset int) ([]*Process, int, error) {
	// Processes are cancelled via their lifecycle, never soft-deleted.
	qb := db.NewScopedQuery("screening_process", processCols, []uuid.UUID{orgID}, true)
	if status != "" {
		qb.Where("status", string(status))
	}
	qb.OrderBy("created_at DESC")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Process
	for rows.Next() {
		p, err := scanProcess(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id FROM screening_process
		WHERE status = $1 AND expires_at IS NOT NULL AND expires_at <= $2
		ORDER BY expires_at
		LIMIT $3`, StatusInProgress, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repoPG) FindReusableDocument(ctx context.Context, professionalID, documentTypeID uuid.UUID) (*Document, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT d.id, d.process_id, d.upload_step_id, d.document_type_id, d.is_required,
			d.position, d.status, d.artifact_ref, d.created_at, d.updated_at
		FROM screening_document d
		JOIN screening_process p ON p.id = d.process_id
		WHERE p.professional_id = $1 AND d.document_type_id = $2 AND d.status = $3
		ORDER BY d.updated_at DESC
		LIMIT 1`, professionalID, documentTypeID, DocApproved)

	var d Document
	err := row.Scan(&d.ID, &d.ProcessID, &d.UploadStepID, &d.DocumentTypeID, &d.IsRequired,
		&d.Position, &d.Status, &d.ArtifactRef, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
