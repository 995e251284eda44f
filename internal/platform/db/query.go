package db

import (
	"fmt"

	"github.com/google/uuid"
)

// ScopedQuery builds SELECT statements for list/count queries that are always
// scoped to an organization and always explicit about soft-delete visibility.
// Scope and visibility are constructor parameters, not inherited behavior:
// every call site states whether deleted rows are included.
type ScopedQuery struct {
	table   string
	cols    string
	where   string
	args    []interface{}
	idx     int
	orderBy string
}

// NewScopedQuery creates a query against table selecting cols, filtered to
// rows owned by any of orgIDs. When includeDeleted is false, soft-deleted
// rows (deleted_at set) are excluded.
func NewScopedQuery(table, cols string, orgIDs []uuid.UUID, includeDeleted bool) *ScopedQuery {
	q := &ScopedQuery{table: table, cols: cols, idx: 1}
	if len(orgIDs) == 1 {
		q.where = fmt.Sprintf(" AND organization_id = $%d", q.idx)
		q.args = append(q.args, orgIDs[0])
		q.idx++
	} else if len(orgIDs) > 1 {
		q.where = fmt.Sprintf(" AND organization_id = ANY($%d)", q.idx)
		q.args = append(q.args, orgIDs)
		q.idx++
	}
	if !includeDeleted {
		q.where += " AND deleted_at IS NULL"
	}
	return q
}

// Where appends an equality condition.
func (q *ScopedQuery) Where(column string, value interface{}) *ScopedQuery {
	q.where += fmt.Sprintf(" AND %s = $%d", column, q.idx)
	q.args = append(q.args, value)
	q.idx++
	return q
}

// WhereClause appends a raw condition fragment with positional placeholders
// already numbered from Idx().
func (q *ScopedQuery) WhereClause(clause string, args ...interface{}) *ScopedQuery {
	q.where += " AND " + clause
	q.args = append(q.args, args...)
	q.idx += len(args)
	return q
}

// Idx returns the next available positional parameter index.
func (q *ScopedQuery) Idx() int { return q.idx }

// OrderBy sets the ORDER BY clause (column list, no keyword).
func (q *ScopedQuery) OrderBy(clause string) *ScopedQuery {
	q.orderBy = clause
	return q
}

// CountSQL returns the COUNT(*) statement for the current filters.
func (q *ScopedQuery) CountSQL() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE 1=1%s", q.table, q.where)
}

// CountArgs returns the arguments for CountSQL.
func (q *ScopedQuery) CountArgs() []interface{} {
	return q.args
}

// DataSQL returns the paginated SELECT statement for the current filters.
func (q *ScopedQuery) DataSQL(limit, offset int) string {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE 1=1%s", q.cols, q.table, q.where)
	if q.orderBy != "" {
		sql += " ORDER BY " + q.orderBy
	}
	sql += fmt.Sprintf(" LIMIT $%d OFFSET $%d", q.idx, q.idx+1)
	return sql
}

// DataArgs returns the arguments for DataSQL.
func (q *ScopedQuery) DataArgs(limit, offset int) []interface{} {
	return append(append([]interface{}{}, q.args...), limit, offset)
}
