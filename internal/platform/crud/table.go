// Package crud implements the tenant-scoped repository operations shared by
// every entity: find, paginated list, partial update, soft delete, restore.
// Each operation conjoins the tenant predicate and excludes soft-deleted
// rows; SQL text is built separately from execution so the clause assembly
// stays testable without a database.
package crud

import (
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/sitewise-erp/sitewise-erp/internal/platform/query"
)

// Table describes one tenant-owned relation.
type Table[T any] struct {
	// Name is the relation name.
	Name string
	// Columns is the select list, matched positionally by Scan.
	Columns []string
	// TenantColumn is the column carrying the owning company id.
	TenantColumn string
	// Scan reads one row in Columns order.
	Scan func(rows pgx.Rows) (T, error)
}

func (t Table[T]) selectList() string {
	return strings.Join(t.Columns, ", ")
}

// BaseFilter seeds a clause builder with this table's tenant predicate.
// Repositories extend it with their optional filters before listing.
func (t Table[T]) BaseFilter(companyID int64) *query.Builder {
	return query.NewBuilder(t.TenantColumn+" = $1", companyID)
}

func (t Table[T]) findSQL() string {
	b := t.BaseFilter(0)
	b.Equal("id", 0)
	where, _ := b.Where()
	return "SELECT " + t.selectList() + " FROM " + t.Name +
		" WHERE " + where + " AND deleted_at IS NULL"
}

// countSQL and dataSQL share one builder so the placeholder positions in the
// two statements can never drift apart.
func (t Table[T]) countSQL(where string) string {
	return "SELECT COUNT(*) FROM " + t.Name + " WHERE " + where + " AND deleted_at IS NULL"
}

func (t Table[T]) dataSQL(where, orderBy string, next int) string {
	return "SELECT " + t.selectList() + " FROM " + t.Name +
		" WHERE " + where + " AND deleted_at IS NULL" +
		" ORDER BY " + orderBy +
		" LIMIT $" + strconv.Itoa(next) + " OFFSET $" + strconv.Itoa(next+1)
}

func (t Table[T]) updateSQL(set *query.SetBuilder) (string, []any) {
	assignments, args, next := set.Clause(1)
	sql := "UPDATE " + t.Name + " SET " + assignments +
		" WHERE " + t.TenantColumn + " = $" + strconv.Itoa(next) +
		" AND id = $" + strconv.Itoa(next+1) +
		" AND deleted_at IS NULL" +
		" RETURNING " + t.selectList()
	return sql, args
}

func (t Table[T]) softDeleteSQL() string {
	return "UPDATE " + t.Name + " SET deleted_at = now(), updated_at = now()" +
		" WHERE " + t.TenantColumn + " = $1 AND id = $2 AND deleted_at IS NULL"
}

// Restore only touches rows that are currently soft-deleted; restoring a
// live row affects nothing and reports false.
func (t Table[T]) restoreSQL() string {
	return "UPDATE " + t.Name + " SET deleted_at = NULL, updated_at = now()" +
		" WHERE " + t.TenantColumn + " = $1 AND id = $2 AND deleted_at IS NOT NULL"
}
