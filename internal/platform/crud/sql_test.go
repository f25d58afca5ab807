package crud

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/sitewise-erp/sitewise-erp/internal/platform/query"
)

type row struct {
	ID   int64
	Name string
}

var testTable = Table[row]{
	Name:         "sites",
	Columns:      []string{"id", "name"},
	TenantColumn: "company_id",
	Scan: func(rows pgx.Rows) (row, error) {
		var r row
		err := rows.Scan(&r.ID, &r.Name)
		return r, err
	},
}

func TestFindSQLConjoinsTenantAndSoftDelete(t *testing.T) {
	require.Equal(t,
		"SELECT id, name FROM sites WHERE company_id = $1 AND id = $2 AND deleted_at IS NULL",
		testTable.findSQL())
}

func TestCountAndDataShareClause(t *testing.T) {
	b := testTable.BaseFilter(7)
	b.Equal("status", "active")
	b.Search("dock", "name")
	where, args := b.Where()

	require.Equal(t,
		"SELECT COUNT(*) FROM sites WHERE company_id = $1 AND status = $2 AND (name ILIKE $3) AND deleted_at IS NULL",
		testTable.countSQL(where))
	require.Equal(t,
		"SELECT id, name FROM sites WHERE company_id = $1 AND status = $2 AND (name ILIKE $3) AND deleted_at IS NULL ORDER BY created_at DESC, id DESC LIMIT $4 OFFSET $5",
		testTable.dataSQL(where, "created_at DESC, id DESC", b.Next()))
	require.Len(t, args, 3)
}

func TestUpdateSQLPlaceholdersContinueAfterSet(t *testing.T) {
	var set query.SetBuilder
	set.Set("name", "Dock 4")
	set.Set("status", nil)

	sql, args := testTable.updateSQL(&set)
	require.Equal(t,
		"UPDATE sites SET name = $1, status = $2, updated_at = now()"+
			" WHERE company_id = $3 AND id = $4 AND deleted_at IS NULL RETURNING id, name",
		sql)
	require.Equal(t, []any{"Dock 4", nil}, args)
}

func TestSoftDeleteAndRestoreSQL(t *testing.T) {
	require.Equal(t,
		"UPDATE sites SET deleted_at = now(), updated_at = now() WHERE company_id = $1 AND id = $2 AND deleted_at IS NULL",
		testTable.softDeleteSQL())
	require.Equal(t,
		"UPDATE sites SET deleted_at = NULL, updated_at = now() WHERE company_id = $1 AND id = $2 AND deleted_at IS NOT NULL",
		testTable.restoreSQL())
}
