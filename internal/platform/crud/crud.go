package crud

import (
	"context"

	"github.com/sitewise-erp/sitewise-erp/internal/platform/db"
	"github.com/sitewise-erp/sitewise-erp/internal/platform/query"
	"github.com/sitewise-erp/sitewise-erp/internal/shared"
)

// FindByID returns the row when it exists, is live, and belongs to the
// tenant; otherwise (nil, nil). Absence is a value, not an error.
func (t Table[T]) FindByID(ctx context.Context, q db.Querier, companyID, id int64) (*T, error) {
	rows, err := q.Query(ctx, t.findSQL(), companyID, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	v, err := t.Scan(rows)
	if err != nil {
		return nil, err
	}
	return &v, rows.Err()
}

// List runs the count query and the data query off the same filter builder,
// so both see identical predicates and parameter order. Items beyond the
// last page come back empty with the true total; that is not an error.
func (t Table[T]) List(ctx context.Context, q db.Querier, filter *query.Builder, page shared.PageRequest, orderBy string) ([]T, int, error) {
	where, args := filter.Where()

	var total int
	if err := q.QueryRow(ctx, t.countSQL(where), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataArgs := append(append([]any{}, args...), page.Limit, page.Offset())
	rows, err := q.Query(ctx, t.dataSQL(where, orderBy, filter.Next()), dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []T
	for rows.Next() {
		v, err := t.Scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Update applies only the fields present in set. With zero present fields it
// performs a read-back instead of an empty UPDATE. Returns nil when the
// tenant or soft-delete predicate excluded the row.
func (t Table[T]) Update(ctx context.Context, q db.Querier, companyID, id int64, set *query.SetBuilder) (*T, error) {
	if set.Empty() {
		return t.FindByID(ctx, q, companyID, id)
	}

	sql, args := t.updateSQL(set)
	args = append(args, companyID, id)

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	v, err := t.Scan(rows)
	if err != nil {
		return nil, err
	}
	return &v, rows.Err()
}

// SoftDelete stamps deleted_at and reports whether a row was affected.
func (t Table[T]) SoftDelete(ctx context.Context, q db.Querier, companyID, id int64) (bool, error) {
	tag, err := q.Exec(ctx, t.softDeleteSQL(), companyID, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Restore clears deleted_at on a soft-deleted row and reports whether a row
// was affected. Restoring a live row is a no-op.
func (t Table[T]) Restore(ctx context.Context, q db.Querier, companyID, id int64) (bool, error) {
	tag, err := q.Exec(ctx, t.restoreSQL(), companyID, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
