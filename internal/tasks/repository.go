package tasks

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitewise-erp/sitewise-erp/internal/platform/query"
	"github.com/sitewise-erp/sitewise-erp/internal/shared"
)

// Tasks have no company_id column; every predicate below reaches the tenant
// through the owning job, so a task of a soft-deleted or foreign job is as
// invisible as a soft-deleted task.
const taskColumns = "t.id, t.job_id, t.title, t.description, t.status, t.assignee_id, t.due_date, t.created_at, t.updated_at"

func scanTask(rows pgx.Rows) (Task, error) {
	var tk Task
	err := rows.Scan(&tk.ID, &tk.JobID, &tk.Title, &tk.Description, &tk.Status,
		&tk.AssigneeID, &tk.DueDate, &tk.CreatedAt, &tk.UpdatedAt)
	return tk, err
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateFields is what the repository persists for a new task.
type CreateFields struct {
	JobID       int64
	Title       string
	Description string
	Status      TaskStatus
	AssigneeID  *int64
	DueDate     *time.Time
}

// Create inserts a task. The caller has already verified the job belongs to
// the tenant.
func (r *Repository) Create(ctx context.Context, in CreateFields) (*Task, error) {
	now := time.Now().UTC()
	rows, err := r.pool.Query(ctx, `INSERT INTO tasks (job_id, title, description, status, assignee_id, due_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
RETURNING id, job_id, title, description, status, assignee_id, due_date, created_at, updated_at`,
		in.JobID, in.Title, in.Description, in.Status, in.AssigneeID, in.DueDate, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	tk, err := scanTask(rows)
	if err != nil {
		return nil, err
	}
	return &tk, nil
}

// FindByID returns the task or nil, joining jobs for the tenant check.
func (r *Repository) FindByID(ctx context.Context, companyID, id int64) (*Task, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+taskColumns+`
FROM tasks t JOIN jobs j ON j.id = t.job_id
WHERE j.company_id = $1 AND t.id = $2 AND t.deleted_at IS NULL AND j.deleted_at IS NULL`,
		companyID, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	tk, err := scanTask(rows)
	if err != nil {
		return nil, err
	}
	return &tk, nil
}

// List returns one page of tasks plus the unpaginated total. Count and data
// queries share one builder so their placeholders stay in lockstep.
func (r *Repository) List(ctx context.Context, companyID int64, f ListFilters, page shared.PageRequest) ([]Task, int, error) {
	b := query.NewBuilder("j.company_id = $1", companyID)
	if f.Search != "" {
		b.Search(f.Search, "t.title", "t.description")
	}
	if f.Status != "" {
		b.Equal("t.status", f.Status)
	}
	if f.JobID > 0 {
		b.Equal("t.job_id", f.JobID)
	}
	if f.AssigneeID > 0 {
		b.Equal("t.assignee_id", f.AssigneeID)
	}
	if f.DueFrom != nil {
		b.From("t.due_date", *f.DueFrom)
	}
	if f.DueUntil != nil {
		b.Until("t.due_date", *f.DueUntil)
	}

	where, args := b.Where()
	from := ` FROM tasks t JOIN jobs j ON j.id = t.job_id WHERE ` + where +
		` AND t.deleted_at IS NULL AND j.deleted_at IS NULL`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+from, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	next := b.Next()
	dataSQL := `SELECT ` + taskColumns + from +
		` ORDER BY t.created_at DESC, t.id DESC LIMIT $` + strconv.Itoa(next) + ` OFFSET $` + strconv.Itoa(next+1)
	dataArgs := append(append([]any{}, args...), page.Limit, page.Offset())

	rows, err := r.pool.Query(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Task
	for rows.Next() {
		tk, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, tk)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Update applies present fields under the joined tenant predicate; nil when
// the predicate excluded the row.
func (r *Repository) Update(ctx context.Context, companyID, id int64, set *query.SetBuilder) (*Task, error) {
	if set.Empty() {
		return r.FindByID(ctx, companyID, id)
	}

	assignments, args, next := set.Clause(1)
	sql := `UPDATE tasks t SET ` + assignments +
		` FROM jobs j WHERE j.id = t.job_id AND j.company_id = $` + strconv.Itoa(next) +
		` AND t.id = $` + strconv.Itoa(next+1) +
		` AND t.deleted_at IS NULL AND j.deleted_at IS NULL RETURNING ` + taskColumns
	args = append(args, companyID, id)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	tk, err := scanTask(rows)
	if err != nil {
		return nil, err
	}
	return &tk, nil
}

// SoftDelete marks the task deleted.
func (r *Repository) SoftDelete(ctx context.Context, companyID, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE tasks t SET deleted_at = now(), updated_at = now()
FROM jobs j WHERE j.id = t.job_id AND j.company_id = $1 AND t.id = $2
AND t.deleted_at IS NULL AND j.deleted_at IS NULL`,
		companyID, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Restore revives a soft-deleted task.
func (r *Repository) Restore(ctx context.Context, companyID, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE tasks t SET deleted_at = NULL, updated_at = now()
FROM jobs j WHERE j.id = t.job_id AND j.company_id = $1 AND t.id = $2
AND t.deleted_at IS NOT NULL AND j.deleted_at IS NULL`,
		companyID, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CountOpenForAssignee counts the caller's unfinished tasks.
func (r *Repository) CountOpenForAssignee(ctx context.Context, companyID, assigneeID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*)
FROM tasks t JOIN jobs j ON j.id = t.job_id
WHERE j.company_id = $1 AND t.assignee_id = $2 AND t.status <> 'done'
AND t.deleted_at IS NULL AND j.deleted_at IS NULL`,
		companyID, assigneeID).Scan(&n)
	return n, err
}
