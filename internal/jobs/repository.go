package jobs

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitewise-erp/sitewise-erp/internal/platform/crud"
	"github.com/sitewise-erp/sitewise-erp/internal/platform/query"
	"github.com/sitewise-erp/sitewise-erp/internal/shared"
)

var table = crud.Table[Job]{
	Name: "jobs",
	Columns: []string{
		"id", "company_id", "site_id", "title", "description", "status",
		"start_date", "end_date", "created_at", "updated_at",
	},
	TenantColumn: "company_id",
	Scan: func(rows pgx.Rows) (Job, error) {
		var j Job
		err := rows.Scan(&j.ID, &j.CompanyID, &j.SiteID, &j.Title, &j.Description, &j.Status,
			&j.StartDate, &j.EndDate, &j.CreatedAt, &j.UpdatedAt)
		return j, err
	},
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateFields is what the repository persists for a new job.
type CreateFields struct {
	SiteID      int64
	Title       string
	Description string
	Status      JobStatus
	StartDate   *time.Time
	EndDate     *time.Time
}

// Create inserts a job under the tenant.
func (r *Repository) Create(ctx context.Context, companyID int64, in CreateFields) (*Job, error) {
	now := time.Now().UTC()
	rows, err := r.pool.Query(ctx, `INSERT INTO jobs (company_id, site_id, title, description, status, start_date, end_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
RETURNING id, company_id, site_id, title, description, status, start_date, end_date, created_at, updated_at`,
		companyID, in.SiteID, in.Title, in.Description, in.Status, in.StartDate, in.EndDate, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	j, err := table.Scan(rows)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// FindByID returns the job or nil.
func (r *Repository) FindByID(ctx context.Context, companyID, id int64) (*Job, error) {
	return table.FindByID(ctx, r.pool, companyID, id)
}

// List returns one page of jobs plus the unpaginated total.
func (r *Repository) List(ctx context.Context, companyID int64, f ListFilters, page shared.PageRequest) ([]Job, int, error) {
	b := table.BaseFilter(companyID)
	if f.Search != "" {
		b.Search(f.Search, "title", "description")
	}
	if f.Status != "" {
		b.Equal("status", f.Status)
	}
	if f.SiteID > 0 {
		b.Equal("site_id", f.SiteID)
	}
	if f.From != nil {
		b.From("start_date", *f.From)
	}
	if f.Until != nil {
		b.Until("start_date", *f.Until)
	}
	return table.List(ctx, r.pool, b, page, "created_at DESC, id DESC")
}

// Update applies present fields; nil when the predicate excluded the row.
func (r *Repository) Update(ctx context.Context, companyID, id int64, set *query.SetBuilder) (*Job, error) {
	return table.Update(ctx, r.pool, companyID, id, set)
}

// SoftDelete marks the job deleted.
func (r *Repository) SoftDelete(ctx context.Context, companyID, id int64) (bool, error) {
	return table.SoftDelete(ctx, r.pool, companyID, id)
}

// Restore revives a soft-deleted job.
func (r *Repository) Restore(ctx context.Context, companyID, id int64) (bool, error) {
	return table.Restore(ctx, r.pool, companyID, id)
}

// Exists reports whether a live job belongs to the tenant. Tasks use it for
// their joined tenant check on create.
func (r *Repository) Exists(ctx context.Context, companyID, id int64) (bool, error) {
	var found bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM jobs WHERE company_id = $1 AND id = $2 AND deleted_at IS NULL)`,
		companyID, id).Scan(&found)
	return found, err
}
