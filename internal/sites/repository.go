package sites

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitewise-erp/sitewise-erp/internal/platform/crud"
	"github.com/sitewise-erp/sitewise-erp/internal/platform/query"
	"github.com/sitewise-erp/sitewise-erp/internal/shared"
)

var table = crud.Table[Site]{
	Name: "sites",
	Columns: []string{
		"id", "company_id", "name", "address", "status", "manager_id",
		"start_date", "end_date", "created_at", "updated_at",
	},
	TenantColumn: "company_id",
	Scan: func(rows pgx.Rows) (Site, error) {
		var s Site
		err := rows.Scan(&s.ID, &s.CompanyID, &s.Name, &s.Address, &s.Status, &s.ManagerID,
			&s.StartDate, &s.EndDate, &s.CreatedAt, &s.UpdatedAt)
		return s, err
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

// CreateFields is what the repository persists for a new site.
type CreateFields struct {
	Name      string
	Address   string
	Status    SiteStatus
	ManagerID *int64
	StartDate time.Time
	EndDate   *time.Time
}

// Create inserts a site under the tenant.
func (r *Repository) Create(ctx context.Context, companyID int64, in CreateFields) (*Site, error) {
	now := time.Now().UTC()
	rows, err := r.pool.Query(ctx, `INSERT INTO sites (company_id, name, address, status, manager_id, start_date, end_date, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
RETURNING id, company_id, name, address, status, manager_id, start_date, end_date, created_at, updated_at`,
		companyID, in.Name, in.Address, in.Status, in.ManagerID, in.StartDate, in.EndDate, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	s, err := table.Scan(rows)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindByID returns the site or nil.
func (r *Repository) FindByID(ctx context.Context, companyID, id int64) (*Site, error) {
	return table.FindByID(ctx, r.pool, companyID, id)
}

// List returns one page of sites plus the unpaginated total.
func (r *Repository) List(ctx context.Context, companyID int64, f ListFilters, page shared.PageRequest) ([]Site, int, error) {
	b := table.BaseFilter(companyID)
	if f.Search != "" {
		b.Search(f.Search, "name", "address")
	}
	if f.Status != "" {
		b.Equal("status", f.Status)
	}
	if f.ManagerID > 0 {
		b.Equal("manager_id", f.ManagerID)
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
func (r *Repository) Update(ctx context.Context, companyID, id int64, set *query.SetBuilder) (*Site, error) {
	return table.Update(ctx, r.pool, companyID, id, set)
}

// SoftDelete marks the site deleted.
func (r *Repository) SoftDelete(ctx context.Context, companyID, id int64) (bool, error) {
	return table.SoftDelete(ctx, r.pool, companyID, id)
}

// Restore revives a soft-deleted site.
func (r *Repository) Restore(ctx context.Context, companyID, id int64) (bool, error) {
	return table.Restore(ctx, r.pool, companyID, id)
}

// CountActive counts the tenant's live sites in active status.
func (r *Repository) CountActive(ctx context.Context, companyID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM sites WHERE company_id = $1 AND status = $2 AND deleted_at IS NULL`,
		companyID, StatusActive).Scan(&n)
	return n, err
}

// Exists reports whether a live site belongs to the tenant.
func (r *Repository) Exists(ctx context.Context, companyID, id int64) (bool, error) {
	var found bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM sites WHERE company_id = $1 AND id = $2 AND deleted_at IS NULL)`,
		companyID, id).Scan(&found)
	return found, err
}
