package safety

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitewise-erp/sitewise-erp/internal/platform/crud"
	"github.com/sitewise-erp/sitewise-erp/internal/platform/query"
	"github.com/sitewise-erp/sitewise-erp/internal/shared"
)

var table = crud.Table[Incident]{
	Name: "safety_incidents",
	Columns: []string{
		"id", "company_id", "site_id", "reported_by", "title", "description",
		"severity", "status", "occurred_at", "resolved_at", "created_at", "updated_at",
	},
	TenantColumn: "company_id",
	Scan: func(rows pgx.Rows) (Incident, error) {
		var in Incident
		err := rows.Scan(&in.ID, &in.CompanyID, &in.SiteID, &in.ReportedBy, &in.Title, &in.Description,
			&in.Severity, &in.Status, &in.OccurredAt, &in.ResolvedAt, &in.CreatedAt, &in.UpdatedAt)
		return in, err
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

// CreateFields is what the repository persists for a new incident.
type CreateFields struct {
	SiteID      int64
	ReportedBy  int64
	Title       string
	Description string
	Severity    Severity
	OccurredAt  time.Time
}

// Create inserts an open incident under the tenant.
func (r *Repository) Create(ctx context.Context, companyID int64, in CreateFields) (*Incident, error) {
	now := time.Now().UTC()
	rows, err := r.pool.Query(ctx, `INSERT INTO safety_incidents (company_id, site_id, reported_by, title, description, severity, status, occurred_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
RETURNING id, company_id, site_id, reported_by, title, description, severity, status, occurred_at, resolved_at, created_at, updated_at`,
		companyID, in.SiteID, in.ReportedBy, in.Title, in.Description, in.Severity, StatusOpen, in.OccurredAt, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	incident, err := table.Scan(rows)
	if err != nil {
		return nil, err
	}
	return &incident, nil
}

// FindByID returns the incident or nil.
func (r *Repository) FindByID(ctx context.Context, companyID, id int64) (*Incident, error) {
	return table.FindByID(ctx, r.pool, companyID, id)
}

// List returns one page of incidents plus the unpaginated total, newest
// occurrence first.
func (r *Repository) List(ctx context.Context, companyID int64, f ListFilters, page shared.PageRequest) ([]Incident, int, error) {
	b := table.BaseFilter(companyID)
	if f.Search != "" {
		b.Search(f.Search, "title", "description")
	}
	if f.SiteID > 0 {
		b.Equal("site_id", f.SiteID)
	}
	if f.Severity != "" {
		b.Equal("severity", f.Severity)
	}
	if f.Status != "" {
		b.Equal("status", f.Status)
	}
	if f.From != nil {
		b.From("occurred_at", *f.From)
	}
	if f.Until != nil {
		b.Until("occurred_at", *f.Until)
	}
	return table.List(ctx, r.pool, b, page, "occurred_at DESC, id DESC")
}

// Update applies present fields; nil when the predicate excluded the row.
func (r *Repository) Update(ctx context.Context, companyID, id int64, set *query.SetBuilder) (*Incident, error) {
	return table.Update(ctx, r.pool, companyID, id, set)
}

// SoftDelete marks the incident deleted.
func (r *Repository) SoftDelete(ctx context.Context, companyID, id int64) (bool, error) {
	return table.SoftDelete(ctx, r.pool, companyID, id)
}

// Restore revives a soft-deleted incident.
func (r *Repository) Restore(ctx context.Context, companyID, id int64) (bool, error) {
	return table.Restore(ctx, r.pool, companyID, id)
}

// CountOpenForSite counts live unresolved incidents, optionally narrowed to
// one site when siteID is positive.
func (r *Repository) CountOpenForSite(ctx context.Context, companyID, siteID int64) (int, error) {
	b := table.BaseFilter(companyID)
	if siteID > 0 {
		b.Equal("site_id", siteID)
	}
	where, args := b.Where()

	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM safety_incidents WHERE `+where+` AND deleted_at IS NULL AND status <> 'resolved'`,
		args...).Scan(&n)
	return n, err
}
