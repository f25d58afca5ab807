package users

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitewise-erp/sitewise-erp/internal/platform/crud"
	"github.com/sitewise-erp/sitewise-erp/internal/platform/query"
	"github.com/sitewise-erp/sitewise-erp/internal/shared"
)

var table = crud.Table[User]{
	Name: "users",
	Columns: []string{
		"id", "company_id", "email", "first_name", "last_name", "phone",
		"role", "is_active", "password_hash", "created_at", "updated_at",
	},
	TenantColumn: "company_id",
	Scan: func(rows pgx.Rows) (User, error) {
		var u User
		err := rows.Scan(&u.ID, &u.CompanyID, &u.Email, &u.FirstName, &u.LastName, &u.Phone,
			&u.Role, &u.IsActive, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
		return u, err
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

// Create inserts a team member under the tenant.
func (r *Repository) Create(ctx context.Context, companyID int64, in CreateFields) (*User, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx, `INSERT INTO users (company_id, email, password_hash, first_name, last_name, phone, role, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $8)
RETURNING id, company_id, email, first_name, last_name, phone, role, is_active, password_hash, created_at, updated_at`,
		companyID, in.Email, in.PasswordHash, in.FirstName, in.LastName, in.Phone, in.Role, now)

	var u User
	if err := row.Scan(&u.ID, &u.CompanyID, &u.Email, &u.FirstName, &u.LastName, &u.Phone,
		&u.Role, &u.IsActive, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByID returns the user or nil.
func (r *Repository) FindByID(ctx context.Context, companyID, id int64) (*User, error) {
	return table.FindByID(ctx, r.pool, companyID, id)
}

// List returns one page of team members plus the unpaginated total.
func (r *Repository) List(ctx context.Context, companyID int64, f ListFilters, page shared.PageRequest) ([]User, int, error) {
	b := table.BaseFilter(companyID)
	if f.Search != "" {
		b.Search(f.Search, "first_name", "last_name", "email")
	}
	if f.Role != "" {
		b.Equal("role", f.Role)
	}
	if f.IsActive != nil {
		b.Equal("is_active", *f.IsActive)
	}
	return table.List(ctx, r.pool, b, page, "created_at DESC, id DESC")
}

// Update applies present fields; nil when the predicate excluded the row.
func (r *Repository) Update(ctx context.Context, companyID, id int64, set *query.SetBuilder) (*User, error) {
	return table.Update(ctx, r.pool, companyID, id, set)
}

// SoftDelete marks the user deleted.
func (r *Repository) SoftDelete(ctx context.Context, companyID, id int64) (bool, error) {
	return table.SoftDelete(ctx, r.pool, companyID, id)
}

// Restore revives a soft-deleted user.
func (r *Repository) Restore(ctx context.Context, companyID, id int64) (bool, error) {
	return table.Restore(ctx, r.pool, companyID, id)
}

// Exists reports whether a live user belongs to the tenant. Other modules
// use it for cross-entity referential checks (site manager, task assignee).
func (r *Repository) Exists(ctx context.Context, companyID, id int64) (bool, error) {
	var found bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE company_id = $1 AND id = $2 AND deleted_at IS NULL)`,
		companyID, id).Scan(&found)
	return found, err
}
