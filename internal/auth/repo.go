package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitewise-erp/sitewise-erp/internal/platform/db"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindAccountByEmail(ctx context.Context, email string) (*Account, error)
	CreateCompanyWithOwner(ctx context.Context, company CompanyInput, owner OwnerInput) (*Account, error)
}

// CompanyInput holds the fields of the company created at registration.
type CompanyInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// OwnerInput holds the owner account created alongside the company.
type OwnerInput struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
}

// PGRepository implements Repository against PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindAccountByEmail fetches a live account by email across the deployment.
// Returns (nil, nil) when no live account matches.
func (r *PGRepository) FindAccountByEmail(ctx context.Context, email string) (*Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, company_id, email, password_hash, first_name, last_name, role, is_active, created_at, updated_at
FROM users WHERE email = $1 AND deleted_at IS NULL`, email)

	var a Account
	err := row.Scan(&a.ID, &a.CompanyID, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName, &a.Role, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateCompanyWithOwner inserts the company and its owner user in one
// transaction so a half-registered tenant can never exist.
func (r *PGRepository) CreateCompanyWithOwner(ctx context.Context, company CompanyInput, owner OwnerInput) (*Account, error) {
	var account Account
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		now := time.Now().UTC()

		var companyID int64
		if err := tx.QueryRow(ctx, `INSERT INTO companies (name, email, phone, address, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5) RETURNING id`,
			company.Name, company.Email, company.Phone, company.Address, now).Scan(&companyID); err != nil {
			return err
		}

		row := tx.QueryRow(ctx, `INSERT INTO users (company_id, email, password_hash, first_name, last_name, phone, role, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, 'owner', TRUE, $7, $7)
RETURNING id, company_id, email, password_hash, first_name, last_name, role, is_active, created_at, updated_at`,
			companyID, owner.Email, owner.PasswordHash, owner.FirstName, owner.LastName, owner.Phone, now)
		return row.Scan(&account.ID, &account.CompanyID, &account.Email, &account.PasswordHash,
			&account.FirstName, &account.LastName, &account.Role, &account.IsActive,
			&account.CreatedAt, &account.UpdatedAt)
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

var _ Repository = (*PGRepository)(nil)
