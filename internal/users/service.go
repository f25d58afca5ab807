package users

import (
	"context"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/sitewise-erp/sitewise-erp/internal/auth"
	"github.com/sitewise-erp/sitewise-erp/internal/platform/db"
	"github.com/sitewise-erp/sitewise-erp/internal/platform/httpx"
	"github.com/sitewise-erp/sitewise-erp/internal/platform/query"
	"github.com/sitewise-erp/sitewise-erp/internal/shared"
)

const tempPasswordLength = 12

// CreateFields is what the repository persists for a new member.
type CreateFields struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	Role         string
}

// Store abstracts persistence for tests.
type Store interface {
	Create(ctx context.Context, companyID int64, in CreateFields) (*User, error)
	FindByID(ctx context.Context, companyID, id int64) (*User, error)
	List(ctx context.Context, companyID int64, f ListFilters, page shared.PageRequest) ([]User, int, error)
	Update(ctx context.Context, companyID, id int64, set *query.SetBuilder) (*User, error)
	SoftDelete(ctx context.Context, companyID, id int64) (bool, error)
	Restore(ctx context.Context, companyID, id int64) (bool, error)
}

// Service wraps team member business rules.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// CreateInput collects the fields for a new team member.
type CreateInput struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Role      string
}

// Created is the create response: the member plus the one-time temporary
// password they sign in with.
type Created struct {
	User         User   `json:"user"`
	TempPassword string `json:"temp_password"`
}

// Create adds a member with a generated temporary password.
func (s *Service) Create(ctx context.Context, companyID int64, in CreateInput) (*Created, error) {
	if !shared.ValidRole(in.Role) || in.Role == shared.RoleOwner {
		return nil, fmt.Errorf("invalid role %q: %w", in.Role, httpx.ErrValidation)
	}

	tempPassword, err := auth.GeneratePassword(rand.Reader, tempPasswordLength)
	if err != nil {
		return nil, fmt.Errorf("users: generate password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("users: hash password: %w", err)
	}

	user, err := s.store.Create(ctx, companyID, CreateFields{
		Email:        in.Email,
		PasswordHash: string(hash),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		Role:         in.Role,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("email already registered: %w", httpx.ErrConflict)
		}
		return nil, fmt.Errorf("users: create: %w", err)
	}
	return &Created{User: *user, TempPassword: tempPassword}, nil
}

// Get returns one member.
func (s *Service) Get(ctx context.Context, companyID, id int64) (*User, error) {
	user, err := s.store.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, fmt.Errorf("users: find: %w", err)
	}
	if user == nil {
		return nil, httpx.ErrNotFound
	}
	return user, nil
}

// List returns one page of members.
func (s *Service) List(ctx context.Context, companyID int64, f ListFilters, page shared.PageRequest) ([]User, int, error) {
	return s.store.List(ctx, companyID, f, page)
}

// UpdateInput is the partial member patch.
type UpdateInput struct {
	FirstName query.Optional[string] `json:"first_name"`
	LastName  query.Optional[string] `json:"last_name"`
	Phone     query.Optional[string] `json:"phone"`
	Role      query.Optional[string] `json:"role"`
	IsActive  query.Optional[bool]   `json:"is_active"`
}

// Update applies the present fields to a member.
func (s *Service) Update(ctx context.Context, companyID, id int64, in UpdateInput) (*User, error) {
	if in.Role.Present {
		if in.Role.Null || !shared.ValidRole(in.Role.Value) || in.Role.Value == shared.RoleOwner {
			return nil, fmt.Errorf("invalid role: %w", httpx.ErrValidation)
		}
	}

	var set query.SetBuilder
	query.Apply(&set, "first_name", in.FirstName)
	query.Apply(&set, "last_name", in.LastName)
	query.Apply(&set, "phone", in.Phone)
	query.Apply(&set, "role", in.Role)
	query.Apply(&set, "is_active", in.IsActive)

	user, err := s.store.Update(ctx, companyID, id, &set)
	if err != nil {
		return nil, fmt.Errorf("users: update: %w", err)
	}
	if user == nil {
		return nil, httpx.ErrNotFound
	}
	return user, nil
}

// Delete soft-deletes a member.
func (s *Service) Delete(ctx context.Context, companyID, id int64) error {
	ok, err := s.store.SoftDelete(ctx, companyID, id)
	if err != nil {
		return fmt.Errorf("users: delete: %w", err)
	}
	if !ok {
		return httpx.ErrNotFound
	}
	return nil
}

// Restore revives a soft-deleted member.
func (s *Service) Restore(ctx context.Context, companyID, id int64) (*User, error) {
	ok, err := s.store.Restore(ctx, companyID, id)
	if err != nil {
		return nil, fmt.Errorf("users: restore: %w", err)
	}
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return s.Get(ctx, companyID, id)
}
