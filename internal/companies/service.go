package companies

import (
	"context"
	"fmt"

	"github.com/sitewise-erp/sitewise-erp/internal/platform/db"
	"github.com/sitewise-erp/sitewise-erp/internal/platform/httpx"
	"github.com/sitewise-erp/sitewise-erp/internal/platform/query"
)

// Store abstracts persistence for tests.
type Store interface {
	Find(ctx context.Context, companyID int64) (*Company, error)
	Update(ctx context.Context, companyID int64, set *query.SetBuilder) (*Company, error)
}

// Service wraps company profile rules.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Get returns the caller's company.
func (s *Service) Get(ctx context.Context, companyID int64) (*Company, error) {
	company, err := s.store.Find(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("companies: find: %w", err)
	}
	if company == nil {
		return nil, httpx.ErrNotFound
	}
	return company, nil
}

// UpdateInput is the partial company profile patch.
type UpdateInput struct {
	Name    query.Optional[string] `json:"name"`
	Email   query.Optional[string] `json:"email"`
	Phone   query.Optional[string] `json:"phone"`
	Address query.Optional[string] `json:"address"`
}

// Update applies the present fields to the caller's company.
func (s *Service) Update(ctx context.Context, companyID int64, in UpdateInput) (*Company, error) {
	var set query.SetBuilder
	query.Apply(&set, "name", in.Name)
	query.Apply(&set, "email", in.Email)
	query.Apply(&set, "phone", in.Phone)
	query.Apply(&set, "address", in.Address)

	company, err := s.store.Update(ctx, companyID, &set)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("company email taken: %w", httpx.ErrConflict)
		}
		return nil, fmt.Errorf("companies: update: %w", err)
	}
	if company == nil {
		return nil, httpx.ErrNotFound
	}
	return company, nil
}
