package sites

import (
	"context"
	"fmt"
	"time"

	"github.com/sitewise-erp/sitewise-erp/internal/platform/httpx"
	"github.com/sitewise-erp/sitewise-erp/internal/platform/query"
	"github.com/sitewise-erp/sitewise-erp/internal/shared"
)

// Store abstracts persistence for tests.
type Store interface {
	Create(ctx context.Context, companyID int64, in CreateFields) (*Site, error)
	FindByID(ctx context.Context, companyID, id int64) (*Site, error)
	List(ctx context.Context, companyID int64, f ListFilters, page shared.PageRequest) ([]Site, int, error)
	Update(ctx context.Context, companyID, id int64, set *query.SetBuilder) (*Site, error)
	SoftDelete(ctx context.Context, companyID, id int64) (bool, error)
	Restore(ctx context.Context, companyID, id int64) (bool, error)
	CountActive(ctx context.Context, companyID int64) (int, error)
}

// MemberDirectory answers whether a user belongs to the tenant.
type MemberDirectory interface {
	Exists(ctx context.Context, companyID, userID int64) (bool, error)
}

// Service wraps site business rules.
type Service struct {
	store   Store
	members MemberDirectory
}

// NewService constructs a Service.
func NewService(store Store, members MemberDirectory) *Service {
	return &Service{store: store, members: members}
}

// CreateInput collects the fields for a new site.
type CreateInput struct {
	Name      string
	Address   string
	Status    SiteStatus
	ManagerID *int64
	StartDate time.Time
	EndDate   *time.Time
}

// Create validates domain rules and inserts the site.
func (s *Service) Create(ctx context.Context, companyID int64, in CreateInput) (*Site, error) {
	if in.Status == "" {
		in.Status = StatusActive
	}
	if !ValidStatus(in.Status) {
		return nil, fmt.Errorf("invalid status %q: %w", in.Status, httpx.ErrValidation)
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return nil, fmt.Errorf("end date before start date: %w", httpx.ErrValidation)
	}
	if err := s.checkManager(ctx, companyID, in.ManagerID); err != nil {
		return nil, err
	}

	site, err := s.store.Create(ctx, companyID, CreateFields(in))
	if err != nil {
		return nil, fmt.Errorf("sites: create: %w", err)
	}
	return site, nil
}

// Get returns one site.
func (s *Service) Get(ctx context.Context, companyID, id int64) (*Site, error) {
	site, err := s.store.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, fmt.Errorf("sites: find: %w", err)
	}
	if site == nil {
		return nil, httpx.ErrNotFound
	}
	return site, nil
}

// List returns one page of sites.
func (s *Service) List(ctx context.Context, companyID int64, f ListFilters, page shared.PageRequest) ([]Site, int, error) {
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, 0, fmt.Errorf("invalid status %q: %w", f.Status, httpx.ErrValidation)
	}
	return s.store.List(ctx, companyID, f, page)
}

// UpdateInput is the partial site patch.
type UpdateInput struct {
	Name      query.Optional[string]    `json:"name"`
	Address   query.Optional[string]    `json:"address"`
	Status    query.Optional[string]    `json:"status"`
	ManagerID query.Optional[int64]     `json:"manager_id"`
	StartDate query.Optional[time.Time] `json:"start_date"`
	EndDate   query.Optional[time.Time] `json:"end_date"`
}

// Update applies the present fields to a site.
func (s *Service) Update(ctx context.Context, companyID, id int64, in UpdateInput) (*Site, error) {
	if in.Status.Present {
		if in.Status.Null || !ValidStatus(SiteStatus(in.Status.Value)) {
			return nil, fmt.Errorf("invalid status: %w", httpx.ErrValidation)
		}
	}
	if in.ManagerID.Present && !in.ManagerID.Null {
		if err := s.checkManager(ctx, companyID, &in.ManagerID.Value); err != nil {
			return nil, err
		}
	}
	if in.StartDate.Present && in.EndDate.Present && !in.StartDate.Null && !in.EndDate.Null &&
		in.EndDate.Value.Before(in.StartDate.Value) {
		return nil, fmt.Errorf("end date before start date: %w", httpx.ErrValidation)
	}

	var set query.SetBuilder
	query.Apply(&set, "name", in.Name)
	query.Apply(&set, "address", in.Address)
	query.Apply(&set, "status", in.Status)
	query.Apply(&set, "manager_id", in.ManagerID)
	query.Apply(&set, "start_date", in.StartDate)
	query.Apply(&set, "end_date", in.EndDate)

	site, err := s.store.Update(ctx, companyID, id, &set)
	if err != nil {
		return nil, fmt.Errorf("sites: update: %w", err)
	}
	if site == nil {
		return nil, httpx.ErrNotFound
	}
	return site, nil
}

// Delete soft-deletes a site.
func (s *Service) Delete(ctx context.Context, companyID, id int64) error {
	ok, err := s.store.SoftDelete(ctx, companyID, id)
	if err != nil {
		return fmt.Errorf("sites: delete: %w", err)
	}
	if !ok {
		return httpx.ErrNotFound
	}
	return nil
}

// Restore revives a soft-deleted site.
func (s *Service) Restore(ctx context.Context, companyID, id int64) (*Site, error) {
	ok, err := s.store.Restore(ctx, companyID, id)
	if err != nil {
		return nil, fmt.Errorf("sites: restore: %w", err)
	}
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return s.Get(ctx, companyID, id)
}

// CountActive counts the tenant's live sites in active status.
func (s *Service) CountActive(ctx context.Context, companyID int64) (int, error) {
	return s.store.CountActive(ctx, companyID)
}

func (s *Service) checkManager(ctx context.Context, companyID int64, managerID *int64) error {
	if managerID == nil {
		return nil
	}
	ok, err := s.members.Exists(ctx, companyID, *managerID)
	if err != nil {
		return fmt.Errorf("sites: check manager: %w", err)
	}
	if !ok {
		return fmt.Errorf("manager does not belong to company: %w", httpx.ErrValidation)
	}
	return nil
}
