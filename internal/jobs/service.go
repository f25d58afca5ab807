package jobs

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
	Create(ctx context.Context, companyID int64, in CreateFields) (*Job, error)
	FindByID(ctx context.Context, companyID, id int64) (*Job, error)
	List(ctx context.Context, companyID int64, f ListFilters, page shared.PageRequest) ([]Job, int, error)
	Update(ctx context.Context, companyID, id int64, set *query.SetBuilder) (*Job, error)
	SoftDelete(ctx context.Context, companyID, id int64) (bool, error)
	Restore(ctx context.Context, companyID, id int64) (bool, error)
}

// SiteDirectory answers whether a site belongs to the tenant.
type SiteDirectory interface {
	Exists(ctx context.Context, companyID, siteID int64) (bool, error)
}

// Service wraps job business rules.
type Service struct {
	store Store
	sites SiteDirectory
}

// NewService constructs a Service.
func NewService(store Store, sites SiteDirectory) *Service {
	return &Service{store: store, sites: sites}
}

// CreateInput collects the fields for a new job.
type CreateInput struct {
	SiteID      int64
	Title       string
	Description string
	Status      JobStatus
	StartDate   *time.Time
	EndDate     *time.Time
}

// Create validates domain rules and inserts the job.
func (s *Service) Create(ctx context.Context, companyID int64, in CreateInput) (*Job, error) {
	if in.Status == "" {
		in.Status = StatusPlanned
	}
	if !ValidStatus(in.Status) {
		return nil, fmt.Errorf("invalid status %q: %w", in.Status, httpx.ErrValidation)
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return nil, fmt.Errorf("end date before start date: %w", httpx.ErrValidation)
	}

	ok, err := s.sites.Exists(ctx, companyID, in.SiteID)
	if err != nil {
		return nil, fmt.Errorf("jobs: check site: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("site does not belong to company: %w", httpx.ErrValidation)
	}

	job, err := s.store.Create(ctx, companyID, CreateFields(in))
	if err != nil {
		return nil, fmt.Errorf("jobs: create: %w", err)
	}
	return job, nil
}

// Get returns one job.
func (s *Service) Get(ctx context.Context, companyID, id int64) (*Job, error) {
	job, err := s.store.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, fmt.Errorf("jobs: find: %w", err)
	}
	if job == nil {
		return nil, httpx.ErrNotFound
	}
	return job, nil
}

// List returns one page of jobs.
func (s *Service) List(ctx context.Context, companyID int64, f ListFilters, page shared.PageRequest) ([]Job, int, error) {
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, 0, fmt.Errorf("invalid status %q: %w", f.Status, httpx.ErrValidation)
	}
	return s.store.List(ctx, companyID, f, page)
}

// UpdateInput is the partial job patch.
type UpdateInput struct {
	Title       query.Optional[string]    `json:"title"`
	Description query.Optional[string]    `json:"description"`
	Status      query.Optional[string]    `json:"status"`
	StartDate   query.Optional[time.Time] `json:"start_date"`
	EndDate     query.Optional[time.Time] `json:"end_date"`
}

// Update applies the present fields to a job.
func (s *Service) Update(ctx context.Context, companyID, id int64, in UpdateInput) (*Job, error) {
	if in.Status.Present {
		if in.Status.Null || !ValidStatus(JobStatus(in.Status.Value)) {
			return nil, fmt.Errorf("invalid status: %w", httpx.ErrValidation)
		}
	}

	var set query.SetBuilder
	query.Apply(&set, "title", in.Title)
	query.Apply(&set, "description", in.Description)
	query.Apply(&set, "status", in.Status)
	query.Apply(&set, "start_date", in.StartDate)
	query.Apply(&set, "end_date", in.EndDate)

	job, err := s.store.Update(ctx, companyID, id, &set)
	if err != nil {
		return nil, fmt.Errorf("jobs: update: %w", err)
	}
	if job == nil {
		return nil, httpx.ErrNotFound
	}
	return job, nil
}

// Delete soft-deletes a job.
func (s *Service) Delete(ctx context.Context, companyID, id int64) error {
	ok, err := s.store.SoftDelete(ctx, companyID, id)
	if err != nil {
		return fmt.Errorf("jobs: delete: %w", err)
	}
	if !ok {
		return httpx.ErrNotFound
	}
	return nil
}

// Restore revives a soft-deleted job.
func (s *Service) Restore(ctx context.Context, companyID, id int64) (*Job, error) {
	ok, err := s.store.Restore(ctx, companyID, id)
	if err != nil {
		return nil, fmt.Errorf("jobs: restore: %w", err)
	}
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return s.Get(ctx, companyID, id)
}
