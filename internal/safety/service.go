package safety

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
	Create(ctx context.Context, companyID int64, in CreateFields) (*Incident, error)
	FindByID(ctx context.Context, companyID, id int64) (*Incident, error)
	List(ctx context.Context, companyID int64, f ListFilters, page shared.PageRequest) ([]Incident, int, error)
	Update(ctx context.Context, companyID, id int64, set *query.SetBuilder) (*Incident, error)
	SoftDelete(ctx context.Context, companyID, id int64) (bool, error)
	Restore(ctx context.Context, companyID, id int64) (bool, error)
	CountOpenForSite(ctx context.Context, companyID, siteID int64) (int, error)
}

// SiteDirectory answers whether a site belongs to the tenant.
type SiteDirectory interface {
	Exists(ctx context.Context, companyID, siteID int64) (bool, error)
}

// Service wraps incident business rules.
type Service struct {
	store Store
	sites SiteDirectory
	now   func() time.Time
}

// NewService constructs a Service.
func NewService(store Store, sites SiteDirectory) *Service {
	return &Service{store: store, sites: sites, now: time.Now}
}

// CreateInput collects the fields for a new incident. ReportedBy is taken
// from the caller's identity, never from the request body.
type CreateInput struct {
	SiteID      int64
	Title       string
	Description string
	Severity    Severity
	OccurredAt  time.Time
}

// Report validates and records an open incident.
func (s *Service) Report(ctx context.Context, identity shared.Identity, in CreateInput) (*Incident, error) {
	if in.Severity == "" {
		in.Severity = SeverityLow
	}
	if !ValidSeverity(in.Severity) {
		return nil, fmt.Errorf("invalid severity %q: %w", in.Severity, httpx.ErrValidation)
	}
	if in.OccurredAt.IsZero() {
		in.OccurredAt = s.now().UTC()
	}
	ok, err := s.sites.Exists(ctx, identity.CompanyID, in.SiteID)
	if err != nil {
		return nil, fmt.Errorf("safety: check site: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("site does not belong to company: %w", httpx.ErrValidation)
	}

	incident, err := s.store.Create(ctx, identity.CompanyID, CreateFields{
		SiteID:      in.SiteID,
		ReportedBy:  identity.UserID,
		Title:       in.Title,
		Description: in.Description,
		Severity:    in.Severity,
		OccurredAt:  in.OccurredAt,
	})
	if err != nil {
		return nil, fmt.Errorf("safety: create: %w", err)
	}
	return incident, nil
}

// Get returns one incident.
func (s *Service) Get(ctx context.Context, companyID, id int64) (*Incident, error) {
	incident, err := s.store.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, fmt.Errorf("safety: find: %w", err)
	}
	if incident == nil {
		return nil, httpx.ErrNotFound
	}
	return incident, nil
}

// List returns one page of incidents.
func (s *Service) List(ctx context.Context, companyID int64, f ListFilters, page shared.PageRequest) ([]Incident, int, error) {
	if f.Severity != "" && !ValidSeverity(f.Severity) {
		return nil, 0, fmt.Errorf("invalid severity %q: %w", f.Severity, httpx.ErrValidation)
	}
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, 0, fmt.Errorf("invalid status %q: %w", f.Status, httpx.ErrValidation)
	}
	return s.store.List(ctx, companyID, f, page)
}

// UpdateInput is the partial incident patch. Status moves through Update as
// well; reaching resolved stamps ResolvedAt, leaving it clears the stamp.
type UpdateInput struct {
	SiteID      query.Optional[int64]     `json:"site_id"`
	Title       query.Optional[string]    `json:"title"`
	Description query.Optional[string]    `json:"description"`
	Severity    query.Optional[string]    `json:"severity"`
	Status      query.Optional[string]    `json:"status"`
	OccurredAt  query.Optional[time.Time] `json:"occurred_at"`
}

// Update applies the present fields to an incident.
func (s *Service) Update(ctx context.Context, companyID, id int64, in UpdateInput) (*Incident, error) {
	if in.Severity.Present {
		if in.Severity.Null || !ValidSeverity(Severity(in.Severity.Value)) {
			return nil, fmt.Errorf("invalid severity: %w", httpx.ErrValidation)
		}
	}
	if in.Status.Present {
		if in.Status.Null || !ValidStatus(IncidentStatus(in.Status.Value)) {
			return nil, fmt.Errorf("invalid status: %w", httpx.ErrValidation)
		}
	}
	if in.SiteID.Present {
		if in.SiteID.Null {
			return nil, fmt.Errorf("site is required: %w", httpx.ErrValidation)
		}
		ok, err := s.sites.Exists(ctx, companyID, in.SiteID.Value)
		if err != nil {
			return nil, fmt.Errorf("safety: check site: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("site does not belong to company: %w", httpx.ErrValidation)
		}
	}

	var set query.SetBuilder
	query.Apply(&set, "site_id", in.SiteID)
	query.Apply(&set, "title", in.Title)
	query.Apply(&set, "description", in.Description)
	query.Apply(&set, "severity", in.Severity)
	query.Apply(&set, "status", in.Status)
	query.Apply(&set, "occurred_at", in.OccurredAt)
	if in.Status.Present {
		if IncidentStatus(in.Status.Value) == StatusResolved {
			set.Set("resolved_at", s.now().UTC())
		} else {
			set.Set("resolved_at", nil)
		}
	}

	incident, err := s.store.Update(ctx, companyID, id, &set)
	if err != nil {
		return nil, fmt.Errorf("safety: update: %w", err)
	}
	if incident == nil {
		return nil, httpx.ErrNotFound
	}
	return incident, nil
}

// Resolve closes an incident, stamping ResolvedAt. Resolving an already
// resolved incident is a no-op that returns the current row.
func (s *Service) Resolve(ctx context.Context, companyID, id int64) (*Incident, error) {
	current, err := s.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if current.Status == StatusResolved {
		return current, nil
	}

	var set query.SetBuilder
	set.Set("status", StatusResolved)
	set.Set("resolved_at", s.now().UTC())

	incident, err := s.store.Update(ctx, companyID, id, &set)
	if err != nil {
		return nil, fmt.Errorf("safety: resolve: %w", err)
	}
	if incident == nil {
		return nil, httpx.ErrNotFound
	}
	return incident, nil
}

// Delete soft-deletes an incident.
func (s *Service) Delete(ctx context.Context, companyID, id int64) error {
	ok, err := s.store.SoftDelete(ctx, companyID, id)
	if err != nil {
		return fmt.Errorf("safety: delete: %w", err)
	}
	if !ok {
		return httpx.ErrNotFound
	}
	return nil
}

// Restore revives a soft-deleted incident.
func (s *Service) Restore(ctx context.Context, companyID, id int64) (*Incident, error) {
	ok, err := s.store.Restore(ctx, companyID, id)
	if err != nil {
		return nil, fmt.Errorf("safety: restore: %w", err)
	}
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return s.Get(ctx, companyID, id)
}

// CountOpen counts live unresolved incidents for the tenant, optionally for
// one site.
func (s *Service) CountOpen(ctx context.Context, companyID, siteID int64) (int, error) {
	return s.store.CountOpenForSite(ctx, companyID, siteID)
}
