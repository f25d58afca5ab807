package tasks

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
	Create(ctx context.Context, in CreateFields) (*Task, error)
	FindByID(ctx context.Context, companyID, id int64) (*Task, error)
	List(ctx context.Context, companyID int64, f ListFilters, page shared.PageRequest) ([]Task, int, error)
	Update(ctx context.Context, companyID, id int64, set *query.SetBuilder) (*Task, error)
	SoftDelete(ctx context.Context, companyID, id int64) (bool, error)
	Restore(ctx context.Context, companyID, id int64) (bool, error)
	CountOpenForAssignee(ctx context.Context, companyID, assigneeID int64) (int, error)
}

// JobDirectory answers whether a job belongs to the tenant.
type JobDirectory interface {
	Exists(ctx context.Context, companyID, jobID int64) (bool, error)
}

// MemberDirectory answers whether a user belongs to the tenant.
type MemberDirectory interface {
	Exists(ctx context.Context, companyID, userID int64) (bool, error)
}

// Service wraps task business rules.
type Service struct {
	store   Store
	jobs    JobDirectory
	members MemberDirectory
}

// NewService constructs a Service.
func NewService(store Store, jobs JobDirectory, members MemberDirectory) *Service {
	return &Service{store: store, jobs: jobs, members: members}
}

// CreateInput collects the fields for a new task.
type CreateInput struct {
	JobID       int64
	Title       string
	Description string
	Status      TaskStatus
	AssigneeID  *int64
	DueDate     *time.Time
}

// Create validates cross-entity references and inserts the task.
func (s *Service) Create(ctx context.Context, companyID int64, in CreateInput) (*Task, error) {
	if in.Status == "" {
		in.Status = StatusTodo
	}
	if !ValidStatus(in.Status) {
		return nil, fmt.Errorf("invalid status %q: %w", in.Status, httpx.ErrValidation)
	}

	ok, err := s.jobs.Exists(ctx, companyID, in.JobID)
	if err != nil {
		return nil, fmt.Errorf("tasks: check job: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("job does not belong to company: %w", httpx.ErrValidation)
	}
	if err := s.checkAssignee(ctx, companyID, in.AssigneeID); err != nil {
		return nil, err
	}

	task, err := s.store.Create(ctx, CreateFields(in))
	if err != nil {
		return nil, fmt.Errorf("tasks: create: %w", err)
	}
	return task, nil
}

// Get returns one task.
func (s *Service) Get(ctx context.Context, companyID, id int64) (*Task, error) {
	task, err := s.store.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, fmt.Errorf("tasks: find: %w", err)
	}
	if task == nil {
		return nil, httpx.ErrNotFound
	}
	return task, nil
}

// List returns one page of tasks.
func (s *Service) List(ctx context.Context, companyID int64, f ListFilters, page shared.PageRequest) ([]Task, int, error) {
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, 0, fmt.Errorf("invalid status %q: %w", f.Status, httpx.ErrValidation)
	}
	return s.store.List(ctx, companyID, f, page)
}

// MyTasks lists the caller's own tasks regardless of any assignee filter in
// the request.
func (s *Service) MyTasks(ctx context.Context, caller shared.Identity, f ListFilters, page shared.PageRequest) ([]Task, int, error) {
	f.AssigneeID = caller.UserID
	return s.List(ctx, caller.CompanyID, f, page)
}

// CountOpen counts the caller's unfinished tasks.
func (s *Service) CountOpen(ctx context.Context, caller shared.Identity) (int, error) {
	return s.store.CountOpenForAssignee(ctx, caller.CompanyID, caller.UserID)
}

// UpdateInput is the partial task patch.
type UpdateInput struct {
	Title       query.Optional[string]    `json:"title"`
	Description query.Optional[string]    `json:"description"`
	Status      query.Optional[string]    `json:"status"`
	AssigneeID  query.Optional[int64]     `json:"assignee_id"`
	DueDate     query.Optional[time.Time] `json:"due_date"`
}

// Update applies the present fields to a task.
func (s *Service) Update(ctx context.Context, companyID, id int64, in UpdateInput) (*Task, error) {
	if in.Status.Present {
		if in.Status.Null || !ValidStatus(TaskStatus(in.Status.Value)) {
			return nil, fmt.Errorf("invalid status: %w", httpx.ErrValidation)
		}
	}
	if in.AssigneeID.Present && !in.AssigneeID.Null {
		if err := s.checkAssignee(ctx, companyID, &in.AssigneeID.Value); err != nil {
			return nil, err
		}
	}

	var set query.SetBuilder
	query.Apply(&set, "title", in.Title)
	query.Apply(&set, "description", in.Description)
	query.Apply(&set, "status", in.Status)
	query.Apply(&set, "assignee_id", in.AssigneeID)
	query.Apply(&set, "due_date", in.DueDate)

	task, err := s.store.Update(ctx, companyID, id, &set)
	if err != nil {
		return nil, fmt.Errorf("tasks: update: %w", err)
	}
	if task == nil {
		return nil, httpx.ErrNotFound
	}
	return task, nil
}

// UpdateStatus is the narrow mutation used by the mobile surface: workers
// may only move their own tasks.
func (s *Service) UpdateStatus(ctx context.Context, caller shared.Identity, id int64, status TaskStatus) (*Task, error) {
	if !ValidStatus(status) {
		return nil, fmt.Errorf("invalid status %q: %w", status, httpx.ErrValidation)
	}

	task, err := s.Get(ctx, caller.CompanyID, id)
	if err != nil {
		return nil, err
	}
	if caller.Role == shared.RoleWorker && (task.AssigneeID == nil || *task.AssigneeID != caller.UserID) {
		return nil, fmt.Errorf("task not assigned to caller: %w", httpx.ErrForbidden)
	}

	var set query.SetBuilder
	set.Set("status", status)
	updated, err := s.store.Update(ctx, caller.CompanyID, id, &set)
	if err != nil {
		return nil, fmt.Errorf("tasks: update status: %w", err)
	}
	if updated == nil {
		return nil, httpx.ErrNotFound
	}
	return updated, nil
}

// Delete soft-deletes a task.
func (s *Service) Delete(ctx context.Context, companyID, id int64) error {
	ok, err := s.store.SoftDelete(ctx, companyID, id)
	if err != nil {
		return fmt.Errorf("tasks: delete: %w", err)
	}
	if !ok {
		return httpx.ErrNotFound
	}
	return nil
}

// Restore revives a soft-deleted task.
func (s *Service) Restore(ctx context.Context, companyID, id int64) (*Task, error) {
	ok, err := s.store.Restore(ctx, companyID, id)
	if err != nil {
		return nil, fmt.Errorf("tasks: restore: %w", err)
	}
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return s.Get(ctx, companyID, id)
}

func (s *Service) checkAssignee(ctx context.Context, companyID int64, assigneeID *int64) error {
	if assigneeID == nil {
		return nil
	}
	ok, err := s.members.Exists(ctx, companyID, *assigneeID)
	if err != nil {
		return fmt.Errorf("tasks: check assignee: %w", err)
	}
	if !ok {
		return fmt.Errorf("assignee does not belong to company: %w", httpx.ErrValidation)
	}
	return nil
}
