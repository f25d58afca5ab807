package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sitewise-erp/sitewise-erp/internal/platform/httpx"
	"github.com/sitewise-erp/sitewise-erp/internal/platform/query"
	"github.com/sitewise-erp/sitewise-erp/internal/shared"
)

type memoryTask struct {
	task      Task
	companyID int64
	deleted   bool
}

type memoryStore struct {
	records map[int64]*memoryTask
	// jobCompany maps job id to owning company, standing in for the join.
	jobCompany map[int64]int64
	nextID     int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		records:    make(map[int64]*memoryTask),
		jobCompany: map[int64]int64{10: 1, 20: 2},
	}
}

func (m *memoryStore) Create(ctx context.Context, in CreateFields) (*Task, error) {
	m.nextID++
	task := Task{
		ID: m.nextID, JobID: in.JobID, Title: in.Title, Description: in.Description,
		Status: in.Status, AssigneeID: in.AssigneeID, DueDate: in.DueDate,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	m.records[task.ID] = &memoryTask{task: task, companyID: m.jobCompany[in.JobID]}
	return &task, nil
}

func (m *memoryStore) FindByID(ctx context.Context, companyID, id int64) (*Task, error) {
	rec, ok := m.records[id]
	if !ok || rec.deleted || rec.companyID != companyID {
		return nil, nil
	}
	task := rec.task
	return &task, nil
}

func (m *memoryStore) List(ctx context.Context, companyID int64, f ListFilters, page shared.PageRequest) ([]Task, int, error) {
	var items []Task
	for _, rec := range m.records {
		if rec.deleted || rec.companyID != companyID {
			continue
		}
		items = append(items, rec.task)
	}
	return items, len(items), nil
}

func (m *memoryStore) Update(ctx context.Context, companyID, id int64, set *query.SetBuilder) (*Task, error) {
	if set.Empty() {
		return m.FindByID(ctx, companyID, id)
	}
	rec, ok := m.records[id]
	if !ok || rec.deleted || rec.companyID != companyID {
		return nil, nil
	}
	task := rec.task
	return &task, nil
}

func (m *memoryStore) SoftDelete(ctx context.Context, companyID, id int64) (bool, error) {
	rec, ok := m.records[id]
	if !ok || rec.deleted || rec.companyID != companyID {
		return false, nil
	}
	rec.deleted = true
	return true, nil
}

func (m *memoryStore) Restore(ctx context.Context, companyID, id int64) (bool, error) {
	rec, ok := m.records[id]
	if !ok || !rec.deleted || rec.companyID != companyID {
		return false, nil
	}
	rec.deleted = false
	return true, nil
}

func (m *memoryStore) CountOpenForAssignee(ctx context.Context, companyID, assigneeID int64) (int, error) {
	n := 0
	for _, rec := range m.records {
		if rec.deleted || rec.companyID != companyID || rec.task.Status == StatusDone {
			continue
		}
		if rec.task.AssigneeID != nil && *rec.task.AssigneeID == assigneeID {
			n++
		}
	}
	return n, nil
}

type jobDirectory struct{ store *memoryStore }

func (d jobDirectory) Exists(ctx context.Context, companyID, jobID int64) (bool, error) {
	return d.store.jobCompany[jobID] == companyID, nil
}

type allowAllMembers struct{}

func (allowAllMembers) Exists(ctx context.Context, companyID, userID int64) (bool, error) {
	return true, nil
}

func newTestService() (*Service, *memoryStore) {
	store := newMemoryStore()
	return NewService(store, jobDirectory{store}, allowAllMembers{}), store
}

func TestCreateRejectsForeignJob(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	// Job 20 belongs to company 2; company 1 may not hang tasks off it.
	_, err := svc.Create(ctx, 1, CreateInput{JobID: 20, Title: "Pour slab"})
	require.ErrorIs(t, err, httpx.ErrValidation)

	task, err := svc.Create(ctx, 1, CreateInput{JobID: 10, Title: "Pour slab"})
	require.NoError(t, err)
	require.Equal(t, StatusTodo, task.Status)
}

func TestJoinedTenantIsolation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	task, err := svc.Create(ctx, 1, CreateInput{JobID: 10, Title: "Pour slab"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, 2, task.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)

	_, err = svc.Update(ctx, 2, task.ID, UpdateInput{})
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestWorkerMayOnlyMoveOwnTask(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	assignee := int64(5)
	task, err := svc.Create(ctx, 1, CreateInput{JobID: 10, Title: "Pour slab", AssigneeID: &assignee})
	require.NoError(t, err)

	worker := shared.Identity{UserID: 5, CompanyID: 1, Role: shared.RoleWorker}
	_, err = svc.UpdateStatus(ctx, worker, task.ID, StatusInProgress)
	require.NoError(t, err)

	other := shared.Identity{UserID: 6, CompanyID: 1, Role: shared.RoleWorker}
	_, err = svc.UpdateStatus(ctx, other, task.ID, StatusDone)
	require.ErrorIs(t, err, httpx.ErrForbidden)

	// Managers move anyone's tasks.
	manager := shared.Identity{UserID: 7, CompanyID: 1, Role: shared.RoleManager}
	_, err = svc.UpdateStatus(ctx, manager, task.ID, StatusDone)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, manager, task.ID, "paused")
	require.ErrorIs(t, err, httpx.ErrValidation)
}
