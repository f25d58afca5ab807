package jobs

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sitewise-erp/sitewise-erp/internal/platform/httpx"
	"github.com/sitewise-erp/sitewise-erp/internal/platform/query"
	"github.com/sitewise-erp/sitewise-erp/internal/shared"
)

type memoryRecord struct {
	job     Job
	deleted bool
}

type memoryStore struct {
	records map[int64]*memoryRecord
	nextID  int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[int64]*memoryRecord)}
}

func (m *memoryStore) Create(ctx context.Context, companyID int64, in CreateFields) (*Job, error) {
	m.nextID++
	job := Job{
		ID: m.nextID, CompanyID: companyID, SiteID: in.SiteID,
		Title: in.Title, Description: in.Description, Status: in.Status,
		StartDate: in.StartDate, EndDate: in.EndDate,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	m.records[job.ID] = &memoryRecord{job: job}
	return &job, nil
}

func (m *memoryStore) FindByID(ctx context.Context, companyID, id int64) (*Job, error) {
	rec, ok := m.records[id]
	if !ok || rec.deleted || rec.job.CompanyID != companyID {
		return nil, nil
	}
	job := rec.job
	return &job, nil
}

func (m *memoryStore) List(ctx context.Context, companyID int64, f ListFilters, page shared.PageRequest) ([]Job, int, error) {
	var all []Job
	for _, rec := range m.records {
		if rec.deleted || rec.job.CompanyID != companyID {
			continue
		}
		if f.Status != "" && rec.job.Status != f.Status {
			continue
		}
		if f.SiteID != 0 && rec.job.SiteID != f.SiteID {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(rec.job.Title), strings.ToLower(f.Search)) {
			continue
		}
		all = append(all, rec.job)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	total := len(all)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (m *memoryStore) Update(ctx context.Context, companyID, id int64, set *query.SetBuilder) (*Job, error) {
	if set.Empty() {
		return m.FindByID(ctx, companyID, id)
	}
	rec, ok := m.records[id]
	if !ok || rec.deleted || rec.job.CompanyID != companyID {
		return nil, nil
	}
	// Field application is exercised against the real SQL in the crud
	// package tests; here only the predicate semantics matter.
	rec.job.UpdatedAt = time.Now()
	job := rec.job
	return &job, nil
}

func (m *memoryStore) SoftDelete(ctx context.Context, companyID, id int64) (bool, error) {
	rec, ok := m.records[id]
	if !ok || rec.deleted || rec.job.CompanyID != companyID {
		return false, nil
	}
	rec.deleted = true
	return true, nil
}

func (m *memoryStore) Restore(ctx context.Context, companyID, id int64) (bool, error) {
	rec, ok := m.records[id]
	if !ok || !rec.deleted || rec.job.CompanyID != companyID {
		return false, nil
	}
	rec.deleted = false
	return true, nil
}

type allowAllSites struct{}

func (allowAllSites) Exists(ctx context.Context, companyID, siteID int64) (bool, error) {
	// Site 99 belongs to no company, everything else to all of them.
	return siteID != 99, nil
}

func newTestService() (*Service, *memoryStore) {
	store := newMemoryStore()
	return NewService(store, allowAllSites{}), store
}

func TestCreateDefaultsAndValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	job, err := svc.Create(ctx, 1, CreateInput{SiteID: 5, Title: "Pour slab"})
	require.NoError(t, err)
	require.Equal(t, StatusPlanned, job.Status)

	_, err = svc.Create(ctx, 1, CreateInput{SiteID: 5, Title: "Pour slab", Status: "paused"})
	require.ErrorIs(t, err, httpx.ErrValidation)

	start := time.Now()
	end := start.Add(-48 * time.Hour)
	_, err = svc.Create(ctx, 1, CreateInput{SiteID: 5, Title: "Pour slab", StartDate: &start, EndDate: &end})
	require.ErrorIs(t, err, httpx.ErrValidation)

	// Site outside the tenant is rejected up front.
	_, err = svc.Create(ctx, 1, CreateInput{SiteID: 99, Title: "Pour slab"})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestTenantIsolation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	job, err := svc.Create(ctx, 1, CreateInput{SiteID: 5, Title: "Framing"})
	require.NoError(t, err)

	// Tenant B sees NotFound, not Forbidden, for tenant A's job.
	_, err = svc.Get(ctx, 2, job.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)

	_, err = svc.Update(ctx, 2, job.ID, UpdateInput{Title: query.Optional[string]{Present: true, Value: "Demo"}})
	require.ErrorIs(t, err, httpx.ErrNotFound)

	err = svc.Delete(ctx, 2, job.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestSoftDeleteAndRestore(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	job, err := svc.Create(ctx, 1, CreateInput{SiteID: 5, Title: "Framing"})
	require.NoError(t, err)

	// Restoring a live row is a no-op reported as NotFound.
	_, err = svc.Restore(ctx, 1, job.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, 1, job.ID))
	_, err = svc.Get(ctx, 1, job.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)

	restored, err := svc.Restore(ctx, 1, job.ID)
	require.NoError(t, err)
	require.Equal(t, job.ID, restored.ID)
}

func TestListFilters(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, CreateInput{SiteID: 5, Title: "Pour slab", Status: StatusInProgress})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, CreateInput{SiteID: 6, Title: "Framing"})
	require.NoError(t, err)

	items, total, err := svc.List(ctx, 1, ListFilters{Status: StatusInProgress}, shared.NewPageRequest(1, 10))
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "Pour slab", items[0].Title)

	items, total, err = svc.List(ctx, 1, ListFilters{SiteID: 6}, shared.NewPageRequest(1, 10))
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "Framing", items[0].Title)

	_, _, err = svc.List(ctx, 1, ListFilters{Status: "paused"}, shared.NewPageRequest(1, 10))
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestUpdateStatusValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	job, err := svc.Create(ctx, 1, CreateInput{SiteID: 5, Title: "Framing"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, 1, job.ID, UpdateInput{Status: query.Optional[string]{Present: true, Value: "paused"}})
	require.ErrorIs(t, err, httpx.ErrValidation)

	got, err := svc.Update(ctx, 1, job.ID, UpdateInput{Status: query.Optional[string]{Present: true, Value: string(StatusDone)}})
	require.NoError(t, err)
	require.Equal(t, job.ID, got.ID)
}
