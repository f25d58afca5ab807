package sites

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sitewise-erp/sitewise-erp/internal/platform/httpx"
	"github.com/sitewise-erp/sitewise-erp/internal/platform/query"
	"github.com/sitewise-erp/sitewise-erp/internal/shared"
)

type memoryRecord struct {
	site    Site
	deleted bool
}

type memoryStore struct {
	records map[int64]*memoryRecord
	nextID  int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[int64]*memoryRecord)}
}

func (m *memoryStore) Create(ctx context.Context, companyID int64, in CreateFields) (*Site, error) {
	m.nextID++
	site := Site{
		ID: m.nextID, CompanyID: companyID, Name: in.Name, Address: in.Address,
		Status: in.Status, ManagerID: in.ManagerID,
		StartDate: in.StartDate, EndDate: in.EndDate,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	m.records[site.ID] = &memoryRecord{site: site}
	return &site, nil
}

func (m *memoryStore) FindByID(ctx context.Context, companyID, id int64) (*Site, error) {
	rec, ok := m.records[id]
	if !ok || rec.deleted || rec.site.CompanyID != companyID {
		return nil, nil
	}
	site := rec.site
	return &site, nil
}

func (m *memoryStore) List(ctx context.Context, companyID int64, f ListFilters, page shared.PageRequest) ([]Site, int, error) {
	var all []Site
	for _, rec := range m.records {
		if rec.deleted || rec.site.CompanyID != companyID {
			continue
		}
		if f.Status != "" && rec.site.Status != f.Status {
			continue
		}
		all = append(all, rec.site)
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

func (m *memoryStore) Update(ctx context.Context, companyID, id int64, set *query.SetBuilder) (*Site, error) {
	if set.Empty() {
		return m.FindByID(ctx, companyID, id)
	}
	rec, ok := m.records[id]
	if !ok || rec.deleted || rec.site.CompanyID != companyID {
		return nil, nil
	}
	// Field application is exercised against the real SQL in the crud
	// package tests; here only the predicate semantics matter.
	rec.site.UpdatedAt = time.Now()
	site := rec.site
	return &site, nil
}

func (m *memoryStore) SoftDelete(ctx context.Context, companyID, id int64) (bool, error) {
	rec, ok := m.records[id]
	if !ok || rec.deleted || rec.site.CompanyID != companyID {
		return false, nil
	}
	rec.deleted = true
	return true, nil
}

func (m *memoryStore) Restore(ctx context.Context, companyID, id int64) (bool, error) {
	rec, ok := m.records[id]
	if !ok || !rec.deleted || rec.site.CompanyID != companyID {
		return false, nil
	}
	rec.deleted = false
	return true, nil
}

func (m *memoryStore) CountActive(ctx context.Context, companyID int64) (int, error) {
	n := 0
	for _, rec := range m.records {
		if !rec.deleted && rec.site.CompanyID == companyID && rec.site.Status == StatusActive {
			n++
		}
	}
	return n, nil
}

type allowAllMembers struct{}

func (allowAllMembers) Exists(ctx context.Context, companyID, userID int64) (bool, error) {
	// Member 99 belongs to no company, everyone else to all of them.
	return userID != 99, nil
}

func newTestService() (*Service, *memoryStore) {
	store := newMemoryStore()
	return NewService(store, allowAllMembers{}), store
}

func TestTenantIsolation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	site, err := svc.Create(ctx, 1, CreateInput{Name: "North Yard", StartDate: time.Now()})
	require.NoError(t, err)

	// Tenant B sees NotFound, not Forbidden, for tenant A's site.
	_, err = svc.Get(ctx, 2, site.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)

	err = svc.Delete(ctx, 2, site.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)

	// And the owner still sees it.
	got, err := svc.Get(ctx, 1, site.ID)
	require.NoError(t, err)
	require.Equal(t, "North Yard", got.Name)
}

func TestSoftDeleteExcludesFromReads(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	site, err := svc.Create(ctx, 1, CreateInput{Name: "Dock", StartDate: time.Now()})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, 1, site.ID))

	_, err = svc.Get(ctx, 1, site.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)

	items, total, err := svc.List(ctx, 1, ListFilters{}, shared.NewPageRequest(1, 10))
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, items)

	// Deleting again reports NotFound as well.
	require.ErrorIs(t, svc.Delete(ctx, 1, site.ID), httpx.ErrNotFound)
}

func TestRestoreOnlyTouchesDeletedRows(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	site, err := svc.Create(ctx, 1, CreateInput{Name: "Dock", StartDate: time.Now()})
	require.NoError(t, err)

	// Restoring a live row is a no-op reported as NotFound.
	_, err = svc.Restore(ctx, 1, site.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, 1, site.ID))
	restored, err := svc.Restore(ctx, 1, site.ID)
	require.NoError(t, err)
	require.Equal(t, site.ID, restored.ID)
}

func TestPaginationTotals(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := svc.Create(ctx, 1, CreateInput{Name: "Site", StartDate: time.Now()})
		require.NoError(t, err)
	}

	items, total, err := svc.List(ctx, 1, ListFilters{}, shared.NewPageRequest(2, 5))
	require.NoError(t, err)
	require.Equal(t, 10, total)
	require.Len(t, items, 5)

	// Page past the end: empty items, true total, no error.
	items, total, err = svc.List(ctx, 1, ListFilters{}, shared.NewPageRequest(4, 5))
	require.NoError(t, err)
	require.Equal(t, 10, total)
	require.Empty(t, items)

	// Sum over all pages equals total.
	seen := 0
	for p := 1; ; p++ {
		pageItems, _, err := svc.List(ctx, 1, ListFilters{}, shared.NewPageRequest(p, 3))
		require.NoError(t, err)
		if len(pageItems) == 0 {
			break
		}
		seen += len(pageItems)
	}
	require.Equal(t, total, seen)
}

func TestNoOpUpdateReturnsCurrentRow(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	site, err := svc.Create(ctx, 1, CreateInput{Name: "Dock", StartDate: time.Now()})
	require.NoError(t, err)

	got, err := svc.Update(ctx, 1, site.ID, UpdateInput{})
	require.NoError(t, err)
	require.Equal(t, site.ID, got.ID)
	require.Equal(t, "Dock", got.Name)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	start := time.Now()
	end := start.Add(-24 * time.Hour)
	_, err := svc.Create(ctx, 1, CreateInput{Name: "Dock", StartDate: start, EndDate: &end})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Create(ctx, 1, CreateInput{Name: "Dock", StartDate: start, Status: "paused"})
	require.ErrorIs(t, err, httpx.ErrValidation)

	stranger := int64(99)
	_, err = svc.Create(ctx, 1, CreateInput{Name: "Dock", StartDate: start, ManagerID: &stranger})
	require.ErrorIs(t, err, httpx.ErrValidation)
}
