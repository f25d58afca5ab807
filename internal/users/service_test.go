package users

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sitewise-erp/sitewise-erp/internal/platform/httpx"
	"github.com/sitewise-erp/sitewise-erp/internal/platform/query"
	"github.com/sitewise-erp/sitewise-erp/internal/shared"
)

type memoryRecord struct {
	user    User
	deleted bool
}

type memoryStore struct {
	records map[int64]*memoryRecord
	nextID  int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[int64]*memoryRecord)}
}

func (m *memoryStore) Create(ctx context.Context, companyID int64, in CreateFields) (*User, error) {
	for _, rec := range m.records {
		if !rec.deleted && rec.user.Email == in.Email {
			return nil, &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
		}
	}
	m.nextID++
	user := User{
		ID: m.nextID, CompanyID: companyID,
		Email: in.Email, FirstName: in.FirstName, LastName: in.LastName,
		Phone: in.Phone, Role: in.Role, IsActive: true,
		PasswordHash: in.PasswordHash,
		CreatedAt:    time.Now(), UpdatedAt: time.Now(),
	}
	m.records[user.ID] = &memoryRecord{user: user}
	return &user, nil
}

func (m *memoryStore) FindByID(ctx context.Context, companyID, id int64) (*User, error) {
	rec, ok := m.records[id]
	if !ok || rec.deleted || rec.user.CompanyID != companyID {
		return nil, nil
	}
	user := rec.user
	return &user, nil
}

func (m *memoryStore) List(ctx context.Context, companyID int64, f ListFilters, page shared.PageRequest) ([]User, int, error) {
	var all []User
	for _, rec := range m.records {
		if rec.deleted || rec.user.CompanyID != companyID {
			continue
		}
		if f.Role != "" && rec.user.Role != f.Role {
			continue
		}
		if f.IsActive != nil && rec.user.IsActive != *f.IsActive {
			continue
		}
		all = append(all, rec.user)
	}
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

func (m *memoryStore) Update(ctx context.Context, companyID, id int64, set *query.SetBuilder) (*User, error) {
	if set.Empty() {
		return m.FindByID(ctx, companyID, id)
	}
	rec, ok := m.records[id]
	if !ok || rec.deleted || rec.user.CompanyID != companyID {
		return nil, nil
	}
	rec.user.UpdatedAt = time.Now()
	user := rec.user
	return &user, nil
}

func (m *memoryStore) SoftDelete(ctx context.Context, companyID, id int64) (bool, error) {
	rec, ok := m.records[id]
	if !ok || rec.deleted || rec.user.CompanyID != companyID {
		return false, nil
	}
	rec.deleted = true
	return true, nil
}

func (m *memoryStore) Restore(ctx context.Context, companyID, id int64) (bool, error) {
	rec, ok := m.records[id]
	if !ok || !rec.deleted || rec.user.CompanyID != companyID {
		return false, nil
	}
	rec.deleted = false
	return true, nil
}

func newTestService() (*Service, *memoryStore) {
	store := newMemoryStore()
	return NewService(store), store
}

func TestCreateIssuesTempPassword(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, CreateInput{
		Email: "worker@meridianbuild.test", FirstName: "Rosa", LastName: "Iglesias",
		Role: shared.RoleWorker,
	})
	require.NoError(t, err)
	require.Len(t, created.TempPassword, tempPasswordLength)

	// The stored hash verifies against the returned password and only against it.
	rec := store.records[created.User.ID]
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(rec.user.PasswordHash), []byte(created.TempPassword)))
	require.Error(t, bcrypt.CompareHashAndPassword([]byte(rec.user.PasswordHash), []byte("changeme123")))
}

func TestCreateRoleGuards(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	// Owners are created with the company, never through member invites.
	_, err := svc.Create(ctx, 1, CreateInput{Email: "a@b.test", Role: shared.RoleOwner})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Create(ctx, 1, CreateInput{Email: "a@b.test", Role: "superuser"})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateDuplicateEmailConflicts(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, CreateInput{Email: "dup@b.test", Role: shared.RoleWorker})
	require.NoError(t, err)

	_, err = svc.Create(ctx, 1, CreateInput{Email: "dup@b.test", Role: shared.RoleManager})
	require.ErrorIs(t, err, httpx.ErrConflict)
}

func TestUpdateCannotPromoteToOwner(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, CreateInput{Email: "w@b.test", Role: shared.RoleWorker})
	require.NoError(t, err)

	_, err = svc.Update(ctx, 1, created.User.ID, UpdateInput{
		Role: query.Optional[string]{Present: true, Value: shared.RoleOwner},
	})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Update(ctx, 1, created.User.ID, UpdateInput{
		Role: query.Optional[string]{Present: true, Null: true},
	})
	require.ErrorIs(t, err, httpx.ErrValidation)

	got, err := svc.Update(ctx, 1, created.User.ID, UpdateInput{
		Role: query.Optional[string]{Present: true, Value: shared.RoleManager},
	})
	require.NoError(t, err)
	require.Equal(t, created.User.ID, got.ID)
}

func TestTenantIsolation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, CreateInput{Email: "w@b.test", Role: shared.RoleWorker})
	require.NoError(t, err)

	_, err = svc.Get(ctx, 2, created.User.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)

	err = svc.Delete(ctx, 2, created.User.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestDeleteAndRestore(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, CreateInput{Email: "w@b.test", Role: shared.RoleWorker})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, 1, created.User.ID))
	_, err = svc.Get(ctx, 1, created.User.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)

	restored, err := svc.Restore(ctx, 1, created.User.ID)
	require.NoError(t, err)
	require.Equal(t, created.User.Email, restored.Email)
}
