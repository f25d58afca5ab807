package auth

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sitewise-erp/sitewise-erp/internal/platform/httpx"
)

type fakeRepo struct {
	accounts map[string]*Account
	dupEmail bool
}

func (r *fakeRepo) FindAccountByEmail(ctx context.Context, email string) (*Account, error) {
	return r.accounts[email], nil
}

func (r *fakeRepo) CreateCompanyWithOwner(ctx context.Context, company CompanyInput, owner OwnerInput) (*Account, error) {
	if r.dupEmail {
		return nil, &pgconn.PgError{Code: "23505"}
	}
	return &Account{
		ID:           1,
		CompanyID:    1,
		Email:        owner.Email,
		PasswordHash: owner.PasswordHash,
		FirstName:    owner.FirstName,
		LastName:     owner.LastName,
		Role:         "owner",
		IsActive:     true,
	}, nil
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	return NewService(repo, newTestStore(t), testSecret, 15*time.Minute)
}

func TestLoginSuccess(t *testing.T) {
	repo := &fakeRepo{accounts: map[string]*Account{
		"pm@acme.test": {
			ID: 4, CompanyID: 2, Email: "pm@acme.test",
			PasswordHash: hashFor(t, "hunter2hunter2"),
			Role:         "manager", IsActive: true,
		},
	}}
	svc := newTestService(t, repo)

	session, err := svc.Login(context.Background(), "pm@acme.test", "hunter2hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, session.AccessToken)
	require.NotEmpty(t, session.RefreshToken)
	require.Equal(t, int64(2), session.CompanyID)

	id, err := ParseAccessToken(testSecret, session.AccessToken)
	require.NoError(t, err)
	require.Equal(t, int64(4), id.UserID)
	require.Equal(t, "manager", id.Role)
}

func TestLoginRejectsWrongPasswordAndInactive(t *testing.T) {
	repo := &fakeRepo{accounts: map[string]*Account{
		"pm@acme.test": {
			Email: "pm@acme.test", PasswordHash: hashFor(t, "correct-horse"),
			IsActive: true,
		},
		"gone@acme.test": {
			Email: "gone@acme.test", PasswordHash: hashFor(t, "correct-horse"),
			IsActive: false,
		},
	}}
	svc := newTestService(t, repo)

	_, err := svc.Login(context.Background(), "pm@acme.test", "wrong")
	require.ErrorIs(t, err, httpx.ErrUnauthorized)

	_, err = svc.Login(context.Background(), "gone@acme.test", "correct-horse")
	require.ErrorIs(t, err, httpx.ErrUnauthorized)

	_, err = svc.Login(context.Background(), "nobody@acme.test", "whatever")
	require.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(t, &fakeRepo{dupEmail: true})

	_, err := svc.Register(context.Background(), RegisterInput{
		CompanyName: "Acme Build", OwnerEmail: "dup@acme.test", OwnerPassword: "longenough1A",
	})
	require.ErrorIs(t, err, httpx.ErrConflict)
}

func TestRefreshRotation(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(t, repo)

	session, err := svc.Register(context.Background(), RegisterInput{
		CompanyName: "Acme Build", OwnerEmail: "own@acme.test", OwnerPassword: "longenough1A",
	})
	require.NoError(t, err)

	pair, err := svc.Refresh(context.Background(), session.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)

	// The old refresh token was consumed by the rotation.
	_, err = svc.Refresh(context.Background(), session.RefreshToken)
	require.ErrorIs(t, err, httpx.ErrUnauthorized)
}
