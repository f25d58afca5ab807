package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/sitewise-erp/sitewise-erp/internal/shared"
)

func newTestStore(t *testing.T) *TokenStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewTokenStore(client, time.Hour)
}

func TestTokenStoreConsumeRotates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := shared.Identity{UserID: 9, CompanyID: 3, Role: shared.RoleAdmin}

	token, err := store.Issue(ctx, id)
	require.NoError(t, err)

	got, err := store.Consume(ctx, token)
	require.NoError(t, err)
	require.Equal(t, id, got)

	// Second consume must fail: the token was deleted on first use.
	_, err = store.Consume(ctx, token)
	require.ErrorIs(t, err, ErrRefreshTokenInvalid)
}

func TestTokenStoreRevoke(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, shared.Identity{UserID: 1, CompanyID: 1, Role: shared.RoleWorker})
	require.NoError(t, err)

	require.NoError(t, store.Revoke(ctx, token))
	_, err = store.Consume(ctx, token)
	require.ErrorIs(t, err, ErrRefreshTokenInvalid)

	// Revoking an unknown token is not an error.
	require.NoError(t, store.Revoke(ctx, "missing"))
}
