package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sitewise-erp/sitewise-erp/internal/shared"
)

// ErrRefreshTokenInvalid covers unknown, expired, and already-consumed
// refresh tokens.
var ErrRefreshTokenInvalid = errors.New("auth: refresh token invalid")

// TokenStore keeps opaque refresh tokens in Redis with a TTL. Tokens rotate
// on use and disappear on logout, so a stolen refresh token stops working
// the moment its owner signs out.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenStore constructs a refresh token store.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

func refreshKey(token string) string {
	return "auth:refresh:" + token
}

// Issue mints a refresh token bound to the identity.
func (s *TokenStore) Issue(ctx context.Context, id shared.Identity) (string, error) {
	token := uuid.NewString()
	payload, err := json.Marshal(id)
	if err != nil {
		return "", fmt.Errorf("auth: marshal identity: %w", err)
	}
	if err := s.client.Set(ctx, refreshKey(token), payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("auth: store refresh token: %w", err)
	}
	return token, nil
}

// Consume atomically fetches and deletes the token, returning its identity.
// A second consume of the same token fails.
func (s *TokenStore) Consume(ctx context.Context, token string) (shared.Identity, error) {
	payload, err := s.client.GetDel(ctx, refreshKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shared.Identity{}, ErrRefreshTokenInvalid
		}
		return shared.Identity{}, fmt.Errorf("auth: consume refresh token: %w", err)
	}
	var id shared.Identity
	if err := json.Unmarshal(payload, &id); err != nil {
		return shared.Identity{}, fmt.Errorf("auth: unmarshal identity: %w", err)
	}
	return id, nil
}

// Revoke deletes the token. Revoking an unknown token is not an error.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	return s.client.Del(ctx, refreshKey(token)).Err()
}
