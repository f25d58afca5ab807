package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sitewise-erp/sitewise-erp/internal/shared"
)

// Claims carries the caller identity inside the HS256 access token.
type Claims struct {
	UserID    int64  `json:"uid"`
	CompanyID int64  `json:"cid"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// IssueAccessToken signs a short-lived access token for the identity.
func IssueAccessToken(secret []byte, id shared.Identity, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		UserID:    id.UserID,
		CompanyID: id.CompanyID,
		Role:      id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseAccessToken verifies the signature and expiry and returns the
// embedded identity.
func ParseAccessToken(secret []byte, raw string) (shared.Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return shared.Identity{}, err
	}
	return shared.Identity{
		UserID:    claims.UserID,
		CompanyID: claims.CompanyID,
		Role:      claims.Role,
	}, nil
}
