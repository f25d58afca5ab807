package auth

import (
	"net/http"
	"strings"

	"github.com/sitewise-erp/sitewise-erp/internal/platform/httpx"
	"github.com/sitewise-erp/sitewise-erp/internal/shared"
)

// Middleware resolves the bearer token and attaches the caller identity to
// the request context. Missing, malformed, and expired tokens all answer 401.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				httpx.Fail(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			id, err := ParseAccessToken(secret, raw)
			if err != nil {
				httpx.Fail(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole allows only callers holding one of the listed roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				httpx.Fail(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			if _, ok := allowed[id.Role]; !ok {
				httpx.Fail(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
