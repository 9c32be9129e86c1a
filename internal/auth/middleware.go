package auth

import (
	"context"
	"net/http"
	"strings"
)

type claimsKey struct{}

// ClaimsFromContext returns the verified claims attached by Authenticate.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// ErrorFunc writes an authentication failure response.
type ErrorFunc func(w http.ResponseWriter, r *http.Request, status int, code string)

// Authenticate verifies the Authorization bearer token and attaches its
// claims to the request context.
func Authenticate(v *Verifier, onError ErrorFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				onError(w, r, http.StatusUnauthorized, "not_authorized")
				return
			}

			claims, err := v.Verify(token)
			if err != nil {
				onError(w, r, http.StatusUnauthorized, "not_authorized")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
