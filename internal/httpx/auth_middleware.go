package httpx

import (
	"context"
	"net/http"
	"strings"
)

// SessionCookie carries the session token for browser clients.
const SessionCookie = "session"

// TokenVerifier checks a session token and returns the username it was
// issued to.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

// TokenFrom returns the bearer token, falling back to the session cookie.
func TokenFrom(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// AuthMiddleware rejects requests without a valid session token and stores
// the username in the request context.
func AuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFrom(r)
			if token == "" {
				JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Login required", nil)
				return
			}
			username, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired session", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), username)))
		})
	}
}
