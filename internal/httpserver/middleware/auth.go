package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/davidbz/chatrelay/internal/observability"
)

// Auth requires "Authorization: Bearer <secret>". An empty secret disables
// the check.
func Auth(secret string) Middleware {
	if strings.TrimSpace(secret) == "" {
		return passthrough
	}

	expected := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
			if subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
				observability.FromContext(r.Context()).Warn("unauthorized request",
					observability.String("path", r.URL.Path),
				)
				reject(w, http.StatusUnauthorized, "Unauthorized", "Error: No access rights")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
