package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"paycontrol/utils"
)

// HostAuthMiddleware requires the host token on host lifecycle endpoints,
// as "Authorization: Bearer <token>" or "X-Host-Token". An empty token
// disables the check.
func HostAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-Host-Token")
			if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
				got = bearer
			}

			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				utils.Warn("auth", "Rejected host request", "path", r.URL.Path, "remote", r.RemoteAddr)
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "host token required", Kind: "unauthorized"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
