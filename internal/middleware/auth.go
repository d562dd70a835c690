package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/homeservices/mediasync/internal/models"
	"github.com/homeservices/mediasync/internal/observability"
)

const bearerPrefix = "Bearer "

// ServiceRoleAuth creates middleware that requires Authorization: Bearer <key>.
// An empty key rejects every request.
func ServiceRoleAuth(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, "Authorization header is required.")
				return
			}

			if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
				unauthorized(w, "Bearer token is required.")
				return
			}
			provided := strings.TrimSpace(header[len(bearerPrefix):])

			if key == "" || !constantTimeEquals(key, provided) {
				observability.WithContext(r.Context()).Warnf("Rejected service-role request to %s from %s", r.URL.Path, r.RemoteAddr)
				unauthorized(w, "Invalid service role key.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: message})
}

// constantTimeEquals performs a constant-time string comparison
func constantTimeEquals(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
