package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// AdminAuth middleware protects admin endpoints with API key authentication.
// Keys are compared with bcrypt; a plain configured key is hashed once at startup.
type AdminAuth struct {
	keyHash []byte
	enabled bool
}

// NewAdminAuth creates a new admin authentication middleware. keyHash takes
// precedence over apiKey when both are set.
func NewAdminAuth(apiKey, keyHash string, enabled bool) (*AdminAuth, error) {
	a := &AdminAuth{enabled: enabled}
	switch {
	case keyHash != "":
		a.keyHash = []byte(keyHash)
	case apiKey != "":
		hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		a.keyHash = hash
	case enabled:
		log.Warn().Msg("Admin authentication enabled but no API key configured - admin routes will be inaccessible")
	}
	return a, nil
}

// Enabled reports whether admin routes should be registered
func (a *AdminAuth) Enabled() bool {
	return a.enabled
}

// Protect wraps an HTTP handler with admin authentication
func (a *AdminAuth) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.enabled {
			writeAuthError(w, http.StatusNotFound, "ADMIN_DISABLED", "Admin API is disabled")
			return
		}

		if len(a.keyHash) == 0 {
			log.Warn().Str("path", r.URL.Path).Msg("Admin route accessed but no API key configured")
			writeAuthError(w, http.StatusServiceUnavailable, "ADMIN_NOT_CONFIGURED", "Admin authentication not configured")
			return
		}

		// Get API key from header, or Authorization: Bearer <key>
		providedKey := r.Header.Get("X-Admin-Key")
		if providedKey == "" {
			authHeader := r.Header.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			log.Warn().
				Str("path", r.URL.Path).
				Str("ip", ClientIP(r)).
				Msg("Admin route accessed without API key")
			writeAuthError(w, http.StatusUnauthorized, "ADMIN_KEY_REQUIRED",
				"Missing admin API key. Provide via X-Admin-Key header or Authorization: Bearer <key>")
			return
		}

		if err := bcrypt.CompareHashAndPassword(a.keyHash, []byte(providedKey)); err != nil {
			log.Warn().
				Str("path", r.URL.Path).
				Str("ip", ClientIP(r)).
				Msg("Admin route accessed with invalid API key")
			writeAuthError(w, http.StatusForbidden, "ADMIN_KEY_INVALID", "Invalid admin API key")
			return
		}

		log.Debug().
			Str("path", r.URL.Path).
			Str("ip", ClientIP(r)).
			Msg("Admin authenticated successfully")

		next.ServeHTTP(w, r)
	})
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": message,
		"code":  code,
	})
}
