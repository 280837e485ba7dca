package api

import (
	"net/http"
	"strings"

	"github.com/raceiq/raceiq-console-go/log"
	"github.com/raceiq/raceiq-console-go/pkg/utils"
)

// requireAdmin guards a mutating route with the configured bearer
// token. Without a configured token the route stays open (the server
// warns once at startup). Tokens appear in logs only hashed.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" {
			next(w, r)
			return
		}
		presented, ok := bearerToken(r)
		if !ok || !utils.TokenEquals(presented, s.adminToken) {
			s.l.Warn("rejected unauthorized request",
				log.String("path", r.URL.Path),
				log.String("token", utils.HashToken(presented)))
			s.writeError(w, http.StatusUnauthorized, "invalid or missing bearer token")
			return
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	return strings.TrimPrefix(auth, prefix), true
}
