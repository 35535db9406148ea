// internal/server/context.go
package server

import (
	"context"
	"net/http"
	"strings"

	"newshound/internal/auth"
)

type contextKey string

const sessionContextKey contextKey = "session"

// requireAuth validates the bearer session token and stores the
// session in the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.respondError(w, http.StatusUnauthorized, "missing session token")
			return
		}

		session, err := s.auth.ValidateSession(s.db.DB, token)
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, "invalid or expired session")
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := r.Cookie("session"); err == nil {
		return cookie.Value
	}
	return ""
}

// sessionFrom returns the authenticated session stored by requireAuth.
func sessionFrom(r *http.Request) *auth.Session {
	session, _ := r.Context().Value(sessionContextKey).(*auth.Session)
	return session
}
