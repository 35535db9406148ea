// internal/server/util.go
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"newshound/internal/auth"
	"newshound/internal/database"
	"newshound/internal/ingest"
)

// errorBody is the JSON error envelope returned to clients.
type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Status  int    `json:"status"`
	} `json:"error"`
}

func (s *Server) respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("Error encoding response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, code int, message string) {
	var body errorBody
	body.Error.Message = message
	body.Error.Status = code
	s.respondJSON(w, code, body)
}

// respondFromError maps a domain error to an HTTP status. Internal
// detail is logged, not echoed to the client.
func (s *Server) respondFromError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrDuplicate),
		errors.Is(err, database.ErrInvalidInput),
		errors.Is(err, ingest.ErrConfig),
		errors.Is(err, ingest.ErrUpstream),
		errors.Is(err, ingest.ErrInvalidURL),
		errors.Is(err, ingest.ErrNotAFeed):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrSessionNotFound),
		errors.Is(err, auth.ErrSessionExpired):
		s.respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrDuplicateUsername):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Printf("Internal error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
