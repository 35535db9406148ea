// internal/server/usermessage_handlers.go
package server

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	messageID, err := pathID(r, "messageID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid message ID")
		return
	}

	clicks, err := s.db.IncrementClicks(r.Context(), session.UserID, messageID)
	if err != nil {
		s.respondFromError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"clicks": clicks})
}

func (s *Server) handleReact(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	messageID, err := pathID(r, "messageID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid message ID")
		return
	}

	// A null react_id clears the reaction.
	var req struct {
		ReactID *int64 `json:"react_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.db.SetReaction(r.Context(), session.UserID, messageID, req.ReactID); err != nil {
		s.respondFromError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, nil)
}

func (s *Server) handleBookmarkMessage(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	messageID, err := pathID(r, "messageID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid message ID")
		return
	}

	var req struct {
		BookmarkID *int64 `json:"bookmark_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.db.SetBookmark(r.Context(), session.UserID, messageID, req.BookmarkID); err != nil {
		s.respondFromError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, nil)
}

func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	messageID, err := pathID(r, "messageID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid message ID")
		return
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.db.SetNotes(r.Context(), session.UserID, messageID, req.Notes); err != nil {
		s.respondFromError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, nil)
}

func (s *Server) handleSeen(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	messageID, err := pathID(r, "messageID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid message ID")
		return
	}

	var req struct {
		Seen bool `json:"seen"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.db.MarkSeen(r.Context(), session.UserID, messageID, req.Seen); err != nil {
		s.respondFromError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, nil)
}
