// internal/server/handlers.go
package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		s.respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := s.auth.Register(s.db.DB, req.Username, req.Password, req.Email)
	if err != nil {
		s.respondFromError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := s.auth.Authenticate(s.db.DB, req.Username, req.Password)
	if err != nil {
		s.respondFromError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"token": session.ID, "user_id": session.UserID})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	if err := s.auth.InvalidateSession(s.db.DB, session.ID); err != nil {
		s.respondFromError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, nil)
}

// handleFetch runs the full ingestion pipeline for every call the user
// has registered and returns the resulting user messages.
func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	messages, err := s.ingest.RunAllCalls(r.Context(), session.UserID)
	if err != nil {
		s.respondFromError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	news, err := s.db.GetNews(r.Context(), session.UserID)
	if err != nil {
		s.respondFromError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, news)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	metrics, err := s.db.GetMetrics(r.Context(), session.UserID)
	if err != nil {
		s.respondFromError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, metrics)
}

// handleNewRSSCall creates a feed and registers an RSS call for it.
func (s *Server) handleNewRSSCall(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	var req struct {
		Name   string `json:"name"`
		URL    string `json:"url"`
		Folder int64  `json:"folder"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sourceID, err := s.db.GetSourceID(r.Context(), "rss")
	if err != nil {
		s.respondFromError(w, err)
		return
	}

	feed, err := s.db.CreateFeed(r.Context(), session.UserID, req.Folder, sourceID, req.Name)
	if err != nil {
		s.respondFromError(w, err)
		return
	}

	if _, err := s.ingest.RegisterRSSCall(r.Context(), req.URL, feed.ID); err != nil {
		// Roll the feed back so a bad URL leaves nothing behind.
		if derr := s.db.DeleteFeed(r.Context(), feed.ID); derr != nil {
			s.logger.Printf("Error removing feed %d after failed call registration: %v", feed.ID, derr)
		}
		s.respondFromError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]any{"feed": feed})
}

// handleNewRedditCall creates a feed and registers a reddit call for it.
func (s *Server) handleNewRedditCall(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	var req struct {
		Name      string            `json:"name"`
		Subreddit string            `json:"subreddit"`
		Sort      string            `json:"sort"`
		Folder    int64             `json:"folder"`
		Params    map[string]string `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sourceID, err := s.db.GetSourceID(r.Context(), "reddit")
	if err != nil {
		s.respondFromError(w, err)
		return
	}

	feed, err := s.db.CreateFeed(r.Context(), session.UserID, req.Folder, sourceID, req.Name)
	if err != nil {
		s.respondFromError(w, err)
		return
	}

	params := url.Values{}
	for k, v := range req.Params {
		params.Set(k, v)
	}

	if _, err := s.ingest.RegisterRedditCall(r.Context(), req.Subreddit, req.Sort, params, feed.ID); err != nil {
		if derr := s.db.DeleteFeed(r.Context(), feed.ID); derr != nil {
			s.logger.Printf("Error removing feed %d after failed call registration: %v", feed.ID, derr)
		}
		s.respondFromError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]any{"feed": feed})
}

func (s *Server) handleGetFolders(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	folders, err := s.db.GetFoldersByUser(r.Context(), session.UserID)
	if err != nil {
		s.respondFromError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"folders": folders})
}

func (s *Server) handleNewFolder(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	var req struct {
		FolderName string `json:"folderName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	folder, err := s.db.CreateFolder(r.Context(), session.UserID, req.FolderName)
	if err != nil {
		s.respondFromError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]any{"folder": folder})
}

func (s *Server) handlePatchFolder(w http.ResponseWriter, r *http.Request) {
	folderID, err := pathID(r, "folderID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid folder ID")
		return
	}

	var req struct {
		FolderName string `json:"folderName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	folder, err := s.db.RenameFolder(r.Context(), folderID, req.FolderName)
	if err != nil {
		s.respondFromError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"folder": folder})
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	folderID, err := pathID(r, "folderID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid folder ID")
		return
	}

	if err := s.db.DeleteFolder(r.Context(), folderID); err != nil {
		s.respondFromError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, nil)
}

func (s *Server) handleDeleteFeed(w http.ResponseWriter, r *http.Request) {
	feedID, err := pathID(r, "feedID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid feed ID")
		return
	}

	if err := s.db.DeleteFeed(r.Context(), feedID); err != nil {
		s.respondFromError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, nil)
}

func (s *Server) handleNewBookmark(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bookmark, err := s.db.CreateBookmark(r.Context(), session.UserID, req.Name)
	if err != nil {
		s.respondFromError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]any{"bookmark": bookmark})
}

func (s *Server) handleGetBookmarks(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	bookmarks, err := s.db.GetBookmarksByUser(r.Context(), session.UserID)
	if err != nil {
		s.respondFromError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"bookmarks": bookmarks})
}

func (s *Server) handleDeleteBookmark(w http.ResponseWriter, r *http.Request) {
	bookmarkID, err := pathID(r, "bookmarkID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid bookmark ID")
		return
	}

	if err := s.db.DeleteBookmark(r.Context(), bookmarkID); err != nil {
		s.respondFromError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, nil)
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
