// internal/server/export.go
package server

import (
	"net/http"
	"time"

	"github.com/gorilla/feeds"
)

// handleExportRSS renders the user's bookmarked messages as an RSS
// document so they can be followed from any other reader.
func (s *Server) handleExportRSS(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	messages, err := s.db.GetBookmarkedUserMessages(r.Context(), session.UserID)
	if err != nil {
		s.respondFromError(w, err)
		return
	}

	feed := &feeds.Feed{
		Title:       "Newshound bookmarks",
		Link:        &feeds.Link{Href: "/api/export/rss"},
		Description: "Messages you bookmarked in Newshound",
		Created:     time.Now(),
	}

	for _, m := range messages {
		item := &feeds.Item{
			Title:   m.Title,
			Link:    &feeds.Link{Href: m.SourceLink},
			Author:  &feeds.Author{Name: m.Author},
			Created: m.DateCreated,
		}
		if m.Description != nil {
			item.Description = *m.Description
		}
		if m.Content != nil {
			item.Content = *m.Content
		}
		feed.Items = append(feed.Items, item)
	}

	rss, err := feed.ToRss()
	if err != nil {
		s.respondFromError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(rss)); err != nil {
		s.logger.Printf("Error writing RSS export: %v", err)
	}
}
