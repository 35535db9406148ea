// internal/server/server.go
package server

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"newshound/internal/auth"
	"newshound/internal/database"
	"newshound/internal/ingest"
)

type Server struct {
	db     *database.DB
	logger *log.Logger
	auth   *auth.Service
	ingest *ingest.Service
	router chi.Router
}

func NewServer(db *database.DB, logger *log.Logger, ingestSvc *ingest.Service) *Server {
	s := &Server{
		db:     db,
		logger: logger,
		auth:   auth.NewService(),
		ingest: ingestSvc,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post("/api/users/register", s.handleRegister)
	r.Post("/api/users/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Post("/api/users/logout", s.handleLogout)

		r.Get("/api/fetch", s.handleFetch)
		r.Get("/api/news", s.handleNews)
		r.Get("/api/metrics", s.handleMetrics)
		r.Get("/api/export/rss", s.handleExportRSS)

		r.Post("/api/calls/new/rss", s.handleNewRSSCall)
		r.Post("/api/calls/new/reddit", s.handleNewRedditCall)

		r.Get("/api/folders", s.handleGetFolders)
		r.Post("/api/folders/new", s.handleNewFolder)
		r.Patch("/api/folders/{folderID}", s.handlePatchFolder)
		r.Delete("/api/folders/{folderID}", s.handleDeleteFolder)

		r.Delete("/api/feeds/{feedID}", s.handleDeleteFeed)

		r.Post("/api/bookmarks/new", s.handleNewBookmark)
		r.Get("/api/bookmarks", s.handleGetBookmarks)
		r.Delete("/api/bookmarks/{bookmarkID}", s.handleDeleteBookmark)

		r.Post("/api/messages/{messageID}/click", s.handleClick)
		r.Post("/api/messages/{messageID}/react", s.handleReact)
		r.Post("/api/messages/{messageID}/bookmark", s.handleBookmarkMessage)
		r.Post("/api/messages/{messageID}/notes", s.handleNotes)
		r.Post("/api/messages/{messageID}/seen", s.handleSeen)
	})

	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return srv.ListenAndServe()
}
