// Package server provides the HTTP API for Lector.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/libroglot/lector/internal/annotations"
	"github.com/libroglot/lector/internal/config"
	"github.com/libroglot/lector/internal/library"
	"github.com/libroglot/lector/internal/persist"
	"github.com/libroglot/lector/internal/prefs"
	"github.com/libroglot/lector/internal/progress"
	"github.com/libroglot/lector/internal/search"
	"github.com/libroglot/lector/internal/translate"
)

// Server is the HTTP server for the Lector API.
type Server struct {
	library     *library.Library
	engine      *search.Engine
	annotations *annotations.Store
	prefs       *prefs.Manager
	translator  translate.Translator
	store       persist.Store
	config      *config.Config
	logger      *zap.Logger
	server      *http.Server

	mu       sync.Mutex
	trackers map[string]*progress.Tracker
}

// NewServer creates a server with the given dependencies.
func NewServer(
	lib *library.Library,
	engine *search.Engine,
	ann *annotations.Store,
	pm *prefs.Manager,
	translator translate.Translator,
	store persist.Store,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		library:     lib,
		engine:      engine,
		annotations: ann,
		prefs:       pm,
		translator:  translator,
		store:       store,
		config:      cfg,
		logger:      logger,
		trackers:    make(map[string]*progress.Tracker),
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/status", s.handleStatus)

	r.Get("/api/v1/books", s.handleListBooks)
	r.Get("/api/v1/books/{id}", s.handleGetBook)
	r.Post("/api/v1/books/{id}/search", s.handleSearch)
	r.Get("/api/v1/searches/recent", s.handleRecentSearches)

	r.Get("/api/v1/books/{id}/annotations", s.handleListAnnotations)
	r.Get("/api/v1/books/{id}/notes", s.handleListNotes)
	r.Post("/api/v1/books/{id}/notes", s.handleAddNote)
	r.Put("/api/v1/books/{id}/notes/{noteID}", s.handleEditNote)
	r.Delete("/api/v1/books/{id}/notes/{noteID}", s.handleRemoveNote)
	r.Get("/api/v1/books/{id}/bookmarks", s.handleListBookmarks)
	r.Post("/api/v1/books/{id}/bookmarks", s.handleAddBookmark)
	r.Put("/api/v1/books/{id}/bookmarks/{bookmarkID}", s.handleUpdateBookmark)
	r.Delete("/api/v1/books/{id}/bookmarks/{bookmarkID}", s.handleRemoveBookmark)
	r.Delete("/api/v1/books/{id}/bookmarks/page/{page}", s.handleRemoveBookmarkByPage)
	r.Get("/api/v1/books/{id}/bookmarks/stats", s.handleBookmarkStats)
	r.Get("/api/v1/books/{id}/annotations/export", s.handleExportAnnotations)
	r.Post("/api/v1/books/{id}/annotations/import", s.handleImportAnnotations)

	r.Get("/api/v1/books/{id}/progress", s.handleGetProgress)
	r.Put("/api/v1/books/{id}/progress", s.handlePutProgress)
	r.Post("/api/v1/books/{id}/progress/navigate", s.handleNavigate)

	r.Get("/api/v1/preferences", s.handleGetPreferences)
	r.Put("/api/v1/preferences", s.handleUpdatePreferences)
	r.Post("/api/v1/preferences/reset", s.handleResetPreferences)

	r.Post("/api/v1/translate", s.handleTranslate)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// tracker returns the reading-progress tracker for a book, creating it on
// first use so a restored position is loaded lazily.
func (s *Server) tracker(ctx context.Context, bookID string, totalPages int) *progress.Tracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.trackers[bookID]; ok {
		return t
	}
	t := progress.NewTracker(ctx, bookID, totalPages, s.store, s.prefs.ReadingSpeed, s.logger)
	s.trackers[bookID] = t
	return t
}
