package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/libroglot/lector/internal/apperr"
	"github.com/libroglot/lector/internal/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"books": s.library.Len(),
		"config": map[string]interface{}{
			"library_path":   s.config.Library.Path,
			"database_path":  s.config.Storage.DatabasePath,
			"context_radius": s.config.Search.ContextRadius,
			"words_per_page": s.config.Reading.WordsPerPage,
		},
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"books": s.library.List()})
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	book, ok := s.library.Get(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "book not found")
		return
	}
	s.respondJSON(w, http.StatusOK, book)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	book, ok := s.library.Get(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "book not found")
		return
	}
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("book", book.ID), zap.String("query", req.Query))
	results, err := s.engine.Search(r.Context(), book.Content, req.Query, req.Options)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.SearchResponse{
		Results: results,
		Total:   len(results),
		Query:   req.Query,
	})
}

func (s *Server) handleRecentSearches(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"searches": s.engine.Recent(r.Context())})
}

func (s *Server) handleListAnnotations(w http.ResponseWriter, r *http.Request) {
	notes, bookmarks := s.annotations.ListByBook(r.Context(), chi.URLParam(r, "id"))
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"notes":     notes,
		"bookmarks": bookmarks,
	})
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	notes, _ := s.annotations.ListByBook(r.Context(), chi.URLParam(r, "id"))
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"notes": notes})
}

func (s *Server) handleListBookmarks(w http.ResponseWriter, r *http.Request) {
	_, bookmarks := s.annotations.ListByBook(r.Context(), chi.URLParam(r, "id"))
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"bookmarks": bookmarks})
}

type noteRequest struct {
	Page    int    `json:"page"`
	Content string `json:"content"`
}

func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	note, err := s.annotations.AddNote(r.Context(), chi.URLParam(r, "id"), req.Page, req.Content)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, note)
}

func (s *Server) handleEditNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	note, err := s.annotations.EditNote(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "noteID"), req.Content)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, note)
}

func (s *Server) handleRemoveNote(w http.ResponseWriter, r *http.Request) {
	if err := s.annotations.RemoveNote(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "noteID")); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type bookmarkRequest struct {
	Page         int    `json:"page"`
	Title        string `json:"title"`
	Note         string `json:"note"`
	SelectedText string `json:"selectedText"`
}

func (s *Server) handleAddBookmark(w http.ResponseWriter, r *http.Request) {
	var req bookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	bm, err := s.annotations.AddBookmark(r.Context(), chi.URLParam(r, "id"), req.Page, req.Title, req.Note, req.SelectedText)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, bm)
}

func (s *Server) handleUpdateBookmark(w http.ResponseWriter, r *http.Request) {
	var updates models.BookmarkUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	bm, err := s.annotations.UpdateBookmark(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "bookmarkID"), updates)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, bm)
}

func (s *Server) handleRemoveBookmark(w http.ResponseWriter, r *http.Request) {
	if err := s.annotations.RemoveBookmark(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "bookmarkID")); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleRemoveBookmarkByPage(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid page")
		return
	}
	if err := s.annotations.RemoveBookmarkByPage(r.Context(), chi.URLParam(r, "id"), page); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleBookmarkStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.annotations.Stats(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) handleExportAnnotations(w http.ResponseWriter, r *http.Request) {
	data, err := s.annotations.Export(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImportAnnotations(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	count, err := s.annotations.Import(r.Context(), chi.URLParam(r, "id"), data)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"imported": count})
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	book, ok := s.library.Get(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "book not found")
		return
	}
	t := s.tracker(r.Context(), book.ID, book.TotalPages)
	s.respondJSON(w, http.StatusOK, t.Progress())
}

// handlePutProgress sets the current page directly, e.g. when a client
// restores its own position.
func (s *Server) handlePutProgress(w http.ResponseWriter, r *http.Request) {
	book, ok := s.library.Get(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "book not found")
		return
	}
	var req struct {
		CurrentPage int `json:"currentPage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t := s.tracker(r.Context(), book.ID, book.TotalPages)
	t.Navigate(r.Context(), models.NavJump, req.CurrentPage)
	s.respondJSON(w, http.StatusOK, t.Progress())
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	book, ok := s.library.Get(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "book not found")
		return
	}
	var req models.NavigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	switch req.Direction {
	case models.NavPrev, models.NavNext, models.NavJump:
	default:
		s.respondError(w, http.StatusBadRequest, "invalid direction")
		return
	}
	t := s.tracker(r.Context(), book.ID, book.TotalPages)
	t.Navigate(r.Context(), req.Direction, req.Target)
	s.respondJSON(w, http.StatusOK, t.Progress())
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.prefs.Get())
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var partial map[string]any
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.prefs.UpdateMany(r.Context(), partial); err != nil {
		if errors.Is(err, apperr.ErrPersistence) {
			s.respondDomainError(w, err)
			return
		}
		// Type mismatches and other merge failures are the caller's fault.
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, s.prefs.Get())
}

func (s *Server) handleResetPreferences(w http.ResponseWriter, r *http.Request) {
	if err := s.prefs.Reset(r.Context()); err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, s.prefs.Get())
}

type translateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"sourceLang"`
	TargetLang string `json:"targetLang"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	translated, err := s.translator.Translate(r.Context(), req.Text, req.SourceLang, req.TargetLang)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"translatedText": translated})
}

// respondDomainError maps domain sentinels to HTTP statuses.
func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrInvalidQuery),
		errors.Is(err, apperr.ErrEmptyContent),
		errors.Is(err, apperr.ErrInvalidImportFormat):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrTranslation):
		s.respondError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
