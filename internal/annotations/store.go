// Package annotations manages notes and bookmarks keyed by book.
//
// Every mutation persists the full updated collection synchronously before
// returning. A persistence failure is surfaced to the caller but the
// in-memory state stands: last-write-wins, no transactional guarantee.
package annotations

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/libroglot/lector/internal/apperr"
	"github.com/libroglot/lector/internal/models"
	"github.com/libroglot/lector/internal/persist"
)

// Store holds the annotation collections of all books, backed by the
// persistence capability. Collections are loaded lazily per book.
type Store struct {
	store  persist.Store
	logger *zap.Logger

	mu        sync.Mutex
	loaded    map[string]bool
	notes     map[string][]models.Note     // insertion order
	bookmarks map[string][]models.Bookmark // page ascending

	now   func() time.Time
	newID func() string
}

// NewStore creates an annotation store over the given persistence capability.
func NewStore(store persist.Store, logger *zap.Logger) *Store {
	return &Store{
		store:     store,
		logger:    logger,
		loaded:    make(map[string]bool),
		notes:     make(map[string][]models.Note),
		bookmarks: make(map[string][]models.Bookmark),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// AddNote creates a note on the given page. Content is trimmed; empty content
// is rejected with apperr.ErrEmptyContent.
func (s *Store) AddNote(ctx context.Context, bookID string, page int, content string) (*models.Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.ErrEmptyContent
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx, bookID); err != nil {
		return nil, err
	}

	note := models.Note{
		ID:        s.newID(),
		BookID:    bookID,
		Content:   content,
		Page:      page,
		Timestamp: s.now(),
	}
	s.notes[bookID] = append(s.notes[bookID], note)
	return &note, s.persistNotes(ctx, bookID)
}

// EditNote replaces a note's content and stamps EditedAt.
func (s *Store) EditNote(ctx context.Context, bookID, id, content string) (*models.Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.ErrEmptyContent
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx, bookID); err != nil {
		return nil, err
	}

	notes := s.notes[bookID]
	for i := range notes {
		if notes[i].ID == id {
			edited := s.now()
			notes[i].Content = content
			notes[i].EditedAt = &edited
			note := notes[i]
			return &note, s.persistNotes(ctx, bookID)
		}
	}
	return nil, fmt.Errorf("note %s: %w", id, apperr.ErrNotFound)
}

// RemoveNote deletes a note by id.
func (s *Store) RemoveNote(ctx context.Context, bookID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx, bookID); err != nil {
		return err
	}

	notes := s.notes[bookID]
	for i := range notes {
		if notes[i].ID == id {
			s.notes[bookID] = append(notes[:i], notes[i+1:]...)
			return s.persistNotes(ctx, bookID)
		}
	}
	return fmt.Errorf("note %s: %w", id, apperr.ErrNotFound)
}

// AddBookmark creates a bookmark on the given page, or updates the existing
// one: at most one bookmark exists per (book, page), and the latest call's
// fields win. title may be empty, in which case a default is derived from
// the page number.
func (s *Store) AddBookmark(ctx context.Context, bookID string, page int, title, note, selectedText string) (*models.Bookmark, error) {
	if title == "" {
		title = fmt.Sprintf("Page %d", page)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx, bookID); err != nil {
		return nil, err
	}

	marks := s.bookmarks[bookID]
	for i := range marks {
		if marks[i].Page == page {
			marks[i].Title = title
			marks[i].Note = note
			marks[i].SelectedText = selectedText
			marks[i].Timestamp = s.now()
			mark := marks[i]
			return &mark, s.persistBookmarks(ctx, bookID)
		}
	}

	mark := models.Bookmark{
		ID:           s.newID(),
		BookID:       bookID,
		Page:         page,
		Title:        title,
		Note:         note,
		SelectedText: selectedText,
		Timestamp:    s.now(),
		Color:        models.ColorYellow,
	}
	marks = append(marks, mark)
	sort.SliceStable(marks, func(i, j int) bool { return marks[i].Page < marks[j].Page })
	s.bookmarks[bookID] = marks
	return &mark, s.persistBookmarks(ctx, bookID)
}

// UpdateBookmark applies the non-nil fields of updates to an existing
// bookmark and stamps UpdatedAt.
func (s *Store) UpdateBookmark(ctx context.Context, bookID, id string, updates models.BookmarkUpdate) (*models.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx, bookID); err != nil {
		return nil, err
	}

	marks := s.bookmarks[bookID]
	for i := range marks {
		if marks[i].ID == id {
			if updates.Title != nil {
				marks[i].Title = *updates.Title
			}
			if updates.Note != nil {
				marks[i].Note = *updates.Note
			}
			if updates.SelectedText != nil {
				marks[i].SelectedText = *updates.SelectedText
			}
			if updates.Color != nil {
				marks[i].Color = *updates.Color
			}
			updated := s.now()
			marks[i].UpdatedAt = &updated
			mark := marks[i]
			return &mark, s.persistBookmarks(ctx, bookID)
		}
	}
	return nil, fmt.Errorf("bookmark %s: %w", id, apperr.ErrNotFound)
}

// RemoveBookmark deletes a bookmark by id.
func (s *Store) RemoveBookmark(ctx context.Context, bookID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx, bookID); err != nil {
		return err
	}

	marks := s.bookmarks[bookID]
	for i := range marks {
		if marks[i].ID == id {
			s.bookmarks[bookID] = append(marks[:i], marks[i+1:]...)
			return s.persistBookmarks(ctx, bookID)
		}
	}
	return fmt.Errorf("bookmark %s: %w", id, apperr.ErrNotFound)
}

// RemoveBookmarkByPage deletes the bookmark on the given page, if any.
func (s *Store) RemoveBookmarkByPage(ctx context.Context, bookID string, page int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx, bookID); err != nil {
		return err
	}

	marks := s.bookmarks[bookID]
	for i := range marks {
		if marks[i].Page == page {
			s.bookmarks[bookID] = append(marks[:i], marks[i+1:]...)
			return s.persistBookmarks(ctx, bookID)
		}
	}
	return nil
}

// ClearBookmarks removes all bookmarks of a book.
func (s *Store) ClearBookmarks(ctx context.Context, bookID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(ctx, bookID); err != nil {
		return err
	}
	s.bookmarks[bookID] = nil
	return s.persistBookmarks(ctx, bookID)
}

// ListByBook returns the book's notes in insertion order and its bookmarks
// sorted by page ascending. A failed load yields empty results; the book
// stays unloaded so the next call retries.
func (s *Store) ListByBook(ctx context.Context, bookID string) ([]models.Note, []models.Bookmark) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.load(ctx, bookID)

	notes := make([]models.Note, len(s.notes[bookID]))
	copy(notes, s.notes[bookID])
	marks := make([]models.Bookmark, len(s.bookmarks[bookID]))
	copy(marks, s.bookmarks[bookID])
	return notes, marks
}

// HasBookmark reports whether the page is bookmarked.
func (s *Store) HasBookmark(ctx context.Context, bookID string, page int) bool {
	return s.BookmarkByPage(ctx, bookID, page) != nil
}

// BookmarkByPage returns the bookmark on the given page, or nil.
func (s *Store) BookmarkByPage(ctx context.Context, bookID string, page int) *models.Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.load(ctx, bookID)

	for _, mark := range s.bookmarks[bookID] {
		if mark.Page == page {
			m := mark
			return &m
		}
	}
	return nil
}

// NextBookmark returns the bookmark with the smallest page greater than
// currentPage, or nil.
func (s *Store) NextBookmark(ctx context.Context, bookID string, currentPage int) *models.Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.load(ctx, bookID)

	for _, mark := range s.bookmarks[bookID] {
		if mark.Page > currentPage {
			m := mark
			return &m
		}
	}
	return nil
}

// PreviousBookmark returns the bookmark with the largest page smaller than
// currentPage, or nil.
func (s *Store) PreviousBookmark(ctx context.Context, bookID string, currentPage int) *models.Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.load(ctx, bookID)

	marks := s.bookmarks[bookID]
	for i := len(marks) - 1; i >= 0; i-- {
		if marks[i].Page < currentPage {
			m := marks[i]
			return &m
		}
	}
	return nil
}

// Stats summarizes the book's bookmark collection.
func (s *Store) Stats(ctx context.Context, bookID string) models.BookmarkStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.load(ctx, bookID)

	stats := models.BookmarkStats{Colors: make(map[string]int)}
	for _, mark := range s.bookmarks[bookID] {
		stats.Total++
		if strings.TrimSpace(mark.Note) != "" {
			stats.WithNotes++
		}
		if strings.TrimSpace(mark.SelectedText) != "" {
			stats.WithSelectedText++
		}
		stats.Colors[mark.Color]++
		ts := mark.Timestamp
		if stats.LastAdded == nil || ts.After(*stats.LastAdded) {
			stats.LastAdded = &ts
		}
	}
	return stats
}

// load populates the book's collections from the persistence layer once.
// The book is marked loaded only after both reads succeed, so a failed read
// is retried on the next call instead of shadowing stored annotations with
// an empty collection. Corrupt values are logged and treated as empty.
// Caller holds s.mu.
func (s *Store) load(ctx context.Context, bookID string) error {
	if s.loaded[bookID] {
		return nil
	}

	rawNotes, hasNotes, err := s.store.Get(ctx, persist.NotesKey(bookID))
	if err != nil {
		s.logger.Error("load notes", zap.String("book", bookID), zap.Error(err))
		return fmt.Errorf("%w: load notes: %v", apperr.ErrPersistence, err)
	}
	rawMarks, hasMarks, err := s.store.Get(ctx, persist.BookmarksKey(bookID))
	if err != nil {
		s.logger.Error("load bookmarks", zap.String("book", bookID), zap.Error(err))
		return fmt.Errorf("%w: load bookmarks: %v", apperr.ErrPersistence, err)
	}
	s.loaded[bookID] = true

	if hasNotes {
		var notes []models.Note
		if err := json.Unmarshal([]byte(rawNotes), &notes); err != nil {
			s.logger.Warn("corrupt notes, starting empty", zap.String("book", bookID), zap.Error(err))
		} else {
			s.notes[bookID] = notes
		}
	}

	if hasMarks {
		var marks []models.Bookmark
		if err := json.Unmarshal([]byte(rawMarks), &marks); err != nil {
			s.logger.Warn("corrupt bookmarks, starting empty", zap.String("book", bookID), zap.Error(err))
		} else {
			sort.SliceStable(marks, func(i, j int) bool { return marks[i].Page < marks[j].Page })
			s.bookmarks[bookID] = marks
		}
	}
	return nil
}

// persistNotes writes the book's note collection. Caller holds s.mu.
func (s *Store) persistNotes(ctx context.Context, bookID string) error {
	data, err := json.Marshal(notNil(s.notes[bookID]))
	if err != nil {
		return fmt.Errorf("marshal notes: %w", err)
	}
	if err := s.store.Set(ctx, persist.NotesKey(bookID), string(data)); err != nil {
		s.logger.Error("persist notes", zap.String("book", bookID), zap.Error(err))
		return fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	return nil
}

// persistBookmarks writes the book's bookmark collection. Caller holds s.mu.
func (s *Store) persistBookmarks(ctx context.Context, bookID string) error {
	data, err := json.Marshal(notNil(s.bookmarks[bookID]))
	if err != nil {
		return fmt.Errorf("marshal bookmarks: %w", err)
	}
	if err := s.store.Set(ctx, persist.BookmarksKey(bookID), string(data)); err != nil {
		s.logger.Error("persist bookmarks", zap.String("book", bookID), zap.Error(err))
		return fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	return nil
}

func notNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
