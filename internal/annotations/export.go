package annotations

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"github.com/libroglot/lector/internal/apperr"
	"github.com/libroglot/lector/internal/models"
)

// Export serializes the book's notes and bookmarks as a downloadable JSON
// document.
func (s *Store) Export(ctx context.Context, bookID string) ([]byte, error) {
	notes, bookmarks := s.ListByBook(ctx, bookID)
	doc := models.AnnotationExport{
		BookID:     bookID,
		Notes:      notes,
		Bookmarks:  bookmarks,
		ExportDate: s.now(),
		Version:    models.ExportVersion,
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Import parses an export document and replaces the book's collections with
// its valid entries. Malformed entries are dropped silently. If no valid
// entry remains, the existing collections are left untouched and
// apperr.ErrInvalidImportFormat is returned. Returns the number of imported
// entries.
func (s *Store) Import(ctx context.Context, bookID string, data []byte) (int, error) {
	var doc models.AnnotationExport
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("%w: %v", apperr.ErrInvalidImportFormat, err)
	}

	var notes []models.Note
	for _, note := range doc.Notes {
		if err := validateNote(note); err != nil {
			s.logger.Debug("dropping invalid note", zap.String("id", note.ID), zap.Error(err))
			continue
		}
		note.BookID = bookID
		notes = append(notes, note)
	}

	var bookmarks []models.Bookmark
	for _, mark := range doc.Bookmarks {
		if err := validateBookmark(mark); err != nil {
			s.logger.Debug("dropping invalid bookmark", zap.String("id", mark.ID), zap.Error(err))
			continue
		}
		mark.BookID = bookID
		if mark.Color == "" {
			mark.Color = models.ColorYellow
		}
		bookmarks = append(bookmarks, mark)
	}

	count := len(notes) + len(bookmarks)
	if count == 0 {
		return 0, apperr.ErrInvalidImportFormat
	}
	sort.SliceStable(bookmarks, func(i, j int) bool { return bookmarks[i].Page < bookmarks[j].Page })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded[bookID] = true
	s.notes[bookID] = notes
	s.bookmarks[bookID] = bookmarks

	if err := s.persistNotes(ctx, bookID); err != nil {
		return count, err
	}
	return count, s.persistBookmarks(ctx, bookID)
}

func validateNote(n models.Note) error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.ID, validation.Required),
		validation.Field(&n.Page, validation.Required, validation.Min(1)),
		validation.Field(&n.Content, validation.Required),
	)
}

func validateBookmark(b models.Bookmark) error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.ID, validation.Required),
		validation.Field(&b.Page, validation.Required, validation.Min(1)),
		validation.Field(&b.Title, validation.Required),
	)
}
