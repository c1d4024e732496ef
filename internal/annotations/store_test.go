package annotations

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/libroglot/lector/internal/apperr"
	"github.com/libroglot/lector/internal/models"
	"github.com/libroglot/lector/internal/persist"
)

func newTestStore(t *testing.T) (*Store, *persist.MemoryStore) {
	t.Helper()
	mem := persist.NewMemoryStore()
	return NewStore(mem, zap.NewNop()), mem
}

func TestNotes_Lifecycle(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	note, err := s.AddNote(ctx, "b1", 3, "  a thought  ")
	if err != nil {
		t.Fatal(err)
	}
	if note.Content != "a thought" {
		t.Errorf("content not trimmed: %q", note.Content)
	}
	if note.ID == "" || note.BookID != "b1" || note.Page != 3 {
		t.Errorf("note fields: %+v", note)
	}
	if note.EditedAt != nil {
		t.Error("fresh note has EditedAt")
	}

	edited, err := s.EditNote(ctx, "b1", note.ID, "revised")
	if err != nil {
		t.Fatal(err)
	}
	if edited.Content != "revised" || edited.EditedAt == nil {
		t.Errorf("edit: %+v", edited)
	}

	if err := s.RemoveNote(ctx, "b1", note.ID); err != nil {
		t.Fatal(err)
	}
	notes, _ := s.ListByBook(ctx, "b1")
	if len(notes) != 0 {
		t.Errorf("note not removed: %d left", len(notes))
	}

	if err := s.RemoveNote(ctx, "b1", "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAddNote_RejectsEmptyContent(t *testing.T) {
	s, mem := newTestStore(t)
	ctx := context.Background()

	for _, content := range []string{"", "   ", "\n\t"} {
		if _, err := s.AddNote(ctx, "b1", 1, content); !errors.Is(err, apperr.ErrEmptyContent) {
			t.Errorf("content %q: got %v", content, err)
		}
	}
	if mem.Len() != 0 {
		t.Error("rejected note was persisted")
	}
}

func TestNotes_InsertionOrderIsDeterministic(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, c := range []string{"first", "second", "third"} {
		if _, err := s.AddNote(ctx, "b1", 1, c); err != nil {
			t.Fatal(err)
		}
	}
	notes, _ := s.ListByBook(ctx, "b1")
	if len(notes) != 3 || notes[0].Content != "first" || notes[2].Content != "third" {
		t.Errorf("order: %+v", notes)
	}
}

func TestAddBookmark_UpsertPerPage(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	first, err := s.AddBookmark(ctx, "b1", 7, "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if first.Title != "Page 7" {
		t.Errorf("default title: %q", first.Title)
	}
	if first.Color != "yellow" {
		t.Errorf("default color: %q", first.Color)
	}

	second, err := s.AddBookmark(ctx, "b1", 7, "chapter start", "important", "quoted text")
	if err != nil {
		t.Fatal(err)
	}

	_, marks := s.ListByBook(ctx, "b1")
	if len(marks) != 1 {
		t.Fatalf("expected exactly 1 bookmark after double add, got %d", len(marks))
	}
	if marks[0].Title != "chapter start" || marks[0].Note != "important" || marks[0].SelectedText != "quoted text" {
		t.Errorf("second call's fields must win: %+v", marks[0])
	}
	if second.ID != first.ID {
		t.Errorf("upsert changed identity: %s vs %s", first.ID, second.ID)
	}
}

func TestBookmarks_SortedAndQueries(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, page := range []int{12, 3, 25, 8} {
		if _, err := s.AddBookmark(ctx, "b1", page, "", "", ""); err != nil {
			t.Fatal(err)
		}
	}

	_, marks := s.ListByBook(ctx, "b1")
	wantPages := []int{3, 8, 12, 25}
	for i, want := range wantPages {
		if marks[i].Page != want {
			t.Fatalf("sort order: got %+v", marks)
		}
	}

	if !s.HasBookmark(ctx, "b1", 8) || s.HasBookmark(ctx, "b1", 9) {
		t.Error("HasBookmark")
	}
	if m := s.BookmarkByPage(ctx, "b1", 12); m == nil || m.Page != 12 {
		t.Error("BookmarkByPage")
	}
	if m := s.NextBookmark(ctx, "b1", 8); m == nil || m.Page != 12 {
		t.Errorf("NextBookmark: %+v", m)
	}
	if m := s.PreviousBookmark(ctx, "b1", 8); m == nil || m.Page != 3 {
		t.Errorf("PreviousBookmark: %+v", m)
	}
	if m := s.NextBookmark(ctx, "b1", 25); m != nil {
		t.Errorf("NextBookmark past last: %+v", m)
	}
	if m := s.PreviousBookmark(ctx, "b1", 3); m != nil {
		t.Errorf("PreviousBookmark before first: %+v", m)
	}
}

func TestRemoveBookmarkByPage(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.AddBookmark(ctx, "b1", 5, "", "", ""); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveBookmarkByPage(ctx, "b1", 5); err != nil {
		t.Fatal(err)
	}
	if s.HasBookmark(ctx, "b1", 5) {
		t.Error("bookmark still present")
	}
	// Removing from an unbookmarked page is a no-op.
	if err := s.RemoveBookmarkByPage(ctx, "b1", 99); err != nil {
		t.Errorf("no-op remove: %v", err)
	}
}

func TestUpdateBookmark(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	mark, err := s.AddBookmark(ctx, "b1", 5, "old", "", "")
	if err != nil {
		t.Fatal(err)
	}
	title := "new title"
	color := "blue"
	updated, err := s.UpdateBookmark(ctx, "b1", mark.ID, models.BookmarkUpdate{Title: &title, Color: &color})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Title != "new title" || updated.Color != "blue" || updated.UpdatedAt == nil {
		t.Errorf("update: %+v", updated)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	mem := persist.NewMemoryStore()
	ctx := context.Background()

	s := NewStore(mem, zap.NewNop())
	if _, err := s.AddNote(ctx, "b1", 2, "remember this"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddBookmark(ctx, "b1", 9, "stop here", "", ""); err != nil {
		t.Fatal(err)
	}

	// A new store over the same persistence sees the same collections.
	reloaded := NewStore(mem, zap.NewNop())
	notes, marks := reloaded.ListByBook(ctx, "b1")
	if len(notes) != 1 || notes[0].Content != "remember this" {
		t.Errorf("notes after reload: %+v", notes)
	}
	if len(marks) != 1 || marks[0].Page != 9 {
		t.Errorf("bookmarks after reload: %+v", marks)
	}
}

func TestPersistFailure_KeepsInMemoryState(t *testing.T) {
	s, mem := newTestStore(t)
	ctx := context.Background()
	mem.FailWrites = errors.New("disk full")

	note, err := s.AddNote(ctx, "b1", 1, "still here")
	if !errors.Is(err, apperr.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if note == nil {
		t.Fatal("note not returned on persistence failure")
	}
	// Last-write-wins, no rollback: the note stays usable in memory.
	notes, _ := s.ListByBook(ctx, "b1")
	if len(notes) != 1 {
		t.Errorf("in-memory state rolled back: %+v", notes)
	}
}

func TestLoadFailure_DoesNotClobberStoredAnnotations(t *testing.T) {
	mem := persist.NewMemoryStore()
	ctx := context.Background()

	s := NewStore(mem, zap.NewNop())
	if _, err := s.AddNote(ctx, "b1", 1, "first"); err != nil {
		t.Fatal(err)
	}

	// Reopen over a store whose reads fail, as with a locked database.
	// The mutation must surface the failure instead of persisting an
	// empty collection over the stored one.
	mem.FailReads = errors.New("database is locked")
	reopened := NewStore(mem, zap.NewNop())
	if _, err := reopened.AddNote(ctx, "b1", 2, "second"); !errors.Is(err, apperr.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	notes, _ := reopened.ListByBook(ctx, "b1")
	if len(notes) != 0 {
		t.Errorf("notes visible while unreadable: %+v", notes)
	}

	// Once reads recover the same store retries the load, so the
	// original note is still there alongside the new one.
	mem.FailReads = nil
	if _, err := reopened.AddNote(ctx, "b1", 2, "second"); err != nil {
		t.Fatal(err)
	}
	notes, _ = reopened.ListByBook(ctx, "b1")
	if len(notes) != 2 || notes[0].Content != "first" || notes[1].Content != "second" {
		t.Errorf("notes after recovery: %+v", notes)
	}

	healthy := NewStore(mem, zap.NewNop())
	persisted, _ := healthy.ListByBook(ctx, "b1")
	if len(persisted) != 2 {
		t.Errorf("persisted notes: %+v", persisted)
	}
}

func TestStats(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.AddBookmark(ctx, "b1", 1, "", "a note", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddBookmark(ctx, "b1", 2, "", "", "selection"); err != nil {
		t.Fatal(err)
	}
	stats := s.Stats(ctx, "b1")
	if stats.Total != 2 || stats.WithNotes != 1 || stats.WithSelectedText != 1 {
		t.Errorf("stats: %+v", stats)
	}
	if stats.Colors["yellow"] != 2 {
		t.Errorf("colors: %+v", stats.Colors)
	}
	if stats.LastAdded == nil {
		t.Error("LastAdded missing")
	}
}
