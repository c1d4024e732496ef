package library

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/libroglot/lector/internal/extract"
	"github.com/libroglot/lector/internal/persist"
)

func writeBook(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestLibrary(t *testing.T, dir string) (*Library, *persist.MemoryStore) {
	t.Helper()
	mem := persist.NewMemoryStore()
	return New(dir, nil, extract.NewExtractor(), mem, zap.NewNop()), mem
}

func TestScan_LoadsMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	writeBook(t, dir, "moby-dick.txt", "Call me Ishmael.\n\nSome years ago.")
	writeBook(t, dir, "notes.html", "<p>A paragraph.</p>")
	writeBook(t, dir, "cover.png", "not a book")

	lib, mem := newTestLibrary(t, dir)
	if err := lib.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}

	if lib.Len() != 2 {
		t.Fatalf("expected 2 books, got %d", lib.Len())
	}
	items := lib.List()
	if items[0].Title != "moby-dick" || items[1].Title != "notes" {
		t.Errorf("titles: %+v", items)
	}
	// Extracted content is cached in the persistence layer.
	if mem.Len() != 2 {
		t.Errorf("cached entries: %d", mem.Len())
	}
}

func TestScan_MissingDirectory(t *testing.T) {
	lib, _ := newTestLibrary(t, "/does/not/exist")
	if err := lib.Scan(context.Background()); err != nil {
		t.Errorf("missing dir must not fail: %v", err)
	}
	if lib.Len() != 0 {
		t.Error("phantom books")
	}
}

func TestLoad_ExtractsMarkupAndCountsPages(t *testing.T) {
	dir := t.TempDir()
	body := strings.Repeat("word ", 600) // 600 words -> 3 pages at 250/page
	path := writeBook(t, dir, "book.html", "<p>"+body+"</p>")

	lib, _ := newTestLibrary(t, dir)
	if err := lib.Load(context.Background(), path); err != nil {
		t.Fatal(err)
	}

	id, err := BookID(path)
	if err != nil {
		t.Fatal(err)
	}
	book, ok := lib.Get(id)
	if !ok {
		t.Fatal("book not registered")
	}
	if strings.Contains(book.Content, "<p>") {
		t.Error("markup not stripped")
	}
	if book.TotalPages != 3 {
		t.Errorf("pages: got %d, want 3", book.TotalPages)
	}
}

func TestBookID_StableAndContentBased(t *testing.T) {
	dir := t.TempDir()
	a := writeBook(t, dir, "a.txt", "identical content")
	b := writeBook(t, dir, "b.txt", "identical content")
	c := writeBook(t, dir, "c.txt", "different content")

	idA, _ := BookID(a)
	idA2, _ := BookID(a)
	idB, _ := BookID(b)
	idC, _ := BookID(c)

	if idA != idA2 {
		t.Error("ID not stable")
	}
	if idA != idB {
		t.Error("same content, different IDs")
	}
	if idA == idC {
		t.Error("different content, same ID")
	}
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	path := writeBook(t, dir, "gone.txt", "soon deleted")

	lib, mem := newTestLibrary(t, dir)
	ctx := context.Background()
	if err := lib.Load(ctx, path); err != nil {
		t.Fatal(err)
	}
	lib.Remove(ctx, path)

	if lib.Len() != 0 {
		t.Error("book still listed")
	}
	if mem.Len() != 0 {
		t.Error("cached content not dropped")
	}
	// Removing an unknown path is a no-op.
	lib.Remove(ctx, "/nowhere.txt")
}
