// Package e2e exercises the full component stack over a real SQLite database:
// library scan, search, annotations, progress, and persistence across restarts.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/libroglot/lector/internal/annotations"
	"github.com/libroglot/lector/internal/config"
	"github.com/libroglot/lector/internal/extract"
	"github.com/libroglot/lector/internal/library"
	"github.com/libroglot/lector/internal/models"
	"github.com/libroglot/lector/internal/persist"
	"github.com/libroglot/lector/internal/prefs"
	"github.com/libroglot/lector/internal/search"
	"github.com/libroglot/lector/internal/server"
	"github.com/libroglot/lector/internal/translate"
)

const mobyOpening = `Call me Ishmael. Some years ago, never mind how long precisely,
having little or no money in my purse, I thought I would sail about a little.

It is a way I have of driving off the spleen and regulating the circulation.
Whenever I find myself growing grim about the mouth, I account it high time
to get to sea as soon as I can.

There is nothing surprising in this. Almost all men in their degree, some time
or other, cherish very nearly the same feelings towards the ocean with me.`

// stack bundles the assembled components for one "session".
type stack struct {
	srv    *server.Server
	store  *persist.SQLiteStore
	bookID string
}

func buildStack(t *testing.T, libDir, dbPath string) *stack {
	t.Helper()
	logger := zap.NewNop()

	store, err := persist.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Library.Path = libDir
	cfg.Storage.DatabasePath = dbPath

	extractor := extract.NewExtractor()
	lib := library.New(libDir, cfg.Library.Extensions, extractor, store, logger)
	if err := lib.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}

	recent := search.NewRecentSearches(store, cfg.Search.RecentMax, logger)
	engine := search.NewEngine(extractor, recent, cfg.Search.ContextRadius, logger)
	ann := annotations.NewStore(store, logger)
	pm := prefs.NewManager(context.Background(), store, logger)
	translator := translate.NewService(&translate.Static{}, logger)

	var bookID string
	if items := lib.List(); len(items) > 0 {
		bookID = items[0].ID
	}
	return &stack{
		srv:    server.NewServer(lib, engine, ann, pm, translator, store, cfg, logger),
		store:  store,
		bookID: bookID,
	}
}

func (s *stack) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
	}
	r := httptest.NewRequest(method, path, bytes.NewReader(data))
	w := httptest.NewRecorder()
	s.srv.Router().ServeHTTP(w, r)
	return w
}

func TestReadingSession(t *testing.T) {
	dir := t.TempDir()
	libDir := filepath.Join(dir, "books")
	if err := os.MkdirAll(libDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(libDir, "moby-dick.txt"), []byte(mobyOpening), 0644); err != nil {
		t.Fatal(err)
	}
	dbPath := filepath.Join(dir, "lector.db")

	s := buildStack(t, libDir, dbPath)
	if s.bookID == "" {
		t.Fatal("no book loaded")
	}
	base := "/api/v1/books/" + s.bookID

	// Search the book.
	w := s.do(t, http.MethodPost, base+"/search", models.SearchRequest{Query: "sea"})
	if w.Code != http.StatusOK {
		t.Fatalf("search: %d %s", w.Code, w.Body.String())
	}
	var resp models.SearchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total == 0 {
		t.Fatal("no matches for 'sea'")
	}
	if !strings.Contains(resp.Results[0].Text, search.HighlightOpen) {
		t.Errorf("no highlight in %q", resp.Results[0].Text)
	}

	// Leave a note and a bookmark.
	w = s.do(t, http.MethodPost, base+"/notes", map[string]interface{}{"page": 1, "content": "the famous opening"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add note: %d %s", w.Code, w.Body.String())
	}
	w = s.do(t, http.MethodPost, base+"/bookmarks", map[string]interface{}{"page": 1, "title": "Loomings"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add bookmark: %d %s", w.Code, w.Body.String())
	}

	// Adjust preferences.
	w = s.do(t, http.MethodPut, "/api/v1/preferences", map[string]interface{}{"theme": "sepia"})
	if w.Code != http.StatusOK {
		t.Fatalf("update prefs: %d %s", w.Code, w.Body.String())
	}

	s.store.Close()

	// A new session over the same database sees everything.
	s2 := buildStack(t, libDir, dbPath)
	if s2.bookID != s.bookID {
		t.Fatalf("book ID changed across sessions: %s vs %s", s.bookID, s2.bookID)
	}

	w = s2.do(t, http.MethodGet, base+"/annotations", nil)
	var anns struct {
		Notes     []models.Note     `json:"notes"`
		Bookmarks []models.Bookmark `json:"bookmarks"`
	}
	if err := json.NewDecoder(w.Body).Decode(&anns); err != nil {
		t.Fatal(err)
	}
	if len(anns.Notes) != 1 || anns.Notes[0].Content != "the famous opening" {
		t.Errorf("notes after restart: %+v", anns.Notes)
	}
	if len(anns.Bookmarks) != 1 || anns.Bookmarks[0].Title != "Loomings" {
		t.Errorf("bookmarks after restart: %+v", anns.Bookmarks)
	}

	w = s2.do(t, http.MethodGet, "/api/v1/preferences", nil)
	var p models.Preferences
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatal(err)
	}
	if p.Theme != models.ThemeSepia {
		t.Errorf("theme after restart: %s", p.Theme)
	}

	w = s2.do(t, http.MethodGet, "/api/v1/searches/recent", nil)
	var recent struct {
		Searches []string `json:"searches"`
	}
	if err := json.NewDecoder(w.Body).Decode(&recent); err != nil {
		t.Fatal(err)
	}
	if len(recent.Searches) != 1 || recent.Searches[0] != "sea" {
		t.Errorf("recent searches after restart: %v", recent.Searches)
	}
}

func TestProgressSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	libDir := filepath.Join(dir, "books")
	if err := os.MkdirAll(libDir, 0755); err != nil {
		t.Fatal(err)
	}
	// Enough words for several pages.
	long := strings.Repeat("word ", 1300)
	if err := os.WriteFile(filepath.Join(libDir, "long.txt"), []byte(long), 0644); err != nil {
		t.Fatal(err)
	}
	dbPath := filepath.Join(dir, "lector.db")

	s := buildStack(t, libDir, dbPath)
	base := "/api/v1/books/" + s.bookID

	w := s.do(t, http.MethodPost, base+"/progress/navigate", models.NavigateRequest{Direction: models.NavJump, Target: 3})
	var p models.ReadingProgress
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatal(err)
	}
	if p.CurrentPage != 3 {
		t.Fatalf("jump: got page %d", p.CurrentPage)
	}
	s.store.Close()

	s2 := buildStack(t, libDir, dbPath)
	w = s2.do(t, http.MethodGet, base+"/progress", nil)
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatal(err)
	}
	if p.CurrentPage != 3 {
		t.Errorf("page after restart: got %d, want 3", p.CurrentPage)
	}
}
