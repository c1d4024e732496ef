// Package library keeps the set of readable books: files in a watched
// directory whose extracted text is cached and searchable.
package library

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/libroglot/lector/internal/extract"
	"github.com/libroglot/lector/internal/models"
	"github.com/libroglot/lector/internal/persist"
	"github.com/libroglot/lector/internal/progress"
)

// hashBytes is how much of a file feeds the identity hash. Hashing only the
// head keeps IDs stable when trailing metadata changes.
const hashBytes = 8192

// DefaultExtensions are the book file types loaded from the library directory.
var DefaultExtensions = []string{".txt", ".md", ".html", ".xhtml"}

// Library loads book files from a directory, extracts their text, and serves
// them by ID. Extracted content is cached in the persistence layer under
// book_{id}.
type Library struct {
	dir        string
	extensions map[string]bool
	extractor  *extract.Extractor
	store      persist.Store
	logger     *zap.Logger

	mu     sync.RWMutex
	books  map[string]models.Book
	byPath map[string]string
}

// New creates a library over dir. extensions filter which files are loaded;
// empty uses DefaultExtensions.
func New(dir string, extensions []string, extractor *extract.Extractor, store persist.Store, logger *zap.Logger) *Library {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	extMap := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		extMap[strings.ToLower(ext)] = true
	}
	return &Library{
		dir:        dir,
		extensions: extMap,
		extractor:  extractor,
		store:      store,
		logger:     logger,
		books:      make(map[string]models.Book),
		byPath:     make(map[string]string),
	}
}

// Scan loads every matching file in the library directory concurrently.
// A missing directory yields an empty library, not an error.
func (l *Library) Scan(ctx context.Context) error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Warn("library directory missing", zap.String("dir", l.dir))
			return nil
		}
		return fmt.Errorf("read library directory: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, entry := range entries {
		if entry.IsDir() || !l.matches(entry.Name()) {
			continue
		}
		path := filepath.Join(l.dir, entry.Name())
		g.Go(func() error {
			return l.Load(ctx, path)
		})
	}
	return g.Wait()
}

// Load reads, extracts, and registers one book file. Reloading a changed
// file replaces its entry in place.
func (l *Library) Load(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read book %s: %w", path, err)
	}
	id, err := BookID(path)
	if err != nil {
		return err
	}

	content := l.extractor.Extract(string(raw))
	book := models.Book{
		ID:         id,
		Title:      titleFromPath(path),
		Path:       path,
		Content:    content,
		TotalPages: pageCount(content),
		UpdatedAt:  time.Now(),
	}

	l.mu.Lock()
	// The same path may hash to a new ID after an edit; drop the old entry.
	if oldID, ok := l.byPath[path]; ok && oldID != id {
		delete(l.books, oldID)
	}
	l.books[id] = book
	l.byPath[path] = id
	l.mu.Unlock()

	if err := l.store.Set(ctx, persist.BookKey(id), content); err != nil {
		l.logger.Error("cache book content", zap.String("book", id), zap.Error(err))
	}
	l.logger.Debug("book loaded",
		zap.String("book", id),
		zap.String("path", path),
		zap.Int("pages", book.TotalPages),
	)
	return nil
}

// Remove drops the book backed by path, e.g. after file deletion.
func (l *Library) Remove(ctx context.Context, path string) {
	l.mu.Lock()
	id, ok := l.byPath[path]
	if ok {
		delete(l.books, id)
		delete(l.byPath, path)
	}
	l.mu.Unlock()

	if ok {
		if err := l.store.Delete(ctx, persist.BookKey(id)); err != nil {
			l.logger.Error("drop cached book content", zap.String("book", id), zap.Error(err))
		}
		l.logger.Debug("book removed", zap.String("book", id), zap.String("path", path))
	}
}

// Get returns a book by ID.
func (l *Library) Get(id string) (models.Book, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	book, ok := l.books[id]
	return book, ok
}

// List returns all books sorted by title.
func (l *Library) List() []models.BookListItem {
	l.mu.RLock()
	items := make([]models.BookListItem, 0, len(l.books))
	for _, b := range l.books {
		items = append(items, models.BookListItem{
			ID:         b.ID,
			Title:      b.Title,
			Path:       b.Path,
			TotalPages: b.TotalPages,
			UpdatedAt:  b.UpdatedAt,
		})
	}
	l.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool { return items[i].Title < items[j].Title })
	return items
}

// Len returns the number of loaded books.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.books)
}

func (l *Library) matches(name string) bool {
	return l.extensions[strings.ToLower(filepath.Ext(name))]
}

// BookID returns a stable content-based identity for a book file: the hash of
// its first 8KB. The same content always yields the same ID, so annotations
// survive renames.
func BookID(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open book %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, hashBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("hash book %s: %w", path, err)
	}
	sum := sha256.Sum256(buf[:n])
	return hex.EncodeToString(sum[:16]), nil
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// pageCount derives a page count from the word count at the same
// words-per-page constant used for remaining-time estimates.
func pageCount(content string) int {
	words := len(strings.Fields(content))
	pages := (words + progress.WordsPerPage - 1) / progress.WordsPerPage
	if pages < 1 {
		pages = 1
	}
	return pages
}
