// Package progress tracks the reading position within a book and drives
// dual-pane scroll synchronization.
package progress

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/libroglot/lector/internal/models"
	"github.com/libroglot/lector/internal/persist"
)

// WordsPerPage is the average word count assumed per page when estimating
// remaining reading time.
const WordsPerPage = 250

// DefaultReadingSpeedWPM is used when no preference source is wired.
const DefaultReadingSpeedWPM = 200

// position is the persisted per-book reading position.
type position struct {
	CurrentPage int `json:"current_page"`
}

// Tracker holds the current page of one book. The position is persisted under
// progress_{bookId} and restored on construction.
type Tracker struct {
	store  persist.Store
	logger *zap.Logger
	bookID string

	// readingSpeed returns the reader's words-per-minute preference.
	readingSpeed func() int

	mu          sync.Mutex
	restored    bool
	currentPage int
	totalPages  int
}

// NewTracker creates a tracker for bookID with the given page count
// (raised to 1 if smaller). readingSpeed may be nil, in which case
// DefaultReadingSpeedWPM is used. A persisted position within range is
// restored.
func NewTracker(ctx context.Context, bookID string, totalPages int, store persist.Store, readingSpeed func() int, logger *zap.Logger) *Tracker {
	if totalPages < 1 {
		totalPages = 1
	}
	t := &Tracker{
		store:        store,
		logger:       logger,
		bookID:       bookID,
		readingSpeed: readingSpeed,
		currentPage:  1,
		totalPages:   totalPages,
	}
	t.mu.Lock()
	_ = t.restore(ctx)
	t.mu.Unlock()
	return t
}

// CurrentPage returns the current page.
func (t *Tracker) CurrentPage() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentPage
}

// TotalPages returns the page count.
func (t *Tracker) TotalPages() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalPages
}

// Navigate moves the current page and returns the new value. prev and next
// move by one page, clamped to [1, totalPages]. jump moves to target; an
// out-of-range target is a no-op returning the unchanged page. If the stored
// position has not been restored yet, Navigate retries the load first and
// leaves the page unchanged while the store is unreadable, so a save cannot
// overwrite a position it never saw.
func (t *Tracker) Navigate(ctx context.Context, direction string, target int) int {
	t.mu.Lock()
	if err := t.restore(ctx); err != nil {
		page := t.currentPage
		t.mu.Unlock()
		return page
	}
	page := t.currentPage
	switch direction {
	case models.NavPrev:
		if page > 1 {
			page--
		}
	case models.NavNext:
		if page < t.totalPages {
			page++
		}
	case models.NavJump:
		if target >= 1 && target <= t.totalPages {
			page = target
		}
	}
	changed := page != t.currentPage
	t.currentPage = page
	t.mu.Unlock()

	if changed {
		t.save(ctx)
	}
	return page
}

// Progress derives the completion percentage and the estimated remaining
// reading time from the current position.
func (t *Tracker) Progress() models.ReadingProgress {
	t.mu.Lock()
	current, total := t.currentPage, t.totalPages
	t.mu.Unlock()

	wpm := DefaultReadingSpeedWPM
	if t.readingSpeed != nil {
		if v := t.readingSpeed(); v > 0 {
			wpm = v
		}
	}
	return models.ReadingProgress{
		CurrentPage:               current,
		TotalPages:                total,
		Percentage:                float64(current) / float64(total) * 100,
		EstimatedRemainingMinutes: float64(total-current) * WordsPerPage / float64(wpm),
	}
}

// restore loads the persisted position once. The tracker is marked restored
// only after the read succeeds; a failed read is retried on the next call.
// Caller holds t.mu.
func (t *Tracker) restore(ctx context.Context) error {
	if t.restored {
		return nil
	}
	if t.store == nil {
		t.restored = true
		return nil
	}
	raw, ok, err := t.store.Get(ctx, persist.ProgressKey(t.bookID))
	if err != nil {
		t.logger.Error("load reading position", zap.String("book", t.bookID), zap.Error(err))
		return err
	}
	t.restored = true
	if !ok {
		return nil
	}
	var pos position
	if err := json.Unmarshal([]byte(raw), &pos); err != nil {
		t.logger.Warn("corrupt reading position", zap.String("book", t.bookID), zap.Error(err))
		return nil
	}
	if pos.CurrentPage >= 1 && pos.CurrentPage <= t.totalPages {
		t.currentPage = pos.CurrentPage
	}
	return nil
}

func (t *Tracker) save(ctx context.Context) {
	if t.store == nil {
		return
	}
	t.mu.Lock()
	data, err := json.Marshal(position{CurrentPage: t.currentPage})
	t.mu.Unlock()
	if err != nil {
		return
	}
	if err := t.store.Set(ctx, persist.ProgressKey(t.bookID), string(data)); err != nil {
		t.logger.Error("persist reading position", zap.String("book", t.bookID), zap.Error(err))
	}
}
