// Package persist defines the key-value persistence capability used by all
// reader components. Values are the serialized form of the domain entities,
// partitioned by namespaced keys. Access is read-modify-write with no cross
// process locking; concurrent writers are last-write-wins.
package persist

import (
	"context"
	"fmt"
)

// Store is the persistence capability consumed by the reader components.
type Store interface {
	// Get returns the value stored under key, and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}

// Namespaced key builders. Notes and bookmarks are partitioned by book;
// preferences and recent searches are global.

func NotesKey(bookID string) string     { return fmt.Sprintf("notes_%s", bookID) }
func BookmarksKey(bookID string) string { return fmt.Sprintf("bookmarks_%s", bookID) }
func ProgressKey(bookID string) string  { return fmt.Sprintf("progress_%s", bookID) }
func BookKey(bookID string) string      { return fmt.Sprintf("book_%s", bookID) }

const (
	PreferencesKey    = "reading_preferences"
	RecentSearchesKey = "recent_searches"
)
