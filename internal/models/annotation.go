// Package models defines core data structures for annotations, search, and reading state.
package models

import "time"

// Bookmark colors.
const (
	ColorYellow = "yellow"
	ColorGreen  = "green"
	ColorBlue   = "blue"
	ColorPink   = "pink"
)

// Note is a user-authored annotation attached to a page of a book.
type Note struct {
	ID        string     `json:"id"`
	BookID    string     `json:"bookId"`
	Content   string     `json:"content"`
	Page      int        `json:"page"`
	Timestamp time.Time  `json:"timestamp"`
	EditedAt  *time.Time `json:"editedAt,omitempty"`
}

// Bookmark marks a page of a book. At most one bookmark exists per
// (bookId, page); creating another on the same page updates it in place.
type Bookmark struct {
	ID           string     `json:"id"`
	BookID       string     `json:"bookId"`
	Page         int        `json:"page"`
	Title        string     `json:"title"`
	Note         string     `json:"note,omitempty"`
	SelectedText string     `json:"selectedText,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
	Color        string     `json:"color"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

// BookmarkUpdate carries optional field changes for an existing bookmark.
// Nil fields are left untouched.
type BookmarkUpdate struct {
	Title        *string `json:"title,omitempty"`
	Note         *string `json:"note,omitempty"`
	SelectedText *string `json:"selectedText,omitempty"`
	Color        *string `json:"color,omitempty"`
}

// AnnotationExport is the serialized form produced by Export and consumed by Import.
type AnnotationExport struct {
	BookID     string     `json:"bookId"`
	Notes      []Note     `json:"notes"`
	Bookmarks  []Bookmark `json:"bookmarks"`
	ExportDate time.Time  `json:"exportDate"`
	Version    string     `json:"version"`
}

// ExportVersion is the current annotation export format version.
const ExportVersion = "1.0"

// BookmarkStats summarizes a book's bookmark collection.
type BookmarkStats struct {
	Total            int            `json:"total"`
	WithNotes        int            `json:"withNotes"`
	WithSelectedText int            `json:"withSelectedText"`
	Colors           map[string]int `json:"colors"`
	LastAdded        *time.Time     `json:"lastAdded,omitempty"`
}
