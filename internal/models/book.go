package models

import "time"

// Book is a library entry: a book file whose extracted text is searchable.
type Book struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Path       string    `json:"path"`
	Content    string    `json:"content,omitempty"`
	TotalPages int       `json:"total_pages"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// BookListItem is a lightweight representation returned by list operations.
type BookListItem struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Path       string    `json:"path"`
	TotalPages int       `json:"total_pages"`
	UpdatedAt  time.Time `json:"updated_at"`
}
