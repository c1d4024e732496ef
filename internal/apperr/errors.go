// Package apperr defines sentinel errors shared across the reader core.
package apperr

import "errors"

var (
	// ErrInvalidQuery is returned for a malformed user-supplied regex pattern.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidImportFormat is returned when an import payload is unparsable
	// or contains no valid entries.
	ErrInvalidImportFormat = errors.New("invalid import format")
	// ErrPersistence wraps storage read/write failures. In-memory state is
	// kept; callers surface the error without rolling back.
	ErrPersistence = errors.New("persistence failure")
	// ErrTranslation wraps translation capability failures; callers fall back
	// to the untranslated source text.
	ErrTranslation = errors.New("translation failure")
	// ErrNotFound is returned when an entity id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrEmptyContent rejects notes whose trimmed content is empty.
	ErrEmptyContent = errors.New("empty content")
	// ErrSuperseded signals that a newer request replaced this one in flight.
	ErrSuperseded = errors.New("superseded by newer request")
)
