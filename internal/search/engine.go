// Package search implements in-book text search with contextual snippets.
package search

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/libroglot/lector/internal/apperr"
	"github.com/libroglot/lector/internal/extract"
	"github.com/libroglot/lector/internal/models"
	"github.com/libroglot/lector/pkg/utils"
)

// Highlight and truncation markers embedded in result snippets.
const (
	HighlightOpen  = "<mark>"
	HighlightClose = "</mark>"
	Ellipsis       = "..."
)

// DefaultContextRadius is the maximum number of bytes of context kept on each
// side of a match, clamped to the paragraph.
const DefaultContextRadius = 150

// Engine matches a query against extracted book text and builds results with
// highlighted context windows.
type Engine struct {
	extractor *extract.Extractor
	recent    *RecentSearches
	radius    int
	logger    *zap.Logger
}

// NewEngine creates a search engine. recent may be nil to disable the
// recent-searches side effect; radius <= 0 uses DefaultContextRadius.
func NewEngine(extractor *extract.Extractor, recent *RecentSearches, radius int, logger *zap.Logger) *Engine {
	if radius <= 0 {
		radius = DefaultContextRadius
	}
	return &Engine{
		extractor: extractor,
		recent:    recent,
		radius:    radius,
		logger:    logger,
	}
}

// Search matches query against content. Content may be raw markup; it is
// normalized to plain paragraphs first. An empty or whitespace-only query
// returns no results and no error. A malformed regex pattern returns
// apperr.ErrInvalidQuery with zero results.
//
// Results follow paragraph order, then left-to-right match order within a
// paragraph. As a side effect, every successful non-empty query is recorded
// in the persisted recent-searches list.
func (e *Engine) Search(ctx context.Context, content, query string, opts models.SearchOptions) ([]models.SearchResult, error) {
	term := strings.TrimSpace(query)
	if term == "" {
		return nil, nil
	}

	pattern, err := buildPattern(term, opts)
	if err != nil {
		return nil, err
	}

	text := e.extractor.Extract(content)
	paragraphs := e.extractor.Paragraphs(text)

	var results []models.SearchResult
	for i, paragraph := range paragraphs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, loc := range pattern.FindAllStringIndex(paragraph, -1) {
			start, end := loc[0], loc[1]
			if start == end {
				continue // zero-length matches carry no text
			}
			results = append(results, models.SearchResult{
				ID:        fmt.Sprintf("%d-%d", i, start),
				Text:      e.snippet(paragraph, start, end),
				Paragraph: i + 1,
				Position:  start,
				Match:     paragraph[start:end],
			})
		}
	}

	if e.recent != nil {
		e.recent.Add(ctx, term)
	}
	e.logger.Debug("search completed",
		zap.String("query", term),
		zap.Int("paragraphs", len(paragraphs)),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// Recent returns the persisted recent-searches list, most recent first.
func (e *Engine) Recent(ctx context.Context) []string {
	if e.recent == nil {
		return nil
	}
	return e.recent.List(ctx)
}

// buildPattern compiles the effective match pattern for term. Literal terms
// are escaped for regex metacharacters; whole-word matching wraps the escaped
// term in word-boundary anchors, and is ignored for user-supplied patterns.
func buildPattern(term string, opts models.SearchOptions) (*regexp.Regexp, error) {
	pattern := term
	if !opts.Regex {
		pattern = regexp.QuoteMeta(term)
		if opts.WholeWords {
			pattern = `\b` + pattern + `\b`
		}
	}
	if !opts.CaseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidQuery, err)
	}
	return re, nil
}

// snippet builds the context window around the match at paragraph[start:end]:
// up to radius bytes on each side, clamped to the paragraph, snapped to rune
// boundaries, with ellipsis markers on truncated sides and the match wrapped
// in highlight markers exactly once.
func (e *Engine) snippet(paragraph string, start, end int) string {
	winStart := utils.SnapRuneStart(paragraph, start-e.radius)
	winEnd := utils.SnapRuneEnd(paragraph, end+e.radius)

	var b strings.Builder
	if winStart > 0 {
		b.WriteString(Ellipsis)
	}
	b.WriteString(paragraph[winStart:start])
	b.WriteString(HighlightOpen)
	b.WriteString(paragraph[start:end])
	b.WriteString(HighlightClose)
	b.WriteString(paragraph[end:winEnd])
	if winEnd < len(paragraph) {
		b.WriteString(Ellipsis)
	}
	return b.String()
}
