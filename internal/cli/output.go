// Package cli provides CLI output utilities for Lector.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/libroglot/lector/internal/models"
	"github.com/libroglot/lector/internal/search"
)

// OutputFormat is the format for CLI output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	if response.Total == 0 {
		fmt.Fprintf(w, "No matches for %q.\n", response.Query)
		return
	}
	fmt.Fprintf(w, "\n%d matches for %q\n\n", response.Total, response.Query)
	for _, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Paragraph %d, offset %d\n", result.Paragraph, result.Position)
		fmt.Fprintf(w, "\n%s\n\n", RenderHighlights(result.Text))
	}
}

// RenderHighlights rewrites embedded highlight markers for terminal output,
// wrapping the match in brackets instead of markup tags.
func RenderHighlights(s string) string {
	s = strings.ReplaceAll(s, search.HighlightOpen, "[")
	s = strings.ReplaceAll(s, search.HighlightClose, "]")
	return s
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
