// Package extract normalizes book markup into plain paragraph text for
// search indexing.
package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// blockTags are the elements whose boundaries become paragraph breaks.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "section": true, "article": true,
}

// skipTags are elements whose text content is never book text.
var skipTags = map[string]bool{
	"script": true, "style": true, "head": true, "title": true,
}

var paragraphSep = regexp.MustCompile(`\n\s*\n`)

// Extractor converts arbitrary book markup into plain text.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract strips tags from content, inserting blank-line separators at block
// element boundaries so paragraph structure survives. Content without any
// markup is returned as-is. Invalid UTF-8 sequences are replaced with the
// replacement character.
func (e *Extractor) Extract(content string) string {
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, "�")
	}
	if !strings.Contains(content, "<") {
		return content
	}

	var out strings.Builder
	z := html.NewTokenizer(strings.NewReader(content))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return out.String()
		case html.TextToken:
			if skip == 0 {
				out.WriteString(string(z.Text()))
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipTags[tag] {
				skip++
			}
			if blockTags[tag] {
				out.WriteString("\n\n")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipTags[tag] && skip > 0 {
				skip--
			}
			if blockTags[tag] {
				out.WriteString("\n\n")
			}
		}
	}
}

// Paragraphs splits extracted text into paragraphs at blank-line boundaries.
// Leading and trailing whitespace is trimmed from each paragraph; empty
// paragraphs are dropped.
func (e *Extractor) Paragraphs(text string) []string {
	parts := paragraphSep.Split(text, -1)
	paragraphs := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}
