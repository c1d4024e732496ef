package models

// SearchOptions configures how a query is matched against book text.
type SearchOptions struct {
	// CaseSensitive disables case folding in matching.
	CaseSensitive bool `json:"caseSensitive"`
	// WholeWords wraps the escaped term in word-boundary anchors.
	// Ignored when Regex is set, since the user supplies the full pattern.
	WholeWords bool `json:"wholeWords"`
	// Regex treats the query as a user-supplied pattern instead of a literal.
	Regex bool `json:"regex"`
}

// SearchResult is a single match with its surrounding context window.
type SearchResult struct {
	// ID is "{paragraphIndex}-{matchOffset}", unique within one search.
	ID string `json:"id"`
	// Text is the context window with the match wrapped in highlight markers
	// and ellipsis markers on sides where the window was truncated.
	Text string `json:"text"`
	// Paragraph is the 1-based paragraph number the match was found in.
	Paragraph int `json:"paragraph"`
	// Position is the byte offset of the match within the paragraph.
	Position int `json:"position"`
	// Match is the exact matched substring.
	Match string `json:"match"`
}

// SearchRequest is the API request body for an in-book search.
type SearchRequest struct {
	Query   string        `json:"query"`
	Options SearchOptions `json:"options"`
}

// SearchResponse wraps search results for the API.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
	Query   string         `json:"query"`
}
