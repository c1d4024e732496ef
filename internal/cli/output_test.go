package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/libroglot/lector/internal/models"
)

func sampleResponse() *models.SearchResponse {
	return &models.SearchResponse{
		Query: "whale",
		Total: 1,
		Results: []models.SearchResult{
			{
				ID:        "0-15",
				Text:      "...a <mark>whale</mark> of a tale...",
				Paragraph: 1,
				Position:  15,
				Match:     "whale",
			},
		},
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query != "whale" || decoded.Total != 1 {
		t.Errorf("decoded: %+v", decoded)
	}
	if len(decoded.Results) != 1 || decoded.Results[0].ID != "0-15" {
		t.Errorf("results: %+v", decoded.Results)
	}
}

func TestWriteSearchResults_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatalf("WriteSearchResults(text): %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "1 matches") {
		t.Errorf("missing total: %s", out)
	}
	if !strings.Contains(out, "[whale]") {
		t.Errorf("highlight markers not rendered: %s", out)
	}
	if strings.Contains(out, "<mark>") {
		t.Errorf("raw markup leaked into text output: %s", out)
	}
}

func TestWriteSearchResults_TextNoMatches(t *testing.T) {
	var buf bytes.Buffer
	resp := &models.SearchResponse{Query: "nothing"}
	if err := WriteSearchResults(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `No matches for "nothing"`) {
		t.Errorf("output: %s", buf.String())
	}
}

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		name     string
		s        string
		maxWords int
		want     string
	}{
		{"under limit", "one two", 5, "one two"},
		{"at limit", "one two three", 3, "one two three"},
		{"over limit", "one two three four", 2, "one two..."},
		{"empty", "", 3, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateWords(tt.s, tt.maxWords); got != tt.want {
				t.Errorf("TruncateWords(%q, %d) = %q, want %q", tt.s, tt.maxWords, got, tt.want)
			}
		})
	}
}
