package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
}

func TestSnapRuneBoundaries(t *testing.T) {
	s := "aéb" // 'é' is two bytes: positions 1,2
	if got := SnapRuneStart(s, 2); got != 1 {
		t.Errorf("SnapRuneStart mid-rune: got %d, want 1", got)
	}
	if got := SnapRuneEnd(s, 2); got != 3 {
		t.Errorf("SnapRuneEnd mid-rune: got %d, want 3", got)
	}
	if got := SnapRuneStart(s, -1); got != 0 {
		t.Errorf("SnapRuneStart negative: got %d", got)
	}
	if got := SnapRuneEnd(s, 10); got != len(s) {
		t.Errorf("SnapRuneEnd past end: got %d", got)
	}
	if got := SnapRuneStart("abc", 2); got != 2 {
		t.Errorf("SnapRuneStart on boundary: got %d", got)
	}
}
