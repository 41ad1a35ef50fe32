package ui

import "testing"

func TestDetermineLayoutMode(t *testing.T) {
	if got := DetermineLayoutMode(140, 40); got != LayoutWide {
		t.Fatalf("expected wide, got %v", got)
	}
	if got := DetermineLayoutMode(80, 24); got != LayoutCompact {
		t.Fatalf("expected compact, got %v", got)
	}
	if got := DetermineLayoutMode(100, 24); got != LayoutCompact {
		t.Fatalf("expected compact by height, got %v", got)
	}
	if got := DetermineLayoutMode(59, 40); got != LayoutTooSmall {
		t.Fatalf("expected too-small by width, got %v", got)
	}
	if got := DetermineLayoutMode(120, 19); got != LayoutTooSmall {
		t.Fatalf("expected too-small by height, got %v", got)
	}
}
