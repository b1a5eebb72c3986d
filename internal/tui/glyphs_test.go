package tui

import "testing"

func TestGlyphs_FromEnv(t *testing.T) {
	t.Cleanup(func() { setGlyphs(unicodeGlyphs) })

	t.Setenv("TASKBOARD_TUI_GLYPHS", "")
	setGlyphs(asciiGlyphs)
	applyGlyphPreference()
	if got := glyphs().name; got != "unicode" {
		t.Fatalf("expected unicode glyphs by default; got %q", got)
	}

	t.Setenv("TASKBOARD_TUI_GLYPHS", "ASCII")
	applyGlyphPreference()
	if got := glyphGrab(); got != ">" {
		t.Fatalf("expected ascii grab glyph; got %q", got)
	}
	if got := glyphArrow(); got != "->" {
		t.Fatalf("expected ascii arrow; got %q", got)
	}

	t.Setenv("TASKBOARD_TUI_GLYPHS", "bogus")
	applyGlyphPreference()
	if got := glyphs().name; got != "ascii" {
		t.Fatalf("expected unknown value to keep ascii; got %q", got)
	}
}
