package tui

import (
	"os"
	"strings"
	"sync/atomic"
)

// glyphSet is the symbols the board draws with. The ASCII set is for fonts that
// render some of the unicode ones poorly.
type glyphSet struct {
	name  string
	grab  string // card being dragged
	arrow string // drop column, drag overlay
	hrule string // card separators, pane rules
	dot   string // meta separator
}

var (
	unicodeGlyphs = glyphSet{name: "unicode", grab: "✥", arrow: "→", hrule: "─", dot: "·"}
	asciiGlyphs   = glyphSet{name: "ascii", grab: ">", arrow: "->", hrule: "-", dot: "*"}
)

var currentGlyphs atomic.Pointer[glyphSet]

// applyGlyphPreference reads TASKBOARD_TUI_GLYPHS; unknown values keep the
// current set.
func applyGlyphPreference() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("TASKBOARD_TUI_GLYPHS"))) {
	case "", "unicode", "utf8":
		setGlyphs(unicodeGlyphs)
	case "ascii":
		setGlyphs(asciiGlyphs)
	}
}

func setGlyphs(gs glyphSet) { currentGlyphs.Store(&gs) }

func glyphs() glyphSet {
	if gs := currentGlyphs.Load(); gs != nil {
		return *gs
	}
	return unicodeGlyphs
}

func glyphGrab() string  { return glyphs().grab }
func glyphArrow() string { return glyphs().arrow }
func glyphHRule() string { return glyphs().hrule }
func glyphDot() string   { return glyphs().dot }
