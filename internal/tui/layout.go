package tui

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

// maxMeasuredLine bounds StringWidth cost: longer lines are cut before measuring.
const maxMeasuredLine = 8192

// normalizePane forces s to exactly width cells per line (ANSI-aware) and height
// lines, so columns joined side by side stay aligned. height 0 keeps the line
// count.
func normalizePane(s string, width, height int) string {
	width = max(width, 0)
	lines := strings.Split(s, "\n")
	if height > 0 {
		lines = fitLines(lines, height)
	}
	for i, ln := range lines {
		lines[i] = fitLine(ln, width)
	}
	return strings.Join(lines, "\n")
}

func fitLines(lines []string, height int) []string {
	if len(lines) >= height {
		return lines[:height]
	}
	return append(lines, make([]string, height-len(lines))...)
}

// fitLine pads or truncates one line to width cells.
func fitLine(ln string, width int) string {
	if width > 0 && len(ln) > maxMeasuredLine {
		ln = xansi.Cut(ln, 0, width)
	}
	w := xansi.StringWidth(ln)
	if w > width {
		ln = truncateToWidth(ln, width)
		w = xansi.StringWidth(ln)
	}
	if w < width {
		ln += strings.Repeat(" ", width-w)
	}
	return ln
}

// truncateToWidth flattens s to one line and cuts it to w cells, ending in an
// ellipsis when something was dropped.
func truncateToWidth(s string, w int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	switch {
	case w <= 0:
		return ""
	case xansi.StringWidth(s) <= w:
		return s
	case w == 1:
		return xansi.Cut(s, 0, 1)
	}
	return xansi.Cut(s, 0, w-1) + "…"
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
