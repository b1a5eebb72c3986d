package tui

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"taskboard/internal/model"
)

// The board must stay readable on light and dark backgrounds, so every color is
// adaptive and "faint" is only used on dark backgrounds.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted       = ac("240", "243")
	colorSelectedBg  = ac("#e9e9e9", "#262626")
	colorSelectedFg  = ac("235", "255")
	colorControlBg   = ac("252", "235")
	colorAccent      = ac("27", "62")
	colorAccentFg    = ac("255", "235")
	colorCardMetaFg  = ac("238", "250")
	colorFlashError  = ac("196", "160")
	colorFlashInfo   = ac("153", "24")
	colorDueFg       = ac("90", "176")
	colorPriorityFgs = map[model.Priority]lipgloss.AdaptiveColor{
		model.PriorityHigh:   ac("160", "203"),
		model.PriorityMedium: ac("130", "214"),
		model.PriorityLow:    ac("28", "114"),
	}
	colorBucketFgs = map[model.Bucket]lipgloss.AdaptiveColor{
		model.BucketTodo:       ac("25", "111"),
		model.BucketInProgress: ac("130", "214"),
		model.BucketDone:       ac("28", "114"),
	}
)

// boardStyles is the style sheet for one render. Build it per frame: faint and
// the adaptive colors depend on the detected background.
type boardStyles struct {
	muted lipgloss.Style
	bold  lipgloss.Style
	meta  lipgloss.Style
	due   lipgloss.Style

	header         lipgloss.Style
	headerSelected lipgloss.Style
	dropTarget     lipgloss.Style

	cardSelected lipgloss.Style
	cardGrabbed  lipgloss.Style
	cardDone     lipgloss.Style

	overlay    lipgloss.Style
	confirm    lipgloss.Style
	flashInfo  lipgloss.Style
	flashError lipgloss.Style
	offline    lipgloss.Style
	spinner    lipgloss.Style
}

func newBoardStyles() boardStyles {
	bold := lipgloss.NewStyle().Bold(true)
	return boardStyles{
		muted: faintIfDark(lipgloss.NewStyle().Foreground(colorMuted)),
		bold:  bold,
		meta:  lipgloss.NewStyle().Foreground(colorCardMetaFg),
		due:   lipgloss.NewStyle().Foreground(colorDueFg),

		header:         bold.Background(colorControlBg),
		headerSelected: bold.Foreground(colorSelectedFg).Background(colorSelectedBg),
		dropTarget:     bold.Foreground(colorAccentFg).Background(colorAccent),

		cardSelected: bold.Foreground(colorSelectedFg).Background(colorSelectedBg),
		cardGrabbed:  bold.Foreground(colorAccentFg).Background(colorAccent),
		cardDone:     faintIfDark(lipgloss.NewStyle()).Foreground(colorMuted).Strikethrough(true),

		overlay:    bold.Foreground(colorAccentFg).Background(colorAccent).Padding(0, 1),
		confirm:    bold.Foreground(colorAccentFg).Background(colorFlashError).Padding(0, 1),
		flashInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(colorFlashInfo).Padding(0, 1),
		flashError: lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(colorFlashError).Padding(0, 1),
		offline:    lipgloss.NewStyle().Foreground(colorPriorityFgs[model.PriorityHigh]),
		spinner:    lipgloss.NewStyle().Foreground(colorAccent),
	}
}

// columnHeader picks the header style: drop target over selection over the
// bucket's own tint.
func (s boardStyles) columnHeader(b model.Bucket, selected, drop bool) lipgloss.Style {
	switch {
	case drop:
		return s.dropTarget
	case selected:
		return s.headerSelected
	}
	if c, ok := colorBucketFgs[b]; ok {
		return s.header.Foreground(c)
	}
	return s.header
}

// priority returns the badge style and label for p; ok is false for an unset or
// unknown priority.
func (s boardStyles) priority(p model.Priority) (lipgloss.Style, string, bool) {
	c, ok := colorPriorityFgs[p]
	if !ok {
		return lipgloss.Style{}, "", false
	}
	st := lipgloss.NewStyle().Foreground(c)
	if p == model.PriorityHigh {
		st = st.Bold(true)
	}
	return st, strings.ToLower(string(p)), true
}

func (s boardStyles) flash(isErr bool) lipgloss.Style {
	if isErr {
		return s.flashError
	}
	return s.flashInfo
}

// appearance is the saved color preference (ui_state.json "appearance").
type appearance int

const (
	appearanceAuto appearance = iota
	appearanceLight
	appearanceDark
	appearanceMono
)

func parseAppearance(s string) (appearance, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto", "":
		return appearanceAuto, true
	case "light":
		return appearanceLight, true
	case "dark":
		return appearanceDark, true
	case "mono", "none":
		return appearanceMono, true
	}
	return appearanceAuto, false
}

func (a appearance) String() string {
	switch a {
	case appearanceLight:
		return "light"
	case appearanceDark:
		return "dark"
	case appearanceMono:
		return "mono"
	default:
		return "auto"
	}
}

// colorProfileFor upgrades a detected profile when TERM/COLORTERM claim more
// (macOS Terminal.app under-reports). Only NO_COLOR forces ASCII; CLICOLOR is
// ignored because it disables colors in a TUI by accident.
func colorProfileFor(detected termenv.Profile, getenv func(string) string) termenv.Profile {
	if strings.TrimSpace(getenv("NO_COLOR")) != "" {
		return termenv.Ascii
	}
	term := strings.ToLower(strings.TrimSpace(getenv("TERM")))
	colorterm := strings.ToLower(strings.TrimSpace(getenv("COLORTERM")))
	switch {
	case strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit"):
		if detected != termenv.Ascii {
			return termenv.TrueColor
		}
	case strings.Contains(term, "256color"):
		if detected == termenv.Ascii || detected == termenv.ANSI {
			return termenv.ANSI256
		}
	}
	return detected
}

// darkBackgroundFor resolves the background: the saved appearance, then
// TASKBOARD_TUI_THEME, then COLORFGBG ("15;0" is fg;bg). ok is false when none
// of them decides.
func darkBackgroundFor(saved appearance, getenv func(string) string) (dark, ok bool) {
	switch saved {
	case appearanceLight:
		return false, true
	case appearanceDark:
		return true, true
	}
	if a, valid := parseAppearance(getenv("TASKBOARD_TUI_THEME")); valid {
		switch a {
		case appearanceLight:
			return false, true
		case appearanceDark:
			return true, true
		}
	}
	if v := strings.TrimSpace(getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			return bg < 7, true
		}
	}
	return false, false
}

func applyColorProfilePreference() {
	lipgloss.SetColorProfile(colorProfileFor(termenv.ColorProfile(), os.Getenv))
}

func applyThemePreference(saved string) {
	a, _ := parseAppearance(saved)
	if a == appearanceMono {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	if dark, ok := darkBackgroundFor(a, os.Getenv); ok {
		lipgloss.SetHasDarkBackground(dark)
		return
	}
	if runtime.GOOS == "darwin" {
		if dark, ok := macOSHasDarkAppearance(); ok {
			lipgloss.SetHasDarkBackground(dark)
		}
	}
}

func macOSHasDarkAppearance() (dark bool, ok bool) {
	// `defaults read -g AppleInterfaceStyle` prints "Dark" in dark mode and exits 1
	// in light mode (key missing).
	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	out, err := exec.CommandContext(ctx, "defaults", "read", "-g", "AppleInterfaceStyle").CombinedOutput()
	if ctx.Err() != nil {
		return false, false
	}
	if err == nil {
		return strings.Contains(strings.ToLower(string(out)), "dark"), true
	}
	if ee, ok := err.(*exec.ExitError); ok && ee.ExitCode() == 1 {
		return false, true
	}
	return false, false
}
