package tui

import (
	"testing"

	"github.com/muesli/termenv"

	"taskboard/internal/model"
)

func envOf(kv map[string]string) func(string) string {
	return func(k string) string { return kv[k] }
}

func TestColorProfileFor(t *testing.T) {
	cases := []struct {
		name     string
		detected termenv.Profile
		env      map[string]string
		want     termenv.Profile
	}{
		{"no color wins", termenv.TrueColor, map[string]string{"NO_COLOR": "1", "COLORTERM": "truecolor"}, termenv.Ascii},
		{"colorterm upgrades", termenv.ANSI256, map[string]string{"COLORTERM": "24bit"}, termenv.TrueColor},
		{"colorterm keeps ascii", termenv.Ascii, map[string]string{"COLORTERM": "truecolor"}, termenv.Ascii},
		{"256color term", termenv.ANSI, map[string]string{"TERM": "xterm-256color"}, termenv.ANSI256},
		{"256color does not downgrade", termenv.TrueColor, map[string]string{"TERM": "xterm-256color"}, termenv.TrueColor},
		{"nothing set", termenv.ANSI, nil, termenv.ANSI},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := colorProfileFor(tc.detected, envOf(tc.env)); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDarkBackgroundFor(t *testing.T) {
	cases := []struct {
		name     string
		saved    appearance
		env      map[string]string
		dark, ok bool
	}{
		{"saved light beats env", appearanceLight, map[string]string{"TASKBOARD_TUI_THEME": "dark"}, false, true},
		{"saved dark", appearanceDark, nil, true, true},
		{"env theme", appearanceAuto, map[string]string{"TASKBOARD_TUI_THEME": "Light"}, false, true},
		{"colorfgbg dark", appearanceAuto, map[string]string{"COLORFGBG": "15;0"}, true, true},
		{"colorfgbg light", appearanceAuto, map[string]string{"COLORFGBG": "0;15"}, false, true},
		{"mono falls through", appearanceMono, map[string]string{"COLORFGBG": "15;0"}, true, true},
		{"undecided", appearanceAuto, map[string]string{"COLORFGBG": "default"}, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dark, ok := darkBackgroundFor(tc.saved, envOf(tc.env))
			if dark != tc.dark || ok != tc.ok {
				t.Fatalf("got (%v, %v), want (%v, %v)", dark, ok, tc.dark, tc.ok)
			}
		})
	}
}

func TestParseAppearance(t *testing.T) {
	for in, want := range map[string]appearance{"": appearanceAuto, "LIGHT": appearanceLight, " dark ": appearanceDark, "none": appearanceMono} {
		got, ok := parseAppearance(in)
		if !ok || got != want {
			t.Fatalf("parseAppearance(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := parseAppearance("sepia"); ok {
		t.Fatalf("expected unknown appearance to be rejected")
	}
}

func TestBoardStyles_Priority(t *testing.T) {
	ss := newBoardStyles()
	if _, label, ok := ss.priority(model.PriorityHigh); !ok || label != "high" {
		t.Fatalf("high priority: %q %v", label, ok)
	}
	if _, _, ok := ss.priority(""); ok {
		t.Fatalf("expected no badge for unset priority")
	}
}

func TestNormalizePane(t *testing.T) {
	got := normalizePane("abcdef\nx", 4, 3)
	want := "abc…\nx   \n    "
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := normalizePane("a\nb\nc", 1, 2); got != "a\nb" {
		t.Fatalf("expected height cut, got %q", got)
	}
}
