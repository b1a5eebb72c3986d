package tui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

type rendererKey struct {
	dark  bool
	width int
}

// descriptions caches glamour renderers for the detail pane. WithAutoStyle is
// avoided because its background query can block on some terminals; the
// background is already resolved by applyThemePreference.
var descriptions = struct {
	mu sync.Mutex
	m  map[rendererKey]*glamour.TermRenderer
}{m: map[rendererKey]*glamour.TermRenderer{}}

// renderMarkdown renders a task description without a document margin so it
// lines up with the rest of the detail pane. On renderer errors the raw text is
// returned.
func renderMarkdown(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 10 {
		width = 10
	}
	r, err := descriptionRenderer(rendererKey{dark: lipgloss.HasDarkBackground(), width: width})
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}

func descriptionRenderer(k rendererKey) (*glamour.TermRenderer, error) {
	descriptions.mu.Lock()
	defer descriptions.mu.Unlock()
	if r := descriptions.m[k]; r != nil {
		return r, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(descriptionStyle(k.dark)),
		glamour.WithWordWrap(k.width),
	)
	if err != nil {
		return nil, err
	}
	descriptions.m[k] = r
	return r, nil
}

// descriptionStyle starts from glamour's light or dark style and recolors text,
// code and links with the board palette.
func descriptionStyle(dark bool) ansi.StyleConfig {
	cfg := styles.LightStyleConfig
	if dark {
		cfg = styles.DarkStyleConfig
	}
	pick := func(c lipgloss.AdaptiveColor) *string {
		s := c.Light
		if dark {
			s = c.Dark
		}
		return &s
	}

	zero := uint(0)
	cfg.Document.Margin = &zero

	text := pick(colorCardMetaFg)
	for _, blk := range []*ansi.StyleBlock{&cfg.Heading, &cfg.H1, &cfg.H2, &cfg.H3} {
		blk.Color = text
	}
	cfg.Text.Color = text
	cfg.Code.Color = text
	cfg.CodeBlock.Color = text
	if cfg.CodeBlock.BackgroundColor == nil {
		cfg.CodeBlock.BackgroundColor = pick(colorControlBg)
	}

	underline := true
	cfg.Link.Color = pick(colorAccent)
	cfg.Link.Underline = &underline
	cfg.LinkText.Color = pick(colorAccent)

	cfg.Strong.Color = nil
	cfg.Emph.Color = nil
	return cfg
}
