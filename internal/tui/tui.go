// Package tui is the interactive board: one column per bucket, keyboard and
// mouse drag-and-drop, optimistic moves reconciled by internal/board.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Remote          Remote
	Logger          logrus.FieldLogger
	RefreshInterval time.Duration
	// MoveTimeout bounds each status update; zero leaves only the client timeout.
	MoveTimeout time.Duration
	// FetchTimeout bounds list, create and delete calls.
	FetchTimeout time.Duration
	// Project is the project id the Remote is scoped to. It is shown in the
	// title bar and assigned to new tasks.
	Project string
	// StateDir holds ui_state.json. Empty disables persistence.
	StateDir string
	// Appearance overrides the saved appearance (auto|light|dark|mono).
	Appearance string
}

func Run(ctx context.Context, opts Options) error {
	applyColorProfilePreference()
	m := newAppModel(ctx, opts)
	appearance := opts.Appearance
	if appearance == "" && m.uiState != nil {
		appearance = m.uiState.Appearance
	}
	applyThemePreference(appearance)
	applyGlyphPreference()

	_, err := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	).Run()
	return err
}
