package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"taskboard/internal/model"
)

const uiStateFileName = "ui_state.json"

// UIState is small, best-effort board state restored on relaunch. Callers
// should tolerate missing or invalid data.
type UIState struct {
	Version int `json:"version"`

	Column         model.Bucket `json:"column,omitempty"`
	SelectedTaskID string       `json:"selectedTaskId,omitempty"`
	ShowDetail     bool         `json:"showDetail,omitempty"`

	// Appearance is one of: auto|light|dark|mono
	Appearance string `json:"appearance,omitempty"`
}

func uiStatePath(dir string) string {
	return filepath.Join(dir, uiStateFileName)
}

// LoadUIState reads the state file from dir. A missing or corrupt file yields
// the default state.
func LoadUIState(dir string) (*UIState, error) {
	if strings.TrimSpace(dir) == "" {
		return &UIState{Version: 1}, nil
	}
	b, err := os.ReadFile(uiStatePath(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &UIState{Version: 1}, nil
		}
		return nil, err
	}
	var st UIState
	if err := json.Unmarshal(b, &st); err != nil {
		return &UIState{Version: 1}, nil
	}
	if st.Version == 0 {
		st.Version = 1
	}
	if st.Column != "" && !st.Column.Valid() {
		st.Column = ""
	}
	return &st, nil
}

func SaveUIState(dir string, st *UIState) error {
	if st == nil || strings.TrimSpace(dir) == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if st.Version == 0 {
		st.Version = 1
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(dir, ".ui_state-*.tmp", uiStatePath(dir), b, 0o644)
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}
