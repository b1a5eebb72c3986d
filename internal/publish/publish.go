package publish

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"taskboard/internal/model"
)

type WriteOptions struct {
	Overwrite   bool
	GeneratedAt time.Time
}

type WriteResult struct {
	Written []string `json:"written"`
}

// WriteBoard writes <toDir>/index.md and one <toDir>/tasks/<id>.md per task.
// Existing files are kept unless Overwrite is set.
func WriteBoard(tasks []model.Task, toDir string, opt WriteOptions) (WriteResult, error) {
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	toDir = filepath.Clean(toDir)

	tasksDir := filepath.Join(toDir, "tasks")
	if err := os.MkdirAll(tasksDir, 0o755); err != nil {
		return WriteResult{}, err
	}

	indexPath := filepath.Join(toDir, "index.md")
	if err := writeFile(indexPath, []byte(RenderBoardMarkdown(tasks, opt.GeneratedAt)), opt.Overwrite); err != nil {
		return WriteResult{}, err
	}

	written := []string{indexPath}
	for _, t := range tasks {
		id := strings.TrimSpace(t.ID)
		if id == "" || strings.ContainsAny(id, `/\`) {
			continue
		}
		p := filepath.Join(tasksDir, id+".md")
		if err := writeFile(p, []byte(RenderTaskMarkdown(t)), opt.Overwrite); err != nil {
			return WriteResult{}, err
		}
		written = append(written, p)
	}
	return WriteResult{Written: written}, nil
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
