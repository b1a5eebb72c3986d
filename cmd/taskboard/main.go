package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"taskboard/internal/cli"
)

func isTaskID(s string) bool {
	_, err := uuid.Parse(strings.TrimSpace(s))
	return err == nil
}

// rewriteDirectTaskLookupArgs turns `taskboard <task-id>` into
// `taskboard tasks show <task-id>`. Cobra treats the first positional token as
// a subcommand, so argv is rewritten before parsing; persistent flags may come
// first.
func rewriteDirectTaskLookupArgs(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--config":        true,
		"--dir":           true,
		"--api-url":       true,
		"--token":         true,
		"--refresh":       true,
		"--move-timeout":  true,
		"--fetch-timeout": true,
		"--project":       true,
		"--log-level":     true,
		"--log-file":      true,
		"--format":        true,
	}

	rewriteAt := func(i int) []string {
		out := make([]string, 0, len(argv)+2)
		out = append(out, argv[:i]...)
		out = append(out, "tasks", "show")
		return append(out, argv[i:]...)
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		switch {
		case a == "":
			continue
		case a == "--":
			if i+1 < len(argv) && isTaskID(argv[i+1]) {
				return rewriteAt(i + 1)
			}
			return argv
		case strings.HasPrefix(a, "-"):
			// Unknown flags are assumed to be booleans so a task id is never
			// swallowed as a flag value.
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++
			}
			continue
		case isTaskID(a):
			return rewriteAt(i)
		default:
			return argv
		}
	}
	return argv
}

func main() {
	os.Args = rewriteDirectTaskLookupArgs(os.Args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
