package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"taskboard/internal/config"
	"taskboard/internal/format"
	"taskboard/internal/logging"
	"taskboard/internal/remote"
	"taskboard/internal/tui"
)

type App struct {
	ConfigFile string
	Dir        string

	Config *config.Config
	Log    *logrus.Logger

	logCloser io.Closer
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:           "taskboard",
		Short:         "Kanban task board (TUI) with optimistic drag-and-drop",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Start the interactive board
  taskboard

  # Run the task API locally with demo data
  taskboard serve --seed

  # Scriptable commands
  taskboard tasks list
  taskboard tasks move <task-id> done
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app)
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.Options{ConfigFile: app.ConfigFile, Dir: app.Dir, Flags: cmd.Flags()})
		if err != nil {
			return writeErr(cmd, err)
		}
		app.Config = cfg
		// The TUI owns the terminal, so it logs to a file.
		if cmd == cmd.Root() {
			app.Log, app.logCloser, err = logging.NewFile(cfg.LogLevel, cfg.LogFile)
		} else {
			app.Log, err = logging.New(cfg.LogLevel, cmd.ErrOrStderr())
		}
		if err != nil {
			return writeErr(cmd, err)
		}
		return nil
	}

	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if app.logCloser != nil {
			return app.logCloser.Close()
		}
		return nil
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&app.ConfigFile, "config", envOr("TASKBOARD_CONFIG", ""), "Config file (default: <dir>/config.yaml when present)")
	pf.StringVar(&app.Dir, "dir", envOr("TASKBOARD_DIR", ""), "Config and state directory (default: ~/.taskboard)")
	pf.String("api-url", "", "Task API base URL")
	pf.String("token", "", "Bearer token for the task API")
	pf.Duration("refresh", 0, "Board refresh interval (0 disables periodic refresh)")
	pf.Duration("move-timeout", 0, "Deadline for each remote status update")
	pf.Duration("fetch-timeout", 0, "Deadline for each board fetch")
	pf.String("project", "", "Only show and create tasks of this project id")
	pf.String("log-level", "", "Log level (trace|debug|info|warn|error)")
	pf.String("log-file", "", "TUI log file")
	pf.String("format", "", "Output format (json|edn)")
	pf.Bool("pretty", false, "Pretty-print output")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newTokenCmd(app))
	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newPublishCmd(app))

	return cmd
}

func runTUI(cmd *cobra.Command, app *App) error {
	cfg := app.Config
	return tui.Run(commandContext(cmd), tui.Options{
		Remote:          app.client(),
		Logger:          app.Log,
		RefreshInterval: cfg.RefreshInterval,
		MoveTimeout:     cfg.MoveTimeout,
		FetchTimeout:    cfg.FetchTimeout,
		Project:         cfg.ProjectID,
		StateDir:        cfg.StateDir,
	})
}

// client is scoped to the configured project, if any.
func (app *App) client() *remote.Client {
	c := remote.New(app.Config.APIURL, app.Config.Token)
	c.ProjectID = app.Config.ProjectID
	return c
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Config.Format, app.Config.Pretty)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
