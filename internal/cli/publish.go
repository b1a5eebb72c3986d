package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"taskboard/internal/format"
	"taskboard/internal/publish"
)

func newPublishCmd(app *App) *cobra.Command {
	var (
		toDir     string
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Export the board as Markdown (index.md plus one page per task)",
		Example: strings.TrimSpace(`
taskboard publish --to ./board
taskboard publish --to ./board --overwrite
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := app.client().ListTasks(commandContext(cmd))
			if err != nil {
				return writeErr(cmd, explainRemote(err))
			}
			res, err := publish.WriteBoard(tasks, toDir, publish.WriteOptions{
				Overwrite:   overwrite,
				GeneratedAt: time.Now(),
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, format.Envelope{Data: res, Meta: map[string]any{"tasks": len(tasks)}})
		},
	}
	cmd.Flags().StringVar(&toDir, "to", "", "Output directory (required)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing files")
	return cmd
}
