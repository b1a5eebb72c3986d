package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"taskboard/internal/board"
	"taskboard/internal/format"
	"taskboard/internal/model"
	"taskboard/internal/remote"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "List, show, move, create and delete tasks",
	}
	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksShowCmd(app))
	cmd.AddCommand(newTasksMoveCmd(app))
	cmd.AddCommand(newTasksCreateCmd(app))
	cmd.AddCommand(newTasksDeleteCmd(app))
	return cmd
}

func newTasksListCmd(app *App) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks in board order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter model.Bucket
			if strings.TrimSpace(status) != "" {
				b, ok := model.ParseBucket(status)
				if !ok {
					return writeErr(cmd, invalidBucketError{value: status})
				}
				filter = b
			}

			tasks, err := app.client().ListTasks(commandContext(cmd))
			if err != nil {
				return writeErr(cmd, explainRemote(err))
			}

			counts := map[string]int{}
			for _, b := range model.Buckets() {
				counts[string(b)] = 0
			}
			out := make([]model.Task, 0, len(tasks))
			for _, t := range tasks {
				counts[string(t.Bucket)]++
				if filter == "" || t.Bucket == filter {
					out = append(out, t)
				}
			}
			return writeOut(cmd, app, format.Envelope{
				Data: out,
				Meta: map[string]any{"count": len(out), "byStatus": counts},
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only tasks in this column (todo|in-progress|done)")
	return cmd
}

func newTasksShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a single task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			tasks, err := app.client().ListTasks(commandContext(cmd))
			if err != nil {
				return writeErr(cmd, explainRemote(err))
			}
			for _, t := range tasks {
				if t.ID == id {
					return writeOut(cmd, app, format.Envelope{
						Data:  t,
						Hints: []string{"taskboard tasks move " + id + " <todo|in-progress|done>"},
					})
				}
			}
			return writeErr(cmd, errNotFound("task", id))
		},
	}
}

func newTasksMoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "move <task-id> <status>",
		Short: "Move a task to another column",
		Long: strings.TrimSpace(`
Moves a task the same way dropping a card on the board does: the move is
recorded locally, sent to the API, and confirmed or rolled back from the reply.
Moving a task to the column it is already in is a no-op.
`),
		Example: strings.TrimSpace(`
taskboard tasks move <task-id> in-progress
taskboard tasks move <task-id> DONE
`),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			id := strings.TrimSpace(args[0])
			target, ok := model.ParseBucket(args[1])
			if !ok {
				return writeErr(cmd, invalidBucketError{value: args[1]})
			}

			client := app.client()
			tasks, err := client.ListTasks(ctx)
			if err != nil {
				return writeErr(cmd, explainRemote(err))
			}
			ctl := board.NewController(board.NewStore(), client,
				board.WithLogger(app.Log),
				board.WithTimeout(app.Config.MoveTimeout),
			)
			ctl.Refresh(ctl.Store().Generation(), tasks)
			from, _ := ctl.Bucket(id)

			req, err := ctl.Move(id, target)
			if err != nil {
				var unknown board.UnknownTaskError
				if errors.As(err, &unknown) {
					return writeErr(cmd, errNotFound("task", id))
				}
				return writeErr(cmd, err)
			}
			if req == nil {
				t, _ := ctl.View().Get(id)
				return writeOut(cmd, app, format.Envelope{Data: t, Meta: map[string]any{"changed": false}})
			}

			if n := ctl.Resolve(ctl.Dispatch(ctx, *req)); n != nil {
				return writeErr(cmd, moveFailedError{notice: n})
			}
			t, _ := ctl.View().Get(id)
			return writeOut(cmd, app, format.Envelope{
				Data: t,
				Meta: map[string]any{"changed": true, "from": string(from), "to": string(t.Bucket)},
			})
		},
	}
}

func newTasksCreateCmd(app *App) *cobra.Command {
	var (
		title       string
		description string
		status      string
		priority    string
		due         string
		assigneeID  string
		projectID   string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		Example: strings.TrimSpace(`
taskboard tasks create --title "Write release notes"
taskboard tasks create --title "Fix login" --status in-progress --priority high --due 2026-03-01
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := remote.CreateRequest{
				Title:       strings.TrimSpace(title),
				Description: strings.TrimSpace(description),
				AssigneeID:  strings.TrimSpace(assigneeID),
				ProjectID:   strings.TrimSpace(projectID),
			}
			if req.ProjectID == "" {
				req.ProjectID = app.Config.ProjectID
			}
			if req.Title == "" {
				return writeErr(cmd, errors.New("--title is required"))
			}
			if strings.TrimSpace(status) != "" {
				b, ok := model.ParseBucket(status)
				if !ok {
					return writeErr(cmd, invalidBucketError{value: status})
				}
				req.Status = b
			}
			if strings.TrimSpace(priority) != "" {
				p := model.Priority(strings.ToUpper(strings.TrimSpace(priority)))
				if !p.Valid() {
					return writeErr(cmd, fmt.Errorf("invalid priority %q (expected low|medium|high)", priority))
				}
				req.Priority = p
			}
			if strings.TrimSpace(due) != "" {
				d, err := time.Parse(time.DateOnly, strings.TrimSpace(due))
				if err != nil {
					return writeErr(cmd, fmt.Errorf("invalid --due %q (expected YYYY-MM-DD)", due))
				}
				req.DueDate = &d
			}

			t, err := app.client().CreateTask(commandContext(cmd), req)
			if err != nil {
				return writeErr(cmd, explainRemote(err))
			}
			return writeOut(cmd, app, format.Envelope{
				Data:  t,
				Hints: []string{"taskboard tasks move " + t.ID + " in-progress"},
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Task title (required)")
	cmd.Flags().StringVar(&description, "description", "", "Markdown description")
	cmd.Flags().StringVar(&status, "status", "", "Initial column (default todo)")
	cmd.Flags().StringVar(&priority, "priority", "", "low|medium|high (default medium)")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&assigneeID, "assignee-id", "", "Assignee id")
	cmd.Flags().StringVar(&projectID, "project-id", "", "Project id (default: --project)")
	return cmd
}

func newTasksDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <task-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if err := app.client().DeleteTask(commandContext(cmd), id); err != nil {
				if errors.Is(err, board.ErrTaskNotFound) {
					return writeErr(cmd, errNotFound("task", id))
				}
				return writeErr(cmd, explainRemote(err))
			}
			return writeOut(cmd, app, format.Envelope{Data: map[string]any{"id": id, "deleted": true}})
		},
	}
}
