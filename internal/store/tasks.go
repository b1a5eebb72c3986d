package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"taskboard/internal/model"
)

// ErrNotFound is returned when a task id does not exist.
var ErrNotFound = errors.New("task not found")

// NewTask is the input to Create. Empty Status and Priority default to TODO and
// MEDIUM.
type NewTask struct {
	Title       string
	Description string
	Status      model.Bucket
	Priority    model.Priority
	DueDate     *time.Time
	AssigneeID  string
	Assignee    string
	ProjectID   string
	ProjectName string
}

// Tasks is the SQLite-backed task table served by the API.
type Tasks struct {
	db  *sql.DB
	now func() time.Time
}

// OpenTasks opens (creating if needed) the task database at path and applies
// migrations. ":memory:" is accepted for throwaway databases.
func OpenTasks(ctx context.Context, path string) (*Tasks, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("open tasks: empty db path")
	}
	memory := path == ":memory:"
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if memory {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateTasks(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Tasks{db: db, now: time.Now}, nil
}

func migrateTasks(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			priority TEXT NOT NULL,
			due_date_unixms INTEGER,
			assignee_id TEXT NOT NULL DEFAULT '',
			assignee TEXT NOT NULL DEFAULT '',
			project_id TEXT NOT NULL DEFAULT '',
			project_name TEXT NOT NULL DEFAULT '',
			comments INTEGER NOT NULL DEFAULT 0,
			position INTEGER NOT NULL,
			created_at_unixms INTEGER NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_position ON tasks(position);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tasks) Close() error { return t.db.Close() }

const taskColumns = `id, title, description, status, priority, due_date_unixms,
	assignee_id, assignee, project_id, project_name, comments,
	created_at_unixms, updated_at_unixms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(r rowScanner) (model.Task, error) {
	var (
		tk                 model.Task
		status, priority   string
		due                sql.NullInt64
		createdMs, updated int64
	)
	if err := r.Scan(&tk.ID, &tk.Title, &tk.Description, &status, &priority, &due,
		&tk.AssigneeID, &tk.Assignee, &tk.ProjectID, &tk.ProjectName, &tk.Comments,
		&createdMs, &updated); err != nil {
		return model.Task{}, err
	}
	tk.Bucket = model.Bucket(status)
	tk.Priority = model.Priority(priority)
	if due.Valid {
		d := time.UnixMilli(due.Int64).UTC()
		tk.DueDate = &d
	}
	tk.CreatedAt = time.UnixMilli(createdMs).UTC()
	tk.UpdatedAt = time.UnixMilli(updated).UTC()
	return tk, nil
}

// List returns the tasks of projectID in board order. An empty projectID lists
// every task.
func (t *Tasks) List(ctx context.Context, projectID string) ([]model.Task, error) {
	q := `SELECT ` + taskColumns + ` FROM tasks`
	var args []any
	if projectID != "" {
		q += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	rows, err := t.db.QueryContext(ctx, q+` ORDER BY position, created_at_unixms, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Task, 0, 16)
	for rows.Next() {
		tk, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tk)
	}
	return out, rows.Err()
}

func (t *Tasks) Get(ctx context.Context, id string) (model.Task, error) {
	row := t.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, strings.TrimSpace(id))
	tk, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, ErrNotFound
	}
	return tk, err
}

func (t *Tasks) Create(ctx context.Context, in NewTask) (model.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Task{}, errors.New("create task: missing title")
	}
	status := in.Status
	if status == "" {
		status = model.BucketTodo
	}
	if !status.Valid() {
		return model.Task{}, fmt.Errorf("create task: invalid status %q", string(status))
	}
	priority := in.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !priority.Valid() {
		return model.Task{}, fmt.Errorf("create task: invalid priority %q", string(priority))
	}

	nowMs := t.now().UTC().UnixMilli()
	var due any
	if in.DueDate != nil {
		due = in.DueDate.UTC().UnixMilli()
	}
	id := uuid.NewString()

	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return model.Task{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var pos int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), 0) + 1 FROM tasks`).Scan(&pos); err != nil {
		return model.Task{}, err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO tasks(id, title, description, status, priority, due_date_unixms,
		assignee_id, assignee, project_id, project_name, comments, position, created_at_unixms, updated_at_unixms)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		id, title, strings.TrimSpace(in.Description), string(status), string(priority), due,
		strings.TrimSpace(in.AssigneeID), strings.TrimSpace(in.Assignee),
		strings.TrimSpace(in.ProjectID), strings.TrimSpace(in.ProjectName),
		pos, nowMs, nowMs); err != nil {
		return model.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Task{}, err
	}
	return t.Get(ctx, id)
}

// UpdateBucket moves a task and returns the updated row.
func (t *Tasks) UpdateBucket(ctx context.Context, id string, b model.Bucket) (model.Task, error) {
	if !b.Valid() {
		return model.Task{}, fmt.Errorf("update task: invalid status %q", string(b))
	}
	res, err := t.db.ExecContext(ctx, `UPDATE tasks SET status = ?, updated_at_unixms = ? WHERE id = ?`,
		string(b), t.now().UTC().UnixMilli(), strings.TrimSpace(id))
	if err != nil {
		return model.Task{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Task{}, ErrNotFound
	}
	return t.Get(ctx, id)
}

func (t *Tasks) Delete(ctx context.Context, id string) error {
	res, err := t.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count reports the number of tasks.
func (t *Tasks) Count(ctx context.Context) (int, error) {
	var n int
	err := t.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n)
	return n, err
}

// Ping checks the database connection.
func (t *Tasks) Ping(ctx context.Context) error { return t.db.PingContext(ctx) }
