// Package publish renders the board as Markdown files.
package publish

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"taskboard/internal/model"
)

// RenderTaskMarkdown renders one task page.
func RenderTaskMarkdown(t model.Task) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	writeLn("# " + title(t))
	writeLn("")
	writeLn("## Meta")
	writeLn("")
	writeLn("- ID: " + t.ID)
	writeLn("- Status: " + t.Bucket.Label())
	if t.Priority != "" {
		writeLn("- Priority: " + strings.ToLower(string(t.Priority)))
	}
	if t.DueDate != nil {
		writeLn("- Due: " + t.DueDate.UTC().Format(time.DateOnly))
	}
	if a := assignee(t); a != "" {
		writeLn("- Assignee: " + a)
	}
	if p := project(t); p != "" {
		writeLn("- Project: " + p)
	}
	if t.Comments > 0 {
		writeLn(fmt.Sprintf("- Comments: %d", t.Comments))
	}
	if !t.CreatedAt.IsZero() {
		writeLn("- Created: " + t.CreatedAt.UTC().Format(time.RFC3339))
	}
	if !t.UpdatedAt.IsZero() {
		writeLn("- Updated: " + t.UpdatedAt.UTC().Format(time.RFC3339))
	}

	if d := strings.TrimSpace(t.Description); d != "" {
		writeLn("")
		writeLn("## Description")
		writeLn("")
		writeLn(d)
	}
	return buf.String()
}

// RenderBoardMarkdown renders the index page: one section per column, tasks in
// board order, each linking to its page under tasks/.
func RenderBoardMarkdown(tasks []model.Task, generatedAt time.Time) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	writeLn("# Task board")
	writeLn("")
	if !generatedAt.IsZero() {
		writeLn("_Generated " + generatedAt.UTC().Format(time.RFC3339) + "_")
		writeLn("")
	}

	for _, b := range model.Buckets() {
		var in []model.Task
		for _, t := range tasks {
			if t.Bucket == b {
				in = append(in, t)
			}
		}
		writeLn(fmt.Sprintf("## %s (%d)", b.Label(), len(in)))
		writeLn("")
		if len(in) == 0 {
			writeLn("_No tasks_")
			writeLn("")
			continue
		}
		for _, t := range in {
			line := fmt.Sprintf("- [%s](tasks/%s.md)", escapeLinkText(title(t)), t.ID)
			var meta []string
			if t.Priority == model.PriorityHigh {
				meta = append(meta, "high")
			}
			if t.DueDate != nil {
				meta = append(meta, "due "+t.DueDate.UTC().Format(time.DateOnly))
			}
			if a := assignee(t); a != "" {
				meta = append(meta, "@"+a)
			}
			if len(meta) > 0 {
				line += " (" + strings.Join(meta, ", ") + ")"
			}
			writeLn(line)
		}
		writeLn("")
	}
	return buf.String()
}

func title(t model.Task) string {
	if s := strings.TrimSpace(t.Title); s != "" {
		return s
	}
	return t.ID
}

func assignee(t model.Task) string {
	if s := strings.TrimSpace(t.Assignee); s != "" {
		return s
	}
	return strings.TrimSpace(t.AssigneeID)
}

func project(t model.Task) string {
	name, id := strings.TrimSpace(t.ProjectName), strings.TrimSpace(t.ProjectID)
	switch {
	case name != "" && id != "":
		return name + " (" + id + ")"
	case name != "":
		return name
	default:
		return id
	}
}

func escapeLinkText(s string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(s)
}
