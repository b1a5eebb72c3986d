package store

import (
	"context"
	"time"

	"taskboard/internal/model"
)

// DemoTasks is the board a fresh server starts with when seeding is enabled.
func DemoTasks(now time.Time) []NewTask {
	day := func(n int) *time.Time {
		d := now.UTC().Truncate(24*time.Hour).AddDate(0, 0, n)
		return &d
	}
	return []NewTask{
		{Title: "Draft release notes", Description: "Collect the merged changes since **v0.3** and group them by area.", Priority: model.PriorityMedium, DueDate: day(3), Assignee: "Dana", ProjectName: "Launch"},
		{Title: "Fix login redirect", Description: "Users land on `/` instead of the page they asked for.", Status: model.BucketInProgress, Priority: model.PriorityHigh, DueDate: day(1), Assignee: "Sam", ProjectName: "Web"},
		{Title: "Write onboarding guide", Priority: model.PriorityLow, ProjectName: "Docs"},
		{Title: "Set up staging database", Status: model.BucketInProgress, Priority: model.PriorityMedium, Assignee: "Alex", ProjectName: "Infra"},
		{Title: "Pick a logo", Status: model.BucketDone, Priority: model.PriorityLow, ProjectName: "Launch"},
	}
}

// SeedIfEmpty inserts tasks when the table has no rows. It reports how many
// were inserted.
func (t *Tasks) SeedIfEmpty(ctx context.Context, tasks []NewTask) (int, error) {
	n, err := t.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	for i, in := range tasks {
		if _, err := t.Create(ctx, in); err != nil {
			return i, err
		}
	}
	return len(tasks), nil
}
