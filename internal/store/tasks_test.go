package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/model"
)

func openTestTasks(t *testing.T) *Tasks {
	t.Helper()
	tasks, err := OpenTasks(context.Background(), filepath.Join(t.TempDir(), "tasks.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tasks.Close() })
	return tasks
}

func TestTasks_CreateListDefaults(t *testing.T) {
	ctx := context.Background()
	s := openTestTasks(t)
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	due := time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)
	a, err := s.Create(ctx, NewTask{Title: "  First ", DueDate: &due})
	require.NoError(t, err)
	b, err := s.Create(ctx, NewTask{Title: "Second", Status: model.BucketDone, Priority: model.PriorityHigh})
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "First", a.Title)
	assert.Equal(t, model.BucketTodo, a.Bucket)
	assert.Equal(t, model.PriorityMedium, a.Priority)
	require.NotNil(t, a.DueDate)
	assert.True(t, a.DueDate.Equal(due))
	assert.True(t, a.CreatedAt.Equal(fixed))

	list, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)
	assert.Nil(t, list[1].DueDate)
}

func TestTasks_ListByProject(t *testing.T) {
	ctx := context.Background()
	s := openTestTasks(t)
	web, err := s.Create(ctx, NewTask{Title: "Landing page", ProjectID: "web", ProjectName: "Website"})
	require.NoError(t, err)
	_, err = s.Create(ctx, NewTask{Title: "Release", ProjectID: "ops"})
	require.NoError(t, err)
	_, err = s.Create(ctx, NewTask{Title: "Unfiled"})
	require.NoError(t, err)

	list, err := s.List(ctx, "web")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, web.ID, list[0].ID)
	assert.Equal(t, "Website", list[0].ProjectName)

	list, err = s.List(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, list)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestTasks_CreateRejectsBadInput(t *testing.T) {
	s := openTestTasks(t)
	ctx := context.Background()

	_, err := s.Create(ctx, NewTask{Title: "   "})
	assert.Error(t, err)
	_, err = s.Create(ctx, NewTask{Title: "x", Status: "ARCHIVE"})
	assert.Error(t, err)
	_, err = s.Create(ctx, NewTask{Title: "x", Priority: "URGENT"})
	assert.Error(t, err)
}

func TestTasks_UpdateBucketAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestTasks(t)
	created, err := s.Create(ctx, NewTask{Title: "Move me", Description: "body"})
	require.NoError(t, err)

	s.now = func() time.Time { return created.UpdatedAt.Add(time.Minute) }
	moved, err := s.UpdateBucket(ctx, created.ID, model.BucketInProgress)
	require.NoError(t, err)
	assert.Equal(t, model.BucketInProgress, moved.Bucket)
	assert.Equal(t, "body", moved.Description)
	assert.True(t, moved.UpdatedAt.After(created.UpdatedAt))

	_, err = s.UpdateBucket(ctx, created.ID, "NOPE")
	assert.Error(t, err)
	_, err = s.UpdateBucket(ctx, "missing", model.BucketDone)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.Delete(ctx, created.ID))
	assert.True(t, errors.Is(s.Delete(ctx, created.ID), ErrNotFound))
	_, err = s.Get(ctx, created.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestTasks_SeedIfEmptyOnlyOnce(t *testing.T) {
	ctx := context.Background()
	s := openTestTasks(t)

	seeds := DemoTasks(time.Now())
	n, err := s.SeedIfEmpty(ctx, seeds)
	require.NoError(t, err)
	assert.Equal(t, len(seeds), n)

	n, err = s.SeedIfEmpty(ctx, seeds)
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(seeds), count)
}

func TestTasks_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "tasks.sqlite")

	s, err := OpenTasks(ctx, path)
	require.NoError(t, err)
	_, err = s.Create(ctx, NewTask{Title: "persisted"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := OpenTasks(ctx, path)
	require.NoError(t, err)
	defer s2.Close()
	list, err := s2.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "persisted", list[0].Title)
}

func TestOpenTasks_Memory(t *testing.T) {
	s, err := OpenTasks(context.Background(), ":memory:")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Ping(context.Background()))
}
