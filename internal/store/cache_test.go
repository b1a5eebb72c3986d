package store

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/model"
)

type countingRepo struct {
	Repository
	lists int
	// afterList runs once, after the next List has read the database.
	afterList func()
}

func (r *countingRepo) List(ctx context.Context, projectID string) ([]model.Task, error) {
	r.lists++
	tasks, err := r.Repository.List(ctx, projectID)
	if f := r.afterList; f != nil {
		r.afterList = nil
		f()
	}
	return tasks, err
}

// cachedKey is the list key a read would use right now.
func cachedKey(mr *miniredis.Miniredis, projectID string) string {
	v, err := mr.Get(tasksVersionKey)
	if err != nil {
		v = "0"
	}
	return tasksCacheKey + ":v" + v + ":" + projectID
}

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *countingRepo, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := &countingRepo{Repository: openTestTasks(t)}
	return NewCache(repo, client, ttl), repo, mr
}

func TestCache_ListMissThenHit(t *testing.T) {
	ctx := context.Background()
	c, repo, mr := newTestCache(t, time.Minute)
	_, err := c.Create(ctx, NewTask{Title: "cached"})
	require.NoError(t, err)

	first, err := c.List(ctx, "")
	require.NoError(t, err)
	second, err := c.List(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, 1, repo.lists)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.True(t, mr.Exists(cachedKey(mr, "")))
}

func TestCache_WritesEvict(t *testing.T) {
	ctx := context.Background()
	c, repo, mr := newTestCache(t, time.Minute)
	created, err := c.Create(ctx, NewTask{Title: "a"})
	require.NoError(t, err)

	_, err = c.List(ctx, "")
	require.NoError(t, err)
	require.True(t, mr.Exists(cachedKey(mr, "")))

	moved, err := c.UpdateBucket(ctx, created.ID, model.BucketDone)
	require.NoError(t, err)
	assert.Equal(t, model.BucketDone, moved.Bucket)
	assert.False(t, mr.Exists(cachedKey(mr, "")))

	list, err := c.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, model.BucketDone, list[0].Bucket)
	assert.Equal(t, 2, repo.lists)

	require.NoError(t, c.Delete(ctx, created.ID))
	assert.False(t, mr.Exists(cachedKey(mr, "")))
}

func TestCache_FailedWriteKeepsCache(t *testing.T) {
	ctx := context.Background()
	c, _, mr := newTestCache(t, time.Minute)
	_, err := c.List(ctx, "")
	require.NoError(t, err)
	require.True(t, mr.Exists(cachedKey(mr, "")))

	_, err = c.UpdateBucket(ctx, "missing", model.BucketDone)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, mr.Exists(cachedKey(mr, "")))
}

func TestCache_CorruptEntryFallsBack(t *testing.T) {
	ctx := context.Background()
	c, repo, mr := newTestCache(t, time.Minute)
	require.NoError(t, mr.Set(cachedKey(mr, ""), "{garbage"))

	_, err := c.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lists)
}

func TestCache_ZeroTTLDoesNotStore(t *testing.T) {
	c, _, mr := newTestCache(t, 0)
	_, err := c.List(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, mr.Exists(cachedKey(mr, "")))
}

func TestCache_NilClientPassesThrough(t *testing.T) {
	repo := &countingRepo{Repository: openTestTasks(t)}
	c := NewCache(repo, nil, time.Minute)
	_, _ = c.List(context.Background(), "")
	_, _ = c.List(context.Background(), "")
	assert.Equal(t, 2, repo.lists)
}

func TestCache_WriteDuringListIsNotMasked(t *testing.T) {
	ctx := context.Background()
	c, repo, _ := newTestCache(t, time.Minute)
	created, err := c.Create(ctx, NewTask{Title: "racy"})
	require.NoError(t, err)

	repo.afterList = func() {
		_, err := c.UpdateBucket(ctx, created.ID, model.BucketDone)
		require.NoError(t, err)
	}
	stale, err := c.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, model.BucketTodo, stale[0].Bucket)

	fresh, err := c.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, model.BucketDone, fresh[0].Bucket)
	assert.Equal(t, 2, repo.lists)
}

func TestCache_ProjectsAreCachedSeparately(t *testing.T) {
	ctx := context.Background()
	c, repo, mr := newTestCache(t, time.Minute)
	_, err := c.Create(ctx, NewTask{Title: "site", ProjectID: "web"})
	require.NoError(t, err)
	_, err = c.Create(ctx, NewTask{Title: "deploy", ProjectID: "ops"})
	require.NoError(t, err)

	web, err := c.List(ctx, "web")
	require.NoError(t, err)
	all, err := c.List(ctx, "")
	require.NoError(t, err)
	again, err := c.List(ctx, "web")
	require.NoError(t, err)

	require.Len(t, web, 1)
	require.Len(t, again, 1)
	assert.Len(t, all, 2)
	assert.Equal(t, web[0].ID, again[0].ID)
	assert.Equal(t, 2, repo.lists)
	assert.True(t, mr.Exists(cachedKey(mr, "web")))
}

func TestCache_RedisDownBypassesCache(t *testing.T) {
	ctx := context.Background()
	c, repo, mr := newTestCache(t, time.Minute)
	mr.Close()

	_, err := c.Create(ctx, NewTask{Title: "still works"})
	require.NoError(t, err)
	list, err := c.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, repo.lists)
}
