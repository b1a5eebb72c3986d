package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"taskboard/internal/model"
)

// Repository is the task persistence the API server needs. *Tasks and *Cache
// both implement it.
type Repository interface {
	// List returns the tasks of projectID, or every task when it is empty.
	List(ctx context.Context, projectID string) ([]model.Task, error)
	Get(ctx context.Context, id string) (model.Task, error)
	Create(ctx context.Context, in NewTask) (model.Task, error)
	UpdateBucket(ctx context.Context, id string, b model.Bucket) (model.Task, error)
	Delete(ctx context.Context, id string) error
}

var (
	_ Repository = (*Tasks)(nil)
	_ Repository = (*Cache)(nil)
)

const (
	tasksCacheKey   = "taskboard:tasks"
	tasksVersionKey = "taskboard:tasks:ver"
)

// listKey names the cached list for one project ("" is the whole board) at one
// write version. Entries of older versions are never read again and age out
// with the TTL.
func listKey(ver int64, projectID string) string {
	return tasksCacheKey + ":v" + strconv.FormatInt(ver, 10) + ":" + projectID
}

// Cache wraps a Repository with a Redis-backed read-through cache for List.
// Writes go to the base repository and then bump the version counter, so a
// list read that raced a write is stored under a key nobody reads.
type Cache struct {
	base  Repository
	redis *redis.Client
	ttl   time.Duration
}

func NewCache(base Repository, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("store.NewCache: base repository is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) List(ctx context.Context, projectID string) ([]model.Task, error) {
	ver, cached := c.version(ctx)
	key := listKey(ver, projectID)
	if cached {
		if tasks, ok := c.load(ctx, key); ok {
			return tasks, nil
		}
	}
	tasks, err := c.base.List(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if cached {
		c.store(ctx, key, tasks)
	}
	return tasks, nil
}

func (c *Cache) Get(ctx context.Context, id string) (model.Task, error) {
	return c.base.Get(ctx, id)
}

func (c *Cache) Create(ctx context.Context, in NewTask) (model.Task, error) {
	t, err := c.base.Create(ctx, in)
	if err != nil {
		return model.Task{}, err
	}
	c.evict(ctx)
	return t, nil
}

func (c *Cache) UpdateBucket(ctx context.Context, id string, b model.Bucket) (model.Task, error) {
	t, err := c.base.UpdateBucket(ctx, id, b)
	if err != nil {
		return model.Task{}, err
	}
	c.evict(ctx)
	return t, nil
}

func (c *Cache) Delete(ctx context.Context, id string) error {
	if err := c.base.Delete(ctx, id); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

// Ping checks redis (when configured) and the base repository.
func (c *Cache) Ping(ctx context.Context) error {
	if c.redis != nil {
		if err := c.redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	if p, ok := c.base.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// version reads the write counter. ok is false when redis is unavailable and
// the cache must be bypassed.
func (c *Cache) version(ctx context.Context) (int64, bool) {
	if c.redis == nil {
		return 0, false
	}
	v, err := c.redis.Get(ctx, tasksVersionKey).Int64()
	switch {
	case err == nil:
		return v, true
	case errors.Is(err, redis.Nil):
		return 0, true
	default:
		return 0, false
	}
}

func (c *Cache) load(ctx context.Context, key string) ([]model.Task, bool) {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var tasks []model.Task
	if err := sonic.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}
	return tasks, true
}

func (c *Cache) store(ctx context.Context, key string, tasks []model.Task) {
	if c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Incr(ctx, tasksVersionKey).Err()
}
