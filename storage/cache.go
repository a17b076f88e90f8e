package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"kanban-api/domain"
)

type backend interface {
	ListColumns(ctx context.Context, boardID string) ([]domain.Column, error)
	ListTasksByBoard(ctx context.Context, boardID string) ([]domain.Task, error)
}

// Cache wraps a Store with Redis-backed caching of the per-board column and
// task lists. Any mutation touching a board evicts that board's entries.
type Cache struct {
	*Store
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base *Store, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{Store: base, base: base, redis: client, ttl: ttl}
}

func (c *Cache) ListColumns(ctx context.Context, boardID string) ([]domain.Column, error) {
	var cols []domain.Column
	if c.load(ctx, columnsCacheKey(boardID), &cols) {
		return cols, nil
	}
	cols, err := c.base.ListColumns(ctx, boardID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, columnsCacheKey(boardID), cols)
	return cols, nil
}

func (c *Cache) ListTasksByBoard(ctx context.Context, boardID string) ([]domain.Task, error) {
	var tasks []domain.Task
	if c.load(ctx, tasksCacheKey(boardID), &tasks) {
		return tasks, nil
	}
	tasks, err := c.base.ListTasksByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, tasksCacheKey(boardID), tasks)
	return tasks, nil
}

func (c *Cache) InsertColumn(ctx context.Context, col domain.Column) error {
	if err := c.Store.InsertColumn(ctx, col); err != nil {
		return err
	}
	c.Evict(ctx, col.BoardID)
	return nil
}

func (c *Cache) UpdateColumn(ctx context.Context, id string, upd domain.ColumnUpdate) (domain.Column, error) {
	col, err := c.Store.UpdateColumn(ctx, id, upd)
	if err != nil {
		return col, err
	}
	c.Evict(ctx, col.BoardID)
	return col, nil
}

func (c *Cache) InsertTask(ctx context.Context, t domain.Task) error {
	if err := c.Store.InsertTask(ctx, t); err != nil {
		return err
	}
	c.Evict(ctx, t.BoardID)
	return nil
}

func (c *Cache) UpdateTask(ctx context.Context, id string, upd domain.TaskUpdate) (domain.Task, error) {
	t, err := c.Store.UpdateTask(ctx, id, upd)
	if err != nil {
		return t, err
	}
	c.Evict(ctx, t.BoardID)
	return t, nil
}

func (c *Cache) MoveTask(ctx context.Context, id, columnID string, position float64) (domain.Task, error) {
	t, err := c.Store.MoveTask(ctx, id, columnID, position)
	if err != nil {
		return t, err
	}
	c.Evict(ctx, t.BoardID)
	return t, nil
}

func (c *Cache) DeleteColumn(ctx context.Context, id string) error {
	col, err := c.Store.GetColumn(ctx, id)
	if err != nil {
		return err
	}
	if err := c.Store.DeleteColumn(ctx, id); err != nil {
		return err
	}
	c.Evict(ctx, col.BoardID)
	return nil
}

func (c *Cache) DeleteTask(ctx context.Context, id string) error {
	t, err := c.Store.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if err := c.Store.DeleteTask(ctx, id); err != nil {
		return err
	}
	c.Evict(ctx, t.BoardID)
	return nil
}

func (c *Cache) DeleteColumnsByBoard(ctx context.Context, boardID string) error {
	if err := c.Store.DeleteColumnsByBoard(ctx, boardID); err != nil {
		return err
	}
	c.Evict(ctx, boardID)
	return nil
}

func (c *Cache) DeleteTasksByBoard(ctx context.Context, boardID string) error {
	if err := c.Store.DeleteTasksByBoard(ctx, boardID); err != nil {
		return err
	}
	c.Evict(ctx, boardID)
	return nil
}

// Evict drops the cached lists for a board.
func (c *Cache) Evict(ctx context.Context, boardID string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, columnsCacheKey(boardID), tasksCacheKey(boardID)).Result()
}

func (c *Cache) load(ctx context.Context, key string, v any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing store without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(v)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func columnsCacheKey(boardID string) string {
	return "columns:" + boardID
}

func tasksCacheKey(boardID string) string {
	return "tasks:" + boardID
}
