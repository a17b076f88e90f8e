package storage

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"kanban-api/domain"
)

func setupTestCache(t *testing.T) (*Cache, *Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	st := setupTestStore(t)
	return NewCache(st, client, time.Minute), st, mr
}

func TestCacheListColumnsMissThenHit(t *testing.T) {
	cache, st, _ := setupTestCache(t)
	ctx := context.Background()

	seedBoard(t, st, "b1")
	seedColumn(t, st, "c1", "b1", 0)

	cols, err := cache.ListColumns(ctx, "b1")
	if err != nil {
		t.Fatalf("list columns (miss): %v", err)
	}
	if len(cols) != 1 || cols[0].ID != "c1" {
		t.Fatalf("unexpected columns on miss: %+v", cols)
	}

	// Write directly to the backing store so only the cache can answer with
	// the old list. A hit serves the cached copy.
	seedColumn(t, st, "c2", "b1", 10)

	cols, err = cache.ListColumns(ctx, "b1")
	if err != nil {
		t.Fatalf("list columns (hit): %v", err)
	}
	if len(cols) != 1 {
		t.Fatalf("expected cached list of 1 column, got %d", len(cols))
	}
}

func TestCacheMutationEvicts(t *testing.T) {
	cache, st, _ := setupTestCache(t)
	ctx := context.Background()

	seedBoard(t, st, "b1")
	seedColumn(t, st, "c1", "b1", 0)

	if _, err := cache.ListColumns(ctx, "b1"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	col := domain.Column{ID: "c2", BoardID: "b1", Title: "Doing", Position: 10, CreatedAt: time.Now().UTC()}
	if err := cache.InsertColumn(ctx, col); err != nil {
		t.Fatalf("insert column through cache: %v", err)
	}

	cols, err := cache.ListColumns(ctx, "b1")
	if err != nil {
		t.Fatalf("list columns after eviction: %v", err)
	}
	if len(cols) != 2 {
		t.Fatalf("expected fresh list of 2 columns, got %d", len(cols))
	}
}

func TestCacheDeleteTaskEvictsOwningBoard(t *testing.T) {
	cache, st, _ := setupTestCache(t)
	ctx := context.Background()

	seedBoard(t, st, "b1")
	seedColumn(t, st, "c1", "b1", 0)
	seedTask(t, st, "t1", "b1", "c1", 10)
	seedTask(t, st, "t2", "b1", "c1", 20)

	if _, err := cache.ListTasksByBoard(ctx, "b1"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	if err := cache.DeleteTask(ctx, "t1"); err != nil {
		t.Fatalf("delete task through cache: %v", err)
	}

	tasks, err := cache.ListTasksByBoard(ctx, "b1")
	if err != nil {
		t.Fatalf("list tasks after eviction: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "t2" {
		t.Fatalf("expected fresh list without t1, got %+v", tasks)
	}
}

func TestCacheCorruptEntryFallsBack(t *testing.T) {
	cache, st, mr := setupTestCache(t)
	ctx := context.Background()

	seedBoard(t, st, "b1")
	seedColumn(t, st, "c1", "b1", 0)

	if err := mr.Set(columnsCacheKey("b1"), "{not json"); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}

	cols, err := cache.ListColumns(ctx, "b1")
	if err != nil {
		t.Fatalf("list columns with corrupt cache: %v", err)
	}
	if len(cols) != 1 || cols[0].ID != "c1" {
		t.Fatalf("expected store answer, got %+v", cols)
	}
	if mr.Exists(columnsCacheKey("b1")) {
		got, _ := mr.Get(columnsCacheKey("b1"))
		if got == "{not json" {
			t.Fatalf("corrupt entry was not replaced")
		}
	}
}

func TestCacheRedisDownFallsBack(t *testing.T) {
	cache, st, mr := setupTestCache(t)
	ctx := context.Background()

	seedBoard(t, st, "b1")
	seedColumn(t, st, "c1", "b1", 0)

	mr.Close()

	cols, err := cache.ListColumns(ctx, "b1")
	if err != nil {
		t.Fatalf("list columns with redis down: %v", err)
	}
	if len(cols) != 1 {
		t.Fatalf("expected store answer, got %+v", cols)
	}
}
