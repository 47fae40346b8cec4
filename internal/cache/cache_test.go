package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Joseda-hg/lazyplan/internal/model"
)

func snapshot() []model.Task {
	return []model.Task{
		{ID: "a", ListID: "inbox", Name: "Buy milk", Date: model.MustParseDate("2024-05-15"), Priority: model.PriorityHigh},
		{ID: "b", ListID: "inbox", Name: "Call mom", Priority: model.PriorityNone, IsCompleted: true},
	}
}

func TestMemoryExpiresEntries(t *testing.T) {
	ctx := context.Background()
	current := time.Date(2024, time.May, 15, 9, 0, 0, 0, time.UTC)
	mem := NewMemory(time.Minute)
	mem.now = func() time.Time { return current }

	if err := mem.Set(ctx, KeyAll, snapshot()); err != nil {
		t.Fatalf("set: %v", err)
	}
	tasks, ok, err := mem.Get(ctx, KeyAll)
	if err != nil || !ok || len(tasks) != 2 {
		t.Fatalf("expected hit with 2 tasks, got ok=%v len=%d err=%v", ok, len(tasks), err)
	}

	current = current.Add(time.Minute)
	if _, ok, _ := mem.Get(ctx, KeyAll); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestMemoryInvalidate(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory(time.Hour)
	_ = mem.Set(ctx, KeyAll, snapshot())
	_ = mem.Set(ctx, ListKey("inbox"), snapshot())

	if err := mem.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	for _, key := range []string{KeyAll, ListKey("inbox")} {
		if _, ok, _ := mem.Get(ctx, key); ok {
			t.Fatalf("expected %s to be gone", key)
		}
	}
}

func setupTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedis(client, time.Minute), mr
}

func TestRedisRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache, mr := setupTestRedis(t)
	defer mr.Close()

	if _, ok, err := cache.Get(ctx, KeyAll); ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	if err := cache.Set(ctx, KeyAll, snapshot()); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists(keyPrefix + KeyAll) {
		t.Fatalf("expected key %s in redis", keyPrefix+KeyAll)
	}

	tasks, ok, err := cache.Get(ctx, KeyAll)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if len(tasks) != 2 || tasks[0].Date.String() != "2024-05-15" || tasks[1].HasDate() || !tasks[1].IsCompleted {
		t.Fatalf("snapshot did not survive the round trip: %+v", tasks)
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := cache.Get(ctx, KeyAll); ok {
		t.Fatalf("expected key to expire")
	}
}

func TestRedisInvalidateOnlyTouchesPrefix(t *testing.T) {
	ctx := context.Background()
	cache, mr := setupTestRedis(t)
	defer mr.Close()

	_ = cache.Set(ctx, KeyAll, snapshot())
	_ = cache.Set(ctx, ListKey("inbox"), snapshot())
	if err := mr.Set("unrelated", "keep"); err != nil {
		t.Fatalf("seed unrelated key: %v", err)
	}

	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists(keyPrefix+KeyAll) || mr.Exists(keyPrefix+ListKey("inbox")) {
		t.Fatalf("expected snapshot keys removed")
	}
	if !mr.Exists("unrelated") {
		t.Fatalf("expected unrelated key to be kept")
	}
}

func TestDialRejectsBadURL(t *testing.T) {
	if _, err := Dial(context.Background(), "not a url", time.Minute); err == nil {
		t.Fatalf("expected error for invalid redis url")
	}
}
