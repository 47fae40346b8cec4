// Package cache holds raw task snapshots between requests. Assembled views
// are never cached because their buckets depend on the current time.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/Joseda-hg/lazyplan/internal/model"
)

const KeyAll = "all"

// ListKey is the snapshot key of the tasks of one list.
func ListKey(listID string) string {
	return "list:" + listID
}

type Cache interface {
	Get(ctx context.Context, key string) ([]model.Task, bool, error)
	Set(ctx context.Context, key string, tasks []model.Task) error
	Invalidate(ctx context.Context) error
}

type entry struct {
	tasks   []model.Task
	expires time.Time
}

// Memory is a process-local Cache with per-entry expiry.
type Memory struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex
	entries map[string]entry
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, entries: make(map[string]entry)}
}

func (m *Memory) Get(_ context.Context, key string) ([]model.Task, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cached, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if m.ttl > 0 && !m.now().Before(cached.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return append([]model.Task(nil), cached.tasks...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, tasks []model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry{
		tasks:   append([]model.Task(nil), tasks...),
		expires: m.now().Add(m.ttl),
	}
	return nil
}

func (m *Memory) Invalidate(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]entry)
	return nil
}
