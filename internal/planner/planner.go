// Package planner answers view, search and badge requests. Each request reads
// the clock once and hands that instant to the query package together with a
// task snapshot loaded through the cache.
package planner

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Joseda-hg/lazyplan/internal/cache"
	"github.com/Joseda-hg/lazyplan/internal/clock"
	"github.com/Joseda-hg/lazyplan/internal/db"
	"github.com/Joseda-hg/lazyplan/internal/model"
	"github.com/Joseda-hg/lazyplan/internal/query"
)

type Planner struct {
	Store *db.Store
	clock clock.Clock
	cache cache.Cache
	sf    singleflight.Group

	// generation counts invalidations. A snapshot loaded under an older
	// generation must not outlive the write that bumped it.
	generation atomic.Uint64
}

// New creates a Planner. If c is nil, snapshots are always read from the store.
func New(store *db.Store, clk clock.Clock, c cache.Cache) *Planner {
	if clk == nil {
		clk = clock.System{}
	}
	return &Planner{Store: store, clock: clk, cache: c}
}

func (p *Planner) Now() time.Time {
	return p.clock.Now()
}

func (p *Planner) Location() *time.Location {
	return clock.Location(p.clock)
}

// View assembles one of the named views over every task.
func (p *Planner) View(ctx context.Context, name query.ViewName, opts query.Options) (query.Result, error) {
	return p.ViewAt(ctx, name, opts, p.Now())
}

// ViewAt is View as of now, for callers that render several surfaces from one
// reading of the clock.
func (p *Planner) ViewAt(ctx context.Context, name query.ViewName, opts query.Options, now time.Time) (query.Result, error) {
	if _, err := query.ParseView(string(name)); err != nil {
		return query.Result{}, fmt.Errorf("%w: %v", db.ErrInvalidInput, err)
	}

	tasks, err := p.allTasks(ctx)
	if err != nil {
		return query.Result{}, err
	}
	return query.Assemble(name, tasks, now, opts), nil
}

type ListView struct {
	List   model.List   `json:"list"`
	Result query.Result `json:"result"`
}

// ListView groups the tasks of one list the way the All view does.
func (p *Planner) ListView(ctx context.Context, listID string, opts query.Options) (ListView, error) {
	return p.ListViewAt(ctx, listID, opts, p.Now())
}

func (p *Planner) ListViewAt(ctx context.Context, listID string, opts query.Options, now time.Time) (ListView, error) {
	list, err := p.Store.GetList(ctx, listID)
	if err != nil {
		return ListView{}, err
	}

	tasks, err := p.snapshot(ctx, cache.ListKey(listID), func(ctx context.Context) ([]model.Task, error) {
		return p.Store.TasksByList(ctx, listID)
	})
	if err != nil {
		return ListView{}, err
	}
	return ListView{List: list, Result: query.Assemble(query.ViewAll, tasks, now, opts)}, nil
}

// Tasks returns every task in store order.
func (p *Planner) Tasks(ctx context.Context) ([]model.Task, error) {
	return p.allTasks(ctx)
}

// TasksInRange returns dated tasks between from and to, both inclusive.
func (p *Planner) TasksInRange(ctx context.Context, from, to model.Date) ([]model.Task, error) {
	return p.Store.TasksByDateRange(ctx, from, to)
}

func (p *Planner) Search(ctx context.Context, req query.SearchRequest) (query.SearchResults, error) {
	var candidates query.Candidates
	var err error

	if req.Kind.Includes(query.KindTasks) {
		if candidates.Tasks, err = p.allTasks(ctx); err != nil {
			return query.SearchResults{}, err
		}
	}
	if req.Kind.Includes(query.KindLists) {
		if candidates.Lists, err = p.Store.ListLists(ctx); err != nil {
			return query.SearchResults{}, err
		}
	}
	if req.Kind.Includes(query.KindLabels) {
		if candidates.Labels, err = p.Store.ListLabels(ctx); err != nil {
			return query.SearchResults{}, err
		}
	}

	return query.Search(req, candidates), nil
}

type TaskDetail struct {
	Task      model.Task       `json:"task"`
	List      model.List       `json:"list"`
	Bucket    query.Bucket     `json:"bucket"`
	Subtasks  []model.Subtask  `json:"subtasks"`
	Reminders []model.Reminder `json:"reminders"`
	Logs      []model.TaskLog  `json:"logs"`
}

func (p *Planner) TaskDetail(ctx context.Context, taskID string) (TaskDetail, error) {
	task, err := p.Store.GetTask(ctx, taskID)
	if err != nil {
		return TaskDetail{}, err
	}
	detail := TaskDetail{Task: task, Bucket: query.Classify(task, p.Now())}

	if detail.List, err = p.Store.GetList(ctx, task.ListID); err != nil {
		return TaskDetail{}, err
	}
	if detail.Subtasks, err = p.Store.ListSubtasks(ctx, taskID); err != nil {
		return TaskDetail{}, err
	}
	if detail.Reminders, err = p.Store.ListReminders(ctx, taskID); err != nil {
		return TaskDetail{}, err
	}
	if detail.Logs, err = p.Store.ListTaskLogs(ctx, taskID); err != nil {
		return TaskDetail{}, err
	}
	return detail, nil
}

func (p *Planner) allTasks(ctx context.Context) ([]model.Task, error) {
	return p.snapshot(ctx, cache.KeyAll, p.Store.AllTasks)
}

// snapshot returns the cached tasks under key or loads and caches them.
// Concurrent loads of the same key within one generation share one store
// read. Cache failures are logged and fall through to the store.
func (p *Planner) snapshot(ctx context.Context, key string, load func(context.Context) ([]model.Task, error)) ([]model.Task, error) {
	if p.cache == nil {
		return load(ctx)
	}

	gen := p.generation.Load()
	flight := key + "@" + strconv.FormatUint(gen, 10)
	v, err, _ := p.sf.Do(flight, func() (interface{}, error) {
		tasks, ok, err := p.cache.Get(ctx, key)
		if err != nil {
			log.Printf("[warn] cache get %s: %v", key, err)
		}
		if ok {
			return tasks, nil
		}

		tasks, err = load(ctx)
		if err != nil {
			return nil, err
		}
		if p.generation.Load() != gen {
			return tasks, nil
		}
		if err := p.cache.Set(ctx, key, tasks); err != nil {
			log.Printf("[warn] cache set %s: %v", key, err)
		}
		// A write may have committed and invalidated while Set was running.
		if p.generation.Load() != gen {
			p.dropCache(ctx)
		}
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Task), nil
}

// invalidate bumps the generation before clearing the cache, so a load that
// started earlier either skips its Set or clears it afterwards.
func (p *Planner) invalidate(ctx context.Context) {
	if p.cache == nil {
		return
	}
	p.generation.Add(1)
	p.dropCache(ctx)
}

func (p *Planner) dropCache(ctx context.Context) {
	if err := p.cache.Invalidate(ctx); err != nil {
		log.Printf("[warn] cache invalidate: %v", err)
	}
}
