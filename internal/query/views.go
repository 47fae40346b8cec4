package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/Joseda-hg/lazyplan/internal/model"
)

type ViewName string

const (
	ViewToday    ViewName = "today"
	ViewWeek     ViewName = "week"
	ViewUpcoming ViewName = "upcoming"
	ViewAll      ViewName = "all"
)

// Views lists every view in navigation order.
var Views = []ViewName{ViewToday, ViewWeek, ViewUpcoming, ViewAll}

func ParseView(value string) (ViewName, error) {
	name := ViewName(strings.ToLower(strings.TrimSpace(value)))
	for _, view := range Views {
		if view == name {
			return view, nil
		}
	}
	return "", fmt.Errorf("unknown view %q", value)
}

func (v ViewName) Title() string {
	switch v {
	case ViewToday:
		return "Today"
	case ViewWeek:
		return "Week"
	case ViewUpcoming:
		return "Upcoming"
	case ViewAll:
		return "All Tasks"
	default:
		return string(v)
	}
}

// Options is the per-request display configuration of a view.
type Options struct {
	IncludeCompleted bool `json:"include_completed"`
}

type Group struct {
	Bucket Bucket       `json:"bucket"`
	Title  string       `json:"title"`
	Tasks  []model.Task `json:"tasks"`
}

type Result struct {
	View         ViewName       `json:"view"`
	Groups       []Group        `json:"groups"`
	OverdueCount int            `json:"overdue_count"`
	BucketCounts map[Bucket]int `json:"bucket_counts"`
}

// Total returns the number of tasks placed across all groups.
func (r Result) Total() int {
	total := 0
	for _, group := range r.Groups {
		total += len(group.Tasks)
	}
	return total
}

// datedBuckets are the classifier buckets each date-driven view shows.
// Overdue is merged into all of them as a leading group.
var datedBuckets = map[ViewName]map[Bucket]bool{
	ViewToday: {
		BucketToday: true,
	},
	ViewWeek: {
		BucketToday:    true,
		BucketTomorrow: true,
		BucketThisWeek: true,
	},
	ViewUpcoming: {
		BucketToday:     true,
		BucketTomorrow:  true,
		BucketThisWeek:  true,
		BucketNextWeek:  true,
		BucketThisMonth: true,
		BucketLater:     true,
	},
}

// Assemble builds a view from tasks as of now. Task order inside a group is
// the input order; empty groups are omitted.
func Assemble(view ViewName, tasks []model.Task, now time.Time, opts Options) Result {
	return NewCalendar(now).Assemble(view, tasks, opts)
}

func (c Calendar) Assemble(view ViewName, tasks []model.Task, opts Options) Result {
	grouped := make(map[Bucket][]model.Task)
	for _, task := range tasks {
		bucket, ok := c.place(view, task, opts)
		if !ok {
			continue
		}
		grouped[bucket] = append(grouped[bucket], task)
	}

	result := Result{
		View:         view,
		Groups:       make([]Group, 0, len(grouped)),
		OverdueCount: c.OverdueCount(tasks),
		BucketCounts: make(map[Bucket]int, len(grouped)),
	}
	for _, bucket := range groupOrder {
		members := grouped[bucket]
		if len(members) == 0 {
			continue
		}
		result.Groups = append(result.Groups, Group{Bucket: bucket, Title: bucket.Title(), Tasks: members})
		result.BucketCounts[bucket] = len(members)
	}
	return result
}

// place decides which group of view a task belongs to, if any.
func (c Calendar) place(view ViewName, task model.Task, opts Options) (Bucket, bool) {
	if view == ViewAll {
		return c.placeAll(task), true
	}

	included, ok := datedBuckets[view]
	if !ok {
		return "", false
	}

	if task.IsCompleted {
		if !opts.IncludeCompleted {
			return "", false
		}
		// None of the dated views has a group for past days once the task
		// can no longer be overdue.
		if task.HasDate() && task.Date.Before(c.Today) {
			return "", false
		}
	}

	bucket := c.Classify(task)
	if bucket == BucketOverdue {
		return bucket, true
	}
	return bucket, included[bucket]
}

// placeAll routes completed tasks to the Completed group and folds Next Week
// into This Month or Later, since All has no Next Week group.
func (c Calendar) placeAll(task model.Task) Bucket {
	if task.IsCompleted {
		return BucketCompleted
	}
	bucket := c.Classify(task)
	if bucket == BucketNextWeek {
		if task.Date.After(c.MonthEnd) {
			return BucketLater
		}
		return BucketThisMonth
	}
	return bucket
}
