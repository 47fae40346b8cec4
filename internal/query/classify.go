// Package query classifies tasks into temporal buckets and assembles the
// Today, Week, Upcoming and All views, their counts, and search rankings.
// Everything here is a pure function of its inputs.
package query

import (
	"time"

	"github.com/Joseda-hg/lazyplan/internal/model"
)

type Bucket string

const (
	BucketOverdue   Bucket = "overdue"
	BucketToday     Bucket = "today"
	BucketTomorrow  Bucket = "tomorrow"
	BucketThisWeek  Bucket = "this_week"
	BucketNextWeek  Bucket = "next_week"
	BucketThisMonth Bucket = "this_month"
	BucketLater     Bucket = "later"
	BucketNoDate    Bucket = "no_date"

	// BucketCompleted is a display group of the All view. Classify never
	// returns it.
	BucketCompleted Bucket = "completed"
)

// groupOrder is the display order of groups in every view.
var groupOrder = []Bucket{
	BucketOverdue,
	BucketToday,
	BucketTomorrow,
	BucketThisWeek,
	BucketNextWeek,
	BucketThisMonth,
	BucketLater,
	BucketNoDate,
	BucketCompleted,
}

func (b Bucket) Title() string {
	switch b {
	case BucketOverdue:
		return "Overdue"
	case BucketToday:
		return "Today"
	case BucketTomorrow:
		return "Tomorrow"
	case BucketThisWeek:
		return "This Week"
	case BucketNextWeek:
		return "Next Week"
	case BucketThisMonth:
		return "This Month"
	case BucketLater:
		return "Later"
	case BucketNoDate:
		return "No Date"
	case BucketCompleted:
		return "Completed"
	default:
		return string(b)
	}
}

// Calendar pins the day boundaries of one classification pass. Build it once
// per request so that every task is judged against the same "today".
type Calendar struct {
	Today       model.Date
	Tomorrow    model.Date
	WeekStart   model.Date
	WeekEnd     model.Date
	NextWeekEnd model.Date
	MonthEnd    model.Date
}

// NewCalendar derives the boundaries from now's calendar day in now's
// location. Weeks run Monday through Sunday.
func NewCalendar(now time.Time) Calendar {
	today := model.DateOf(now)
	weekStart := today.StartOfWeek()
	weekEnd := weekStart.AddDays(6)
	return Calendar{
		Today:       today,
		Tomorrow:    today.AddDays(1),
		WeekStart:   weekStart,
		WeekEnd:     weekEnd,
		NextWeekEnd: weekEnd.AddDays(7),
		MonthEnd:    today.EndOfMonth(),
	}
}

// Classify maps a task onto exactly one bucket. Rules apply in order and the
// first match wins.
func (c Calendar) Classify(task model.Task) Bucket {
	if !task.HasDate() {
		return BucketNoDate
	}

	date := task.Date
	switch {
	case date.Before(c.Today) && !task.IsCompleted:
		return BucketOverdue
	case date.Equal(c.Today):
		return BucketToday
	case date.Equal(c.Tomorrow):
		return BucketTomorrow
	case date.Between(c.WeekStart, c.WeekEnd):
		return BucketThisWeek
	case date.After(c.WeekEnd) && !date.After(c.NextWeekEnd):
		return BucketNextWeek
	case date.After(c.WeekEnd) && !date.After(c.MonthEnd):
		return BucketThisMonth
	default:
		return BucketLater
	}
}

// IsOverdue reports whether the task is incomplete and scheduled before today.
func (c Calendar) IsOverdue(task model.Task) bool {
	return c.Classify(task) == BucketOverdue
}

// Classify is a one-off classification against now.
func Classify(task model.Task, now time.Time) Bucket {
	return NewCalendar(now).Classify(task)
}
