package query

import (
	"log"
	"strconv"
	"time"

	"github.com/Joseda-hg/lazyplan/internal/model"
)

// badgeLimit is the largest count a badge shows verbatim.
const badgeLimit = 99

// DisplayCount formats a badge: n itself up to 99, "99+" above.
func DisplayCount(n int) string {
	if n > badgeLimit {
		return strconv.Itoa(badgeLimit) + "+"
	}
	return strconv.Itoa(n)
}

// OverdueCount counts the tasks that classify as overdue as of now.
func OverdueCount(tasks []model.Task, now time.Time) int {
	return NewCalendar(now).OverdueCount(tasks)
}

func (c Calendar) OverdueCount(tasks []model.Task) int {
	count := 0
	for _, task := range tasks {
		if c.IsOverdue(task) {
			count++
		}
	}
	return count
}

// Remaining is task_count - completed_count for a list, never below zero.
// A negative difference means the stored counters disagree; it is logged and
// reported as zero.
func Remaining(summary model.ListSummary) int {
	remaining := summary.TaskCount - summary.CompletedCount
	if remaining < 0 {
		log.Printf("[warn] list %s: completed count %d exceeds task count %d", summary.ID, summary.CompletedCount, summary.TaskCount)
		return 0
	}
	return remaining
}

// ViewCounts returns the number of incomplete tasks each view displays,
// overdue included. These drive the navigation badges.
func (c Calendar) ViewCounts(tasks []model.Task) map[ViewName]int {
	counts := make(map[ViewName]int, len(Views))
	for _, view := range Views {
		result := c.Assemble(view, tasks, Options{})
		counts[view] = result.Total() - result.BucketCounts[BucketCompleted]
	}
	return counts
}

// OrphanedTasks returns tasks whose list is not among lists.
func OrphanedTasks(tasks []model.Task, lists []model.ListSummary) []model.Task {
	known := make(map[string]struct{}, len(lists))
	for _, list := range lists {
		known[list.ID] = struct{}{}
	}

	var orphans []model.Task
	for _, task := range tasks {
		if _, ok := known[task.ListID]; !ok {
			orphans = append(orphans, task)
		}
	}
	return orphans
}
