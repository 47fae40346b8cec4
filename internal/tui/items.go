package tui

import (
	"fmt"
	"strings"

	"github.com/Joseda-hg/lazyplan/internal/model"
	"github.com/Joseda-hg/lazyplan/internal/query"
)

// taskRow is one line of the tasks pane. Rows with TaskIndex -1 are group
// headers or informational lines and cannot be selected.
type taskRow struct {
	Text      string
	TaskIndex int
}

func (r taskRow) isTask() bool {
	return r.TaskIndex >= 0
}

// buildRows flattens grouped tasks into pane rows, one header per group.
func buildRows(groups []query.Group) ([]taskRow, []model.Task) {
	rows := make([]taskRow, 0)
	tasks := make([]model.Task, 0)
	for _, group := range groups {
		rows = append(rows, taskRow{
			Text:      fmt.Sprintf("%s (%s)", group.Title, query.DisplayCount(len(group.Tasks))),
			TaskIndex: -1,
		})
		for _, task := range group.Tasks {
			rows = append(rows, taskRow{Text: formatTaskSummary(task), TaskIndex: len(tasks)})
			tasks = append(tasks, task)
		}
	}
	return rows, tasks
}

// searchRows lists matching tasks as a selectable group, followed by matching
// lists and labels as plain lines.
func searchRows(results query.SearchResults) ([]taskRow, []model.Task) {
	var groups []query.Group
	if len(results.Tasks) > 0 {
		matched := make([]model.Task, 0, len(results.Tasks))
		for _, scored := range results.Tasks {
			matched = append(matched, scored.Item)
		}
		groups = append(groups, query.Group{Title: "Tasks", Tasks: matched})
	}
	rows, tasks := buildRows(groups)

	if len(results.Lists) > 0 {
		rows = append(rows, taskRow{Text: fmt.Sprintf("Lists (%d)", len(results.Lists)), TaskIndex: -1})
		for _, scored := range results.Lists {
			rows = append(rows, taskRow{Text: "  " + strings.TrimSpace(scored.Item.Emoji+" "+scored.Item.Name), TaskIndex: -1})
		}
	}
	if len(results.Labels) > 0 {
		rows = append(rows, taskRow{Text: fmt.Sprintf("Labels (%d)", len(results.Labels)), TaskIndex: -1})
		for _, scored := range results.Labels {
			rows = append(rows, taskRow{Text: "  #" + scored.Item.Name, TaskIndex: -1})
		}
	}
	if len(rows) == 0 {
		rows = append(rows, taskRow{Text: "No matches", TaskIndex: -1})
	}
	return rows, tasks
}

// rowOfTask returns the row that shows tasks[index], or 0.
func rowOfTask(rows []taskRow, index int) int {
	for i, row := range rows {
		if row.TaskIndex == index {
			return i
		}
	}
	return 0
}

func formatLabels(labels []model.Label) string {
	if len(labels) == 0 {
		return "no labels"
	}
	parts := make([]string, 0, len(labels))
	for _, label := range labels {
		parts = append(parts, "#"+label.Name)
	}
	return strings.Join(parts, " ")
}

func formatTaskSummary(task model.Task) string {
	check := "[ ]"
	if task.IsCompleted {
		check = "[x]"
	}
	parts := []string{check + " " + task.Name}
	if task.HasDate() {
		parts = append(parts, task.Date.String())
	}
	if task.Priority != "" && task.Priority != model.PriorityNone {
		parts = append(parts, "!"+string(task.Priority))
	}
	if len(task.Labels) > 0 {
		parts = append(parts, formatLabels(task.Labels))
	}
	return strings.Join(parts, " | ")
}
