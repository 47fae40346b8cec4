package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Joseda-hg/lazyplan/internal/clock"
	"github.com/Joseda-hg/lazyplan/internal/db"
	"github.com/Joseda-hg/lazyplan/internal/model"
	"github.com/Joseda-hg/lazyplan/internal/planner"
	"github.com/Joseda-hg/lazyplan/internal/query"
)

var referenceNow = time.Date(2024, time.May, 15, 9, 0, 0, 0, time.UTC)

func TestToggleDoneAndIncludeCompleted(t *testing.T) {
	p, cleanup := newTestPlanner(t)
	defer cleanup()

	mustCreate(t, p, db.TaskInput{Name: "Overdue chore", Date: model.MustParseDate("2024-05-13")})
	mustCreate(t, p, db.TaskInput{Name: "Standup", Date: model.MustParseDate("2024-05-15")})
	mustCreate(t, p, db.TaskInput{Name: "Dentist", Date: model.MustParseDate("2024-05-16")})

	ui := newUI(context.Background(), p)
	if err := ui.load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(ui.tasks) != 2 || ui.tasks[0].Name != "Overdue chore" || ui.tasks[1].Name != "Standup" {
		t.Fatalf("unexpected today tasks %v", taskNames(ui.tasks))
	}
	if ui.title != "Today (1 overdue)" {
		t.Fatalf("unexpected title %q", ui.title)
	}

	ui.selectedTask = 1
	if err := ui.toggleDone(nil, nil); err != nil {
		t.Fatalf("toggle done: %v", err)
	}
	if len(ui.tasks) != 1 {
		t.Fatalf("expected completed task hidden, got %v", taskNames(ui.tasks))
	}

	if err := ui.toggleIncludeCompleted(nil, nil); err != nil {
		t.Fatalf("toggle include completed: %v", err)
	}
	if len(ui.tasks) != 2 || !ui.tasks[1].IsCompleted {
		t.Fatalf("expected completed task shown, got %v", taskNames(ui.tasks))
	}

	if err := ui.showView(1); err != nil {
		t.Fatalf("show week: %v", err)
	}
	if ui.view != query.ViewWeek || len(ui.tasks) != 3 {
		t.Fatalf("expected 3 tasks in week view, got %v", taskNames(ui.tasks))
	}
}

func TestMoveSelectsTaskAndLoadsDetail(t *testing.T) {
	p, cleanup := newTestPlanner(t)
	defer cleanup()

	mustCreate(t, p, db.TaskInput{Name: "First", Date: model.MustParseDate("2024-05-15")})
	mustCreate(t, p, db.TaskInput{Name: "Second", Date: model.MustParseDate("2024-05-15")})

	ui := newUI(context.Background(), p)
	if err := ui.load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if ui.detail == nil || ui.detail.Task.Name != "First" {
		t.Fatalf("expected detail for first task, got %+v", ui.detail)
	}

	if err := ui.moveDown(nil, nil); err != nil {
		t.Fatalf("move down: %v", err)
	}
	if ui.detail.Task.Name != "Second" || len(ui.detail.Logs) != 1 {
		t.Fatalf("expected detail for second task with its log, got %+v", ui.detail)
	}
	if err := ui.moveDown(nil, nil); err != nil {
		t.Fatalf("move down at end: %v", err)
	}
	if ui.selectedTask != 1 {
		t.Fatalf("expected selection to stay on last task, got %d", ui.selectedTask)
	}
}

func TestListsPane(t *testing.T) {
	p, cleanup := newTestPlanner(t)
	defer cleanup()

	ui := newUI(context.Background(), p)
	if err := ui.createList("Work"); err != nil {
		t.Fatalf("create list: %v", err)
	}
	if err := ui.load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(ui.sidebar.Lists) != 2 {
		t.Fatalf("expected inbox and work, got %d lists", len(ui.sidebar.Lists))
	}
	work := ui.sidebar.Lists[1].List
	mustCreate(t, p, db.TaskInput{Name: "Deploy", ListID: work.ID})

	ui.focus = viewLists
	if err := ui.moveDown(nil, nil); err != nil {
		t.Fatalf("move to work: %v", err)
	}
	if ui.listID != work.ID || ui.title != "Work" || len(ui.tasks) != 1 {
		t.Fatalf("expected work list shown, got %q %v", ui.title, taskNames(ui.tasks))
	}

	// A task added while a list is open lands in that list.
	if err := ui.addTask(nil, nil); err != nil {
		t.Fatalf("add task: %v", err)
	}
	ui.form.fields[fieldName].Value = "Rollback plan"
	if err := ui.saveForm(); err != nil {
		t.Fatalf("save form: %v", err)
	}
	ui.form = nil
	if err := ui.load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(ui.tasks) != 2 {
		t.Fatalf("expected new task in work list, got %v", taskNames(ui.tasks))
	}

	ui.selectedList = 0
	if err := ui.delete(nil, nil); err != nil {
		t.Fatalf("delete inbox: %v", err)
	}
	if !strings.Contains(ui.status, "default list") {
		t.Fatalf("expected default list refusal, got %q", ui.status)
	}

	ui.selectedList = 1
	if err := ui.delete(nil, nil); err != nil {
		t.Fatalf("delete work: %v", err)
	}
	if ui.listID != "" || len(ui.sidebar.Lists) != 1 || ui.title != "Today" {
		t.Fatalf("expected fallback to today view, got list=%q lists=%d title=%q", ui.listID, len(ui.sidebar.Lists), ui.title)
	}
}

func TestSearchAndClear(t *testing.T) {
	p, cleanup := newTestPlanner(t)
	defer cleanup()

	mustCreate(t, p, db.TaskInput{Name: "Buy milk"})
	mustCreate(t, p, db.TaskInput{Name: "Call mom", Date: model.MustParseDate("2024-05-15")})
	if _, err := p.CreateList(context.Background(), db.ListInput{Name: "Milk run"}); err != nil {
		t.Fatalf("create list: %v", err)
	}

	ui := newUI(context.Background(), p)
	ui.search = "milk"
	if err := ui.load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(ui.tasks) != 1 || ui.tasks[0].Name != "Buy milk" {
		t.Fatalf("unexpected search tasks %v", taskNames(ui.tasks))
	}
	if !containsRow(ui.rows, "Milk run") {
		t.Fatalf("expected list match row, got %+v", ui.rows)
	}

	if err := ui.clearSearch(nil, nil); err != nil {
		t.Fatalf("clear search: %v", err)
	}
	if ui.search != "" || len(ui.tasks) != 1 || ui.tasks[0].Name != "Call mom" {
		t.Fatalf("expected today view after clearing, got %v", taskNames(ui.tasks))
	}
}

func TestEditFormUpdatesTask(t *testing.T) {
	p, cleanup := newTestPlanner(t)
	defer cleanup()

	label, err := p.CreateLabel(context.Background(), db.LabelInput{Name: "Errand"})
	if err != nil {
		t.Fatalf("create label: %v", err)
	}
	mustCreate(t, p, db.TaskInput{Name: "Post office", Date: model.MustParseDate("2024-05-15")})

	ui := newUI(context.Background(), p)
	if err := ui.load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := ui.editTask(nil, nil); err != nil {
		t.Fatalf("edit: %v", err)
	}
	ui.form.fields[fieldPriority].Value = cyclePriority(ui.form.fields[fieldPriority].Value, -1)
	ui.form.fields[fieldLabels].Value = toggleLabelName(ui.form.fields[fieldLabels].Value, ui.currentLabelOption())
	if err := ui.saveForm(); err != nil {
		t.Fatalf("save: %v", err)
	}

	task, err := p.Store.GetTask(context.Background(), ui.form.taskID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if task.Priority != model.PriorityHigh || len(task.Labels) != 1 || task.Labels[0].ID != label.ID {
		t.Fatalf("unexpected task after edit %+v", task)
	}
}

func TestParseFormFields(t *testing.T) {
	labels := []model.Label{{ID: "l1", Name: "Home"}, {ID: "l2", Name: "Work"}}

	tests := []struct {
		name    string
		edit    func([]formField)
		wantErr bool
		check   func(*testing.T, db.TaskInput)
	}{
		{
			name: "all fields",
			edit: func(f []formField) {
				f[fieldName].Value = "  Plan trip "
				f[fieldDate].Value = "2024-05-20"
				f[fieldDeadline].Value = "2024-05-21 18:30"
				f[fieldPriority].Value = "medium"
				f[fieldLabels].Value = "home, WORK"
			},
			check: func(t *testing.T, in db.TaskInput) {
				if in.Name != "Plan trip" || in.Date.String() != "2024-05-20" || in.Priority != model.PriorityMedium {
					t.Fatalf("unexpected input %+v", in)
				}
				if in.Deadline == nil || in.Deadline.Hour() != 18 || in.Deadline.Minute() != 30 {
					t.Fatalf("unexpected deadline %v", in.Deadline)
				}
				if len(in.LabelIDs) != 2 || in.LabelIDs[0] != "l1" || in.LabelIDs[1] != "l2" {
					t.Fatalf("unexpected labels %v", in.LabelIDs)
				}
			},
		},
		{
			name: "empty labels clear",
			edit: func(f []formField) { f[fieldName].Value = "x" },
			check: func(t *testing.T, in db.TaskInput) {
				if in.LabelIDs == nil || len(in.LabelIDs) != 0 {
					t.Fatalf("expected empty non-nil labels, got %#v", in.LabelIDs)
				}
				if in.Deadline != nil || !in.Date.IsZero() || in.Priority != model.PriorityNone {
					t.Fatalf("unexpected input %+v", in)
				}
			},
		},
		{name: "bad date", edit: func(f []formField) { f[fieldDate].Value = "tomorrow" }, wantErr: true},
		{name: "bad deadline", edit: func(f []formField) { f[fieldDeadline].Value = "6pm" }, wantErr: true},
		{name: "bad priority", edit: func(f []formField) { f[fieldPriority].Value = "urgent" }, wantErr: true},
		{name: "unknown label", edit: func(f []formField) { f[fieldLabels].Value = "Garden" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := buildFormFields(nil, model.Date{}, time.UTC)
			tt.edit(fields)
			input, err := parseFormFields(fields, labels, time.UTC)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if tt.check != nil {
				tt.check(t, input)
			}
		})
	}
}

func TestBuildRows(t *testing.T) {
	groups := []query.Group{
		{Title: "Overdue", Tasks: []model.Task{{ID: "a", Name: "A"}}},
		{Title: "Today", Tasks: []model.Task{{ID: "b", Name: "B", IsCompleted: true}, {ID: "c", Name: "C", Priority: model.PriorityHigh}}},
	}

	rows, tasks := buildRows(groups)
	if len(rows) != 5 || len(tasks) != 3 {
		t.Fatalf("expected 5 rows and 3 tasks, got %d and %d", len(rows), len(tasks))
	}
	if rows[0].isTask() || rows[0].Text != "Overdue (1)" || rows[2].Text != "Today (2)" {
		t.Fatalf("unexpected headers %+v", rows)
	}
	if rows[3].Text != "[x] B" || rows[4].Text != "[ ] C | !high" {
		t.Fatalf("unexpected task rows %q %q", rows[3].Text, rows[4].Text)
	}
	if got := rowOfTask(rows, 2); got != 4 {
		t.Fatalf("expected task 2 on row 4, got %d", got)
	}
}

func TestComputeLayout(t *testing.T) {
	tests := []struct {
		width, height int
	}{
		{width: 200, height: 50},
		{width: 120, height: 30},
		{width: 40, height: 8},
	}
	for _, tt := range tests {
		lay := computeLayout(tt.width, tt.height)
		if lay.leftWidth+lay.rightWidth >= max(tt.width-2, 40) {
			t.Fatalf("%dx%d: side panes leave no room for tasks: %+v", tt.width, tt.height, lay)
		}
		if lay.navHeight < 1 || lay.detailHeight < 4 {
			t.Fatalf("%dx%d: unexpected heights %+v", tt.width, tt.height, lay)
		}
	}
}

func TestCyclePriority(t *testing.T) {
	if got := cyclePriority("none", 1); got != "low" {
		t.Fatalf("expected low, got %q", got)
	}
	if got := cyclePriority("high", 1); got != "none" {
		t.Fatalf("expected wrap to none, got %q", got)
	}
	if got := cyclePriority("none", -1); got != "high" {
		t.Fatalf("expected wrap to high, got %q", got)
	}
}

func taskNames(tasks []model.Task) []string {
	names := make([]string, 0, len(tasks))
	for _, task := range tasks {
		names = append(names, task.Name)
	}
	return names
}

func containsRow(rows []taskRow, text string) bool {
	for _, row := range rows {
		if strings.Contains(row.Text, text) {
			return true
		}
	}
	return false
}

func mustCreate(t *testing.T, p *planner.Planner, input db.TaskInput) model.Task {
	t.Helper()
	task, err := p.CreateTask(context.Background(), input)
	if err != nil {
		t.Fatalf("create task %q: %v", input.Name, err)
	}
	return task
}

func newTestPlanner(t *testing.T) (*planner.Planner, func()) {
	t.Helper()
	dbConn, err := db.Open(":memory:", clock.Fixed{At: referenceNow})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	clk := clock.Fixed{At: referenceNow}
	return planner.New(db.NewStore(dbConn, clk), clk, nil), func() {
		_ = dbConn.Close()
	}
}
