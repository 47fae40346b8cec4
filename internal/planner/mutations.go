package planner

import (
	"context"
	"time"

	"github.com/Joseda-hg/lazyplan/internal/db"
	"github.com/Joseda-hg/lazyplan/internal/model"
)

// Every write goes to the store first and drops the cached snapshots only
// when it succeeded.
func mutate[T any](ctx context.Context, p *Planner, write func() (T, error)) (T, error) {
	value, err := write()
	if err != nil {
		return value, err
	}
	p.invalidate(ctx)
	return value, nil
}

func (p *Planner) run(ctx context.Context, write func() error) error {
	_, err := mutate(ctx, p, func() (struct{}, error) { return struct{}{}, write() })
	return err
}

func (p *Planner) CreateTask(ctx context.Context, input db.TaskInput) (model.Task, error) {
	return mutate(ctx, p, func() (model.Task, error) { return p.Store.CreateTask(ctx, input) })
}

func (p *Planner) UpdateTask(ctx context.Context, taskID string, input db.TaskInput) (model.Task, error) {
	return mutate(ctx, p, func() (model.Task, error) { return p.Store.UpdateTask(ctx, taskID, input) })
}

func (p *Planner) ToggleTask(ctx context.Context, taskID string) (model.Task, error) {
	return mutate(ctx, p, func() (model.Task, error) { return p.Store.ToggleTask(ctx, taskID) })
}

// PatchTask applies field edits and a completion change atomically; either
// may be nil.
func (p *Planner) PatchTask(ctx context.Context, taskID string, input *db.TaskInput, completed *bool) (model.Task, error) {
	return mutate(ctx, p, func() (model.Task, error) { return p.Store.PatchTask(ctx, taskID, input, completed) })
}

func (p *Planner) SetTaskCompleted(ctx context.Context, taskID string, completed bool) (model.Task, error) {
	return mutate(ctx, p, func() (model.Task, error) { return p.Store.SetTaskCompleted(ctx, taskID, completed) })
}

func (p *Planner) SetTaskLabels(ctx context.Context, taskID string, labelIDs []string) (model.Task, error) {
	return mutate(ctx, p, func() (model.Task, error) { return p.Store.SetTaskLabels(ctx, taskID, labelIDs) })
}

func (p *Planner) DeleteTask(ctx context.Context, taskID string) error {
	return p.run(ctx, func() error { return p.Store.DeleteTask(ctx, taskID) })
}

func (p *Planner) CreateList(ctx context.Context, input db.ListInput) (model.List, error) {
	return mutate(ctx, p, func() (model.List, error) { return p.Store.CreateList(ctx, input) })
}

func (p *Planner) UpdateList(ctx context.Context, listID string, input db.ListInput) (model.List, error) {
	return mutate(ctx, p, func() (model.List, error) { return p.Store.UpdateList(ctx, listID, input) })
}

func (p *Planner) DeleteList(ctx context.Context, listID string) error {
	return p.run(ctx, func() error { return p.Store.DeleteList(ctx, listID) })
}

func (p *Planner) CreateLabel(ctx context.Context, input db.LabelInput) (model.Label, error) {
	return mutate(ctx, p, func() (model.Label, error) { return p.Store.CreateLabel(ctx, input) })
}

func (p *Planner) UpdateLabel(ctx context.Context, labelID string, input db.LabelInput) (model.Label, error) {
	return mutate(ctx, p, func() (model.Label, error) { return p.Store.UpdateLabel(ctx, labelID, input) })
}

func (p *Planner) DeleteLabel(ctx context.Context, labelID string) error {
	return p.run(ctx, func() error { return p.Store.DeleteLabel(ctx, labelID) })
}

func (p *Planner) CreateSubtask(ctx context.Context, taskID, name string) (model.Subtask, error) {
	return mutate(ctx, p, func() (model.Subtask, error) { return p.Store.CreateSubtask(ctx, taskID, name) })
}

func (p *Planner) ToggleSubtask(ctx context.Context, subtaskID string) (model.Subtask, error) {
	return mutate(ctx, p, func() (model.Subtask, error) { return p.Store.ToggleSubtask(ctx, subtaskID) })
}

func (p *Planner) DeleteSubtask(ctx context.Context, subtaskID string) error {
	return p.run(ctx, func() error { return p.Store.DeleteSubtask(ctx, subtaskID) })
}

func (p *Planner) CreateReminder(ctx context.Context, taskID string, remindAt time.Time) (model.Reminder, error) {
	return mutate(ctx, p, func() (model.Reminder, error) { return p.Store.CreateReminder(ctx, taskID, remindAt) })
}

func (p *Planner) DeleteReminder(ctx context.Context, reminderID string) error {
	return p.run(ctx, func() error { return p.Store.DeleteReminder(ctx, reminderID) })
}
