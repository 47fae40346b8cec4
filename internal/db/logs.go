package db

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Joseda-hg/lazyplan/internal/model"
)

const (
	ActionCreated          = "created"
	ActionUpdated          = "updated"
	ActionCompleted        = "completed"
	ActionUncompleted      = "uncompleted"
	ActionLabels           = "labels"
	ActionSubtaskAdded     = "subtask_added"
	ActionSubtaskCompleted = "subtask_completed"
	ActionSubtaskReopened  = "subtask_reopened"
	ActionSubtaskDeleted   = "subtask_deleted"
	ActionReminderAdded    = "reminder_added"
	ActionReminderDeleted  = "reminder_deleted"
	ActionReminderFired    = "reminder_fired"
)

// ListTaskLogs returns the log of a task, oldest first.
func (s *Store) ListTaskLogs(ctx context.Context, taskID string) ([]model.TaskLog, error) {
	if _, err := s.GetTask(ctx, taskID); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx,
		"SELECT id, task_id, action, details, created_at FROM task_logs WHERE task_id = ? ORDER BY created_at, rowid",
		taskID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []model.TaskLog{}
	for rows.Next() {
		var entry model.TaskLog
		var createdAt string
		if err := rows.Scan(&entry.ID, &entry.TaskID, &entry.Action, &entry.Details, &createdAt); err != nil {
			return nil, err
		}
		if entry.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

func appendLog(ctx context.Context, q querier, taskID, action, details string, at time.Time) error {
	if _, err := q.ExecContext(ctx,
		"INSERT INTO task_logs (id, task_id, action, details, created_at) VALUES (?, ?, ?, ?, ?)",
		uuid.NewString(), taskID, action, details, formatTime(at),
	); err != nil {
		return fmt.Errorf("append %s log: %w", action, err)
	}
	return nil
}

func formatCreatedDetails(task model.Task) string {
	return fmt.Sprintf("created: name='%s' priority=%s date=%s deadline=%s labels=%s",
		task.Name, task.Priority, formatDate(task.Date), formatDeadline(task.Deadline), formatLabels(task.Labels))
}

func formatTaskDiff(before, after model.Task) string {
	changes := []string{}
	if before.Name != after.Name {
		changes = append(changes, formatChange("name", before.Name, after.Name))
	}
	if before.Description != after.Description {
		changes = append(changes, formatChange("description", before.Description, after.Description))
	}
	if before.ListID != after.ListID {
		changes = append(changes, formatChange("list", before.ListID, after.ListID))
	}
	if before.Priority != after.Priority {
		changes = append(changes, formatChange("priority", string(before.Priority), string(after.Priority)))
	}
	if formatDate(before.Date) != formatDate(after.Date) {
		changes = append(changes, formatChange("date", formatDate(before.Date), formatDate(after.Date)))
	}
	if formatDeadline(before.Deadline) != formatDeadline(after.Deadline) {
		changes = append(changes, formatChange("deadline", formatDeadline(before.Deadline), formatDeadline(after.Deadline)))
	}
	beforeLabels := formatLabels(before.Labels)
	afterLabels := formatLabels(after.Labels)
	if beforeLabels != afterLabels {
		changes = append(changes, formatChange("labels", beforeLabels, afterLabels))
	}

	if len(changes) == 0 {
		return "updated: no changes"
	}

	return "updated: " + strings.Join(changes, "; ")
}

func formatChange(field, before, after string) string {
	return fmt.Sprintf("%s: '%s' -> '%s'", field, valueOrNone(before), valueOrNone(after))
}

func valueOrNone(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "none"
	}
	return trimmed
}

func formatDate(value model.Date) string {
	if value.IsZero() {
		return "none"
	}
	return value.String()
}

func formatDeadline(value *time.Time) string {
	if value == nil {
		return "none"
	}
	return value.UTC().Format(time.RFC3339)
}

func formatLabels(labels []model.Label) string {
	if len(labels) == 0 {
		return "none"
	}

	names := make([]string, 0, len(labels))
	for _, label := range labels {
		names = append(names, label.Name)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
