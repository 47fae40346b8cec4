package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Joseda-hg/lazyplan/internal/clock"
	"github.com/Joseda-hg/lazyplan/internal/model"
)

// Fixed-width UTC layout so stored instants sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const taskColumns = "id, list_id, name, description, date, deadline, priority, is_completed, completed_at, created_at, updated_at"

const taskOrder = "ORDER BY date IS NULL, date, created_at, rowid"

type Store struct {
	DB    *sql.DB
	Clock clock.Clock
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func NewStore(db *sql.DB, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.System{}
	}
	return &Store{DB: db, Clock: clk}
}

func (s *Store) now() time.Time {
	return s.Clock.Now()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// TasksByList returns the tasks of one list.
func (s *Store) TasksByList(ctx context.Context, listID string) ([]model.Task, error) {
	return s.queryTasks(ctx, s.DB, "SELECT "+taskColumns+" FROM tasks WHERE list_id = ? "+taskOrder, listID)
}

func (s *Store) AllTasks(ctx context.Context) ([]model.Task, error) {
	return s.queryTasks(ctx, s.DB, "SELECT "+taskColumns+" FROM tasks "+taskOrder)
}

// TasksByDateRange returns dated tasks with from <= date <= to. A zero bound
// leaves that side open. Undated tasks are never returned.
func (s *Store) TasksByDateRange(ctx context.Context, from, to model.Date) ([]model.Task, error) {
	return s.queryTasks(ctx, s.DB,
		"SELECT "+taskColumns+" FROM tasks WHERE date IS NOT NULL AND (? = '' OR date >= ?) AND (? = '' OR date <= ?) "+taskOrder,
		from.String(), from.String(), to.String(), to.String(),
	)
}

func (s *Store) GetTask(ctx context.Context, taskID string) (model.Task, error) {
	return s.getTask(ctx, s.DB, taskID)
}

func (s *Store) getTask(ctx context.Context, q querier, taskID string) (model.Task, error) {
	task, err := scanTask(q.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", taskID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Task{}, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
		}
		return model.Task{}, err
	}

	tasks := []model.Task{task}
	if err := attachLabels(ctx, q, tasks); err != nil {
		return model.Task{}, err
	}
	return tasks[0], nil
}

func (s *Store) queryTasks(ctx context.Context, q querier, query string, args ...any) ([]model.Task, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := attachLabels(ctx, q, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *Store) CreateTask(ctx context.Context, input TaskInput) (model.Task, error) {
	if err := input.Validate(clock.Location(s.Clock)); err != nil {
		return model.Task{}, err
	}

	var created model.Task
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		listID, err := resolveListID(ctx, tx, input.ListID)
		if err != nil {
			return err
		}

		now := s.now()
		id := uuid.NewString()
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO tasks (id, list_id, name, description, date, deadline, priority, is_completed, completed_at, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, 0, NULL, ?, ?)",
			id, listID, input.Name, input.Description, input.Date, nullableTime(input.Deadline), string(input.Priority), formatTime(now), formatTime(now),
		); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}

		if len(input.LabelIDs) > 0 {
			if err := replaceLabels(ctx, tx, id, input.LabelIDs); err != nil {
				return err
			}
		}

		created, err = s.getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		return appendLog(ctx, tx, id, ActionCreated, formatCreatedDetails(created), now)
	})
	if err != nil {
		return model.Task{}, err
	}
	return created, nil
}

// UpdateTask replaces the editable fields of a task. Completion is changed
// only through SetTaskCompleted, ToggleTask and PatchTask.
func (s *Store) UpdateTask(ctx context.Context, taskID string, input TaskInput) (model.Task, error) {
	return s.PatchTask(ctx, taskID, &input, nil)
}

// PatchTask applies field edits (when input is non-nil) and a completion
// change (when completed is non-nil) in one transaction. Each part appends
// its own log entry; if either fails, neither is kept.
func (s *Store) PatchTask(ctx context.Context, taskID string, input *TaskInput, completed *bool) (model.Task, error) {
	if input != nil {
		if err := input.Validate(clock.Location(s.Clock)); err != nil {
			return model.Task{}, err
		}
	}

	var result model.Task
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if result, err = s.getTask(ctx, tx, taskID); err != nil {
			return err
		}
		if input != nil {
			if result, err = s.updateFields(ctx, tx, result, *input); err != nil {
				return err
			}
		}
		if completed != nil {
			want := *completed
			if result, err = s.setCompleted(ctx, tx, taskID, func(bool) bool { return want }); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.Task{}, err
	}
	return result, nil
}

func (s *Store) updateFields(ctx context.Context, tx *sql.Tx, before model.Task, input TaskInput) (model.Task, error) {
	listID := before.ListID
	if input.ListID != "" {
		var err error
		if listID, err = resolveListID(ctx, tx, input.ListID); err != nil {
			return model.Task{}, err
		}
	}

	now := s.now()
	if _, err := tx.ExecContext(ctx,
		"UPDATE tasks SET list_id = ?, name = ?, description = ?, date = ?, deadline = ?, priority = ?, updated_at = ? WHERE id = ?",
		listID, input.Name, input.Description, input.Date, nullableTime(input.Deadline), string(input.Priority), formatTime(now), before.ID,
	); err != nil {
		return model.Task{}, fmt.Errorf("update task: %w", err)
	}

	if input.LabelIDs != nil {
		if err := replaceLabels(ctx, tx, before.ID, input.LabelIDs); err != nil {
			return model.Task{}, err
		}
	}

	after, err := s.getTask(ctx, tx, before.ID)
	if err != nil {
		return model.Task{}, err
	}
	if err := appendLog(ctx, tx, before.ID, ActionUpdated, formatTaskDiff(before, after), now); err != nil {
		return model.Task{}, err
	}
	return after, nil
}

// SetTaskCompleted sets or clears completion. Setting the current state again
// is a no-op and writes no log entry.
func (s *Store) SetTaskCompleted(ctx context.Context, taskID string, completed bool) (model.Task, error) {
	var result model.Task
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		result, err = s.setCompleted(ctx, tx, taskID, func(bool) bool { return completed })
		return err
	})
	return result, err
}

func (s *Store) ToggleTask(ctx context.Context, taskID string) (model.Task, error) {
	var result model.Task
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		result, err = s.setCompleted(ctx, tx, taskID, func(current bool) bool { return !current })
		return err
	})
	return result, err
}

func (s *Store) setCompleted(ctx context.Context, tx *sql.Tx, taskID string, next func(bool) bool) (model.Task, error) {
	before, err := s.getTask(ctx, tx, taskID)
	if err != nil {
		return model.Task{}, err
	}

	completed := next(before.IsCompleted)
	if completed == before.IsCompleted {
		return before, nil
	}

	now := s.now()
	action := ActionUncompleted
	var completedAt any
	if completed {
		action = ActionCompleted
		completedAt = formatTime(now)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE tasks SET is_completed = ?, completed_at = ?, updated_at = ? WHERE id = ?",
		boolInt(completed), completedAt, formatTime(now), taskID,
	); err != nil {
		return model.Task{}, fmt.Errorf("update completion: %w", err)
	}

	if err := appendLog(ctx, tx, taskID, action, fmt.Sprintf("%s: '%s'", action, before.Name), now); err != nil {
		return model.Task{}, err
	}
	return s.getTask(ctx, tx, taskID)
}

// DeleteTask removes a task. Subtasks, reminders, label links and log
// entries go with it.
func (s *Store) DeleteTask(ctx context.Context, taskID string) error {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", taskID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return requireAffected(res, "task", taskID)
}

// SetTaskLabels replaces the label set of a task.
func (s *Store) SetTaskLabels(ctx context.Context, taskID string, labelIDs []string) (model.Task, error) {
	var after model.Task
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		before, err := s.getTask(ctx, tx, taskID)
		if err != nil {
			return err
		}

		if err := replaceLabels(ctx, tx, taskID, labelIDs); err != nil {
			return err
		}

		now := s.now()
		if err := touchTask(ctx, tx, taskID, now); err != nil {
			return err
		}

		after, err = s.getTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		details := formatChange("labels", formatLabels(before.Labels), formatLabels(after.Labels))
		return appendLog(ctx, tx, taskID, ActionLabels, details, now)
	})
	if err != nil {
		return model.Task{}, err
	}
	return after, nil
}

func resolveListID(ctx context.Context, q querier, listID string) (string, error) {
	if listID == "" {
		var id string
		if err := q.QueryRowContext(ctx, "SELECT id FROM lists WHERE is_default = 1").Scan(&id); err != nil {
			return "", fmt.Errorf("default list: %w", err)
		}
		return id, nil
	}

	var exists int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM lists WHERE id = ?", listID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: list %s does not exist", ErrInvalidInput, listID)
	}
	if err != nil {
		return "", err
	}
	return listID, nil
}

func replaceLabels(ctx context.Context, tx *sql.Tx, taskID string, labelIDs []string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM task_labels WHERE task_id = ?", taskID); err != nil {
		return fmt.Errorf("clear labels: %w", err)
	}

	for _, labelID := range normalizeIDs(labelIDs) {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM labels WHERE id = ?", labelID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: label %s does not exist", ErrInvalidInput, labelID)
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO task_labels (task_id, label_id) VALUES (?, ?)", taskID, labelID); err != nil {
			return fmt.Errorf("assign label: %w", err)
		}
	}
	return nil
}

func attachLabels(ctx context.Context, q querier, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	index := make(map[string]int, len(tasks))
	for i := range tasks {
		index[tasks[i].ID] = i
		tasks[i].Labels = []model.Label{}
	}

	query := "SELECT tl.task_id, l.id, l.name, l.color, l.icon, l.created_at FROM task_labels tl JOIN labels l ON l.id = tl.label_id"
	var args []any
	if len(tasks) == 1 {
		query += " WHERE tl.task_id = ?"
		args = append(args, tasks[0].ID)
	}
	query += " ORDER BY l.name COLLATE NOCASE"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("load labels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var taskID, createdAt string
		var label model.Label
		if err := rows.Scan(&taskID, &label.ID, &label.Name, &label.Color, &label.Icon, &createdAt); err != nil {
			return err
		}
		if label.CreatedAt, err = parseTime(createdAt); err != nil {
			return err
		}
		if i, ok := index[taskID]; ok {
			tasks[i].Labels = append(tasks[i].Labels, label)
		}
	}
	return rows.Err()
}

func touchTask(ctx context.Context, q querier, taskID string, now time.Time) error {
	res, err := q.ExecContext(ctx, "UPDATE tasks SET updated_at = ? WHERE id = ?", formatTime(now), taskID)
	if err != nil {
		return fmt.Errorf("touch task: %w", err)
	}
	return requireAffected(res, "task", taskID)
}

func scanTask(row scanner) (model.Task, error) {
	var (
		task                 model.Task
		deadline, completed  sql.NullString
		priority             string
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&task.ID, &task.ListID, &task.Name, &task.Description, &task.Date, &deadline,
		&priority, &task.IsCompleted, &completed, &createdAt, &updatedAt,
	); err != nil {
		return model.Task{}, err
	}

	task.Priority = model.Priority(priority)
	var err error
	if task.Deadline, err = parseNullTime(deadline); err != nil {
		return model.Task{}, err
	}
	if task.CompletedAt, err = parseNullTime(completed); err != nil {
		return model.Task{}, err
	}
	if task.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Task{}, err
	}
	if task.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

func requireAffected(res sql.Result, kind, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}

func boolInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return parsed, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseNullTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	parsed, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
