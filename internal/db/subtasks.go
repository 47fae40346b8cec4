package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Joseda-hg/lazyplan/internal/model"
)

func (s *Store) ListSubtasks(ctx context.Context, taskID string) ([]model.Subtask, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT id, task_id, name, is_completed, created_at, updated_at FROM subtasks WHERE task_id = ? ORDER BY created_at, rowid",
		taskID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subtasks := []model.Subtask{}
	for rows.Next() {
		subtask, err := scanSubtask(rows)
		if err != nil {
			return nil, err
		}
		subtasks = append(subtasks, subtask)
	}
	return subtasks, rows.Err()
}

func (s *Store) CreateSubtask(ctx context.Context, taskID, name string) (model.Subtask, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Subtask{}, fmt.Errorf("%w: subtask name is required", ErrInvalidInput)
	}

	var created model.Subtask
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := s.now()
		if err := touchTask(ctx, tx, taskID, now); err != nil {
			return err
		}

		id := uuid.NewString()
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO subtasks (id, task_id, name, is_completed, created_at, updated_at) VALUES (?, ?, ?, 0, ?, ?)",
			id, taskID, name, formatTime(now), formatTime(now),
		); err != nil {
			return fmt.Errorf("insert subtask: %w", err)
		}

		var err error
		if created, err = getSubtask(ctx, tx, id); err != nil {
			return err
		}
		return appendLog(ctx, tx, taskID, ActionSubtaskAdded, fmt.Sprintf("subtask added: '%s'", name), now)
	})
	if err != nil {
		return model.Subtask{}, err
	}
	return created, nil
}

func (s *Store) ToggleSubtask(ctx context.Context, subtaskID string) (model.Subtask, error) {
	var toggled model.Subtask
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		before, err := getSubtask(ctx, tx, subtaskID)
		if err != nil {
			return err
		}

		now := s.now()
		completed := !before.IsCompleted
		if _, err := tx.ExecContext(ctx,
			"UPDATE subtasks SET is_completed = ?, updated_at = ? WHERE id = ?",
			boolInt(completed), formatTime(now), subtaskID,
		); err != nil {
			return fmt.Errorf("toggle subtask: %w", err)
		}
		if err := touchTask(ctx, tx, before.TaskID, now); err != nil {
			return err
		}

		action := ActionSubtaskReopened
		if completed {
			action = ActionSubtaskCompleted
		}
		if toggled, err = getSubtask(ctx, tx, subtaskID); err != nil {
			return err
		}
		return appendLog(ctx, tx, before.TaskID, action, fmt.Sprintf("%s: '%s'", strings.ReplaceAll(action, "_", " "), before.Name), now)
	})
	if err != nil {
		return model.Subtask{}, err
	}
	return toggled, nil
}

func (s *Store) DeleteSubtask(ctx context.Context, subtaskID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		before, err := getSubtask(ctx, tx, subtaskID)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM subtasks WHERE id = ?", subtaskID); err != nil {
			return fmt.Errorf("delete subtask: %w", err)
		}

		now := s.now()
		if err := touchTask(ctx, tx, before.TaskID, now); err != nil {
			return err
		}
		return appendLog(ctx, tx, before.TaskID, ActionSubtaskDeleted, fmt.Sprintf("subtask deleted: '%s'", before.Name), now)
	})
}

func getSubtask(ctx context.Context, q querier, subtaskID string) (model.Subtask, error) {
	subtask, err := scanSubtask(q.QueryRowContext(ctx,
		"SELECT id, task_id, name, is_completed, created_at, updated_at FROM subtasks WHERE id = ?", subtaskID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Subtask{}, fmt.Errorf("subtask %s: %w", subtaskID, ErrNotFound)
	}
	return subtask, err
}

func scanSubtask(row scanner) (model.Subtask, error) {
	var subtask model.Subtask
	var createdAt, updatedAt string
	if err := row.Scan(&subtask.ID, &subtask.TaskID, &subtask.Name, &subtask.IsCompleted, &createdAt, &updatedAt); err != nil {
		return model.Subtask{}, err
	}

	var err error
	if subtask.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Subtask{}, err
	}
	if subtask.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.Subtask{}, err
	}
	return subtask, nil
}
