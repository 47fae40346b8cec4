package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Joseda-hg/lazyplan/internal/model"
)

const listColumns = "l.id, l.name, l.color, l.emoji, l.is_default, l.created_at, l.updated_at"

const listOrder = "ORDER BY l.is_default DESC, l.name COLLATE NOCASE, l.rowid"

// ListLists returns every list, the default list first.
func (s *Store) ListLists(ctx context.Context) ([]model.List, error) {
	rows, err := s.DB.QueryContext(ctx, "SELECT "+listColumns+" FROM lists l "+listOrder)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lists := []model.List{}
	for rows.Next() {
		list, err := scanList(rows)
		if err != nil {
			return nil, err
		}
		lists = append(lists, list)
	}
	return lists, rows.Err()
}

// ListSummaries returns every list with its stored task and completed counts.
func (s *Store) ListSummaries(ctx context.Context) ([]model.ListSummary, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT "+listColumns+", COUNT(t.id), COALESCE(SUM(t.is_completed), 0) FROM lists l LEFT JOIN tasks t ON t.list_id = l.id GROUP BY l.id "+listOrder,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []model.ListSummary{}
	for rows.Next() {
		var summary model.ListSummary
		var createdAt, updatedAt string
		if err := rows.Scan(
			&summary.ID, &summary.Name, &summary.Color, &summary.Emoji, &summary.IsDefault, &createdAt, &updatedAt,
			&summary.TaskCount, &summary.CompletedCount,
		); err != nil {
			return nil, err
		}
		if summary.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if summary.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

func (s *Store) GetList(ctx context.Context, listID string) (model.List, error) {
	list, err := scanList(s.DB.QueryRowContext(ctx, "SELECT "+listColumns+" FROM lists l WHERE l.id = ?", listID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.List{}, fmt.Errorf("list %s: %w", listID, ErrNotFound)
	}
	return list, err
}

func (s *Store) DefaultList(ctx context.Context) (model.List, error) {
	list, err := scanList(s.DB.QueryRowContext(ctx, "SELECT "+listColumns+" FROM lists l WHERE l.is_default = 1"))
	if errors.Is(err, sql.ErrNoRows) {
		return model.List{}, fmt.Errorf("default list: %w", ErrNotFound)
	}
	return list, err
}

func (s *Store) CreateList(ctx context.Context, input ListInput) (model.List, error) {
	if err := input.Validate(); err != nil {
		return model.List{}, err
	}

	now := formatTime(s.now())
	id := uuid.NewString()
	if _, err := s.DB.ExecContext(ctx,
		"INSERT INTO lists (id, name, color, emoji, is_default, created_at, updated_at) VALUES (?, ?, ?, ?, 0, ?, ?)",
		id, input.Name, input.Color, input.Emoji, now, now,
	); err != nil {
		return model.List{}, fmt.Errorf("insert list: %w", err)
	}
	return s.GetList(ctx, id)
}

func (s *Store) UpdateList(ctx context.Context, listID string, input ListInput) (model.List, error) {
	if err := input.Validate(); err != nil {
		return model.List{}, err
	}

	res, err := s.DB.ExecContext(ctx,
		"UPDATE lists SET name = ?, color = ?, emoji = ?, updated_at = ? WHERE id = ?",
		input.Name, input.Color, input.Emoji, formatTime(s.now()), listID,
	)
	if err != nil {
		return model.List{}, fmt.Errorf("update list: %w", err)
	}
	if err := requireAffected(res, "list", listID); err != nil {
		return model.List{}, err
	}
	return s.GetList(ctx, listID)
}

// DeleteList removes a list and all of its tasks. The default list is refused.
func (s *Store) DeleteList(ctx context.Context, listID string) error {
	list, err := s.GetList(ctx, listID)
	if err != nil {
		return err
	}
	if list.IsDefault {
		return ErrDefaultList
	}

	if _, err := s.DB.ExecContext(ctx, "DELETE FROM lists WHERE id = ?", listID); err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	return nil
}

func scanList(row scanner) (model.List, error) {
	var list model.List
	var createdAt, updatedAt string
	if err := row.Scan(&list.ID, &list.Name, &list.Color, &list.Emoji, &list.IsDefault, &createdAt, &updatedAt); err != nil {
		return model.List{}, err
	}

	var err error
	if list.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.List{}, err
	}
	if list.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.List{}, err
	}
	return list, nil
}
