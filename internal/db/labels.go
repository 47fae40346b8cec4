package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Joseda-hg/lazyplan/internal/model"
)

func (s *Store) ListLabels(ctx context.Context) ([]model.Label, error) {
	rows, err := s.DB.QueryContext(ctx, "SELECT id, name, color, icon, created_at FROM labels ORDER BY name COLLATE NOCASE")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	labels := []model.Label{}
	for rows.Next() {
		label, err := scanLabel(rows)
		if err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

func (s *Store) GetLabel(ctx context.Context, labelID string) (model.Label, error) {
	label, err := scanLabel(s.DB.QueryRowContext(ctx, "SELECT id, name, color, icon, created_at FROM labels WHERE id = ?", labelID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Label{}, fmt.Errorf("label %s: %w", labelID, ErrNotFound)
	}
	return label, err
}

func (s *Store) CreateLabel(ctx context.Context, input LabelInput) (model.Label, error) {
	if err := input.Validate(); err != nil {
		return model.Label{}, err
	}
	if err := s.checkLabelName(ctx, input.Name, ""); err != nil {
		return model.Label{}, err
	}

	id := uuid.NewString()
	if _, err := s.DB.ExecContext(ctx,
		"INSERT INTO labels (id, name, color, icon, created_at) VALUES (?, ?, ?, ?, ?)",
		id, input.Name, input.Color, input.Icon, formatTime(s.now()),
	); err != nil {
		return model.Label{}, fmt.Errorf("insert label: %w", err)
	}
	return s.GetLabel(ctx, id)
}

func (s *Store) UpdateLabel(ctx context.Context, labelID string, input LabelInput) (model.Label, error) {
	if err := input.Validate(); err != nil {
		return model.Label{}, err
	}
	if err := s.checkLabelName(ctx, input.Name, labelID); err != nil {
		return model.Label{}, err
	}

	res, err := s.DB.ExecContext(ctx,
		"UPDATE labels SET name = ?, color = ?, icon = ? WHERE id = ?",
		input.Name, input.Color, input.Icon, labelID,
	)
	if err != nil {
		return model.Label{}, fmt.Errorf("update label: %w", err)
	}
	if err := requireAffected(res, "label", labelID); err != nil {
		return model.Label{}, err
	}
	return s.GetLabel(ctx, labelID)
}

// DeleteLabel removes a label and its task links. Tasks are kept.
func (s *Store) DeleteLabel(ctx context.Context, labelID string) error {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM labels WHERE id = ?", labelID)
	if err != nil {
		return fmt.Errorf("delete label: %w", err)
	}
	return requireAffected(res, "label", labelID)
}

func (s *Store) checkLabelName(ctx context.Context, name, exceptID string) error {
	var existing string
	err := s.DB.QueryRowContext(ctx, "SELECT id FROM labels WHERE name = ? COLLATE NOCASE", name).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing != exceptID {
		return fmt.Errorf("%w: label %q already exists", ErrInvalidInput, name)
	}
	return nil
}

func scanLabel(row scanner) (model.Label, error) {
	var label model.Label
	var createdAt string
	if err := row.Scan(&label.ID, &label.Name, &label.Color, &label.Icon, &createdAt); err != nil {
		return model.Label{}, err
	}

	var err error
	if label.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Label{}, err
	}
	return label, nil
}
