package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Joseda-hg/lazyplan/internal/model"
)

const reminderColumns = "r.id, r.task_id, r.remind_at, r.sent_at, r.created_at"

// DueReminder is an unsent reminder together with the name of its task.
type DueReminder struct {
	model.Reminder
	TaskName string
}

func (s *Store) ListReminders(ctx context.Context, taskID string) ([]model.Reminder, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT "+reminderColumns+" FROM reminders r WHERE r.task_id = ? ORDER BY r.remind_at, r.rowid", taskID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reminders := []model.Reminder{}
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}
	return reminders, rows.Err()
}

func (s *Store) CreateReminder(ctx context.Context, taskID string, remindAt time.Time) (model.Reminder, error) {
	if remindAt.IsZero() {
		return model.Reminder{}, fmt.Errorf("%w: remind_at is required", ErrInvalidInput)
	}

	var created model.Reminder
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := s.now()
		if err := touchTask(ctx, tx, taskID, now); err != nil {
			return err
		}

		id := uuid.NewString()
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO reminders (id, task_id, remind_at, sent_at, created_at) VALUES (?, ?, ?, NULL, ?)",
			id, taskID, formatTime(remindAt), formatTime(now),
		); err != nil {
			return fmt.Errorf("insert reminder: %w", err)
		}

		var err error
		if created, err = getReminder(ctx, tx, id); err != nil {
			return err
		}
		return appendLog(ctx, tx, taskID, ActionReminderAdded, "reminder added: "+remindAt.UTC().Format(time.RFC3339), now)
	})
	if err != nil {
		return model.Reminder{}, err
	}
	return created, nil
}

func (s *Store) DeleteReminder(ctx context.Context, reminderID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		before, err := getReminder(ctx, tx, reminderID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM reminders WHERE id = ?", reminderID); err != nil {
			return fmt.Errorf("delete reminder: %w", err)
		}

		now := s.now()
		if err := touchTask(ctx, tx, before.TaskID, now); err != nil {
			return err
		}
		return appendLog(ctx, tx, before.TaskID, ActionReminderDeleted, "reminder deleted: "+before.RemindAt.UTC().Format(time.RFC3339), now)
	})
}

// DueReminders returns unsent reminders with remind_at <= now, oldest first.
func (s *Store) DueReminders(ctx context.Context, now time.Time) ([]DueReminder, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT "+reminderColumns+", t.name FROM reminders r JOIN tasks t ON t.id = r.task_id WHERE r.sent_at IS NULL AND r.remind_at <= ? ORDER BY r.remind_at, r.rowid",
		formatTime(now),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	due := []DueReminder{}
	for rows.Next() {
		var (
			item                DueReminder
			remindAt, createdAt string
			sentAt              sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.TaskID, &remindAt, &sentAt, &createdAt, &item.TaskName); err != nil {
			return nil, err
		}
		if err := fillReminderTimes(&item.Reminder, remindAt, sentAt, createdAt); err != nil {
			return nil, err
		}
		due = append(due, item)
	}
	return due, rows.Err()
}

// MarkReminderSent records delivery and appends a reminder_fired entry to the
// task log. Marking an already sent reminder is a no-op.
func (s *Store) MarkReminderSent(ctx context.Context, reminderID string, at time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		reminder, err := getReminder(ctx, tx, reminderID)
		if err != nil {
			return err
		}
		if reminder.SentAt != nil {
			return nil
		}

		if _, err := tx.ExecContext(ctx, "UPDATE reminders SET sent_at = ? WHERE id = ?", formatTime(at), reminderID); err != nil {
			return fmt.Errorf("mark reminder sent: %w", err)
		}
		return appendLog(ctx, tx, reminder.TaskID, ActionReminderFired, "reminder fired: "+reminder.RemindAt.UTC().Format(time.RFC3339), at)
	})
}

func getReminder(ctx context.Context, q querier, reminderID string) (model.Reminder, error) {
	reminder, err := scanReminder(q.QueryRowContext(ctx, "SELECT "+reminderColumns+" FROM reminders r WHERE r.id = ?", reminderID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reminder{}, fmt.Errorf("reminder %s: %w", reminderID, ErrNotFound)
	}
	return reminder, err
}

func scanReminder(row scanner) (model.Reminder, error) {
	var reminder model.Reminder
	var remindAt, createdAt string
	var sentAt sql.NullString
	if err := row.Scan(&reminder.ID, &reminder.TaskID, &remindAt, &sentAt, &createdAt); err != nil {
		return model.Reminder{}, err
	}
	if err := fillReminderTimes(&reminder, remindAt, sentAt, createdAt); err != nil {
		return model.Reminder{}, err
	}
	return reminder, nil
}

func fillReminderTimes(reminder *model.Reminder, remindAt string, sentAt sql.NullString, createdAt string) error {
	var err error
	if reminder.RemindAt, err = parseTime(remindAt); err != nil {
		return err
	}
	if reminder.SentAt, err = parseNullTime(sentAt); err != nil {
		return err
	}
	if reminder.CreatedAt, err = parseTime(createdAt); err != nil {
		return err
	}
	return nil
}
