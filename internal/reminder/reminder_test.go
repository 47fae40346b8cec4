package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/Joseda-hg/lazyplan/internal/clock"
	"github.com/Joseda-hg/lazyplan/internal/db"
)

func TestSweepFiresDueRemindersOnce(t *testing.T) {
	now := time.Date(2024, time.May, 15, 9, 0, 0, 0, time.UTC)
	clk := clock.Fixed{At: now}
	sqlDB, err := db.Open(":memory:", clk)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer sqlDB.Close()

	store := db.NewStore(sqlDB, clk)
	ctx := context.Background()

	task, err := store.CreateTask(ctx, db.TaskInput{Name: "Dentist"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	for _, at := range []time.Time{now.Add(-time.Hour), now, now.Add(time.Hour)} {
		if _, err := store.CreateReminder(ctx, task.ID, at); err != nil {
			t.Fatalf("create reminder: %v", err)
		}
	}

	sweeper := NewSweeper(store, clk)
	var names []string
	sweeper.OnFire = func(item db.DueReminder) {
		names = append(names, item.TaskName)
	}

	fired, err := sweeper.Sweep(ctx, now)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if fired != 2 || len(names) != 2 || names[0] != "Dentist" {
		t.Fatalf("expected 2 reminders fired for Dentist, got %d (%v)", fired, names)
	}

	fired, err = sweeper.Sweep(ctx, now)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if fired != 0 {
		t.Fatalf("expected nothing left to fire, got %d", fired)
	}

	fired, _ = sweeper.Sweep(ctx, now.Add(2*time.Hour))
	if fired != 1 {
		t.Fatalf("expected the later reminder to fire, got %d", fired)
	}

	logs, err := store.ListTaskLogs(ctx, task.ID)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	count := 0
	for _, entry := range logs {
		if entry.Action == db.ActionReminderFired {
			count++
		}
	}
	if count != 3 {
		t.Fatalf("expected 3 reminder_fired entries, got %d", count)
	}
}

func TestStartRejectsNonPositiveInterval(t *testing.T) {
	sweeper := NewSweeper(nil, clock.Fixed{At: time.Now()})
	if err := sweeper.Start(0); err == nil {
		t.Fatalf("expected error for zero interval")
	}
}
