// Package reminder fires due task reminders on a cron schedule.
package reminder

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Joseda-hg/lazyplan/internal/clock"
	"github.com/Joseda-hg/lazyplan/internal/db"
)

const DefaultInterval = time.Minute

type Sweeper struct {
	store *db.Store
	clock clock.Clock
	cron  *cron.Cron

	// OnFire is called for every reminder that fires, after it is marked sent.
	OnFire func(db.DueReminder)
}

func NewSweeper(store *db.Store, clk clock.Clock) *Sweeper {
	if clk == nil {
		clk = clock.System{}
	}
	return &Sweeper{
		store: store,
		clock: clk,
		cron:  cron.New(cron.WithLocation(clock.Location(clk)), cron.WithSeconds()),
	}
}

// Sweep fires every unsent reminder due at now and returns how many fired.
// A reminder that fails to be marked is left for the next sweep.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	due, err := s.store.DueReminders(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("load due reminders: %w", err)
	}

	fired := 0
	for _, item := range due {
		if err := s.store.MarkReminderSent(ctx, item.ID, now); err != nil {
			log.Printf("[warn] reminder %s: %v", item.ID, err)
			continue
		}
		fired++
		log.Printf("[info] reminder: task %q at %s", item.TaskName, item.RemindAt.In(now.Location()).Format("2006-01-02 15:04"))
		if s.OnFire != nil {
			s.OnFire(item)
		}
	}
	return fired, nil
}

// Start schedules Sweep every interval until Stop is called.
func (s *Sweeper) Start(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}

	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %ds", seconds), s.tick); err != nil {
		return fmt.Errorf("schedule reminder sweep: %w", err)
	}
	s.cron.Start()
	return nil
}

func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Sweeper) tick() {
	if _, err := s.Sweep(context.Background(), s.clock.Now()); err != nil {
		log.Printf("[warn] reminder sweep: %v", err)
	}
}
