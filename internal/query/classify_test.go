package query

import (
	"testing"
	"time"

	"github.com/Joseda-hg/lazyplan/internal/model"
)

func TestClassifyRules(t *testing.T) {
	// Wednesday; week is May 13-19, next week May 20-26, month ends May 31.
	now := at("2024-05-15", 10)

	tests := []struct {
		name      string
		date      string
		completed bool
		want      Bucket
	}{
		{name: "no date", date: "", want: BucketNoDate},
		{name: "no date completed", date: "", completed: true, want: BucketNoDate},
		{name: "yesterday incomplete", date: "2024-05-14", want: BucketOverdue},
		{name: "last year incomplete", date: "2023-05-14", want: BucketOverdue},
		{name: "yesterday completed stays in week", date: "2024-05-14", completed: true, want: BucketThisWeek},
		{name: "earlier month completed", date: "2024-05-01", completed: true, want: BucketLater},
		{name: "today", date: "2024-05-15", want: BucketToday},
		{name: "today completed", date: "2024-05-15", completed: true, want: BucketToday},
		{name: "tomorrow", date: "2024-05-16", want: BucketTomorrow},
		{name: "rest of week", date: "2024-05-17", want: BucketThisWeek},
		{name: "sunday", date: "2024-05-19", want: BucketThisWeek},
		{name: "next monday", date: "2024-05-20", want: BucketNextWeek},
		{name: "next sunday", date: "2024-05-26", want: BucketNextWeek},
		{name: "after next week in month", date: "2024-05-27", want: BucketThisMonth},
		{name: "last day of month", date: "2024-05-31", want: BucketThisMonth},
		{name: "first of next month", date: "2024-06-01", want: BucketLater},
		{name: "next year", date: "2025-05-15", want: BucketLater},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(task("t", tt.date, tt.completed), now)
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestClassifyTomorrowBeatsNextWeek(t *testing.T) {
	// Sunday: tomorrow is the Monday of next week.
	got := Classify(task("t", "2024-05-20", false), at("2024-05-19", 9))
	if got != BucketTomorrow {
		t.Fatalf("expected tomorrow, got %s", got)
	}
}

func TestClassifyLeapDay(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		date string
		want Bucket
	}{
		{name: "leap day is last day of month", now: at("2024-02-15", 12), date: "2024-02-29", want: BucketThisMonth},
		{name: "leap day as tomorrow", now: at("2024-02-28", 12), date: "2024-02-29", want: BucketTomorrow},
		{name: "leap day as today", now: at("2024-02-29", 12), date: "2024-02-29", want: BucketToday},
		{name: "leap day overdue", now: at("2024-03-01", 12), date: "2024-02-29", want: BucketOverdue},
		{name: "march after leap february", now: at("2024-02-15", 12), date: "2024-03-01", want: BucketLater},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(task("t", tt.date, false), tt.now)
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestClassifyYearBoundary(t *testing.T) {
	// Monday 2024-12-30 starts the ISO week that runs to Sunday 2025-01-05.
	monday := at("2024-12-30", 8)
	// Saturday 2024-12-28 ends the previous week.
	saturday := at("2024-12-28", 8)

	tests := []struct {
		name string
		now  time.Time
		date string
		want Bucket
	}{
		{name: "dec 31 from monday is tomorrow", now: monday, date: "2024-12-31", want: BucketTomorrow},
		{name: "jan 2 same iso week", now: monday, date: "2025-01-02", want: BucketThisWeek},
		{name: "jan 5 sunday same iso week", now: monday, date: "2025-01-05", want: BucketThisWeek},
		{name: "jan 6 next week", now: monday, date: "2025-01-06", want: BucketNextWeek},
		{name: "jan 13 past month end", now: monday, date: "2025-01-13", want: BucketLater},
		{name: "dec 29 overdue", now: monday, date: "2024-12-29", want: BucketOverdue},
		{name: "dec 31 from saturday is next week", now: saturday, date: "2024-12-31", want: BucketNextWeek},
		{name: "dec 29 from saturday is tomorrow", now: saturday, date: "2024-12-29", want: BucketTomorrow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(task("t", tt.date, false), tt.now)
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestClassifyUsesCalendarDayOfLocation(t *testing.T) {
	zone := time.FixedZone("UTC-5", -5*60*60)
	// 23:30 local on May 15 is already May 16 in UTC.
	now := time.Date(2024, time.May, 15, 23, 30, 0, 0, zone)

	if got := Classify(task("t", "2024-05-15", false), now); got != BucketToday {
		t.Fatalf("expected today in local zone, got %s", got)
	}
	if got := Classify(task("t", "2024-05-15", false), now.UTC()); got != BucketOverdue {
		t.Fatalf("expected overdue in UTC, got %s", got)
	}
}

func TestClassifyIsTotalAndOverdueExclusive(t *testing.T) {
	valid := make(map[Bucket]bool, len(groupOrder))
	for _, bucket := range groupOrder {
		valid[bucket] = true
	}
	delete(valid, BucketCompleted)

	now := at("2024-02-27", 15)
	cal := NewCalendar(now)
	start := model.MustParseDate("2023-11-01")
	for i := 0; i < 500; i++ {
		date := start.AddDays(i)
		for _, completed := range []bool{false, true} {
			current := model.Task{ID: "t", Date: date, IsCompleted: completed}
			bucket := cal.Classify(current)
			if !valid[bucket] {
				t.Fatalf("date %s completed=%v: unexpected bucket %q", date, completed, bucket)
			}
			if bucket == BucketOverdue {
				if completed {
					t.Fatalf("date %s: completed task classified overdue", date)
				}
				if !date.Before(cal.Today) {
					t.Fatalf("date %s: overdue but not before today %s", date, cal.Today)
				}
			}
		}
	}
}

func TestNewCalendarBoundaries(t *testing.T) {
	cal := NewCalendar(at("2024-12-30", 0))

	want := map[string]string{
		"today":         "2024-12-30",
		"tomorrow":      "2024-12-31",
		"week start":    "2024-12-30",
		"week end":      "2025-01-05",
		"next week end": "2025-01-12",
		"month end":     "2024-12-31",
	}
	got := map[string]string{
		"today":         cal.Today.String(),
		"tomorrow":      cal.Tomorrow.String(),
		"week start":    cal.WeekStart.String(),
		"week end":      cal.WeekEnd.String(),
		"next week end": cal.NextWeekEnd.String(),
		"month end":     cal.MonthEnd.String(),
	}
	for key, expected := range want {
		if got[key] != expected {
			t.Fatalf("%s: expected %s, got %s", key, expected, got[key])
		}
	}
}

func at(date string, hour int) time.Time {
	return model.MustParseDate(date).In(time.UTC).Add(time.Duration(hour) * time.Hour)
}

func task(id, date string, completed bool) model.Task {
	return model.Task{
		ID:          id,
		ListID:      "inbox",
		Name:        id,
		Date:        model.MustParseDate(date),
		IsCompleted: completed,
		Priority:    model.PriorityNone,
	}
}
