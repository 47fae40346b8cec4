package model

import (
	"fmt"
	"strings"
	"time"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
	PriorityNone   Priority = "none"
)

// ParsePriority accepts the four priority names in any case; empty means none.
func ParsePriority(value string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(value))); p {
	case "":
		return PriorityNone, nil
	case PriorityHigh, PriorityMedium, PriorityLow, PriorityNone:
		return p, nil
	default:
		return "", fmt.Errorf("invalid priority %q", value)
	}
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow, PriorityNone:
		return true
	}
	return false
}

type Task struct {
	ID          string     `json:"id"`
	ListID      string     `json:"list_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Date        Date       `json:"date"`
	Deadline    *time.Time `json:"deadline"`
	Priority    Priority   `json:"priority"`
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Labels      []Label    `json:"labels"`
}

// HasDate reports whether the task is scheduled on a calendar day.
func (t Task) HasDate() bool {
	return !t.Date.IsZero()
}

type List struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Emoji     string    `json:"emoji"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListSummary carries the raw per-list counters as stored. They are not
// guaranteed consistent; callers derive the remaining count through the
// query package.
type ListSummary struct {
	List
	TaskCount      int `json:"task_count"`
	CompletedCount int `json:"completed_count"`
}

type Label struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"created_at"`
}

type Subtask struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	Name        string    `json:"name"`
	IsCompleted bool      `json:"is_completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Reminder struct {
	ID        string     `json:"id"`
	TaskID    string     `json:"task_id"`
	RemindAt  time.Time  `json:"remind_at"`
	SentAt    *time.Time `json:"sent_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// TaskLog is an append-only record of a single task mutation.
type TaskLog struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}
