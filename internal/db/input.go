package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Joseda-hg/lazyplan/internal/model"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrDefaultList  = errors.New("the default list cannot be deleted")
)

// TaskInput is the writable shape of a task. An empty ListID means the
// default list on create and "unchanged" on update; nil LabelIDs leaves the
// labels of an existing task alone.
type TaskInput struct {
	ListID      string
	Name        string
	Description string
	Date        model.Date
	Deadline    *time.Time
	Priority    model.Priority
	LabelIDs    []string
}

// Validate normalizes the input in place and checks the field rules that do
// not need the database. loc decides the calendar day of the deadline.
func (in *TaskInput) Validate(loc *time.Location) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.ListID = strings.TrimSpace(in.ListID)

	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	priority, err := model.ParsePriority(string(in.Priority))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	in.Priority = priority

	if in.Deadline != nil && !in.Date.IsZero() {
		if loc == nil {
			loc = time.Local
		}
		if model.DateOf(in.Deadline.In(loc)).Before(in.Date) {
			return fmt.Errorf("%w: deadline %s is before date %s", ErrInvalidInput, in.Deadline.In(loc).Format(time.RFC3339), in.Date)
		}
	}

	return nil
}

type ListInput struct {
	Name  string
	Color string
	Emoji string
}

func (in *ListInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Color = strings.TrimSpace(in.Color)
	in.Emoji = strings.TrimSpace(in.Emoji)
	if in.Name == "" {
		return fmt.Errorf("%w: list name is required", ErrInvalidInput)
	}
	return nil
}

type LabelInput struct {
	Name  string
	Color string
	Icon  string
}

func (in *LabelInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Color = strings.TrimSpace(in.Color)
	in.Icon = strings.TrimSpace(in.Icon)
	if in.Name == "" {
		return fmt.Errorf("%w: label name is required", ErrInvalidInput)
	}
	return nil
}

func normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{})
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
