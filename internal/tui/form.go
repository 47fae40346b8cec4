package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Joseda-hg/lazyplan/internal/db"
	"github.com/Joseda-hg/lazyplan/internal/model"
)

type formField struct {
	Label string
	Value string
}

const (
	fieldName = iota
	fieldDescription
	fieldDate
	fieldDeadline
	fieldPriority
	fieldLabels
)

const deadlineLayout = "2006-01-02 15:04"

var priorityOrder = []string{
	string(model.PriorityNone),
	string(model.PriorityLow),
	string(model.PriorityMedium),
	string(model.PriorityHigh),
}

// buildFormFields prefills the editor from task, or from defaultDate for a
// new task.
func buildFormFields(task *model.Task, defaultDate model.Date, loc *time.Location) []formField {
	fields := []formField{
		{Label: "Name"},
		{Label: "Description"},
		{Label: "Date (YYYY-MM-DD)"},
		{Label: "Deadline (YYYY-MM-DD HH:MM)"},
		{Label: "Priority (space/←→)"},
		{Label: "Labels (space/←→)"},
	}

	if task == nil {
		fields[fieldDate].Value = defaultDate.String()
		fields[fieldPriority].Value = string(model.PriorityNone)
		return fields
	}

	fields[fieldName].Value = task.Name
	fields[fieldDescription].Value = task.Description
	fields[fieldDate].Value = task.Date.String()
	if task.Deadline != nil {
		fields[fieldDeadline].Value = task.Deadline.In(loc).Format(deadlineLayout)
	}
	fields[fieldPriority].Value = string(task.Priority)
	fields[fieldLabels].Value = joinLabels(task.Labels)
	return fields
}

// parseFormFields turns the editor into a store input. Label names are
// matched case-insensitively against labels; the result always carries a
// non-nil LabelIDs so an emptied field clears the labels of an edited task.
func parseFormFields(fields []formField, labels []model.Label, loc *time.Location) (db.TaskInput, error) {
	date, err := model.ParseDate(fields[fieldDate].Value)
	if err != nil {
		return db.TaskInput{}, err
	}

	deadline, err := parseDeadline(fields[fieldDeadline].Value, loc)
	if err != nil {
		return db.TaskInput{}, err
	}

	priority, err := model.ParsePriority(fields[fieldPriority].Value)
	if err != nil {
		return db.TaskInput{}, err
	}

	labelIDs, err := resolveLabels(parseLabelNames(fields[fieldLabels].Value), labels)
	if err != nil {
		return db.TaskInput{}, err
	}

	return db.TaskInput{
		Name:        strings.TrimSpace(fields[fieldName].Value),
		Description: strings.TrimSpace(fields[fieldDescription].Value),
		Date:        date,
		Deadline:    deadline,
		Priority:    priority,
		LabelIDs:    labelIDs,
	}, nil
}

func parseDeadline(value string, loc *time.Location) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	for _, layout := range []string{deadlineLayout, model.DateLayout} {
		if parsed, err := time.ParseInLocation(layout, trimmed, loc); err == nil {
			return &parsed, nil
		}
	}
	return nil, fmt.Errorf("invalid deadline %q", value)
}

func parseLabelNames(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	return result
}

func resolveLabels(names []string, labels []model.Label) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		id := ""
		for _, label := range labels {
			if strings.EqualFold(label.Name, name) {
				id = label.ID
				break
			}
		}
		if id == "" {
			return nil, fmt.Errorf("unknown label %q", name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func joinLabels(labels []model.Label) string {
	names := make([]string, 0, len(labels))
	for _, label := range labels {
		names = append(names, label.Name)
	}
	return strings.Join(names, ", ")
}

// toggleLabelName adds name to the comma-separated field value or removes it.
func toggleLabelName(value, name string) string {
	selected := make(map[string]struct{})
	for _, existing := range parseLabelNames(value) {
		selected[existing] = struct{}{}
	}
	if _, ok := selected[name]; ok {
		delete(selected, name)
	} else {
		selected[name] = struct{}{}
	}

	ordered := make([]string, 0, len(selected))
	for existing := range selected {
		ordered = append(ordered, existing)
	}
	sort.Strings(ordered)
	return strings.Join(ordered, ", ")
}

func cyclePriority(current string, delta int) string {
	value := strings.TrimSpace(strings.ToLower(current))
	index := 0
	for i, priority := range priorityOrder {
		if priority == value {
			index = i
			break
		}
	}
	index = (index + delta + len(priorityOrder)) % len(priorityOrder)
	return priorityOrder[index]
}
