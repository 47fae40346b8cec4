package query

import (
	"fmt"
	"strings"

	"github.com/Joseda-hg/lazyplan/internal/model"
)

const DefaultSearchLimit = 20

type Kind string

const (
	KindAll    Kind = "all"
	KindTasks  Kind = "tasks"
	KindLists  Kind = "lists"
	KindLabels Kind = "labels"
)

func ParseKind(value string) (Kind, error) {
	switch kind := Kind(strings.ToLower(strings.TrimSpace(value))); kind {
	case "":
		return KindAll, nil
	case KindAll, KindTasks, KindLists, KindLabels:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown search kind %q", value)
	}
}

// Includes reports whether a search of kind k covers other.
func (k Kind) Includes(other Kind) bool {
	return k == KindAll || k == "" || k == other
}

type CompletionFilter string

const (
	CompletionAll       CompletionFilter = "all"
	CompletionActive    CompletionFilter = "active"
	CompletionCompleted CompletionFilter = "completed"
)

func ParseCompletion(value string) (CompletionFilter, error) {
	switch filter := CompletionFilter(strings.ToLower(strings.TrimSpace(value))); filter {
	case "":
		return CompletionAll, nil
	case CompletionAll, CompletionActive, CompletionCompleted:
		return filter, nil
	default:
		return "", fmt.Errorf("unknown completion filter %q", value)
	}
}

func (f CompletionFilter) allows(task model.Task) bool {
	switch f {
	case CompletionActive:
		return !task.IsCompleted
	case CompletionCompleted:
		return task.IsCompleted
	default:
		return true
	}
}

// Tier ranks how well a candidate matched. Higher is better.
type Tier int

const (
	TierNone Tier = iota
	TierSubstring
	TierExact
)

type Scored[T any] struct {
	Item  T    `json:"item"`
	Score Tier `json:"score"`
}

// Rank scores candidates against query and returns the matches, exact name
// matches first, then substring matches on name or description. Input order
// is kept within a tier. Non-matches are dropped.
func Rank[T any](query string, candidates []T, fields func(T) (name, description string)) []Scored[T] {
	needle := strings.TrimSpace(query)
	if needle == "" {
		return nil
	}
	lowered := strings.ToLower(needle)

	var exact, partial []Scored[T]
	for _, candidate := range candidates {
		name, description := fields(candidate)
		switch tier(lowered, needle, name, description) {
		case TierExact:
			exact = append(exact, Scored[T]{Item: candidate, Score: TierExact})
		case TierSubstring:
			partial = append(partial, Scored[T]{Item: candidate, Score: TierSubstring})
		}
	}
	return append(exact, partial...)
}

func tier(lowered, needle, name, description string) Tier {
	if strings.EqualFold(strings.TrimSpace(name), needle) {
		return TierExact
	}
	if strings.Contains(strings.ToLower(name), lowered) || strings.Contains(strings.ToLower(description), lowered) {
		return TierSubstring
	}
	return TierNone
}

type SearchRequest struct {
	Query     string           `json:"query"`
	Kind      Kind             `json:"kind"`
	Completed CompletionFilter `json:"completed"`
	Limit     int              `json:"limit"`
}

// Candidates is the unfiltered material a search runs over.
type Candidates struct {
	Tasks  []model.Task
	Lists  []model.List
	Labels []model.Label
}

type SearchResults struct {
	Query  string                `json:"query"`
	Tasks  []Scored[model.Task]  `json:"tasks"`
	Lists  []Scored[model.List]  `json:"lists"`
	Labels []Scored[model.Label] `json:"labels"`
}

func (r SearchResults) Empty() bool {
	return len(r.Tasks) == 0 && len(r.Lists) == 0 && len(r.Labels) == 0
}

// Search ranks each requested kind independently. The completion filter
// narrows tasks before scoring; the limit caps each kind after scoring.
func Search(req SearchRequest, candidates Candidates) SearchResults {
	results := SearchResults{Query: strings.TrimSpace(req.Query)}
	if results.Query == "" {
		return results
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	if req.Kind.Includes(KindTasks) {
		tasks := make([]model.Task, 0, len(candidates.Tasks))
		for _, task := range candidates.Tasks {
			if req.Completed.allows(task) {
				tasks = append(tasks, task)
			}
		}
		results.Tasks = capped(Rank(req.Query, tasks, func(t model.Task) (string, string) {
			return t.Name, t.Description
		}), limit)
	}
	if req.Kind.Includes(KindLists) {
		results.Lists = capped(Rank(req.Query, candidates.Lists, func(l model.List) (string, string) {
			return l.Name, ""
		}), limit)
	}
	if req.Kind.Includes(KindLabels) {
		results.Labels = capped(Rank(req.Query, candidates.Labels, func(l model.Label) (string, string) {
			return l.Name, ""
		}), limit)
	}
	return results
}

func capped[T any](items []T, limit int) []T {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
