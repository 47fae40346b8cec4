package planner

import (
	"context"
	"log"
	"time"

	"github.com/Joseda-hg/lazyplan/internal/model"
	"github.com/Joseda-hg/lazyplan/internal/query"
)

type Badge struct {
	Count   int    `json:"count"`
	Display string `json:"display"`
}

func newBadge(n int) Badge {
	return Badge{Count: n, Display: query.DisplayCount(n)}
}

type ViewBadge struct {
	View  query.ViewName `json:"view"`
	Title string         `json:"title"`
	Badge Badge          `json:"badge"`
}

type ListBadge struct {
	List      model.List `json:"list"`
	Remaining Badge      `json:"remaining"`
}

type Sidebar struct {
	Views   []ViewBadge `json:"views"`
	Lists   []ListBadge `json:"lists"`
	Overdue Badge       `json:"overdue"`
}

// Sidebar computes every navigation badge against a single instant.
func (p *Planner) Sidebar(ctx context.Context) (Sidebar, error) {
	return p.SidebarAt(ctx, p.Now())
}

func (p *Planner) SidebarAt(ctx context.Context, now time.Time) (Sidebar, error) {
	tasks, err := p.allTasks(ctx)
	if err != nil {
		return Sidebar{}, err
	}
	summaries, err := p.Store.ListSummaries(ctx)
	if err != nil {
		return Sidebar{}, err
	}

	cal := query.NewCalendar(now)
	counts := cal.ViewCounts(tasks)

	sidebar := Sidebar{
		Views:   make([]ViewBadge, 0, len(query.Views)),
		Lists:   make([]ListBadge, 0, len(summaries)),
		Overdue: newBadge(cal.OverdueCount(tasks)),
	}
	for _, view := range query.Views {
		sidebar.Views = append(sidebar.Views, ViewBadge{View: view, Title: view.Title(), Badge: newBadge(counts[view])})
	}
	for _, summary := range summaries {
		sidebar.Lists = append(sidebar.Lists, ListBadge{List: summary.List, Remaining: newBadge(query.Remaining(summary))})
	}

	for _, orphan := range query.OrphanedTasks(tasks, summaries) {
		log.Printf("[warn] task %s points at missing list %s", orphan.ID, orphan.ListID)
	}
	return sidebar, nil
}
