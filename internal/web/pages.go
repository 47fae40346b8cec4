package web

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Joseda-hg/lazyplan/internal/db"
	"github.com/Joseda-hg/lazyplan/internal/model"
	"github.com/Joseda-hg/lazyplan/internal/planner"
	"github.com/Joseda-hg/lazyplan/internal/query"
)

// pageData is shared by every page through the layout.
type pageData struct {
	Title   string
	Active  string
	Query   string
	Sidebar planner.Sidebar
}

type viewPageData struct {
	pageData
	Result           query.Result
	IncludeCompleted bool
	DefaultDate      string
	ListID           string
}

type taskPageData struct {
	pageData
	Detail planner.TaskDetail
}

type searchPageData struct {
	pageData
	Kind    query.Kind
	Kinds   []query.Kind
	Results query.SearchResults
}

// page builds the sidebar as of now; handlers pass the same instant they used
// for the page body.
func (s *Server) page(c *gin.Context, now time.Time, title, active string) (pageData, bool) {
	sidebar, err := s.planner.SidebarAt(c.Request.Context(), now)
	if err != nil {
		pageError(c, err)
		return pageData{}, false
	}
	return pageData{Title: title, Active: active, Sidebar: sidebar}, true
}

func (s *Server) viewPage(view query.ViewName) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := s.planner.Now()
		opts := query.Options{IncludeCompleted: includeCompleted(c)}
		result, err := s.planner.ViewAt(c.Request.Context(), view, opts, now)
		if err != nil {
			pageError(c, err)
			return
		}
		base, ok := s.page(c, now, view.Title(), string(view))
		if !ok {
			return
		}

		data := viewPageData{pageData: base, Result: result, IncludeCompleted: opts.IncludeCompleted}
		if view != query.ViewAll {
			data.DefaultDate = model.DateOf(now.In(s.planner.Location())).String()
		}
		render(c, s.pages.view, data)
	}
}

func (s *Server) listPage(c *gin.Context) {
	now := s.planner.Now()
	opts := query.Options{IncludeCompleted: includeCompleted(c)}
	listView, err := s.planner.ListViewAt(c.Request.Context(), c.Param("id"), opts, now)
	if err != nil {
		pageError(c, err)
		return
	}
	base, ok := s.page(c, now, listView.List.Name, "list:"+listView.List.ID)
	if !ok {
		return
	}
	render(c, s.pages.view, viewPageData{
		pageData:         base,
		Result:           listView.Result,
		IncludeCompleted: opts.IncludeCompleted,
		ListID:           listView.List.ID,
	})
}

func (s *Server) taskPage(c *gin.Context) {
	detail, err := s.planner.TaskDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		pageError(c, err)
		return
	}
	base, ok := s.page(c, s.planner.Now(), detail.Task.Name, "list:"+detail.List.ID)
	if !ok {
		return
	}
	render(c, s.pages.task, taskPageData{pageData: base, Detail: detail})
}

func (s *Server) searchPage(c *gin.Context) {
	kind, err := query.ParseKind(c.Query("kind"))
	if err != nil {
		pageError(c, invalid(err))
		return
	}
	req := query.SearchRequest{Query: c.Query("q"), Kind: kind}
	results, err := s.planner.Search(c.Request.Context(), req)
	if err != nil {
		pageError(c, err)
		return
	}
	base, ok := s.page(c, s.planner.Now(), "Search", "")
	if !ok {
		return
	}
	base.Query = results.Query
	render(c, s.pages.search, searchPageData{
		pageData: base,
		Kind:     kind,
		Kinds:    []query.Kind{query.KindAll, query.KindTasks, query.KindLists, query.KindLabels},
		Results:  results,
	})
}

func (s *Server) createTaskForm(c *gin.Context) {
	date, err := model.ParseDate(c.PostForm("date"))
	if err != nil {
		pageError(c, invalid(err))
		return
	}
	input := db.TaskInput{
		ListID:   c.PostForm("list_id"),
		Name:     c.PostForm("name"),
		Date:     date,
		Priority: model.Priority(c.PostForm("priority")),
	}
	if _, err := s.planner.CreateTask(c.Request.Context(), input); err != nil {
		pageError(c, err)
		return
	}
	redirectBack(c, "/"+string(query.ViewToday))
}

func (s *Server) toggleTaskForm(c *gin.Context) {
	if _, err := s.planner.ToggleTask(c.Request.Context(), c.Param("id")); err != nil {
		pageError(c, err)
		return
	}
	redirectBack(c, "/tasks/"+c.Param("id"))
}

func (s *Server) deleteTaskForm(c *gin.Context) {
	if err := s.planner.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		pageError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/"+string(query.ViewToday))
}

func (s *Server) createSubtaskForm(c *gin.Context) {
	if _, err := s.planner.CreateSubtask(c.Request.Context(), c.Param("id"), c.PostForm("name")); err != nil {
		pageError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/tasks/"+c.Param("id"))
}

// redirectBack returns to the page that posted the form when it is one of
// ours, otherwise to fallback.
func redirectBack(c *gin.Context, fallback string) {
	target := fallback
	if referer, err := url.Parse(c.Request.Referer()); err == nil && referer.Host == c.Request.Host && referer.Path != "" {
		target = referer.RequestURI()
	}
	c.Redirect(http.StatusSeeOther, target)
}

func pageError(c *gin.Context, err error) {
	c.String(statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, db.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrDefaultList):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
