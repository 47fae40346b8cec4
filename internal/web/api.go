package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Joseda-hg/lazyplan/internal/db"
	"github.com/Joseda-hg/lazyplan/internal/model"
	"github.com/Joseda-hg/lazyplan/internal/query"
)

type taskRequest struct {
	ListID      string   `json:"list_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	Deadline    string   `json:"deadline"`
	Priority    string   `json:"priority"`
	LabelIDs    []string `json:"label_ids"`
}

func (r taskRequest) input(loc *time.Location) (db.TaskInput, error) {
	date, err := model.ParseDate(r.Date)
	if err != nil {
		return db.TaskInput{}, invalid(err)
	}
	deadline, err := parseInstant(r.Deadline, loc)
	if err != nil {
		return db.TaskInput{}, err
	}
	return db.TaskInput{
		ListID:      r.ListID,
		Name:        r.Name,
		Description: r.Description,
		Date:        date,
		Deadline:    deadline,
		Priority:    model.Priority(r.Priority),
		LabelIDs:    r.LabelIDs,
	}, nil
}

// taskPatch carries only the fields to change. An empty date or deadline
// clears it.
type taskPatch struct {
	ListID      *string   `json:"list_id"`
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Date        *string   `json:"date"`
	Deadline    *string   `json:"deadline"`
	Priority    *string   `json:"priority"`
	LabelIDs    *[]string `json:"label_ids"`
	Completed   *bool     `json:"completed"`
}

func (p taskPatch) editsFields() bool {
	return p.ListID != nil || p.Name != nil || p.Description != nil || p.Date != nil ||
		p.Deadline != nil || p.Priority != nil || p.LabelIDs != nil
}

func (p taskPatch) apply(task model.Task, loc *time.Location) (db.TaskInput, error) {
	input := db.TaskInput{
		ListID:      task.ListID,
		Name:        task.Name,
		Description: task.Description,
		Date:        task.Date,
		Deadline:    task.Deadline,
		Priority:    task.Priority,
	}
	if p.ListID != nil {
		input.ListID = *p.ListID
	}
	if p.Name != nil {
		input.Name = *p.Name
	}
	if p.Description != nil {
		input.Description = *p.Description
	}
	if p.Priority != nil {
		input.Priority = model.Priority(*p.Priority)
	}
	if p.LabelIDs != nil {
		input.LabelIDs = append([]string{}, (*p.LabelIDs)...)
	}
	if p.Date != nil {
		date, err := model.ParseDate(*p.Date)
		if err != nil {
			return db.TaskInput{}, invalid(err)
		}
		input.Date = date
	}
	if p.Deadline != nil {
		deadline, err := parseInstant(*p.Deadline, loc)
		if err != nil {
			return db.TaskInput{}, err
		}
		input.Deadline = deadline
	}
	return input, nil
}

type listRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
	Emoji *string `json:"emoji"`
}

func (r listRequest) apply(input db.ListInput) db.ListInput {
	if r.Name != nil {
		input.Name = *r.Name
	}
	if r.Color != nil {
		input.Color = *r.Color
	}
	if r.Emoji != nil {
		input.Emoji = *r.Emoji
	}
	return input
}

type labelRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
	Icon  *string `json:"icon"`
}

func (r labelRequest) apply(input db.LabelInput) db.LabelInput {
	if r.Name != nil {
		input.Name = *r.Name
	}
	if r.Color != nil {
		input.Color = *r.Color
	}
	if r.Icon != nil {
		input.Icon = *r.Icon
	}
	return input
}

type labelsRequest struct {
	LabelIDs []string `json:"label_ids"`
}

type subtaskRequest struct {
	Name string `json:"name"`
}

type reminderRequest struct {
	RemindAt string `json:"remind_at"`
}

type listResponse struct {
	model.ListSummary
	Remaining int `json:"remaining"`
}

// instantLayouts are tried in order; zone-less forms are read in the
// planner's location.
var instantLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	model.DateLayout,
}

// parseInstant accepts RFC3339, a local "YYYY-MM-DDTHH:MM" or a bare date
// meaning midnight. Empty means unset.
func parseInstant(value string, loc *time.Location) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: invalid time %q: want RFC3339 or YYYY-MM-DD", db.ErrInvalidInput, value)
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", db.ErrInvalidInput, err)
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		writeError(c, invalid(err))
		return false
	}
	return true
}

func (s *Server) getView(c *gin.Context) {
	view, err := query.ParseView(c.Param("name"))
	if err != nil {
		writeError(c, invalid(err))
		return
	}
	result, err := s.planner.View(c.Request.Context(), view, query.Options{IncludeCompleted: includeCompleted(c)})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) search(c *gin.Context) {
	kind, err := query.ParseKind(c.Query("kind"))
	if err != nil {
		writeError(c, invalid(err))
		return
	}
	completion, err := query.ParseCompletion(c.Query("completed"))
	if err != nil {
		writeError(c, invalid(err))
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			writeError(c, invalid(fmt.Errorf("limit must be a number")))
			return
		}
	}

	results, err := s.planner.Search(c.Request.Context(), query.SearchRequest{
		Query:     c.Query("q"),
		Kind:      kind,
		Completed: completion,
		Limit:     limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (s *Server) getSidebar(c *gin.Context) {
	sidebar, err := s.planner.Sidebar(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sidebar)
}

func (s *Server) listLists(c *gin.Context) {
	summaries, err := s.planner.Store.ListSummaries(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	lists := make([]listResponse, 0, len(summaries))
	for _, summary := range summaries {
		lists = append(lists, listResponse{ListSummary: summary, Remaining: query.Remaining(summary)})
	}
	c.JSON(http.StatusOK, lists)
}

func (s *Server) createList(c *gin.Context) {
	var req listRequest
	if !bindJSON(c, &req) {
		return
	}
	list, err := s.planner.CreateList(c.Request.Context(), req.apply(db.ListInput{}))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, list)
}

// getList returns the list with its tasks grouped the way the All view
// groups them.
func (s *Server) getList(c *gin.Context) {
	view, err := s.planner.ListView(c.Request.Context(), c.Param("id"), query.Options{IncludeCompleted: includeCompleted(c)})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) updateList(c *gin.Context) {
	var req listRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	current, err := s.planner.Store.GetList(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	input := req.apply(db.ListInput{Name: current.Name, Color: current.Color, Emoji: current.Emoji})
	list, err := s.planner.UpdateList(ctx, current.ID, input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) deleteList(c *gin.Context) {
	if err := s.planner.DeleteList(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listTasksOfList(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := s.planner.Store.GetList(ctx, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	tasks, err := s.planner.Store.TasksByList(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// listTasks returns every task, or only dated tasks when from or to is given.
func (s *Server) listTasks(c *gin.Context) {
	from, err := model.ParseDate(c.Query("from"))
	if err != nil {
		writeError(c, invalid(err))
		return
	}
	to, err := model.ParseDate(c.Query("to"))
	if err != nil {
		writeError(c, invalid(err))
		return
	}

	var tasks []model.Task
	if from.IsZero() && to.IsZero() {
		tasks, err = s.planner.Tasks(c.Request.Context())
	} else {
		tasks, err = s.planner.TasksInRange(c.Request.Context(), from, to)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) createTask(c *gin.Context) {
	var req taskRequest
	if !bindJSON(c, &req) {
		return
	}
	input, err := req.input(s.planner.Location())
	if err != nil {
		writeError(c, err)
		return
	}
	task, err := s.planner.CreateTask(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (s *Server) getTask(c *gin.Context) {
	detail, err := s.planner.TaskDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) updateTask(c *gin.Context) {
	var patch taskPatch
	if !bindJSON(c, &patch) {
		return
	}
	ctx := c.Request.Context()
	task, err := s.planner.Store.GetTask(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	var input *db.TaskInput
	if patch.editsFields() {
		edited, err := patch.apply(task, s.planner.Location())
		if err != nil {
			writeError(c, err)
			return
		}
		input = &edited
	}
	if task, err = s.planner.PatchTask(ctx, task.ID, input, patch.Completed); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) deleteTask(c *gin.Context) {
	if err := s.planner.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) toggleTask(c *gin.Context) {
	task, err := s.planner.ToggleTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) setTaskLabels(c *gin.Context) {
	var req labelsRequest
	if !bindJSON(c, &req) {
		return
	}
	task, err := s.planner.SetTaskLabels(c.Request.Context(), c.Param("id"), req.LabelIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) listTaskLogs(c *gin.Context) {
	logs, err := s.planner.Store.ListTaskLogs(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (s *Server) listSubtasks(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := s.planner.Store.GetTask(ctx, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	subtasks, err := s.planner.Store.ListSubtasks(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, subtasks)
}

func (s *Server) createSubtask(c *gin.Context) {
	var req subtaskRequest
	if !bindJSON(c, &req) {
		return
	}
	subtask, err := s.planner.CreateSubtask(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, subtask)
}

func (s *Server) toggleSubtask(c *gin.Context) {
	subtask, err := s.planner.ToggleSubtask(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, subtask)
}

func (s *Server) deleteSubtask(c *gin.Context) {
	if err := s.planner.DeleteSubtask(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listReminders(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := s.planner.Store.GetTask(ctx, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	reminders, err := s.planner.Store.ListReminders(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reminders)
}

func (s *Server) createReminder(c *gin.Context) {
	var req reminderRequest
	if !bindJSON(c, &req) {
		return
	}
	remindAt, err := parseInstant(req.RemindAt, s.planner.Location())
	if err != nil {
		writeError(c, err)
		return
	}
	if remindAt == nil {
		writeError(c, invalid(fmt.Errorf("remind_at is required")))
		return
	}
	reminder, err := s.planner.CreateReminder(c.Request.Context(), c.Param("id"), *remindAt)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reminder)
}

func (s *Server) deleteReminder(c *gin.Context) {
	if err := s.planner.DeleteReminder(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listLabels(c *gin.Context) {
	labels, err := s.planner.Store.ListLabels(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, labels)
}

func (s *Server) createLabel(c *gin.Context) {
	var req labelRequest
	if !bindJSON(c, &req) {
		return
	}
	label, err := s.planner.CreateLabel(c.Request.Context(), req.apply(db.LabelInput{}))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, label)
}

func (s *Server) updateLabel(c *gin.Context) {
	var req labelRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	current, err := s.planner.Store.GetLabel(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	input := req.apply(db.LabelInput{Name: current.Name, Color: current.Color, Icon: current.Icon})
	label, err := s.planner.UpdateLabel(ctx, current.ID, input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, label)
}

func (s *Server) deleteLabel(c *gin.Context) {
	if err := s.planner.DeleteLabel(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
