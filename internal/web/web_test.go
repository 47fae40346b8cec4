package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Joseda-hg/lazyplan/internal/cache"
	"github.com/Joseda-hg/lazyplan/internal/clock"
	"github.com/Joseda-hg/lazyplan/internal/db"
	"github.com/Joseda-hg/lazyplan/internal/model"
	"github.com/Joseda-hg/lazyplan/internal/planner"
	"github.com/Joseda-hg/lazyplan/internal/query"
)

var referenceNow = time.Date(2024, time.May, 15, 9, 0, 0, 0, time.UTC)

func TestHealth(t *testing.T) {
	router, _ := newTestServer(t, Options{})

	w := do(t, router, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestCreateTaskThenView(t *testing.T) {
	router, _ := newTestServer(t, Options{})

	w := do(t, router, http.MethodPost, "/api/tasks", map[string]any{
		"name":     "Pay rent",
		"date":     "2024-05-14",
		"priority": "high",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created model.Task
	decode(t, w, &created)
	if created.Name != "Pay rent" || created.Priority != model.PriorityHigh || created.Date.String() != "2024-05-14" {
		t.Fatalf("unexpected task %+v", created)
	}

	w = do(t, router, http.MethodGet, "/api/views/today", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var result query.Result
	decode(t, w, &result)
	if result.OverdueCount != 1 || len(result.Groups) != 1 || result.Groups[0].Bucket != query.BucketOverdue {
		t.Fatalf("unexpected today view %+v", result)
	}
}

func TestErrorMapping(t *testing.T) {
	router, _ := newTestServer(t, Options{})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{name: "unknown view", method: http.MethodGet, path: "/api/views/someday", status: http.StatusBadRequest},
		{name: "missing task", method: http.MethodGet, path: "/api/tasks/nope", status: http.StatusNotFound},
		{name: "blank name", method: http.MethodPost, path: "/api/tasks", body: map[string]any{"name": "  "}, status: http.StatusBadRequest},
		{name: "bad date", method: http.MethodPost, path: "/api/tasks", body: map[string]any{"name": "x", "date": "05/14/2024"}, status: http.StatusBadRequest},
		{name: "deadline before date", method: http.MethodPost, path: "/api/tasks", body: map[string]any{"name": "x", "date": "2024-05-20", "deadline": "2024-05-19T10:00:00Z"}, status: http.StatusBadRequest},
		{name: "unknown list", method: http.MethodPost, path: "/api/tasks", body: map[string]any{"name": "x", "list_id": "nope"}, status: http.StatusBadRequest},
		{name: "bad search kind", method: http.MethodGet, path: "/api/search?q=a&kind=people", status: http.StatusBadRequest},
		{name: "bad limit", method: http.MethodGet, path: "/api/search?q=a&limit=ten", status: http.StatusBadRequest},
		{name: "malformed json", method: http.MethodPost, path: "/api/lists", body: "{", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.path, tt.body)
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), `"error"`) {
				t.Fatalf("expected json error body, got %s", w.Body.String())
			}
		})
	}
}

func TestDefaultListCannotBeDeleted(t *testing.T) {
	router, p := newTestServer(t, Options{})

	inbox, err := p.Store.DefaultList(context.Background())
	if err != nil {
		t.Fatalf("default list: %v", err)
	}
	w := do(t, router, http.MethodDelete, "/api/lists/"+inbox.ID, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestPatchTask(t *testing.T) {
	router, p := newTestServer(t, Options{})

	task, err := p.CreateTask(context.Background(), db.TaskInput{Name: "Draft", Description: "keep me"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	w := do(t, router, http.MethodPatch, "/api/tasks/"+task.ID, map[string]any{
		"name":      "Final",
		"date":      "2024-05-16",
		"completed": true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var updated model.Task
	decode(t, w, &updated)
	if updated.Name != "Final" || updated.Description != "keep me" || !updated.IsCompleted || updated.Date.String() != "2024-05-16" {
		t.Fatalf("unexpected patched task %+v", updated)
	}

	w = do(t, router, http.MethodPatch, "/api/tasks/"+task.ID, map[string]any{"date": ""})
	decode(t, w, &updated)
	if updated.HasDate() {
		t.Fatalf("expected empty date to clear, got %s", updated.Date)
	}

	logs, err := p.Store.ListTaskLogs(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) != 4 {
		t.Fatalf("expected created, updated, completed, updated logs, got %d", len(logs))
	}
}

func TestPatchTaskIsAtomic(t *testing.T) {
	router, p := newTestServer(t, Options{})

	task, err := p.CreateTask(context.Background(), db.TaskInput{Name: "Draft"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Make the completion half of the patch fail after the field edit ran.
	if _, err := p.Store.DB.ExecContext(context.Background(),
		"CREATE TRIGGER reject_completion BEFORE INSERT ON task_logs WHEN NEW.action = 'completed' BEGIN SELECT RAISE(ABORT, 'completion rejected'); END",
	); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	w := do(t, router, http.MethodPatch, "/api/tasks/"+task.ID, map[string]any{"name": "Final", "completed": true})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
	}

	current, err := p.Store.GetTask(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.Name != "Draft" || current.IsCompleted {
		t.Fatalf("expected failed patch to leave task untouched, got %+v", current)
	}
	logs, err := p.Store.ListTaskLogs(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected only the created log, got %d", len(logs))
	}
}

func TestListsAndLabels(t *testing.T) {
	router, _ := newTestServer(t, Options{})

	w := do(t, router, http.MethodPost, "/api/lists", map[string]any{"name": "Work", "emoji": "💼"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create list: %d %s", w.Code, w.Body.String())
	}
	var work model.List
	decode(t, w, &work)

	w = do(t, router, http.MethodPatch, "/api/lists/"+work.ID, map[string]any{"color": "#ff0000"})
	var patched model.List
	decode(t, w, &patched)
	if patched.Name != "Work" || patched.Color != "#ff0000" || patched.Emoji != "💼" {
		t.Fatalf("unexpected patched list %+v", patched)
	}

	do(t, router, http.MethodPost, "/api/tasks", map[string]any{"name": "Deploy", "list_id": work.ID})
	w = do(t, router, http.MethodGet, "/api/lists", nil)
	var lists []listResponse
	decode(t, w, &lists)
	if len(lists) != 2 || lists[1].Name != "Work" || lists[1].Remaining != 1 {
		t.Fatalf("unexpected lists %+v", lists)
	}

	w = do(t, router, http.MethodPost, "/api/labels", map[string]any{"name": "urgent"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create label: %d %s", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodPost, "/api/labels", map[string]any{"name": "URGENT"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected duplicate label rejected, got %d", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	router, p := newTestServer(t, Options{})
	for _, name := range []string{"Buy bread", "Buy", "Call mom"} {
		if _, err := p.CreateTask(context.Background(), db.TaskInput{Name: name}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	w := do(t, router, http.MethodGet, "/api/search?q=buy&kind=tasks", nil)
	var results query.SearchResults
	decode(t, w, &results)
	if len(results.Tasks) != 2 || results.Tasks[0].Item.Name != "Buy" || results.Tasks[0].Score != query.TierExact {
		t.Fatalf("unexpected results %+v", results)
	}
	if results.Lists != nil {
		t.Fatalf("expected no list results for kind=tasks")
	}
}

func TestSubtasksAndReminders(t *testing.T) {
	router, p := newTestServer(t, Options{})
	task, err := p.CreateTask(context.Background(), db.TaskInput{Name: "Trip"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	w := do(t, router, http.MethodPost, "/api/tasks/"+task.ID+"/subtasks", map[string]any{"name": "Pack"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create subtask: %d %s", w.Code, w.Body.String())
	}
	var subtask model.Subtask
	decode(t, w, &subtask)

	w = do(t, router, http.MethodPost, "/api/subtasks/"+subtask.ID+"/toggle", nil)
	decode(t, w, &subtask)
	if !subtask.IsCompleted {
		t.Fatalf("expected subtask completed")
	}

	w = do(t, router, http.MethodPost, "/api/tasks/"+task.ID+"/reminders", map[string]any{"remind_at": "2024-05-16T08:00:00Z"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create reminder: %d %s", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodPost, "/api/tasks/"+task.ID+"/reminders", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected missing remind_at rejected, got %d", w.Code)
	}

	w = do(t, router, http.MethodGet, "/api/tasks/"+task.ID, nil)
	var detail planner.TaskDetail
	decode(t, w, &detail)
	if len(detail.Subtasks) != 1 || len(detail.Reminders) != 1 {
		t.Fatalf("unexpected detail %+v", detail)
	}

	w = do(t, router, http.MethodDelete, "/api/subtasks/"+subtask.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete subtask: %d", w.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	router, _ := newTestServer(t, Options{RateLimit: 1, RateBurst: 1})

	first := do(t, router, http.MethodGet, "/api/health", nil)
	if first.Code != http.StatusOK {
		t.Fatalf("expected first request allowed, got %d", first.Code)
	}
	second := do(t, router, http.MethodGet, "/api/health", nil)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request limited, got %d", second.Code)
	}

	// Pages are not limited.
	page := do(t, router, http.MethodGet, "/today", nil)
	if page.Code != http.StatusOK {
		t.Fatalf("expected page allowed, got %d", page.Code)
	}
}

func TestRecoveryWithLog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RecoveryWithLog())
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := do(t, router, http.MethodGet, "/panic", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestPages(t *testing.T) {
	router, p := newTestServer(t, Options{})
	task, err := p.CreateTask(context.Background(), db.TaskInput{Name: "Water <plants>", Date: model.MustParseDate("2024-05-15")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	w := do(t, router, http.MethodGet, "/", nil)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/today" {
		t.Fatalf("expected redirect to /today, got %d %s", w.Code, w.Header().Get("Location"))
	}

	for _, path := range []string{"/today", "/week", "/upcoming", "/all?completed=1", "/tasks/" + task.ID, "/search?q=water", "/lists/" + task.ListID} {
		w := do(t, router, http.MethodGet, path, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", path, w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), "Water &lt;plants&gt;") {
			t.Fatalf("%s: expected escaped task name in page", path)
		}
	}

	w = do(t, router, http.MethodGet, "/tasks/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 page, got %d", w.Code)
	}
}

func TestFormPosts(t *testing.T) {
	router, p := newTestServer(t, Options{})

	w := postForm(t, router, "/tasks", "name=Stretch&date=2024-05-15&priority=low")
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect after create, got %d: %s", w.Code, w.Body.String())
	}
	tasks, err := p.Tasks(context.Background())
	if err != nil || len(tasks) != 1 {
		t.Fatalf("expected one task, got %v (%v)", tasks, err)
	}

	w = postForm(t, router, "/tasks/"+tasks[0].ID+"/toggle", "")
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect after toggle, got %d", w.Code)
	}
	if task, _ := p.Store.GetTask(context.Background(), tasks[0].ID); !task.IsCompleted {
		t.Fatalf("expected task completed")
	}

	w = postForm(t, router, "/tasks/"+tasks[0].ID+"/delete", "")
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/today" {
		t.Fatalf("expected redirect after delete, got %d", w.Code)
	}
	if tasks, _ := p.Tasks(context.Background()); len(tasks) != 0 {
		t.Fatalf("expected task deleted")
	}
}

func newTestServer(t *testing.T, opts Options) (http.Handler, *planner.Planner) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sqlDB, err := db.Open(":memory:", clock.Fixed{At: referenceNow})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	clk := clock.Fixed{At: referenceNow}
	p := planner.New(db.NewStore(sqlDB, clk), clk, cache.NewMemory(time.Minute))
	return NewServer(p, opts).Handler(), p
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.RemoteAddr = "127.0.0.1:12345"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func postForm(t *testing.T, h http.Handler, path, form string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

// dayPerRead moves one day forward on every reading, so any page that reads
// the clock twice renders two different days.
type dayPerRead struct {
	next time.Time
}

func (c *dayPerRead) Now() time.Time {
	now := c.next
	c.next = c.next.Add(24 * time.Hour)
	return now
}

func TestViewPageReadsClockOnce(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sqlDB, err := db.Open(":memory:", clock.Fixed{At: referenceNow})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	store := db.NewStore(sqlDB, clock.Fixed{At: referenceNow})
	if _, err := store.CreateTask(context.Background(), db.TaskInput{Name: "Standup", Date: model.MustParseDate("2024-05-15")}); err != nil {
		t.Fatalf("create task: %v", err)
	}

	clk := &dayPerRead{}
	p := planner.New(store, clk, nil)
	router := NewServer(p, Options{}).Handler()
	clk.next = referenceNow

	w := do(t, router, http.MethodGet, "/today", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Standup") {
		t.Fatalf("expected task in today view")
	}
	if strings.Contains(body, "badge overdue") {
		t.Fatalf("sidebar computed against a later day than the view")
	}
	if !strings.Contains(body, `value="2024-05-15"`) {
		t.Fatalf("expected add form to default to the view's day")
	}
}
