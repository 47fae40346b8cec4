package web

import (
	"bytes"
	"embed"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Joseda-hg/lazyplan/internal/model"
	"github.com/Joseda-hg/lazyplan/internal/planner"
	"github.com/Joseda-hg/lazyplan/internal/query"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

type pages struct {
	view   *template.Template
	task   *template.Template
	search *template.Template
}

// parsePages builds one template set per page, each pairing the shared
// layout with the page's "content" block. Times render in loc.
func parsePages(loc *time.Location) pages {
	funcs := template.FuncMap{
		"ago":          humanize.Time,
		"displayCount": query.DisplayCount,
		"bucketTitle":  func(b query.Bucket) string { return b.Title() },
		"dateLabel":    dateLabel,
		"deadline": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.In(loc).Format(timestampLayout)
		},
		"timestamp": func(t time.Time) string { return t.In(loc).Format(timestampLayout) },
	}
	parse := func(name string) *template.Template {
		return template.Must(template.New("page").Funcs(funcs).ParseFS(templateFS, "templates/layout.tmpl", name))
	}
	return pages{
		view:   parse("templates/view.tmpl"),
		task:   parse("templates/task.tmpl"),
		search: parse("templates/search.tmpl"),
	}
}

const timestampLayout = "Mon Jan 2 15:04"

// Options configures the HTTP surface. A zero RateLimit disables rate
// limiting; empty CORSOrigins allows any origin.
type Options struct {
	RateLimit   float64
	RateBurst   int
	CORSOrigins []string
}

type Server struct {
	planner *planner.Planner
	pages   pages
	engine  *gin.Engine
}

func NewServer(p *planner.Planner, opts Options) *Server {
	s := &Server{planner: p, pages: parsePages(p.Location())}
	s.engine = s.routes(opts)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(RecoveryWithLog())

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/"+string(query.ViewToday))
	})
	for _, view := range query.Views {
		r.GET("/"+string(view), s.viewPage(view))
	}
	r.GET("/lists/:id", s.listPage)
	r.GET("/tasks/:id", s.taskPage)
	r.GET("/search", s.searchPage)
	r.POST("/tasks", s.createTaskForm)
	r.POST("/tasks/:id/toggle", s.toggleTaskForm)
	r.POST("/tasks/:id/delete", s.deleteTaskForm)
	r.POST("/tasks/:id/subtasks", s.createSubtaskForm)

	api := r.Group("/api")
	api.Use(cors.New(corsConfig(opts.CORSOrigins)))
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = int(opts.RateLimit) + 1
		}
		api.Use(RateLimiter(rate.Limit(opts.RateLimit), burst))
	}

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api.GET("/views/:name", s.getView)
	api.GET("/search", s.search)
	api.GET("/sidebar", s.getSidebar)

	api.GET("/lists", s.listLists)
	api.POST("/lists", s.createList)
	api.GET("/lists/:id", s.getList)
	api.PATCH("/lists/:id", s.updateList)
	api.DELETE("/lists/:id", s.deleteList)
	api.GET("/lists/:id/tasks", s.listTasksOfList)

	api.GET("/tasks", s.listTasks)
	api.POST("/tasks", s.createTask)
	api.GET("/tasks/:id", s.getTask)
	api.PATCH("/tasks/:id", s.updateTask)
	api.DELETE("/tasks/:id", s.deleteTask)
	api.POST("/tasks/:id/toggle", s.toggleTask)
	api.PUT("/tasks/:id/labels", s.setTaskLabels)
	api.GET("/tasks/:id/logs", s.listTaskLogs)
	api.GET("/tasks/:id/subtasks", s.listSubtasks)
	api.POST("/tasks/:id/subtasks", s.createSubtask)
	api.GET("/tasks/:id/reminders", s.listReminders)
	api.POST("/tasks/:id/reminders", s.createReminder)

	api.POST("/subtasks/:id/toggle", s.toggleSubtask)
	api.DELETE("/subtasks/:id", s.deleteSubtask)
	api.DELETE("/reminders/:id", s.deleteReminder)

	api.GET("/labels", s.listLabels)
	api.POST("/labels", s.createLabel)
	api.PATCH("/labels/:id", s.updateLabel)
	api.DELETE("/labels/:id", s.deleteLabel)

	return r
}

func corsConfig(origins []string) cors.Config {
	config := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	return config
}

// render executes page into a buffer first so a template error can still
// produce a clean 500.
func render(c *gin.Context, page *template.Template, data any) {
	var buf bytes.Buffer
	if err := page.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Printf("[warn] render %s: %v", c.Request.URL.Path, err)
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// includeCompleted reads the ?completed= flag shared by pages and API.
func includeCompleted(c *gin.Context) bool {
	value, err := strconv.ParseBool(c.Query("completed"))
	return err == nil && value
}

func dateLabel(d model.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.In(time.UTC).Format("Mon Jan 2")
}
