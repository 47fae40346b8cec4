package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"

	"github.com/Joseda-hg/lazyplan/internal/db"
	"github.com/Joseda-hg/lazyplan/internal/model"
	"github.com/Joseda-hg/lazyplan/internal/planner"
	"github.com/Joseda-hg/lazyplan/internal/query"
)

const (
	viewHeader     = "header"
	viewFooter     = "footer"
	viewNav        = "views"
	viewLists      = "lists"
	viewTasks      = "tasks"
	viewDetail     = "detail"
	viewLog        = "log"
	viewSearch     = "search"
	viewForm       = "form"
	viewHelp       = "help"
	viewListCreate = "listCreate"
)

// focusOrder is the tab cycle of the panes.
var focusOrder = []string{viewNav, viewLists, viewTasks, viewLog}

type UI struct {
	planner *planner.Planner
	gui     *gocui.Gui
	ctx     context.Context

	view             query.ViewName
	listID           string
	search           string
	includeCompleted bool
	title            string

	sidebar planner.Sidebar
	labels  []model.Label
	rows    []taskRow
	tasks   []model.Task
	detail  *planner.TaskDetail

	selectedNav  int
	selectedList int
	selectedTask int
	selectedLog  int
	focus        string

	form             *formState
	formEditor       *formEditor
	formLabelIndex   int
	searchActive     bool
	helpActive       bool
	listCreateActive bool
	status           string
}

type formState struct {
	taskID string
	listID string
	fields []formField
	index  int
}

type formEditor struct {
	ui *UI
}

func newUI(ctx context.Context, p *planner.Planner) *UI {
	return &UI{
		planner: p,
		ctx:     ctx,
		view:    query.ViewToday,
		focus:   viewTasks,
	}
}

func Run(ctx context.Context, p *planner.Planner) error {
	gui, err := gocui.NewGui(gocui.NewGuiOpts{OutputMode: gocui.OutputNormal})
	if err != nil {
		return err
	}
	defer gui.Close()

	ui := newUI(ctx, p)
	ui.gui = gui
	gui.Mouse = true
	ui.formEditor = &formEditor{ui: ui}

	gui.SetManagerFunc(ui.layout)
	if err := ui.bindKeys(gui); err != nil {
		return err
	}
	if err := ui.load(); err != nil {
		return err
	}

	if err := gui.MainLoop(); err != nil && !goerrors.Is(err, gocui.ErrQuit) {
		return err
	}
	return nil
}

type binding struct {
	view    string
	key     any
	handler func(*gocui.Gui, *gocui.View) error
}

func (u *UI) bindKeys(gui *gocui.Gui) error {
	bindings := []binding{
		{"", gocui.KeyCtrlC, u.quit},
		{"", 'q', u.quit},
		{"", 'r', u.reload},
		{"", 'g', u.clearSearch},
		{"", 'a', u.add},
		{"", 'e', u.editTask},
		{"", 'd', u.delete},
		{"", 'x', u.toggleDone},
		{"", 'c', u.toggleIncludeCompleted},
		{"", '/', u.startSearch},
		{"", '?', u.toggleHelp},
		{"", gocui.KeyTab, u.switchFocus},
		{viewSearch, gocui.KeyEnter, u.submitSearch},
		{viewSearch, gocui.KeyEsc, u.cancelSearch},
		{viewForm, gocui.KeyEnter, u.submitFormNow},
		{viewForm, gocui.KeyCtrlJ, u.submitFormNow},
		{viewForm, gocui.KeyTab, u.nextFormField},
		{viewForm, gocui.KeyBacktab, u.prevFormField},
		{viewForm, gocui.KeyArrowDown, u.nextFormField},
		{viewForm, gocui.KeyArrowUp, u.prevFormField},
		{viewForm, gocui.KeyEsc, u.cancelForm},
		{viewHelp, gocui.KeyEsc, u.closeHelp},
		{viewHelp, 'q', u.closeHelp},
		{viewHelp, '?', u.closeHelp},
		{viewListCreate, gocui.KeyEnter, u.submitListCreate},
		{viewListCreate, gocui.KeyEsc, u.cancelListCreate},
		{viewLists, gocui.KeyEnter, u.openSelectedList},
	}
	for i := range query.Views {
		bindings = append(bindings, binding{"", rune('1' + i), u.viewKey(i)})
	}
	for _, name := range focusOrder {
		bindings = append(bindings,
			binding{name, gocui.KeyArrowDown, u.moveDown},
			binding{name, 'j', u.moveDown},
			binding{name, gocui.KeyArrowUp, u.moveUp},
			binding{name, 'k', u.moveUp},
		)
	}

	for _, b := range bindings {
		if err := gui.SetKeybinding(b.view, b.key, gocui.ModNone, b.handler); err != nil {
			return err
		}
	}

	for _, name := range focusOrder {
		name := name
		if err := gui.SetViewClickBinding(&gocui.ViewMouseBinding{ViewName: name, Key: gocui.MouseLeft, Handler: func(opts gocui.ViewMouseBindingOpts) error {
			return u.onPaneClick(gui, name, opts)
		}}); err != nil {
			return err
		}
	}
	return u.bindMouseScroll(gui)
}

func (u *UI) layout(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	if maxX <= 0 || maxY <= 0 {
		return nil
	}

	headerView, err := gui.SetView(viewHeader, 0, 0, maxX-1, 0, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	headerView.Frame = false
	headerView.Wrap = true
	headerView.FgColor = gocui.ColorDefault
	u.renderHeader(headerView)

	footerY1 := max(maxY-2, 1)
	footerY0 := max(footerY1-2, 1)
	footerView, err := gui.SetView(viewFooter, 0, footerY0, maxX-1, footerY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	footerView.Frame = false
	footerView.Wrap = true
	footerView.FgColor = gocui.ColorDefault | gocui.AttrDim
	footerView.BgColor = gocui.ColorDefault
	u.renderFooter(footerView)

	bodyTop := 1
	bodyBottom := footerY0 - 1
	if bodyBottom < bodyTop {
		return nil
	}

	lay := computeLayout(maxX, bodyBottom-bodyTop+1)
	leftX1 := lay.leftWidth - 1
	rightX0 := max(maxX-lay.rightWidth, leftX1+2)
	navY1 := bodyTop + lay.navHeight - 1
	detailY1 := bodyTop + lay.detailHeight - 1

	navView, err := pane(gui, viewNav, 0, bodyTop, leftX1, navY1)
	if err != nil {
		return err
	}
	navView.Title = "Views"
	navView.TitleColor = gocui.ColorCyan
	applyViewStyle(navView, u.focus == viewNav, true)
	u.renderNav(navView)

	listsView, err := pane(gui, viewLists, 0, navY1+1, leftX1, bodyBottom)
	if err != nil {
		return err
	}
	listsView.Title = "Lists"
	listsView.TitleColor = gocui.ColorYellow
	applyViewStyle(listsView, u.focus == viewLists, true)
	u.renderLists(listsView)

	tasksView, err := pane(gui, viewTasks, leftX1+1, bodyTop, rightX0-1, bodyBottom)
	if err != nil {
		return err
	}
	tasksView.Title = u.title
	applyViewStyle(tasksView, u.focus == viewTasks, true)
	u.renderTasks(tasksView)

	detailView, err := pane(gui, viewDetail, rightX0, bodyTop, maxX-1, detailY1)
	if err != nil {
		return err
	}
	detailView.Title = "Task"
	detailView.Wrap = true
	applyViewStyle(detailView, false, false)
	u.renderDetail(detailView)

	logView, err := pane(gui, viewLog, rightX0, detailY1+1, maxX-1, bodyBottom)
	if err != nil {
		return err
	}
	logView.Title = "Activity"
	applyViewStyle(logView, u.focus == viewLog, true)
	u.renderLog(logView)

	_, _ = gui.SetViewOnTop(viewHeader)
	_, _ = gui.SetViewOnTop(viewFooter)

	if u.searchActive {
		if err := u.showSearch(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewSearch)
	}

	if u.form != nil {
		if err := u.showForm(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewForm)
	}

	if u.listCreateActive {
		if err := u.showListCreate(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewListCreate)
	}

	if u.helpActive {
		if err := u.showHelp(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewHelp)
	}

	if gui.CurrentView() == nil {
		_, _ = gui.SetCurrentView(u.focus)
	}

	gui.Cursor = u.searchActive || u.form != nil || u.listCreateActive
	return nil
}

func pane(gui *gocui.Gui, name string, x0, y0, x1, y1 int) (*gocui.View, error) {
	view, err := gui.SetView(name, x0, y0, x1, y1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return nil, err
	}
	return view, nil
}

type layout struct {
	leftWidth    int
	rightWidth   int
	navHeight    int
	detailHeight int
}

func computeLayout(width, height int) layout {
	safeWidth := max(width-2, 40)
	safeHeight := max(height, 10)

	leftWidth := min(max(safeWidth/5, 22), 32)
	rightWidth := max(safeWidth/3, 24)
	if leftWidth+rightWidth > safeWidth-20 {
		rightWidth = max(safeWidth-leftWidth-20, 16)
	}

	navHeight := min(len(query.Views)+2, safeHeight/2)
	detailHeight := max(int(float64(safeHeight)*0.55), 4)

	return layout{
		leftWidth:    leftWidth,
		rightWidth:   rightWidth,
		navHeight:    navHeight,
		detailHeight: detailHeight,
	}
}

// load refreshes the sidebar and the tasks pane for the current source: a
// search, a list, or one of the named views.
func (u *UI) load() error {
	sidebar, err := u.planner.Sidebar(u.ctx)
	if err != nil {
		return err
	}
	u.sidebar = sidebar

	labels, err := u.planner.Store.ListLabels(u.ctx)
	if err != nil {
		return err
	}
	u.labels = labels

	opts := query.Options{IncludeCompleted: u.includeCompleted}
	switch {
	case u.search != "":
		completion := query.CompletionActive
		if u.includeCompleted {
			completion = query.CompletionAll
		}
		results, err := u.planner.Search(u.ctx, query.SearchRequest{Query: u.search, Kind: query.KindAll, Completed: completion})
		if err != nil {
			return err
		}
		u.rows, u.tasks = searchRows(results)
		u.title = "Search: " + u.search
	case u.listID != "":
		listView, err := u.planner.ListView(u.ctx, u.listID, opts)
		if errors.Is(err, db.ErrNotFound) {
			u.listID = ""
			return u.load()
		}
		if err != nil {
			return err
		}
		u.rows, u.tasks = buildRows(listView.Result.Groups)
		u.title = strings.TrimSpace(listView.List.Emoji + " " + listView.List.Name)
	default:
		result, err := u.planner.View(u.ctx, u.view, opts)
		if err != nil {
			return err
		}
		u.rows, u.tasks = buildRows(result.Groups)
		u.title = u.view.Title()
		if result.OverdueCount > 0 {
			u.title = fmt.Sprintf("%s (%s overdue)", u.title, query.DisplayCount(result.OverdueCount))
		}
	}

	if u.selectedTask >= len(u.tasks) {
		u.selectedTask = max(len(u.tasks)-1, 0)
	}
	if u.selectedList >= len(u.sidebar.Lists) {
		u.selectedList = max(len(u.sidebar.Lists)-1, 0)
	}
	if u.formLabelIndex >= len(u.labels) {
		u.formLabelIndex = max(len(u.labels)-1, 0)
	}
	return u.loadDetail()
}

func (u *UI) loadDetail() error {
	selected := u.selectedTaskItem()
	if selected == nil {
		u.detail = nil
		return nil
	}

	detail, err := u.planner.TaskDetail(u.ctx, selected.ID)
	if err != nil {
		return err
	}
	u.detail = &detail
	if u.selectedLog >= len(detail.Logs) {
		u.selectedLog = max(len(detail.Logs)-1, 0)
	}
	return nil
}

func (u *UI) renderHeader(view *gocui.View) {
	view.Clear()
	search := u.search
	if search == "" {
		search = "type / to search"
	}
	completed := "hidden"
	if u.includeCompleted {
		completed = "shown"
	}
	fmt.Fprintf(view, "%s | Completed: %s | Overdue: %s | Search: %s", u.title, completed, u.sidebar.Overdue.Display, search)
}

func (u *UI) renderFooter(view *gocui.View) {
	view.Clear()
	view.SetOrigin(0, 0)
	view.SetCursor(0, 0)

	fmt.Fprintln(view, "1-4 views | tab panes | j/k move | x complete | c show completed | a add | e edit | d delete")
	fmt.Fprintln(view, "/ search | g clear search | enter open list | r reload | ? help | q quit")
	if u.status != "" {
		fmt.Fprint(view, u.status)
	}
}

func (u *UI) renderNav(view *gocui.View) {
	view.Clear()
	for i, badge := range u.sidebar.Views {
		prefix := " "
		if u.listID == "" && u.search == "" && badge.View == u.view {
			prefix = "*"
		}
		if u.focus == viewNav && i == u.selectedNav {
			prefix = ">"
		}
		fmt.Fprintf(view, "%s %d %-10s %4s\n", prefix, i+1, badge.Title, badge.Badge.Display)
	}
	if u.focus == viewNav {
		view.SetCursor(0, min(u.selectedNav, len(u.sidebar.Views)-1))
	}
}

func (u *UI) renderLists(view *gocui.View) {
	view.Clear()
	for i, entry := range u.sidebar.Lists {
		prefix := " "
		if u.search == "" && entry.List.ID == u.listID {
			prefix = "*"
		}
		if u.focus == viewLists && i == u.selectedList {
			prefix = ">"
		}
		name := strings.TrimSpace(entry.List.Emoji + " " + entry.List.Name)
		fmt.Fprintf(view, "%s %s (%s)\n", prefix, name, entry.Remaining.Display)
	}
	if u.focus == viewLists {
		view.SetCursor(0, min(u.selectedList, len(u.sidebar.Lists)-1))
	}
}

func (u *UI) renderTasks(view *gocui.View) {
	view.Clear()
	focused := u.focus == viewTasks
	for _, row := range u.rows {
		if !row.isTask() {
			fmt.Fprintf(view, "%s\n", row.Text)
			continue
		}
		prefix := " "
		if row.TaskIndex == u.selectedTask {
			if focused {
				prefix = ">"
			} else {
				prefix = "*"
			}
		}
		fmt.Fprintf(view, "%s %s\n", prefix, row.Text)
	}
	if focused && len(u.tasks) > 0 {
		view.SetCursor(0, rowOfTask(u.rows, u.selectedTask))
	}
}

func (u *UI) renderDetail(view *gocui.View) {
	view.Clear()
	if u.detail == nil {
		fmt.Fprint(view, "No task selected")
		return
	}
	task := u.detail.Task
	loc := u.planner.Location()

	date := "none"
	if task.HasDate() {
		date = task.Date.String()
	}
	deadline := "none"
	if task.Deadline != nil {
		deadline = task.Deadline.In(loc).Format(deadlineLayout)
	}
	state := "open"
	if task.IsCompleted && task.CompletedAt != nil {
		state = "completed " + humanize.Time(*task.CompletedAt)
	}

	lines := []string{
		task.Name,
		fmt.Sprintf("List: %s", strings.TrimSpace(u.detail.List.Emoji+" "+u.detail.List.Name)),
		fmt.Sprintf("When: %s", u.detail.Bucket.Title()),
		fmt.Sprintf("State: %s", state),
		fmt.Sprintf("Priority: %s", task.Priority),
		fmt.Sprintf("Date: %s", date),
		fmt.Sprintf("Deadline: %s", deadline),
		fmt.Sprintf("Labels: %s", formatLabels(task.Labels)),
	}
	if task.Description != "" {
		lines = append(lines, "", task.Description)
	}
	if len(u.detail.Subtasks) > 0 {
		lines = append(lines, "", "Subtasks:")
		for _, subtask := range u.detail.Subtasks {
			check := "[ ]"
			if subtask.IsCompleted {
				check = "[x]"
			}
			lines = append(lines, fmt.Sprintf("  %s %s", check, subtask.Name))
		}
	}
	if len(u.detail.Reminders) > 0 {
		lines = append(lines, "", "Reminders:")
		for _, reminder := range u.detail.Reminders {
			sent := ""
			if reminder.SentAt != nil {
				sent = " (sent)"
			}
			lines = append(lines, fmt.Sprintf("  %s%s", reminder.RemindAt.In(loc).Format(deadlineLayout), sent))
		}
	}
	fmt.Fprint(view, strings.Join(lines, "\n"))
}

func (u *UI) renderLog(view *gocui.View) {
	view.Clear()
	if u.detail == nil {
		return
	}
	focused := u.focus == viewLog
	for i, entry := range u.detail.Logs {
		prefix := " "
		if focused && i == u.selectedLog {
			prefix = ">"
		}
		fmt.Fprintf(view, "%s %s | %s\n", prefix, humanize.Time(entry.CreatedAt), entry.Details)
	}
	if focused {
		view.SetCursor(0, min(u.selectedLog, len(u.detail.Logs)-1))
	}
}

func (u *UI) onPaneClick(gui *gocui.Gui, name string, opts gocui.ViewMouseBindingOpts) error {
	if u.inputActive() {
		return nil
	}
	view, err := gui.View(name)
	if err != nil {
		return nil
	}

	_, y0, _, _ := view.Dimensions()
	_, oy := view.Origin()
	row := max(opts.Y-y0-1+oy, 0)

	switch name {
	case viewNav:
		if row < len(query.Views) {
			u.focus = viewNav
			_, _ = gui.SetCurrentView(viewNav)
			return u.showView(row)
		}
	case viewLists:
		if row < len(u.sidebar.Lists) {
			u.focus = viewLists
			_, _ = gui.SetCurrentView(viewLists)
			u.selectedList = row
			return u.openList()
		}
	case viewTasks:
		if row < len(u.rows) && u.rows[row].isTask() {
			u.selectedTask = u.rows[row].TaskIndex
			return u.setFocus(gui, viewTasks)
		}
	case viewLog:
		if u.detail != nil {
			u.selectedLog = min(row, len(u.detail.Logs)-1)
		}
		return u.setFocus(gui, viewLog)
	}
	return nil
}

func (u *UI) bindMouseScroll(gui *gocui.Gui) error {
	for _, name := range []string{viewNav, viewLists, viewTasks, viewDetail, viewLog} {
		if err := gui.SetKeybinding(name, gocui.MouseWheelUp, gocui.ModNone, u.scrollUp); err != nil {
			return err
		}
		if err := gui.SetKeybinding(name, gocui.MouseWheelDown, gocui.ModNone, u.scrollDown); err != nil {
			return err
		}
	}
	return nil
}

func (u *UI) scrollUp(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if view == nil {
		view = gui.CurrentView()
	}
	if view != nil {
		view.ScrollUp(1)
	}
	return nil
}

func (u *UI) scrollDown(gui *gocui.Gui, view *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if view == nil {
		view = gui.CurrentView()
	}
	if view != nil {
		view.ScrollDown(1)
	}
	return nil
}

func (u *UI) selectedTaskItem() *model.Task {
	if u.selectedTask >= 0 && u.selectedTask < len(u.tasks) {
		return &u.tasks[u.selectedTask]
	}
	return nil
}

func (u *UI) switchFocus(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	next := focusOrder[0]
	for i, name := range focusOrder {
		if name == u.focus {
			next = focusOrder[(i+1)%len(focusOrder)]
			break
		}
	}
	return u.setFocus(gui, next)
}

func (u *UI) setFocus(gui *gocui.Gui, name string) error {
	if u.inputActive() {
		return nil
	}
	u.focus = name
	if gui != nil {
		_, _ = gui.SetCurrentView(name)
	}
	return u.loadDetail()
}

func (u *UI) viewKey(index int) func(*gocui.Gui, *gocui.View) error {
	return func(_ *gocui.Gui, _ *gocui.View) error {
		if u.inputActive() {
			return nil
		}
		return u.showView(index)
	}
}

// showView makes query.Views[index] the source of the tasks pane.
func (u *UI) showView(index int) error {
	if index < 0 || index >= len(query.Views) {
		return nil
	}
	u.selectedNav = index
	u.view = query.Views[index]
	u.listID = ""
	u.search = ""
	u.selectedTask = 0
	u.status = ""
	return u.load()
}

func (u *UI) openSelectedList(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	return u.openList()
}

// openList makes the list under the cursor the source of the tasks pane.
func (u *UI) openList() error {
	if u.selectedList < 0 || u.selectedList >= len(u.sidebar.Lists) {
		return nil
	}
	u.listID = u.sidebar.Lists[u.selectedList].List.ID
	u.search = ""
	u.selectedTask = 0
	u.status = ""
	return u.load()
}

func (u *UI) moveDown(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	switch u.focus {
	case viewNav:
		if u.selectedNav < len(query.Views)-1 {
			return u.showView(u.selectedNav + 1)
		}
	case viewLists:
		if u.selectedList < len(u.sidebar.Lists)-1 {
			u.selectedList++
			return u.openList()
		}
	case viewTasks:
		if u.selectedTask < len(u.tasks)-1 {
			u.selectedTask++
			return u.loadDetail()
		}
	case viewLog:
		if u.detail != nil && u.selectedLog < len(u.detail.Logs)-1 {
			u.selectedLog++
		}
	}
	return nil
}

func (u *UI) moveUp(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	switch u.focus {
	case viewNav:
		if u.selectedNav > 0 {
			return u.showView(u.selectedNav - 1)
		}
	case viewLists:
		if u.selectedList > 0 {
			u.selectedList--
			return u.openList()
		}
	case viewTasks:
		if u.selectedTask > 0 {
			u.selectedTask--
			return u.loadDetail()
		}
	case viewLog:
		if u.selectedLog > 0 {
			u.selectedLog--
		}
	}
	return nil
}

func (u *UI) reload(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.status = ""
	return u.load()
}

func (u *UI) clearSearch(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.search = ""
	return u.reload(gui, nil)
}

func (u *UI) toggleIncludeCompleted(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.includeCompleted = !u.includeCompleted
	return u.reload(gui, nil)
}

func (u *UI) startSearch(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.searchActive = true
	return nil
}

func (u *UI) showSearch(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(30, maxX/2)
	height := 3
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewSearch, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Search tasks, lists and labels"
		view.Wrap = true
		view.Clear()
		fmt.Fprint(view, u.search)
	}
	view.Editable = true
	view.Editor = gocui.DefaultEditor
	_, _ = gui.SetCurrentView(viewSearch)
	return nil
}

func (u *UI) submitSearch(gui *gocui.Gui, view *gocui.View) error {
	u.search = strings.TrimSpace(view.Buffer())
	u.searchActive = false
	u.selectedTask = 0
	u.status = ""
	_ = gui.DeleteView(viewSearch)
	u.focus = viewTasks
	_, _ = gui.SetCurrentView(u.focus)
	return u.load()
}

func (u *UI) cancelSearch(gui *gocui.Gui, _ *gocui.View) error {
	u.searchActive = false
	_ = gui.DeleteView(viewSearch)
	_, _ = gui.SetCurrentView(u.focus)
	return nil
}

func (u *UI) toggleHelp(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() && !u.helpActive {
		return nil
	}
	u.helpActive = !u.helpActive
	return nil
}

func (u *UI) showHelp(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := 18
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewHelp, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Help"
		view.Wrap = true
	}
	view.Clear()
	fmt.Fprint(view, helpText())
	_, _ = gui.SetCurrentView(viewHelp)
	return nil
}

func (u *UI) closeHelp(gui *gocui.Gui, _ *gocui.View) error {
	u.helpActive = false
	_ = gui.DeleteView(viewHelp)
	_, _ = gui.SetCurrentView(u.focus)
	return nil
}

// add opens the list popup in the Lists pane and the task editor elsewhere.
func (u *UI) add(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.focus == viewLists {
		u.listCreateActive = true
		return nil
	}
	return u.addTask(gui, nil)
}

func (u *UI) addTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}

	var defaultDate model.Date
	if u.listID == "" && u.search == "" && u.view != query.ViewAll {
		defaultDate = model.DateOf(u.planner.Now().In(u.planner.Location()))
	}
	u.form = &formState{
		listID: u.listID,
		fields: buildFormFields(nil, defaultDate, u.planner.Location()),
	}
	u.formLabelIndex = 0
	return nil
}

func (u *UI) editTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTaskItem()
	if selected == nil {
		return nil
	}
	u.form = &formState{
		taskID: selected.ID,
		fields: buildFormFields(selected, model.Date{}, u.planner.Location()),
	}
	u.formLabelIndex = 0
	return nil
}

func (u *UI) showForm(gui *gocui.Gui) error {
	if u.form == nil {
		return nil
	}

	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := min(12, max(8, maxY/2))
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewForm, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	view.Title = "New Task"
	if u.form.taskID != "" {
		view.Title = "Edit Task"
	}
	view.Wrap = true
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.formEditor
	u.renderForm(view)
	_, _ = gui.SetCurrentView(viewForm)
	return nil
}

func (u *UI) submitFormNow(gui *gocui.Gui, _ *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if err := u.saveForm(); err != nil {
		u.status = err.Error()
		return nil
	}

	u.form = nil
	u.status = ""
	_ = gui.DeleteView(viewForm)
	_, _ = gui.SetCurrentView(u.focus)
	return u.load()
}

// saveForm creates or updates the task behind the open editor.
func (u *UI) saveForm() error {
	input, err := parseFormFields(u.form.fields, u.labels, u.planner.Location())
	if err != nil {
		return err
	}

	if u.form.taskID == "" {
		input.ListID = u.form.listID
		_, err = u.planner.CreateTask(u.ctx, input)
	} else {
		_, err = u.planner.UpdateTask(u.ctx, u.form.taskID, input)
	}
	return err
}

func (u *UI) cancelForm(gui *gocui.Gui, _ *gocui.View) error {
	u.form = nil
	_ = gui.DeleteView(viewForm)
	_, _ = gui.SetCurrentView(u.focus)
	return nil
}

func (u *UI) nextFormField(_ *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index < len(u.form.fields)-1 {
		u.form.index++
	}
	u.renderForm(view)
	return nil
}

func (u *UI) prevFormField(_ *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index > 0 {
		u.form.index--
	}
	u.renderForm(view)
	return nil
}

func (u *UI) renderForm(view *gocui.View) {
	if u.form == nil || view == nil {
		return
	}
	view.Clear()
	for index, field := range u.form.fields {
		prefix := "  "
		if index == u.form.index {
			prefix = "> "
		}
		value := field.Value
		if index == fieldLabels {
			if candidate := u.currentLabelOption(); candidate != "" {
				value = fmt.Sprintf("%s [pick: %s]", value, candidate)
			}
		}
		fmt.Fprintf(view, "%s%s: %s\n", prefix, field.Label, value)
	}
	current := u.form.fields[u.form.index]
	cursorX := len([]rune(current.Label+": ")) + len([]rune(current.Value)) + 2
	view.SetCursor(cursorX, u.form.index)
}

func (e *formEditor) Edit(view *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	ui := e.ui
	if ui == nil || ui.form == nil || view == nil {
		return false
	}
	field := &ui.form.fields[ui.form.index]

	switch ui.form.index {
	case fieldPriority:
		switch key {
		case gocui.KeyArrowRight, gocui.KeySpace:
			field.Value = cyclePriority(field.Value, 1)
		case gocui.KeyArrowLeft:
			field.Value = cyclePriority(field.Value, -1)
		}
		ui.renderForm(view)
		return true
	case fieldLabels:
		switch key {
		case gocui.KeyArrowRight:
			ui.formLabelIndex = min(ui.formLabelIndex+1, len(ui.labels)-1)
		case gocui.KeyArrowLeft:
			ui.formLabelIndex = max(ui.formLabelIndex-1, 0)
		case gocui.KeySpace:
			if candidate := ui.currentLabelOption(); candidate != "" {
				field.Value = toggleLabelName(field.Value, candidate)
			}
		case gocui.KeyBackspace, gocui.KeyBackspace2, gocui.KeyCtrlU:
			field.Value = ""
		}
		ui.renderForm(view)
		return true
	}

	switch key {
	case gocui.KeyBackspace, gocui.KeyBackspace2:
		runes := []rune(field.Value)
		if len(runes) > 0 {
			field.Value = string(runes[:len(runes)-1])
		}
	case gocui.KeySpace:
		field.Value += " "
	case gocui.KeyCtrlU:
		field.Value = ""
	}

	if ch != 0 && ch != '\n' && ch != '\r' && mod == 0 {
		field.Value += string(ch)
	}

	ui.renderForm(view)
	return true
}

func (u *UI) currentLabelOption() string {
	if len(u.labels) == 0 {
		return ""
	}
	u.formLabelIndex = min(max(u.formLabelIndex, 0), len(u.labels)-1)
	return u.labels[u.formLabelIndex].Name
}

func (u *UI) showListCreate(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(40, maxX/3)
	height := 3
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewListCreate, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "New List"
		view.Wrap = true
		view.Clear()
	}
	view.Editable = true
	view.Editor = gocui.DefaultEditor
	_, _ = gui.SetCurrentView(viewListCreate)
	return nil
}

func (u *UI) submitListCreate(gui *gocui.Gui, view *gocui.View) error {
	if !u.listCreateActive {
		return nil
	}
	if err := u.createList(view.Buffer()); err != nil {
		u.status = err.Error()
		return nil
	}
	return u.closeListCreate(gui)
}

func (u *UI) createList(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	_, err := u.planner.CreateList(u.ctx, db.ListInput{Name: name})
	return err
}

func (u *UI) cancelListCreate(gui *gocui.Gui, _ *gocui.View) error {
	if !u.listCreateActive {
		return nil
	}
	return u.closeListCreate(gui)
}

func (u *UI) closeListCreate(gui *gocui.Gui) error {
	u.listCreateActive = false
	_ = gui.DeleteView(viewListCreate)
	_, _ = gui.SetCurrentView(u.focus)
	return u.load()
}

// delete removes the selected list in the Lists pane and the selected task
// elsewhere.
func (u *UI) delete(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.focus == viewLists {
		return u.deleteList(gui, nil)
	}
	return u.deleteTask(gui, nil)
}

func (u *UI) deleteTask(_ *gocui.Gui, _ *gocui.View) error {
	selected := u.selectedTaskItem()
	if selected == nil {
		return nil
	}
	if err := u.planner.DeleteTask(u.ctx, selected.ID); err != nil {
		u.status = err.Error()
		return nil
	}
	u.status = ""
	return u.load()
}

func (u *UI) deleteList(_ *gocui.Gui, _ *gocui.View) error {
	if u.selectedList < 0 || u.selectedList >= len(u.sidebar.Lists) {
		return nil
	}
	list := u.sidebar.Lists[u.selectedList].List
	if err := u.planner.DeleteList(u.ctx, list.ID); err != nil {
		u.status = err.Error()
		return nil
	}
	if u.listID == list.ID {
		u.listID = ""
	}
	u.status = ""
	return u.load()
}

func (u *UI) toggleDone(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTaskItem()
	if selected == nil {
		return nil
	}
	if _, err := u.planner.ToggleTask(u.ctx, selected.ID); err != nil {
		u.status = err.Error()
		return nil
	}
	u.status = ""
	return u.load()
}

func (u *UI) inputActive() bool {
	return u.searchActive || u.form != nil || u.helpActive || u.listCreateActive
}

func (u *UI) quit(_ *gocui.Gui, _ *gocui.View) error {
	return gocui.ErrQuit
}

func helpText() string {
	return strings.Join([]string{
		"Navigation:",
		"  1 Today | 2 Week | 3 Upcoming | 4 All Tasks",
		"  tab cycle panes (views/lists/tasks/activity)",
		"  j/k or arrows move selection",
		"  enter open list (Lists pane)",
		"  mouse click to focus/select, wheel scrolls",
		"",
		"Actions:",
		"  a add task | e edit task | d delete task",
		"  x toggle completion | c show/hide completed",
		"  a add list | d delete list (Lists pane)",
		"  tab next field | enter save (form)",
		"  space/left/right cycle priority and labels (form)",
		"",
		"Search:",
		"  / search | g clear search",
		"",
		"Other:",
		"  r reload | ? help | esc/q close help | q quit",
	}, "\n")
}

func applyViewStyle(view *gocui.View, focused bool, highlight bool) {
	view.Frame = true
	view.Highlight = focused && highlight
	view.HighlightInactive = false
	view.SelBgColor = gocui.ColorBlue
	view.SelFgColor = gocui.ColorBlack
	view.InactiveViewSelBgColor = gocui.ColorDefault
	if focused {
		view.FrameColor = gocui.ColorCyan
		view.TitleColor = gocui.ColorCyan
	} else {
		view.FrameColor = gocui.ColorDefault
	}
}
