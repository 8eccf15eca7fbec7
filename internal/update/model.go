package update

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/xdoubleu/essentia/v2/pkg/logging"

	"github.com/sandeepkv93/aegis/internal/calendar"
	"github.com/sandeepkv93/aegis/internal/shell"
	"github.com/sandeepkv93/aegis/internal/storage"
	"github.com/sandeepkv93/aegis/internal/tasks"
)

type WindowID string

const (
	WindowCalendar WindowID = "calendar"
	WindowTasks    WindowID = "tasks"
	WindowInsights WindowID = "insights"
	WindowHelp     WindowID = "help"
)

var windowTitles = map[WindowID]string{
	WindowCalendar: "Calendar",
	WindowTasks:    "Tasks",
	WindowInsights: "Insights",
	WindowHelp:     "Help",
}

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Calendar string
	Tasks    string
	Insights string
	Help     string
	Next     string
	Quit     string
}

// Deps are the services the shell drives. Calendar and Tasks are required.
type Deps struct {
	Calendar      *calendar.Engine
	Tasks         *tasks.App
	Notifications *NotificationFeed
	Store         storage.Store
	Notifier      DesktopNotifier
	Desktop       bool
	Logger        *slog.Logger
	Location      *time.Location
	Now           func() time.Time
}

type CalendarMode string

const (
	CalendarModeDay   CalendarMode = "day"
	CalendarModeWeek  CalendarMode = "week"
	CalendarModeMonth CalendarMode = "month"
)

type CalendarState struct {
	Mode      CalendarMode
	FocusDate time.Time
	Items     []calendar.Occurrence
	Cursor    int
}

type TaskListState struct {
	Filter     tasks.Filter
	Items      []tasks.Task
	Cursor     int
	QuickAdd   bool
	SelectedID string
}

type InsightsState struct {
	Analysis    calendar.Analysis
	Suggestion  calendar.Suggestion
	FreeSlots   []calendar.Gap
	FreeMinutes int
	Meta        tasks.Meta
	Stats       tasks.Stats
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

type RepeatEditorState struct {
	Active       bool
	TaskID       string
	Frequency    tasks.RepeatFrequency
	IntervalText string
	Preview      []string
	Err          string
}

type Model struct {
	deps     Deps
	shell    *shell.Manager
	logger   *slog.Logger
	notifier DesktopNotifier

	Calendar      CalendarState
	Tasks         TaskListState
	Insights      InsightsState
	Palette       CommandPaletteState
	Notifications []Notification
	Status        StatusBar
	Keys          GlobalKeyMap
	Quitting      bool
	LastError     error

	repeatEditor RepeatEditorState

	// bubble components
	calendarTable table.Model
	taskList      list.Model
	quickAddInput textinput.Model
	commandInput  textinput.Model
	xpProgress    progress.Model
	helpModel     help.Model
	helpViewport  viewport.Model
}

type listItem struct {
	title       string
	description string
}

func (i listItem) FilterValue() string { return i.title + " " + i.description }
func (i listItem) Title() string       { return i.title }
func (i listItem) Description() string { return i.description }

type Notification struct {
	Title string
	Body  string
	Level string
	At    time.Time
}

type DesktopNotifier interface {
	Send(Notification) error
}

type NoopDesktopNotifier struct{}

func (NoopDesktopNotifier) Send(Notification) error { return nil }

type ExecDesktopNotifier struct{}

func (ExecDesktopNotifier) Send(n Notification) error {
	switch runtime.GOOS {
	case "linux":
		return exec.Command("notify-send", n.Title, n.Body).Run()
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(n.Body), escapeAppleScript(n.Title))
		return exec.Command("osascript", "-e", script).Run()
	default:
		return nil
	}
}

type FocusWindowMsg struct {
	Window WindowID
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

// RefreshMsg reloads every window from the services, e.g. after a
// background feed refresh.
type RefreshMsg struct{}

type ReminderMsg struct {
	Notification calendar.Notification
}

func NewModel(deps Deps) Model {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NoopDesktopNotifier{}
	}
	m := Model{
		deps:     deps,
		shell:    shell.NewManager(),
		logger:   logger,
		notifier: notifier,
		Calendar: CalendarState{
			Mode:      CalendarModeWeek,
			FocusDate: dayStart(deps.Now().In(deps.Location)),
		},
		Tasks: TaskListState{
			Filter: tasks.Filter{Status: tasks.StatusActive},
		},
		Insights: InsightsState{FreeMinutes: 60},
		Keys: GlobalKeyMap{
			Calendar: "1",
			Tasks:    "2",
			Insights: "3",
			Help:     "?",
			Next:     "tab",
			Quit:     "q",
		},
		repeatEditor: RepeatEditorState{
			Frequency:    tasks.RepeatDaily,
			IntervalText: "1",
		},
	}
	// creation order sets the tab cycle: calendar, tasks, insights, help
	for _, id := range []WindowID{WindowTasks, WindowInsights, WindowHelp, WindowCalendar} {
		if _, err := m.shell.CreateWindow(string(id), shell.Options{Title: windowTitles[id]}); err != nil {
			logger.Error("failed to open window", slog.String("window", string(id)), logging.ErrAttr(err))
		}
	}
	m.restoreUIState()
	m.initBubbleComponents()
	m.refreshAll()
	return m
}

// CurrentWindow is the focused shell window.
func (m Model) CurrentWindow() WindowID {
	if w, ok := m.shell.Focused(); ok {
		return WindowID(w.ID)
	}
	return WindowCalendar
}

func (m *Model) focusWindow(id WindowID) {
	if err := m.shell.FocusWindow(string(id)); err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return
	}
	m.saveUIState()
}

func (m Model) now() time.Time {
	return m.deps.Now().In(m.deps.Location)
}

func dayStart(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}
