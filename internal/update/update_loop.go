package update

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/aegis/internal/views"
)

var windowOrder = []WindowID{WindowCalendar, WindowTasks, WindowInsights, WindowHelp}

func (m Model) Init() tea.Cmd {
	return m.waitForReminder()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	next.syncBubbleData()
	return next, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(typed)
	case tea.WindowSizeMsg:
		m.resize(typed.Width, typed.Height)
		return m, nil
	case ReminderMsg:
		m.handleReminder(typed.Notification)
		return m, m.waitForReminder()
	case RefreshMsg:
		m.refreshAll()
		return m, nil
	case FocusWindowMsg:
		if _, ok := windowTitles[typed.Window]; ok {
			m.focusWindow(typed.Window)
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		m.notify("Status", typed.Text, levelFromError(typed.IsError))
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
			m.notify("Error", typed.Err.Error(), "error")
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	keyStr := msg.String()
	if keyStr == "ctrl+c" {
		m.Quitting = true
		return m, tea.Quit
	}
	if m.Palette.Active {
		return m.handlePaletteKey(msg), nil
	}
	if m.repeatEditor.Active {
		return m.handleRepeatEditorKey(msg), nil
	}
	if m.Tasks.QuickAdd && m.CurrentWindow() == WindowTasks {
		return m.handleTasksKey(msg), nil
	}

	switch keyStr {
	case "/":
		return m.openPalette(), nil
	case m.Keys.Calendar:
		m.focusWindow(WindowCalendar)
		return m, nil
	case m.Keys.Tasks:
		m.focusWindow(WindowTasks)
		return m, nil
	case m.Keys.Insights:
		m.refreshInsights()
		m.focusWindow(WindowInsights)
		return m, nil
	case m.Keys.Help:
		if m.CurrentWindow() == WindowHelp {
			m.focusWindow(m.lastContentWindow())
		} else {
			m.focusWindow(WindowHelp)
		}
		return m, nil
	case m.Keys.Next:
		if _, ok := m.shell.FocusNext(); ok {
			m.saveUIState()
		}
		return m, nil
	case m.Keys.Quit:
		m.Quitting = true
		return m, tea.Quit
	}

	switch m.CurrentWindow() {
	case WindowCalendar:
		return m.handleCalendarKey(msg), nil
	case WindowTasks:
		return m.handleTasksKey(msg), nil
	case WindowInsights:
		return m.handleInsightsKey(msg), nil
	case WindowHelp:
		m.helpViewport, _ = m.helpViewport.Update(msg)
	}
	return m, nil
}

func (m *Model) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	bodyHeight := max(height-10, 6)
	m.calendarTable.SetHeight(bodyHeight - 6)
	m.taskList.SetSize(min(width-50, 80), bodyHeight-4)
	m.helpViewport.Width = min(width-50, 80)
	m.helpViewport.Height = bodyHeight
	m.xpProgress.Width = min(width/3, 40)
}

func (m Model) View() string {
	if m.Quitting {
		return ""
	}
	current := m.CurrentWindow()
	tabs := make([]views.Tab, 0, len(windowOrder))
	keys := map[WindowID]string{
		WindowCalendar: m.Keys.Calendar,
		WindowTasks:    m.Keys.Tasks,
		WindowInsights: m.Keys.Insights,
		WindowHelp:     m.Keys.Help,
	}
	for _, id := range windowOrder {
		if _, ok := m.shell.Window(string(id)); !ok {
			continue
		}
		tabs = append(tabs, views.Tab{Key: keys[id], Title: windowTitles[id], Active: id == current})
	}

	body := ""
	switch current {
	case WindowCalendar:
		body = m.renderCalendarView()
	case WindowTasks:
		body = m.renderTasksView()
	case WindowInsights:
		body = m.renderInsightsView()
	case WindowHelp:
		body = m.renderHelpWindow()
	}
	side := strings.TrimSpace(strings.Join([]string{
		m.renderCommandPalette(),
		m.renderRepeatEditorIfVisible(),
	}, "\n\n"))

	return views.RenderApp(views.AppData{
		Tabs:         tabs,
		Header:       fmt.Sprintf("aegis | %s | %s", m.now().Format("Mon Jan 2 15:04"), windowTitles[current]),
		Body:         body,
		Side:         side,
		StatusLine:   m.Status.Text,
		StatusError:  m.Status.IsError,
		Notification: m.renderNotificationsView(),
		Footer:       m.footer(),
	})
}
