package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/sandeepkv93/aegis/internal/calendar"
)

func (m *Model) initBubbleComponents() {
	m.calendarTable = table.New(
		table.WithColumns([]table.Column{
			{Title: "Date", Width: 10},
			{Title: "Time", Width: 11},
			{Title: "Title", Width: 24},
			{Title: "Src", Width: 8},
		}),
		table.WithHeight(12),
	)
	styles := table.DefaultStyles()
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	m.calendarTable.SetStyles(styles)

	delegate := list.NewDefaultDelegate()
	m.taskList = list.New(nil, delegate, 54, 14)
	m.taskList.SetShowHelp(false)
	m.taskList.SetShowStatusBar(false)
	m.taskList.SetFilteringEnabled(false)
	m.taskList.Title = "Tasks"

	m.quickAddInput = textinput.New()
	m.quickAddInput.Placeholder = "new task title"
	m.quickAddInput.CharLimit = 200

	m.commandInput = textinput.New()
	m.commandInput.Placeholder = "event add Lunch @ 2026-01-02 12:00"
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 256

	m.xpProgress = progress.New(progress.WithDefaultGradient(), progress.WithWidth(30))
	m.helpModel = help.New()
	m.helpViewport = viewport.New(56, 16)
}

// syncBubbleData copies model state into the bubble components.
func (m *Model) syncBubbleData() {
	rows := make([]table.Row, 0, len(m.Calendar.Items))
	for _, occ := range m.Calendar.Items {
		rows = append(rows, table.Row{
			occ.Start.Format("2006-01-02"),
			occurrenceTime(occ),
			occ.Title,
			occ.Source,
		})
	}
	m.calendarTable.SetRows(rows)
	if m.Calendar.Cursor >= 0 && m.Calendar.Cursor < len(rows) {
		m.calendarTable.SetCursor(m.Calendar.Cursor)
	}

	items := make([]list.Item, 0, len(m.Tasks.Items))
	for _, t := range m.Tasks.Items {
		items = append(items, listItem{title: taskLine(t), description: taskDetail(t)})
	}
	m.taskList.SetItems(items)
	if m.Tasks.Cursor >= 0 && m.Tasks.Cursor < len(items) {
		m.taskList.Select(m.Tasks.Cursor)
	}
}

func occurrenceTime(occ calendar.Occurrence) string {
	if occ.AllDay {
		return "all day"
	}
	return fmt.Sprintf("%s-%s", occ.Start.Format("15:04"), occ.End.Format("15:04"))
}
