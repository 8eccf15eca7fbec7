package update

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/aegis/internal/calendar"
)

func (m Model) handleCalendarKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "d":
		m.setCalendarMode(CalendarModeDay)
	case "w":
		m.setCalendarMode(CalendarModeWeek)
	case "m":
		m.setCalendarMode(CalendarModeMonth)
	case "t":
		m.Calendar.FocusDate = dayStart(m.now())
		m.refreshCalendar()
		m.Status = StatusBar{Text: "calendar focus: today"}
	case "h", "left":
		m.shiftCalendarFocus(-1)
	case "l", "right":
		m.shiftCalendarFocus(1)
	case "up", "k":
		if m.Calendar.Cursor > 0 {
			m.Calendar.Cursor--
		}
	case "down", "j":
		if m.Calendar.Cursor < len(m.Calendar.Items)-1 {
			m.Calendar.Cursor++
		}
	case "x", "delete":
		m.deleteSelectedEvent()
	case "u":
		m.undoCalendar()
	case "U":
		m.redoCalendar()
	}
	return m
}

func (m *Model) setCalendarMode(mode CalendarMode) {
	m.Calendar.Mode = mode
	m.Calendar.Cursor = 0
	m.refreshCalendar()
	m.saveUIState()
	m.Status = StatusBar{Text: fmt.Sprintf("calendar mode: %s", mode)}
}

func (m *Model) shiftCalendarFocus(delta int) {
	switch m.Calendar.Mode {
	case CalendarModeDay:
		m.Calendar.FocusDate = m.Calendar.FocusDate.AddDate(0, 0, delta)
	case CalendarModeMonth:
		m.Calendar.FocusDate = m.Calendar.FocusDate.AddDate(0, delta, 0)
	default:
		m.Calendar.FocusDate = m.Calendar.FocusDate.AddDate(0, 0, 7*delta)
	}
	m.Calendar.Cursor = 0
	m.refreshCalendar()
	m.Status = StatusBar{Text: fmt.Sprintf("calendar focus: %s", m.Calendar.FocusDate.Format("2006-01-02"))}
}

// calendarRange is the span shown for the current mode.
func (m Model) calendarRange() (time.Time, time.Time) {
	day := m.Calendar.FocusDate
	switch m.Calendar.Mode {
	case CalendarModeDay:
		start := dayStart(day)
		return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	case CalendarModeMonth:
		return calendar.MonthBounds(day)
	default:
		return m.deps.Calendar.WeekBounds(day)
	}
}

func (m *Model) refreshCalendar() {
	if m.deps.Calendar == nil {
		return
	}
	from, to := m.calendarRange()
	m.Calendar.Items = m.deps.Calendar.Agenda(context.Background(), from, to)
	if m.Calendar.Cursor >= len(m.Calendar.Items) {
		m.Calendar.Cursor = max(len(m.Calendar.Items)-1, 0)
	}
}

func (m Model) currentOccurrence() (calendar.Occurrence, bool) {
	if m.Calendar.Cursor < 0 || m.Calendar.Cursor >= len(m.Calendar.Items) {
		return calendar.Occurrence{}, false
	}
	return m.Calendar.Items[m.Calendar.Cursor], true
}

func (m *Model) deleteSelectedEvent() {
	occ, ok := m.currentOccurrence()
	if !ok {
		return
	}
	if occ.Source != calendar.SourceCalendar {
		m.Status = StatusBar{Text: fmt.Sprintf("%s items are read-only here", occ.Source), IsError: true}
		return
	}
	if err := m.deps.Calendar.DeleteEvent(context.Background(), occ.EventID); err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return
	}
	m.refreshAll()
	m.Status = StatusBar{Text: fmt.Sprintf("deleted %s", occ.Title)}
}

func (m *Model) undoCalendar() {
	if !m.deps.Calendar.Undo(context.Background()) {
		m.Status = StatusBar{Text: "nothing to undo"}
		return
	}
	m.refreshAll()
	m.Status = StatusBar{Text: "undone"}
}

func (m *Model) redoCalendar() {
	if !m.deps.Calendar.Redo(context.Background()) {
		m.Status = StatusBar{Text: "nothing to redo"}
		return
	}
	m.refreshAll()
	m.Status = StatusBar{Text: "redone"}
}

// refreshAll reloads every window from the services.
func (m *Model) refreshAll() {
	m.refreshCalendar()
	m.refreshTasks()
	m.refreshInsights()
}
