package update

import (
	"fmt"
	"strings"

	"github.com/xdoubleu/essentia/v2/pkg/logging"

	"github.com/sandeepkv93/aegis/internal/views"
)

const maxNotifications = 40

func (m Model) renderCalendarView() string {
	from, to := m.calendarRange()
	data := views.CalendarPanelData{
		Mode:      string(m.Calendar.Mode),
		FocusDate: m.Calendar.FocusDate.Format("2006-01-02"),
		Range:     fmt.Sprintf("%s - %s", from.Format("Mon Jan 2"), to.Format("Mon Jan 2 2006")),
		TableView: m.calendarTable.View(),
	}
	if occ, ok := m.currentOccurrence(); ok {
		data.Selected = &views.AgendaItemData{
			Date:     occ.Start.Format("Mon 2006-01-02"),
			Time:     occurrenceTime(occ),
			Title:    occ.Title,
			Location: occ.Location,
			Source:   occ.Source,
			Color:    occ.Color,
			ID:       shortID(occ.EventID),
		}
	}
	return views.RenderCalendarPanel(data)
}

func (m Model) renderTasksView() string {
	meta := m.Insights.Meta
	return views.RenderTaskPanel(views.TaskPanelData{
		Filter:       string(m.Tasks.Filter.Status),
		ListView:     m.taskList.View(),
		QuickAdd:     m.Tasks.QuickAdd,
		QuickAddView: m.quickAddInput.View(),
		Level:        meta.Level,
		XP:           meta.XP,
		Streak:       meta.Streak,
		ProgressView: m.xpProgress.ViewAs(meta.LevelProgress()),
	})
}

func (m Model) renderInsightsView() string {
	a := m.Insights.Analysis
	data := views.InsightsPanelData{
		Window:       fmt.Sprintf("%s - %s", a.From.Format("Jan 2"), a.To.Format("Jan 2")),
		EventCount:   a.EventCount,
		TotalBusy:    a.TotalBusy.String(),
		FreeMinutes:  m.Insights.FreeMinutes,
		Suggestion:   fmt.Sprintf("%s-%s (%s)", m.Insights.Suggestion.Start.Format("Mon 15:04"), m.Insights.Suggestion.End.Format("15:04"), m.Insights.Suggestion.Reason),
		Confidence:   string(m.Insights.Suggestion.Confidence),
		TaskTotal:    m.Insights.Stats.Total,
		TaskDone:     m.Insights.Stats.Completed,
		TaskOverdue:  m.Insights.Stats.Overdue,
		Completion:   int(m.Insights.Stats.CompletionRate * 100),
		BestStreak:   m.Insights.Meta.BestStreak,
		ProgressView: m.xpProgress.ViewAs(m.Insights.Stats.CompletionRate),
	}
	if a.BusiestCount > 0 {
		data.BusiestDay = fmt.Sprintf("%s (%d)", a.BusiestDay.Format("Mon Jan 2"), a.BusiestCount)
	}
	for _, c := range a.Conflicts {
		data.Conflicts = append(data.Conflicts, views.ConflictData{
			First:   c.First.Title,
			Second:  c.Second.Title,
			Overlap: c.Overlap.String(),
		})
	}
	for _, g := range m.Insights.FreeSlots {
		data.FreeSlots = append(data.FreeSlots, fmt.Sprintf("%s-%s (%s)", g.Start.Format("15:04"), g.End.Format("15:04"), g.Duration))
	}
	return views.RenderInsightsPanel(data)
}

func (m Model) renderHelpWindow() string {
	vp := m.helpViewport
	vp.SetContent(m.renderHelpView())
	return vp.View()
}

func (m Model) renderCommandPalette() string {
	return views.RenderCommandPalette(m.Palette.Active, m.commandInput.View())
}

func (m Model) renderNotificationsView() string {
	if len(m.Notifications) == 0 {
		return ""
	}
	n := m.Notifications[len(m.Notifications)-1]
	return views.RenderNotification(n.Level, n.Title, n.Body)
}

func (m Model) renderRepeatEditorIfVisible() string {
	title := ""
	if t, err := m.deps.Tasks.Get(m.repeatEditor.TaskID); err == nil {
		title = t.Title
	}
	return views.RenderRepeatEditor(views.RepeatEditorData{
		Active:       m.repeatEditor.Active,
		TaskTitle:    title,
		Frequency:    string(m.repeatEditor.Frequency),
		IntervalText: m.repeatEditor.IntervalText,
		ErrorText:    m.repeatEditor.Err,
		Preview:      m.repeatEditor.Preview,
	})
}

// notify records an in-app notification and mirrors it to the desktop when
// enabled.
func (m *Model) notify(title, body, level string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	n := Notification{Title: title, Body: body, Level: level, At: m.now()}
	m.Notifications = append(m.Notifications, n)
	if len(m.Notifications) > maxNotifications {
		m.Notifications = m.Notifications[len(m.Notifications)-maxNotifications:]
	}
	if m.deps.Desktop {
		if err := m.notifier.Send(n); err != nil {
			m.logger.Warn("desktop notification failed", logging.ErrAttr(err))
		}
	}
}
