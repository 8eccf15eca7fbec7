package update

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/aegis/internal/calendar"
)

const notificationBuffer = 32

// NotificationFeed carries reminder notifications from the scheduler
// goroutines into the bubbletea loop.
type NotificationFeed struct {
	ch     chan calendar.Notification
	logger *slog.Logger
}

func NewNotificationFeed(logger *slog.Logger) *NotificationFeed {
	return &NotificationFeed{ch: make(chan calendar.Notification, notificationBuffer), logger: logger}
}

// Notify never blocks; when the UI falls behind the notification is dropped
// and logged.
func (f *NotificationFeed) Notify(n calendar.Notification) {
	select {
	case f.ch <- n:
	default:
		if f.logger != nil {
			f.logger.Warn("notification dropped", slog.String("event", n.EventID), slog.Int("minutes", n.Minutes))
		}
	}
}

func (f *NotificationFeed) C() <-chan calendar.Notification {
	return f.ch
}

func waitForNotificationCmd(ch <-chan calendar.Notification) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return ReminderMsg{Notification: n}
	}
}

func (m Model) waitForReminder() tea.Cmd {
	if m.deps.Notifications == nil {
		return nil
	}
	return waitForNotificationCmd(m.deps.Notifications.C())
}

func (m *Model) handleReminder(n calendar.Notification) {
	body := n.Message()
	m.Status = StatusBar{Text: "reminder: " + body}
	level := "info"
	if n.Sound {
		level = "alert"
	}
	m.notify("Reminder", body, level)
	m.refreshCalendar()
}
