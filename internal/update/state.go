package update

import (
	"context"
	"log/slog"

	"github.com/xdoubleu/essentia/v2/pkg/logging"

	"github.com/sandeepkv93/aegis/internal/tasks"
)

const UIStateKey = "aegis_ui_state"

type uiState struct {
	Window       WindowID     `json:"window"`
	CalendarMode CalendarMode `json:"calendarMode"`
	TaskFilter   tasks.Status `json:"taskFilter"`
}

// restoreUIState reopens the window and views that were active when the
// shell last closed. A missing or unreadable state keeps the defaults.
func (m *Model) restoreUIState() {
	if m.deps.Store == nil {
		return
	}
	var st uiState
	found, err := m.deps.Store.Get(context.Background(), UIStateKey, &st)
	if err != nil {
		m.logger.Warn("ignoring stored ui state", logging.ErrAttr(err))
		return
	}
	if !found {
		return
	}
	switch st.CalendarMode {
	case CalendarModeDay, CalendarModeWeek, CalendarModeMonth:
		m.Calendar.Mode = st.CalendarMode
	}
	if st.TaskFilter != "" {
		m.Tasks.Filter.Status = st.TaskFilter
	}
	if _, ok := windowTitles[st.Window]; ok {
		if err := m.shell.FocusWindow(string(st.Window)); err != nil {
			m.logger.Warn("restore window", slog.String("window", string(st.Window)), logging.ErrAttr(err))
		}
	}
}

func (m *Model) saveUIState() {
	if m.deps.Store == nil {
		return
	}
	st := uiState{
		Window:       m.CurrentWindow(),
		CalendarMode: m.Calendar.Mode,
		TaskFilter:   m.Tasks.Filter.Status,
	}
	if err := m.deps.Store.Set(context.Background(), UIStateKey, st); err != nil {
		m.logger.Error("failed to persist ui state", logging.ErrAttr(err))
	}
}
