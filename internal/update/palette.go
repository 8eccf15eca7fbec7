package update

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/aegis/internal/calendar"
	"github.com/sandeepkv93/aegis/internal/commands"
	"github.com/sandeepkv93/aegis/internal/tasks"
)

func (m Model) openPalette() Model {
	m.Palette.Active = true
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Focus()
	m.Status = StatusBar{Text: "command palette: enter to run, esc to close"}
	return m
}

func (m Model) closePalette() Model {
	m.Palette.Active = false
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Blur()
	return m
}

func (m Model) handlePaletteKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "esc":
		m = m.closePalette()
		m.Status = StatusBar{Text: "command palette closed"}
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		m = m.executePaletteCommand()
	default:
		m.commandInput, _ = m.commandInput.Update(msg)
		m.Palette.Input = m.commandInput.Value()
	}
	return m
}

func (m Model) executePaletteCommand() Model {
	raw := strings.TrimSpace(m.Palette.Input)
	cmd, err := commands.ParseIn(raw, m.deps.Location)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m.closePalette()
	}

	ctx := context.Background()
	res, err := commands.Execute(cmd, commands.Handlers{
		EventAdd: func(a commands.EventAddArgs) (commands.Result, error) {
			ev := calendar.Event{Title: a.Title, Start: a.Start, End: a.Start.Add(a.Duration)}
			for _, minutes := range a.Reminds {
				ev.Reminders = append(ev.Reminders, calendar.Reminder{Minutes: minutes})
			}
			if a.Repeat != "" {
				freq, err := calendar.ParseFrequency(a.Repeat)
				if err != nil {
					return commands.Result{}, err
				}
				ev.Recurrence = &calendar.Recurrence{Frequency: freq}
			}
			added, err := m.deps.Calendar.AddEvent(ctx, ev)
			if err != nil {
				return commands.Result{}, err
			}
			m.Calendar.FocusDate = dayStart(added.Start)
			return commands.Result{Message: fmt.Sprintf("added event %s (%s)", added.Title, shortID(added.ID))}, nil
		},
		EventDelete: func(a commands.EventDeleteArgs) (commands.Result, error) {
			ev, err := m.deps.Calendar.FindEvent(a.ID)
			if err != nil {
				return commands.Result{}, err
			}
			if err := m.deps.Calendar.DeleteEvent(ctx, ev.ID); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("deleted event %s", ev.Title)}, nil
		},
		TaskAdd: func(a commands.TaskAddArgs) (commands.Result, error) {
			t := tasks.Task{Title: a.Title, DueDate: a.Due}
			if a.Priority != "" {
				p, err := tasks.ParsePriority(a.Priority)
				if err != nil {
					return commands.Result{}, err
				}
				t.Priority = p
			}
			added, err := m.deps.Tasks.Add(ctx, t)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("added task %s (%s)", added.Title, shortID(added.ID))}, nil
		},
		TaskDone: func(a commands.TaskDoneArgs) (commands.Result, error) {
			t, err := m.deps.Tasks.Find(a.ID)
			if err != nil {
				return commands.Result{}, err
			}
			if t.Completed {
				return commands.Result{Message: fmt.Sprintf("%s is already done", t.Title)}, nil
			}
			if _, err := m.deps.Tasks.Toggle(ctx, t.ID); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("done: %s", t.Title)}, nil
		},
		Undo: func() (commands.Result, error) {
			if !m.deps.Calendar.Undo(ctx) {
				return commands.Result{Message: "nothing to undo"}, nil
			}
			return commands.Result{Message: "undone"}, nil
		},
		Redo: func() (commands.Result, error) {
			if !m.deps.Calendar.Redo(ctx) {
				return commands.Result{Message: "nothing to redo"}, nil
			}
			return commands.Result{Message: "redone"}, nil
		},
		Free: func(a commands.FreeArgs) (commands.Result, error) {
			m.Insights.FreeMinutes = a.Minutes
			slots := m.deps.Calendar.FindFreeTime(ctx, m.now(), time.Duration(a.Minutes)*time.Minute)
			return commands.Result{Message: fmt.Sprintf("%d free slot(s) of %d+ min today", len(slots), a.Minutes)}, nil
		},
		Show: func(a commands.ShowArgs) (commands.Result, error) {
			m.Calendar.Mode = CalendarMode(a.View)
			m.Calendar.Cursor = 0
			m.focusWindow(WindowCalendar)
			return commands.Result{Message: fmt.Sprintf("calendar mode: %s", a.View)}, nil
		},
	})
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		m.notify("Command failed", err.Error(), "error")
	} else {
		m.Status = StatusBar{Text: res.Message}
		m.refreshAll()
		if cmd.Type == commands.TypeFree {
			m.focusWindow(WindowInsights)
		}
	}
	return m.closePalette()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
