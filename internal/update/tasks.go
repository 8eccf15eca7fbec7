package update

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/aegis/internal/tasks"
)

var taskStatusCycle = []tasks.Status{
	tasks.StatusActive,
	tasks.StatusToday,
	tasks.StatusOverdue,
	tasks.StatusCompleted,
	tasks.StatusAll,
}

func (m Model) handleTasksKey(msg tea.KeyMsg) Model {
	if m.Tasks.QuickAdd {
		return m.handleQuickAddKey(msg)
	}
	switch msg.String() {
	case "up", "k":
		if m.Tasks.Cursor > 0 {
			m.Tasks.Cursor--
		}
		m.syncSelectedTask()
	case "down", "j":
		if m.Tasks.Cursor < len(m.Tasks.Items)-1 {
			m.Tasks.Cursor++
		}
		m.syncSelectedTask()
	case " ", "enter":
		m.toggleSelectedTask()
	case "a":
		m.Tasks.QuickAdd = true
		m.quickAddInput.SetValue("")
		m.quickAddInput.Focus()
		m.Status = StatusBar{Text: "quick add: type a title, enter to save"}
	case "x", "delete":
		m.deleteSelectedTask()
	case "f":
		m.cycleTaskFilter()
	case "c":
		n := m.deps.Tasks.ClearCompleted(context.Background())
		m.refreshAll()
		m.Status = StatusBar{Text: fmt.Sprintf("cleared %d completed task(s)", n)}
	case "u":
		if err := m.deps.Tasks.Undo(context.Background()); err != nil {
			m.Status = StatusBar{Text: err.Error(), IsError: !errors.Is(err, tasks.ErrNothingToUndo)}
			return m
		}
		m.refreshAll()
		m.Status = StatusBar{Text: "task change undone"}
	case "R":
		m.openRepeatEditor()
	}
	return m
}

func (m Model) handleQuickAddKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "esc":
		m.Tasks.QuickAdd = false
		m.quickAddInput.Blur()
		m.Status = StatusBar{Text: "quick add cancelled"}
	case "enter":
		title := strings.TrimSpace(m.quickAddInput.Value())
		m.Tasks.QuickAdd = false
		m.quickAddInput.Blur()
		m.quickAddInput.SetValue("")
		if title == "" {
			return m
		}
		task, err := m.deps.Tasks.Add(context.Background(), tasks.Task{Title: title})
		if err != nil {
			m.Status = StatusBar{Text: err.Error(), IsError: true}
			return m
		}
		m.refreshAll()
		m.Status = StatusBar{Text: fmt.Sprintf("added task: %s", task.Title)}
	default:
		m.quickAddInput, _ = m.quickAddInput.Update(msg)
	}
	return m
}

func (m *Model) cycleTaskFilter() {
	next := taskStatusCycle[0]
	for i, s := range taskStatusCycle {
		if s == m.Tasks.Filter.Status {
			next = taskStatusCycle[(i+1)%len(taskStatusCycle)]
			break
		}
	}
	m.Tasks.Filter.Status = next
	m.Tasks.Cursor = 0
	m.refreshTasks()
	m.saveUIState()
	m.Status = StatusBar{Text: fmt.Sprintf("task filter: %s", next)}
}

func (m *Model) refreshTasks() {
	if m.deps.Tasks == nil {
		return
	}
	m.Tasks.Items = m.deps.Tasks.List(m.Tasks.Filter)
	if m.Tasks.Cursor >= len(m.Tasks.Items) {
		m.Tasks.Cursor = max(len(m.Tasks.Items)-1, 0)
	}
	m.syncSelectedTask()
}

func (m *Model) syncSelectedTask() {
	if t, ok := m.currentTask(); ok {
		m.Tasks.SelectedID = t.ID
		return
	}
	m.Tasks.SelectedID = ""
}

func (m Model) currentTask() (tasks.Task, bool) {
	if m.Tasks.Cursor < 0 || m.Tasks.Cursor >= len(m.Tasks.Items) {
		return tasks.Task{}, false
	}
	return m.Tasks.Items[m.Tasks.Cursor], true
}

func (m *Model) toggleSelectedTask() {
	t, ok := m.currentTask()
	if !ok {
		return
	}
	before := m.deps.Tasks.Meta()
	updated, err := m.deps.Tasks.Toggle(context.Background(), t.ID)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return
	}
	m.refreshAll()
	if !updated.Completed {
		m.Status = StatusBar{Text: fmt.Sprintf("reopened: %s", updated.Title)}
		return
	}
	after := m.deps.Tasks.Meta()
	msg := fmt.Sprintf("done: %s (+%d XP)", updated.Title, after.XP-before.XP)
	if after.Level > before.Level {
		msg += fmt.Sprintf(", level %d reached", after.Level)
		m.notify("Level up", fmt.Sprintf("You reached level %d", after.Level), "info")
	}
	m.Status = StatusBar{Text: msg}
}

func (m *Model) deleteSelectedTask() {
	t, ok := m.currentTask()
	if !ok {
		return
	}
	if err := m.deps.Tasks.Delete(context.Background(), t.ID); err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return
	}
	m.refreshAll()
	m.Status = StatusBar{Text: fmt.Sprintf("deleted task: %s", t.Title)}
}

func taskLine(t tasks.Task) string {
	box := "[ ]"
	if t.Completed {
		box = "[x]"
	}
	return fmt.Sprintf("%s %s %s", box, priorityBadge(t.Priority), t.Title)
}

func taskDetail(t tasks.Task) string {
	parts := make([]string, 0, 4)
	if t.DueDate != nil {
		parts = append(parts, "due "+t.DueDate.Format("2006-01-02"))
	}
	if t.Repeat != nil {
		parts = append(parts, "repeats "+string(t.Repeat.Frequency))
	}
	if done, total := t.SubtaskProgress(); total > 0 {
		parts = append(parts, fmt.Sprintf("%d/%d subtasks", done, total))
	}
	if len(t.Tags) > 0 {
		parts = append(parts, "#"+strings.Join(t.Tags, " #"))
	}
	return strings.Join(parts, " · ")
}

func priorityBadge(p tasks.Priority) string {
	switch p {
	case tasks.PriorityHigh:
		return "!!!"
	case tasks.PriorityMedium:
		return "!! "
	default:
		return "!  "
	}
}
