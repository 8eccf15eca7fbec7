package update

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/aegis/internal/tasks"
)

const repeatPreviewCount = 5

var repeatCycle = []tasks.RepeatFrequency{
	tasks.RepeatDaily,
	tasks.RepeatWeekdays,
	tasks.RepeatWeekly,
	tasks.RepeatMonthly,
	tasks.RepeatLastDayOfMonth,
	tasks.RepeatAfterCompletion,
}

func (m *Model) openRepeatEditor() {
	t, ok := m.currentTask()
	if !ok {
		return
	}
	m.repeatEditor = RepeatEditorState{
		Active:       true,
		TaskID:       t.ID,
		Frequency:    tasks.RepeatDaily,
		IntervalText: "1",
	}
	if t.Repeat != nil {
		m.repeatEditor.Frequency = t.Repeat.Frequency
		m.repeatEditor.IntervalText = strconv.Itoa(max(t.Repeat.Interval, 1))
	}
	m.computeRepeatPreview()
}

// handleRepeatEditorKey: tab cycles the frequency, digits edit the interval,
// enter saves, "-" clears the repeat, esc cancels.
func (m Model) handleRepeatEditorKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "esc":
		m.repeatEditor.Active = false
		return m
	case "tab":
		next := repeatCycle[0]
		for i, f := range repeatCycle {
			if f == m.repeatEditor.Frequency {
				next = repeatCycle[(i+1)%len(repeatCycle)]
				break
			}
		}
		m.repeatEditor.Frequency = next
	case "backspace":
		if n := len(m.repeatEditor.IntervalText); n > 0 {
			m.repeatEditor.IntervalText = m.repeatEditor.IntervalText[:n-1]
		}
	case "-":
		m.saveRepeat(nil)
		return m
	case "enter":
		rep, err := m.editedRepeat()
		if err != nil {
			m.repeatEditor.Err = err.Error()
			return m
		}
		m.saveRepeat(&rep)
		return m
	default:
		if msg.Type == tea.KeyRunes {
			for _, r := range msg.Runes {
				if r >= '0' && r <= '9' {
					m.repeatEditor.IntervalText += string(r)
				}
			}
		}
	}
	m.computeRepeatPreview()
	return m
}

func (m Model) editedRepeat() (tasks.Repeat, error) {
	interval := 1
	if v := strings.TrimSpace(m.repeatEditor.IntervalText); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return tasks.Repeat{}, fmt.Errorf("%w: %q", tasks.ErrInvalidInterval, v)
		}
		interval = parsed
	}
	rep := tasks.Repeat{Frequency: m.repeatEditor.Frequency, Interval: interval}
	return rep, rep.Validate()
}

func (m *Model) computeRepeatPreview() {
	m.repeatEditor.Preview = nil
	rep, err := m.editedRepeat()
	if err != nil {
		m.repeatEditor.Err = err.Error()
		return
	}
	anchor := m.now()
	if t, err := m.deps.Tasks.Get(m.repeatEditor.TaskID); err == nil && t.DueDate != nil {
		anchor = *t.DueDate
	}
	dates, err := rep.Preview(anchor, repeatPreviewCount)
	if err != nil {
		m.repeatEditor.Err = err.Error()
		return
	}
	m.repeatEditor.Err = ""
	for _, d := range dates {
		m.repeatEditor.Preview = append(m.repeatEditor.Preview, d.Format("Mon 2006-01-02"))
	}
}

func (m *Model) saveRepeat(rep *tasks.Repeat) {
	updated, err := m.deps.Tasks.Update(context.Background(), m.repeatEditor.TaskID, tasks.Patch{Repeat: &rep})
	if err != nil {
		m.repeatEditor.Err = err.Error()
		return
	}
	m.repeatEditor.Active = false
	m.refreshAll()
	if rep == nil {
		m.Status = StatusBar{Text: fmt.Sprintf("repeat cleared: %s", updated.Title)}
		return
	}
	m.Status = StatusBar{Text: fmt.Sprintf("%s repeats %s", updated.Title, rep.Frequency)}
}
