package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type AgendaItemData struct {
	ID       string
	Date     string
	Time     string
	Title    string
	Location string
	Source   string
	Color    string
}

type CalendarPanelData struct {
	Mode      string
	FocusDate string
	Range     string
	TableView string
	Selected  *AgendaItemData
}

type TaskPanelData struct {
	Filter       string
	ListView     string
	QuickAdd     bool
	QuickAddView string
	Level        int
	XP           int
	Streak       int
	ProgressView string
}

type ConflictData struct {
	First   string
	Second  string
	Overlap string
}

type InsightsPanelData struct {
	Window       string
	EventCount   int
	TotalBusy    string
	BusiestDay   string
	Conflicts    []ConflictData
	FreeMinutes  int
	FreeSlots    []string
	Suggestion   string
	Confidence   string
	TaskTotal    int
	TaskDone     int
	TaskOverdue  int
	Completion   int
	BestStreak   int
	ProgressView string
}

type HelpPanelData struct {
	Window   string
	Markdown string
	HelpView string
}

type RepeatEditorData struct {
	Active       bool
	TaskTitle    string
	Frequency    string
	IntervalText string
	ErrorText    string
	Preview      []string
}

func RenderCalendarPanel(data CalendarPanelData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s view | %s\n", data.Mode, data.Range)
	b.WriteString(mutedStyle.Render("[d/w/m] mode [h/l] period [t] today [x] delete [u/U] undo/redo") + "\n")
	b.WriteString(data.TableView)
	if data.Selected == nil {
		b.WriteString("\n(agenda empty)")
		return b.String()
	}
	sel := data.Selected
	title := sel.Title
	if sel.Color != "" {
		title = lipgloss.NewStyle().Foreground(lipgloss.Color(sel.Color)).Render(title)
	}
	fmt.Fprintf(&b, "\n\n%s\n%s %s", title, sel.Date, sel.Time)
	if sel.Location != "" {
		fmt.Fprintf(&b, " @ %s", sel.Location)
	}
	fmt.Fprintf(&b, "\nsource: %s", sel.Source)
	if sel.ID != "" {
		fmt.Fprintf(&b, " | id: %s", sel.ID)
	}
	return b.String()
}

func RenderTaskPanel(data TaskPanelData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "level %d | %d XP | streak %d\n%s\n", data.Level, data.XP, data.Streak, data.ProgressView)
	fmt.Fprintf(&b, "filter: %s\n", data.Filter)
	b.WriteString(mutedStyle.Render("[space] toggle [a] add [x] delete [f] filter [c] clear done [R] repeat [u] undo") + "\n")
	if data.QuickAdd {
		b.WriteString(data.QuickAddView + "\n")
	}
	b.WriteString(data.ListView)
	return strings.TrimRight(b.String(), "\n")
}

func RenderInsightsPanel(data InsightsPanelData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "schedule %s\n", data.Window)
	fmt.Fprintf(&b, "events: %d | busy: %s", data.EventCount, data.TotalBusy)
	if data.BusiestDay != "" {
		fmt.Fprintf(&b, " | busiest: %s", data.BusiestDay)
	}
	b.WriteString("\n")
	if len(data.Conflicts) == 0 {
		b.WriteString("conflicts: none\n")
	} else {
		b.WriteString(errorStyle.Render(fmt.Sprintf("conflicts: %d", len(data.Conflicts))) + "\n")
		for _, c := range data.Conflicts {
			fmt.Fprintf(&b, "- %s / %s (%s)\n", c.First, c.Second, c.Overlap)
		}
	}
	fmt.Fprintf(&b, "\nfree today (%d+ min):\n", data.FreeMinutes)
	if len(data.FreeSlots) == 0 {
		b.WriteString("- none\n")
	}
	for _, s := range data.FreeSlots {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	fmt.Fprintf(&b, "suggested: %s [%s]\n", data.Suggestion, data.Confidence)
	fmt.Fprintf(&b, "\ntasks: %d total, %d done, %d overdue\n", data.TaskTotal, data.TaskDone, data.TaskOverdue)
	fmt.Fprintf(&b, "completion: %d%% | best streak: %d\n", data.Completion, data.BestStreak)
	b.WriteString(data.ProgressView)
	return b.String()
}

func RenderHelpPanel(data HelpPanelData) string {
	var b strings.Builder
	if md := RenderMarkdown(data.Markdown); md != "" {
		b.WriteString(md + "\n\n")
	}
	fmt.Fprintf(&b, "%s keys:\n%s", strings.ToLower(data.Window), data.HelpView)
	return b.String()
}

func RenderCommandPalette(active bool, inputView string) string {
	if !active {
		return ""
	}
	return "command:\n" + inputView + "\n" + mutedStyle.Render("event add|del, task add|done, undo, redo, free, show")
}

func RenderNotification(level, title, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	line := fmt.Sprintf("[%s] %s: %s", strings.ToUpper(level), title, body)
	if level == "error" {
		return errorStyle.Render(line)
	}
	return line
}

func RenderRepeatEditor(data RepeatEditorData) string {
	if !data.Active {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "repeat: %s\n", data.TaskTitle)
	b.WriteString(mutedStyle.Render("[tab] frequency [0-9] interval [enter] save [-] clear [esc] close") + "\n")
	fmt.Fprintf(&b, "frequency: %s\ninterval: %s\n", data.Frequency, data.IntervalText)
	if data.ErrorText != "" {
		b.WriteString(errorStyle.Render("error: "+data.ErrorText) + "\n")
	}
	if len(data.Preview) > 0 {
		b.WriteString("next:\n")
		for _, p := range data.Preview {
			b.WriteString("- " + p + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
