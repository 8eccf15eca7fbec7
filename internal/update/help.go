package update

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/sandeepkv93/aegis/internal/views"
)

type KeyBinding struct {
	Key    string
	Action string
}

type helpKeyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k helpKeyMap) FullHelp() [][]key.Binding { return k.full }

const helpMarkdown = `# aegis

Calendar, tasks and schedule insights in one terminal.

Open the command palette with **/** and type, for example:

- ` + "`event add Lunch @ 2026-01-02 12:00 for 45m remind 10`" + `
- ` + "`task add Pay rent !high due 2026-01-31`" + `
- ` + "`free 90`" + ` lists today's gaps of at least 90 minutes
- ` + "`show month`" + `
`

func (m Model) renderHelpView() string {
	window := m.lastContentWindow()
	global := m.bindingsFor(m.globalBindings())
	keys := helpKeyMap{
		short: global,
		full:  [][]key.Binding{global, m.bindingsFor(m.windowBindings(window))},
	}
	return views.RenderHelpPanel(views.HelpPanelData{
		Window:   windowTitles[window],
		Markdown: helpMarkdown,
		HelpView: m.helpModel.FullHelpView(keys.FullHelp()),
	})
}

// lastContentWindow is the window under the help window in z-order.
func (m Model) lastContentWindow() WindowID {
	wins := m.shell.Windows()
	for i := len(wins) - 1; i >= 0; i-- {
		if id := WindowID(wins[i].ID); id != WindowHelp {
			return id
		}
	}
	return WindowCalendar
}

func (m Model) globalBindings() []KeyBinding {
	return []KeyBinding{
		{Key: m.Keys.Calendar, Action: "calendar"},
		{Key: m.Keys.Tasks, Action: "tasks"},
		{Key: m.Keys.Insights, Action: "insights"},
		{Key: m.Keys.Next, Action: "next window"},
		{Key: "/", Action: "command palette"},
		{Key: m.Keys.Help, Action: "help"},
		{Key: m.Keys.Quit, Action: "quit"},
	}
}

func (m Model) windowBindings(id WindowID) []KeyBinding {
	switch id {
	case WindowCalendar:
		return []KeyBinding{
			{Key: "d/w/m", Action: "day/week/month"},
			{Key: "h/l", Action: "previous/next period"},
			{Key: "t", Action: "today"},
			{Key: "j/k", Action: "move cursor"},
			{Key: "x", Action: "delete event"},
			{Key: "u/U", Action: "undo/redo"},
		}
	case WindowTasks:
		return []KeyBinding{
			{Key: "j/k", Action: "move cursor"},
			{Key: "space", Action: "toggle done"},
			{Key: "a", Action: "quick add"},
			{Key: "x", Action: "delete"},
			{Key: "f", Action: "cycle filter"},
			{Key: "c", Action: "clear completed"},
			{Key: "R", Action: "repeat editor"},
			{Key: "u", Action: "undo"},
		}
	case WindowInsights:
		return []KeyBinding{
			{Key: "r", Action: "recompute"},
			{Key: "+/-", Action: "free slot length"},
		}
	default:
		return nil
	}
}

func (m Model) bindingsFor(kbs []KeyBinding) []key.Binding {
	out := make([]key.Binding, 0, len(kbs))
	for _, kb := range kbs {
		out = append(out, key.NewBinding(key.WithKeys(strings.Split(kb.Key, "/")...), key.WithHelp(kb.Key, kb.Action)))
	}
	return out
}

func (m Model) footer() string {
	parts := make([]string, 0, len(m.globalBindings()))
	for _, kb := range m.globalBindings() {
		parts = append(parts, fmt.Sprintf("%s %s", kb.Key, kb.Action))
	}
	return strings.Join(parts, " | ")
}
