package update

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func (m *Model) refreshInsights() {
	now := m.now()
	if m.deps.Calendar != nil {
		ctx := context.Background()
		m.Insights.Analysis = m.deps.Calendar.AnalyzeSchedule(ctx, now)
		m.Insights.Suggestion = m.deps.Calendar.SuggestBestTime(ctx, now, m.Insights.FreeMinutes)
		m.Insights.FreeSlots = m.deps.Calendar.FindFreeTime(ctx, now, time.Duration(m.Insights.FreeMinutes)*time.Minute)
	}
	if m.deps.Tasks != nil {
		m.Insights.Meta = m.deps.Tasks.Meta()
		m.Insights.Stats = m.deps.Tasks.Stats(now)
	}
}

const freeMinutesStep = 15

func (m Model) handleInsightsKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "r":
		m.refreshInsights()
		m.Status = StatusBar{Text: "insights recomputed"}
	case "+", "=":
		m.Insights.FreeMinutes += freeMinutesStep
		m.refreshInsights()
	case "-":
		if m.Insights.FreeMinutes > freeMinutesStep {
			m.Insights.FreeMinutes -= freeMinutesStep
			m.refreshInsights()
		}
	}
	return m
}
