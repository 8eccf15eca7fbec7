package tasks

import (
	"context"
	"time"

	"github.com/sandeepkv93/aegis/internal/calendar"
)

const ServiceName = "tasks"

// Occurrences lists incomplete tasks due within [from, to] as all-day agenda
// items, so the calendar can show them next to events.
func (a *App) Occurrences(_ context.Context, from, to time.Time) ([]calendar.Occurrence, error) {
	out := make([]calendar.Occurrence, 0)
	for _, t := range a.Tasks() {
		if t.Completed || t.DueDate == nil {
			continue
		}
		due := *t.DueDate
		if due.Before(startOfDay(from)) || due.After(to) {
			continue
		}
		out = append(out, calendar.Occurrence{
			EventID: t.ID,
			Title:   "☐ " + t.Title,
			Start:   startOfDay(due),
			End:     startOfDay(due).AddDate(0, 0, 1).Add(-time.Nanosecond),
			AllDay:  true,
			Color:   priorityColor(t.Priority),
			Source:  ServiceName,
		})
	}
	return out, nil
}

func priorityColor(p Priority) string {
	switch p {
	case PriorityHigh:
		return "#ea4335"
	case PriorityMedium:
		return "#fbbc04"
	default:
		return "#34a853"
	}
}

type Stats struct {
	Total          int
	Active         int
	Completed      int
	Overdue        int
	DueToday       int
	ByPriority     map[Priority]int
	CompletionRate float64
}

func (a *App) Stats(now time.Time) Stats {
	stats := Stats{ByPriority: make(map[Priority]int)}
	for _, t := range a.Tasks() {
		stats.Total++
		if t.Completed {
			stats.Completed++
			continue
		}
		stats.Active++
		stats.ByPriority[t.Priority]++
		if IsOverdue(t, now) {
			stats.Overdue++
		}
		if t.DueDate != nil && sameDay(*t.DueDate, now) {
			stats.DueToday++
		}
	}
	if stats.Total > 0 {
		stats.CompletionRate = float64(stats.Completed) / float64(stats.Total)
	}
	return stats
}
