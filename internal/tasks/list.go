package tasks

import (
	"sort"
	"strings"
	"time"
)

type Status string

const (
	StatusAll       Status = "all"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusToday     Status = "today"
	StatusOverdue   Status = "overdue"
)

type Filter struct {
	Status   Status
	Category string
	Priority Priority
	Tag      string
	Query    string
}

// Sort orders incomplete before complete, then priority high to low, then
// due date ascending with undated tasks last, then newest first.
func Sort(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Completed != b.Completed {
			return !a.Completed
		}
		if wa, wb := a.Priority.weight(), b.Priority.weight(); wa != wb {
			return wa > wb
		}
		switch {
		case a.DueDate != nil && b.DueDate == nil:
			return true
		case a.DueDate == nil && b.DueDate != nil:
			return false
		case a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

func (f Filter) Match(t Task, now time.Time) bool {
	switch f.Status {
	case StatusActive:
		if t.Completed {
			return false
		}
	case StatusCompleted:
		if !t.Completed {
			return false
		}
	case StatusToday:
		if t.DueDate == nil || !sameDay(*t.DueDate, now) {
			return false
		}
	case StatusOverdue:
		if !IsOverdue(t, now) {
			return false
		}
	}
	if f.Category != "" && !strings.EqualFold(t.Category, f.Category) {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Tag != "" {
		tag := strings.ToLower(strings.TrimPrefix(f.Tag, "#"))
		found := false
		for _, have := range t.Tags {
			if have == tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
	}
	return true
}

// IsOverdue is true for an incomplete task due on an earlier day.
func IsOverdue(t Task, now time.Time) bool {
	return !t.Completed && t.DueDate != nil && t.DueDate.Before(startOfDay(now))
}

// List returns the tasks matching f in display order.
func (a *App) List(f Filter) []Task {
	now := a.now()
	all := a.Tasks()
	out := make([]Task, 0, len(all))
	for _, t := range all {
		if f.Match(t, now) {
			out = append(out, t)
		}
	}
	return out
}

// Categories lists the distinct categories in use, sorted.
func (a *App) Categories() []string {
	seen := make(map[string]struct{})
	for _, t := range a.Tasks() {
		if t.Category != "" {
			seen[t.Category] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	return a.Format(dayLayout) == b.Format(dayLayout)
}
