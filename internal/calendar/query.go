package calendar

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/xdoubleu/essentia/v2/pkg/logging"

	"github.com/sandeepkv93/aegis/internal/registry"
)

// maxOccurrenceSteps bounds recurrence stepping for events whose start lies
// far before the queried range.
const maxOccurrenceSteps = 100_000

const SourceCalendar = "calendar"

// Occurrence is one concrete instance of an event, or of an overlay item
// such as a task due date or a subscribed feed entry.
type Occurrence struct {
	EventID    string
	Title      string
	Location   string
	Start      time.Time
	End        time.Time
	AllDay     bool
	CalendarID string
	Color      string
	Recurring  bool
	Source     string
}

func (o Occurrence) Duration() time.Duration {
	return o.End.Sub(o.Start)
}

// OverlaySource is implemented by services that contribute read-only items
// to the agenda.
type OverlaySource interface {
	Occurrences(ctx context.Context, from, to time.Time) ([]Occurrence, error)
}

// EventsInRange returns events of visible calendars that intersect
// [from, to], both ends inclusive, ordered by start.
func (e *Engine) EventsInRange(from, to time.Time) []Event {
	e.mu.Lock()
	visible := e.visibleLocked()
	out := make([]Event, 0)
	for _, ev := range e.events {
		if _, ok := visible[ev.CalendarID]; !ok {
			continue
		}
		if ev.IsRecurring() {
			if occursInRange(ev, from, to) {
				out = append(out, ev.Clone())
			}
			continue
		}
		if intersects(ev.Start, ev.End, from, to) {
			out = append(out, ev.Clone())
		}
	}
	e.mu.Unlock()
	sortEvents(out)
	return out
}

// EventsForDateRange treats from and to as calendar days and covers both
// days completely.
func (e *Engine) EventsForDateRange(fromDay, toDay time.Time) []Event {
	return e.EventsInRange(startOfDay(fromDay), endOfDay(toDay))
}

func (e *Engine) EventsForDay(day time.Time) []Event {
	return e.EventsForDateRange(day, day)
}

func (e *Engine) EventsForWeek(day time.Time) []Event {
	from, to := e.WeekBounds(day)
	return e.EventsInRange(from, to)
}

func (e *Engine) EventsForMonth(day time.Time) []Event {
	from, to := MonthBounds(day)
	return e.EventsInRange(from, to)
}

// WeekBounds returns the first and last instant of the week containing day.
func (e *Engine) WeekBounds(day time.Time) (time.Time, time.Time) {
	start := startOfDay(day)
	offset := (int(start.Weekday()) - int(e.weekStart) + 7) % 7
	start = start.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7).Add(-time.Nanosecond)
}

func MonthBounds(day time.Time) (time.Time, time.Time) {
	y, m, _ := day.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, day.Location())
	return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond)
}

func intersects(start, end, from, to time.Time) bool {
	return !start.After(to) && !end.Before(from)
}

// stepOccurrence returns the n-th occurrence start. Months are counted from
// the original start so a 31st keeps its day where the month allows it.
func stepOccurrence(start time.Time, freq Frequency, n int) time.Time {
	switch freq {
	case FrequencyDaily:
		return start.AddDate(0, 0, n)
	case FrequencyWeekly:
		return start.AddDate(0, 0, 7*n)
	case FrequencyMonthly:
		return start.AddDate(0, n, 0)
	default:
		return start
	}
}

// occursInRange steps linearly from the stored start until the cursor
// passes to, reporting whether any occurrence touches [from, to].
func occursInRange(ev Event, from, to time.Time) bool {
	dur := ev.Duration()
	for n := 0; n < maxOccurrenceSteps; n++ {
		cursor := stepOccurrence(ev.Start, ev.Recurrence.Frequency, n)
		if cursor.After(to) {
			return false
		}
		if intersects(cursor, cursor.Add(dur), from, to) {
			return true
		}
	}
	return false
}

// expand lists every occurrence of ev intersecting [from, to].
func expand(ev Event, from, to time.Time) []time.Time {
	if !ev.IsRecurring() {
		if intersects(ev.Start, ev.End, from, to) {
			return []time.Time{ev.Start}
		}
		return nil
	}
	dur := ev.Duration()
	out := make([]time.Time, 0)
	for n := 0; n < maxOccurrenceSteps; n++ {
		cursor := stepOccurrence(ev.Start, ev.Recurrence.Frequency, n)
		if cursor.After(to) {
			break
		}
		if intersects(cursor, cursor.Add(dur), from, to) {
			out = append(out, cursor)
		}
	}
	return out
}

// nextOccurrence returns the first occurrence starting at or after t.
func nextOccurrence(ev Event, t time.Time) (time.Time, bool) {
	if !ev.IsRecurring() {
		if ev.Start.Before(t) {
			return time.Time{}, false
		}
		return ev.Start, true
	}
	for n := 0; n < maxOccurrenceSteps; n++ {
		cursor := stepOccurrence(ev.Start, ev.Recurrence.Frequency, n)
		if !cursor.Before(t) {
			return cursor, true
		}
	}
	return time.Time{}, false
}

// Occurrences expands the engine's own visible events within [from, to].
func (e *Engine) Occurrences(from, to time.Time) []Occurrence {
	e.mu.Lock()
	visible := e.visibleLocked()
	out := make([]Occurrence, 0)
	for _, ev := range e.events {
		cal, ok := visible[ev.CalendarID]
		if !ok {
			continue
		}
		dur := ev.Duration()
		for _, start := range expand(ev, from, to) {
			out = append(out, Occurrence{
				EventID:    ev.ID,
				Title:      ev.Title,
				Location:   ev.Location,
				Start:      start,
				End:        start.Add(dur),
				AllDay:     ev.AllDay,
				CalendarID: ev.CalendarID,
				Color:      cal.Color,
				Recurring:  ev.IsRecurring(),
				Source:     SourceCalendar,
			})
		}
	}
	e.mu.Unlock()
	sortOccurrences(out)
	return out
}

// Agenda merges the engine's occurrences with every overlay source found in
// the registry. Overlay failures are logged and skipped.
func (e *Engine) Agenda(ctx context.Context, from, to time.Time) []Occurrence {
	out := e.Occurrences(from, to)
	for _, name := range e.overlayNames() {
		src, err := registry.Lookup[OverlaySource](e.reg, name)
		if err != nil {
			continue
		}
		items, err := src.Occurrences(ctx, from, to)
		if err != nil {
			e.logger.Warn("overlay failed", slog.String("source", name), logging.ErrAttr(err))
			continue
		}
		out = append(out, items...)
	}
	sortOccurrences(out)
	return out
}

func (e *Engine) overlayNames() []string {
	if e.reg == nil {
		return nil
	}
	return e.reg.Names()
}

func sortOccurrences(items []Occurrence) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Start.Equal(items[j].Start) {
			if items[i].AllDay != items[j].AllDay {
				return items[i].AllDay
			}
			return items[i].Title < items[j].Title
		}
		return items[i].Start.Before(items[j].Start)
	})
}

// Search matches query case-insensitively against text fields and tags.
func (e *Engine) Search(query string) []Event {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	e.mu.Lock()
	out := make([]Event, 0)
	for _, ev := range e.events {
		fields := []string{ev.Title, ev.Description, ev.Location, ev.Notes}
		fields = append(fields, ev.Tags...)
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), q) {
				out = append(out, ev.Clone())
				break
			}
		}
	}
	e.mu.Unlock()
	sortEvents(out)
	return out
}

const upcomingHorizon = 30 * 24 * time.Hour

// Upcoming returns up to limit occurrences starting at or after now. A limit
// of zero or less means no limit.
func (e *Engine) Upcoming(now time.Time, limit int) []Occurrence {
	limit = max(limit, 0)
	items := e.Occurrences(now, now.Add(upcomingHorizon))
	out := make([]Occurrence, 0, limit)
	for _, item := range items {
		if item.Start.Before(now) {
			continue
		}
		out = append(out, item)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

type Stats struct {
	Total      int
	Recurring  int
	Today      int
	ThisWeek   int
	ThisMonth  int
	ByCalendar map[string]int
}

func (e *Engine) Stats(now time.Time) Stats {
	stats := Stats{ByCalendar: make(map[string]int)}
	e.mu.Lock()
	stats.Total = len(e.events)
	for _, ev := range e.events {
		stats.ByCalendar[ev.CalendarID]++
		if ev.IsRecurring() {
			stats.Recurring++
		}
	}
	e.mu.Unlock()

	stats.Today = len(e.EventsForDay(now))
	stats.ThisWeek = len(e.EventsForWeek(now))
	stats.ThisMonth = len(e.EventsForMonth(now))
	return stats
}
