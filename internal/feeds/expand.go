package feeds

import (
	"time"

	"github.com/teambition/rrule-go"

	"github.com/sandeepkv93/aegis/internal/calendar"
)

const (
	ServiceName = "feeds"

	defaultMaxOccurrences = 5000
)

// ExpandResult holds the expanded instances and the UIDs that hit the cap
// or carried an RRULE that could not be parsed.
type ExpandResult struct {
	Occurrences []calendar.Occurrence
	Truncated   []string
	BadRules    []string
}

// Expand turns parsed events into occurrences intersecting [from, to].
// Overrides (RECURRENCE-ID) replace the instance they point at.
func Expand(src Source, events []ParsedEvent, from, to time.Time, maxPerEvent int) ExpandResult {
	if maxPerEvent <= 0 {
		maxPerEvent = defaultMaxOccurrences
	}
	base := make(map[string][]ParsedEvent)
	overrides := make(map[string][]ParsedEvent)
	order := make([]string, 0)
	for _, ev := range events {
		if ev.RecurrenceID != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		if _, seen := base[ev.UID]; !seen {
			order = append(order, ev.UID)
		}
		base[ev.UID] = append(base[ev.UID], ev)
	}

	var res ExpandResult
	res.Occurrences = make([]calendar.Occurrence, 0)
	for _, uid := range order {
		for _, ev := range base[uid] {
			if ev.RRule == "" {
				if intersects(ev.Start, ev.End, from, to) {
					res.Occurrences = append(res.Occurrences, occurrence(src, ev, ev.Start, ev.End, false))
				}
				continue
			}
			starts, ok := instances(ev, from, to)
			if !ok {
				res.BadRules = append(res.BadRules, uid)
				continue
			}
			if len(starts) > maxPerEvent {
				starts = starts[:maxPerEvent]
				res.Truncated = append(res.Truncated, uid)
			}
			dur := ev.End.Sub(ev.Start)
			for _, start := range starts {
				inst, instStart, instEnd := ev, start, start.Add(dur)
				if ov, found := findOverride(overrides[uid], start); found {
					inst, instStart, instEnd = ov, ov.Start, ov.End
				}
				if intersects(instStart, instEnd, from, to) {
					res.Occurrences = append(res.Occurrences, occurrence(src, inst, instStart, instEnd, true))
				}
			}
		}
	}
	return res
}

func instances(ev ParsedEvent, from, to time.Time) ([]time.Time, bool) {
	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		return nil, false
	}
	r.DTStart(ev.Start)
	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}
	// widen the lower bound so instances already in progress at from count
	after := from.Add(-ev.End.Sub(ev.Start)).In(ev.Start.Location())
	return set.Between(after, to.In(ev.Start.Location()), true), true
}

func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.RecurrenceID.Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

func occurrence(src Source, ev ParsedEvent, start, end time.Time, recurring bool) calendar.Occurrence {
	if ev.AllDay && end.After(start) {
		// ICS all-day ends are exclusive; the calendar's are inclusive
		end = end.Add(-time.Nanosecond)
	}
	return calendar.Occurrence{
		EventID:    ev.UID,
		Title:      ev.Summary,
		Location:   ev.Location,
		Start:      start,
		End:        end,
		AllDay:     ev.AllDay,
		CalendarID: src.ID,
		Recurring:  recurring,
		Source:     ServiceName,
	}
}

func intersects(start, end, from, to time.Time) bool {
	return !end.Before(from) && !start.After(to)
}
