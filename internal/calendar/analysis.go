package calendar

import (
	"context"
	"time"
)

type Conflict struct {
	First   Occurrence
	Second  Occurrence
	Overlap time.Duration
}

type Gap struct {
	Start    time.Time
	End      time.Time
	Duration time.Duration
}

type Analysis struct {
	From         time.Time
	To           time.Time
	EventCount   int
	Conflicts    []Conflict
	Gaps         []Gap
	BusiestDay   time.Time
	BusiestCount int
	TotalBusy    time.Duration
}

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

type Suggestion struct {
	Start      time.Time
	End        time.Time
	Confidence Confidence
	Reason     string
}

// timedOccurrences returns non all-day occurrences in [from, to] sorted by
// start. Overlay items are not part of the analysis.
func (e *Engine) timedOccurrences(from, to time.Time) []Occurrence {
	all := e.Occurrences(from, to)
	out := make([]Occurrence, 0, len(all))
	for _, o := range all {
		if !o.AllDay {
			out = append(out, o)
		}
	}
	return out
}

// AnalyzeSchedule inspects the analysis window starting at now for
// overlapping events and for free gaps longer than the minimum gap.
func (e *Engine) AnalyzeSchedule(_ context.Context, now time.Time) Analysis {
	from, to := now, now.Add(e.window)
	items := e.timedOccurrences(from, to)

	result := Analysis{
		From:       from,
		To:         to,
		EventCount: len(items),
		Conflicts:  findConflicts(items),
		Gaps:       findGaps(items, e.minGap, false),
	}

	perDay := make(map[time.Time]int)
	for _, o := range items {
		result.TotalBusy += o.Duration()
		perDay[startOfDay(o.Start)]++
	}
	for day, count := range perDay {
		if count > result.BusiestCount || count == result.BusiestCount && day.Before(result.BusiestDay) {
			result.BusiestDay = day
			result.BusiestCount = count
		}
	}
	return result
}

// findConflicts compares every pair of occurrences.
func findConflicts(items []Occurrence) []Conflict {
	out := make([]Conflict, 0)
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			a, b := items[i], items[j]
			if a.Start.Before(b.End) && b.Start.Before(a.End) {
				out = append(out, Conflict{First: a, Second: b, Overlap: overlap(a, b)})
			}
		}
	}
	return out
}

func overlap(a, b Occurrence) time.Duration {
	start := a.Start
	if b.Start.After(start) {
		start = b.Start
	}
	end := a.End
	if b.End.Before(end) {
		end = b.End
	}
	return end.Sub(start)
}

// findGaps walks items in start order and reports the free time between the
// latest end seen so far and the next start. inclusive keeps gaps exactly
// equal to minGap.
func findGaps(items []Occurrence, minGap time.Duration, inclusive bool) []Gap {
	out := make([]Gap, 0)
	if len(items) == 0 {
		return out
	}
	busyUntil := items[0].End
	for _, o := range items[1:] {
		if o.Start.After(busyUntil) {
			d := o.Start.Sub(busyUntil)
			if d > minGap || inclusive && d == minGap {
				out = append(out, Gap{Start: busyUntil, End: o.Start, Duration: d})
			}
		}
		if o.End.After(busyUntil) {
			busyUntil = o.End
		}
	}
	return out
}

// FindFreeTime reports the gaps between consecutive timed events of day that
// last at least minDuration. Time before the first and after the last event
// is not reported.
func (e *Engine) FindFreeTime(_ context.Context, day time.Time, minDuration time.Duration) []Gap {
	items := e.timedOccurrences(startOfDay(day), endOfDay(day))
	if minDuration <= 0 {
		minDuration = time.Nanosecond
	}
	return findGaps(items, minDuration, true)
}

// SuggestBestTime proposes a start for a block of durationMinutes: the first
// upcoming gap that fits, else right after the last event, else an hour from
// now.
func (e *Engine) SuggestBestTime(_ context.Context, now time.Time, durationMinutes int) Suggestion {
	want := time.Duration(durationMinutes) * time.Minute
	if want <= 0 {
		want = 30 * time.Minute
	}
	items := e.timedOccurrences(now, now.Add(e.window))

	for _, gap := range findGaps(items, want, true) {
		if gap.Start.Before(now) {
			continue
		}
		return Suggestion{
			Start:      gap.Start,
			End:        gap.Start.Add(want),
			Confidence: ConfidenceHigh,
			Reason:     "fits a free gap between events",
		}
	}

	if len(items) > 0 {
		last := items[0].End
		for _, o := range items[1:] {
			if o.End.After(last) {
				last = o.End
			}
		}
		if last.After(now) {
			return Suggestion{
				Start:      last,
				End:        last.Add(want),
				Confidence: ConfidenceMedium,
				Reason:     "after the last scheduled event",
			}
		}
	}

	start := now.Add(time.Hour)
	return Suggestion{
		Start:      start,
		End:        start.Add(want),
		Confidence: ConfidenceLow,
		Reason:     "no gap found, one hour from now",
	}
}
