package tasks

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

var (
	ErrInvalidRepeat      = errors.New("tasks: invalid repeat frequency")
	ErrInvalidInterval    = errors.New("tasks: invalid repeat interval")
	ErrCompletionRequired = errors.New("tasks: completion time required for after_completion repeat")
)

type RepeatFrequency string

const (
	RepeatDaily           RepeatFrequency = "daily"
	RepeatWeekly          RepeatFrequency = "weekly"
	RepeatMonthly         RepeatFrequency = "monthly"
	RepeatWeekdays        RepeatFrequency = "weekdays"
	RepeatLastDayOfMonth  RepeatFrequency = "last_day_of_month"
	RepeatAfterCompletion RepeatFrequency = "after_completion"
)

// Repeat makes a completed task spawn its next instance. Interval counts
// units of the frequency; for after_completion it is days.
type Repeat struct {
	Frequency RepeatFrequency `json:"freq"`
	Interval  int             `json:"interval,omitempty"`
}

func ParseRepeat(raw string) (*Repeat, error) {
	r := &Repeat{Frequency: RepeatFrequency(raw), Interval: 1}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r Repeat) Validate() error {
	switch r.Frequency {
	case RepeatDaily, RepeatWeekly, RepeatMonthly, RepeatWeekdays, RepeatLastDayOfMonth, RepeatAfterCompletion:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRepeat, r.Frequency)
	}
	if r.Interval < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidInterval, r.Interval)
	}
	return nil
}

func (r Repeat) interval() int {
	if r.Interval <= 0 {
		return 1
	}
	return r.Interval
}

func (r Repeat) rule(anchor time.Time) (*rrule.RRule, error) {
	opt := rrule.ROption{Dtstart: anchor, Interval: r.interval()}
	switch r.Frequency {
	case RepeatDaily:
		opt.Freq = rrule.DAILY
	case RepeatWeekly:
		opt.Freq = rrule.WEEKLY
	case RepeatMonthly:
		opt.Freq = rrule.MONTHLY
	case RepeatWeekdays:
		opt.Freq = rrule.DAILY
		opt.Interval = 1
		opt.Byweekday = []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR}
	case RepeatLastDayOfMonth:
		opt.Freq = rrule.MONTHLY
		opt.Bymonthday = []int{-1}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidRepeat, r.Frequency)
	}
	return rrule.NewRRule(opt)
}

// NextDue returns the due date following due. after_completion counts from
// completedAt instead.
func (r Repeat) NextDue(due time.Time, completedAt *time.Time) (time.Time, error) {
	if err := r.Validate(); err != nil {
		return time.Time{}, err
	}
	if r.Frequency == RepeatAfterCompletion {
		if completedAt == nil || completedAt.IsZero() {
			return time.Time{}, ErrCompletionRequired
		}
		return startOfDay(*completedAt).AddDate(0, 0, r.interval()), nil
	}
	rule, err := r.rule(due)
	if err != nil {
		return time.Time{}, fmt.Errorf("build repeat rule: %w", err)
	}
	next := rule.After(due, false)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("%w: no occurrence after %s", ErrInvalidRepeat, due.Format(time.DateOnly))
	}
	return next, nil
}

// Preview lists the next count due dates after due.
func (r Repeat) Preview(due time.Time, count int) ([]time.Time, error) {
	out := make([]time.Time, 0, count)
	cursor := due
	for i := 0; i < count; i++ {
		next, err := r.NextDue(cursor, &cursor)
		if err != nil {
			return nil, err
		}
		out = append(out, next)
		cursor = next
	}
	return out, nil
}
