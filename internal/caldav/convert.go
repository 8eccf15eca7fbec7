package caldav

import (
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/sandeepkv93/aegis/internal/calendar"
)

const productID = "-//Aegis//CalDAV//EN"

// toCalendarObject wraps ev in its own VCALENDAR, one object per event as
// CalDAV stores them. Unlike file export, the recurrence travels as RRULE.
func toCalendarObject(ev calendar.Event, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	vevent := calendar.ToICS(ev, stamp)
	if ev.IsRecurring() {
		if freq, ok := toRRuleFreq(ev.Recurrence.Frequency); ok {
			vevent.Props.SetRecurrenceRule(&rrule.ROption{Freq: freq})
		}
	}
	cal.Children = append(cal.Children, vevent.Component)
	return cal
}

// fromCalendarObject reads the first VEVENT of an object.
func fromCalendarObject(cal *ical.Calendar, loc *time.Location) (calendar.Event, error) {
	if cal == nil {
		return calendar.Event{}, fmt.Errorf("%w: empty calendar object", calendar.ErrInvalidEvent)
	}
	events := cal.Events()
	if len(events) == 0 {
		return calendar.Event{}, fmt.Errorf("%w: no VEVENT", calendar.ErrInvalidEvent)
	}
	vevent := events[0]
	ev, err := calendar.FromICS(vevent, loc)
	if err != nil {
		return ev, err
	}
	rule, err := vevent.Props.RecurrenceRule()
	if err != nil {
		return ev, fmt.Errorf("%w: RRULE: %v", calendar.ErrInvalidRecurrence, err)
	}
	if rule != nil {
		if freq, ok := fromRRuleFreq(rule.Freq); ok {
			ev.Recurrence = &calendar.Recurrence{Frequency: freq}
		}
	}
	return ev, nil
}

func toRRuleFreq(f calendar.Frequency) (rrule.Frequency, bool) {
	switch f {
	case calendar.FrequencyDaily:
		return rrule.DAILY, true
	case calendar.FrequencyWeekly:
		return rrule.WEEKLY, true
	case calendar.FrequencyMonthly:
		return rrule.MONTHLY, true
	default:
		return 0, false
	}
}

func fromRRuleFreq(f rrule.Frequency) (calendar.Frequency, bool) {
	switch f {
	case rrule.DAILY:
		return calendar.FrequencyDaily, true
	case rrule.WEEKLY:
		return calendar.FrequencyWeekly, true
	case rrule.MONTHLY:
		return calendar.FrequencyMonthly, true
	default:
		return "", false
	}
}
