// Package calendar holds the event list, its range queries and recurrence,
// reminder scheduling, schedule analysis, undo/redo and ICS interchange.
package calendar

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

var (
	ErrEventNotFound     = errors.New("calendar: event not found")
	ErrCalendarNotFound  = errors.New("calendar: calendar not found")
	ErrInvalidEvent      = errors.New("calendar: invalid event")
	ErrInvalidTimeRange  = errors.New("calendar: end before start")
	ErrInvalidRecurrence = errors.New("calendar: invalid recurrence")
	ErrInvalidReminder   = errors.New("calendar: invalid reminder")
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

func ParseFrequency(raw string) (Frequency, error) {
	switch Frequency(strings.ToLower(strings.TrimSpace(raw))) {
	case FrequencyDaily:
		return FrequencyDaily, nil
	case FrequencyWeekly:
		return FrequencyWeekly, nil
	case FrequencyMonthly:
		return FrequencyMonthly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRecurrence, raw)
	}
}

type Recurrence struct {
	Frequency Frequency `json:"frequency"`
}

type Reminder struct {
	Minutes int  `json:"minutes"`
	Sound   bool `json:"sound"`
}

const (
	CalendarPersonal = "personal"
	CalendarWork     = "work"
	CalendarStudy    = "study"
)

type Calendar struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Visible bool   `json:"visible"`
}

func DefaultCalendars() []Calendar {
	return []Calendar{
		{ID: CalendarPersonal, Name: "Personal", Color: "#4285f4", Visible: true},
		{ID: CalendarWork, Name: "Work", Color: "#ea4335", Visible: true},
		{ID: CalendarStudy, Name: "Study", Color: "#34a853", Visible: true},
	}
}

type Event struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Location    string      `json:"location,omitempty"`
	Notes       string      `json:"notes,omitempty"`
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	AllDay      bool        `json:"allDay"`
	CalendarID  string      `json:"calendarId"`
	Recurrence  *Recurrence `json:"recurrence,omitempty"`
	Reminders   []Reminder  `json:"reminders,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	Attendees   []string    `json:"attendees,omitempty"`
	Attachments []string    `json:"attachments,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

func (e Event) IsRecurring() bool {
	return e.Recurrence != nil && e.Recurrence.Frequency != ""
}

// Clone returns a deep copy so snapshots never share slices.
func (e Event) Clone() Event {
	out := e
	if e.Recurrence != nil {
		rec := *e.Recurrence
		out.Recurrence = &rec
	}
	out.Reminders = slices.Clone(e.Reminders)
	out.Tags = slices.Clone(e.Tags)
	out.Attendees = slices.Clone(e.Attendees)
	out.Attachments = slices.Clone(e.Attachments)
	return out
}

// EventPatch is a partial update; nil fields are left untouched.
type EventPatch struct {
	Title       *string
	Description *string
	Location    *string
	Notes       *string
	Start       *time.Time
	End         *time.Time
	AllDay      *bool
	CalendarID  *string
	Recurrence  **Recurrence
	Reminders   *[]Reminder
	Tags        *[]string
	Attendees   *[]string
	Attachments *[]string
}

func (p EventPatch) apply(ev Event) Event {
	out := ev.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Location != nil {
		out.Location = *p.Location
	}
	if p.Notes != nil {
		out.Notes = *p.Notes
	}
	if p.Start != nil {
		// moving the start keeps the duration unless End is patched too
		dur := out.Duration()
		out.Start = *p.Start
		if p.End == nil {
			out.End = out.Start.Add(dur)
		}
	}
	if p.End != nil {
		out.End = *p.End
	}
	if p.AllDay != nil {
		out.AllDay = *p.AllDay
	}
	if p.CalendarID != nil {
		out.CalendarID = *p.CalendarID
	}
	if p.Recurrence != nil {
		out.Recurrence = *p.Recurrence
	}
	if p.Reminders != nil {
		out.Reminders = slices.Clone(*p.Reminders)
	}
	if p.Tags != nil {
		out.Tags = slices.Clone(*p.Tags)
	}
	if p.Attendees != nil {
		out.Attendees = slices.Clone(*p.Attendees)
	}
	if p.Attachments != nil {
		out.Attachments = slices.Clone(*p.Attachments)
	}
	return out
}

// normalize fills defaults and validates ev. End before start is rejected;
// a zero end becomes start+1h, or the end of the day for all-day events.
func normalize(ev Event, calendars []Calendar) (Event, error) {
	ev.Title = strings.TrimSpace(ev.Title)
	if ev.Title == "" {
		return ev, fmt.Errorf("%w: title is required", ErrInvalidEvent)
	}
	if ev.Start.IsZero() {
		return ev, fmt.Errorf("%w: start is required", ErrInvalidEvent)
	}
	if ev.AllDay {
		ev.Start = startOfDay(ev.Start)
		switch {
		case ev.End.IsZero():
			ev.End = endOfDay(ev.Start)
		case ev.End.After(ev.Start) && ev.End.Equal(startOfDay(ev.End)):
			// exclusive midnight end, as ICS all-day DTEND is written
			ev.End = ev.End.Add(-time.Nanosecond)
		case !ev.End.Before(ev.Start):
			ev.End = endOfDay(ev.End)
		}
	}
	if ev.End.IsZero() {
		ev.End = ev.Start.Add(time.Hour)
	}
	if ev.End.Before(ev.Start) {
		return ev, fmt.Errorf("%w: %s < %s", ErrInvalidTimeRange, ev.End.Format(time.RFC3339), ev.Start.Format(time.RFC3339))
	}
	if ev.Recurrence != nil {
		if ev.Recurrence.Frequency == "" {
			ev.Recurrence = nil
		} else {
			freq, err := ParseFrequency(string(ev.Recurrence.Frequency))
			if err != nil {
				return ev, err
			}
			ev.Recurrence = &Recurrence{Frequency: freq}
		}
	}
	seen := make(map[int]struct{}, len(ev.Reminders))
	reminders := make([]Reminder, 0, len(ev.Reminders))
	for _, r := range ev.Reminders {
		if r.Minutes < 0 {
			return ev, fmt.Errorf("%w: negative offset %d", ErrInvalidReminder, r.Minutes)
		}
		if _, dup := seen[r.Minutes]; dup {
			continue
		}
		seen[r.Minutes] = struct{}{}
		reminders = append(reminders, r)
	}
	ev.Reminders = reminders
	if !hasCalendar(calendars, ev.CalendarID) {
		ev.CalendarID = CalendarPersonal
	}
	return ev, nil
}

func hasCalendar(calendars []Calendar, id string) bool {
	for _, c := range calendars {
		if c.ID == id {
			return true
		}
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func cloneEvents(in []Event) []Event {
	out := make([]Event, len(in))
	for i, ev := range in {
		out[i] = ev.Clone()
	}
	return out
}
