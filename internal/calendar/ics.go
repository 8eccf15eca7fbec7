package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
)

const icsProductID = "-//Aegis//Calendar//EN"

type ImportResult struct {
	Imported []Event
	Skipped  int
	Errors   []error
}

// ToICS builds a VEVENT. Recurrence is not exported.
func ToICS(ev Event, stamp time.Time) *ical.Event {
	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, ev.ID)
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	vevent.Props.SetText(ical.PropSummary, ev.Title)
	if ev.Description != "" {
		vevent.Props.SetText(ical.PropDescription, ev.Description)
	}
	if ev.Location != "" {
		vevent.Props.SetText(ical.PropLocation, ev.Location)
	}
	if ev.AllDay {
		vevent.Props.SetDate(ical.PropDateTimeStart, startOfDay(ev.Start))
		vevent.Props.SetDate(ical.PropDateTimeEnd, startOfDay(ev.End).AddDate(0, 0, 1))
	} else {
		vevent.Props.SetDateTime(ical.PropDateTimeStart, ev.Start.UTC())
		vevent.Props.SetDateTime(ical.PropDateTimeEnd, ev.End.UTC())
	}
	return vevent
}

// FromICS reads the subset of VEVENT fields the calendar keeps. Floating
// and date values are read in loc.
func FromICS(vevent ical.Event, loc *time.Location) (Event, error) {
	ev := Event{CalendarID: CalendarPersonal}
	if prop := vevent.Props.Get(ical.PropUID); prop != nil {
		ev.ID = prop.Value
	}
	if prop := vevent.Props.Get(ical.PropSummary); prop != nil {
		ev.Title = prop.Value
	}
	if prop := vevent.Props.Get(ical.PropDescription); prop != nil {
		ev.Description = prop.Value
	}
	if prop := vevent.Props.Get(ical.PropLocation); prop != nil {
		ev.Location = prop.Value
	}

	start := vevent.Props.Get(ical.PropDateTimeStart)
	if start == nil {
		return ev, fmt.Errorf("%w: missing DTSTART", ErrInvalidEvent)
	}
	t, err := start.DateTime(loc)
	if err != nil {
		return ev, fmt.Errorf("%w: DTSTART: %v", ErrInvalidEvent, err)
	}
	ev.Start = t
	ev.AllDay = start.Params.Get(ical.ParamValue) == string(ical.ValueDate)

	if end := vevent.Props.Get(ical.PropDateTimeEnd); end != nil {
		t, err := end.DateTime(loc)
		if err != nil {
			return ev, fmt.Errorf("%w: DTEND: %v", ErrInvalidEvent, err)
		}
		ev.End = t
	}
	return ev, nil
}

// WriteICS encodes events as a single VCALENDAR.
func WriteICS(w io.Writer, events []Event, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, icsProductID)
	for _, ev := range events {
		cal.Children = append(cal.Children, ToICS(ev, stamp).Component)
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode ics: %w", err)
	}
	return nil
}

// ReadICS decodes every VEVENT of every VCALENDAR in r. Events that cannot
// be read are counted in skipped.
func ReadICS(r io.Reader, loc *time.Location) ([]Event, []error, error) {
	dec := ical.NewDecoder(r)
	events := make([]Event, 0)
	problems := make([]error, 0)
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return events, problems, fmt.Errorf("decode ics: %w", err)
		}
		for _, vevent := range cal.Events() {
			ev, err := FromICS(vevent, loc)
			if err != nil {
				problems = append(problems, err)
				continue
			}
			events = append(events, ev)
		}
	}
	return events, problems, nil
}

// ExportICS writes every stored event.
func (e *Engine) ExportICS(w io.Writer) error {
	return WriteICS(w, e.Events(), e.now())
}

// ImportICS adds each readable VEVENT through AddEvent, so invalid events
// are skipped and a UID that clashes with an existing event gets a new id.
// When the stream breaks off, the events decoded before the break are still
// imported and the decode error is returned with the result.
func (e *Engine) ImportICS(ctx context.Context, r io.Reader) (ImportResult, error) {
	events, problems, readErr := ReadICS(r, time.Local)
	result := ImportResult{Skipped: len(problems), Errors: problems}
	for _, ev := range events {
		added, err := e.AddEvent(ctx, ev)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Imported = append(result.Imported, added)
	}
	return result, readErr
}
