package feeds

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

var ErrEmptyBody = errors.New("feeds: empty ics body")

// ParsedEvent is a VEVENT before recurrence expansion.
type ParsedEvent struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
	RRule       string
	ExDates     []time.Time
	// RecurrenceID is set on an override of one instance of a series.
	RecurrenceID *time.Time
}

// Parse decodes every VEVENT in body. Times without a TZID are read in loc.
// Broken events are skipped and reported in the returned slice.
func Parse(body []byte, loc *time.Location) ([]ParsedEvent, []error, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil, ErrEmptyBody
	}
	if loc == nil {
		loc = time.Local
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("parse ics: %w", err)
	}

	events := make([]ParsedEvent, 0)
	var errs []error
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(ve, loc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		events = append(events, ev)
	}
	return events, errs, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (ParsedEvent, error) {
	var out ParsedEvent
	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, errors.New("feeds: vevent without UID")
	}
	out.UID = uid.Value
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, fmt.Errorf("feeds: %s has no DTSTART", out.UID)
	}
	out.AllDay = isDateValue(dtStart)

	start, err := ve.GetStartAt()
	if err != nil {
		return out, fmt.Errorf("feeds: %s DTSTART: %w", out.UID, err)
	}
	out.Start = inLocation(start, dtStart, loc)

	if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
		end, err := ve.GetEndAt()
		if err != nil {
			return out, fmt.Errorf("feeds: %s DTEND: %w", out.UID, err)
		}
		out.End = inLocation(end, dtEnd, loc)
	}
	switch {
	case out.End.IsZero() && out.AllDay:
		out.End = out.Start.AddDate(0, 0, 1)
	case out.End.IsZero():
		out.End = out.Start
	case out.End.Before(out.Start):
		return out, fmt.Errorf("feeds: %s ends before it starts", out.UID)
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, tzidLocation(&p.BaseProperty, loc)); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}
	if p := ve.GetProperty(ical.ComponentPropertyRecurrenceId); p != nil {
		if t, err := parseICSTime(p.Value, tzidLocation(&p.BaseProperty, loc)); err == nil {
			out.RecurrenceID = &t
		}
	}
	return out, nil
}

func isDateValue(p *ical.IANAProperty) bool {
	if vs := p.ICalParameters[string(ical.ParameterValue)]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// inLocation re-reads floating times (no TZID, no Z) in loc; the parser
// would otherwise put them in time.Local.
func inLocation(t time.Time, p *ical.IANAProperty, loc *time.Location) time.Time {
	if _, ok := p.ICalParameters["TZID"]; ok || strings.HasSuffix(p.Value, "Z") {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}

func tzidLocation(p *ical.BaseProperty, fallback *time.Location) *time.Location {
	if tz := p.ICalParameters["TZID"]; len(tz) == 1 {
		if loc, err := time.LoadLocation(tz[0]); err == nil {
			return loc
		}
	}
	return fallback
}

func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
