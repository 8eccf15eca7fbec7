package calendar

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestICSRoundTripNonRecurring(t *testing.T) {
	src := newTestEnv(t, at("2024-06-01", "08:00"))
	ev := mustAdd(t, src.engine, Event{
		Title:       "Design review",
		Description: "Quarterly",
		Location:    "Room 4",
		Start:       at("2024-06-03", "14:30"),
		End:         at("2024-06-03", "15:45"),
		Recurrence:  &Recurrence{Frequency: FrequencyWeekly},
	})

	var buf bytes.Buffer
	require.NoError(t, src.engine.ExportICS(&buf))
	out := buf.String()
	assert.Contains(t, out, "BEGIN:VEVENT")
	assert.Contains(t, out, "DTSTART:20240603T143000Z")
	assert.NotContains(t, out, "RRULE")

	dst := newTestEnv(t, at("2024-06-01", "08:00"))
	result, err := dst.engine.ImportICS(t.Context(), strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, result.Imported, 1)
	assert.Zero(t, result.Skipped)

	got := result.Imported[0]
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, ev.Title, got.Title)
	assert.Equal(t, "Room 4", got.Location)
	assert.True(t, got.Start.Truncate(time.Minute).Equal(ev.Start.Truncate(time.Minute)))
	assert.True(t, got.End.Truncate(time.Minute).Equal(ev.End.Truncate(time.Minute)))
	assert.Nil(t, got.Recurrence)
}

func TestICSAllDayRoundTrip(t *testing.T) {
	src := newTestEnv(t, at("2024-06-01", "08:00"))
	mustAdd(t, src.engine, Event{Title: "Holiday", Start: date("2024-06-10"), AllDay: true})

	var buf bytes.Buffer
	require.NoError(t, src.engine.ExportICS(&buf))
	assert.Contains(t, buf.String(), "20240610")

	events, problems, err := ReadICS(&buf, time.UTC)
	require.NoError(t, err)
	assert.Empty(t, problems)
	require.Len(t, events, 1)
	assert.True(t, events[0].AllDay)
	assert.Equal(t, date("2024-06-10"), events[0].Start)
}

func TestImportSkipsInvalidAndRenamesClashingUID(t *testing.T) {
	env := newTestEnv(t, at("2024-06-01", "08:00"))
	mustAdd(t, env.engine, Event{ID: "dup", Title: "Existing", Start: at("2024-06-02", "09:00")})

	raw := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:dup",
		"DTSTAMP:20240601T000000Z",
		"SUMMARY:Clash",
		"DTSTART:20240605T090000Z",
		"DTEND:20240605T100000Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:backwards",
		"DTSTAMP:20240601T000000Z",
		"SUMMARY:Backwards",
		"DTSTART:20240605T110000Z",
		"DTEND:20240605T100000Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:nostart",
		"DTSTAMP:20240601T000000Z",
		"SUMMARY:No start",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	result, err := env.engine.ImportICS(t.Context(), strings.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, result.Imported, 1)
	assert.Equal(t, 2, result.Skipped)
	assert.NotEqual(t, "dup", result.Imported[0].ID)
	assert.Equal(t, "Clash", result.Imported[0].Title)
	assert.Len(t, env.engine.Events(), 2)
}

func TestImportKeepsEventsDecodedBeforeBrokenCalendar(t *testing.T) {
	env := newTestEnv(t, at("2024-06-01", "08:00"))

	raw := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:first",
		"DTSTAMP:20240601T000000Z",
		"SUMMARY:Dentist",
		"DTSTART:20240605T090000Z",
		"DTEND:20240605T100000Z",
		"END:VEVENT",
		"END:VCALENDAR",
		"BEGIN:VCALENDAR",
		"this line has no colon",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	result, err := env.engine.ImportICS(t.Context(), strings.NewReader(raw))
	require.Error(t, err)
	require.Len(t, result.Imported, 1)
	assert.Equal(t, "Dentist", result.Imported[0].Title)
	assert.Equal(t, 0, result.Skipped)
	assert.Len(t, env.engine.Events(), 1)
}
