package feeds

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/aegis/internal/calendar"
	"github.com/sandeepkv93/aegis/internal/registry"
	"github.com/sandeepkv93/aegis/internal/storage"
)

func ics(lines ...string) string {
	all := append([]string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//test//EN"}, lines...)
	all = append(all, "END:VCALENDAR")
	return strings.Join(all, "\r\n") + "\r\n"
}

var weeklyStandup = ics(
	"BEGIN:VEVENT",
	"UID:standup",
	"SUMMARY:Standup",
	"DTSTART:20260302T090000Z",
	"DTEND:20260302T091500Z",
	"RRULE:FREQ=WEEKLY;COUNT=6",
	"EXDATE:20260309T090000Z",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:standup",
	"RECURRENCE-ID:20260316T090000Z",
	"SUMMARY:Standup (moved)",
	"DTSTART:20260316T130000Z",
	"DTEND:20260316T131500Z",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:holiday",
	"SUMMARY:Holiday",
	"DTSTART;VALUE=DATE:20260305",
	"DTEND;VALUE=DATE:20260306",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"SUMMARY:No uid",
	"DTSTART:20260305T100000Z",
	"END:VEVENT",
)

func TestParse(t *testing.T) {
	events, errs, err := Parse([]byte(weeklyStandup), time.UTC)
	require.NoError(t, err)
	assert.Len(t, errs, 1)
	require.Len(t, events, 3)

	assert.Equal(t, "standup", events[0].UID)
	assert.Equal(t, "FREQ=WEEKLY;COUNT=6", events[0].RRule)
	require.Len(t, events[0].ExDates, 1)
	assert.True(t, events[0].ExDates[0].Equal(time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)))
	require.NotNil(t, events[1].RecurrenceID)

	holiday := events[2]
	assert.True(t, holiday.AllDay)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), holiday.Start)
	assert.Equal(t, time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC), holiday.End)

	_, _, err = Parse(nil, time.UTC)
	assert.ErrorIs(t, err, ErrEmptyBody)
}

func TestExpandAppliesExDatesAndOverrides(t *testing.T) {
	events, _, err := Parse([]byte(weeklyStandup), time.UTC)
	require.NoError(t, err)

	src := Source{ID: "team"}
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	res := Expand(src, events, from, from.AddDate(0, 2, 0), 0)

	starts := make([]string, 0)
	for _, occ := range res.Occurrences {
		if occ.EventID == "standup" {
			starts = append(starts, occ.Start.Format("01-02 15:04"))
			assert.True(t, occ.Recurring)
		}
	}
	assert.Equal(t, []string{"03-02 09:00", "03-16 13:00", "03-23 09:00", "03-30 09:00", "04-06 09:00"}, starts)
	for _, occ := range res.Occurrences {
		assert.Equal(t, ServiceName, occ.Source)
		assert.Equal(t, "team", occ.CalendarID)
		if occ.EventID == "holiday" {
			assert.True(t, occ.End.Before(time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)))
		}
	}
}

func TestExpandCapsOccurrences(t *testing.T) {
	events := []ParsedEvent{{
		UID:   "daily",
		Start: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		RRule: "FREQ=DAILY",
	}, {
		UID:   "broken",
		Start: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		RRule: "FREQ=NEVER",
	}}
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	res := Expand(Source{ID: "x"}, events, from, from.AddDate(1, 0, 0), 10)
	assert.Len(t, res.Occurrences, 10)
	assert.Equal(t, []string{"daily"}, res.Truncated)
	assert.Equal(t, []string{"broken"}, res.BadRules)
}

func TestExpandIncludesInstanceInProgress(t *testing.T) {
	events := []ParsedEvent{{
		UID:   "long",
		Start: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		RRule: "FREQ=DAILY;COUNT=3",
	}}
	from := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	res := Expand(Source{ID: "x"}, events, from, from.Add(time.Hour), 0)
	require.Len(t, res.Occurrences, 1)
	assert.Equal(t, 2, res.Occurrences[0].Start.Day())
}

func TestFetcherRevalidatesWithETag(t *testing.T) {
	var hits, notModified atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(weeklyStandup))
	}))
	defer srv.Close()

	f := NewFetcher(storage.NewMemoryStore())
	src := Source{ID: "team", URL: srv.URL + "/team.ics?token=secret"}

	first, err := f.Fetch(t.Context(), src)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := f.Fetch(t.Context(), src)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Body, second.Body)
	assert.EqualValues(t, 2, hits.Load())
	assert.EqualValues(t, 1, notModified.Load())
}

func TestFetcherFallsBackToCacheOnError(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if fail.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(weeklyStandup))
	}))
	defer srv.Close()

	f := NewFetcher(storage.NewMemoryStore())
	src := Source{ID: "team", URL: srv.URL}
	_, err := f.Fetch(t.Context(), src)
	require.NoError(t, err)

	fail.Store(true)
	res, err := f.Fetch(t.Context(), src)
	require.NoError(t, err)
	assert.True(t, res.FromCache)

	_, err = NewFetcher(storage.NewMemoryStore()).Fetch(t.Context(), src)
	assert.Error(t, err)
	_, err = f.Fetch(t.Context(), Source{ID: "empty"})
	assert.ErrorIs(t, err, ErrEmptyURL)
}

func TestServiceRefreshServesOverlay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.ics" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(weeklyStandup))
	}))
	defer srv.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(NewFetcher(storage.NewMemoryStore()), []Source{
		{ID: "team", Name: "Team", URL: srv.URL + "/team.ics"},
		{ID: "missing", Name: "Missing", URL: srv.URL + "/missing.ics"},
	}, WithClock(func() time.Time { return now }), WithLocation(time.UTC))

	statuses, err := svc.Refresh(t.Context())
	require.Error(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, "missing", statuses[0].Source.ID)
	assert.Error(t, statuses[0].Err)
	assert.Equal(t, "team", statuses[1].Source.ID)
	assert.Equal(t, 3, statuses[1].Events)
	assert.Len(t, svc.Status(), 2)

	reg := registry.New()
	require.NoError(t, reg.Register(ServiceName, svc))
	engine := calendar.NewEngine(nil, reg)
	week := engine.Agenda(t.Context(), now, now.AddDate(0, 0, 7))
	titles := make([]string, 0)
	for _, occ := range week {
		titles = append(titles, occ.Title)
	}
	assert.ElementsMatch(t, []string{"Standup", "Holiday"}, titles)

	_, err = svc.RefreshOne(t.Context(), "nope")
	assert.ErrorIs(t, err, ErrUnknownFeed)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://cal.example.com/...", redactURL("https://cal.example.com/private/abc.ics?token=x"))
	assert.Equal(t, "(redacted)", redactURL("not a url"))
}
