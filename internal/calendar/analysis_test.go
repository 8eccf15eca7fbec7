package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFreeTimeSingleGap(t *testing.T) {
	env := newTestEnv(t, at("2024-05-01", "07:00"))
	mustAdd(t, env.engine, Event{Title: "A", Start: at("2024-05-01", "09:00"), End: at("2024-05-01", "10:00")})
	mustAdd(t, env.engine, Event{Title: "B", Start: at("2024-05-01", "12:00"), End: at("2024-05-01", "13:00")})

	gaps := env.engine.FindFreeTime(t.Context(), date("2024-05-01"), 0)
	require.Len(t, gaps, 1)
	assert.Equal(t, at("2024-05-01", "10:00"), gaps[0].Start)
	assert.Equal(t, at("2024-05-01", "12:00"), gaps[0].End)
	assert.Equal(t, int64(7_200_000), gaps[0].Duration.Milliseconds())

	assert.Len(t, env.engine.FindFreeTime(t.Context(), date("2024-05-01"), 2*time.Hour), 1)
	assert.Empty(t, env.engine.FindFreeTime(t.Context(), date("2024-05-01"), 3*time.Hour))
}

func TestFindFreeTimeIgnoresAllDayAndOverlaps(t *testing.T) {
	env := newTestEnv(t, at("2024-05-01", "07:00"))
	mustAdd(t, env.engine, Event{Title: "Holiday", Start: date("2024-05-01"), AllDay: true})
	mustAdd(t, env.engine, Event{Title: "Long", Start: at("2024-05-01", "09:00"), End: at("2024-05-01", "12:00")})
	mustAdd(t, env.engine, Event{Title: "Inside", Start: at("2024-05-01", "10:00"), End: at("2024-05-01", "10:30")})
	mustAdd(t, env.engine, Event{Title: "After", Start: at("2024-05-01", "14:00"), End: at("2024-05-01", "15:00")})

	gaps := env.engine.FindFreeTime(t.Context(), date("2024-05-01"), 0)
	require.Len(t, gaps, 1)
	assert.Equal(t, at("2024-05-01", "12:00"), gaps[0].Start)
	assert.Equal(t, 2*time.Hour, gaps[0].Duration)
}

func TestAnalyzeSchedule(t *testing.T) {
	now := at("2024-05-01", "07:00")
	env := newTestEnv(t, now)
	mustAdd(t, env.engine, Event{Title: "A", Start: at("2024-05-01", "09:00"), End: at("2024-05-01", "10:30")})
	mustAdd(t, env.engine, Event{Title: "B", Start: at("2024-05-01", "10:00"), End: at("2024-05-01", "11:00")})
	mustAdd(t, env.engine, Event{Title: "C", Start: at("2024-05-01", "11:30"), End: at("2024-05-01", "12:00")})
	mustAdd(t, env.engine, Event{Title: "D", Start: at("2024-05-01", "15:00"), End: at("2024-05-01", "16:00")})
	mustAdd(t, env.engine, Event{Title: "Far", Start: at("2024-05-20", "09:00")})

	result := env.engine.AnalyzeSchedule(t.Context(), now)
	assert.Equal(t, 4, result.EventCount)

	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "A", result.Conflicts[0].First.Title)
	assert.Equal(t, "B", result.Conflicts[0].Second.Title)
	assert.Equal(t, 30*time.Minute, result.Conflicts[0].Overlap)

	// 11:00-11:30 is too short, 12:00-15:00 qualifies
	require.Len(t, result.Gaps, 1)
	assert.Equal(t, at("2024-05-01", "12:00"), result.Gaps[0].Start)
	assert.Equal(t, 3*time.Hour, result.Gaps[0].Duration)

	assert.Equal(t, date("2024-05-01"), result.BusiestDay)
	assert.Equal(t, 4, result.BusiestCount)
	assert.Equal(t, 4*time.Hour, result.TotalBusy)
}

func TestAnalyzeScheduleCustomGap(t *testing.T) {
	now := at("2024-05-01", "07:00")
	env := newTestEnv(t, now, WithMinGap(15*time.Minute), WithAnalysisWindow(24*time.Hour))
	mustAdd(t, env.engine, Event{Title: "A", Start: at("2024-05-01", "09:00"), End: at("2024-05-01", "10:00")})
	mustAdd(t, env.engine, Event{Title: "B", Start: at("2024-05-01", "10:30"), End: at("2024-05-01", "11:00")})
	mustAdd(t, env.engine, Event{Title: "Next day", Start: at("2024-05-02", "09:00")})

	result := env.engine.AnalyzeSchedule(t.Context(), now)
	assert.Equal(t, 2, result.EventCount)
	assert.Len(t, result.Gaps, 1)
}

func TestSuggestBestTime(t *testing.T) {
	now := at("2024-05-01", "07:00")

	t.Run("gap fits", func(t *testing.T) {
		env := newTestEnv(t, now)
		mustAdd(t, env.engine, Event{Title: "A", Start: at("2024-05-01", "09:00"), End: at("2024-05-01", "10:00")})
		mustAdd(t, env.engine, Event{Title: "B", Start: at("2024-05-01", "12:00"), End: at("2024-05-01", "13:00")})

		s := env.engine.SuggestBestTime(t.Context(), now, 90)
		assert.Equal(t, ConfidenceHigh, s.Confidence)
		assert.Equal(t, at("2024-05-01", "10:00"), s.Start)
		assert.Equal(t, at("2024-05-01", "11:30"), s.End)
	})

	t.Run("after last event", func(t *testing.T) {
		env := newTestEnv(t, now)
		mustAdd(t, env.engine, Event{Title: "A", Start: at("2024-05-01", "09:00"), End: at("2024-05-01", "10:00")})
		mustAdd(t, env.engine, Event{Title: "B", Start: at("2024-05-01", "10:30"), End: at("2024-05-01", "13:00")})

		s := env.engine.SuggestBestTime(t.Context(), now, 60)
		assert.Equal(t, ConfidenceMedium, s.Confidence)
		assert.Equal(t, at("2024-05-01", "13:00"), s.Start)
	})

	t.Run("empty calendar", func(t *testing.T) {
		env := newTestEnv(t, now)
		s := env.engine.SuggestBestTime(t.Context(), now, 60)
		assert.Equal(t, ConfidenceLow, s.Confidence)
		assert.Equal(t, now.Add(time.Hour), s.Start)
		assert.Equal(t, now.Add(2*time.Hour), s.End)
	})
}
