package tasks

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/aegis/internal/calendar"
	"github.com/sandeepkv93/aegis/internal/registry"
	"github.com/sandeepkv93/aegis/internal/storage"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTestApp(t *testing.T, start time.Time) (*App, *clock, *storage.MemoryStore) {
	t.Helper()
	c := &clock{now: start}
	store := storage.NewMemoryStore()
	app := NewApp(store, WithClock(c.Now))
	require.NoError(t, app.Load(t.Context()))
	return app, c, store
}

func dueOn(day string) *time.Time {
	ts, err := time.Parse(time.DateOnly, day)
	if err != nil {
		panic(err)
	}
	return &ts
}

func TestAddValidatesAndDefaults(t *testing.T) {
	app, _, _ := newTestApp(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	task, err := app.Add(t.Context(), Task{Title: "  Write report ", Tags: []string{"#Work", "work", " "}})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "Write report", task.Title)
	assert.Equal(t, PriorityMedium, task.Priority)
	assert.Equal(t, []string{"work"}, task.Tags)

	_, err = app.Add(t.Context(), Task{Title: ""})
	require.Error(t, err)
	_, err = app.Add(t.Context(), Task{Title: "x", Priority: "urgent"})
	assert.True(t, errors.Is(err, ErrInvalidPriority))
}

func TestSortOrder(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	app, c, _ := newTestApp(t, base)

	add := func(title string, p Priority, due *time.Time) Task {
		c.now = c.now.Add(time.Minute)
		task, err := app.Add(t.Context(), Task{Title: title, Priority: p, DueDate: due})
		require.NoError(t, err)
		return task
	}
	done := add("done high", PriorityHigh, nil)
	add("low", PriorityLow, nil)
	add("high no due", PriorityHigh, nil)
	add("high late", PriorityHigh, dueOn("2026-03-10"))
	add("high soon", PriorityHigh, dueOn("2026-03-05"))
	add("high no due newer", PriorityHigh, nil)
	_, err := app.Toggle(t.Context(), done.ID)
	require.NoError(t, err)

	titles := make([]string, 0)
	for _, task := range app.Tasks() {
		titles = append(titles, task.Title)
	}
	assert.Equal(t, []string{
		"high soon",
		"high late",
		"high no due newer",
		"high no due",
		"low",
		"done high",
	}, titles)
}

func TestXPAndLevel(t *testing.T) {
	app, _, _ := newTestApp(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	for i, p := range []Priority{PriorityHigh, PriorityHigh, PriorityHigh, PriorityMedium, PriorityLow} {
		task, err := app.Add(t.Context(), Task{Title: fmt.Sprintf("t%d", i), Priority: p})
		require.NoError(t, err)
		_, err = app.Toggle(t.Context(), task.ID)
		require.NoError(t, err)
	}
	meta := app.Meta()
	assert.Equal(t, 120, meta.XP)
	assert.Equal(t, 2, meta.Level)
	assert.Equal(t, 5, meta.CompletedCount)
	assert.InDelta(t, 0.2, meta.LevelProgress(), 1e-9)
}

func TestXPAwardedOnlyOnFirstCompletion(t *testing.T) {
	app, _, _ := newTestApp(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	task, err := app.Add(t.Context(), Task{Title: "once", Priority: PriorityHigh})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = app.Toggle(t.Context(), task.ID)
		require.NoError(t, err)
	}
	got, err := app.Get(task.ID)
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.Equal(t, 30, app.Meta().XP)
}

func TestStreak(t *testing.T) {
	app, c, _ := newTestApp(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	complete := func() {
		task, err := app.Add(t.Context(), Task{Title: "daily"})
		require.NoError(t, err)
		_, err = app.Toggle(t.Context(), task.ID)
		require.NoError(t, err)
	}

	complete()
	assert.Equal(t, 1, app.Meta().Streak)

	c.now = c.now.Add(3 * time.Hour)
	complete()
	assert.Equal(t, 1, app.Meta().Streak, "same day is a no-op")

	c.now = c.now.AddDate(0, 0, 1)
	complete()
	assert.Equal(t, 2, app.Meta().Streak)

	c.now = c.now.AddDate(0, 0, 3)
	assert.Equal(t, 0, app.Meta().CurrentStreak(c.now))
	complete()
	meta := app.Meta()
	assert.Equal(t, 1, meta.Streak)
	assert.Equal(t, 2, meta.BestStreak)
	assert.Equal(t, "2026-03-05", meta.LastCompletionDay)
}

func TestUndoStack(t *testing.T) {
	app, _, _ := newTestApp(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	assert.True(t, errors.Is(app.Undo(t.Context()), ErrNothingToUndo))

	task, err := app.Add(t.Context(), Task{Title: "undo me", Priority: PriorityLow})
	require.NoError(t, err)
	_, err = app.Toggle(t.Context(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, app.Meta().XP)

	require.NoError(t, app.Undo(t.Context()))
	got, err := app.Get(task.ID)
	require.NoError(t, err)
	assert.False(t, got.Completed)
	assert.Equal(t, 0, app.Meta().XP)

	require.NoError(t, app.Undo(t.Context()))
	assert.Empty(t, app.Tasks())
}

func TestUndoStackCapped(t *testing.T) {
	app, _, _ := newTestApp(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	for i := 0; i < 25; i++ {
		_, err := app.Add(t.Context(), Task{Title: fmt.Sprintf("t%d", i)})
		require.NoError(t, err)
	}
	assert.Equal(t, 20, app.UndoDepth())
	for i := 0; i < 20; i++ {
		require.NoError(t, app.Undo(t.Context()))
	}
	assert.True(t, errors.Is(app.Undo(t.Context()), ErrNothingToUndo))
	assert.Len(t, app.Tasks(), 5)
}

func TestSubtasksAndClearCompleted(t *testing.T) {
	app, _, _ := newTestApp(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	task, err := app.Add(t.Context(), Task{Title: "parent"})
	require.NoError(t, err)

	sub, err := app.AddSubtask(t.Context(), task.ID, "child")
	require.NoError(t, err)
	_, err = app.ToggleSubtask(t.Context(), task.ID, sub.ID)
	require.NoError(t, err)
	got, err := app.Get(task.ID)
	require.NoError(t, err)
	done, total := got.SubtaskProgress()
	assert.Equal(t, 1, done)
	assert.Equal(t, 1, total)

	_, err = app.ToggleSubtask(t.Context(), task.ID, "nope")
	assert.True(t, errors.Is(err, ErrSubtaskNotFound))
	_, err = app.AddSubtask(t.Context(), "nope", "x")
	assert.True(t, errors.Is(err, ErrTaskNotFound))

	other, err := app.Add(t.Context(), Task{Title: "other"})
	require.NoError(t, err)
	_, err = app.Toggle(t.Context(), other.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, app.ClearCompleted(t.Context()))
	assert.Equal(t, 0, app.ClearCompleted(t.Context()))
	assert.Len(t, app.Tasks(), 1)
}

func TestRepeatingTaskSpawnsNextInstance(t *testing.T) {
	app, _, _ := newTestApp(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	task, err := app.Add(t.Context(), Task{
		Title:   "water plants",
		DueDate: dueOn("2026-03-02"),
		Repeat:  &Repeat{Frequency: RepeatWeekly},
	})
	require.NoError(t, err)
	_, err = app.AddSubtask(t.Context(), task.ID, "balcony")
	require.NoError(t, err)

	_, err = app.Toggle(t.Context(), task.ID)
	require.NoError(t, err)

	active := app.List(Filter{Status: StatusActive})
	require.Len(t, active, 1)
	assert.NotEqual(t, task.ID, active[0].ID)
	assert.Equal(t, "2026-03-09", active[0].DueDate.Format(time.DateOnly))
	assert.False(t, active[0].Subtasks[0].Done)
}

func TestRepeatingTaskSpawnsOnlyOnce(t *testing.T) {
	app, _, _ := newTestApp(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	task, err := app.Add(t.Context(), Task{
		Title:   "water plants",
		DueDate: dueOn("2026-03-02"),
		Repeat:  &Repeat{Frequency: RepeatWeekly},
	})
	require.NoError(t, err)

	for range 3 {
		done, err := app.Toggle(t.Context(), task.ID)
		require.NoError(t, err)
		require.True(t, done.Completed)
		reopened, err := app.Toggle(t.Context(), task.ID)
		require.NoError(t, err)
		require.False(t, reopened.Completed)
	}
	_, err = app.Toggle(t.Context(), task.ID)
	require.NoError(t, err)

	active := app.List(Filter{Status: StatusActive})
	require.Len(t, active, 1)
	assert.Equal(t, "2026-03-09", active[0].DueDate.Format(time.DateOnly))
	assert.False(t, active[0].RepeatSpawned)

	// the spawned instance repeats on its own completion
	_, err = app.Toggle(t.Context(), active[0].ID)
	require.NoError(t, err)
	active = app.List(Filter{Status: StatusActive})
	require.Len(t, active, 1)
	assert.Equal(t, "2026-03-16", active[0].DueDate.Format(time.DateOnly))
}

func TestFilters(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	app, _, _ := newTestApp(t, now)
	mk := func(task Task) Task {
		added, err := app.Add(t.Context(), task)
		require.NoError(t, err)
		return added
	}
	mk(Task{Title: "Pay rent", Category: "Home", DueDate: dueOn("2026-03-10"), Priority: PriorityHigh})
	mk(Task{Title: "File taxes", Category: "Home", DueDate: dueOn("2026-03-01"), Tags: []string{"money"}})
	mk(Task{Title: "Read book", Description: "fiction", Category: "Leisure", Priority: PriorityLow})
	done := mk(Task{Title: "Old chore", DueDate: dueOn("2026-02-01")})
	_, err := app.Toggle(t.Context(), done.ID)
	require.NoError(t, err)

	assert.Len(t, app.List(Filter{}), 4)
	assert.Len(t, app.List(Filter{Status: StatusActive}), 3)
	assert.Len(t, app.List(Filter{Status: StatusCompleted}), 1)
	today := app.List(Filter{Status: StatusToday})
	require.Len(t, today, 1)
	assert.Equal(t, "Pay rent", today[0].Title)
	overdue := app.List(Filter{Status: StatusOverdue})
	require.Len(t, overdue, 1)
	assert.Equal(t, "File taxes", overdue[0].Title)
	assert.Len(t, app.List(Filter{Category: "home"}), 2)
	assert.Len(t, app.List(Filter{Priority: PriorityLow}), 1)
	assert.Len(t, app.List(Filter{Tag: "#money"}), 1)
	assert.Len(t, app.List(Filter{Query: "FICTION"}), 1)
	assert.Equal(t, []string{"Home", "Leisure"}, app.Categories())

	stats := app.Stats(now)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, stats.Overdue)
	assert.Equal(t, 1, stats.DueToday)
	assert.InDelta(t, 0.25, stats.CompletionRate, 1e-9)
}

func TestPersistenceRoundTrip(t *testing.T) {
	app, _, store := newTestApp(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	task, err := app.Add(t.Context(), Task{Title: "persist", Priority: PriorityHigh, DueDate: dueOn("2026-03-04")})
	require.NoError(t, err)
	_, err = app.Toggle(t.Context(), task.ID)
	require.NoError(t, err)

	reloaded := NewApp(store)
	require.NoError(t, reloaded.Load(t.Context()))
	got, err := reloaded.Get(task.ID)
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.Equal(t, 30, reloaded.Meta().XP)
	assert.Equal(t, 0, reloaded.UndoDepth())

	found, err := reloaded.Find(task.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, task.ID, found.ID)
}

func TestOccurrencesOverlay(t *testing.T) {
	app, _, _ := newTestApp(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	_, err := app.Add(t.Context(), Task{Title: "due", DueDate: dueOn("2026-03-03")})
	require.NoError(t, err)
	_, err = app.Add(t.Context(), Task{Title: "later", DueDate: dueOn("2026-04-03")})
	require.NoError(t, err)
	_, err = app.Add(t.Context(), Task{Title: "undated"})
	require.NoError(t, err)

	reg := registry.New()
	require.NoError(t, reg.Register(ServiceName, app))
	engine := calendar.NewEngine(nil, reg)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	agenda := engine.Agenda(t.Context(), from, from.AddDate(0, 0, 7))
	require.Len(t, agenda, 1)
	assert.Equal(t, ServiceName, agenda[0].Source)
	assert.True(t, agenda[0].AllDay)
	assert.Contains(t, agenda[0].Title, "due")
}
