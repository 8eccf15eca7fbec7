package calendar

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/aegis/internal/registry"
	"github.com/sandeepkv93/aegis/internal/scheduler"
	"github.com/sandeepkv93/aegis/internal/storage"
)

func TestReminderScheduledAndCancelledByUpdate(t *testing.T) {
	now := at("2024-03-01", "10:00")
	env := newTestEnv(t, now)

	ev := mustAdd(t, env.engine, Event{
		Title:     "Call",
		Start:     now.Add(20 * time.Minute),
		Reminders: []Reminder{{Minutes: 15}},
	})

	pending := env.reminders.PendingFor(ev.ID)
	require.Len(t, pending, 1)
	assert.Equal(t, now.Add(5*time.Minute), pending[0].TriggerAt)
	assert.Equal(t, ReminderKey(ev.ID, 15), pending[0].ID)

	title := "Call (moved)"
	_, err := env.engine.UpdateEvent(t.Context(), ev.ID, EventPatch{Title: &title})
	require.NoError(t, err)
	assert.Len(t, env.reminders.PendingFor(ev.ID), 1)

	none := []Reminder{}
	_, err = env.engine.UpdateEvent(t.Context(), ev.ID, EventPatch{Reminders: &none})
	require.NoError(t, err)
	assert.Empty(t, env.reminders.PendingFor(ev.ID))
}

func TestReminderSkipsPastTriggers(t *testing.T) {
	now := at("2024-03-01", "10:00")
	env := newTestEnv(t, now)
	ev := mustAdd(t, env.engine, Event{
		Title:     "Soon",
		Start:     now.Add(10 * time.Minute),
		Reminders: []Reminder{{Minutes: 15}, {Minutes: 5}, {Minutes: 5}},
	})

	pending := env.reminders.PendingFor(ev.ID)
	require.Len(t, pending, 1)
	assert.Equal(t, now.Add(5*time.Minute), pending[0].TriggerAt)
}

func TestRecurringReminderUsesNextOccurrence(t *testing.T) {
	now := at("2024-03-05", "10:00")
	env := newTestEnv(t, now)
	ev := mustAdd(t, env.engine, Event{
		Title:      "Standup",
		Start:      at("2024-03-01", "09:00"),
		Recurrence: &Recurrence{Frequency: FrequencyDaily},
		Reminders:  []Reminder{{Minutes: 10}},
	})

	pending := env.reminders.PendingFor(ev.ID)
	require.Len(t, pending, 1)
	assert.Equal(t, at("2024-03-06", "08:50"), pending[0].TriggerAt)
}

func TestDeleteAndUndoReschedule(t *testing.T) {
	now := at("2024-03-01", "10:00")
	env := newTestEnv(t, now)
	ev := mustAdd(t, env.engine, Event{
		Title:     "Review",
		Start:     now.Add(2 * time.Hour),
		Reminders: []Reminder{{Minutes: 30}},
	})
	require.NoError(t, env.engine.DeleteEvent(t.Context(), ev.ID))
	assert.Empty(t, env.reminders.Pending())

	require.True(t, env.engine.Undo(t.Context()))
	assert.Len(t, env.reminders.PendingFor(ev.ID), 1)
}

func TestCheckRemindersFiresOnce(t *testing.T) {
	now := at("2024-03-01", "10:00")
	env := newTestEnv(t, now)
	ev := mustAdd(t, env.engine, Event{
		Title:     "Now-ish",
		Start:     now.Add(15 * time.Minute),
		Reminders: []Reminder{{Minutes: 15, Sound: true}},
	})
	// trigger equals now, so no timer was created
	require.Empty(t, env.reminders.PendingFor(ev.ID))

	fired := env.reminders.CheckReminders(t.Context(), now.Add(30*time.Second))
	require.Len(t, fired, 1)
	assert.Equal(t, ev.ID, fired[0].EventID)
	assert.True(t, fired[0].Sound)
	require.Len(t, env.fired, 1)

	assert.Empty(t, env.reminders.CheckReminders(t.Context(), now.Add(45*time.Second)))
	assert.Len(t, env.fired, 1)

	var marks map[string]time.Time
	found, err := env.store.Get(t.Context(), FiredStorageKey, &marks)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, marks, 1)
}

func TestCheckRemindersSkipsPendingTimer(t *testing.T) {
	now := at("2024-03-01", "10:00")
	env := newTestEnv(t, now)
	mustAdd(t, env.engine, Event{
		Title:     "Call",
		Start:     now.Add(20 * time.Minute),
		Reminders: []Reminder{{Minutes: 15}},
	})
	assert.Empty(t, env.reminders.CheckReminders(t.Context(), now.Add(5*time.Minute)))
	assert.Empty(t, env.reminders.CheckReminders(t.Context(), now.Add(time.Hour)))
}

func TestFiredMarksSurviveRestart(t *testing.T) {
	now := at("2024-03-01", "10:00")
	env := newTestEnv(t, now)
	mustAdd(t, env.engine, Event{
		Title:     "Call",
		Start:     now.Add(15 * time.Minute),
		Reminders: []Reminder{{Minutes: 15}},
	})
	require.Len(t, env.reminders.CheckReminders(t.Context(), now), 1)

	clock := func() time.Time { return now.Add(10 * time.Second) }
	restarted := NewReminders(scheduler.NewEngine(4), nil, env.store, WithReminderClock(clock))
	require.NoError(t, restarted.LoadFired(t.Context()))
	engine := NewEngine(env.store, nil, WithClock(clock), WithReminders(restarted))
	require.NoError(t, engine.Load(t.Context()))

	assert.Empty(t, restarted.CheckReminders(t.Context(), clock()))
	assert.Len(t, restarted.FiredMarks(), 1)
}

func TestFiredMarksPruned(t *testing.T) {
	store := storage.NewMemoryStore()
	now := at("2024-03-02", "10:00")
	require.NoError(t, store.Set(t.Context(), FiredStorageKey, map[string]time.Time{
		"old_5@1": now.Add(-25 * time.Hour),
		"new_5@2": now.Add(-time.Hour),
	}))
	r := NewReminders(scheduler.NewEngine(1), nil, store, WithReminderClock(func() time.Time { return now }))
	require.NoError(t, r.LoadFired(t.Context()))
	assert.Equal(t, []string{"new_5@2"}, r.FiredMarks())
}

func TestRemindersDispatchLoop(t *testing.T) {
	var (
		mu  sync.Mutex
		got []Notification
	)
	ch := make(chan struct{}, 1)
	notifier := NotifierFunc(func(n Notification) {
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
		ch <- struct{}{}
	})

	reminders := NewReminders(scheduler.NewEngine(4), notifier, storage.NewMemoryStore())
	engine := NewEngine(storage.NewMemoryStore(), registry.New(), WithReminders(reminders))
	require.NoError(t, reminders.Start(t.Context(), "@every 1m"))
	defer reminders.Stop()

	ev, err := engine.AddEvent(t.Context(), Event{
		Title:     "Ping",
		Start:     time.Now().Add(5*time.Minute + 50*time.Millisecond),
		Reminders: []Reminder{{Minutes: 5}},
	})
	require.NoError(t, err)

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reminder")
	}
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, ev.ID, got[0].EventID)
	assert.Equal(t, "Ping starts in 5 minutes", got[0].Message())
}

func TestNotificationMessage(t *testing.T) {
	assert.Equal(t, "A is starting now", Notification{Title: "A"}.Message())
	assert.Equal(t, "A starts in 1 minute", Notification{Title: "A", Minutes: 1}.Message())
	assert.Equal(t, "A starts in 2h", Notification{Title: "A", Minutes: 120}.Message())
}
