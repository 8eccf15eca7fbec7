package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xdoubleu/essentia/v2/pkg/logging"

	"github.com/sandeepkv93/aegis/internal/scheduler"
	"github.com/sandeepkv93/aegis/internal/storage"
)

const (
	FiredStorageKey = "aegis_calendar_fired"

	pollWindow     = 60 * time.Second
	firedRetention = 24 * time.Hour
)

type Notification struct {
	EventID string
	Title   string
	Minutes int
	Sound   bool
	// At is the trigger time; Start is the occurrence it announces.
	At    time.Time
	Start time.Time
}

func (n Notification) Message() string {
	switch {
	case n.Minutes == 0:
		return fmt.Sprintf("%s is starting now", n.Title)
	case n.Minutes == 1:
		return fmt.Sprintf("%s starts in 1 minute", n.Title)
	case n.Minutes%60 == 0:
		return fmt.Sprintf("%s starts in %dh", n.Title, n.Minutes/60)
	default:
		return fmt.Sprintf("%s starts in %d minutes", n.Title, n.Minutes)
	}
}

type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// ReminderKey identifies one reminder of one event.
func ReminderKey(eventID string, minutes int) string {
	return fmt.Sprintf("%s_%d", eventID, minutes)
}

func firedMark(key string, trigger time.Time) string {
	return fmt.Sprintf("%s@%d", key, trigger.Unix())
}

// Reminders owns the pending reminder timers. Timers run on the scheduler
// engine; a cron poll catches triggers the timers missed. Fired triggers
// are remembered so neither path fires the same trigger twice.
type Reminders struct {
	mu       sync.Mutex
	sched    *scheduler.Engine
	notifier Notifier
	store    storage.Store
	logger   *slog.Logger
	now      func() time.Time
	loc      *time.Location
	source   func() []Event
	fired    map[string]time.Time
	cron     *cron.Cron
	done     chan struct{}
}

type ReminderOption func(*Reminders)

func WithReminderLogger(logger *slog.Logger) ReminderOption {
	return func(r *Reminders) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithReminderClock(now func() time.Time) ReminderOption {
	return func(r *Reminders) {
		if now != nil {
			r.now = now
		}
	}
}

func WithReminderLocation(loc *time.Location) ReminderOption {
	return func(r *Reminders) {
		if loc != nil {
			r.loc = loc
		}
	}
}

func NewReminders(sched *scheduler.Engine, notifier Notifier, store storage.Store, opts ...ReminderOption) *Reminders {
	r := &Reminders{
		sched:    sched,
		notifier: notifier,
		store:    store,
		logger:   logging.NewNopLogger(),
		now:      time.Now,
		loc:      time.Local,
		source:   func() []Event { return nil },
		fired:    make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reminders) attach(source func() []Event) {
	r.mu.Lock()
	r.source = source
	r.mu.Unlock()
}

// LoadFired restores fired marks and drops the ones past retention.
func (r *Reminders) LoadFired(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	stored := map[string]time.Time{}
	if _, err := r.store.Get(ctx, FiredStorageKey, &stored); err != nil {
		return fmt.Errorf("load fired reminders: %w", err)
	}
	r.mu.Lock()
	r.fired = stored
	r.pruneLocked(r.now())
	r.mu.Unlock()
	return nil
}

// ScheduleEvent cancels every timer of ev and creates one per reminder whose
// next trigger lies in the future.
func (r *Reminders) ScheduleEvent(ev Event) {
	r.sched.CancelOwner(ev.ID)
	now := r.now()
	for _, rem := range ev.Reminders {
		trigger, start, ok := nextTrigger(ev, rem, now)
		if !ok {
			continue
		}
		key := ReminderKey(ev.ID, rem.Minutes)
		if r.hasFired(firedMark(key, trigger)) {
			continue
		}
		err := r.sched.Schedule(scheduler.Job{
			ID:        key,
			Owner:     ev.ID,
			TriggerAt: trigger,
			Payload: Notification{
				EventID: ev.ID,
				Title:   ev.Title,
				Minutes: rem.Minutes,
				Sound:   rem.Sound,
				At:      trigger,
				Start:   start,
			},
		})
		if err != nil {
			r.logger.Warn("failed to schedule reminder", slog.String("key", key), logging.ErrAttr(err))
		}
	}
}

func (r *Reminders) CancelEvent(eventID string) {
	r.sched.CancelOwner(eventID)
}

// ScheduleAll replaces every pending timer with timers for events.
func (r *Reminders) ScheduleAll(events []Event) {
	r.sched.CancelAll()
	for _, ev := range events {
		r.ScheduleEvent(ev)
	}
}

// Pending lists the pending reminder timers ordered by trigger time.
func (r *Reminders) Pending() []scheduler.Job {
	return r.sched.Pending()
}

func (r *Reminders) PendingFor(eventID string) []scheduler.Job {
	out := make([]scheduler.Job, 0)
	for _, job := range r.sched.Pending() {
		if job.Owner == eventID {
			out = append(out, job)
		}
	}
	return out
}

// nextTrigger finds the first occurrence whose reminder fires after now.
func nextTrigger(ev Event, rem Reminder, now time.Time) (time.Time, time.Time, bool) {
	offset := time.Duration(rem.Minutes) * time.Minute
	start, ok := nextOccurrence(ev, now.Add(offset).Add(time.Nanosecond))
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return start.Add(-offset), start, true
}

// CheckReminders fires reminders whose trigger is within a minute of now
// and that have no pending timer. It returns what it fired.
func (r *Reminders) CheckReminders(ctx context.Context, now time.Time) []Notification {
	r.mu.Lock()
	source := r.source
	r.mu.Unlock()

	fired := make([]Notification, 0)
	for _, ev := range source() {
		for _, rem := range ev.Reminders {
			offset := time.Duration(rem.Minutes) * time.Minute
			start, ok := nextOccurrence(ev, now.Add(offset).Add(-pollWindow))
			if !ok {
				continue
			}
			trigger := start.Add(-offset)
			if trigger.After(now.Add(pollWindow)) {
				continue
			}
			key := ReminderKey(ev.ID, rem.Minutes)
			if r.sched.IsPending(key) {
				continue
			}
			n := Notification{
				EventID: ev.ID,
				Title:   ev.Title,
				Minutes: rem.Minutes,
				Sound:   rem.Sound,
				At:      trigger,
				Start:   start,
			}
			if r.deliver(ctx, key, n) {
				fired = append(fired, n)
			}
		}
	}
	return fired
}

// deliver notifies once per trigger and records the fired mark.
func (r *Reminders) deliver(ctx context.Context, key string, n Notification) bool {
	mark := firedMark(key, n.At)
	r.mu.Lock()
	if _, ok := r.fired[mark]; ok {
		r.mu.Unlock()
		return false
	}
	now := r.now()
	r.fired[mark] = now
	r.pruneLocked(now)
	snapshot := make(map[string]time.Time, len(r.fired))
	for k, v := range r.fired {
		snapshot[k] = v
	}
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.Set(ctx, FiredStorageKey, snapshot); err != nil {
			r.logger.Error("failed to persist fired reminders", logging.ErrAttr(err))
		}
	}
	if r.notifier != nil {
		r.notifier.Notify(n)
	}
	r.logger.Info("reminder fired", slog.String("key", key), slog.Time("at", n.At))
	return true
}

func (r *Reminders) hasFired(mark string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.fired[mark]
	return ok
}

// FiredMarks returns the remembered fired triggers, sorted.
func (r *Reminders) FiredMarks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.fired))
	for k := range r.fired {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (r *Reminders) pruneLocked(now time.Time) {
	for k, at := range r.fired {
		if now.Sub(at) > firedRetention {
			delete(r.fired, k)
		}
	}
}

// Start runs the timer engine, the dispatch loop and the cron poll until
// Stop is called. ctx is passed to persistence calls made while firing.
func (r *Reminders) Start(ctx context.Context, pollSpec string) error {
	if strings.TrimSpace(pollSpec) == "" {
		pollSpec = "@every 1m"
	}
	c := cron.New(cron.WithLocation(r.loc))
	if _, err := c.AddFunc(pollSpec, func() {
		r.CheckReminders(ctx, r.now())
	}); err != nil {
		return fmt.Errorf("schedule reminder poll: %w", err)
	}

	r.mu.Lock()
	r.cron = c
	r.done = make(chan struct{})
	done := r.done
	r.mu.Unlock()

	r.sched.Start()
	c.Start()
	go r.dispatch(ctx, done)
	return nil
}

func (r *Reminders) Stop() {
	r.mu.Lock()
	c := r.cron
	done := r.done
	r.cron = nil
	r.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
	r.sched.Stop()
	if done != nil {
		<-done
	}
}

func (r *Reminders) dispatch(ctx context.Context, done chan struct{}) {
	defer close(done)
	for job := range r.sched.C() {
		n, ok := job.Payload.(Notification)
		if !ok {
			continue
		}
		r.deliver(ctx, job.ID, n)
		// recurring events get their next trigger once this one fired
		r.rescheduleByID(n.EventID)
	}
}

func (r *Reminders) rescheduleByID(eventID string) {
	r.mu.Lock()
	source := r.source
	r.mu.Unlock()
	for _, ev := range source() {
		if ev.ID == eventID && ev.IsRecurring() {
			r.ScheduleEvent(ev)
			return
		}
	}
}
