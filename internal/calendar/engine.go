package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xdoubleu/essentia/v2/pkg/logging"

	"github.com/sandeepkv93/aegis/internal/registry"
	"github.com/sandeepkv93/aegis/internal/storage"
)

const StorageKey = "aegis_calendar_data"

type persistedState struct {
	Events    []Event    `json:"events"`
	Calendars []Calendar `json:"calendars"`
}

type Engine struct {
	mu        sync.Mutex
	store     storage.Store
	reg       *registry.Registry
	logger    *slog.Logger
	now       func() time.Time
	weekStart time.Weekday
	window    time.Duration
	minGap    time.Duration
	reminders *Reminders

	events    []Event
	calendars []Calendar
	history   *history
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithWeekStart(day time.Weekday) Option {
	return func(e *Engine) { e.weekStart = day }
}

func WithHistoryLimit(limit int) Option {
	return func(e *Engine) { e.history = newHistory(limit) }
}

// WithAnalysisWindow sets the lookahead used by AnalyzeSchedule.
func WithAnalysisWindow(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.window = d
		}
	}
}

// WithMinGap sets the smallest free slot AnalyzeSchedule reports.
func WithMinGap(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.minGap = d
		}
	}
}

// WithReminders attaches the reminder service; every mutation reschedules
// the affected event's timers.
func WithReminders(r *Reminders) Option {
	return func(e *Engine) { e.reminders = r }
}

func NewEngine(store storage.Store, reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		reg:       reg,
		logger:    logging.NewNopLogger(),
		now:       time.Now,
		weekStart: time.Monday,
		window:    7 * 24 * time.Hour,
		minGap:    time.Hour,
		events:    make([]Event, 0),
		calendars: DefaultCalendars(),
		history:   newHistory(defaultHistoryLimit),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.history.reset(e.events)
	if e.reminders != nil {
		e.reminders.attach(e.Events)
	}
	return e
}

// Load restores events and calendar visibility. A missing key is an empty
// calendar.
func (e *Engine) Load(ctx context.Context) error {
	state := persistedState{}
	if e.store != nil {
		if _, err := e.store.Get(ctx, StorageKey, &state); err != nil {
			return fmt.Errorf("load calendar: %w", err)
		}
	}

	e.mu.Lock()
	e.calendars = mergeCalendars(state.Calendars)
	e.events = make([]Event, 0, len(state.Events))
	for _, ev := range state.Events {
		norm, err := normalize(ev, e.calendars)
		if err != nil {
			e.logger.Warn("dropping stored event", slog.String("id", ev.ID), logging.ErrAttr(err))
			continue
		}
		e.events = append(e.events, norm)
	}
	e.history.reset(e.events)
	snapshot := cloneEvents(e.events)
	e.mu.Unlock()

	if e.reminders != nil {
		e.reminders.ScheduleAll(snapshot)
	}
	return nil
}

func mergeCalendars(stored []Calendar) []Calendar {
	out := DefaultCalendars()
	for i := range out {
		for _, s := range stored {
			if s.ID == out[i].ID {
				out[i].Visible = s.Visible
				if s.Color != "" {
					out[i].Color = s.Color
				}
			}
		}
	}
	return out
}

func (e *Engine) AddEvent(ctx context.Context, ev Event) (Event, error) {
	e.mu.Lock()
	norm, err := normalize(ev, e.calendars)
	if err != nil {
		e.mu.Unlock()
		return Event{}, err
	}
	if norm.ID == "" || e.indexLocked(norm.ID) >= 0 {
		norm.ID = uuid.NewString()
	}
	now := e.now()
	if norm.CreatedAt.IsZero() {
		norm.CreatedAt = now
	}
	norm.UpdatedAt = now
	e.events = append(e.events, norm)
	e.commitLocked(ctx)
	e.mu.Unlock()

	if e.reminders != nil {
		e.reminders.ScheduleEvent(norm)
	}
	e.logger.Debug("event added", slog.String("id", norm.ID), slog.String("title", norm.Title))
	return norm.Clone(), nil
}

// UpdateEvent applies patch to the event with id.
func (e *Engine) UpdateEvent(ctx context.Context, id string, patch EventPatch) (Event, error) {
	e.mu.Lock()
	idx := e.indexLocked(id)
	if idx < 0 {
		e.mu.Unlock()
		return Event{}, fmt.Errorf("%w: %q", ErrEventNotFound, id)
	}
	updated, err := e.replaceLocked(ctx, idx, patch.apply(e.events[idx]))
	e.mu.Unlock()
	if err != nil {
		return Event{}, err
	}
	if e.reminders != nil {
		e.reminders.ScheduleEvent(updated)
	}
	return updated.Clone(), nil
}

// ReplaceEvent swaps the stored event with the same ID for ev.
func (e *Engine) ReplaceEvent(ctx context.Context, ev Event) (Event, error) {
	e.mu.Lock()
	idx := e.indexLocked(ev.ID)
	if idx < 0 {
		e.mu.Unlock()
		return Event{}, fmt.Errorf("%w: %q", ErrEventNotFound, ev.ID)
	}
	updated, err := e.replaceLocked(ctx, idx, ev.Clone())
	e.mu.Unlock()
	if err != nil {
		return Event{}, err
	}
	if e.reminders != nil {
		e.reminders.ScheduleEvent(updated)
	}
	return updated.Clone(), nil
}

func (e *Engine) replaceLocked(ctx context.Context, idx int, next Event) (Event, error) {
	prev := e.events[idx]
	norm, err := normalize(next, e.calendars)
	if err != nil {
		return Event{}, err
	}
	norm.ID = prev.ID
	norm.CreatedAt = prev.CreatedAt
	norm.UpdatedAt = e.now()
	e.events[idx] = norm
	e.commitLocked(ctx)
	return norm, nil
}

func (e *Engine) DeleteEvent(ctx context.Context, id string) error {
	e.mu.Lock()
	idx := e.indexLocked(id)
	if idx < 0 {
		e.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrEventNotFound, id)
	}
	e.events = append(e.events[:idx], e.events[idx+1:]...)
	e.commitLocked(ctx)
	e.mu.Unlock()

	if e.reminders != nil {
		e.reminders.CancelEvent(id)
	}
	return nil
}

func (e *Engine) GetEvent(id string) (Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx := e.indexLocked(id)
	if idx < 0 {
		return Event{}, fmt.Errorf("%w: %q", ErrEventNotFound, id)
	}
	return e.events[idx].Clone(), nil
}

// FindEvent resolves an exact ID or a unique ID prefix.
func (e *Engine) FindEvent(ref string) (Event, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Event{}, fmt.Errorf("%w: empty reference", ErrEventNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	var match *Event
	for i := range e.events {
		if e.events[i].ID == ref {
			return e.events[i].Clone(), nil
		}
		if strings.HasPrefix(e.events[i].ID, ref) {
			if match != nil {
				return Event{}, fmt.Errorf("%w: ambiguous reference %q", ErrEventNotFound, ref)
			}
			match = &e.events[i]
		}
	}
	if match == nil {
		return Event{}, fmt.Errorf("%w: %q", ErrEventNotFound, ref)
	}
	return match.Clone(), nil
}

// Events returns every stored event ordered by start.
func (e *Engine) Events() []Event {
	e.mu.Lock()
	out := cloneEvents(e.events)
	e.mu.Unlock()
	sortEvents(out)
	return out
}

func (e *Engine) Calendars() []Calendar {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Calendar, len(e.calendars))
	copy(out, e.calendars)
	return out
}

func (e *Engine) ToggleCalendar(ctx context.Context, id string) (Calendar, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.calendars {
		if e.calendars[i].ID == id {
			e.calendars[i].Visible = !e.calendars[i].Visible
			e.persistLocked(ctx)
			return e.calendars[i], nil
		}
	}
	return Calendar{}, fmt.Errorf("%w: %q", ErrCalendarNotFound, id)
}

// Undo steps back one history entry. It reports false when there is nothing
// to undo.
func (e *Engine) Undo(ctx context.Context) bool {
	e.mu.Lock()
	events, ok := e.history.undo()
	if ok {
		e.events = events
		e.persistLocked(ctx)
	}
	snapshot := cloneEvents(e.events)
	e.mu.Unlock()
	if ok && e.reminders != nil {
		e.reminders.ScheduleAll(snapshot)
	}
	return ok
}

func (e *Engine) Redo(ctx context.Context) bool {
	e.mu.Lock()
	events, ok := e.history.redo()
	if ok {
		e.events = events
		e.persistLocked(ctx)
	}
	snapshot := cloneEvents(e.events)
	e.mu.Unlock()
	if ok && e.reminders != nil {
		e.reminders.ScheduleAll(snapshot)
	}
	return ok
}

func (e *Engine) HistoryLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.len()
}

func (e *Engine) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.canUndo()
}

func (e *Engine) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.canRedo()
}

func (e *Engine) commitLocked(ctx context.Context) {
	e.history.record(e.events)
	e.persistLocked(ctx)
}

// persistLocked writes the current state. Failures are logged and the
// in-memory state is kept.
func (e *Engine) persistLocked(ctx context.Context) {
	if e.store == nil {
		return
	}
	state := persistedState{Events: e.events, Calendars: e.calendars}
	if err := e.store.Set(ctx, StorageKey, state); err != nil {
		e.logger.Error("failed to persist calendar", logging.ErrAttr(err))
	}
}

func (e *Engine) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range e.events {
		if e.events[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) visibleLocked() map[string]Calendar {
	out := make(map[string]Calendar, len(e.calendars))
	for _, c := range e.calendars {
		if c.Visible {
			out[c.ID] = c
		}
	}
	return out
}

func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return events[i].Title < events[j].Title
		}
		return events[i].Start.Before(events[j].Start)
	})
}

// IsNotFound reports whether err means the referenced event does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEventNotFound)
}
