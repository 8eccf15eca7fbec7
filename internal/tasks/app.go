package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xdoubleu/essentia/v2/pkg/logging"

	"github.com/sandeepkv93/aegis/internal/storage"
)

const (
	TasksKey = "tasks"
	MetaKey  = "tasks_meta"

	defaultUndoLimit = 20
)

type snapshot struct {
	Tasks []Task `json:"tasks"`
	Meta  Meta   `json:"meta"`
}

type App struct {
	mu        sync.Mutex
	store     storage.Store
	logger    *slog.Logger
	now       func() time.Time
	undoLimit int

	tasks []Task
	meta  Meta
	undo  [][]byte
}

type Option func(*App)

func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *App) {
		if now != nil {
			a.now = now
		}
	}
}

func WithUndoLimit(limit int) Option {
	return func(a *App) {
		if limit > 0 {
			a.undoLimit = limit
		}
	}
}

func NewApp(store storage.Store, opts ...Option) *App {
	a := &App{
		store:     store,
		logger:    logging.NewNopLogger(),
		now:       time.Now,
		undoLimit: defaultUndoLimit,
		tasks:     make([]Task, 0),
		meta:      Meta{Level: 1},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *App) Load(ctx context.Context) error {
	tasks := make([]Task, 0)
	meta := Meta{Level: 1}
	if a.store != nil {
		if _, err := a.store.Get(ctx, TasksKey, &tasks); err != nil {
			return fmt.Errorf("load tasks: %w", err)
		}
		if _, err := a.store.Get(ctx, MetaKey, &meta); err != nil {
			return fmt.Errorf("load task meta: %w", err)
		}
	}
	meta.Level = LevelFor(meta.XP)

	valid := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			a.logger.Warn("dropping stored task", slog.String("id", t.ID), logging.ErrAttr(err))
			continue
		}
		valid = append(valid, t)
	}

	a.mu.Lock()
	a.tasks = valid
	a.meta = meta
	a.undo = nil
	a.mu.Unlock()
	return nil
}

func (a *App) Add(ctx context.Context, t Task) (Task, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if t.ID == "" || a.indexLocked(t.ID) >= 0 {
		t.ID = uuid.NewString()
	}
	t.Title = strings.TrimSpace(t.Title)
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = a.now()
	}
	t.Category = strings.TrimSpace(t.Category)
	t.Tags = normalizeTags(t.Tags)
	t.Completed = false
	t.CompletedAt = nil
	t.XPAwarded = false
	if err := t.Validate(); err != nil {
		return Task{}, err
	}

	a.pushUndoLocked()
	a.tasks = append(a.tasks, t)
	a.persistLocked(ctx)
	return t.Clone(), nil
}

func (a *App) Update(ctx context.Context, id string, patch Patch) (Task, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := a.indexLocked(id)
	if idx < 0 {
		return Task{}, fmt.Errorf("%w: %q", ErrTaskNotFound, id)
	}
	next := patch.apply(a.tasks[idx])
	if err := next.Validate(); err != nil {
		return Task{}, err
	}
	a.pushUndoLocked()
	a.tasks[idx] = next
	a.persistLocked(ctx)
	return next.Clone(), nil
}

func (a *App) Delete(ctx context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := a.indexLocked(id)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrTaskNotFound, id)
	}
	a.pushUndoLocked()
	a.tasks = append(a.tasks[:idx], a.tasks[idx+1:]...)
	a.persistLocked(ctx)
	return nil
}

// Toggle flips completion. The first completion of a task awards XP; every
// completion counts toward the day streak. Completing a repeating task with
// a due date adds its next instance, once per task.
func (a *App) Toggle(ctx context.Context, id string) (Task, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := a.indexLocked(id)
	if idx < 0 {
		return Task{}, fmt.Errorf("%w: %q", ErrTaskNotFound, id)
	}
	a.pushUndoLocked()

	t := a.tasks[idx].Clone()
	if t.Completed {
		t.Completed = false
		t.CompletedAt = nil
		a.tasks[idx] = t
		a.persistLocked(ctx)
		return t.Clone(), nil
	}

	now := a.now()
	t.Completed = true
	t.CompletedAt = &now
	if !t.XPAwarded {
		t.XPAwarded = true
		a.meta.addXP(t.Priority.XP())
		a.meta.CompletedCount++
	}
	a.meta.recordCompletion(now)

	if t.Repeat != nil && t.DueDate != nil && !t.RepeatSpawned {
		if next, err := a.nextInstance(t); err != nil {
			a.logger.Warn("failed to repeat task", slog.String("id", t.ID), logging.ErrAttr(err))
		} else {
			t.RepeatSpawned = true
			a.tasks = append(a.tasks, next)
		}
	}
	a.tasks[idx] = t

	a.persistLocked(ctx)
	return t.Clone(), nil
}

func (a *App) nextInstance(done Task) (Task, error) {
	due, err := done.Repeat.NextDue(*done.DueDate, done.CompletedAt)
	if err != nil {
		return Task{}, err
	}
	next := done.Clone()
	next.ID = uuid.NewString()
	next.DueDate = &due
	next.Completed = false
	next.CompletedAt = nil
	next.XPAwarded = false
	next.RepeatSpawned = false
	next.CreatedAt = a.now()
	for i := range next.Subtasks {
		next.Subtasks[i].Done = false
	}
	return next, nil
}

func (a *App) AddSubtask(ctx context.Context, taskID, title string) (Subtask, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Subtask{}, fmt.Errorf("tasks: subtask title is required")
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := a.indexLocked(taskID)
	if idx < 0 {
		return Subtask{}, fmt.Errorf("%w: %q", ErrTaskNotFound, taskID)
	}
	a.pushUndoLocked()
	sub := Subtask{ID: uuid.NewString(), Title: title}
	a.tasks[idx].Subtasks = append(a.tasks[idx].Subtasks, sub)
	a.persistLocked(ctx)
	return sub, nil
}

func (a *App) ToggleSubtask(ctx context.Context, taskID, subtaskID string) (Subtask, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := a.indexLocked(taskID)
	if idx < 0 {
		return Subtask{}, fmt.Errorf("%w: %q", ErrTaskNotFound, taskID)
	}
	for i := range a.tasks[idx].Subtasks {
		if a.tasks[idx].Subtasks[i].ID != subtaskID {
			continue
		}
		a.pushUndoLocked()
		a.tasks[idx].Subtasks[i].Done = !a.tasks[idx].Subtasks[i].Done
		sub := a.tasks[idx].Subtasks[i]
		a.persistLocked(ctx)
		return sub, nil
	}
	return Subtask{}, fmt.Errorf("%w: %q", ErrSubtaskNotFound, subtaskID)
}

// ClearCompleted removes completed tasks and returns how many went.
func (a *App) ClearCompleted(ctx context.Context) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	kept := make([]Task, 0, len(a.tasks))
	for _, t := range a.tasks {
		if !t.Completed {
			kept = append(kept, t)
		}
	}
	removed := len(a.tasks) - len(kept)
	if removed == 0 {
		return 0
	}
	a.pushUndoLocked()
	a.tasks = kept
	a.persistLocked(ctx)
	return removed
}

// Undo restores the state before the most recent mutation.
func (a *App) Undo(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.undo) == 0 {
		return ErrNothingToUndo
	}
	raw := a.undo[len(a.undo)-1]
	a.undo = a.undo[:len(a.undo)-1]

	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("decode undo snapshot: %w", err)
	}
	if snap.Tasks == nil {
		snap.Tasks = make([]Task, 0)
	}
	a.tasks = snap.Tasks
	a.meta = snap.Meta
	a.persistLocked(ctx)
	return nil
}

func (a *App) UndoDepth() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.undo)
}

func (a *App) Get(id string) (Task, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx := a.indexLocked(id)
	if idx < 0 {
		return Task{}, fmt.Errorf("%w: %q", ErrTaskNotFound, id)
	}
	return a.tasks[idx].Clone(), nil
}

// Find resolves an exact ID or a unique ID prefix.
func (a *App) Find(ref string) (Task, error) {
	ref = strings.TrimSpace(ref)
	a.mu.Lock()
	defer a.mu.Unlock()
	found := -1
	for i, t := range a.tasks {
		if t.ID == ref {
			return t.Clone(), nil
		}
		if ref != "" && strings.HasPrefix(t.ID, ref) {
			if found >= 0 {
				return Task{}, fmt.Errorf("%w: ambiguous reference %q", ErrTaskNotFound, ref)
			}
			found = i
		}
	}
	if found < 0 {
		return Task{}, fmt.Errorf("%w: %q", ErrTaskNotFound, ref)
	}
	return a.tasks[found].Clone(), nil
}

// Tasks returns every task in display order.
func (a *App) Tasks() []Task {
	a.mu.Lock()
	out := cloneTasks(a.tasks)
	a.mu.Unlock()
	Sort(out)
	return out
}

func (a *App) Meta() Meta {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.meta
}

// pushUndoLocked snapshots the state before a mutation.
func (a *App) pushUndoLocked() {
	raw, err := json.Marshal(snapshot{Tasks: a.tasks, Meta: a.meta})
	if err != nil {
		a.logger.Error("failed to snapshot tasks", logging.ErrAttr(err))
		return
	}
	a.undo = append(a.undo, raw)
	if over := len(a.undo) - a.undoLimit; over > 0 {
		a.undo = a.undo[over:]
	}
}

func (a *App) persistLocked(ctx context.Context) {
	if a.store == nil {
		return
	}
	if err := a.store.Set(ctx, TasksKey, a.tasks); err != nil {
		a.logger.Error("failed to persist tasks", logging.ErrAttr(err))
	}
	if err := a.store.Set(ctx, MetaKey, a.meta); err != nil {
		a.logger.Error("failed to persist task meta", logging.ErrAttr(err))
	}
}

func (a *App) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range a.tasks {
		if a.tasks[i].ID == id {
			return i
		}
	}
	return -1
}
