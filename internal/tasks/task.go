// Package tasks is the to-do list: filtering and ordering, subtasks,
// repeating tasks, XP/level/streak bookkeeping and a snapshot undo stack.
package tasks

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

var (
	ErrTaskNotFound    = errors.New("tasks: task not found")
	ErrSubtaskNotFound = errors.New("tasks: subtask not found")
	ErrInvalidPriority = errors.New("tasks: invalid priority")
	ErrNothingToUndo   = errors.New("tasks: nothing to undo")
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

func ParsePriority(raw string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(raw)))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, raw)
	}
	return p, nil
}

func (p Priority) weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

// XP awarded the first time a task of this priority is completed.
func (p Priority) XP() int {
	switch p {
	case PriorityHigh:
		return 30
	case PriorityMedium:
		return 20
	default:
		return 10
	}
}

type Subtask struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority"`
	Category    string     `json:"category,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Subtasks    []Subtask  `json:"subtasks,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	Repeat      *Repeat    `json:"repeat,omitempty"`
	XPAwarded   bool       `json:"xpAwarded,omitempty"`

	// RepeatSpawned is set once the next instance of a repeating task exists.
	RepeatSpawned bool `json:"repeatSpawned,omitempty"`
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("tasks: task id is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("tasks: task title is required")
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	if t.CreatedAt.IsZero() {
		return errors.New("tasks: task created_at is required")
	}
	if t.Completed && t.CompletedAt == nil {
		return errors.New("tasks: completed_at is required when task is completed")
	}
	if !t.Completed && t.CompletedAt != nil {
		return errors.New("tasks: completed_at must be nil when task is not completed")
	}
	if t.Repeat != nil {
		if err := t.Repeat.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SubtaskProgress returns done and total subtask counts.
func (t Task) SubtaskProgress() (int, int) {
	done := 0
	for _, s := range t.Subtasks {
		if s.Done {
			done++
		}
	}
	return done, len(t.Subtasks)
}

func (t Task) Clone() Task {
	out := t
	if t.DueDate != nil {
		due := *t.DueDate
		out.DueDate = &due
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		out.CompletedAt = &at
	}
	if t.Repeat != nil {
		rep := *t.Repeat
		out.Repeat = &rep
	}
	out.Tags = slices.Clone(t.Tags)
	out.Subtasks = slices.Clone(t.Subtasks)
	return out
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	Title       *string
	Description *string
	Priority    *Priority
	Category    *string
	DueDate     **time.Time
	Tags        *[]string
	Repeat      **Repeat
}

func (p Patch) apply(t Task) Task {
	out := t.Clone()
	if p.Title != nil {
		out.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Priority != nil {
		out.Priority = *p.Priority
	}
	if p.Category != nil {
		out.Category = strings.TrimSpace(*p.Category)
	}
	if p.DueDate != nil {
		if *p.DueDate == nil {
			out.DueDate = nil
		} else {
			due := **p.DueDate
			out.DueDate = &due
		}
	}
	if p.Tags != nil {
		out.Tags = normalizeTags(*p.Tags)
	}
	if p.Repeat != nil {
		if *p.Repeat == nil {
			out.Repeat = nil
		} else {
			rep := **p.Repeat
			out.Repeat = &rep
		}
	}
	return out
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	return out
}

func cloneTasks(in []Task) []Task {
	out := make([]Task, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}
