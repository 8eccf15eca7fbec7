package shell

import (
	"errors"
	"testing"
)

func TestCreateWindowFocusesExisting(t *testing.T) {
	m := NewManager()
	if _, err := m.CreateWindow("calendar", Options{Title: "Calendar"}); err != nil {
		t.Fatalf("create calendar: %v", err)
	}
	if _, err := m.CreateWindow("tasks", Options{Title: "Tasks"}); err != nil {
		t.Fatalf("create tasks: %v", err)
	}

	w, err := m.CreateWindow("calendar", Options{Title: "ignored"})
	if err != nil {
		t.Fatalf("re-create calendar: %v", err)
	}
	if w.Title != "Calendar" {
		t.Fatalf("existing window should be kept, got title %q", w.Title)
	}
	if len(m.Windows()) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(m.Windows()))
	}
	focused, ok := m.Focused()
	if !ok || focused.ID != "calendar" {
		t.Fatalf("expected calendar focused, got %+v", focused)
	}
}

func TestCloseAndFocus(t *testing.T) {
	m := NewManager()
	changes := 0
	m.OnChange(func() { changes++ })

	for _, id := range []string{"a", "b", "c"} {
		if _, err := m.CreateWindow(id, Options{}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if err := m.FocusWindow("a"); err != nil {
		t.Fatalf("focus a: %v", err)
	}
	if focused, _ := m.Focused(); focused.ID != "a" {
		t.Fatalf("expected a focused, got %s", focused.ID)
	}
	if err := m.CloseWindow("a"); err != nil {
		t.Fatalf("close a: %v", err)
	}
	if focused, _ := m.Focused(); focused.ID != "c" {
		t.Fatalf("expected c focused after close, got %s", focused.ID)
	}
	if err := m.CloseWindow("a"); !errors.Is(err, ErrWindowNotFound) {
		t.Fatalf("expected ErrWindowNotFound, got %v", err)
	}
	if err := m.FocusWindow("zzz"); !errors.Is(err, ErrWindowNotFound) {
		t.Fatalf("expected ErrWindowNotFound, got %v", err)
	}
	if changes != 5 {
		t.Fatalf("expected 5 change callbacks, got %d", changes)
	}

	next, ok := m.FocusNext()
	if !ok || next.ID != "b" {
		t.Fatalf("expected b after cycling, got %+v", next)
	}
}
