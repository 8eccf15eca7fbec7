// Package shell is the window manager hosting app windows.
package shell

import (
	"errors"
	"fmt"
	"sync"
)

var ErrWindowNotFound = errors.New("shell: window not found")

type Options struct {
	Title   string
	Width   int
	Height  int
	Content any
}

type Window struct {
	ID        string
	Title     string
	Width     int
	Height    int
	Content   any
	Minimized bool
}

// Manager keeps windows in z-order; the last one is focused.
type Manager struct {
	mu       sync.Mutex
	order    []*Window
	onChange func()
}

func NewManager() *Manager {
	return &Manager{order: make([]*Window, 0)}
}

// OnChange registers a callback run after every change to the window set.
func (m *Manager) OnChange(fn func()) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// CreateWindow opens a window, or focuses it when id already exists.
func (m *Manager) CreateWindow(id string, opts Options) (*Window, error) {
	if id == "" {
		return nil, errors.New("shell: window id is required")
	}
	m.mu.Lock()
	if idx := m.indexLocked(id); idx >= 0 {
		w := m.raiseLocked(idx)
		m.mu.Unlock()
		m.changed()
		return w, nil
	}
	title := opts.Title
	if title == "" {
		title = id
	}
	w := &Window{
		ID:      id,
		Title:   title,
		Width:   opts.Width,
		Height:  opts.Height,
		Content: opts.Content,
	}
	m.order = append(m.order, w)
	m.mu.Unlock()
	m.changed()
	return w, nil
}

func (m *Manager) CloseWindow(id string) error {
	m.mu.Lock()
	idx := m.indexLocked(id)
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrWindowNotFound, id)
	}
	m.order = append(m.order[:idx], m.order[idx+1:]...)
	m.mu.Unlock()
	m.changed()
	return nil
}

func (m *Manager) FocusWindow(id string) error {
	m.mu.Lock()
	idx := m.indexLocked(id)
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrWindowNotFound, id)
	}
	m.raiseLocked(idx)
	m.mu.Unlock()
	m.changed()
	return nil
}

// FocusNext cycles focus to the bottom-most window.
func (m *Manager) FocusNext() (*Window, bool) {
	m.mu.Lock()
	if len(m.order) == 0 {
		m.mu.Unlock()
		return nil, false
	}
	w := m.raiseLocked(0)
	m.mu.Unlock()
	m.changed()
	return w, true
}

// Focused returns the top window.
func (m *Manager) Focused() (*Window, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.order) == 0 {
		return nil, false
	}
	return m.order[len(m.order)-1], true
}

// Windows returns windows bottom to top.
func (m *Manager) Windows() []*Window {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Window, len(m.order))
	copy(out, m.order)
	return out
}

func (m *Manager) Window(id string) (*Window, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexLocked(id)
	if idx < 0 {
		return nil, false
	}
	return m.order[idx], true
}

func (m *Manager) indexLocked(id string) int {
	for i, w := range m.order {
		if w.ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) raiseLocked(idx int) *Window {
	w := m.order[idx]
	w.Minimized = false
	m.order = append(m.order[:idx], m.order[idx+1:]...)
	m.order = append(m.order, w)
	return w
}

func (m *Manager) changed() {
	m.mu.Lock()
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}
