// Package registry lets apps publish named services and discover each
// other's capabilities without global lookups.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrNotRegistered = errors.New("registry: service not registered")
	ErrCapability    = errors.New("registry: service lacks capability")
	ErrDuplicate     = errors.New("registry: service already registered")
)

type Registry struct {
	mu       sync.RWMutex
	services map[string]any
}

func New() *Registry {
	return &Registry{services: make(map[string]any)}
}

func (r *Registry) Register(name string, svc any) error {
	if name == "" || svc == nil {
		return errors.New("registry: name and service are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicate, name)
	}
	r.services[name] = svc
	return nil
}

func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	delete(r.services, name)
	r.mu.Unlock()
}

func (r *Registry) Get(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[name]
	return svc, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.services))
	for name := range r.services {
		out = append(out, name)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Lookup returns the service called name if it implements T.
func Lookup[T any](r *Registry, name string) (T, error) {
	var zero T
	if r == nil {
		return zero, fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}
	svc, ok := r.Get(name)
	if !ok {
		return zero, fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}
	typed, ok := svc.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q", ErrCapability, name)
	}
	return typed, nil
}

// All returns every registered service implementing T, ordered by name.
func All[T any](r *Registry) []T {
	if r == nil {
		return nil
	}
	out := make([]T, 0)
	for _, name := range r.Names() {
		svc, _ := r.Get(name)
		if typed, ok := svc.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}
