package backend

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/frameloop/gpu"
)

// Entry describes a registered backend.
type Entry struct {
	Name     string
	Priority int
	Factory  Factory

	// Probe reports whether the backend can run here. Nil means always.
	Probe func() bool
}

// Available reports whether the backend can be opened on this system.
func (e Entry) Available() bool {
	return e.Probe == nil || e.Probe()
}

var (
	registryMu sync.RWMutex
	entries    = make(map[string]Entry)
)

// Register adds a backend. Higher priority wins in Open(""). Registering a
// name twice replaces the earlier entry.
func Register(name string, priority int, factory Factory, probe func() bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	entries[name] = Entry{Name: name, Priority: priority, Factory: factory, Probe: probe}
}

// Unregister removes a backend. Used by tests.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(entries, name)
}

// Get returns the entry registered under name.
func Get(name string) (Entry, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	e, ok := entries[name]
	return e, ok
}

// List returns all registered entries, highest priority first. Ties are
// ordered by name.
func List() []Entry {
	registryMu.RLock()
	list := make([]Entry, 0, len(entries))
	for _, e := range entries {
		list = append(list, e)
	}
	registryMu.RUnlock()

	slices.SortFunc(list, func(a, b Entry) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return list
}

// Available returns the names of the backends that can run here, highest
// priority first.
func Available() []string {
	var names []string
	for _, e := range List() {
		if e.Available() {
			names = append(names, e.Name)
		}
	}
	return names
}

// Open creates the named backend. An empty name opens the highest priority
// available backend, falling back to the next one if a factory fails.
func Open(name string, opts Options) (gpu.Backend, error) {
	if name != "" {
		e, ok := Get(name)
		if !ok {
			return nil, &NotFoundError{Name: name}
		}
		if !e.Available() {
			return nil, &UnavailableError{Name: name}
		}
		b, err := e.Factory(opts)
		if err != nil {
			return nil, fmt.Errorf("backend: open %q: %w", name, err)
		}
		return b, nil
	}

	var errs []error
	for _, e := range List() {
		if !e.Available() {
			continue
		}
		b, err := e.Factory(opts)
		if err != nil {
			gpu.Logger().Warn("backend: factory failed, trying next", "backend", e.Name, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
			continue
		}
		return b, nil
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrNoBackendAvailable, errors.Join(errs...))
	}
	return nil, ErrNoBackendAvailable
}
