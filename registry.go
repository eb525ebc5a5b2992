// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frameloop

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// ModuleInfo is a registered module with its dispatch parameters.
type ModuleInfo struct {
	Module      Module
	Name        string
	Priority    Priority
	Criticality Criticality
	Phases      PhaseMask

	seq uint64
}

// Critical reports whether the module is critical.
func (i ModuleInfo) Critical() bool { return i.Criticality == Critical }

// Registry holds the registered modules in dispatch order: ascending
// priority, ties broken by registration order.
//
// Registry is safe for concurrent use. Attach callbacks run on the
// registering goroutine, outside the registry lock.
type Registry struct {
	log *slog.Logger

	mu      sync.RWMutex
	modules []ModuleInfo
	seq     uint64
	subs    map[uint64]func(ModuleInfo)
	nextSub uint64
}

// NewRegistry creates an empty registry logging to the package logger.
func NewRegistry() *Registry {
	return newRegistry(Logger())
}

func newRegistry(log *slog.Logger) *Registry {
	return &Registry{log: log, subs: make(map[uint64]func(ModuleInfo))}
}

// RegisterModule adds m. It fails if m is nil or unnamed, if its name is
// already registered, or if it declares a phase without a handler.
func (r *Registry) RegisterModule(m Module, p Priority, c Criticality) error {
	if m == nil {
		return ErrNilModule
	}
	name := m.Name()
	if name == "" {
		return ErrUnnamedModule
	}
	mask := m.SupportedPhases() & AllPhases
	for _, phase := range mask.Phases() {
		if handlerFor(m, phase) == nil {
			return fmt.Errorf("%w: module %q declares %s", ErrMissingHandler, name, phase)
		}
	}

	r.mu.Lock()
	if slices.ContainsFunc(r.modules, func(i ModuleInfo) bool { return i.Name == name }) {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrDuplicateModule, name)
	}
	r.seq++
	info := ModuleInfo{Module: m, Name: name, Priority: p, Criticality: c, Phases: mask, seq: r.seq}
	r.modules = append(r.modules, info)
	slices.SortStableFunc(r.modules, compareDispatch)
	subs := make([]func(ModuleInfo), 0, len(r.subs))
	for _, id := range r.subIDsLocked() {
		subs = append(subs, r.subs[id])
	}
	r.mu.Unlock()

	r.log.Debug("frameloop: module registered",
		"module", name, "priority", int(p), "criticality", c.String(), "phases", mask.String())
	for _, cb := range subs {
		cb(info)
	}
	return nil
}

// UnregisterModule removes the named module. It reports whether it was
// registered. A frame already dispatching keeps its snapshot.
func (r *Registry) UnregisterModule(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.IndexFunc(r.modules, func(i ModuleInfo) bool { return i.Name == name })
	if i < 0 {
		return false
	}
	r.modules = slices.Delete(r.modules, i, i+1)
	return true
}

// Lookup returns the named module.
func (r *Registry) Lookup(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, i := range r.modules {
		if i.Name == name {
			return i.Module, true
		}
	}
	return nil, false
}

// GetModule returns the first module in dispatch order that is a T. It
// returns the zero T and false when none is registered.
func GetModule[T any](r *Registry) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, i := range r.modules {
		if t, ok := i.Module.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// SubscribeModuleAttached calls cb for every module registered from now on.
// With replayExisting, cb is first called for the modules already
// registered, in dispatch order. The returned function unsubscribes.
func (r *Registry) SubscribeModuleAttached(cb func(ModuleInfo), replayExisting bool) (unsubscribe func()) {
	r.mu.Lock()
	r.nextSub++
	id := r.nextSub
	r.subs[id] = cb
	var existing []ModuleInfo
	if replayExisting {
		existing = slices.Clone(r.modules)
	}
	r.mu.Unlock()

	for _, info := range existing {
		cb(info)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

// OnModuleAttached calls cb with every module that is a T, registered now
// (with replayExisting) or later. It is the late-binding form of GetModule.
func OnModuleAttached[T any](r *Registry, cb func(T), replayExisting bool) (unsubscribe func()) {
	return r.SubscribeModuleAttached(func(info ModuleInfo) {
		if t, ok := info.Module.(T); ok {
			cb(t)
		}
	}, replayExisting)
}

// Modules returns all modules in dispatch order.
func (r *Registry) Modules() []ModuleInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.modules)
}

// ModulesFor returns the modules interested in p, in dispatch order.
func (r *Registry) ModulesFor(p Phase) []ModuleInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ModuleInfo
	for _, i := range r.modules {
		if i.Phases.Has(p) {
			out = append(out, i)
		}
	}
	return out
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}

// subIDsLocked returns subscriber ids in subscription order.
func (r *Registry) subIDsLocked() []uint64 {
	ids := make([]uint64, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func compareDispatch(a, b ModuleInfo) int {
	if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
		return c
	}
	return cmp.Compare(a.seq, b.seq)
}
