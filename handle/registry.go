package handle

import (
	"sync"

	"github.com/wippyai/handle-graph/errors"
)

// Config bounds a registry's growth. Zero values mean unbounded.
type Config struct {
	// MaxHandles caps the number of simultaneously live handles.
	MaxHandles int

	// MaxDependencies caps the number of edges stored per handle.
	MaxDependencies int
}

// Registry owns an arena of reference-counted handles forming an acyclic
// dependency graph. All mutation is serialized behind one lock; destructors
// and observer callbacks run outside it and may re-enter the registry.
type Registry struct {
	entries   []entry
	freeList  []Handle
	observers []Observer
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	cfg       Config
	live      int
	closed    bool
}

// NewRegistry creates an empty registry bounded by cfg.
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
		cfg:      cfg,
	}
}

// New stores resource and returns a fresh handle whose reference count is
// one, the creator's claim. The destructor may be nil; when set it runs
// exactly once, at teardown. Slots of torn-down handles are reused.
func (r *Registry) New(resource any, dtor Destructor) (Handle, error) {
	r.mu.Lock()

	if r.closed {
		r.mu.Unlock()
		return 0, errors.Closed(errors.PhaseCreate)
	}

	if r.cfg.MaxHandles > 0 && r.live >= r.cfg.MaxHandles {
		r.mu.Unlock()
		return 0, errors.AllocationFailed(errors.PhaseCreate, "handle table", r.cfg.MaxHandles)
	}

	e := entry{
		resource:   resource,
		destructor: dtor,
		refCount:   1,
		valid:      true,
	}

	var h Handle
	if n := len(r.freeList); n > 0 {
		h = r.freeList[n-1]
		r.freeList = r.freeList[:n-1]
		r.entries[h-1] = e
	} else {
		r.entries = append(r.entries, e)
		h = Handle(len(r.entries))
	}
	r.live++
	r.mu.Unlock()

	r.notify(Event{
		Type:     EventCreated,
		Handle:   h,
		Resource: resource,
		RefCount: 1,
	})

	return h, nil
}

// lookup returns the live entry for h, or nil. Callers must hold mu.
func (r *Registry) lookup(h Handle) *entry {
	if h == 0 || int(h) > len(r.entries) {
		return nil
	}
	e := &r.entries[h-1]
	if !e.valid {
		return nil
	}
	return e
}

// Resource returns the resource wrapped by h.
func (r *Registry) Resource(h Handle) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, errors.Closed(errors.PhaseBoundary)
	}

	e := r.lookup(h)
	if e == nil {
		return nil, errors.InvalidHandle(errors.PhaseBoundary, uint32(h))
	}
	return e.resource, nil
}

// RefCount returns h's current claim count.
func (r *Registry) RefCount(h Handle) (uint32, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return 0, errors.Closed(errors.PhaseBoundary)
	}

	e := r.lookup(h)
	if e == nil {
		return 0, errors.InvalidHandle(errors.PhaseBoundary, uint32(h))
	}
	return e.refCount, nil
}

// Dependencies returns a copy of h's stored edges in insertion order,
// duplicates included.
func (r *Registry) Dependencies(h Handle) ([]Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, errors.Closed(errors.PhaseBoundary)
	}

	e := r.lookup(h)
	if e == nil {
		return nil, errors.InvalidHandle(errors.PhaseBoundary, uint32(h))
	}

	deps := make([]Handle, len(e.dependencies))
	copy(deps, e.dependencies)
	return deps, nil
}

// Valid reports whether h names a live handle.
func (r *Registry) Valid(h Handle) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return false
	}
	return r.lookup(h) != nil
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.live
}

// Each iterates over live handles in slot order until fn returns false.
// The registry lock is held for the duration; fn must not call back in.
func (r *Registry) Each(fn func(Handle, any) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.entries {
		if r.entries[i].valid {
			if !fn(Handle(i+1), r.entries[i].resource) {
				break
			}
		}
	}
}

// Subscribe adds an observer for lifecycle events.
func (r *Registry) Subscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.observers = append(r.observers, o)
}

// Unsubscribe removes an observer.
func (r *Registry) Unsubscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	for i, obs := range r.observers {
		if obs == o {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}

// Close tears down every live handle regardless of outstanding claims,
// dependencies first, then rejects further operations. Close is idempotent.
// It returns the first destructor panic, if any.
func (r *Registry) Close() error {
	r.mu.Lock()

	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true

	var (
		items  []teardownItem
		events []Event
	)
	for _, h := range r.teardownOrder() {
		e := &r.entries[h-1]
		items = append(items, teardownItem{
			handle:     h,
			resource:   e.resource,
			destructor: e.destructor,
		})
		events = append(events, Event{
			Type:     EventDestroyed,
			Handle:   h,
			Resource: e.resource,
		})
	}

	r.entries = nil
	r.freeList = nil
	r.live = 0
	r.mu.Unlock()

	err := r.runDestructors(items)
	r.notifyAll(events)
	return err
}

// teardownOrder returns every live handle ordered dependencies first, so a
// handle is destroyed before anything that depends on it. Callers must hold
// mu. The graph is acyclic by construction, so the walk covers all of them.
func (r *Registry) teardownOrder() []Handle {
	// remaining[i] counts edges stored on handle i+1, duplicates included.
	remaining := make([]int, len(r.entries))
	dependents := make(map[Handle][]Handle)

	for i := range r.entries {
		e := &r.entries[i]
		if !e.valid {
			continue
		}
		remaining[i] = len(e.dependencies)
		for _, dep := range e.dependencies {
			dependents[dep] = append(dependents[dep], Handle(i+1))
		}
	}

	var queue []Handle
	for i := range r.entries {
		if r.entries[i].valid && remaining[i] == 0 {
			queue = append(queue, Handle(i+1))
		}
	}

	var order []Handle
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		order = append(order, h)

		for _, dependent := range dependents[h] {
			remaining[dependent-1]--
			if remaining[dependent-1] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	return order
}

func (r *Registry) notify(e Event) {
	r.obsMu.RLock()
	defer r.obsMu.RUnlock()
	for _, o := range r.observers {
		o.OnHandleEvent(e)
	}
}

func (r *Registry) notifyAll(events []Event) {
	for _, e := range events {
		r.notify(e)
	}
}
