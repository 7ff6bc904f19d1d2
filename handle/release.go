package handle

import (
	"go.uber.org/zap"

	"github.com/wippyai/handle-graph/errors"
)

// teardownItem is one destructor invocation queued by a cascade.
type teardownItem struct {
	resource   any
	destructor Destructor
	handle     Handle
}

// frame tracks one handle mid-teardown; next indexes the first dependency
// edge not yet released.
type frame struct {
	handle Handle
	next   int
}

// Release gives up one claim on h. When the post-decrement count reaches
// zero the handle is torn down: each stored dependency edge is released in
// insertion order, duplicates included, then the destructor runs exactly
// once, then the slot is invalidated and recycled. Dependencies whose
// counts reach zero along the way tear down within the same cascade, so
// a handle's dependencies are destroyed before the handle itself.
//
// Release(0) is a no-op. Releasing a handle that was already torn down is
// an error; no registry state changes. A destructor panic is recovered and
// logged, remaining destructors still run, and the first panic comes back
// as a destructor_panic error.
func (r *Registry) Release(h Handle) error {
	if h == 0 {
		return nil
	}

	r.mu.Lock()

	if r.closed {
		r.mu.Unlock()
		return errors.Closed(errors.PhaseRelease)
	}

	if r.lookup(h) == nil {
		r.mu.Unlock()
		return errors.InvalidHandle(errors.PhaseRelease, uint32(h))
	}

	items, events := r.cascade(h)
	r.mu.Unlock()

	err := r.runDestructors(items)
	r.notifyAll(events)
	return err
}

// cascade releases one claim on h and tears down every handle whose count
// reaches zero. The explicit stack reproduces the order a recursive
// teardown would produce without growing the goroutine stack on deep
// graphs. Callers must hold mu.
//
// Bookkeeping for the whole cascade completes before any destructor runs;
// the returned items carry the queued invocations in dependency-first
// order, the returned events the claim-by-claim trace.
func (r *Registry) cascade(h Handle) ([]teardownItem, []Event) {
	var (
		items  []teardownItem
		events []Event
		stack  []frame
	)

	if r.decRef(h, &events) {
		stack = append(stack, frame{handle: h})
	}

	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		e := &r.entries[f.handle-1]

		if f.next < len(e.dependencies) {
			dep := e.dependencies[f.next]
			f.next++
			if r.decRef(dep, &events) {
				stack = append(stack, frame{handle: dep})
			}
			continue
		}

		items = append(items, teardownItem{
			handle:     f.handle,
			resource:   e.resource,
			destructor: e.destructor,
		})
		events = append(events, Event{
			Type:     EventDestroyed,
			Handle:   f.handle,
			Resource: e.resource,
		})

		e.resource = nil
		e.destructor = nil
		e.dependencies = nil
		e.valid = false
		r.freeList = append(r.freeList, f.handle)
		r.live--

		stack = stack[:len(stack)-1]
	}

	return items, events
}

// decRef drops one claim on h and reports whether the count reached zero.
// Callers must hold mu; h must be live.
func (r *Registry) decRef(h Handle, events *[]Event) bool {
	e := &r.entries[h-1]
	e.refCount--
	*events = append(*events, Event{
		Type:     EventReleased,
		Handle:   h,
		RefCount: e.refCount,
	})
	return e.refCount == 0
}

// runDestructors invokes queued destructors in order, recovering panics so
// one failing destructor cannot abort the rest of the cascade. The first
// panic is returned as a destructor_panic error.
func (r *Registry) runDestructors(items []teardownItem) error {
	var first error
	for _, it := range items {
		if it.destructor == nil {
			continue
		}
		if v := runDestructor(it.destructor, it.resource); v != nil {
			Logger().Warn("destructor panicked",
				zap.Uint32("handle", uint32(it.handle)),
				zap.Any("panic", v))
			if first == nil {
				first = errors.DestructorPanic(uint32(it.handle), v)
			}
		}
	}
	return first
}

// runDestructor invokes dtor and returns the recovered panic value, if any.
func runDestructor(dtor Destructor, resource any) (panicked any) {
	defer func() {
		panicked = recover()
	}()
	dtor(resource)
	return nil
}
