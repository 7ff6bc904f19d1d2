package handle

import (
	"github.com/wippyai/handle-graph/errors"
)

// AddDependency records that dependent's teardown must release dependency,
// appending one edge to dependent's list and taking one claim on dependency.
// The same edge may be stored any number of times; each copy holds its own
// claim and is released independently. Edges that would close a loop,
// including self-edges, are rejected. On failure neither handle changes.
func (r *Registry) AddDependency(dependent, dependency Handle) error {
	r.mu.Lock()

	if r.closed {
		r.mu.Unlock()
		return errors.Closed(errors.PhaseLink)
	}

	de := r.lookup(dependent)
	if de == nil {
		r.mu.Unlock()
		return errors.InvalidHandle(errors.PhaseLink, uint32(dependent))
	}

	dep := r.lookup(dependency)
	if dep == nil {
		r.mu.Unlock()
		return errors.InvalidHandle(errors.PhaseLink, uint32(dependency))
	}

	if r.cfg.MaxDependencies > 0 && len(de.dependencies) >= r.cfg.MaxDependencies {
		r.mu.Unlock()
		return errors.AllocationFailed(errors.PhaseLink, "dependency list", r.cfg.MaxDependencies)
	}

	if dependent == dependency || r.reaches(dependency, dependent) {
		r.mu.Unlock()
		return errors.Cycle(uint32(dependent), uint32(dependency))
	}

	de.dependencies = append(de.dependencies, dependency)
	dep.refCount++
	count := dep.refCount
	r.mu.Unlock()

	r.notify(Event{
		Type:     EventLinked,
		Handle:   dependent,
		Related:  dependency,
		RefCount: count,
	})

	return nil
}

// reaches reports whether from can reach to over dependency edges. Callers
// must hold mu. The graph is acyclic so the walk terminates; the visited
// set keeps diamond shapes from being walked twice.
func (r *Registry) reaches(from, to Handle) bool {
	visited := make(map[Handle]bool)
	stack := []Handle{from}

	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[h] {
			continue
		}
		visited[h] = true

		for _, dep := range r.entries[h-1].dependencies {
			if dep == to {
				return true
			}
			if !visited[dep] {
				stack = append(stack, dep)
			}
		}
	}

	return false
}
