package capsule

import (
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/handle-graph/errors"
	"github.com/wippyai/handle-graph/handle"
)

// ErrTagMismatch matches every tag mismatch error under the standard
// errors.Is.
var ErrTagMismatch error = &errors.Error{Kind: errors.KindTagMismatch}

// Capsule boxes exactly one handle together with a string type tag. It is
// the bridge between a garbage-collected owner and the registry: when the
// capsule becomes unreachable, a runtime cleanup releases the boxed
// handle's claim, and an explicit Release does the same eagerly. Whichever
// runs first wins; the claim is given up exactly once.
type Capsule struct {
	reg      *handle.Registry
	tag      string
	h        handle.Handle
	cleanup  runtime.Cleanup
	mu       sync.Mutex
	released bool
}

// releaseArg carries what the runtime cleanup needs without referencing
// the capsule itself, which would keep it reachable forever.
type releaseArg struct {
	reg *handle.Registry
	h   handle.Handle
}

func releaseOnCleanup(a releaseArg) {
	if err := a.reg.Release(a.h); err != nil {
		Logger().Warn("cleanup release failed",
			zap.Uint32("handle", uint32(a.h)),
			zap.Error(err))
	}
}

// New creates a handle for resource in reg and boxes it under tag. The
// returned capsule owns the creator's claim; dtor, if non-nil, runs when
// the handle is torn down.
func New(reg *handle.Registry, resource any, tag string, dtor handle.Destructor) (*Capsule, error) {
	h, err := reg.New(resource, dtor)
	if err != nil {
		return nil, err
	}

	c := &Capsule{
		reg: reg,
		tag: tag,
		h:   h,
	}
	c.cleanup = runtime.AddCleanup(c, releaseOnCleanup, releaseArg{reg: reg, h: h})
	return c, nil
}

// Pointer returns the boxed resource. The supplied tag must match the tag
// the capsule was created under.
func (c *Capsule) Pointer(tag string) (any, error) {
	if tag != c.tag {
		return nil, errors.TagMismatch(c.tag, tag)
	}

	c.mu.Lock()
	released := c.released
	c.mu.Unlock()
	if released {
		return nil, errors.InvalidHandle(errors.PhaseBoundary, uint32(c.h))
	}

	return c.reg.Resource(c.h)
}

// Tag returns the capsule's type tag.
func (c *Capsule) Tag() string {
	return c.tag
}

// Handle returns the boxed handle id. After Release the id is stale and
// may have been reassigned.
func (c *Capsule) Handle() handle.Handle {
	return c.h
}

// Release gives up the capsule's claim and cancels the runtime cleanup.
// Only the first call releases; later calls are no-ops returning nil, so
// an explicit release followed by collection never double-decrements.
func (c *Capsule) Release() error {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return nil
	}
	c.released = true
	c.mu.Unlock()

	c.cleanup.Stop()
	return c.reg.Release(c.h)
}

// AddDependency unboxes both capsules and records that dependent's
// teardown must release dependency. Both capsules must box handles from
// the same registry and must not have been released.
func AddDependency(dependent, dependency *Capsule) error {
	if dependent.reg != dependency.reg {
		return errors.InvalidInput(errors.PhaseBoundary, "capsules belong to different registries")
	}
	if dependent.isReleased() {
		return errors.InvalidHandle(errors.PhaseBoundary, uint32(dependent.h))
	}
	if dependency.isReleased() {
		return errors.InvalidHandle(errors.PhaseBoundary, uint32(dependency.h))
	}
	return dependent.reg.AddDependency(dependent.h, dependency.h)
}

func (c *Capsule) isReleased() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}
