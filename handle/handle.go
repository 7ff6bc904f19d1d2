package handle

import (
	"github.com/wippyai/handle-graph/errors"
)

// Handle is an opaque reference to a resource in a registry.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Destructor tears down the resource wrapped by a handle. It runs exactly
// once, after every dependency edge stored on the handle has been released,
// and receives the resource that was passed to New.
type Destructor func(resource any)

// Prototype errors for use with the standard errors.Is. Each matches every
// error of its kind regardless of the phase that produced it.
var (
	ErrInvalidHandle   error = &errors.Error{Kind: errors.KindInvalidHandle}
	ErrCycle           error = &errors.Error{Kind: errors.KindCycle}
	ErrClosed          error = &errors.Error{Kind: errors.KindClosed}
	ErrAllocation      error = &errors.Error{Kind: errors.KindAllocation}
	ErrDestructorPanic error = &errors.Error{Kind: errors.KindDestructorPanic}
)

// entry is one arena slot. A live entry's refCount is one for the creating
// claim plus one per unreleased dependency edge naming it.
type entry struct {
	resource     any
	destructor   Destructor
	dependencies []Handle
	refCount     uint32
	valid        bool
}
