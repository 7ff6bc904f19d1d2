package wasmbind

import (
	"errors"

	"github.com/wippyai/handle-graph/handle"
)

// Status is the s32 result every mutating export returns to the guest.
// Zero means success; every failure kind gets its own positive code so
// guests can branch without parsing host error strings.
type Status int32

const (
	StatusOK            Status = 0
	StatusInvalidHandle Status = 1
	StatusCycle         Status = 2
	StatusAllocation    Status = 3
	StatusClosed        Status = 4
	StatusPanic         Status = 5
	StatusInternal      Status = 6
)

// String implements fmt.Stringer
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInvalidHandle:
		return "invalid-handle"
	case StatusCycle:
		return "cycle"
	case StatusAllocation:
		return "allocation"
	case StatusClosed:
		return "closed"
	case StatusPanic:
		return "panic"
	case StatusInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// statusOf maps a registry error to its wire status.
func statusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, handle.ErrInvalidHandle):
		return StatusInvalidHandle
	case errors.Is(err, handle.ErrCycle):
		return StatusCycle
	case errors.Is(err, handle.ErrAllocation):
		return StatusAllocation
	case errors.Is(err, handle.ErrClosed):
		return StatusClosed
	case errors.Is(err, handle.ErrDestructorPanic):
		return StatusPanic
	default:
		return StatusInternal
	}
}
