package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which lifecycle operation produced the error
type Phase string

const (
	PhaseCreate   Phase = "create"   // handle construction
	PhaseLink     Phase = "link"     // dependency registration
	PhaseRelease  Phase = "release"  // claim release and teardown
	PhaseBoundary Phase = "boundary" // capsule boxing and unboxing
	PhaseHost     Phase = "host"     // host function registration
)

// Kind categorizes the error
type Kind string

const (
	KindAllocation      Kind = "allocation"
	KindInvalidHandle   Kind = "invalid_handle"
	KindCycle           Kind = "cycle"
	KindClosed          Kind = "closed"
	KindTagMismatch     Kind = "tag_mismatch"
	KindDestructorPanic Kind = "destructor_panic"
	KindRegistration    Kind = "registration"
	KindInvalidInput    Kind = "invalid_input"
)

// Error is the structured error type used throughout the library
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Tag    string
	Detail string
	Handle uint32 // offending handle id, zero when not applicable
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Handle != 0 {
		fmt.Fprintf(&b, " handle %d", e.Handle)
	}

	if e.Tag != "" {
		fmt.Fprintf(&b, " tag %q", e.Tag)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Kinds must agree; a target
// with an empty Phase matches any phase, which lets kind-only prototype
// values work with the standard errors.Is.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if e.Kind != t.Kind {
			return false
		}
		return t.Phase == "" || e.Phase == t.Phase
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Handle sets the offending handle id
func (b *Builder) Handle(h uint32) *Builder {
	b.err.Handle = h
	return b
}

// Tag sets the type tag involved
func (b *Builder) Tag(tag string) *Builder {
	b.err.Tag = tag
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// AllocationFailed creates an allocation failure error for a bounded
// registry that cannot grow further.
func AllocationFailed(phase Phase, what string, limit int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("cannot grow %s beyond %d entries", what, limit),
	}
}

// InvalidHandle creates an error for a handle id that is zero, out of
// range, or already torn down.
func InvalidHandle(phase Phase, h uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandle,
		Handle: h,
	}
}

// Cycle creates an error for a dependency edge that would close a loop
func Cycle(dependent, dependency uint32) *Error {
	return &Error{
		Phase:  PhaseLink,
		Kind:   KindCycle,
		Handle: dependent,
		Detail: fmt.Sprintf("edge to handle %d would close a dependency loop", dependency),
	}
}

// Closed creates an error for an operation against a closed registry
func Closed(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: "registry is closed",
	}
}

// TagMismatch creates an error for an unwrap attempt with the wrong type tag
func TagMismatch(want, got string) *Error {
	return &Error{
		Phase:  PhaseBoundary,
		Kind:   KindTagMismatch,
		Tag:    got,
		Detail: fmt.Sprintf("capsule holds %q", want),
	}
}

// DestructorPanic creates an error for a destructor that panicked during
// teardown. The panic value is folded into the detail message.
func DestructorPanic(h uint32, v any) *Error {
	return &Error{
		Phase:  PhaseRelease,
		Kind:   KindDestructorPanic,
		Handle: h,
		Detail: fmt.Sprintf("recovered: %v", v),
	}
}

// Registration creates a host function registration error
func Registration(namespace, name string, cause error) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s#%s", namespace, name),
		Cause:  cause,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
