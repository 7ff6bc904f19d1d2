// Package errors provides structured error types for the handle-graph library.
//
// Errors are categorized by Phase (which lifecycle operation failed) and Kind
// (error category). The Error type includes rich context: the offending handle
// id, the type tag involved, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseRelease, errors.KindInvalidHandle).
//		Handle(7).
//		Detail("handle already torn down").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidHandle(errors.PhaseRelease, 7)
//	err := errors.Cycle(3, 1)
//
// All errors implement the standard error interface and support errors.Is/As.
// Two Errors match under errors.Is when their Kinds agree and the target's
// Phase is empty or equal, so callers can test against exported prototype
// values (such as handle.ErrCycle) without inspecting fields.
package errors
