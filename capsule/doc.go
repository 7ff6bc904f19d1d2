// Package capsule boxes handles into wrappers owned by the Go garbage
// collector, for hosts whose references die in arbitrary order.
//
// A capsule pairs one handle with a string type tag. Unwrapping requires
// the matching tag, which catches a caller treating one resource kind as
// another:
//
//	reg := handle.NewRegistry(handle.Config{})
//
//	c, _ := capsule.New(reg, nativeConn, "db_conn_t", closeConn)
//
//	res, err := c.Pointer("db_conn_t") // ok
//	res, err = c.Pointer("db_stmt_t")  // tag_mismatch
//
// When the capsule becomes unreachable, a runtime cleanup releases the
// boxed handle's claim, so a collected wrapper cannot strand its resource.
// Release gives the claim up eagerly and cancels the cleanup; the pair
// never double-decrements:
//
//	_ = c.Release() // releases now
//	_ = c.Release() // no-op
//
// Dependency edges between boxed handles go through AddDependency, which
// unboxes both sides:
//
//	stmt, _ := capsule.New(reg, nativeStmt, "db_stmt_t", closeStmt)
//	_ = capsule.AddDependency(stmt, c)
//
// The usual destruction-order guarantees of the registry then apply
// regardless of which capsule the collector reclaims first.
package capsule
