// Package handle provides reference-counted lifetime management for opaque
// native resources that form an acyclic dependency graph.
//
// A registry is meant to sit between a managed-memory host (a scripting
// runtime, a WASM guest, Go finalizers) and resources whose teardown must
// happen in dependency order. The host frees its references in whatever
// order its collector chooses; the registry guarantees that no resource is
// destroyed while something still depends on it.
//
// # Handles and Claims
//
// Each resource is wrapped in a Handle, a stable uint32 id into a
// registry-owned arena. Handle 0 is reserved and always invalid. A fresh
// handle carries exactly one claim, the creator's:
//
//	reg := handle.NewRegistry(handle.Config{})
//
//	conn, _ := reg.New(nativeConn, func(res any) {
//	    res.(*dbConn).close()
//	})
//
//	// Retrieve the wrapped resource
//	res, err := reg.Resource(conn)
//
// # Dependencies
//
// A dependency edge keeps the dependency alive until the dependent is torn
// down. Registering the edge takes one additional claim on the dependency:
//
//	stmt, _ := reg.New(nativeStmt, closeStmt)
//	if err := reg.AddDependency(stmt, conn); err != nil { ... }
//
// Edges are stored in insertion order and may repeat; each copy holds its
// own claim and is released on its own. Edges that would close a loop,
// including self-edges, are rejected with a cycle error.
//
// # Release
//
// Release gives up one claim. The handle is torn down when, and only when,
// its count reaches zero:
//
//	reg.Release(stmt) // stmt's count 1 -> 0: teardown
//
// Teardown releases the handle's stored edges in insertion order, runs the
// destructor exactly once, and recycles the slot. Dependencies whose counts
// hit zero tear down in the same cascade, so releasing the root of a chain
// destroys the whole chain in one call.
//
// Within a cascade a dependency's destructor runs before its dependent's.
// A destructor must therefore not touch the resources its handle depends
// on; it receives its own resource and should confine itself to that.
//
// # Bounds
//
// Config caps growth. A registry that would exceed MaxHandles live entries
// or MaxDependencies edges on one handle fails the operation with an
// allocation error and mutates nothing, which gives tests a deterministic
// way to exercise allocation failure:
//
//	reg := handle.NewRegistry(handle.Config{MaxHandles: 2})
//
// # Observers
//
// Subscribe streams lifecycle events (created, linked, released,
// destroyed) to observers. Callbacks run outside the registry lock, after
// the cascade's destructors, and may call back into the registry.
// NewLogObserver adapts a zap logger for tracing.
//
// # Concurrency and Shutdown
//
// A Registry is safe for concurrent use; every operation is synchronous
// and non-blocking. Callers must still release only claims they hold.
// Close force-tears-down all live handles in dependency order, ignoring
// outstanding claims, and subsequent operations fail with a closed error.
package handle
