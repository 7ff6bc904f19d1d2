// Package handlegraph provides manual lifetime management for opaque
// native resources that depend on each other.
//
// Hosts that own resources allocated outside the Go heap (C allocations,
// wasm guest state, file-backed regions) need teardown to run exactly once
// and only after every user of a resource is gone. This library tracks
// those lifetimes with explicit claim counts and an acyclic dependency
// graph: releasing the last claim on a handle tears it down, and tearing
// it down releases the claims it held on its dependencies.
//
// # Architecture Overview
//
// The library is organized into a small set of packages:
//
//	handlegraph/         Root package with this overview
//	├── handle/          Core registry: handles, claims, dependency edges,
//	│                    cascading teardown, lifecycle observers
//	├── capsule/         Boundary adapter: tagged opaque boxes with a GC
//	│                    backstop for claims the host forgets to drop
//	├── wasmbind/        Boundary adapter: wazero host module exposing the
//	│                    registry to WASM guests as u32 handles
//	├── errors/          Structured error types shared by all packages
//	├── cmd/graphview/   CLI and TUI for walking a live registry
//	└── examples/        Runnable usage examples
//
// # Quick Start
//
// Create a registry, wire a graph, release the last claim:
//
//	reg := handle.NewRegistry(handle.Config{})
//
//	ctx, _ := reg.New(cContextPtr, freeContext)
//	node, _ := reg.New(cNodePtr, freeNode)
//
//	// node's teardown must release ctx, so the edge claims ctx.
//	if err := reg.AddDependency(node, ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	reg.Release(ctx)  // count 2 -> 1, nothing freed
//	reg.Release(node) // cascades: freeContext runs, then freeNode
//
// # Claims
//
// Every handle starts with one claim, held by its creator. Each dependency
// edge holds one more. A handle's destructor runs exactly once, when its
// claim count reaches zero, and never while another handle still claims it.
// Duplicate edges are legal; each occurrence holds its own claim.
//
// # Boundaries
//
// Pointers never cross a boundary. The capsule package boxes a handle with
// a type tag for host embeddings; the wasmbind package exports the registry
// to WASM guests, which hold bare u32 ids. Both adapters route every
// operation through the same registry, so claim accounting stays exact no
// matter which side drops last.
//
// # Thread Safety
//
// A Registry is safe for concurrent use. Destructors and observer
// callbacks run outside the registry lock, so they may call back into the
// registry. Callers must not release claims they do not hold.
package handlegraph
