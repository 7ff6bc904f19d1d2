// Package wasmbind exposes a handle registry to WebAssembly guests.
//
// A guest cannot hold Go pointers, but it can hold the registry's u32
// handle ids. This package instantiates a wazero host module named
// "lifetime" whose exports let a guest participate in claim counting
// for resources the host created on its behalf.
//
// # Quick Start
//
// Instantiate the host module before compiling guests that import it:
//
//	reg := handle.NewRegistry(handle.Config{})
//	bind := wasmbind.New(reg)
//
//	rt := wazero.NewRuntime(ctx)
//	defer rt.Close(ctx)
//
//	if _, err := bind.Instantiate(ctx, rt); err != nil {
//	    log.Fatal(err)
//	}
//
// # Exports
//
// All signatures are declared as WIT types and flattened to core wasm
// types; Module.WIT renders the interface text for guest authors:
//
//	interface lifetime {
//	  add-dependency: func(dependent: u32, dependency: u32) -> s32;
//	  dec-ref: func(h: u32) -> s32;
//	  ref-count: func(h: u32) -> s64;
//	  valid: func(h: u32) -> s32;
//	}
//
// Mutating exports return a Status: 0 ok, 1 invalid-handle, 2 cycle,
// 3 allocation, 4 closed, 5 panic. ref-count returns -1 for a handle
// that is zero, stale, or unknown.
//
// # Ownership
//
// The host module borrows the registry; it does not own it. Handles a
// guest decrements to zero are torn down exactly as if the host had
// released them, destructors and observers included. Closing the wazero
// runtime does not close the registry.
package wasmbind
