// Package router implements round-robin selection over the fixed, ordered
// list of inference endpoints.
//
// The rotation pointer is restored from a store.PointerStore when the router
// is created and written back after every selection. Selection, advance and
// persist happen under one mutex, so concurrent requests never pick the same
// slot twice or lose an increment. A failed write is logged and otherwise
// ignored: the in-memory pointer still advances.
package router
