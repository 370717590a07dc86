package slab

import (
	"unsafe"

	"github.com/IvanBrykalov/slabkit/arena"
	"github.com/IvanBrykalov/slabkit/config"
	"github.com/IvanBrykalov/slabkit/policy"
)

// Ctor constructs a freshly carved object. It runs exactly once per
// object, the first time the object is carved from a slab; an object
// cycling through alloc/free via the magazine layer keeps its
// constructed state and is not re-constructed. A non-nil error aborts
// the allocation and returns the object to the slab unconstructed.
type Ctor func(obj uintptr, cookie unsafe.Pointer, flags AllocFlags) error

// Dtor tears down an object the moment it leaves the magazine subsystem
// for good: during a magazine drain, or when the free-fast-path bypasses
// the magazine layer entirely because a fresh magazine could not be
// obtained.
type Dtor func(obj uintptr, cookie unsafe.Pointer)

// CreateOptions configures a new Cache.
type CreateOptions struct {
	Name  string
	Size  uintptr
	Align uintptr
	Flags Flags

	Ctor   Ctor
	Dtor   Dtor
	Cookie unsafe.Pointer

	// Source is the arena new slabs are imported from. Defaults to a
	// shared, process-wide PageArena.
	Source arena.Arena

	Tunables config.Tunables
	Metrics  Metrics
	// Topology picks the critical-section strategy guarding the
	// per-CPU fast path (the depot has its own mutex). Defaults to one
	// guarded slot
	// per logical CPU (policy/percpu).
	Topology policy.Topology
}
