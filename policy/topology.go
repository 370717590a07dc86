// Package policy supplies the pluggable critical-section strategy that
// guards a Cache's per-CPU fast path: how a logical CPU's
// state is chosen and guarded. A small interface handed to the consumer
// at construction time, with concrete strategies living in their own
// subpackages, so a caller can swap "which slot" and "how it's guarded"
// without touching the allocator core.
package policy

// CriticalSection brackets a caller's use of one Topology slot. Enter
// must not block indefinitely; Exit must be safe to call exactly once
// after a matching Enter. There is no true interrupt masking available
// to a Go program, so implementations approximate it with a guard
// scoped to a single goroutine's occupancy of the slot — see
// policy/percpu for the exact mechanism and its caveats.
type CriticalSection interface {
	Enter()
	Exit()
}

// Topology selects, for the calling goroutine, which of NumSlots()
// front-door slots to use for the duration of one allocator operation.
type Topology interface {
	// Pin returns the slot index to operate on and the critical
	// section guarding it. release must be called exactly once, after
	// the caller is done with the slot (symmetric with Pin, not with
	// Enter/Exit — a caller may Enter/Exit the same slot more than
	// once, e.g. across a retry loop, before releasing it).
	Pin() (slot int, cs CriticalSection, release func())
	// NumSlots reports how many slots a Cache should allocate state
	// for. Fixed for the lifetime of the Topology.
	NumSlots() int
}
