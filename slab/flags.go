package slab

import "github.com/IvanBrykalov/slabkit/arena"

// Flags configure a Cache at creation time.
type Flags uint32

const (
	// FlagNoTouch forces the external bufctl layout regardless of
	// object size: the allocator must never write into the object's
	// own storage, e.g. for DMA buffers or objects the caller maps into
	// userspace.
	FlagNoTouch Flags = 1 << iota
	// FlagQuantumCache sizes a bufctl-mode slab's import request from
	// the source arena's quantum-cache maximum (the next power of two at
	// or above three times it; the object size stands in when the arena
	// has no quantum cache) instead of DefaultSlotsPerSlab objects,
	// for caches whose source is already a sub-page quantum allocator.
	FlagQuantumCache
)

// AllocFlags modify a single Alloc call.
type AllocFlags uint32

const (
	// AllocNonBlocking instructs Alloc to fail with ErrOutOfMemory
	// rather than block when growth requires it. Bootstrap and
	// depot/magazine-internal allocations always pass this.
	AllocNonBlocking AllocFlags = 1 << iota
	// AllocMayPanic instructs Alloc to panic with ErrOutOfMemory
	// instead of returning it, for callers that treat allocation
	// failure as fatal.
	AllocMayPanic
)

func toArenaFlags(f AllocFlags) arena.AllocFlags {
	var out arena.AllocFlags
	if f&AllocNonBlocking != 0 {
		out |= arena.FlagNonBlocking
	}
	return out
}
