package slab

import "unsafe"

// maxMagazineCapacity bounds every magazine's round array at compile
// time, mirroring the fixed-size struct kmem_magazine of the allocator
// this package is modeled on (its rounds array is sized to a constant
// maximum, not a runtime-variable one). Tunables.MaxMagazine is clamped
// to this value. It is kept small enough that sizeof(magazine) comfortably
// clears Tunables.ObjectCutoff, so the magazine cache itself always uses
// the embedded slab layout — required, since the bufctl layout needs the
// slab-record and bufctl caches, which do not exist yet while the
// magazine cache is bootstrapping.
const maxMagazineCapacity = 16

// magazine is a bounded LIFO stack of rounds (freed object addresses).
// next threads magazines onto the depot's not-empty/empty singly-linked
// lists; it is meaningless while the magazine is held by a per-CPU cache.
type magazine struct {
	next   uintptr
	count  uint32
	rounds [maxMagazineCapacity]uintptr
}

func asMagazine(addr uintptr) *magazine {
	return (*magazine)(unsafe.Pointer(addr))
}

func init() {
	if unsafe.Sizeof(magazine{}) > 256 {
		panic("slab: magazine struct grew past the embedded-layout cutoff")
	}
}

func (m *magazine) isEmpty() bool { return m.count == 0 }
func (m *magazine) isFull(cap uint32) bool {
	if cap > maxMagazineCapacity {
		cap = maxMagazineCapacity
	}
	return m.count >= cap
}

func (m *magazine) push(obj uintptr) bool {
	if m.count >= maxMagazineCapacity {
		return false
	}
	m.rounds[m.count] = obj
	m.count++
	return true
}

func (m *magazine) pop() (uintptr, bool) {
	if m.count == 0 {
		return 0, false
	}
	m.count--
	return m.rounds[m.count], true
}
