// Package arena provides the address-space provider the slab allocator
// imports regions from (PageArena) and the bootstrap-safe allocator used
// before the main allocator is alive (BaseArena).
//
// Both are deliberately simple: the allocator core in package slab treats
// Arena as an external collaborator and only depends on the interface in
// arena.go. PageArena backs normal slab growth with page-aligned, mmap'd
// (or, on non-unix platforms, over-allocated) regions. BaseArena backs the
// three bootstrap-reserved caches and hash-index growth with a plain bump
// allocator, avoiding any dependency on the slab system it helps bring up.
package arena
