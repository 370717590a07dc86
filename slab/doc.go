// Package slab implements a type-specific, slab+magazine object allocator
// for a kernel-style runtime, following Bonwick and Adams's "Magazines and
// Vmem" paper layered on top of the classic Bonwick slab allocator.
//
// Design
//
//   - Three-tier hierarchy: each Cache owns a per-CPU cache array (the
//     lock-free fast path), a shared depot of magazines (amortizes
//     cross-CPU contention), and a slab back-end (the ground truth, which
//     imports regions from a source Arena). Allocation tries the per-CPU
//     cache first, falls back to the depot, and finally to the slab
//     back-end, which may grow by importing a fresh region.
//
//   - Two slab layouts: small, "touchable" objects use an embedded layout
//     where the slab's own bookkeeping lives at the tail of the imported
//     page and the free list is threaded through the objects themselves.
//     Large or "no-touch" objects use an external bufctl layout: a hash
//     index maps an object's address back to its bookkeeping record.
//
//   - Self-tuning magazines: the depot samples lock contention and grows
//     its target magazine capacity under sustained contention. The target
//     only ever grows; per-CPU caches pick it up lazily on their next
//     depot interaction.
//
//   - Bootstrap: three caches are reserved and brought up in a fixed
//     order before any other cache can be created — the magazine cache
//     (first, because every cache's per-CPU magazines, including its
//     own, are carved directly from its slab back-end), the slab-record
//     cache, and the bufctl cache. All three import from a dedicated
//     base arena to avoid circular dependencies on the general page
//     allocator.
//
// Concurrency
//
// The per-CPU fast path is guarded by a pluggable critical-section
// strategy (see package policy); the depot has its own mutex. By default
// the strategy is one guarded
// slot per logical CPU, upgradeable to one guarded slot per NUMA domain
// without any change to this package. Go has no user-level interrupt
// masking, so "IRQ disable" is approximated by a spin guard scoped to a
// single goroutine's use of its slot (see policy/percpu for the exact
// mechanism and its caveats).
//
// Basic usage
//
//	c, err := slab.Create(slab.CreateOptions{
//	    Name:  "widget",
//	    Size:  64,
//	    Align: 64,
//	})
//	obj, err := c.Alloc(0)
//	c.Free(obj)
//	c.Destroy()
package slab
