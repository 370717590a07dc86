package slab

import (
	"unsafe"

	"github.com/IvanBrykalov/slabkit/arena"
)

// allocFromSlab is the ground-truth allocation path: find (or grow) a
// slab with a free slot, carve an object out of it, and run the
// constructor. It is also how a brand-new cache's first per-CPU
// magazines are obtained, bypassing the magazine subsystem entirely
// (see buildPerCPUCaches).
func (c *Cache) allocFromSlab(flags AllocFlags) (uintptr, error) {
	c.mu.Lock()
	s := c.partialHead
	if s == 0 {
		if c.emptyHead == 0 {
			if !c.grow(flags) {
				c.mu.Unlock()
				if flags&AllocMayPanic != 0 {
					panic(ErrOutOfMemory)
				}
				return 0, ErrOutOfMemory
			}
		}
		s = c.emptyHead
	}

	rec := asSlabRecord(s)
	var obj uintptr
	if !c.useBufctlMode {
		obj = rec.freeSmall
		rec.freeSmall = *(*uintptr)(unsafe.Pointer(obj))
	} else {
		bcAddr := rec.freeBufctl
		bc := asBufctl(bcAddr)
		rec.freeBufctl = bc.freeNext
		bc.freeNext = 0
		c.hashInsert(bc, bcAddr)
		obj = bc.bufAddr
	}
	rec.busy++
	c.relocate(s, rec)
	c.liveAlloc.Add(1)
	c.mu.Unlock()

	if c.ctor != nil {
		if err := c.ctor(obj, c.cookie, flags); err != nil {
			c.freeToSlab(obj)
			c.metrics.CtorFailed(c.name)
			return 0, ErrCtorFailed
		}
	}
	return obj, nil
}

// freeToSlab returns obj to its owning slab, running no destructor
// itself (callers run dtor, if any, before calling this — the point at
// which an object "leaves the magazine subsystem" is the caller's
// concern, not the slab back-end's).
func (c *Cache) freeToSlab(obj uintptr) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var s uintptr
	if !c.useBufctlMode {
		s = (obj &^ (arena.PageSize - 1)) + arena.PageSize - unsafe.Sizeof(slabRecord{})
		rec := asSlabRecord(s)
		*(*uintptr)(unsafe.Pointer(obj)) = rec.freeSmall
		rec.freeSmall = obj
		rec.busy--
		c.liveAlloc.Add(-1)
		c.relocate(s, rec)
		return
	}

	bcAddr, ok := c.hashRemove(obj)
	if !ok {
		panic(ErrUnknownAddr)
	}
	bc := asBufctl(bcAddr)
	s = bc.slabAddr
	rec := asSlabRecord(s)
	bc.freeNext = rec.freeBufctl
	rec.freeBufctl = bcAddr
	rec.busy--
	c.liveAlloc.Add(-1)
	c.relocate(s, rec)
}

// grow imports a fresh region from the source arena and carves it into
// a new empty slab, choosing the embedded or bufctl layout per
// useBufctlMode. Caller must hold c.mu.
func (c *Cache) grow(flags AllocFlags) bool {
	if !c.useBufctlMode {
		return c.growEmbedded(flags)
	}
	return c.growBufctl(flags)
}

func (c *Cache) growEmbedded(flags AllocFlags) bool {
	page, err := c.source.Alloc(arena.PageSize, toArenaFlags(flags))
	if err != nil {
		return false
	}
	recAddr := page + arena.PageSize - unsafe.Sizeof(slabRecord{})
	rec := asSlabRecord(recAddr)
	*rec = slabRecord{}
	rec.total = uint32((arena.PageSize - unsafe.Sizeof(slabRecord{})) / c.objSize)
	rec.region = page
	rec.regionSize = arena.PageSize

	slot := page
	for i := uint32(0); i < rec.total; i++ {
		next := slot + c.objSize
		if i == rec.total-1 {
			*(*uintptr)(unsafe.Pointer(slot)) = 0
		} else {
			*(*uintptr)(unsafe.Pointer(slot)) = next
		}
		slot = next
	}
	rec.freeSmall = page
	c.listInsertHead(listEmpty, recAddr)
	c.nrSlabs++
	c.metrics.Grow(c.name)
	return true
}

func (c *Cache) growBufctl(flags AllocFlags) bool {
	recAddr, err := slabRecordCache.Alloc(flags)
	if err != nil {
		return false
	}
	rec := asSlabRecord(recAddr)
	*rec = slabRecord{}

	region, err := c.source.Alloc(c.importAmt, toArenaFlags(flags))
	if err != nil {
		slabRecordCache.Free(recAddr)
		return false
	}
	rec.total = uint32(c.importAmt / c.objSize)
	rec.region = region
	rec.regionSize = c.importAmt

	var prev uintptr
	var built uint32
	for ; built < rec.total; built++ {
		bcAddr, err := bufctlCache.Alloc(flags)
		if err != nil {
			break
		}
		bc := asBufctl(bcAddr)
		bc.bufAddr = region + uintptr(built)*c.objSize
		bc.slabAddr = recAddr
		bc.freeNext = prev
		prev = bcAddr
	}
	if built < rec.total {
		// Partial failure: unwind everything this grow attempt made.
		cur := prev
		for cur != 0 {
			next := asBufctl(cur).freeNext
			bufctlCache.Free(cur)
			cur = next
		}
		c.source.Free(region, c.importAmt)
		slabRecordCache.Free(recAddr)
		return false
	}

	rec.freeBufctl = prev
	c.listInsertHead(listEmpty, recAddr)
	c.nrSlabs++
	c.metrics.Grow(c.name)
	return true
}
