package slab

import (
	"unsafe"

	"github.com/IvanBrykalov/slabkit/internal/util"
)

// initHash sets up the small embedded fallback table every bufctl-mode
// cache starts with, avoiding a base-arena allocation for caches that
// never grow past a handful of slabs.
func (c *Cache) initHash() {
	c.hashTable = c.staticHash[:]
}

func (c *Cache) hashBucket(addr uintptr) int {
	return util.BucketIndex(util.PointerHash(addr), len(c.hashTable))
}

// hashInsert files bc into the bucket for its object address. Caller
// must hold c.mu.
func (c *Cache) hashInsert(bc *bufctl, bcAddr uintptr) {
	idx := c.hashBucket(bc.bufAddr)
	bc.hashNext = c.hashTable[idx]
	c.hashTable[idx] = bcAddr
	c.hashItems++
	c.tryHashGrow()
}

// hashRemove unlinks and returns the bufctl bookkeeping addr for obj.
// Caller must hold c.mu.
func (c *Cache) hashRemove(obj uintptr) (uintptr, bool) {
	idx := c.hashBucket(obj)
	var prev uintptr
	cur := c.hashTable[idx]
	for cur != 0 {
		bc := asBufctl(cur)
		if bc.bufAddr == obj {
			if prev == 0 {
				c.hashTable[idx] = bc.hashNext
			} else {
				asBufctl(prev).hashNext = bc.hashNext
			}
			bc.hashNext = 0
			c.hashItems--
			return cur, true
		}
		prev = cur
		cur = bc.hashNext
	}
	return 0, false
}

// tryHashGrow doubles the hash table once the load factor crosses 2
// entries per bucket, allocating the new table from the base allocator,
// independent of the slab system the table indexes. Growth is
// best-effort: a failed base-arena allocation just leaves the table at
// its current size; a denser table costs lookup time, not correctness.
func (c *Cache) tryHashGrow() {
	if int(c.hashItems) <= 2*len(c.hashTable) {
		return
	}
	newLen := len(c.hashTable) * 2
	size := uintptr(newLen) * unsafe.Sizeof(uintptr(0))
	addr, err := baseArena.Zalloc(size, unsafe.Sizeof(uintptr(0)))
	if err != nil {
		return
	}
	newTable := unsafe.Slice((*uintptr)(unsafe.Pointer(addr)), newLen)

	old := c.hashTable
	for _, head := range old {
		cur := head
		for cur != 0 {
			bc := asBufctl(cur)
			next := bc.hashNext
			idx := util.BucketIndex(util.PointerHash(bc.bufAddr), newLen)
			bc.hashNext = newTable[idx]
			newTable[idx] = cur
			cur = next
		}
	}
	// The old table is only "freed" if it wasn't the embedded static
	// table; BaseArena never reclaims either way (see arena.BaseArena),
	// but the check documents the intent regardless.
	if &old[0] != &c.staticHash[0] {
		baseArena.Free(0, 0)
	}
	c.hashTable = newTable
}
