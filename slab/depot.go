package slab

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/slabkit/config"
)

// depot is the shared magazine pool sitting between a Cache's per-CPU
// caches and its slab back-end. It holds two singly-linked lists of
// magazine addresses (not-empty and empty) and self-tunes its target
// magazine capacity under sustained lock contention.
type depot struct {
	name    string
	metrics Metrics

	mu sync.Mutex

	notEmptyHead uintptr
	nrNotEmpty   int
	emptyHead    uintptr
	nrEmpty      int

	magsize atomic.Uint32

	tunables  config.Tunables
	busyStart time.Time
	busyCount uint32
}

func newDepot(name string, t config.Tunables, m Metrics) *depot {
	d := &depot{name: name, metrics: m, tunables: t}
	d.magsize.Store(t.MinMagazine)
	return d
}

// lock implements the contention-sampling protocol: try the lock first;
// on contention, sample the time before blocking, and once acquired,
// account the contended acquisition toward the resize window. The
// sampled (pre-block) time becomes the new window start when the window
// has elapsed, using one timestamp for both the timeout check and the
// reset.
func (d *depot) lock() {
	if d.mu.TryLock() {
		return
	}
	sampledAt := time.Now()
	d.mu.Lock()
	if d.nrNotEmpty == 0 {
		// Contention here means magazine shortage, not magazine-size
		// pressure: growing magsize wouldn't help, so don't count it.
		return
	}
	if sampledAt.Sub(d.busyStart) > d.tunables.ResizeWindow {
		d.busyCount = 0
		d.busyStart = sampledAt
	}
	d.busyCount++
	if d.busyCount > d.tunables.ResizeThreshold {
		d.busyCount = 0
		cur := d.magsize.Load()
		if cur < d.tunables.MaxMagazine {
			next := cur + 1
			if next > maxMagazineCapacity {
				next = maxMagazineCapacity
			}
			d.magsize.Store(next)
			if d.metrics != nil {
				d.metrics.MagazineResize(d.name, next)
			}
		}
	}
	if d.metrics != nil {
		d.metrics.DepotContention(d.name)
	}
}

func (d *depot) unlock() { d.mu.Unlock() }

// takeNotEmpty removes and returns the head of the not-empty list.
// Caller must hold the depot lock.
func (d *depot) takeNotEmpty() (uintptr, bool) {
	if d.notEmptyHead == 0 {
		return 0, false
	}
	m := asMagazine(d.notEmptyHead)
	addr := d.notEmptyHead
	d.notEmptyHead = m.next
	m.next = 0
	d.nrNotEmpty--
	return addr, true
}

// takeEmpty removes and returns the head of the empty list. Caller must
// hold the depot lock.
func (d *depot) takeEmpty() (uintptr, bool) {
	if d.emptyHead == 0 {
		return 0, false
	}
	m := asMagazine(d.emptyHead)
	addr := d.emptyHead
	d.emptyHead = m.next
	m.next = 0
	d.nrEmpty--
	return addr, true
}

// returnMag files addr onto the not-empty or empty list based on its
// current round count. Caller must hold the depot lock.
func (d *depot) returnMag(addr uintptr) {
	m := asMagazine(addr)
	if m.isEmpty() {
		m.next = d.emptyHead
		d.emptyHead = addr
		d.nrEmpty++
		return
	}
	m.next = d.notEmptyHead
	d.notEmptyHead = addr
	d.nrNotEmpty++
}

// drainAll empties both lists, returning every resident object to the
// slab back-end (after running dtor on each) and freeing every magazine
// struct back to the magazine cache. Used by Cache.Destroy (Cache.Reap
// uses reapEmpty instead). Caller must not hold the depot lock; drainAll takes it
// itself and releases it before calling back into magazineCache.Free.
func (d *depot) drainAll(c *Cache) {
	for {
		d.lock()
		addr, ok := d.takeNotEmpty()
		d.unlock()
		if !ok {
			break
		}
		drainMagazineRounds(c, asMagazine(addr))
		freeMagazineStruct(addr)
	}
	for {
		d.lock()
		addr, ok := d.takeEmpty()
		d.unlock()
		if !ok {
			break
		}
		freeMagazineStruct(addr)
	}
}

// reapEmpty frees every currently-empty magazine back to the magazine
// cache, shrinking the depot without disturbing cached (not-empty)
// magazines. Used by Cache.Reap.
func (d *depot) reapEmpty(c *Cache) {
	for {
		d.lock()
		addr, ok := d.takeEmpty()
		d.unlock()
		if !ok {
			return
		}
		freeMagazineStruct(addr)
	}
}

func drainMagazineRounds(c *Cache, m *magazine) {
	for {
		obj, ok := m.pop()
		if !ok {
			return
		}
		if c.dtor != nil {
			c.dtor(obj, c.cookie)
		}
		c.freeToSlab(obj)
	}
}

// freeMagazineStruct returns a magazine struct to the magazine cache.
// While magazineCache is still nil (only during the magazine cache's own
// creation, which frees no magazine) it does nothing and the magazine is
// not returned anywhere.
func freeMagazineStruct(addr uintptr) {
	if magazineCache != nil {
		magazineCache.Free(addr)
		return
	}
}
