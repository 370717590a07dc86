package slab

// pcpuCache is one logical CPU's fast-path state: a loaded magazine
// (allocations and frees happen here first) and a previous magazine
// (the failover once loaded is exhausted/full), plus a locally cached
// copy of the depot's target magazine capacity.
type pcpuCache struct {
	loaded  uintptr
	prev    uintptr
	magsize uint32
}

// buildPerCPUCaches gives every topology slot two magazines, both
// carved directly from the magazine cache's slab back-end — never
// through the full magazine/depot pipeline, and never dependent on
// which cache is being built: even the magazine cache builds its own
// per-CPU state this way, which is exactly what breaks the bootstrap
// cycle.
func (c *Cache) buildPerCPUCaches() error {
	n := c.topology.NumSlots()
	c.pcpu = make([]pcpuCache, n)

	magSrc := magazineCache
	if magSrc == nil {
		// Bootstrapping the magazine cache itself.
		magSrc = c
	}
	for i := range c.pcpu {
		loaded, err := magSrc.allocFromSlab(AllocNonBlocking)
		if err != nil {
			return err
		}
		prev, err := magSrc.allocFromSlab(AllocNonBlocking)
		if err != nil {
			return err
		}
		c.pcpu[i] = pcpuCache{loaded: loaded, prev: prev, magsize: c.tunables.MinMagazine}
	}
	return nil
}

// Alloc returns an object, trying the calling goroutine's per-CPU
// magazine first, then the depot, and finally the slab back-end.
func (c *Cache) Alloc(flags AllocFlags) (uintptr, error) {
	obj, err := c.pcpuAlloc(flags)
	if err != nil {
		c.metrics.AllocFailed(c.name)
		return 0, err
	}
	c.metrics.Alloc(c.name)
	return obj, nil
}

func (c *Cache) pcpuAlloc(flags AllocFlags) (uintptr, error) {
	slot, cs, release := c.topology.Pin()
	defer release()
	cs.Enter()
	pc := &c.pcpu[slot]

	for {
		loaded := asMagazine(pc.loaded)
		if obj, ok := loaded.pop(); ok {
			cs.Exit()
			return obj, nil
		}
		prevMag := asMagazine(pc.prev)
		if !prevMag.isEmpty() {
			pc.loaded, pc.prev = pc.prev, pc.loaded
			continue
		}

		c.depot.lock()
		magAddr, ok := c.depot.takeNotEmpty()
		if ok {
			c.depot.returnMag(pc.prev)
		}
		c.depot.unlock()
		if ok {
			pc.prev = pc.loaded
			pc.loaded = magAddr
			continue
		}

		cs.Exit()
		return c.allocFromSlab(flags)
	}
}

// Free returns obj to the calling goroutine's per-CPU magazine, falling
// back to the depot and finally the slab back-end.
func (c *Cache) Free(obj uintptr) {
	c.pcpuFree(obj)
	c.metrics.Free(c.name)
}

func (c *Cache) pcpuFree(obj uintptr) {
	slot, cs, release := c.topology.Pin()
	defer release()
	cs.Enter()
	pc := &c.pcpu[slot]

	for {
		loaded := asMagazine(pc.loaded)
		if !loaded.isFull(pc.magsize) && loaded.push(obj) {
			cs.Exit()
			return
		}
		prevMag := asMagazine(pc.prev)
		if !prevMag.isFull(pc.magsize) {
			pc.loaded, pc.prev = pc.prev, pc.loaded
			continue
		}

		c.depot.lock()
		pc.magsize = c.depot.magsize.Load()
		magAddr, ok := c.depot.takeEmpty()
		if ok {
			c.depot.returnMag(pc.prev)
		}
		c.depot.unlock()
		if ok {
			pc.prev = pc.loaded
			pc.loaded = magAddr
			continue
		}

		// No empty magazine on hand. Release the slot before calling
		// back into the magazine cache: that allocation may itself
		// recurse into this cache's pcpu path (e.g. if this cache IS
		// the magazine cache), and must not find this slot held.
		cs.Exit()
		newMag, err := magazineCache.Alloc(AllocNonBlocking)
		if err == nil {
			c.depot.lock()
			c.depot.returnMag(newMag)
			c.depot.unlock()
			cs.Enter()
			continue
		}

		// Out of magazines entirely: bypass the magazine subsystem and
		// free straight to the slab, running dtor first since the
		// object is leaving cached state for good.
		if c.dtor != nil {
			c.dtor(obj, c.cookie)
		}
		c.freeToSlab(obj)
		return
	}
}
