package slab

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/IvanBrykalov/slabkit/arena"
	"github.com/IvanBrykalov/slabkit/config"
	"github.com/IvanBrykalov/slabkit/internal/util"
	"github.com/IvanBrykalov/slabkit/policy"
	"github.com/IvanBrykalov/slabkit/policy/percpu"
)

// Cache is a type-specific object allocator. It owns a per-CPU fast
// path, a shared depot, and a slab back-end that imports from Source.
type Cache struct {
	name  string
	flags Flags

	objSize uintptr
	align   uintptr

	useBufctlMode bool
	importAmt     uintptr

	source arena.Arena

	ctor   Ctor
	dtor   Dtor
	cookie unsafe.Pointer

	tunables config.Tunables
	metrics  Metrics
	topology policy.Topology

	mu          sync.Mutex
	emptyHead   uintptr
	partialHead uintptr
	fullHead    uintptr
	nrSlabs     int

	staticHash [8]uintptr
	hashTable  []uintptr
	hashItems  uint32

	depot *depot
	pcpu  []pcpuCache

	liveAlloc atomic.Int64
	destroyed bool
}

var defaultPageArenaOnce sync.Once
var defaultPageArena arena.Arena

func defaultArena() arena.Arena {
	defaultPageArenaOnce.Do(func() {
		defaultPageArena = arena.NewPageArena(0)
	})
	return defaultPageArena
}

// Create brings up a new Cache. It is safe to call concurrently with
// other Create calls and with Alloc/Free on unrelated caches; the first
// call into the package transparently brings up the bootstrap-reserved
// caches (see bootstrap.go).
func Create(opts CreateOptions) (*Cache, error) {
	if err := bootstrap(); err != nil {
		return nil, fmt.Errorf("slab: bootstrap: %w", err)
	}
	return createCache(opts)
}

func createCache(opts CreateOptions) (*Cache, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("slab: Create: Name is required")
	}
	if opts.Size == 0 {
		return nil, fmt.Errorf("slab: Create: Size must be > 0")
	}

	align := opts.Align
	if align == 0 {
		align = unsafe.Sizeof(uintptr(0))
	}
	if !util.IsPowerOfTwo(uint64(align)) {
		return nil, fmt.Errorf("slab: Create: Align must be a power of two")
	}

	source := opts.Source
	if source == nil {
		source = defaultArena()
	}
	if align > arena.PageSize {
		return nil, ErrAlignTooLarge
	}
	if qmax := source.QuantumMax(); qmax != 0 && align > qmax {
		return nil, ErrAlignTooLarge
	}

	tunables := opts.Tunables
	if (tunables == config.Tunables{}) {
		tunables = config.DefaultTunables()
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = NoopMetrics{}
	}

	topology := opts.Topology
	if topology == nil {
		topology = percpu.New(util.NumCPUCaches())
	}

	objSize := roundUp(opts.Size, align)

	c := &Cache{
		name:     opts.Name,
		flags:    opts.Flags,
		objSize:  objSize,
		align:    align,
		source:   source,
		ctor:     opts.Ctor,
		dtor:     opts.Dtor,
		cookie:   opts.Cookie,
		tunables: tunables,
		metrics:  metrics,
		topology: topology,
	}
	c.useBufctlMode = opts.Flags&FlagNoTouch != 0 || objSize > tunables.ObjectCutoff
	if c.useBufctlMode {
		c.initHash()
		if opts.Flags&FlagQuantumCache != 0 {
			qmax := source.QuantumMax()
			if qmax == 0 {
				qmax = objSize
			}
			c.importAmt = uintptr(util.NextPow2(uint64(3 * qmax)))
		} else {
			c.importAmt = roundUp(objSize*uintptr(tunables.DefaultSlotsPerSlab), arena.PageSize)
		}
	}
	c.depot = newDepot(c.name, tunables, metrics)

	if err := c.buildPerCPUCaches(); err != nil {
		return nil, err
	}

	source.AddImporter(c.name, func() { c.Reap() })
	registryAdd(c)
	return c, nil
}

func roundUp(size, align uintptr) uintptr {
	return (size + align - 1) &^ (align - 1)
}

// Name reports the cache's name.
func (c *Cache) Name() string { return c.name }

// ObjectSize reports the per-object size after alignment rounding.
func (c *Cache) ObjectSize() uintptr { return c.objSize }

// LiveObjects reports the number of objects currently carved from a
// slab and not yet returned to a slab (objects cached in a magazine or
// the depot still count as live: they have not reached the slab free
// path).
func (c *Cache) LiveObjects() int64 { return c.liveAlloc.Load() }

// Destroy tears the cache down: every resident magazine is drained back
// to the slab back-end (running dtor on each object along the way), and
// every now-empty slab is released to the source arena. It fails with
// ErrLeakedObjects if any object is still allocated out to a caller; the
// cache is then drained of cached objects but keeps its per-CPU
// magazines, so it stays usable and Destroy may be called again.
func (c *Cache) Destroy() error {
	c.depot.drainAll(c)
	for i := range c.pcpu {
		pc := &c.pcpu[i]
		drainMagazineRounds(c, asMagazine(pc.loaded))
		drainMagazineRounds(c, asMagazine(pc.prev))
	}

	c.mu.Lock()
	leaked := c.liveAlloc.Load() != 0
	c.mu.Unlock()
	if leaked {
		return ErrLeakedObjects
	}

	for i := range c.pcpu {
		pc := &c.pcpu[i]
		freeMagazineStruct(pc.loaded)
		freeMagazineStruct(pc.prev)
		pc.loaded, pc.prev = 0, 0
	}
	c.releaseEmptySlabs()
	c.source.DelImporter(c.name)
	registryRemove(c)
	c.destroyed = true
	return nil
}

// Reap releases memory without destroying the cache: every currently
// empty depot magazine is freed back to the magazine cache, and every
// fully empty slab is released back to the source arena. Live,
// partially-used, and cached-but-nonempty state is left untouched.
func (c *Cache) Reap() {
	c.depot.reapEmpty(c)
	c.releaseEmptySlabs()
	c.metrics.Reap(c.name)
}

// releaseEmptySlabs returns every slab on the empty list to the source
// arena (and, for bufctl-mode slabs, their bufctls to the bufctl cache
// and their slab record to the slab-record cache).
func (c *Cache) releaseEmptySlabs() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.emptyHead != 0 {
		addr := c.emptyHead
		rec := asSlabRecord(addr)
		c.listRemove(addr)
		c.nrSlabs--
		if c.useBufctlMode {
			for rec.freeBufctl != 0 {
				bc := asBufctl(rec.freeBufctl)
				next := bc.freeNext
				bufctlCache.Free(rec.freeBufctl)
				rec.freeBufctl = next
			}
			c.source.Free(rec.region, rec.regionSize)
			slabRecordCache.Free(addr)
		} else {
			c.source.Free(rec.region, rec.regionSize)
		}
	}
}

// headPtr returns a pointer to the head variable for list l.
func (c *Cache) headPtr(l slabList) *uintptr {
	switch l {
	case listEmpty:
		return &c.emptyHead
	case listFull:
		return &c.fullHead
	default:
		return &c.partialHead
	}
}

func (c *Cache) listInsertHead(l slabList, addr uintptr) {
	rec := asSlabRecord(addr)
	head := c.headPtr(l)
	rec.prevAddr = 0
	rec.nextAddr = *head
	if *head != 0 {
		asSlabRecord(*head).prevAddr = addr
	}
	*head = addr
	rec.list = l
}

func (c *Cache) listRemove(addr uintptr) {
	rec := asSlabRecord(addr)
	head := c.headPtr(rec.list)
	if rec.prevAddr != 0 {
		asSlabRecord(rec.prevAddr).nextAddr = rec.nextAddr
	} else {
		*head = rec.nextAddr
	}
	if rec.nextAddr != 0 {
		asSlabRecord(rec.nextAddr).prevAddr = rec.prevAddr
	}
	rec.prevAddr, rec.nextAddr = 0, 0
}

// relocate moves a slab to the list matching its current busy count, if
// it isn't there already. Using the current busy value (rather than the
// alloc/free transition that produced it) keeps the invariant exact
// even for single-object slabs, where a transition-based move would
// skip straight from full to empty without passing through partial.
func (c *Cache) relocate(addr uintptr, rec *slabRecord) {
	var target slabList
	switch {
	case rec.busy == 0:
		target = listEmpty
	case rec.busy == rec.total:
		target = listFull
	default:
		target = listPartial
	}
	if target == rec.list {
		return
	}
	c.listRemove(addr)
	c.listInsertHead(target, addr)
}
