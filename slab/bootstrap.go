package slab

import (
	"sync"
	"unsafe"

	"github.com/IvanBrykalov/slabkit/arena"
	"github.com/IvanBrykalov/slabkit/config"
)

// Reserved caches, brought up once in a fixed order before any other
// cache can exist. The magazine cache must come first: every cache's
// initial per-CPU magazines, including its own, are carved directly
// from its slab back-end (see buildPerCPUCaches). The slab-record and
// bufctl caches back the bufctl (external) slab layout any later cache
// may need, including caches created before any "normal" user cache —
// there is no cache-of-caches reserved slot here: Cache values
// themselves are ordinary Go values allocated by the host runtime, so
// nothing recursively allocates Cache structs through the slab system
// itself.
var (
	bootstrapOnce   sync.Once
	bootstrapErr    error
	magazineCache   *Cache
	slabRecordCache *Cache
	bufctlCache     *Cache

	// baseArena backs the reserved caches and bufctl hash-index growth,
	// independent of the general page arena those caches exist to
	// support.
	baseArena = arena.NewBaseArena(baseArenaSize)
)

const baseArenaSize = 4 << 20

func bootstrap() error {
	bootstrapOnce.Do(func() {
		bootstrapErr = doBootstrap()
	})
	return bootstrapErr
}

func doBootstrap() error {
	magazineOpts := CreateOptions{
		Name:   "magazine_cache",
		Size:   unsafe.Sizeof(magazine{}),
		Align:  unsafe.Sizeof(uintptr(0)),
		Source: baseArena,
		Ctor: func(obj uintptr, _ unsafe.Pointer, _ AllocFlags) error {
			m := asMagazine(obj)
			m.count = 0
			m.next = 0
			return nil
		},
		Tunables: config.DefaultTunables(),
	}
	mc, err := createCache(magazineOpts)
	if err != nil {
		return err
	}
	magazineCache = mc

	slabRecOpts := CreateOptions{
		Name:     "slab_record_cache",
		Size:     unsafe.Sizeof(slabRecord{}),
		Align:    unsafe.Sizeof(uintptr(0)),
		Source:   baseArena,
		Tunables: config.DefaultTunables(),
	}
	src, err := createCache(slabRecOpts)
	if err != nil {
		return err
	}
	slabRecordCache = src

	bufctlOpts := CreateOptions{
		Name:     "bufctl_cache",
		Size:     unsafe.Sizeof(bufctl{}),
		Align:    unsafe.Sizeof(uintptr(0)),
		Source:   baseArena,
		Tunables: config.DefaultTunables(),
	}
	bc, err := createCache(bufctlOpts)
	if err != nil {
		return err
	}
	bufctlCache = bc

	return nil
}
