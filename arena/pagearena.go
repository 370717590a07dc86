//go:build unix

package arena

import (
	"sync"

	"golang.org/x/sys/unix"
)

// PageSize is the page size used by PageArena and by the slab back-end's
// embedded layout. Queried once at init via the OS rather than hardcoded,
// since the embedded layout assumes page-aligned, page-sized imports.
var PageSize = uintptr(unix.Getpagesize())

// PageArena hands out anonymous, page-aligned regions via mmap. It is the
// default general-purpose source arena. Regions are always multiples of
// the page size; Alloc rounds size up to the next page.
type PageArena struct {
	quantumMax uintptr
	importers  *importerSet

	mu    sync.Mutex
	live  map[uintptr]uintptr // addr -> size, for Free validation
}

// NewPageArena constructs a PageArena. quantumMax, if non-zero, makes this
// arena usable by quantum-cache flagged caches.
func NewPageArena(quantumMax uintptr) *PageArena {
	return &PageArena{
		quantumMax: quantumMax,
		importers:  newImporterSet(),
		live:       make(map[uintptr]uintptr),
	}
}

func roundUpPage(size uintptr) uintptr {
	if size == 0 {
		return PageSize
	}
	return (size + PageSize - 1) &^ (PageSize - 1)
}

// Alloc implements Arena.
func (a *PageArena) Alloc(size uintptr, _ AllocFlags) (uintptr, error) {
	size = roundUpPage(size)
	b, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, ErrOutOfMemory
	}
	addr := uintptr(unsafeSliceAddr(b))
	a.mu.Lock()
	a.live[addr] = size
	a.mu.Unlock()
	return addr, nil
}

// Free implements Arena.
func (a *PageArena) Free(addr, size uintptr) {
	a.mu.Lock()
	got, ok := a.live[addr]
	if ok {
		delete(a.live, addr)
	}
	a.mu.Unlock()
	if !ok || got != size {
		panic("arena: Free with unrecognized (addr, size), possible double-free")
	}
	b := sliceFromAddr(addr, size)
	_ = unix.Munmap(b)
}

// AddImporter implements Arena.
func (a *PageArena) AddImporter(name string, reap func()) { a.importers.add(name, reap) }

// DelImporter implements Arena.
func (a *PageArena) DelImporter(name string) { a.importers.del(name) }

// QuantumMax implements Arena.
func (a *PageArena) QuantumMax() uintptr { return a.quantumMax }

var _ Arena = (*PageArena)(nil)
