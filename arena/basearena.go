package arena

import (
	"sync"
	"unsafe"
)

// BaseArena is the distinguished bootstrap-safe arena: the reserved
// caches and the bufctl hash index's growth path draw from it instead of
// the general page allocator, to avoid circular dependencies during
// bootstrap. It is a simple bump allocator over one pre-reserved byte
// slice; freed regions are never reused. Every slab the reserved caches
// grow, and every hash-table enlargement, draws from it for the life of
// the process, so its use grows with the number of magazines, bufctl
// records and bufctl-mode slab records ever needed.
type BaseArena struct {
	mu     sync.Mutex
	pool   []byte
	offset uintptr
	base   uintptr
	cap    uintptr
}

// NewBaseArena reserves a pool of the given size up front. The backing
// slice is over-allocated by one page and base is aligned up to PageSize
// explicitly: make([]byte, ...) gives no alignment guarantee on its
// backing array, so Alloc's page-aligned-return promise must not rest on
// one.
func NewBaseArena(size uintptr) *BaseArena {
	pool := make([]byte, size+PageSize)
	raw := uintptr(unsafe.Pointer(&pool[0]))
	base := (raw + PageSize - 1) &^ (PageSize - 1)
	return &BaseArena{
		pool: pool,
		base: base,
		cap:  uintptr(len(pool)) - (base - raw),
	}
}

// Alloc implements Arena. Every Arena-interface caller in this codebase
// uses BaseArena exclusively as the source for embedded-layout slab
// growth (the reserved caches all fit under the embedded-layout
// cutoff), which imports exactly one page at a time and relies on the
// returned address being page-aligned so the slab's free path can
// recover it by masking. Align to PageSize accordingly; metadata that
// only needs pointer alignment (the bufctl hash table) goes through
// Zalloc instead, which takes an explicit alignment.
func (b *BaseArena) Alloc(size uintptr, _ AllocFlags) (uintptr, error) {
	return b.alloc(size, PageSize)
}

func (b *BaseArena) alloc(size, align uintptr) (uintptr, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := (b.offset + align - 1) &^ (align - 1)
	if start+size > b.cap {
		return 0, ErrOutOfMemory
	}
	b.offset = start + size
	return b.base + start, nil
}

// Zalloc allocates size bytes, zeroing them (they are already zero from
// make([]byte, ...)) — a distinct name from Alloc for metadata growth
// (the bufctl hash table) that needs an explicit, non-page alignment.
func (b *BaseArena) Zalloc(size, align uintptr) (uintptr, error) {
	return b.alloc(size, align)
}

// Free is a no-op: BaseArena never reclaims (see type doc). Present to
// satisfy callers that free symmetrically, without the complexity of
// real reclamation, which bootstrap-time metadata never needs in
// practice.
func (b *BaseArena) Free(_, _ uintptr) {}

// AddImporter implements Arena. BaseArena never reaps (it never shrinks).
func (b *BaseArena) AddImporter(string, func()) {}

// DelImporter implements Arena.
func (b *BaseArena) DelImporter(string) {}

// QuantumMax implements Arena. BaseArena has no quantum cache.
func (b *BaseArena) QuantumMax() uintptr { return 0 }

var _ Arena = (*BaseArena)(nil)
