package slab

import "sync"

// registry tracks every live Cache for process-wide introspection
// (AllCaches) and bulk reap requests (ReapAll). A plain
// sync.Mutex guards it since none of the registry's callers run in a
// context where blocking would be unsafe.
var registry = struct {
	mu     sync.Mutex
	caches map[*Cache]struct{}
}{caches: make(map[*Cache]struct{})}

func registryAdd(c *Cache) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.caches[c] = struct{}{}
}

func registryRemove(c *Cache) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	delete(registry.caches, c)
}

// Snapshot describes one cache's current state, for external reporting.
type Snapshot struct {
	Name        string
	ObjectSize  uintptr
	LiveObjects int64
	Slabs       int
	BufctlMode  bool
}

// AllCaches returns a snapshot of every currently registered cache,
// sorted by name for stable output.
func AllCaches() []Snapshot {
	registry.mu.Lock()
	caches := make([]*Cache, 0, len(registry.caches))
	for c := range registry.caches {
		caches = append(caches, c)
	}
	registry.mu.Unlock()

	out := make([]Snapshot, 0, len(caches))
	for _, c := range caches {
		c.mu.Lock()
		out = append(out, Snapshot{
			Name:        c.name,
			ObjectSize:  c.objSize,
			LiveObjects: c.liveAlloc.Load(),
			Slabs:       c.nrSlabs,
			BufctlMode:  c.useBufctlMode,
		})
		c.mu.Unlock()
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Name > out[j].Name; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// ReapAll calls Reap on every registered cache. Used for a global
// memory-pressure response, mirroring the arena importer contract
// (arena.Arena.AddImporter) at the package level.
func ReapAll() {
	registry.mu.Lock()
	caches := make([]*Cache, 0, len(registry.caches))
	for c := range registry.caches {
		caches = append(caches, c)
	}
	registry.mu.Unlock()

	for _, c := range caches {
		c.Reap()
	}
}
