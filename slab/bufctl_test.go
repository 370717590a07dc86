package slab

import (
	"math/rand"
	"testing"
)

// hashIndexAddrs walks every bucket chain and returns the set of object
// addresses the bufctl hash index currently claims are outstanding.
func hashIndexAddrs(c *Cache) map[uintptr]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[uintptr]bool, c.hashItems)
	for _, head := range c.hashTable {
		for cur := head; cur != 0; cur = asBufctl(cur).hashNext {
			out[asBufctl(cur).bufAddr] = true
		}
	}
	return out
}

func TestBufctl_NoTouchUsesExternalLayout(t *testing.T) {
	c, err := Create(CreateOptions{Name: "no-touch-small", Size: 8, Flags: FlagNoTouch})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer func() { _ = c.Destroy() }()
	if !c.useBufctlMode {
		t.Fatal("FlagNoTouch must force bufctl layout even for a small object")
	}
}

func TestBufctl_LargeObjectUsesExternalLayout(t *testing.T) {
	c, err := Create(CreateOptions{Name: "large-object", Size: 4096})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer func() { _ = c.Destroy() }()
	if !c.useBufctlMode {
		t.Fatal("object size above ObjectCutoff must force bufctl layout")
	}
}

func TestBufctl_HashIndexTracksOutstandingSet(t *testing.T) {
	c, err := Create(CreateOptions{Name: "hash-parity", Size: 64, Flags: FlagNoTouch})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer func() { _ = c.Destroy() }()

	r := rand.New(rand.NewSource(1))
	outstanding := make(map[uintptr]bool)
	const ops = 1000
	for i := 0; i < ops; i++ {
		allocProbability := 60
		if len(outstanding) == 0 {
			allocProbability = 100
		}
		if r.Intn(100) < allocProbability {
			obj, err := c.Alloc(0)
			if err != nil {
				t.Fatalf("op %d: Alloc: %v", i, err)
			}
			if outstanding[obj] {
				t.Fatalf("op %d: Alloc returned an address already outstanding: %#x", i, obj)
			}
			outstanding[obj] = true
		} else {
			var victim uintptr
			for addr := range outstanding {
				victim = addr
				break
			}
			c.Free(victim)
			delete(outstanding, victim)
		}

		got := hashIndexAddrs(c)
		if len(got) != len(outstanding) {
			t.Fatalf("op %d: hash index has %d entries, want %d outstanding", i, len(got), len(outstanding))
		}
		for addr := range outstanding {
			if !got[addr] {
				t.Fatalf("op %d: outstanding object %#x missing from hash index", i, addr)
			}
		}
	}
}

func TestBufctl_FreeOfUnknownAddrPanics(t *testing.T) {
	c, err := Create(CreateOptions{Name: "unknown-addr", Size: 64, Flags: FlagNoTouch})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer func() { _ = c.Destroy() }()

	obj, err := c.Alloc(0)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	// Free straight to the slab back-end: c.Free only parks an address in
	// a per-CPU magazine, and the hash lookup happens once it reaches the
	// slab.
	c.freeToSlab(obj)

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("freeing an already-freed (no longer hash-indexed) address should panic")
		}
	}()
	c.freeToSlab(obj)
}

func TestBufctl_HashTableGrows(t *testing.T) {
	c, err := Create(CreateOptions{Name: "hash-grow", Size: 64, Flags: FlagNoTouch})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer func() { _ = c.Destroy() }()

	startLen := len(c.hashTable)
	var held []uintptr
	for i := 0; i < startLen*4; i++ {
		obj, err := c.Alloc(0)
		if err != nil {
			t.Fatalf("Alloc #%d: %v", i, err)
		}
		held = append(held, obj)
	}
	if len(c.hashTable) <= startLen {
		t.Fatalf("hash table did not grow past its initial size %d after %d allocations", startLen, len(held))
	}
	for _, obj := range held {
		c.Free(obj)
	}
}
