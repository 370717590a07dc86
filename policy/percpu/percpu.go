// Package percpu is the default Topology: one guarded slot per logical
// CPU, matching the baseline "1 CPU : 1 per-CPU cache" model.
//
// Go gives user code no way to learn which OS thread or CPU a goroutine
// is currently scheduled on, so true CPU pinning is out of reach. This
// package approximates it with the same trick sync.Pool itself relies
// on: a sync.Pool of slot tickets prefers to hand a goroutine back the
// ticket it most recently Put, and Go's runtime implements that
// preference via a per-P private slot. A single goroutine issuing a
// tight sequence of Pin/release calls with no concurrent contention will
// in practice keep landing on the same slot — enough to make the
// magazine layer's LIFO locality observable in a single-threaded test —
// while concurrent goroutines spread across slots under real load. The
// guarantee that matters, correctness, does not depend on this affinity
// at all: every slot is still guarded by its own spin critical section.
package percpu

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/IvanBrykalov/slabkit/policy"
)

type spinCS struct {
	busy *atomic.Bool
}

func (s spinCS) Enter() {
	for !s.busy.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

func (s spinCS) Exit() { s.busy.Store(false) }

// Topology implements policy.Topology with n guarded slots.
type Topology struct {
	n    int
	busy []atomic.Bool
	pool sync.Pool
}

// New returns a Topology with n slots (clamped to at least 1).
func New(n int) *Topology {
	if n < 1 {
		n = 1
	}
	t := &Topology{n: n, busy: make([]atomic.Bool, n)}
	t.pool.New = func() any {
		slot := 0
		return &slot
	}
	for i := 0; i < n; i++ {
		slot := i
		t.pool.Put(&slot)
	}
	return t
}

func (t *Topology) NumSlots() int { return t.n }

func (t *Topology) Pin() (int, policy.CriticalSection, func()) {
	ticket := t.pool.Get().(*int)
	slot := *ticket
	cs := spinCS{busy: &t.busy[slot]}
	release := func() { t.pool.Put(ticket) }
	return slot, cs, release
}

var _ policy.Topology = (*Topology)(nil)
