// Package numadomain is a coarser-grained Topology alternative: one
// guarded slot per NUMA domain instead of per logical CPU, trading
// fast-path locality for a smaller per-Cache memory footprint on
// machines with many CPUs per domain. It shares percpu's slot-affinity
// mechanism and its caveats verbatim — only the slot count changes.
package numadomain

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

// Topology implements policy.Topology with one guarded slot per domain,
// each domain absorbing cpusPerDomain logical CPUs.
type Topology struct {
	n    int
	busy []atomic.Bool
	pool sync.Pool
}

// New returns a Topology sized for numCPUs logical CPUs grouped into
// domains of cpusPerDomain each (at least one domain, at least one CPU
// per domain).
func New(numCPUs, cpusPerDomain int) *Topology {
	if cpusPerDomain < 1 {
		cpusPerDomain = 1
	}
	n := (numCPUs + cpusPerDomain - 1) / cpusPerDomain
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
