package slab

// Metrics receives allocator events for a named Cache. Implementations
// must be safe for concurrent use; the fast paths call these on every
// operation, so implementations should be cheap (counter bumps, not I/O).
//
// metrics/prom provides a github.com/prometheus/client_golang-backed
// implementation; NoopMetrics is the zero-cost default.
type Metrics interface {
	Alloc(cache string)
	AllocFailed(cache string)
	Free(cache string)
	Grow(cache string)
	CtorFailed(cache string)
	Reap(cache string)
	MagazineResize(cache string, newSize uint32)
	DepotContention(cache string)
	LiveObjects(cache string, n int64)
	SlabCounts(cache string, empty, partial, full int)
}

// NoopMetrics discards every event. It is the default for caches created
// without an explicit Metrics implementation.
type NoopMetrics struct{}

func (NoopMetrics) Alloc(string)                     {}
func (NoopMetrics) AllocFailed(string)                {}
func (NoopMetrics) Free(string)                       {}
func (NoopMetrics) Grow(string)                       {}
func (NoopMetrics) CtorFailed(string)                 {}
func (NoopMetrics) Reap(string)                       {}
func (NoopMetrics) MagazineResize(string, uint32)     {}
func (NoopMetrics) DepotContention(string)            {}
func (NoopMetrics) LiveObjects(string, int64)         {}
func (NoopMetrics) SlabCounts(string, int, int, int)  {}

var _ Metrics = NoopMetrics{}
