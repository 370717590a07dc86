// Package prom implements slab.Metrics on top of
// github.com/prometheus/client_golang, exposing allocator internals as
// Prometheus series.
package prom

import (
	"github.com/IvanBrykalov/slabkit/slab"
	"github.com/prometheus/client_golang/prometheus"
)

// Adapter implements slab.Metrics. Safe for concurrent use; every
// Prometheus metric type is goroutine-safe, and the slab package's fast
// paths call these on every single Alloc/Free, so each method here does
// exactly one counter or gauge operation.
type Adapter struct {
	allocs          *prometheus.CounterVec
	allocFails      *prometheus.CounterVec
	frees           *prometheus.CounterVec
	ctorFails       *prometheus.CounterVec
	grows           *prometheus.CounterVec
	reaps           *prometheus.CounterVec
	magResizes      *prometheus.GaugeVec
	depotContention *prometheus.CounterVec
	liveObjects     *prometheus.GaugeVec
	slabCounts      *prometheus.GaugeVec
}

// New constructs a Prometheus metrics adapter.
//   - reg:         registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:     Prometheus namespace and subsystem
//   - constLabels: static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		}, []string{"cache"})
	}
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		}, []string{"cache"})
	}

	a := &Adapter{
		allocs:          counter("allocs_total", "Successful Alloc calls"),
		allocFails:      counter("alloc_failures_total", "Failed Alloc calls"),
		frees:           counter("frees_total", "Free calls"),
		ctorFails:       counter("ctor_failures_total", "Constructor failures when carving an object from a slab"),
		grows:           counter("grows_total", "Slab back-end growth events"),
		reaps:           counter("reaps_total", "Reap calls"),
		magResizes:      gauge("magazine_size", "Current depot target magazine capacity"),
		depotContention: counter("depot_contentions_total", "Contended depot lock acquisitions"),
		liveObjects:     gauge("live_objects", "Objects currently allocated out"),
		slabCounts:      gauge("slabs", "Total slab count across all lists"),
	}
	reg.MustRegister(a.allocs, a.allocFails, a.frees, a.ctorFails, a.grows, a.reaps,
		a.magResizes, a.depotContention, a.liveObjects, a.slabCounts)
	return a
}

func (a *Adapter) Alloc(cache string)       { a.allocs.WithLabelValues(cache).Inc() }
func (a *Adapter) AllocFailed(cache string) { a.allocFails.WithLabelValues(cache).Inc() }
func (a *Adapter) Free(cache string)        { a.frees.WithLabelValues(cache).Inc() }
func (a *Adapter) Grow(cache string)        { a.grows.WithLabelValues(cache).Inc() }
func (a *Adapter) CtorFailed(cache string)  { a.ctorFails.WithLabelValues(cache).Inc() }
func (a *Adapter) Reap(cache string)        { a.reaps.WithLabelValues(cache).Inc() }

func (a *Adapter) MagazineResize(cache string, newSize uint32) {
	a.magResizes.WithLabelValues(cache).Set(float64(newSize))
}

func (a *Adapter) DepotContention(cache string) {
	a.depotContention.WithLabelValues(cache).Inc()
}

func (a *Adapter) LiveObjects(cache string, n int64) {
	a.liveObjects.WithLabelValues(cache).Set(float64(n))
}

func (a *Adapter) SlabCounts(cache string, empty, partial, full int) {
	a.slabCounts.WithLabelValues(cache).Set(float64(empty + partial + full))
}

var _ slab.Metrics = (*Adapter)(nil)
