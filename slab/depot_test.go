package slab

import (
	"sync"
	"testing"
	"time"
	"unsafe"

	"github.com/IvanBrykalov/slabkit/config"
)

// magShapedAddr hands back a stable, heap/arena-backed address sized like
// a magazine, for depot unit tests that need a real round to push onto a
// list without going through the full Cache/magazine-cache machinery.
func magShapedAddr(t *testing.T) uintptr {
	t.Helper()
	c, err := Create(CreateOptions{Name: t.Name() + "-magshape", Size: unsafe.Sizeof(magazine{})})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	addr, err := c.Alloc(0)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	return addr
}

func TestDepot_MagazineSizeNeverShrinks(t *testing.T) {
	tun := config.DefaultTunables()
	tun.MinMagazine = 2
	tun.MaxMagazine = 10
	tun.ResizeThreshold = 0
	tun.ResizeWindow = time.Hour
	d := newDepot("shrink-check", tun, NoopMetrics{})

	if got := d.magsize.Load(); got != 2 {
		t.Fatalf("initial magsize = %d, want MinMagazine=2", got)
	}

	// Feed it a not-empty round so contention accounting isn't skipped as
	// a shortage, then force several contended acquisitions.
	mag := magShapedAddr(t)
	asMagazine(mag).push(0x1)
	d.mu.Lock()
	d.returnMag(mag)
	d.mu.Unlock()

	var prev uint32 = d.magsize.Load()
	for i := 0; i < 5; i++ {
		var wg sync.WaitGroup
		wg.Add(1)
		d.mu.Lock()
		go func() {
			defer wg.Done()
			d.lock()
			d.unlock()
		}()
		time.Sleep(5 * time.Millisecond)
		d.mu.Unlock()
		wg.Wait()

		cur := d.magsize.Load()
		if cur < prev {
			t.Fatalf("iteration %d: magsize shrank from %d to %d", i, prev, cur)
		}
		prev = cur
	}
}

func TestDepot_MagazineSizeCappedAtMax(t *testing.T) {
	tun := config.DefaultTunables()
	tun.MinMagazine = 1
	tun.MaxMagazine = 3
	tun.ResizeThreshold = 0
	tun.ResizeWindow = time.Hour
	d := newDepot("cap-check", tun, NoopMetrics{})

	mag := magShapedAddr(t)
	asMagazine(mag).push(0x1)
	d.mu.Lock()
	d.returnMag(mag)
	d.mu.Unlock()

	for i := 0; i < 10; i++ {
		var wg sync.WaitGroup
		wg.Add(1)
		d.mu.Lock()
		go func() {
			defer wg.Done()
			d.lock()
			d.unlock()
		}()
		time.Sleep(5 * time.Millisecond)
		d.mu.Unlock()
		wg.Wait()
	}

	if got := d.magsize.Load(); got > tun.MaxMagazine {
		t.Fatalf("magsize = %d, exceeds MaxMagazine=%d", got, tun.MaxMagazine)
	}
}

func TestDepot_ContentionSkippedWhenListEmpty(t *testing.T) {
	tun := config.DefaultTunables()
	tun.MinMagazine = 1
	tun.MaxMagazine = 8
	tun.ResizeThreshold = 0
	tun.ResizeWindow = time.Hour
	d := newDepot("shortage-check", tun, NoopMetrics{})

	start := d.magsize.Load()
	var wg sync.WaitGroup
	wg.Add(1)
	d.mu.Lock()
	go func() {
		defer wg.Done()
		// nrNotEmpty is 0: this is a magazine shortage, not size
		// pressure, so the resize accounting must not fire.
		d.lock()
		d.unlock()
	}()
	time.Sleep(5 * time.Millisecond)
	d.mu.Unlock()
	wg.Wait()

	if got := d.magsize.Load(); got != start {
		t.Fatalf("magsize changed from %d to %d on an empty-list contention, want unchanged", start, got)
	}
}

func TestDepot_ResizeTriggeredUnderSustainedContention(t *testing.T) {
	tun := config.DefaultTunables()
	tun.MinMagazine = 1
	tun.MaxMagazine = 16
	tun.ResizeThreshold = 1
	tun.ResizeWindow = time.Hour

	var mu sync.Mutex
	var resizes []uint32
	metrics := recordingDepotMetrics{onResize: func(n uint32) {
		mu.Lock()
		resizes = append(resizes, n)
		mu.Unlock()
	}}
	d := newDepot("resize-trigger", tun, metrics)

	mag := magShapedAddr(t)
	asMagazine(mag).push(0x1)
	d.mu.Lock()
	d.returnMag(mag)
	d.mu.Unlock()

	for i := 0; i < 4; i++ {
		var wg sync.WaitGroup
		wg.Add(1)
		d.mu.Lock()
		go func() {
			defer wg.Done()
			d.lock()
			d.unlock()
		}()
		time.Sleep(5 * time.Millisecond)
		d.mu.Unlock()
		wg.Wait()
	}

	mu.Lock()
	defer mu.Unlock()
	if len(resizes) == 0 {
		t.Fatal("expected at least one magazine resize event under sustained contention")
	}
	for i := 1; i < len(resizes); i++ {
		if resizes[i] < resizes[i-1] {
			t.Fatalf("resize sequence %v is not monotone", resizes)
		}
	}
}

type recordingDepotMetrics struct {
	NoopMetrics
	onResize func(uint32)
}

func (m recordingDepotMetrics) MagazineResize(_ string, newSize uint32) {
	m.onResize(newSize)
}
