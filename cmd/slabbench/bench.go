package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/slabkit/config"
	pmet "github.com/IvanBrykalov/slabkit/metrics/prom"
	"github.com/IvanBrykalov/slabkit/slab"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	benchObjSizeUint uint
	benchNoTouch     bool
	benchWorkers     int
	benchDuration    time.Duration
	benchAllocPct    int
	benchBacklog     int
	benchSeed        int64
)

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a synthetic alloc/free workload and report throughput",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench()
		},
	}
	f := cmd.Flags()
	f.UintVar(&benchObjSizeUint, "size", 64, "object size in bytes")
	f.BoolVar(&benchNoTouch, "no-touch", false, "force the external bufctl slab layout")
	f.IntVar(&benchWorkers, "workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
	f.DurationVar(&benchDuration, "duration", 10*time.Second, "benchmark duration")
	f.IntVar(&benchAllocPct, "alloc-pct", 60, "percentage of ops that are Alloc (rest are Free)")
	f.IntVar(&benchBacklog, "backlog", 256, "max objects a worker holds before frees dominate")
	f.Int64Var(&benchSeed, "seed", time.Now().UnixNano(), "random seed")
	return cmd
}

func runBench() error {
	tunables, err := config.LoadTunables(configPath)
	if err != nil {
		return err
	}

	var metrics slab.Metrics = slab.NoopMetrics{}
	if metricsAddr != "" {
		adapter := pmet.New(nil, "slabkit", "bench", nil)
		metrics = adapter
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			_ = http.ListenAndServe(metricsAddr, nil)
		}()
		fmt.Printf("metrics: serving at %s\n", metricsAddr)
	}

	flags := slab.Flags(0)
	if benchNoTouch {
		flags |= slab.FlagNoTouch
	}
	c, err := slab.Create(slab.CreateOptions{
		Name:     "bench",
		Size:     uintptr(benchObjSizeUint),
		Flags:    flags,
		Tunables: tunables,
		Metrics:  metrics,
	})
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}
	defer func() {
		if err := c.Destroy(); err != nil {
			fmt.Printf("destroy: %v (some objects remained allocated, expected for a live benchmark)\n", err)
		}
	}()

	workers := benchWorkers
	if workers <= 0 {
		workers = 1
	}

	var allocs, frees, allocFails uint64
	ctx, cancel := context.WithTimeout(context.Background(), benchDuration)
	defer cancel()

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			r := rand.New(rand.NewSource(benchSeed + int64(w)*9973))
			held := make([]uintptr, 0, benchBacklog)
			for {
				select {
				case <-ctx.Done():
					for _, obj := range held {
						c.Free(obj)
					}
					return nil
				default:
				}

				doAlloc := len(held) == 0 || (len(held) < benchBacklog && r.Intn(100) < benchAllocPct)
				if doAlloc {
					obj, err := c.Alloc(0)
					if err != nil {
						atomic.AddUint64(&allocFails, 1)
						continue
					}
					held = append(held, obj)
					atomic.AddUint64(&allocs, 1)
				} else {
					idx := r.Intn(len(held))
					obj := held[idx]
					held[idx] = held[len(held)-1]
					held = held[:len(held)-1]
					c.Free(obj)
					atomic.AddUint64(&frees, 1)
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	ops := allocs + frees
	fmt.Printf("size=%d no_touch=%v workers=%d dur=%v seed=%d\n",
		benchObjSizeUint, benchNoTouch, workers, elapsed, benchSeed)
	fmt.Printf("ops=%d (%.0f ops/s)  allocs=%d  frees=%d  alloc_failures=%d\n",
		ops, float64(ops)/elapsed.Seconds(), allocs, frees, allocFails)
	fmt.Printf("live_objects=%d\n", c.LiveObjects())
	return nil
}
