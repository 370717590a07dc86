// Command slabbench drives synthetic alloc/free workloads against the
// slab allocator and reports throughput, contention, and cache shape.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	metricsAddr string
	configPath  string
)

var rootCmd = &cobra.Command{
	Use:     "slabbench",
	Short:   "Benchmark and inspect the slab+magazine allocator",
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "http", "", "serve Prometheus metrics at addr (empty = disabled)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a HuJSON tunables file (empty = defaults)")
	rootCmd.AddCommand(newBenchCmd())
	rootCmd.AddCommand(newStatsCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
