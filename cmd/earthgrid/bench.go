package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/1F47E/earthgrid/pkg/grid"
	"github.com/1F47E/earthgrid/pkg/models"
	"github.com/1F47E/earthgrid/pkg/rtree"
)

var (
	benchKind    string
	benchQueries int
	benchWorkers int
	benchSpan    float64
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure grid generation and hotspot lookup throughput",
	Long: `Run concurrent grid generations (-t grid) or hotspot radius lookups (-t within)
over random viewports and report latency statistics.`,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().StringVarP(&layerName, "layer", "l", string(grid.LayerPollution), "Layer")
	benchCmd.Flags().StringVarP(&benchKind, "type", "t", "grid", "Benchmark type: grid or within")
	benchCmd.Flags().IntVarP(&benchQueries, "queries", "n", 1000, "Number of operations")
	benchCmd.Flags().IntVarP(&benchWorkers, "workers", "w", runtime.NumCPU(), "Number of concurrent workers")
	benchCmd.Flags().Float64Var(&benchSpan, "span", 10, "Viewport span in degrees")
}

type benchResult struct {
	Kind          string
	Total         int
	TotalDuration time.Duration
	AvgDuration   time.Duration
	OpsPerSec     float64
	MinDuration   time.Duration
	MaxDuration   time.Duration
	TotalResults  int64
}

// runWorkers spreads n operations over a worker pool. op returns how many
// results it produced.
func runWorkers(n, workers int, op func(r *rand.Rand) int) benchResult {
	var (
		totalResults atomic.Int64
		minDuration  = time.Hour
		maxDuration  time.Duration
		mu           sync.Mutex
		wg           sync.WaitGroup
	)
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		jobs <- struct{}{}
	}
	close(jobs)

	start := time.Now()
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(seed uint64) {
			defer wg.Done()
			r := rand.New(rand.NewPCG(seed, uint64(time.Now().UnixNano())))
			for range jobs {
				t := time.Now()
				totalResults.Add(int64(op(r)))
				d := time.Since(t)

				mu.Lock()
				if d < minDuration {
					minDuration = d
				}
				if d > maxDuration {
					maxDuration = d
				}
				mu.Unlock()
			}
		}(uint64(w))
	}
	wg.Wait()
	elapsed := time.Since(start)

	res := benchResult{
		Total:         n,
		TotalDuration: elapsed,
		MinDuration:   minDuration,
		MaxDuration:   maxDuration,
		TotalResults:  totalResults.Load(),
	}
	if n > 0 {
		res.AvgDuration = elapsed / time.Duration(n)
		res.OpsPerSec = float64(n) / elapsed.Seconds()
	} else {
		res.MinDuration = 0
	}
	return res
}

// randomViewport picks a span-sized viewport fully inside the world bounds.
func randomViewport(r *rand.Rand, span float64) models.Viewport {
	south := -90 + r.Float64()*(180-span)
	west := -180 + r.Float64()*(360-span)
	return models.Viewport{North: south + span, South: south, East: west + span, West: west}
}

func runBench(cmd *cobra.Command, args []string) error {
	if benchSpan <= 0 || benchSpan >= 180 {
		return fmt.Errorf("invalid span %.2f: want (0, 180)", benchSpan)
	}

	layer := grid.Layer(layerName)
	gen, err := cfg.NewGenerator(layer)
	if err != nil {
		return err
	}
	hotspots, err := layerHotspots(layer)
	if err != nil {
		return err
	}
	index, err := rtree.NewHotspotIndex(hotspots)
	if err != nil {
		return err
	}
	params := gen.Params()

	var res benchResult
	switch benchKind {
	case "grid":
		res = runWorkers(benchQueries, benchWorkers, func(r *rand.Rand) int {
			samples, err := gen.GenerateIndexed(randomViewport(r, benchSpan), index, params.Resolution)
			if err != nil {
				return 0
			}
			return len(samples)
		})
	case "within":
		res = runWorkers(benchQueries, benchWorkers, func(r *rand.Rand) int {
			return len(index.Within(r.Float64()*180-90, r.Float64()*360-180, params.Radius))
		})
	default:
		return fmt.Errorf("unknown benchmark type %q", benchKind)
	}
	res.Kind = benchKind

	printBench(cmd.OutOrStdout(), res, benchWorkers)
	return nil
}

func printBench(w io.Writer, res benchResult, workers int) {
	fmt.Fprintln(w, "\n=== Benchmark Results ===")
	fmt.Fprintf(w, "Type: %s\n", res.Kind)
	fmt.Fprintf(w, "Operations: %d\n", res.Total)
	fmt.Fprintf(w, "Total Duration: %v\n", res.TotalDuration)
	fmt.Fprintf(w, "Average Duration: %v\n", res.AvgDuration)
	fmt.Fprintf(w, "Ops/Second: %.2f\n", res.OpsPerSec)
	fmt.Fprintf(w, "Min Duration: %v\n", res.MinDuration)
	fmt.Fprintf(w, "Max Duration: %v\n", res.MaxDuration)
	fmt.Fprintf(w, "Total Results: %d\n", res.TotalResults)
	fmt.Fprintf(w, "Workers Used: %d\n", workers)
	fmt.Fprintf(w, "CPU Cores: %d\n", runtime.NumCPU())
}
