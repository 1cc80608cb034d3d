package usl

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Operation is the unit of work driven by Run. It must be safe for
// concurrent execution.
type Operation func(ctx context.Context) error

// Result contains measurements from a single concurrency level.
type Result struct {
	Level      int             // Number of concurrent workers
	Elapsed    time.Duration   // Measurement phase wall time
	Operations int64           // Completed operations
	Errors     int64           // Failed operations
	Throughput float64         // Completed operations per second
	Latencies  []time.Duration // Per-operation latency of completed operations
}

// Statistics contains latency summary data for one Result.
type Statistics struct {
	Mean   time.Duration
	Stddev time.Duration
	P50    time.Duration
	P95    time.Duration
	P99    time.Duration

	// TailRatio is P99/P50. Near 1 the distribution is tight; a growing
	// ratio means the tail dominates the average, typical past the peak.
	TailRatio float64
}

// Config controls Run.
type Config struct {
	Duration time.Duration // How long to measure at each level
	Warmup   time.Duration // Unmeasured run before each level
	Levels   []int         // Concurrency levels, at least MinMeasurements of them to fit
	MaxProcs int           // GOMAXPROCS during the run (0 = leave as is)
	Logger   *slog.Logger  // nil = slog.Default()
}

// DefaultConfig returns eight levels of two seconds each.
func DefaultConfig() Config {
	return Config{
		Duration: 2 * time.Second,
		Warmup:   500 * time.Millisecond,
		Levels:   []int{1, 2, 4, 8, 12, 16, 24, 32},
	}
}

// Run executes op at each configured concurrency level in order.
//
// If N exceeds GOMAXPROCS, the contention measured includes Go scheduler
// overhead rather than only the operation's own serialization.
func Run(ctx context.Context, op Operation, cfg Config) ([]Result, error) {
	if len(cfg.Levels) == 0 {
		return nil, fmt.Errorf("usl: no concurrency levels configured")
	}
	if cfg.Duration <= 0 {
		return nil, fmt.Errorf("usl: measurement duration must be positive, got %v", cfg.Duration)
	}
	if cfg.MaxProcs > 0 {
		old := runtime.GOMAXPROCS(cfg.MaxProcs)
		defer runtime.GOMAXPROCS(old)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	results := make([]Result, 0, len(cfg.Levels))
	for _, n := range cfg.Levels {
		if n <= 0 {
			return nil, fmt.Errorf("usl: concurrency level must be positive, got %d", n)
		}
		result, err := runLevel(ctx, op, n, cfg)
		if err != nil {
			return nil, fmt.Errorf("usl: level N=%d: %w", n, err)
		}
		logger.Debug("usl level measured",
			"n", n,
			"operations", result.Operations,
			"errors", result.Errors,
			"throughput", result.Throughput)
		results = append(results, result)
	}
	return results, nil
}

func runLevel(ctx context.Context, op Operation, n int, cfg Config) (Result, error) {
	if cfg.Warmup > 0 {
		warmupCtx, cancel := context.WithTimeout(ctx, cfg.Warmup)
		_ = runPhase(warmupCtx, op, n)
		cancel()
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	measureCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()
	result := runPhase(measureCtx, op, n)

	// The phase ends on its own deadline; only the parent's cancellation is
	// a failure.
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return result, nil
}

func runPhase(ctx context.Context, op Operation, n int) Result {
	var (
		wg         sync.WaitGroup
		operations atomic.Int64
		failures   atomic.Int64
		latencies  = make([][]time.Duration, n)
	)

	start := time.Now()
	for w := 0; w < n; w++ {
		wg.Add(1)
		latencies[w] = make([]time.Duration, 0, 1024)
		go func(w int) {
			defer wg.Done()
			for ctx.Err() == nil {
				opStart := time.Now()
				err := op(ctx)
				took := time.Since(opStart)
				if err != nil {
					failures.Add(1)
					continue
				}
				operations.Add(1)
				latencies[w] = append(latencies[w], took)
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	all := make([]time.Duration, 0, operations.Load())
	for _, l := range latencies {
		all = append(all, l...)
	}

	return Result{
		Level:      n,
		Elapsed:    elapsed,
		Operations: operations.Load(),
		Errors:     failures.Load(),
		Throughput: float64(operations.Load()) / elapsed.Seconds(),
		Latencies:  all,
	}
}

// Measurement converts the result into a fit input, deriving latency from
// the level and throughput.
func (r Result) Measurement() (Measurement, error) {
	return ConcurrencyAndThroughput(float64(r.Level), r.Throughput)
}

// Measurements converts results in order. A level that completed no
// operations is an error.
func Measurements(results []Result) ([]Measurement, error) {
	ms := make([]Measurement, 0, len(results))
	for _, r := range results {
		m, err := r.Measurement()
		if err != nil {
			return nil, fmt.Errorf("level N=%d: %w", r.Level, err)
		}
		ms = append(ms, m)
	}
	return ms, nil
}

// CalculateStatistics computes mean, standard deviation and percentile
// latencies of a result.
func CalculateStatistics(result Result) Statistics {
	if len(result.Latencies) == 0 {
		return Statistics{}
	}

	sorted := make([]time.Duration, len(result.Latencies))
	copy(sorted, result.Latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}
	mean := sum / time.Duration(len(sorted))

	var variance float64
	for _, l := range sorted {
		diff := float64(l - mean)
		variance += diff * diff
	}

	stats := Statistics{
		Mean:   mean,
		Stddev: time.Duration(math.Sqrt(variance / float64(len(sorted)))),
		P50:    sorted[len(sorted)*50/100],
		P95:    sorted[len(sorted)*95/100],
		P99:    sorted[len(sorted)*99/100],
	}
	if stats.P50 > 0 {
		stats.TailRatio = float64(stats.P99) / float64(stats.P50)
	}
	return stats
}
