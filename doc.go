// Package usl builds Universal Scalability Law models from observed
// measurements and answers capacity questions against them.
//
// # Overview
//
// Dr. Neil Gunther's USL models throughput as a function of concurrency:
//
//	X(N) = λN / (1 + σ(N-1) + κN(N-1))
//
// Where:
//   - λ (lambda): throughput at one unit of concurrency
//   - σ (sigma): contention coefficient (serialization, lock waiting)
//   - κ (kappa): coherency coefficient (crosstalk, cache coherency)
//   - N: number of concurrent events
//
// Contention degrades scalability linearly with N, coherency quadratically.
// With κ > 0 throughput peaks at N = √((1-σ)/κ) and falls beyond it.
//
// # Measurements
//
// A Measurement is any two of concurrency, throughput and latency; the
// third is derived with Little's Law, N = X·R:
//
//	m, err := usl.ConcurrencyAndThroughput(8, 6531.08)
//	m, err := usl.ConcurrencyAndLatency(8, 1200*time.Microsecond)
//	m, err := usl.ThroughputAndLatency(6531.08, 1200*time.Microsecond)
//
// # Fitting
//
// Fit needs at least MinMeasurements points spread over MinLevels distinct
// concurrency levels, and runs a Levenberg-Marquardt
// least-squares fit (package lm):
//
//	model, err := usl.Fit(measurements)
//	var nc *usl.NonConvergenceError
//	if errors.As(err, &nc) {
//	    log.Printf("no fit after %d iterations, best guess %s", nc.Iterations, nc.Best)
//	}
//
// The solver is a seam: FitOptions.Solver accepts anything that minimizes an
// lm.Problem.
//
// # Queries
//
//	x, _ := model.ThroughputAtConcurrency(100)
//	r, _ := model.LatencyAtConcurrency(100)
//	n, _ := model.MaxConcurrency()
//	x, _ = model.ThroughputAtLatency(30 * time.Millisecond)
//
// Queries return ErrUndefined when the coefficients make the formula
// degenerate, e.g. MaxConcurrency of a limitless (κ ≈ 0) model.
//
// # Collecting data
//
// Run drives an Operation at several concurrency levels and Measurements
// turns the results into fit input:
//
//	results, err := usl.Run(ctx, op, usl.DefaultConfig())
//	measurements, err := usl.Measurements(results)
//
// # Testing
//
// The Assert helpers check scalability properties of a fitted model:
//
//	func TestCacheScales(t *testing.T) {
//	    model := usl.AssertGoodFit(t, measurements, usl.DefaultAssertionConfig())
//	    usl.AssertContentionBelow(t, model, 0.05)
//	    usl.AssertNoRetrograde(t, model, 64)
//	}
package usl
