package usl

import (
	"fmt"
	"strings"
	"testing"
)

// AssertionConfig contains thresholds for scalability properties.
type AssertionConfig struct {
	// Contention threshold (σ < this value passes)
	MaxContention float64

	// Coherency threshold (κ < this value passes)
	MaxCoherency float64

	// Minimum R² for model fit quality
	MinRSquared float64

	// Highest concurrency checked for retrograde throughput
	MaxN int
}

// DefaultAssertionConfig returns conservative thresholds.
func DefaultAssertionConfig() AssertionConfig {
	return AssertionConfig{
		MaxContention: 0.05,  // 5% serialized
		MaxCoherency:  0.001, // peak beyond ~30 concurrent events
		MinRSquared:   0.95,
		MaxN:          16,
	}
}

// AssertGoodFit fits the measurements and fails the test if the fit fails
// or explains less than cfg.MinRSquared of the variance. It returns the
// fitted model.
func AssertGoodFit(t testing.TB, measurements []Measurement, cfg AssertionConfig) Model {
	t.Helper()

	model, err := Fit(measurements)
	if err != nil {
		t.Fatalf("Failed to fit USL model: %v", err)
	}

	r2 := GoodnessOfFit(model, measurements)
	if r2 < cfg.MinRSquared {
		t.Errorf("Poor model fit: R² = %.4f (min: %.4f)\n"+
			"USL model doesn't explain the data. Check for measurement noise.",
			r2, cfg.MinRSquared)
	}

	t.Logf("Model fit: %s, R² = %.4f", model, r2)
	return model
}

// AssertContentionBelow verifies σ is below max.
//
// Low contention means the operation barely serializes: throughput grows
// almost linearly until coherency costs take over.
func AssertContentionBelow(t testing.TB, m Model, max float64) {
	t.Helper()

	if m.Sigma > max {
		t.Errorf("Contention too high: σ = %.6f (max: %.6f)\n"+
			"System serializes on a shared resource. Look for locks or single queues.",
			m.Sigma, max)
		return
	}
	t.Logf("Contention: σ = %.6f (threshold: %.6f)", m.Sigma, max)
}

// AssertCoherencyBelow verifies κ is below max.
//
// Note: κ < 0 indicates superlinear scaling (e.g. a shared cache warming up).
func AssertCoherencyBelow(t testing.TB, m Model, max float64) {
	t.Helper()

	if m.Kappa > max {
		t.Errorf("Coherency too high: κ = %.6f (max: %.6f)\n"+
			"System pays for crosstalk between concurrent events.",
			m.Kappa, max)
		return
	}
	if m.Kappa < 0 {
		t.Logf("Superlinear scaling: κ = %.6f", m.Kappa)
		return
	}
	t.Logf("Coherency: κ = %.6f (threshold: %.6f)", m.Kappa, max)
}

// AssertNoRetrograde verifies predicted throughput never decreases for
// 1 ≤ N ≤ maxN.
func AssertNoRetrograde(t testing.TB, m Model, maxN int) {
	t.Helper()

	var failures []string
	prev, err := m.ThroughputAtConcurrency(1)
	if err != nil {
		t.Fatalf("Throughput undefined at N=1: %v", err)
	}
	for n := 2; n <= maxN; n++ {
		curr, err := m.ThroughputAtConcurrency(float64(n))
		if err != nil {
			t.Fatalf("Throughput undefined at N=%d: %v", n, err)
		}
		if curr < prev {
			failures = append(failures, fmt.Sprintf(
				"  N=%d→%d: %.2f → %.2f ops/sec", n-1, n, prev, curr))
		}
		prev = curr
	}

	if len(failures) > 0 {
		t.Errorf("Retrograde scaling detected:\n%s\n%s",
			strings.Join(failures, "\n"), m)
		return
	}
	t.Logf("No retrograde: throughput increases monotonically up to N=%d", maxN)
}

// AssertScalability fits the measurements and runs every assertion with cfg.
func AssertScalability(t *testing.T, measurements []Measurement, cfg AssertionConfig) {
	t.Helper()

	model := AssertGoodFit(t, measurements, cfg)

	t.Run("Contention", func(t *testing.T) {
		AssertContentionBelow(t, model, cfg.MaxContention)
	})
	t.Run("Coherency", func(t *testing.T) {
		AssertCoherencyBelow(t, model, cfg.MaxCoherency)
	})
	t.Run("NoRetrograde", func(t *testing.T) {
		AssertNoRetrograde(t, model, cfg.MaxN)
	})
}

// LogAnalysis writes the model, the measured-vs-predicted table and a
// capacity summary to the test log.
func LogAnalysis(t testing.TB, m Model, measurements []Measurement) {
	t.Helper()

	t.Logf("=== USL Analysis ===")
	t.Logf("  λ (lambda) = %.2f ops/sec", m.Lambda)
	t.Logf("  σ (sigma)  = %.6f (contention)", m.Sigma)
	t.Logf("  κ (kappa)  = %.6f (coherency)", m.Kappa)
	t.Logf("  R²         = %.4f", GoodnessOfFit(m, measurements))
	t.Logf("  class      = %s", m.Constraint())

	t.Logf("  N      Measured      Predicted  Efficiency")
	for _, obs := range measurements {
		predicted, _ := m.ThroughputAtConcurrency(obs.N)
		efficiency, _ := m.Efficiency(obs.N)
		t.Logf("  %-6.1f %12.2f  %12.2f  %8.1f%%", obs.N, obs.X, predicted, efficiency*100)
	}

	if n, err := m.MaxConcurrency(); err == nil {
		x, _ := m.MaxThroughput()
		t.Logf("  Peak: N=%d, X=%.2f ops/sec", n, x)
	} else {
		t.Logf("  Peak: none (%v)", err)
	}
}
