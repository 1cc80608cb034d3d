package usl

import (
	"fmt"
	"math"
	"time"
)

// LimitlessTolerance is the magnitude below which κ counts as zero, making
// the model linearly scalable with no throughput peak.
const LimitlessTolerance = 1e-9

// Model is a fitted Universal Scalability Law model:
//
//	X(N) = λN / (1 + σ(N-1) + κN(N-1))
//
// Values are immutable; every query is a pure function of the three
// coefficients and safe for concurrent use.
type Model struct {
	Sigma  float64 // σ: contention coefficient
	Kappa  float64 // κ: coherency (crosstalk) coefficient
	Lambda float64 // λ: throughput at one unit of concurrency
}

func (m Model) String() string {
	return fmt.Sprintf("σ=%.6g κ=%.6g λ=%.6g", m.Sigma, m.Kappa, m.Lambda)
}

// penalty is the USL denominator 1 + σ(N-1) + κN(N-1).
func (m Model) penalty(n float64) float64 {
	return 1 + m.Sigma*(n-1) + m.Kappa*n*(n-1)
}

// ThroughputAtConcurrency returns the expected throughput X(N).
//
// Practical Scalability Analysis with the Universal Scalability Law, Eq. 3.
func (m Model) ThroughputAtConcurrency(n float64) (float64, error) {
	if !finite(n) || n < 0 {
		return 0, undefined("concurrency must be non-negative and finite, got %v", n)
	}
	d := m.penalty(n)
	if d == 0 {
		return 0, undefined("throughput denominator vanishes at N=%v", n)
	}
	return m.Lambda * n / d, nil
}

// LatencyAtConcurrency returns the expected mean latency R(N) in seconds.
//
// Practical Scalability Analysis with the Universal Scalability Law, Eq. 6.
func (m Model) LatencyAtConcurrency(n float64) (float64, error) {
	if !finite(n) || n < 0 {
		return 0, undefined("concurrency must be non-negative and finite, got %v", n)
	}
	if m.Lambda == 0 {
		return 0, undefined("latency requires λ ≠ 0")
	}
	return m.penalty(n) / m.Lambda, nil
}

// PeakConcurrency returns the continuous concurrency √((1-σ)/κ) at which
// X(N) is maximal.
func (m Model) PeakConcurrency() (float64, error) {
	if m.Kappa <= 0 || m.Limitless() {
		return 0, undefined("no throughput peak for κ=%g", m.Kappa)
	}
	v := (1 - m.Sigma) / m.Kappa
	if v < 0 {
		return 0, undefined("no throughput peak for σ=%g", m.Sigma)
	}
	return math.Sqrt(v), nil
}

// MaxConcurrency returns ⌊√((1-σ)/κ)⌋, the whole number of concurrent events
// at which throughput peaks, N_max.
//
// Practical Scalability Analysis with the Universal Scalability Law, Eq. 4.
func (m Model) MaxConcurrency() (int, error) {
	peak, err := m.PeakConcurrency()
	if err != nil {
		return 0, err
	}
	if peak > math.MaxInt32 {
		return 0, undefined("peak concurrency %g out of range", peak)
	}
	return int(math.Floor(peak)), nil
}

// MaxThroughput returns X(N_max).
func (m Model) MaxThroughput() (float64, error) {
	n, err := m.MaxConcurrency()
	if err != nil {
		return 0, err
	}
	return m.ThroughputAtConcurrency(float64(n))
}

// LatencyAtThroughput returns the expected mean latency R(X) in seconds.
//
// Practical Scalability Analysis with the Universal Scalability Law, Eq. 8.
func (m Model) LatencyAtThroughput(x float64) (float64, error) {
	d := m.Sigma*x - m.Lambda
	if d == 0 || !finite(x) {
		return 0, undefined("latency at throughput %v: σX = λ", x)
	}
	return (m.Sigma - 1) / d, nil
}

// ThroughputAtLatency returns the expected throughput X(R).
//
// Practical Scalability Analysis with the Universal Scalability Law, Eq. 9.
func (m Model) ThroughputAtLatency(r time.Duration) (float64, error) {
	root, err := m.latencyRoot(r)
	if err != nil {
		return 0, err
	}
	return (root - m.Kappa + m.Sigma) / (2 * m.Kappa * r.Seconds()), nil
}

// ConcurrencyAtLatency returns the expected concurrency N(R).
//
// Practical Scalability Analysis with the Universal Scalability Law, Eq. 10.
func (m Model) ConcurrencyAtLatency(r time.Duration) (float64, error) {
	root, err := m.latencyRoot(r)
	if err != nil {
		return 0, err
	}
	return (m.Kappa - m.Sigma + root) / (2 * m.Kappa), nil
}

// latencyRoot is √(σ² + κ² + 2κ(2λR + σ - 2)), shared by Eq. 9 and 10.
func (m Model) latencyRoot(r time.Duration) (float64, error) {
	if m.Kappa <= 0 || m.Limitless() {
		return 0, undefined("latency inversion requires κ > 0, got %g", m.Kappa)
	}
	if r <= 0 {
		return 0, undefined("latency must be positive, got %v", r)
	}
	sec := r.Seconds()
	disc := m.Sigma*m.Sigma + m.Kappa*m.Kappa + 2*m.Kappa*(2*m.Lambda*sec+m.Sigma-2)
	if disc < 0 {
		return 0, undefined("latency %v below model minimum", r)
	}
	return math.Sqrt(disc), nil
}

// ConcurrencyAtThroughput returns the expected concurrency N(X) = R(X)·X.
func (m Model) ConcurrencyAtThroughput(x float64) (float64, error) {
	r, err := m.LatencyAtThroughput(x)
	if err != nil {
		return 0, err
	}
	return r * x, nil
}

// Efficiency returns X(N)/(λN): 1.0 is perfect linear scaling.
func (m Model) Efficiency(n float64) (float64, error) {
	x, err := m.ThroughputAtConcurrency(n)
	if err != nil {
		return 0, err
	}
	ideal := m.Lambda * n
	if ideal == 0 {
		return 0, undefined("efficiency requires λN ≠ 0")
	}
	return x / ideal, nil
}

// ContentionConstrained reports whether contention dominates coherency
// (σ > κ) in a model that has a throughput peak.
func (m Model) ContentionConstrained() bool {
	return !m.Limitless() && m.Sigma > m.Kappa
}

// CoherencyConstrained reports whether coherency dominates contention
// (σ < κ) in a model that has a throughput peak.
func (m Model) CoherencyConstrained() bool {
	return !m.Limitless() && m.Sigma < m.Kappa
}

// Limitless reports whether κ ≈ 0, i.e. throughput grows without a peak.
func (m Model) Limitless() bool {
	return math.Abs(m.Kappa) <= LimitlessTolerance
}

// Constraint names the model's classification.
func (m Model) Constraint() string {
	switch {
	case m.Limitless():
		return "limitless"
	case m.ContentionConstrained():
		return "contention"
	case m.CoherencyConstrained():
		return "coherency"
	}
	return "balanced"
}
