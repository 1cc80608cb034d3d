package usl

import (
	"fmt"
	"math"
	"time"
)

// Measurement is a simultaneous observation of concurrency, throughput and
// latency. Any two determine the third through Little's Law, N = X·R, and the
// constructors derive the missing one so the triple is always consistent.
type Measurement struct {
	N float64 // Average number of concurrent events
	X float64 // Throughput, events/sec
	R float64 // Average event duration, seconds
}

// ConcurrencyAndLatency builds a measurement from a concurrency level and the
// mean latency observed at it. Throughput is derived as N/R.
func ConcurrencyAndLatency(n float64, r time.Duration) (Measurement, error) {
	if err := checkConcurrency(n); err != nil {
		return Measurement{}, err
	}
	if r <= 0 {
		return Measurement{}, domain("latency must be positive to derive throughput, got %v", r)
	}
	sec := r.Seconds()
	return Measurement{N: n, X: n / sec, R: sec}, nil
}

// ConcurrencyAndThroughput builds a measurement from a concurrency level and
// the throughput observed at it. Latency is derived as N/X.
func ConcurrencyAndThroughput(n, x float64) (Measurement, error) {
	if err := checkConcurrency(n); err != nil {
		return Measurement{}, err
	}
	if !finite(x) || x <= 0 {
		return Measurement{}, domain("throughput must be positive and finite to derive latency, got %v", x)
	}
	return Measurement{N: n, X: x, R: n / x}, nil
}

// ThroughputAndLatency builds a measurement from a throughput and the mean
// latency observed at it. Concurrency is derived as X·R.
func ThroughputAndLatency(x float64, r time.Duration) (Measurement, error) {
	if !finite(x) || x < 0 {
		return Measurement{}, domain("throughput must be non-negative and finite, got %v", x)
	}
	if r < 0 {
		return Measurement{}, domain("latency must be non-negative, got %v", r)
	}
	sec := r.Seconds()
	return Measurement{N: x * sec, X: x, R: sec}, nil
}

// Latency returns R as a duration, rounded to the nanosecond.
func (m Measurement) Latency() time.Duration {
	return time.Duration(math.Round(m.R * float64(time.Second)))
}

func (m Measurement) String() string {
	return fmt.Sprintf("N=%g X=%g/s R=%v", m.N, m.X, m.Latency())
}

func (m Measurement) validate() error {
	if err := checkConcurrency(m.N); err != nil {
		return err
	}
	if !finite(m.X) || m.X < 0 {
		return domain("throughput must be non-negative and finite, got %v", m.X)
	}
	if !finite(m.R) || m.R < 0 {
		return domain("latency must be non-negative and finite, got %v", m.R)
	}
	return nil
}

func checkConcurrency(n float64) error {
	if !finite(n) || n < 0 {
		return domain("concurrency must be non-negative and finite, got %v", n)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
