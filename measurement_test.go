package usl

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestMeasurement_Constructors(t *testing.T) {
	tests := []struct {
		name  string
		build func() (Measurement, error)
	}{
		{"concurrency and latency", func() (Measurement, error) {
			return ConcurrencyAndLatency(3, 600*time.Millisecond)
		}},
		{"concurrency and throughput", func() (Measurement, error) {
			return ConcurrencyAndThroughput(3, 5)
		}},
		{"throughput and latency", func() (Measurement, error) {
			return ThroughputAndLatency(5, 600*time.Millisecond)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := tt.build()
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			assertClose(t, "N", m.N, 3, 1e-12)
			assertClose(t, "X", m.X, 5, 1e-12)
			assertClose(t, "R", m.R, 0.6, 1e-12)
		})
	}
}

func TestMeasurement_LittlesLaw(t *testing.T) {
	concurrencies := []float64{0, 1, 2.5, 10, 64, 1000}
	latencies := []time.Duration{time.Microsecond, time.Millisecond, 250 * time.Millisecond, 3 * time.Second}

	for _, n := range concurrencies {
		for _, r := range latencies {
			m, err := ConcurrencyAndLatency(n, r)
			if err != nil {
				t.Fatalf("ConcurrencyAndLatency(%v, %v): %v", n, r, err)
			}
			if got := m.X * m.R; math.Abs(got-n) > 1e-12*math.Max(1, n) {
				t.Errorf("ConcurrencyAndLatency(%v, %v): X·R = %v", n, r, got)
			}

			x := n/r.Seconds() + 1 // keep throughput positive when n = 0
			m, err = ConcurrencyAndThroughput(n, x)
			if err != nil {
				t.Fatalf("ConcurrencyAndThroughput(%v, %v): %v", n, x, err)
			}
			if got := n / x; got != m.R {
				t.Errorf("ConcurrencyAndThroughput(%v, %v): R = %v, want %v", n, x, m.R, got)
			}

			m, err = ThroughputAndLatency(x, r)
			if err != nil {
				t.Fatalf("ThroughputAndLatency(%v, %v): %v", x, r, err)
			}
			if m.N != m.X*m.R {
				t.Errorf("ThroughputAndLatency(%v, %v): N = %v, X·R = %v", x, r, m.N, m.X*m.R)
			}
		}
	}
}

func TestMeasurement_DomainErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func() (Measurement, error)
	}{
		{"zero latency", func() (Measurement, error) { return ConcurrencyAndLatency(3, 0) }},
		{"negative latency", func() (Measurement, error) { return ConcurrencyAndLatency(3, -time.Millisecond) }},
		{"NaN concurrency", func() (Measurement, error) { return ConcurrencyAndLatency(math.NaN(), time.Millisecond) }},
		{"negative concurrency", func() (Measurement, error) { return ConcurrencyAndLatency(-1, time.Millisecond) }},
		{"zero throughput", func() (Measurement, error) { return ConcurrencyAndThroughput(3, 0) }},
		{"negative throughput", func() (Measurement, error) { return ConcurrencyAndThroughput(3, -5) }},
		{"infinite throughput", func() (Measurement, error) { return ConcurrencyAndThroughput(3, math.Inf(1)) }},
		{"infinite concurrency", func() (Measurement, error) { return ConcurrencyAndThroughput(math.Inf(1), 5) }},
		{"negative throughput with latency", func() (Measurement, error) { return ThroughputAndLatency(-1, time.Millisecond) }},
		{"NaN throughput with latency", func() (Measurement, error) { return ThroughputAndLatency(math.NaN(), time.Millisecond) }},
		{"negative latency with throughput", func() (Measurement, error) { return ThroughputAndLatency(5, -time.Millisecond) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := tt.build()
			if !errors.Is(err, ErrDomain) {
				t.Fatalf("Expected ErrDomain, got %v (measurement %v)", err, m)
			}
			if m != (Measurement{}) {
				t.Errorf("Expected zero measurement on error, got %v", m)
			}
		})
	}
}

func TestMeasurement_ZeroThroughputAndLatency(t *testing.T) {
	m, err := ThroughputAndLatency(0, time.Millisecond)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if m.N != 0 {
		t.Errorf("Expected N=0, got %v", m.N)
	}
}

func TestMeasurement_Latency(t *testing.T) {
	m, err := ConcurrencyAndThroughput(3, 5)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := m.Latency(); got != 600*time.Millisecond {
		t.Errorf("Expected 600ms, got %v", got)
	}
	if got := m.String(); got != "N=3 X=5/s R=600ms" {
		t.Errorf("Unexpected String(): %q", got)
	}
}

func assertClose(t *testing.T, name string, got, want, relTol float64) {
	t.Helper()
	diff := math.Abs(got - want)
	if want != 0 {
		diff /= math.Abs(want)
	}
	if diff > relTol || math.IsNaN(got) {
		t.Errorf("%s: expected %.12g, got %.12g (relative error %.3g > %.3g)", name, want, got, diff, relTol)
	}
}
