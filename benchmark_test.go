package usl

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// TestRun_SimpleOperation verifies the runner measures every level.
func TestRun_SimpleOperation(t *testing.T) {
	var counter int64

	op := func(ctx context.Context) error {
		atomic.AddInt64(&counter, 1)
		return nil
	}

	cfg := DefaultConfig()
	cfg.Duration = 200 * time.Millisecond
	cfg.Warmup = 50 * time.Millisecond
	cfg.Levels = []int{1, 2}

	results, err := Run(context.Background(), op, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	for i, level := range cfg.Levels {
		r := results[i]
		if r.Level != level {
			t.Errorf("Expected N=%d, got N=%d", level, r.Level)
		}
		if r.Operations == 0 {
			t.Errorf("No operations recorded for N=%d", level)
		}
		if int64(len(r.Latencies)) != r.Operations {
			t.Errorf("N=%d: %d latencies for %d operations", level, len(r.Latencies), r.Operations)
		}
		if r.Elapsed < cfg.Duration*9/10 {
			t.Errorf("N=%d: elapsed %v, configured %v", level, r.Elapsed, cfg.Duration)
		}
		t.Logf("N=%d: %d ops, %.2f ops/sec", r.Level, r.Operations, r.Throughput)
	}

	ms, err := Measurements(results)
	if err != nil {
		t.Fatalf("Measurements failed: %v", err)
	}
	if len(ms) != len(results) {
		t.Fatalf("Expected %d measurements, got %d", len(results), len(ms))
	}
	for i, m := range ms {
		if m.N != float64(results[i].Level) || m.X != results[i].Throughput {
			t.Errorf("Measurement %d: %v does not match result N=%d X=%v",
				i, m, results[i].Level, results[i].Throughput)
		}
	}
}

func TestRun_CountsErrors(t *testing.T) {
	var calls atomic.Int64
	errBoom := errors.New("boom")
	op := func(ctx context.Context) error {
		if calls.Add(1)%2 == 0 {
			return errBoom
		}
		time.Sleep(100 * time.Microsecond)
		return nil
	}

	cfg := Config{Duration: 100 * time.Millisecond, Levels: []int{1}}
	results, err := Run(context.Background(), op, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if results[0].Errors == 0 {
		t.Error("Expected failed operations to be counted")
	}
	if results[0].Operations == 0 {
		t.Error("Expected completed operations to be counted")
	}
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	op := func(ctx context.Context) error { return nil }
	cfg := Config{Duration: time.Second, Levels: []int{1, 2}}

	start := time.Now()
	_, err := Run(ctx, op, cfg)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if took := time.Since(start); took > 500*time.Millisecond {
		t.Errorf("Canceled run took %v", took)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	op := func(ctx context.Context) error { return nil }

	tests := []struct {
		name string
		cfg  Config
	}{
		{"no levels", Config{Duration: time.Millisecond}},
		{"zero duration", Config{Levels: []int{1}}},
		{"negative duration", Config{Duration: -time.Second, Levels: []int{1}}},
		{"zero level", Config{Duration: time.Millisecond, Levels: []int{0}}},
		{"negative level", Config{Duration: time.Millisecond, Levels: []int{1, -2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Run(context.Background(), op, tt.cfg); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

// TestCalculateStatistics verifies percentile calculations.
func TestCalculateStatistics(t *testing.T) {
	result := Result{
		Level:      1,
		Elapsed:    1 * time.Second,
		Operations: 5,
		Latencies: []time.Duration{
			500 * time.Microsecond,
			100 * time.Microsecond,
			300 * time.Microsecond,
			200 * time.Microsecond,
			400 * time.Microsecond,
		},
	}

	stats := CalculateStatistics(result)

	// P50 should be 300μs (middle value)
	if stats.P50 != 300*time.Microsecond {
		t.Errorf("P50: expected 300µs, got %v", stats.P50)
	}
	if stats.Mean != 300*time.Microsecond {
		t.Errorf("Mean: expected 300µs, got %v", stats.Mean)
	}
	if stats.P99 != 500*time.Microsecond {
		t.Errorf("P99: expected 500µs, got %v", stats.P99)
	}
	// √(2·10⁴) µs
	if stats.Stddev < 141*time.Microsecond || stats.Stddev > 142*time.Microsecond {
		t.Errorf("Stddev: expected ~141.4µs, got %v", stats.Stddev)
	}
	if stats.TailRatio != 500.0/300.0 {
		t.Errorf("TailRatio: expected %.4f, got %.4f", 500.0/300.0, stats.TailRatio)
	}
	if result.Latencies[0] != 500*time.Microsecond {
		t.Error("CalculateStatistics reordered the input")
	}

	if empty := CalculateStatistics(Result{}); empty != (Statistics{}) {
		t.Errorf("Expected zero statistics, got %+v", empty)
	}

	t.Logf("Stats: mean=%v, p50=%v, p95=%v, p99=%v",
		stats.Mean, stats.P50, stats.P95, stats.P99)
}

func TestMeasurements_IdleLevel(t *testing.T) {
	results := []Result{
		{Level: 1, Throughput: 1000},
		{Level: 2, Throughput: 0},
	}

	_, err := Measurements(results)
	if !errors.Is(err, ErrDomain) {
		t.Fatalf("Expected ErrDomain, got %v", err)
	}
}
