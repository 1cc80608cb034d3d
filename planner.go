package usl

import (
	"fmt"
)

// ScalingDecision is the planner's recommended action.
type ScalingDecision string

const (
	ScaleUp   ScalingDecision = "SCALE_UP"  // Below the knee: more concurrency buys real throughput
	Maintain  ScalingDecision = "MAINTAIN"  // Between knee and peak: diminishing returns
	ShedLoad  ScalingDecision = "SHED_LOAD" // Past the peak: more concurrency lowers throughput
	Unbounded ScalingDecision = "UNBOUNDED" // κ ≈ 0: no peak to plan against
)

// PlanConfig controls Plan.
type PlanConfig struct {
	// Fraction of the peak throughput that defines the knee. Concurrency
	// beyond the knee adds little throughput per unit.
	TargetUtilization float64
}

// DefaultPlanConfig plans for 80% of peak throughput.
func DefaultPlanConfig() PlanConfig {
	return PlanConfig{TargetUtilization: 0.8}
}

// Recommendation explains a scaling decision.
type Recommendation struct {
	Decision     ScalingDecision
	Current      int     // Concurrency the plan was made for
	Target       int     // Recommended concurrency
	Peak         int     // N_max, 0 when unbounded
	Throughput   float64 // Predicted throughput at Current
	Utilization  float64 // Throughput / X(N_max), 0 when unbounded
	MarginalGain float64 // X(Current+1) - X(Current)
	Reason       string
}

// Plan recommends a concurrency level for a system currently running at
// current concurrent events.
//
// Traditional autoscalers add capacity whenever load is high. Under USL,
// once κ > 0 every added unit also adds N(N-1) crosstalk, and past the peak
// adding capacity reduces throughput:
//
//   - X(current+1) < X(current): SHED_LOAD, back to the knee
//   - current below the knee:    SCALE_UP, to the knee
//   - otherwise:                 MAINTAIN
//
// The knee is the smallest N whose predicted throughput reaches
// cfg.TargetUtilization of the peak. Models whose peak falls below N=1 have
// nothing to plan against and return ErrUndefined.
func (m Model) Plan(current int, cfg PlanConfig) (Recommendation, error) {
	if current < 1 {
		return Recommendation{}, undefined("current concurrency must be positive, got %d", current)
	}
	if cfg.TargetUtilization <= 0 || cfg.TargetUtilization > 1 {
		return Recommendation{}, fmt.Errorf("usl: target utilization must be in (0, 1], got %v", cfg.TargetUtilization)
	}

	x, err := m.ThroughputAtConcurrency(float64(current))
	if err != nil {
		return Recommendation{}, err
	}
	next, err := m.ThroughputAtConcurrency(float64(current + 1))
	if err != nil {
		return Recommendation{}, err
	}

	rec := Recommendation{
		Current:      current,
		Throughput:   x,
		MarginalGain: next - x,
	}

	if m.Limitless() {
		rec.Decision = Unbounded
		rec.Target = current
		rec.Reason = fmt.Sprintf("κ ≈ 0: throughput scales with concurrency (efficiency set by σ=%.4f), no peak", m.Sigma)
		return rec, nil
	}

	peak, err := m.MaxConcurrency()
	if err != nil {
		return Recommendation{}, err
	}
	if peak < 1 {
		return Recommendation{}, undefined("throughput peaks below N=1 (N_max=%d)", peak)
	}
	xmax, err := m.MaxThroughput()
	if err != nil {
		return Recommendation{}, err
	}
	if xmax <= 0 {
		return Recommendation{}, undefined("non-positive peak throughput %g", xmax)
	}
	rec.Peak = peak
	rec.Utilization = x / xmax

	knee, err := m.knee(cfg.TargetUtilization*xmax, peak)
	if err != nil {
		return Recommendation{}, err
	}

	switch {
	case rec.MarginalGain < 0:
		rec.Decision = ShedLoad
		rec.Target = knee
		rec.Reason = fmt.Sprintf("RETROGRADE: N=%d is past the peak N=%d; each added unit loses %.2f ops/sec",
			current, peak, -rec.MarginalGain)
	case current < knee:
		rec.Decision = ScaleUp
		rec.Target = knee
		rec.Reason = fmt.Sprintf("HEADROOM: %.0f%% of peak throughput at N=%d, knee at N=%d",
			rec.Utilization*100, current, knee)
	default:
		rec.Decision = Maintain
		rec.Target = current
		rec.Reason = fmt.Sprintf("DIMINISHING RETURNS: %.0f%% of peak throughput, +%.2f ops/sec per added unit",
			rec.Utilization*100, rec.MarginalGain)
	}
	return rec, nil
}

func (m Model) knee(goal float64, peak int) (int, error) {
	for n := 1; n < peak; n++ {
		x, err := m.ThroughputAtConcurrency(float64(n))
		if err != nil {
			return 0, err
		}
		if x >= goal {
			return n, nil
		}
	}
	return peak, nil
}
