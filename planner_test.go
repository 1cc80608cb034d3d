package usl

import (
	"errors"
	"testing"
)

func TestPlan_Decisions(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		decision ScalingDecision
		target   int
	}{
		{"far below knee", 1, ScaleUp, 16},
		{"below knee", 4, ScaleUp, 16},
		{"one below knee", 15, ScaleUp, 16},
		{"at knee", 16, Maintain, 16},
		{"between knee and peak", 20, Maintain, 20},
		{"at peak", 35, Maintain, 35},
		{"one past peak", 36, ShedLoad, 16},
		{"deep retrograde", 40, ShedLoad, 16},
		{"collapse", 200, ShedLoad, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := reference.Plan(tt.current, DefaultPlanConfig())
			if err != nil {
				t.Fatalf("Plan failed: %v", err)
			}
			if rec.Decision != tt.decision {
				t.Errorf("Expected %s, got %s (%s)", tt.decision, rec.Decision, rec.Reason)
			}
			if rec.Target != tt.target {
				t.Errorf("Expected target %d, got %d", tt.target, rec.Target)
			}
			if rec.Peak != 35 {
				t.Errorf("Expected peak 35, got %d", rec.Peak)
			}
			if rec.Current != tt.current {
				t.Errorf("Expected current %d, got %d", tt.current, rec.Current)
			}
			t.Logf("N=%d: %s → %d (%s)", tt.current, rec.Decision, rec.Target, rec.Reason)
		})
	}
}

func TestPlan_Figures(t *testing.T) {
	rec, err := reference.Plan(20, DefaultPlanConfig())
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	assertClose(t, "Throughput", rec.Throughput, throughput(t, reference, 20), 1e-15)
	assertClose(t, "MarginalGain", rec.MarginalGain, 193.67, 1e-3)
	assertClose(t, "Utilization", rec.Utilization, throughput(t, reference, 20)/throughput(t, reference, 35), 1e-12)

	rec, err = reference.Plan(40, DefaultPlanConfig())
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if rec.MarginalGain >= 0 {
		t.Errorf("Expected negative marginal gain past the peak, got %.2f", rec.MarginalGain)
	}
	if rec.Utilization >= 1 {
		t.Errorf("Expected utilization below 1 past the peak, got %.4f", rec.Utilization)
	}
}

func TestPlan_TargetUtilization(t *testing.T) {
	// A stricter target moves the knee towards the peak.
	low, err := reference.Plan(1, PlanConfig{TargetUtilization: 0.5})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	high, err := reference.Plan(1, PlanConfig{TargetUtilization: 0.95})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if low.Target >= high.Target {
		t.Errorf("Expected knee(0.5)=%d < knee(0.95)=%d", low.Target, high.Target)
	}

	// Full utilization is only reached at the peak.
	full, err := reference.Plan(1, PlanConfig{TargetUtilization: 1})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if full.Target != 35 {
		t.Errorf("Expected knee at the peak, got %d", full.Target)
	}
}

func TestPlan_Unbounded(t *testing.T) {
	m := Model{Sigma: 0.05, Kappa: 0, Lambda: 1000}

	rec, err := m.Plan(12, DefaultPlanConfig())
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if rec.Decision != Unbounded {
		t.Errorf("Expected %s, got %s", Unbounded, rec.Decision)
	}
	if rec.Target != 12 || rec.Peak != 0 {
		t.Errorf("Expected target=12 peak=0, got target=%d peak=%d", rec.Target, rec.Peak)
	}
	if rec.MarginalGain <= 0 {
		t.Errorf("Expected positive marginal gain, got %.2f", rec.MarginalGain)
	}
}

func TestPlan_PeakAtOne(t *testing.T) {
	m := Model{Sigma: 0.5, Kappa: 0.5, Lambda: 100}

	rec, err := m.Plan(3, DefaultPlanConfig())
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if rec.Decision != ShedLoad || rec.Target != 1 || rec.Peak != 1 {
		t.Errorf("Expected SHED_LOAD to 1 with peak 1, got %s to %d with peak %d",
			rec.Decision, rec.Target, rec.Peak)
	}
	if rec.Utilization <= 0 || rec.Utilization >= 1 {
		t.Errorf("Expected utilization in (0, 1), got %v", rec.Utilization)
	}
}

func TestPlan_Errors(t *testing.T) {
	tests := []struct {
		name    string
		m       Model
		current int
		cfg     PlanConfig
		target  error
	}{
		{"zero current", reference, 0, DefaultPlanConfig(), ErrUndefined},
		{"negative current", reference, -3, DefaultPlanConfig(), ErrUndefined},
		{"zero utilization", reference, 4, PlanConfig{}, nil},
		{"utilization above one", reference, 4, PlanConfig{TargetUtilization: 1.2}, nil},
		{"no peak", Model{Sigma: 1.5, Kappa: 0.01, Lambda: 1000}, 4, DefaultPlanConfig(), ErrUndefined},
		{"peak below one", Model{Sigma: 0.5, Kappa: 0.6, Lambda: 100}, 1, DefaultPlanConfig(), ErrUndefined},
		{"peak below one, retrograde", Model{Sigma: 0.9, Kappa: 0.5, Lambda: 100}, 3, DefaultPlanConfig(), ErrUndefined},
		{"non-positive lambda", Model{Sigma: 0.02, Kappa: 0.001, Lambda: -10}, 4, DefaultPlanConfig(), ErrUndefined},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.m.Plan(tt.current, tt.cfg)
			if err == nil {
				t.Fatal("Expected error")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("Expected %v, got %v", tt.target, err)
			}
		})
	}
}
