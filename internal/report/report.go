// Package report renders fitted models for the usl command.
package report

import (
	"fmt"
	"io"

	"github.com/alexshd/usl"
)

// Parameters are the fitted coefficients.
type Parameters struct {
	Sigma  float64 `json:"sigma"`
	Kappa  float64 `json:"kappa"`
	Lambda float64 `json:"lambda"`
}

// Peak is the whole-number concurrency with the highest predicted throughput.
type Peak struct {
	Concurrency int     `json:"concurrency"`
	Throughput  float64 `json:"throughput"`
}

// Point is one observed or predicted operating point. Latency is seconds.
type Point struct {
	Concurrency float64 `json:"concurrency"`
	Throughput  float64 `json:"throughput"`
	Latency     float64 `json:"latency"`
}

// Residual compares a measurement with the model's prediction.
type Residual struct {
	Point
	Predicted float64 `json:"predicted"`
}

// Plan is the JSON shape of a usl.Recommendation.
type Plan struct {
	Decision     string  `json:"decision"`
	Current      int     `json:"current"`
	Target       int     `json:"target"`
	Peak         int     `json:"peak,omitempty"`
	Throughput   float64 `json:"throughput"`
	Utilization  float64 `json:"utilization"`
	MarginalGain float64 `json:"marginal_gain"`
	Reason       string  `json:"reason"`
}

// Report is everything the renderers print.
type Report struct {
	Parameters   Parameters `json:"parameters"`
	RSquared     float64    `json:"r_squared"`
	Constraint   string     `json:"constraint"`
	Peak         *Peak      `json:"peak,omitempty"`
	Measurements []Residual `json:"measurements"`
	Predictions  []Point    `json:"predictions,omitempty"`
	Plan         *Plan      `json:"plan,omitempty"`

	model usl.Model
}

// Model returns the model the report was built from.
func (r Report) Model() usl.Model {
	return r.model
}

// Build evaluates the model against its measurements and at each of the
// requested concurrency levels.
func Build(m usl.Model, measurements []usl.Measurement, predictions []float64) (Report, error) {
	rep := Report{
		Parameters: Parameters{Sigma: m.Sigma, Kappa: m.Kappa, Lambda: m.Lambda},
		RSquared:   usl.GoodnessOfFit(m, measurements),
		Constraint: m.Constraint(),
		model:      m,
	}

	if n, err := m.MaxConcurrency(); err == nil {
		x, err := m.MaxThroughput()
		if err != nil {
			return Report{}, err
		}
		rep.Peak = &Peak{Concurrency: n, Throughput: x}
	}

	rep.Measurements = make([]Residual, 0, len(measurements))
	for _, obs := range measurements {
		predicted, err := m.ThroughputAtConcurrency(obs.N)
		if err != nil {
			return Report{}, fmt.Errorf("measurement %v: %w", obs, err)
		}
		rep.Measurements = append(rep.Measurements, Residual{
			Point:     Point{Concurrency: obs.N, Throughput: obs.X, Latency: obs.R},
			Predicted: predicted,
		})
	}

	for _, n := range predictions {
		x, err := m.ThroughputAtConcurrency(n)
		if err != nil {
			return Report{}, fmt.Errorf("prediction at N=%v: %w", n, err)
		}
		r, err := m.LatencyAtConcurrency(n)
		if err != nil {
			return Report{}, fmt.Errorf("prediction at N=%v: %w", n, err)
		}
		rep.Predictions = append(rep.Predictions, Point{Concurrency: n, Throughput: x, Latency: r})
	}
	return rep, nil
}

// WithPlan attaches a scaling recommendation.
func (r Report) WithPlan(rec usl.Recommendation) Report {
	r.Plan = &Plan{
		Decision:     string(rec.Decision),
		Current:      rec.Current,
		Target:       rec.Target,
		Peak:         rec.Peak,
		Throughput:   rec.Throughput,
		Utilization:  rec.Utilization,
		MarginalGain: rec.MarginalGain,
		Reason:       rec.Reason,
	}
	return r
}

// Renderer writes a report in one output format.
type Renderer interface {
	Render(Report, io.Writer) error
}

// Options configure New.
type Options struct {
	Plot       bool // Append an ASCII chart (text only)
	NoColor    bool // Never emit ANSI styling
	PlotWidth  int  // 0 = DefaultPlotWidth
	PlotHeight int  // 0 = DefaultPlotHeight
}

// New returns the renderer for format, "text" or "json".
func New(format string, opts Options) (Renderer, error) {
	switch format {
	case "", "text":
		return &TextRenderer{
			Plot:    opts.Plot,
			NoColor: opts.NoColor,
			Width:   opts.PlotWidth,
			Height:  opts.PlotHeight,
		}, nil
	case "json":
		return &JSONRenderer{}, nil
	default:
		return nil, fmt.Errorf("report: unsupported format %q (want text or json)", format)
	}
}
