package usl

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/alexshd/usl/lm"
)

// MinMeasurements is the fewest measurements Fit accepts. Three free
// coefficients need redundancy for a stable fit.
const MinMeasurements = 6

// MinLevels is the fewest distinct positive concurrency levels that pin down
// σ, κ and λ.
const MinLevels = 3

// Solver minimizes the sum of squared residuals of a problem from an initial
// guess. *lm.LevenbergMarquardt is the default implementation.
type Solver interface {
	Minimize(p lm.Problem, x0 []float64) (lm.Result, error)
}

// FitOptions controls Fit.
type FitOptions struct {
	Solver          Solver       // nil = Levenberg-Marquardt with default settings
	NumericJacobian bool         // Differentiate residuals numerically instead of analytically
	Logger          *slog.Logger // nil = slog.Default()
}

// DefaultFitOptions returns the analytic-Jacobian Levenberg-Marquardt setup.
func DefaultFitOptions() FitOptions {
	return FitOptions{
		Solver: lm.New(lm.DefaultSettings()),
	}
}

// Fit builds a model from measurements with DefaultFitOptions.
func Fit(measurements []Measurement) (Model, error) {
	return FitWithOptions(measurements, DefaultFitOptions())
}

// FitWithOptions finds σ, κ and λ minimizing
//
//	Σ (x_i - λn_i / (1 + σ(n_i-1) + κn_i(n_i-1)))²
//
// by unconstrained nonlinear least squares, starting from σ=0.1, κ=0.01 and
// λ = max(x_i/n_i).
//
// Input is validated before the solver runs. If the solver gives up, the
// error is a *NonConvergenceError and the returned Model is the zero value.
func FitWithOptions(measurements []Measurement, opts FitOptions) (Model, error) {
	if len(measurements) < MinMeasurements {
		return Model{}, fmt.Errorf("%w: need at least %d, got %d",
			ErrInsufficientData, MinMeasurements, len(measurements))
	}
	for i, m := range measurements {
		if err := m.validate(); err != nil {
			return Model{}, fmt.Errorf("measurement %d: %w", i, err)
		}
	}
	if k := distinctLevels(measurements); k < MinLevels {
		return Model{}, fmt.Errorf("%w: need at least %d distinct positive concurrency levels, got %d",
			ErrInsufficientData, MinLevels, k)
	}

	solver := opts.Solver
	if solver == nil {
		solver = lm.New(lm.DefaultSettings())
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	problem := objective(measurements)
	if opts.NumericJacobian {
		problem.Jacobian = lm.NumericJacobian(problem.Residuals)
	}
	x0 := initialGuess(measurements)

	res, err := solver.Minimize(problem, x0)
	best := modelFrom(res.X)
	if err == nil && !(finite(best.Sigma) && finite(best.Kappa) && finite(best.Lambda)) {
		err = fmt.Errorf("solver returned non-finite coefficients %v", res.X)
	}
	if err != nil {
		logger.Debug("usl fit did not converge",
			"measurements", len(measurements),
			"iterations", res.Iterations,
			"status", res.Status.String(),
			"error", err)
		return Model{}, &NonConvergenceError{Best: best, Iterations: res.Iterations, Cause: err}
	}

	logger.Debug("usl model fitted",
		"sigma", best.Sigma,
		"kappa", best.Kappa,
		"lambda", best.Lambda,
		"iterations", res.Iterations,
		"evaluations", res.Evaluations,
		"status", res.Status.String(),
		"cost", res.Cost)
	return best, nil
}

func distinctLevels(ms []Measurement) int {
	seen := make(map[float64]struct{}, len(ms))
	for _, m := range ms {
		if m.N > 0 {
			seen[m.N] = struct{}{}
		}
	}
	return len(seen)
}

func modelFrom(x []float64) Model {
	if len(x) != 3 {
		return Model{Sigma: math.NaN(), Kappa: math.NaN(), Lambda: math.NaN()}
	}
	return Model{Sigma: x[0], Kappa: x[1], Lambda: x[2]}
}

// objective adapts the measurements into the solver's problem shape. The
// parameter vector is (σ, κ, λ).
func objective(ms []Measurement) lm.Problem {
	return lm.Problem{
		M: len(ms),
		Residuals: func(dst, p []float64) {
			sigma, kappa, lambda := p[0], p[1], p[2]
			for i, m := range ms {
				d := 1 + sigma*(m.N-1) + kappa*m.N*(m.N-1)
				dst[i] = m.X - lambda*m.N/d
			}
		},
		Jacobian: func(dst *mat.Dense, p []float64) {
			sigma, kappa, lambda := p[0], p[1], p[2]
			for i, m := range ms {
				n := m.N
				d := 1 + sigma*(n-1) + kappa*n*(n-1)
				d2 := d * d
				dst.Set(i, 0, lambda*n*(n-1)/d2)
				dst.Set(i, 1, lambda*n*n*(n-1)/d2)
				dst.Set(i, 2, -n/d)
			}
		},
	}
}

// initialGuess returns (σ₀, κ₀, λ₀). λ₀ is the best observed throughput per
// unit of concurrency, an upper bound under ideal linear scaling.
func initialGuess(ms []Measurement) []float64 {
	lambda := math.Inf(-1)
	for _, m := range ms {
		if m.N > 0 {
			lambda = math.Max(lambda, m.X/m.N)
		}
	}
	if math.IsInf(lambda, -1) {
		for _, m := range ms {
			lambda = math.Max(lambda, m.X)
		}
	}
	return []float64{0.1, 0.01, lambda}
}

// GoodnessOfFit returns the coefficient of determination R² of the model's
// throughput predictions against the measurements. 1.0 is a perfect fit.
func GoodnessOfFit(m Model, measurements []Measurement) float64 {
	if len(measurements) == 0 {
		return 0
	}

	values := make([]float64, len(measurements))
	estimates := make([]float64, len(measurements))
	for i, obs := range measurements {
		predicted, err := m.ThroughputAtConcurrency(obs.N)
		if err != nil {
			return math.NaN()
		}
		values[i] = obs.X
		estimates[i] = predicted
	}

	// Constant throughput has no variance to explain.
	if floats.Max(values) == floats.Min(values) {
		if floats.Equal(values, estimates) {
			return 1
		}
		return 0
	}
	return stat.RSquaredFrom(estimates, values, nil)
}
