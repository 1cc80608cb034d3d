// Package lm implements a Levenberg-Marquardt solver for small, dense
// nonlinear least-squares problems.
//
// A Problem describes M residuals as a function of len(x) parameters. The
// solver minimizes the sum of squared residuals starting from an initial
// guess:
//
//	p := lm.Problem{
//	    M: len(ys),
//	    Residuals: func(dst, x []float64) {
//	        for i, t := range ts {
//	            dst[i] = ys[i] - x[0]*math.Exp(x[1]*t)
//	        }
//	    },
//	}
//	res, err := lm.New(lm.DefaultSettings()).Minimize(p, []float64{1, 0.1})
//
// Each iteration solves the damped normal equations
//
//	(J̃ᵀJ̃ + μI) δ̃ = −J̃ᵀr
//
// where J̃ is the Jacobian with columns scaled to unit norm (Marquardt
// scaling). Accepted steps shrink the damping μ, rejected steps grow it.
package lm

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Func writes the residuals at x into dst. It must not modify x.
type Func func(dst, x []float64)

// JacobianFunc writes the M×len(x) Jacobian of the residuals at x into dst.
type JacobianFunc func(dst *mat.Dense, x []float64)

// Problem is the objective handed to the solver.
type Problem struct {
	M         int          // Number of residuals
	Residuals Func         // Residual vector
	Jacobian  JacobianFunc // Optional; central differences when nil
}

// Settings controls convergence and termination.
type Settings struct {
	MaxIterations  int     // Jacobian evaluations before giving up
	FTol           float64 // Relative reduction of the sum of squares
	XTol           float64 // Relative size of the scaled step
	GTol           float64 // Cosine between residuals and Jacobian columns
	InitialDamping float64 // Starting μ
}

// DefaultSettings returns tolerances suitable for well-scaled problems with
// a handful of parameters.
func DefaultSettings() Settings {
	return Settings{
		MaxIterations:  200,
		FTol:           1e-10,
		XTol:           1e-10,
		GTol:           1e-10,
		InitialDamping: 1e-3,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.MaxIterations <= 0 {
		s.MaxIterations = d.MaxIterations
	}
	if s.FTol <= 0 {
		s.FTol = d.FTol
	}
	if s.XTol <= 0 {
		s.XTol = d.XTol
	}
	if s.GTol <= 0 {
		s.GTol = d.GTol
	}
	if s.InitialDamping <= 0 {
		s.InitialDamping = d.InitialDamping
	}
	return s
}

// Status reports why the solver stopped.
type Status int

const (
	NotStarted Status = iota
	ZeroResidual
	FunctionConvergence
	StepConvergence
	GradientConvergence
	IterationLimit
	DampingLimit
	NonFinite
	Singular
)

func (s Status) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case ZeroResidual:
		return "zero residual"
	case FunctionConvergence:
		return "function convergence"
	case StepConvergence:
		return "step convergence"
	case GradientConvergence:
		return "gradient convergence"
	case IterationLimit:
		return "iteration limit"
	case DampingLimit:
		return "damping limit"
	case NonFinite:
		return "non-finite"
	case Singular:
		return "singular"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Converged reports whether the status is a successful termination.
func (s Status) Converged() bool {
	switch s {
	case ZeroResidual, FunctionConvergence, StepConvergence, GradientConvergence:
		return true
	}
	return false
}

// Result is the outcome of Minimize. X holds the best parameters found,
// also when Minimize returns an error.
type Result struct {
	X           []float64
	Cost        float64 // Sum of squared residuals at X
	Iterations  int
	Evaluations int // Residual evaluations
	Status      Status
}

var (
	ErrBadProblem     = errors.New("lm: invalid problem")
	ErrNonFinite      = errors.New("lm: non-finite residual or jacobian")
	ErrIterationLimit = errors.New("lm: iteration limit reached")
	ErrDampingLimit   = errors.New("lm: cannot reduce residuals")
	ErrSingular       = errors.New("lm: residuals do not depend on the parameters")
)

const (
	dampingFactor = 10
	minDamping    = 1e-15
	maxDamping    = 1e20
)

// LevenbergMarquardt is a stateless solver; one value may serve concurrent
// Minimize calls.
type LevenbergMarquardt struct {
	Settings Settings
}

// New returns a solver using s. Zero fields fall back to DefaultSettings.
func New(s Settings) *LevenbergMarquardt {
	return &LevenbergMarquardt{Settings: s}
}

// Minimize runs the iteration from x0. x0 is not modified.
func (lev *LevenbergMarquardt) Minimize(p Problem, x0 []float64) (Result, error) {
	n := len(x0)
	x := append([]float64(nil), x0...)
	res := Result{X: x}
	if n == 0 || p.Residuals == nil || p.M < n {
		return res, fmt.Errorf("%w: %d residuals for %d parameters", ErrBadProblem, p.M, n)
	}

	cfg := lev.Settings.withDefaults()
	jacobian := p.Jacobian
	if jacobian == nil {
		jacobian = NumericJacobian(p.Residuals)
	}

	r := make([]float64, p.M)
	p.Residuals(r, x)
	res.Evaluations++
	if !allFinite(r) {
		res.Status = NonFinite
		return res, ErrNonFinite
	}
	cost := floats.Dot(r, r)
	res.Cost = cost

	var (
		jac    = mat.NewDense(p.M, n, nil)
		scaled = mat.NewDense(p.M, n, nil)
		normal = mat.NewSymDense(n, nil)
		damped = mat.NewSymDense(n, nil)
		grad   = mat.NewVecDense(n, nil)
		rhs    = mat.NewVecDense(n, nil)
		step   = mat.NewVecDense(n, nil)
		rv     = mat.NewVecDense(p.M, r)
		scale  = make([]float64, n)
		norms  = make([]float64, n)
		col    = make([]float64, p.M)
		trial  = make([]float64, n)
		rTrial = make([]float64, p.M)
		chol   mat.Cholesky
		mu     = cfg.InitialDamping
	)

	for {
		if cost == 0 {
			res.Status = ZeroResidual
			return res, nil
		}
		if res.Iterations >= cfg.MaxIterations {
			res.Status = IterationLimit
			return res, fmt.Errorf("%w after %d iterations", ErrIterationLimit, res.Iterations)
		}
		res.Iterations++

		jacobian(jac, x)
		if !allFinite(jac.RawMatrix().Data) {
			res.Status = NonFinite
			return res, ErrNonFinite
		}

		// scale is the running maximum of each column norm.
		for j := 0; j < n; j++ {
			mat.Col(col, j, jac)
			norms[j] = floats.Norm(col, 2)
			if norms[j] > scale[j] {
				scale[j] = norms[j]
			}
			if scale[j] == 0 {
				scale[j] = 1
			}
		}
		// A zero Jacobian with residuals left means no parameter is identifiable.
		if floats.Max(norms) == 0 {
			res.Status = Singular
			return res, ErrSingular
		}
		scaled.Apply(func(_, j int, v float64) float64 { return v / scale[j] }, jac)
		normal.SymOuterK(1, scaled.T())
		grad.MulVec(scaled.T(), rv)

		if gradientCosine(grad, scale, norms, cost) <= cfg.GTol {
			res.Status = GradientConvergence
			return res, nil
		}

		for {
			damped.CopySym(normal)
			for i := 0; i < n; i++ {
				damped.SetSym(i, i, normal.At(i, i)+mu)
			}
			rhs.ScaleVec(-1, grad)
			if !chol.Factorize(damped) || chol.SolveVecTo(step, rhs) != nil {
				mu *= dampingFactor
				if mu > maxDamping {
					res.Status = DampingLimit
					return res, ErrDampingLimit
				}
				continue
			}

			for j := range trial {
				trial[j] = x[j] + step.AtVec(j)/scale[j]
			}
			p.Residuals(rTrial, trial)
			res.Evaluations++
			trialCost := floats.Dot(rTrial, rTrial)

			stepNorm := floats.Norm(step.RawVector().Data, 2)
			xNorm := scaledNorm(x, scale)
			predicted := mat.Inner(step, normal, step) + 2*mu*stepNorm*stepNorm

			if trialCost < cost {
				actual := cost - trialCost
				prev := cost
				copy(x, trial)
				copy(r, rTrial)
				cost = trialCost
				res.Cost = cost
				mu = math.Max(mu/dampingFactor, minDamping)

				if actual <= cfg.FTol*prev && predicted <= cfg.FTol*prev {
					res.Status = FunctionConvergence
					return res, nil
				}
				if stepNorm <= cfg.XTol*xNorm {
					res.Status = StepConvergence
					return res, nil
				}
				break
			}

			// Rejected. x is still the best point seen.
			mu *= dampingFactor
			if stepNorm <= cfg.XTol*xNorm {
				res.Status = StepConvergence
				return res, nil
			}
			if predicted <= cfg.FTol*cost {
				res.Status = FunctionConvergence
				return res, nil
			}
			if mu > maxDamping {
				res.Status = DampingLimit
				return res, ErrDampingLimit
			}
		}
	}
}

// gradientCosine is the largest |cos| between the residual vector and a
// Jacobian column.
func gradientCosine(grad *mat.VecDense, scale, norms []float64, cost float64) float64 {
	rnorm := math.Sqrt(cost)
	var worst float64
	for j, s := range scale {
		if norms[j] == 0 {
			continue
		}
		c := math.Abs(grad.AtVec(j)*s) / (norms[j] * rnorm)
		if c > worst {
			worst = c
		}
	}
	return worst
}

func scaledNorm(x, scale []float64) float64 {
	var sum float64
	for j, v := range x {
		sv := v * scale[j]
		sum += sv * sv
	}
	return math.Sqrt(sum)
}

func allFinite(s []float64) bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
