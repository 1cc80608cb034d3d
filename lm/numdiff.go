package lm

import (
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// NumericJacobian approximates the Jacobian of f with central differences.
// dst must already be sized M×len(x).
func NumericJacobian(f Func) JacobianFunc {
	settings := &fd.JacobianSettings{Formula: fd.Central}
	return func(dst *mat.Dense, x []float64) {
		fd.Jacobian(dst, f, x, settings)
	}
}
