package usl

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData is returned when Fit gets fewer than
	// MinMeasurements points or fewer than MinLevels distinct positive
	// concurrency levels.
	ErrInsufficientData = errors.New("usl: insufficient measurements")

	// ErrNonConvergence matches every *NonConvergenceError.
	ErrNonConvergence = errors.New("usl: fit did not converge")

	// ErrUndefined is returned by a query whose formula degenerates for the
	// model's coefficients (e.g. MaxConcurrency when κ = 0).
	ErrUndefined = errors.New("usl: undefined for model")

	// ErrDomain is returned for a measurement built from an invalid quantity.
	ErrDomain = errors.New("usl: invalid measurement")
)

// NonConvergenceError reports a fit whose solver gave up. Best holds the
// parameters the solver ended on; they are not a fitted model and are only
// reachable through errors.As.
type NonConvergenceError struct {
	Best       Model
	Iterations int
	Cause      error
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("usl: fit did not converge after %d iterations (best %s): %v",
		e.Iterations, e.Best, e.Cause)
}

func (e *NonConvergenceError) Unwrap() []error {
	return []error{ErrNonConvergence, e.Cause}
}

func undefined(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrUndefined}, args...)...)
}

func domain(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrDomain}, args...)...)
}
