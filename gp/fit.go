package gp

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"github.com/YuminosukeSato/mtgp/pkg/errors"
	"github.com/YuminosukeSato/mtgp/pkg/log"
)

// penalty is returned by objectives at hyperparameters where the kernel
// matrix cannot be factorized. It is finite so that Nelder–Mead can move
// away from the point.
const penalty = 1e10

// FitResult summarizes one hyperparameter optimization.
type FitResult struct {
	// NegLogPosterior is the minimized objective.
	NegLogPosterior float64
	Evaluations     int
	Iterations      int
	Status          optimize.Status
	Duration        time.Duration
}

// Converged reports whether the optimizer stopped on a convergence
// criterion rather than a budget or a stalled line search.
func (r FitResult) Converged() bool {
	switch r.Status {
	case optimize.IterationLimit, optimize.FunctionEvaluationLimit, optimize.RuntimeLimit, optimize.Failure:
		return false
	}
	return true
}

// guard maps non-finite objective values to penalty.
func guard(f func([]float64) float64) func([]float64) float64 {
	return func(x []float64) float64 {
		v := f(x)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return penalty
		}
		return v
	}
}

// minimize runs the configured optimizer on objective starting from x0.
// Budget exhaustion emits a ConvergenceWarning. A line search that stalls
// after improving on x0 also only warns and keeps the best point; any other
// failure is a ModelError.
func minimize(ctx context.Context, op string, objective func([]float64) float64, x0 []float64, o *options) ([]float64, FitResult, error) {
	f := guard(objective)

	problem := optimize.Problem{
		Func: f,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, f, x, &fd.Settings{Formula: fd.Central})
		},
		Status: func() (optimize.Status, error) {
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: o.maxEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   o.tolerance,
			Relative:   o.tolerance,
			Iterations: defaultStallIters,
		},
	}

	method := o.newMethod()
	start := time.Now()
	res, err := optimize.Minimize(problem, x0, settings, method)
	stalled := false
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, FitResult{}, errors.Wrapf(ctxErr, "%s: fit cancelled", op)
		}
		if !lineSearchStalled(op, err, res, f(x0)) {
			return nil, FitResult{}, errors.NewModelError(op, "hyperparameter optimization failed", err)
		}
		stalled = true
	}

	result := FitResult{
		NegLogPosterior: res.F,
		Evaluations:     res.FuncEvaluations,
		Iterations:      res.MajorIterations,
		Status:          res.Status,
		Duration:        time.Since(start),
	}
	if res.F >= penalty {
		return nil, result, errors.NewModelError(op, "no hyperparameters with a positive definite kernel matrix found", errors.ErrNotPositiveDefinite)
	}
	switch {
	case stalled:
		errors.Warn(errors.NewConvergenceWarning(op, result.Iterations, "line search stalled, keeping best point"))
	case !result.Converged():
		errors.Warn(errors.NewConvergenceWarning(op, result.Iterations, "stopped on "+result.Status.String()))
	}

	o.logger.Debug("hyperparameter optimization finished",
		log.OperationKey, log.OperationFit,
		log.LossKey, result.NegLogPosterior,
		log.EvaluationsKey, result.Evaluations,
		log.IterationKey, result.Iterations,
		log.StatusKey, result.Status.String(),
	)
	return res.X, result, nil
}

// lineSearchStalled reports whether err is a line search failure after
// which res still holds a finite point no worse than the start value f0.
// Gradient methods end this way when progress stalls near an optimum.
func lineSearchStalled(op string, err error, res *optimize.Result, f0 float64) bool {
	if res == nil || !errors.Is(err, optimize.ErrLinesearcherFailure) {
		return false
	}
	if errors.CheckScalar(op, res.F, res.MajorIterations) != nil {
		return false
	}
	return res.F < penalty && res.F <= f0 && res.X != nil
}
