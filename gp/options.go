package gp

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/optimize"

	"github.com/YuminosukeSato/mtgp/core/parallel"
	"github.com/YuminosukeSato/mtgp/pkg/log"
)

const (
	// DefaultMaxEvaluations is the default objective-evaluation budget of
	// one fit.
	DefaultMaxEvaluations = 2000

	defaultSimplexSize = 0.5
	defaultTolerance   = 1e-8
	defaultStallIters  = 200
)

// Option configures a model.
type Option func(*options)

type options struct {
	src               rand.Source
	maxEvaluations    int
	method            optimize.Method
	tolerance         float64
	priors            Priors
	numTasks          int
	rank              int
	parallelThreshold int
	logger            log.Logger
}

func defaultOptions() *options {
	return &options{
		src:               rand.NewPCG(0, 0),
		maxEvaluations:    DefaultMaxEvaluations,
		tolerance:         defaultTolerance,
		priors:            DefaultPriors(),
		numTasks:          2,
		parallelThreshold: parallel.DefaultRowThreshold,
	}
}

func applyOptions(name string, opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = log.GetLoggerWithName("gp")
	}
	o.logger = o.logger.With(log.ModelNameKey, name)
	if o.rank <= 0 {
		o.rank = o.numTasks
	}
	return o
}

// newMethod returns the configured optimizer or a fresh Nelder–Mead.
func (o *options) newMethod() optimize.Method {
	if o.method != nil {
		return o.method
	}
	return &optimize.NelderMead{SimplexSize: defaultSimplexSize}
}

// WithSource sets the random source posterior samples are drawn from.
func WithSource(src rand.Source) Option {
	return func(o *options) {
		if src != nil {
			o.src = src
		}
	}
}

// WithMaxEvaluations sets the objective-evaluation budget of Fit. Hitting
// it raises a ConvergenceWarning, not an error.
func WithMaxEvaluations(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEvaluations = n
		}
	}
}

// WithMethod sets the optimizer. Gradient-based methods receive a central
// finite-difference gradient. A Method holds state, so a model using it
// must not be fitted concurrently with another one sharing it.
func WithMethod(m optimize.Method) Option {
	return func(o *options) {
		o.method = m
	}
}

// WithTolerance sets the absolute and relative objective tolerance used to
// detect convergence.
func WithTolerance(tol float64) Option {
	return func(o *options) {
		if tol > 0 {
			o.tolerance = tol
		}
	}
}

// WithPriors replaces the default hyperpriors.
func WithPriors(p Priors) Option {
	return func(o *options) {
		o.priors = p
	}
}

// WithNumTasks sets the number of tasks of a MultiTaskGP.
func WithNumTasks(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.numTasks = n
		}
	}
}

// WithRank sets the rank of the task-covariance factor W. Defaults to the
// number of tasks.
func WithRank(r int) Option {
	return func(o *options) {
		o.rank = r
	}
}

// WithParallelThreshold sets the row count above which kernel matrices are
// filled concurrently.
func WithParallelThreshold(rows int) Option {
	return func(o *options) {
		o.parallelThreshold = rows
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
