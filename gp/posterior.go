package gp

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/YuminosukeSato/mtgp/pkg/errors"
	"github.com/YuminosukeSato/mtgp/pkg/log"
)

// jitterLadder is the sequence of diagonal jitters tried before giving up
// on a posterior covariance.
var jitterLadder = []float64{0, 1e-8, 1e-7, 1e-6, 1e-5, 1e-4, 1e-3}

// GaussianPosterior is a joint Gaussian over points×tasks outputs. The
// underlying vector is task-major: all points of task 0, then task 1, ...
//
// Sample draws from the source the model was built with and is not safe
// for concurrent use.
type GaussianPosterior struct {
	mean   *mat.VecDense
	cov    *mat.SymDense
	points int
	tasks  int

	src    rand.Source
	logger log.Logger
	normal *distmv.Normal
}

func newPosterior(mean *mat.VecDense, cov *mat.SymDense, points, tasks int, src rand.Source, logger log.Logger) *GaussianPosterior {
	return &GaussianPosterior{
		mean:   mean,
		cov:    cov,
		points: points,
		tasks:  tasks,
		src:    src,
		logger: logger,
	}
}

// Dims returns the number of query points and output tasks.
func (p *GaussianPosterior) Dims() (points, tasks int) {
	return p.points, p.tasks
}

// Mean returns the points×tasks posterior mean.
func (p *GaussianPosterior) Mean() *mat.Dense {
	return p.reshape(p.mean.RawVector().Data)
}

// Variance returns the points×tasks marginal posterior variances.
func (p *GaussianPosterior) Variance() *mat.Dense {
	n := p.cov.SymmetricDim()
	v := make([]float64, n)
	for i := range v {
		v[i] = p.cov.At(i, i)
	}
	return p.reshape(v)
}

// Covariance returns a copy of the joint covariance in task-major order.
func (p *GaussianPosterior) Covariance() *mat.SymDense {
	c := mat.NewSymDense(p.cov.SymmetricDim(), nil)
	c.CopySym(p.cov)
	return c
}

// Sample draws count joint samples, each a points×tasks matrix.
func (p *GaussianPosterior) Sample(count int) ([]*mat.Dense, error) {
	if count < 0 {
		return nil, errors.NewValueError("GaussianPosterior.Sample", "count must be non-negative")
	}
	if count == 0 {
		return nil, nil
	}
	if err := p.ensureNormal(); err != nil {
		return nil, err
	}

	draws := make([]*mat.Dense, count)
	buf := make([]float64, p.mean.Len())
	for i := range draws {
		p.normal.Rand(buf)
		if err := errors.CheckNumericalStability("posterior_sample", buf, i); err != nil {
			return nil, err
		}
		draws[i] = p.reshape(buf)
	}
	return draws, nil
}

// ensureNormal builds the sampling distribution, adding the smallest
// diagonal jitter from jitterLadder that makes the covariance positive
// definite.
func (p *GaussianPosterior) ensureNormal() error {
	if p.normal != nil {
		return nil
	}

	n := p.cov.SymmetricDim()
	mu := p.mean.RawVector().Data
	jittered := mat.NewSymDense(n, nil)
	for _, jitter := range jitterLadder {
		jittered.CopySym(p.cov)
		for i := 0; i < n; i++ {
			jittered.SetSym(i, i, jittered.At(i, i)+jitter)
		}
		if normal, ok := distmv.NewNormal(mu, jittered, p.src); ok {
			if jitter > 0 {
				p.logger.Debug("posterior covariance jittered",
					log.OperationKey, log.OperationSample,
					log.JitterKey, jitter,
				)
			}
			p.normal = normal
			return nil
		}
	}

	diag := make([]float64, n)
	for i := range diag {
		diag[i] = p.cov.At(i, i)
	}
	return errors.Wrap(
		errors.NewNumericalInstabilityError("posterior_sample", diag, len(jitterLadder)),
		"posterior covariance is not positive definite even with jitter 1e-3",
	)
}

// reshape lays a task-major vector out as a points×tasks matrix.
func (p *GaussianPosterior) reshape(v []float64) *mat.Dense {
	out := mat.NewDense(p.points, p.tasks, nil)
	for t := 0; t < p.tasks; t++ {
		for i := 0; i < p.points; i++ {
			out.Set(i, t, v[t*p.points+i])
		}
	}
	return out
}
