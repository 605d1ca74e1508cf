package gp

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mtgp/core/model"
	"github.com/YuminosukeSato/mtgp/pkg/errors"
	"github.com/YuminosukeSato/mtgp/pkg/log"
)

// SingleTaskHyperparameters are the fitted parameters of a SingleTaskGP.
type SingleTaskHyperparameters struct {
	Lengthscales []float64
	Outputscale  float64
	Noise        float64
	Mean         float64
}

// SingleTaskGP is a single-output GP with a constant mean, a scaled ARD
// Matérn-5/2 kernel and homoskedastic Gaussian noise.
type SingleTaskGP struct {
	state *model.StateManager
	opts  *options

	hyper  SingleTaskHyperparameters
	cond   *exactGP
	result FitResult
}

var _ model.GaussianProcess = (*SingleTaskGP)(nil)

// NewSingleTaskGP creates an unfitted SingleTaskGP.
func NewSingleTaskGP(opts ...Option) *SingleTaskGP {
	return &SingleTaskGP{
		state: model.NewStateManager(),
		opts:  applyOptions("SingleTaskGP", opts),
	}
}

// θ layout: log ℓ_1..ℓ_d, log σ², log(noise − MinNoise), mean.
func (m *SingleTaskGP) decode(theta []float64, d int) SingleTaskHyperparameters {
	ls := make([]float64, d)
	for i := range ls {
		ls[i] = math.Exp(theta[i])
	}
	return SingleTaskHyperparameters{
		Lengthscales: ls,
		Outputscale:  math.Exp(theta[d]),
		Noise:        MinNoise + math.Exp(theta[d+1]),
		Mean:         theta[d+2],
	}
}

func (m *SingleTaskGP) initialTheta(d int) []float64 {
	theta := make([]float64, d+3)
	for i := 0; i < d; i++ {
		theta[i] = math.Log(1.0 / 3.0)
	}
	theta[d] = 0
	theta[d+1] = math.Log(0.01)
	theta[d+2] = 0
	return theta
}

func (m *SingleTaskGP) kernel(h SingleTaskHyperparameters) covFunc {
	return Matern52{Lengthscales: h.Lengthscales, Outputscale: h.Outputscale}.Eval
}

func (m *SingleTaskGP) logPrior(h SingleTaskHyperparameters) float64 {
	p := m.opts.priors
	return p.logLengthscales(h.Lengthscales) + p.Outputscale.LogProb(h.Outputscale) + p.Noise.LogProb(h.Noise)
}

// Fit fits the hyperparameters by maximizing the log marginal likelihood
// plus the log hyperpriors. X is n×d, y is n×1.
func (m *SingleTaskGP) Fit(X, y mat.Matrix) error {
	return m.FitContext(context.Background(), X, y)
}

// FitContext is Fit with cancellation between objective evaluations.
func (m *SingleTaskGP) FitContext(ctx context.Context, X, y mat.Matrix) error {
	const op = "SingleTaskGP.Fit"
	m.state.Reset()

	rows, targets, err := trainingSet(op, X, y)
	if err != nil {
		return err
	}
	d := len(rows[0])
	threshold := m.opts.parallelThreshold

	objective := func(theta []float64) float64 {
		h := m.decode(theta, d)
		g, err := condition(rows, targets, m.kernel(h), h.Mean, h.Noise, threshold)
		if err != nil {
			return penalty
		}
		return -g.logMarginal() - m.logPrior(h)
	}

	theta, result, err := minimize(ctx, op, objective, m.initialTheta(d), m.opts)
	if err != nil {
		return err
	}

	h := m.decode(theta, d)
	cond, err := condition(rows, targets, m.kernel(h), h.Mean, h.Noise, threshold)
	if err != nil {
		return errors.NewModelError(op, "conditioning on fitted hyperparameters failed", err)
	}

	m.hyper, m.cond, m.result = h, cond, result
	m.state.SetFitted(d, len(rows))

	m.opts.logger.Info("Fit completed",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, len(rows),
		log.FeaturesKey, d,
		log.EvaluationsKey, result.Evaluations,
		log.DurationMsKey, result.Duration.Milliseconds(),
	)
	return nil
}

// Posterior returns the latent posterior at the rows of X (m×d) as an m×1
// GaussianPosterior.
func (m *SingleTaskGP) Posterior(X mat.Matrix) (model.Posterior, error) {
	return m.GaussianPosterior(X)
}

// GaussianPosterior is Posterior with the concrete return type.
func (m *SingleTaskGP) GaussianPosterior(X mat.Matrix) (*GaussianPosterior, error) {
	const op = "SingleTaskGP.Posterior"
	if err := m.state.RequireFitted("SingleTaskGP", "Posterior"); err != nil {
		return nil, err
	}
	query, err := queryRows(op, X)
	if err != nil {
		return nil, err
	}
	if err := m.state.RequireFeatures(op, len(query[0])); err != nil {
		return nil, err
	}

	mu, cov, err := m.cond.posterior(query)
	if err != nil {
		return nil, errors.NewModelError(op, "posterior computation failed", err)
	}
	if err := errors.CheckNumericalStability(op, mu.RawVector().Data, 0); err != nil {
		return nil, err
	}
	return newPosterior(mu, cov, len(query), 1, m.opts.src, m.opts.logger), nil
}

// Hyperparameters returns the fitted hyperparameters.
func (m *SingleTaskGP) Hyperparameters() (SingleTaskHyperparameters, error) {
	if err := m.state.RequireFitted("SingleTaskGP", "Hyperparameters"); err != nil {
		return SingleTaskHyperparameters{}, err
	}
	h := m.hyper
	h.Lengthscales = append([]float64(nil), m.hyper.Lengthscales...)
	return h, nil
}

// LogMarginalLikelihood returns log p(y | θ̂) at the fitted hyperparameters.
func (m *SingleTaskGP) LogMarginalLikelihood() (float64, error) {
	if err := m.state.RequireFitted("SingleTaskGP", "LogMarginalLikelihood"); err != nil {
		return 0, err
	}
	return m.cond.logMarginal(), nil
}

// FitResult returns the optimizer summary of the last successful Fit.
func (m *SingleTaskGP) FitResult() FitResult {
	return m.result
}

// IsFitted reports whether Fit has succeeded.
func (m *SingleTaskGP) IsFitted() bool {
	return m.state.IsFitted()
}
