package gp

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mtgp/core/model"
	"github.com/YuminosukeSato/mtgp/pkg/errors"
	"github.com/YuminosukeSato/mtgp/pkg/log"
)

// MultiTaskHyperparameters are the fitted parameters of a MultiTaskGP.
type MultiTaskHyperparameters struct {
	// Lengthscales of the data kernel, one per non-task input column.
	Lengthscales []float64
	// W is the numTasks×rank factor of the task covariance.
	W *mat.Dense
	// V is the per-task diagonal added to W·Wᵀ.
	V     []float64
	Noise float64
	Mean  float64
}

// TaskCovariance returns B = W·Wᵀ + diag(V).
func (h MultiTaskHyperparameters) TaskCovariance() *mat.SymDense {
	t, _ := h.W.Dims()
	B := mat.NewSymDense(t, nil)
	B.SymOuterK(1, h.W)
	for i := 0; i < t; i++ {
		B.SetSym(i, i, B.At(i, i)+h.V[i])
	}
	return B
}

// TaskCorrelation returns the correlation between tasks i and j implied by
// the task covariance.
func (h MultiTaskHyperparameters) TaskCorrelation(i, j int) float64 {
	B := h.TaskCovariance()
	return B.At(i, j) / math.Sqrt(B.At(i, i)*B.At(j, j))
}

// MultiTaskGP is an intrinsic coregionalization model:
//
//	k((x, i), (x', j)) = B[i, j] · matern52(x, x')
//
// The last input column holds the task index. Mean and noise are shared
// across tasks. The number of tasks is fixed at construction so a task
// without observations still gets a posterior.
type MultiTaskGP struct {
	state *model.StateManager
	opts  *options

	hyper  MultiTaskHyperparameters
	cond   *exactGP
	result FitResult
}

var _ model.GaussianProcess = (*MultiTaskGP)(nil)

// NewMultiTaskGP creates an unfitted MultiTaskGP. The number of tasks
// defaults to 2 and the rank of W to the number of tasks.
func NewMultiTaskGP(opts ...Option) *MultiTaskGP {
	return &MultiTaskGP{
		state: model.NewStateManager(),
		opts:  applyOptions("MultiTaskGP", opts),
	}
}

// NumTasks returns the number of output tasks.
func (m *MultiTaskGP) NumTasks() int {
	return m.opts.numTasks
}

// θ layout: log ℓ (dx), W row-major (t·r), log V (t), log(noise − MinNoise), mean.
func (m *MultiTaskGP) decode(theta []float64, dx int) MultiTaskHyperparameters {
	t, r := m.opts.numTasks, m.opts.rank
	ls := make([]float64, dx)
	for i := range ls {
		ls[i] = math.Exp(theta[i])
	}
	off := dx
	W := mat.NewDense(t, r, append([]float64(nil), theta[off:off+t*r]...))
	off += t * r
	v := make([]float64, t)
	for i := range v {
		v[i] = math.Exp(theta[off+i])
	}
	off += t
	return MultiTaskHyperparameters{
		Lengthscales: ls,
		W:            W,
		V:            v,
		Noise:        MinNoise + math.Exp(theta[off]),
		Mean:         theta[off+1],
	}
}

// initialTheta starts from fully correlated tasks: the first column of W
// is one, the rest zero, V = 0.5.
func (m *MultiTaskGP) initialTheta(dx int) []float64 {
	t, r := m.opts.numTasks, m.opts.rank
	theta := make([]float64, dx+t*r+t+2)
	for i := 0; i < dx; i++ {
		theta[i] = math.Log(1.0 / 3.0)
	}
	off := dx
	for i := 0; i < t; i++ {
		theta[off+i*r] = 1
	}
	off += t * r
	for i := 0; i < t; i++ {
		theta[off+i] = math.Log(0.5)
	}
	off += t
	theta[off] = math.Log(0.01)
	theta[off+1] = 0
	return theta
}

func (m *MultiTaskGP) kernel(h MultiTaskHyperparameters) covFunc {
	B := h.TaskCovariance()
	dx := len(h.Lengthscales)
	data := Matern52{Lengthscales: h.Lengthscales, Outputscale: 1}
	return func(a, b []float64) float64 {
		return B.At(int(a[dx]), int(b[dx])) * data.Eval(a, b)
	}
}

func (m *MultiTaskGP) logPrior(h MultiTaskHyperparameters) float64 {
	p := m.opts.priors
	return p.logLengthscales(h.Lengthscales) + p.Noise.LogProb(h.Noise) +
		p.logTaskCovariance(h.W, h.V)
}

// checkTasks verifies that the task column holds integers in [0, numTasks).
func (m *MultiTaskGP) checkTasks(op string, rows [][]float64) error {
	col := len(rows[0]) - 1
	for i, row := range rows {
		v := row[col]
		if v != math.Trunc(v) || v < 0 || int(v) >= m.opts.numTasks {
			return errors.NewValueError(op,
				fmt.Sprintf("row %d: task index %v is not an integer in [0, %d)", i, v, m.opts.numTasks))
		}
	}
	return nil
}

// Fit fits the hyperparameters by MAP estimation. X is n×(d+1) with the
// task index in the last column, y is n×1.
func (m *MultiTaskGP) Fit(X, y mat.Matrix) error {
	return m.FitContext(context.Background(), X, y)
}

// FitContext is Fit with cancellation between objective evaluations.
func (m *MultiTaskGP) FitContext(ctx context.Context, X, y mat.Matrix) error {
	const op = "MultiTaskGP.Fit"
	m.state.Reset()

	rows, targets, err := trainingSet(op, X, y)
	if err != nil {
		return err
	}
	d := len(rows[0])
	if d < 2 {
		return errors.NewDimensionError(op, 2, d, 1)
	}
	if m.opts.rank > m.opts.numTasks {
		return errors.NewValidationError("rank", fmt.Sprintf("must be at most the number of tasks (%d)", m.opts.numTasks), m.opts.rank)
	}
	if err := m.checkTasks(op, rows); err != nil {
		return err
	}
	dx := d - 1
	threshold := m.opts.parallelThreshold

	objective := func(theta []float64) float64 {
		h := m.decode(theta, dx)
		g, err := condition(rows, targets, m.kernel(h), h.Mean, h.Noise, threshold)
		if err != nil {
			return penalty
		}
		return -g.logMarginal() - m.logPrior(h)
	}

	theta, result, err := minimize(ctx, op, objective, m.initialTheta(dx), m.opts)
	if err != nil {
		return err
	}

	h := m.decode(theta, dx)
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
		log.TasksKey, m.opts.numTasks,
		log.EvaluationsKey, result.Evaluations,
		log.DurationMsKey, result.Duration.Milliseconds(),
	)
	return nil
}

// Posterior returns the latent posterior at X.
//
// If X has one column fewer than the training inputs (no task column), the
// result is joint over every task: an m×numTasks GaussianPosterior. If X
// includes the task column, each row is evaluated for its own task and the
// result is m×1.
func (m *MultiTaskGP) Posterior(X mat.Matrix) (model.Posterior, error) {
	return m.GaussianPosterior(X)
}

// GaussianPosterior is Posterior with the concrete return type.
func (m *MultiTaskGP) GaussianPosterior(X mat.Matrix) (*GaussianPosterior, error) {
	const op = "MultiTaskGP.Posterior"
	if err := m.state.RequireFitted("MultiTaskGP", "Posterior"); err != nil {
		return nil, err
	}
	rows, err := queryRows(op, X)
	if err != nil {
		return nil, err
	}
	d, _ := m.state.Dimensions()

	var (
		query  [][]float64
		points int
		tasks  int
	)
	switch c := len(rows[0]); c {
	case d - 1:
		points, tasks = len(rows), m.opts.numTasks
		query = make([][]float64, 0, points*tasks)
		for t := 0; t < tasks; t++ {
			for _, row := range rows {
				aug := make([]float64, d)
				copy(aug, row)
				aug[d-1] = float64(t)
				query = append(query, aug)
			}
		}
	case d:
		if err := m.checkTasks(op, rows); err != nil {
			return nil, err
		}
		query, points, tasks = rows, len(rows), 1
	default:
		return nil, errors.NewDimensionError(op, d-1, c, 1)
	}

	mu, cov, err := m.cond.posterior(query)
	if err != nil {
		return nil, errors.NewModelError(op, "posterior computation failed", err)
	}
	if err := errors.CheckNumericalStability(op, mu.RawVector().Data, 0); err != nil {
		return nil, err
	}
	m.opts.logger.Debug("posterior computed",
		log.OperationKey, log.OperationPosterior,
		log.GridSizeKey, points,
		log.TasksKey, tasks,
	)
	return newPosterior(mu, cov, points, tasks, m.opts.src, m.opts.logger), nil
}

// Hyperparameters returns a copy of the fitted hyperparameters.
func (m *MultiTaskGP) Hyperparameters() (MultiTaskHyperparameters, error) {
	if err := m.state.RequireFitted("MultiTaskGP", "Hyperparameters"); err != nil {
		return MultiTaskHyperparameters{}, err
	}
	h := m.hyper
	h.Lengthscales = append([]float64(nil), m.hyper.Lengthscales...)
	h.V = append([]float64(nil), m.hyper.V...)
	h.W = mat.DenseCopyOf(m.hyper.W)
	return h, nil
}

// LogMarginalLikelihood returns log p(y | θ̂) at the fitted hyperparameters.
func (m *MultiTaskGP) LogMarginalLikelihood() (float64, error) {
	if err := m.state.RequireFitted("MultiTaskGP", "LogMarginalLikelihood"); err != nil {
		return 0, err
	}
	return m.cond.logMarginal(), nil
}

// FitResult returns the optimizer summary of the last successful Fit.
func (m *MultiTaskGP) FitResult() FitResult {
	return m.result
}

// IsFitted reports whether Fit has succeeded.
func (m *MultiTaskGP) IsFitted() bool {
	return m.state.IsFitted()
}
