package gp

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mtgp/pkg/errors"
)

var log2Pi = math.Log(2 * math.Pi)

// exactGP is a conditioned GP: a training set factorized under one fixed
// set of hyperparameters.
type exactGP struct {
	rows      [][]float64
	kern      covFunc
	mean      float64
	threshold int

	chol  mat.Cholesky
	alpha *mat.VecDense // K⁻¹(y − mean)
	resid *mat.VecDense
}

// condition factorizes K + noise·I for the training rows.
// ErrNotPositiveDefinite is returned when the factorization fails.
func condition(rows [][]float64, y []float64, kern covFunc, mean, noise float64, threshold int) (*exactGP, error) {
	g := &exactGP{rows: rows, kern: kern, mean: mean, threshold: threshold}

	K := covMatrix(rows, kern, noise, threshold)
	if ok := g.chol.Factorize(K); !ok {
		return nil, errors.ErrNotPositiveDefinite
	}

	r := append([]float64(nil), y...)
	floats.AddConst(-mean, r)
	g.resid = mat.NewVecDense(len(r), r)

	g.alpha = mat.NewVecDense(len(r), nil)
	if err := g.chol.SolveVecTo(g.alpha, g.resid); err != nil && !isCondition(err) {
		return nil, err
	}
	return g, nil
}

// logMarginal returns log p(y | θ).
func (g *exactGP) logMarginal() float64 {
	n := float64(len(g.rows))
	return -0.5*mat.Dot(g.resid, g.alpha) - 0.5*g.chol.LogDet() - 0.5*n*log2Pi
}

// posterior returns the latent (noise-free) posterior mean and covariance
// at the query rows.
func (g *exactGP) posterior(query [][]float64) (*mat.VecDense, *mat.SymDense, error) {
	m := len(query)
	Ks := crossCov(g.rows, query, g.kern, g.threshold)

	mu := mat.NewVecDense(m, nil)
	mu.MulVec(Ks.T(), g.alpha)
	for i := 0; i < m; i++ {
		mu.SetVec(i, mu.AtVec(i)+g.mean)
	}

	var v mat.Dense
	if err := g.chol.SolveTo(&v, Ks); err != nil && !isCondition(err) {
		return nil, nil, err
	}
	var explained mat.Dense
	explained.Mul(Ks.T(), &v)

	Kss := covMatrix(query, g.kern, 0, g.threshold)
	cov := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			e := 0.5 * (explained.At(i, j) + explained.At(j, i))
			cov.SetSym(i, j, Kss.At(i, j)-e)
		}
	}
	return mu, cov, nil
}

// isCondition reports whether err only signals an ill-conditioned solve.
// The solution is still usable.
func isCondition(err error) bool {
	var c mat.Condition
	return errors.As(err, &c)
}
