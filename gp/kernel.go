// Package gp implements exact Gaussian-process regression for the demo: a
// single-output model and an intrinsic-coregionalization multitask model,
// both with Matérn-5/2 kernels and MAP-fitted hyperparameters.
//
// Both models satisfy model.GaussianProcess, so the pipeline can swap them
// for any other implementation.
package gp

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mtgp/core/parallel"
)

var sqrt5 = math.Sqrt(5)

// Matern52 is the Matérn kernel with smoothness 5/2 and one lengthscale per
// input dimension (ARD).
type Matern52 struct {
	Lengthscales []float64
	Outputscale  float64
}

// Eval returns k(a, b). Only the first len(Lengthscales) coordinates of a
// and b are used.
func (k Matern52) Eval(a, b []float64) float64 {
	return k.Outputscale * matern52(scaledDistance(a, b, k.Lengthscales))
}

func scaledDistance(a, b, lengthscales []float64) float64 {
	var d2 float64
	for i, l := range lengthscales {
		d := (a[i] - b[i]) / l
		d2 += d * d
	}
	return math.Sqrt(d2)
}

// matern52 is the unit-variance Matérn-5/2 correlation at scaled distance r.
func matern52(r float64) float64 {
	s := sqrt5 * r
	return (1 + s + s*s/3) * math.Exp(-s)
}

// covFunc is a covariance function over raw input rows.
type covFunc func(a, b []float64) float64

// rowsOf copies the rows of X into plain slices.
func rowsOf(X mat.Matrix) [][]float64 {
	r, c := X.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = mat.Row(make([]float64, c), i, X)
	}
	return rows
}

// covMatrix returns k(rows_i, rows_j) + diag·I.
func covMatrix(rows [][]float64, k covFunc, diag float64, threshold int) *mat.SymDense {
	n := len(rows)
	K := mat.NewSymDense(n, nil)
	parallel.ForEachRow(n, threshold, func(i int) {
		for j := i; j < n; j++ {
			v := k(rows[i], rows[j])
			if i == j {
				v += diag
			}
			K.SetSym(i, j, v)
		}
	})
	return K
}

// crossCov returns the len(a)×len(b) matrix k(a_i, b_j).
func crossCov(a, b [][]float64, k covFunc, threshold int) *mat.Dense {
	K := mat.NewDense(len(a), len(b), nil)
	parallel.ForEachRow(len(a), threshold, func(i int) {
		row := K.RawRowView(i)
		for j := range b {
			row[j] = k(a[i], b[j])
		}
	})
	return K
}
