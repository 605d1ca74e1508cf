package gp

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mtgp/pkg/errors"
)

// trainingSet validates X (n×d) and y (n×1) and copies them out.
func trainingSet(op string, X, y mat.Matrix) ([][]float64, []float64, error) {
	if X == nil || y == nil {
		return nil, nil, errors.NewModelError(op, "empty training data", errors.ErrEmptyData)
	}
	n, d := X.Dims()
	if n == 0 || d == 0 {
		return nil, nil, errors.NewModelError(op, "empty training data", errors.ErrEmptyData)
	}
	yr, yc := y.Dims()
	if yr != n {
		return nil, nil, errors.NewDimensionError(op, n, yr, 0)
	}
	if yc != 1 {
		return nil, nil, errors.NewDimensionError(op, 1, yc, 1)
	}
	if err := errors.CheckMatrix(op, X, 0); err != nil {
		return nil, nil, err
	}
	if err := errors.CheckMatrix(op, y, 0); err != nil {
		return nil, nil, err
	}

	return rowsOf(X), mat.Col(nil, 0, y), nil
}

// queryRows validates a posterior query and copies out its rows. Callers
// check the column count.
func queryRows(op string, X mat.Matrix) ([][]float64, error) {
	if X == nil {
		return nil, errors.NewValueError(op, "query inputs are nil")
	}
	m, c := X.Dims()
	if m == 0 || c == 0 {
		return nil, errors.NewValueError(op, "query inputs are empty")
	}
	if err := errors.CheckMatrix(op, X, 0); err != nil {
		return nil, err
	}
	return rowsOf(X), nil
}
