// Package metrics は事後平均と真の関数との誤差指標を計算する。
package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/mtgp/pkg/errors"
)

// pair は入力を検証し、生のスライスを返す
func pair(op string, yTrue, yPred *mat.VecDense) ([]float64, []float64, error) {
	if yTrue == nil || yTrue.Len() == 0 {
		return nil, nil, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if yPred == nil || yPred.Len() != n {
		got := 0
		if yPred != nil {
			got = yPred.Len()
		}
		return nil, nil, errors.NewDimensionError(op, n, got, 0)
	}
	return mat.Col(nil, 0, yTrue), mat.Col(nil, 0, yPred), nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	a, b, err := pair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	d := floats.Distance(a, b, 2)
	return d * d / float64(len(a)), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	a, b, err := pair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return floats.Distance(a, b, 1) / float64(len(a)), nil
}

// R2Score は決定係数（R²）を計算する。
// yTrue に分散がない場合は ErrZeroVariance を返す。
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	a, b, err := pair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	mean := stat.Mean(a, nil)
	var tss, rss float64
	for i := range a {
		tss += (a[i] - mean) * (a[i] - mean)
		rss += (a[i] - b[i]) * (a[i] - b[i])
	}
	if tss == 0 {
		return 0, errors.Wrap(errors.ErrZeroVariance, "R2Score: no variance in yTrue")
	}
	return 1 - rss/tss, nil
}

// Score bundles the errors of one predicted curve against the truth.
type Score struct {
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	R2   float64 `json:"r2"`
}

// CurveScore は2本の同じ長さの曲線について RMSE・MAE・R² を計算する。
// 入力スライスはコピーされる。
func CurveScore(truth, pred []float64) (Score, error) {
	if len(truth) == 0 {
		return Score{}, errors.NewValueError("CurveScore", "empty curve")
	}
	if len(pred) != len(truth) {
		return Score{}, errors.NewDimensionError("CurveScore", len(truth), len(pred), 0)
	}
	yTrue := mat.NewVecDense(len(truth), append([]float64(nil), truth...))
	yPred := mat.NewVecDense(len(pred), append([]float64(nil), pred...))

	var (
		s   Score
		err error
	)
	if s.RMSE, err = RMSE(yTrue, yPred); err != nil {
		return Score{}, err
	}
	if s.MAE, err = MAE(yTrue, yPred); err != nil {
		return Score{}, err
	}
	if s.R2, err = R2Score(yTrue, yPred); err != nil {
		return Score{}, err
	}
	return s, nil
}
