// Package preprocessing は目的変数の標準化（平均0、標準偏差1）を提供する。
package preprocessing

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/mtgp/pkg/errors"
)

// Stats は標準化に使う平均と標本標準偏差（n−1）を保持する
type Stats struct {
	Mean float64
	Std  float64
}

// FitStats は values から平均と標本標準偏差を計算する
//
// パラメータ:
//   - values: 観測値の列
//
// 戻り値:
//   - Stats: 計算された統計量
//   - error: 要素数0なら ErrEmptyData、1なら ErrInsufficientData、
//     全要素が等しい場合は ErrZeroVariance
//
// 使用例:
//
//	st, err := preprocessing.FitStats(y)
//	yNorm := st.Normalize(y)
func FitStats(values []float64) (Stats, error) {
	switch len(values) {
	case 0:
		return Stats{}, errors.Wrap(errors.ErrEmptyData, "preprocessing.FitStats")
	case 1:
		return Stats{}, errors.Wrapf(errors.ErrInsufficientData,
			"preprocessing.FitStats: sample standard deviation needs at least 2 values, got 1")
	}

	mean, std := stat.MeanStdDev(values, nil)
	if err := errors.CheckNumericalStability("preprocessing.FitStats", []float64{mean, std}, 0); err != nil {
		return Stats{}, err
	}
	if std == 0 {
		return Stats{}, errors.Wrapf(errors.ErrZeroVariance,
			"preprocessing.FitStats: all %d values equal %g", len(values), mean)
	}
	return Stats{Mean: mean, Std: std}, nil
}

// Normalize は (v − Mean)/Std を返す。
// Std が0の Stats を手で作った場合、結果は非有限値になる（FitStats はそれを返さない）。
func (s Stats) Normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - s.Mean) / s.Std
	}
	return out
}

// Denormalize は Normalize の逆変換 v·Std + Mean を返す
func (s Stats) Denormalize(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v*s.Std + s.Mean
	}
	return out
}

// DenormalizeMatrix applies Denormalize to every element of m and returns
// a new matrix. All columns share the same stats.
func (s Stats) DenormalizeMatrix(m mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		return v*s.Std + s.Mean
	}, m)
	return &out
}

func (s Stats) String() string {
	return fmt.Sprintf("Stats(mean=%.6g, std=%.6g)", s.Mean, s.Std)
}

// FitTransform は統計量を計算し、標準化した値と一緒に返す
func FitTransform(values []float64) (Stats, []float64, error) {
	s, err := FitStats(values)
	if err != nil {
		return Stats{}, nil, err
	}
	return s, s.Normalize(values), nil
}
