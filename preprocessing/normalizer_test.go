package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mtgp/pkg/errors"
)

func TestFitStats(t *testing.T) {
	s, err := FitStats([]float64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	// sample standard deviation
	assert.InDelta(t, math.Sqrt(5.0/3.0), s.Std, 1e-12)
}

func TestFitStats_Degenerate(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   error
	}{
		{"empty", nil, errors.ErrEmptyData},
		{"single value", []float64{3}, errors.ErrInsufficientData},
		{"constant", []float64{2, 2, 2}, errors.ErrZeroVariance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FitStats(tt.values)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	values := []float64{-3.2, 0.1, 4.75, 1e3, 7.5e-4, 2}

	s, norm, err := FitTransform(values)
	require.NoError(t, err)

	mean, std := 0.0, 0.0
	for _, v := range norm {
		mean += v
	}
	mean /= float64(len(norm))
	for _, v := range norm {
		std += (v - mean) * (v - mean)
	}
	std = math.Sqrt(std / float64(len(norm)-1))
	assert.InDelta(t, 0, mean, 1e-12)
	assert.InDelta(t, 1, std, 1e-12)

	back := s.Denormalize(norm)
	for i := range values {
		assert.InDelta(t, values[i], back[i], 1e-12*math.Max(1, math.Abs(values[i])))
	}
}

func TestDenormalizeMatrix(t *testing.T) {
	s := Stats{Mean: 2, Std: 0.5}
	m := mat.NewDense(2, 2, []float64{0, 1, -2, 4})

	got := s.DenormalizeMatrix(m)
	want := mat.NewDense(2, 2, []float64{2, 2.5, 1, 4})
	assert.True(t, mat.EqualApprox(want, got, 1e-12))
	// input untouched
	assert.Equal(t, 1.0, m.At(0, 1))
}

func TestNormalize_ZeroStdIsNonFinite(t *testing.T) {
	out := Stats{Mean: 1, Std: 0}.Normalize([]float64{1, 2})
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsInf(out[1], 1))
}
