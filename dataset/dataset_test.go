package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/mtgp/pkg/errors"
)

func TestFunc(t *testing.T) {
	main := Func(Main, 5)
	aux := Func(Auxiliary, 5)

	assert.InDelta(t, 1.5, main(0), 1e-12)
	assert.InDelta(t, 1.5*math.Pow(math.Cos(5), 2)+5, main(1), 1e-12)
	assert.InDelta(t, 1+3*0.04, aux(0), 1e-12)

	// period only affects Main
	assert.Equal(t, Func(Auxiliary, 2)(0.3), Func(Auxiliary, 9)(0.3))
	assert.NotEqual(t, Func(Main, 2)(0.3), Func(Main, 9)(0.3))
}

func TestTask(t *testing.T) {
	assert.Equal(t, 0.0, Auxiliary.Indicator())
	assert.Equal(t, 1.0, Main.Indicator())
	assert.Equal(t, "main", Main.String())
	assert.Equal(t, "auxiliary", Auxiliary.String())
	assert.Equal(t, "Task(7)", Task(7).String())
}

func TestGenerator_Inputs(t *testing.T) {
	for _, n := range []int{1, 2, 7, 20, 50, 1000} {
		g := NewGenerator(NewSource(DefaultSeed))
		xs, err := g.Inputs(n)
		require.NoError(t, err)
		require.Len(t, xs, n)
		for i, x := range xs {
			assert.GreaterOrEqual(t, x, float64(i)/float64(n), "n=%d i=%d", n, i)
			assert.Less(t, x, float64(i+1)/float64(n), "n=%d i=%d", n, i)
			assert.GreaterOrEqual(t, x, 0.0)
			assert.Less(t, x, 1.0)
		}
	}
}

func TestGenerator_EmptyAndInvalid(t *testing.T) {
	g := NewGenerator(NewSource(1))

	xs, err := g.Inputs(0)
	require.NoError(t, err)
	assert.Empty(t, xs)

	ys, err := g.Observe(xs, Func(Main, 5), 0.1)
	require.NoError(t, err)
	assert.Empty(t, ys)

	var valErr *errors.ValidationError
	_, err = g.Inputs(-1)
	assert.True(t, errors.As(err, &valErr))

	_, err = g.Observe([]float64{0.5}, Func(Main, 5), -0.1)
	assert.True(t, errors.As(err, &valErr))
}

func TestGenerator_ObserveNoiseless(t *testing.T) {
	g := NewGenerator(NewSource(3))
	xs := []float64{0, 0.25, 0.5, 0.75}
	f := Func(Auxiliary, 0)

	ys, err := g.Observe(xs, f, 0)
	require.NoError(t, err)
	assert.Equal(t, Curve(f, xs), ys)
}

func TestGenerate_Reproducible(t *testing.T) {
	cfg := Config{Period: 5, NMain: 20, NAux: 20, Noise: 0.1}

	a, err := Generate(DefaultSeed, cfg)
	require.NoError(t, err)
	b, err := Generate(DefaultSeed, cfg)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Generate(DefaultSeed+1, cfg)
	require.NoError(t, err)
	assert.NotEqual(t, a.MainY, c.MainY)

	assert.Len(t, a.MainX, 20)
	assert.Len(t, a.MainY, 20)
	assert.Len(t, a.AuxX, 20)
	assert.Len(t, a.AuxY, 20)
}

func TestGenerate_ConsumptionOrder(t *testing.T) {
	cfg := Config{Period: 5, NMain: 3, NAux: 4, Noise: 0.5}
	data, err := Generate(9, cfg)
	require.NoError(t, err)

	g := NewGenerator(NewSource(9))
	auxX, _ := g.Inputs(4)
	mainX, _ := g.Inputs(3)
	mainY, _ := g.Observe(mainX, Func(Main, 5), 0.5)
	auxY, _ := g.Observe(auxX, Func(Auxiliary, 5), 0.5)

	assert.Equal(t, auxX, data.AuxX)
	assert.Equal(t, mainX, data.MainX)
	assert.Equal(t, mainY, data.MainY)
	assert.Equal(t, auxY, data.AuxY)
}

func TestCombined(t *testing.T) {
	data, err := Generate(DefaultSeed, Config{Period: 5, NMain: 6, NAux: 4, Noise: 0.1})
	require.NoError(t, err)

	set := data.Combined()
	require.Equal(t, 10, set.Len())
	rows, cols := set.X.Dims()
	assert.Equal(t, 10, rows)
	assert.Equal(t, 2, cols)

	for i := 0; i < 4; i++ {
		assert.Equal(t, 0.0, set.X.At(i, 1))
		assert.Equal(t, data.AuxX[i], set.X.At(i, 0))
		assert.Equal(t, data.AuxY[i], set.Y[i])
	}
	for i := 0; i < 6; i++ {
		assert.Equal(t, 1.0, set.X.At(4+i, 1))
		assert.Equal(t, data.MainX[i], set.X.At(4+i, 0))
		assert.Equal(t, data.MainY[i], set.Y[4+i])
	}

	mx := data.MainInputs()
	r, c := mx.Dims()
	assert.Equal(t, 6, r)
	assert.Equal(t, 1, c)
}

func TestCombined_Empty(t *testing.T) {
	data, err := Generate(DefaultSeed, Config{Period: 5})
	require.NoError(t, err)

	set := data.Combined()
	assert.Zero(t, set.Len())
	assert.Nil(t, set.X)
	assert.Nil(t, data.MainInputs())

	data, err = Generate(DefaultSeed, Config{Period: 5, NAux: 50})
	require.NoError(t, err)
	set = data.Combined()
	assert.Equal(t, 50, set.Len())
	for i := 0; i < 50; i++ {
		assert.Equal(t, 0.0, set.X.At(i, 1))
	}
}
