package pipeline

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mtgp/core/model"
	"github.com/YuminosukeSato/mtgp/pkg/errors"
	"github.com/YuminosukeSato/mtgp/pkg/log"
)

func testConfig(t *testing.T) (Config, *log.TestLogger) {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelInfo)
	cfg := DefaultConfig()
	cfg.Logger = logger
	return cfg, logger
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Params)
		param  string
	}{
		{"defaults", func(*Params) {}, ""},
		{"period min", func(p *Params) { p.Period = 2 }, ""},
		{"period max", func(p *Params) { p.Period = 10 }, ""},
		{"period half step", func(p *Params) { p.Period = 7.5 }, ""},
		{"period below", func(p *Params) { p.Period = 1.5 }, "period"},
		{"period off step", func(p *Params) { p.Period = 5.25 }, "period"},
		{"period NaN", func(p *Params) { p.Period = math.NaN() }, "period"},
		{"n_main zero", func(p *Params) { p.NMain = 0 }, ""},
		{"n_main too many", func(p *Params) { p.NMain = 51 }, "n_main"},
		{"n_aux negative", func(p *Params) { p.NAux = -1 }, "n_aux"},
		{"noise zero", func(p *Params) { p.Noise = 0 }, ""},
		{"noise float step", func(p *Params) { p.Noise = 0.1 + 0.2 }, ""},
		{"noise above", func(p *Params) { p.Noise = 1.1 }, "noise"},
		{"noise off step", func(p *Params) { p.Noise = 0.15 }, "noise"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.modify(&p)
			err := p.Validate()
			if tt.param == "" {
				assert.NoError(t, err)
				return
			}
			var valErr *errors.ValidationError
			require.True(t, errors.As(err, &valErr), "got %v", err)
			assert.Equal(t, tt.param, valErr.ParamName)
		})
	}
}

func TestGrid(t *testing.T) {
	g := Grid(100)
	require.Len(t, g, 100)
	assert.Equal(t, 0.0, g[0])
	assert.Equal(t, 1.0, g[99])
	assert.InDelta(t, 1.0/99.0, g[1], 1e-15)
}

func TestRun_Defaults(t *testing.T) {
	cfg, logger := testConfig(t)

	res, err := Run(context.Background(), DefaultParams(), cfg)
	require.NoError(t, err)

	assert.Len(t, res.Data.MainX, 20)
	assert.Len(t, res.Data.MainY, 20)
	assert.Len(t, res.Data.AuxX, 20)
	assert.Len(t, res.Data.AuxY, 20)

	require.NotNil(t, res.MainStats)
	assert.NotEqual(t, *res.MainStats, res.CombinedStats)
	assert.True(t, res.HasSingleTask())

	for name, curves := range map[string][][]float64{
		"single": res.SingleTask,
		"aux":    res.MultiTaskAux,
		"main":   res.MultiTaskMain,
	} {
		require.Len(t, curves, DefaultSampleCount, name)
		for _, c := range curves {
			require.Len(t, c, DefaultGridSize, name)
		}
	}
	assert.Len(t, res.SingleTaskMean, DefaultGridSize)
	assert.Len(t, res.MultiTaskMainMean, DefaultGridSize)

	// with 20 observations per task both fits should track the truth
	assert.Less(t, res.Diagnostics.SingleTaskMain.RMSE, 1.0)
	assert.Less(t, res.Diagnostics.MultiTaskMain.RMSE, 1.0)
	assert.Less(t, res.Diagnostics.MultiTaskAux.RMSE, 1.0)
	assert.LessOrEqual(t, res.Diagnostics.MultiTaskMain.MAE, res.Diagnostics.MultiTaskMain.RMSE)
	assert.Greater(t, res.Diagnostics.MultiTaskMain.R2, 0.0)

	assert.True(t, logger.ContainsMessage("Pipeline finished"))
}

func TestRun_Reproducible(t *testing.T) {
	cfg, _ := testConfig(t)
	cfg.SampleCount = 5
	cfg.GridSize = 20
	params := Params{Period: 3, NMain: 6, NAux: 8, Noise: 0.2}

	a, err := Run(context.Background(), params, cfg)
	require.NoError(t, err)
	b, err := Run(context.Background(), params, cfg)
	require.NoError(t, err)

	assert.Equal(t, a.Data, b.Data)
	assert.Equal(t, a.SingleTask, b.SingleTask)
	assert.Equal(t, a.MultiTaskMain, b.MultiTaskMain)
}

func TestRun_NoMainObservations(t *testing.T) {
	cfg, logger := testConfig(t)
	params := Params{Period: 5, NMain: 0, NAux: 50, Noise: 0.1}

	res, err := Run(context.Background(), params, cfg)
	require.NoError(t, err)

	assert.False(t, res.HasSingleTask())
	assert.Contains(t, res.SingleTaskSkipped, "empty data")
	assert.Nil(t, res.MainStats)
	assert.Empty(t, res.SingleTask)
	assert.Zero(t, res.Diagnostics.SingleTaskMain)

	assert.Len(t, res.MultiTaskAux, DefaultSampleCount)
	assert.Len(t, res.MultiTaskMain, DefaultSampleCount)
	assert.True(t, logger.ContainsMessage("single-task model skipped"))
}

func TestRun_NoAuxiliaryObservationsStaysBounded(t *testing.T) {
	cfg, _ := testConfig(t)
	errors.SetZerologWarnFunc(nil)
	errors.SetWarningHandler(func(error) {})
	defer errors.SetWarningHandler(func(error) {})

	res, err := Run(context.Background(), Params{Period: 5, NMain: 3, NAux: 0, Noise: 0}, cfg)
	require.NoError(t, err)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, curve := range [][]float64{res.TruthAux, res.TruthMain} {
		for _, v := range curve {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	span := hi - lo
	require.Greater(t, span, 0.0)

	require.Len(t, res.MultiTaskAux, DefaultSampleCount)
	for i, curve := range res.MultiTaskAux {
		for j, v := range curve {
			require.True(t, v >= lo-3*span && v <= hi+3*span, "sample %d at %d: %g outside [%g, %g]", i, j, v, lo-3*span, hi+3*span)
		}
	}
	for _, v := range res.MultiTaskMainMean {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestRun_SingleMainObservation(t *testing.T) {
	cfg, _ := testConfig(t)
	cfg.SampleCount = 3

	res, err := Run(context.Background(), Params{Period: 5, NMain: 1, NAux: 10, Noise: 0.1}, cfg)
	require.NoError(t, err)
	assert.Contains(t, res.SingleTaskSkipped, "insufficient data")
}

func TestRun_FatalCases(t *testing.T) {
	cfg, _ := testConfig(t)

	_, err := Run(context.Background(), Params{Period: 5, Noise: 0.1}, cfg)
	assert.True(t, errors.Is(err, errors.ErrEmptyData), "got %v", err)

	var valErr *errors.ValidationError
	_, err = Run(context.Background(), Params{Period: 11, NMain: 5, NAux: 5}, cfg)
	assert.True(t, errors.As(err, &valErr))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, DefaultParams(), cfg)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)

	bad := cfg
	bad.GridSize = 1
	_, err = Run(context.Background(), DefaultParams(), bad)
	assert.True(t, errors.As(err, &valErr))
}

// constantGP has a zero posterior for every task, so de-normalized curves
// equal the mean of the stats they were de-normalized with.
type constantGP struct {
	tasks int
}

func (c *constantGP) Fit(X, y mat.Matrix) error { return nil }

func (c *constantGP) Posterior(X mat.Matrix) (model.Posterior, error) {
	m, _ := X.Dims()
	return zeroPosterior{m: m, t: c.tasks}, nil
}

type zeroPosterior struct{ m, t int }

func (z zeroPosterior) Mean() *mat.Dense { return mat.NewDense(z.m, z.t, nil) }

func (z zeroPosterior) Sample(count int) ([]*mat.Dense, error) {
	out := make([]*mat.Dense, count)
	for i := range out {
		out[i] = z.Mean()
	}
	return out, nil
}

func TestRun_DenormalizesWithMatchingStats(t *testing.T) {
	cfg, _ := testConfig(t)
	cfg.SampleCount = 2
	cfg.GridSize = 5
	cfg.NewSingleTask = func(rand.Source, log.Logger) model.GaussianProcess { return &constantGP{tasks: 1} }
	cfg.NewMultiTask = func(rand.Source, log.Logger) model.GaussianProcess { return &constantGP{tasks: 2} }

	res, err := Run(context.Background(), DefaultParams(), cfg)
	require.NoError(t, err)

	for _, v := range res.SingleTask[1] {
		assert.InDelta(t, res.MainStats.Mean, v, 1e-12)
	}
	for _, v := range res.MultiTaskAux[0] {
		assert.InDelta(t, res.CombinedStats.Mean, v, 1e-12)
	}
	for _, v := range res.MultiTaskMain[1] {
		assert.InDelta(t, res.CombinedStats.Mean, v, 1e-12)
	}
}

func TestRun_RejectsSingleOutputMultitaskModel(t *testing.T) {
	cfg, _ := testConfig(t)
	cfg.NewSingleTask = func(rand.Source, log.Logger) model.GaussianProcess { return &constantGP{tasks: 1} }
	cfg.NewMultiTask = func(rand.Source, log.Logger) model.GaussianProcess { return &constantGP{tasks: 1} }

	_, err := Run(context.Background(), DefaultParams(), cfg)
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}
