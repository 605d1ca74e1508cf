package pipeline

import (
	"context"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mtgp/core/model"
	"github.com/YuminosukeSato/mtgp/dataset"
	"github.com/YuminosukeSato/mtgp/metrics"
	"github.com/YuminosukeSato/mtgp/pkg/errors"
	"github.com/YuminosukeSato/mtgp/pkg/log"
	"github.com/YuminosukeSato/mtgp/preprocessing"
)

type contextFitter interface {
	FitContext(ctx context.Context, X, y mat.Matrix) error
}

func fit(ctx context.Context, m model.GaussianProcess, X, y mat.Matrix) error {
	if cf, ok := m.(contextFitter); ok {
		return cf.FitContext(ctx, X, y)
	}
	return m.Fit(X, y)
}

// Run executes one synchronous pass for params. ctx is checked between
// stages and, for models that support it, during fitting.
//
// If the Main observations cannot be normalized (fewer than two, or all
// equal) the single-task model is skipped and the reason recorded in
// Result.SingleTaskSkipped. If the combined observations cannot be
// normalized the run fails.
func Run(ctx context.Context, params Params, cfg Config) (*Result, error) {
	start := time.Now()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger.With(log.RandomSeedKey, cfg.Seed)

	data, err := dataset.Generate(cfg.Seed, params.datasetConfig())
	if err != nil {
		return nil, errors.Wrap(err, "generate training data")
	}

	grid := Grid(cfg.GridSize)
	res := &Result{
		Params:    params,
		Seed:      cfg.Seed,
		Data:      data,
		Grid:      grid,
		TruthMain: dataset.Curve(dataset.Func(dataset.Main, params.Period), grid),
		TruthAux:  dataset.Curve(dataset.Func(dataset.Auxiliary, params.Period), grid),
	}

	combined := data.Combined()
	combinedStats, combinedNorm, err := preprocessing.FitTransform(combined.Y)
	if err != nil {
		return nil, errors.Wrap(err, "normalize combined observations")
	}
	res.CombinedStats = combinedStats

	gridX := mat.NewDense(len(grid), 1, append([]float64(nil), grid...))
	src := cfg.samplingSource()

	mainStats, mainNorm, err := preprocessing.FitTransform(data.MainY)
	if err != nil {
		res.SingleTaskSkipped = err.Error()
		logger.Warn("single-task model skipped",
			log.TaskKey, dataset.Main.String(),
			log.SamplesKey, len(data.MainY),
			log.ErrorKey, err.Error(),
		)
	} else {
		res.MainStats = &mainStats
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := runSingleTask(ctx, cfg, src, logger, data, mainStats, mainNorm, gridX, res); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := runMultiTask(ctx, cfg, src, logger, combined, combinedStats, combinedNorm, gridX, res); err != nil {
		return nil, err
	}

	if err := res.computeDiagnostics(); err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)

	logger.Info("Pipeline finished",
		log.DurationMsKey, res.Duration.Milliseconds(),
		log.SamplesKey, cfg.SampleCount,
		log.GridSizeKey, cfg.GridSize,
		log.RMSEKey, res.Diagnostics.MultiTaskMain.RMSE,
	)
	return res, nil
}

func runSingleTask(ctx context.Context, cfg Config, src rand.Source, logger log.Logger,
	data *dataset.TrainingData, stats preprocessing.Stats, yNorm []float64, gridX *mat.Dense, res *Result) error {
	m := cfg.NewSingleTask(src, logger)
	y := mat.NewDense(len(yNorm), 1, yNorm)
	if err := fit(ctx, m, data.MainInputs(), y); err != nil {
		return errors.Wrap(err, "fit single-task model")
	}

	post, err := m.Posterior(gridX)
	if err != nil {
		return errors.Wrap(err, "single-task posterior")
	}
	draws, err := post.Sample(cfg.SampleCount)
	if err != nil {
		return errors.Wrap(err, "sample single-task posterior")
	}

	res.SingleTask = columnCurves(draws, stats, 0)
	res.SingleTaskMean = mat.Col(nil, 0, stats.DenormalizeMatrix(post.Mean()))
	return nil
}

func runMultiTask(ctx context.Context, cfg Config, src rand.Source, logger log.Logger,
	combined *dataset.CombinedTrainingSet, stats preprocessing.Stats, yNorm []float64, gridX *mat.Dense, res *Result) error {
	m := cfg.NewMultiTask(src, logger)
	y := mat.NewDense(len(yNorm), 1, yNorm)
	if err := fit(ctx, m, combined.X, y); err != nil {
		return errors.Wrap(err, "fit multitask model")
	}

	post, err := m.Posterior(gridX)
	if err != nil {
		return errors.Wrap(err, "multitask posterior")
	}
	mean := post.Mean()
	if _, c := mean.Dims(); c != dataset.NumTasks {
		return errors.NewDimensionError("multitask posterior", dataset.NumTasks, c, 1)
	}
	draws, err := post.Sample(cfg.SampleCount)
	if err != nil {
		return errors.Wrap(err, "sample multitask posterior")
	}

	// both output columns share the combined normalization
	res.MultiTaskAux = columnCurves(draws, stats, int(dataset.Auxiliary))
	res.MultiTaskMain = columnCurves(draws, stats, int(dataset.Main))
	meanDenorm := stats.DenormalizeMatrix(mean)
	res.MultiTaskAuxMean = mat.Col(nil, int(dataset.Auxiliary), meanDenorm)
	res.MultiTaskMainMean = mat.Col(nil, int(dataset.Main), meanDenorm)
	return nil
}

// columnCurves de-normalizes column col of every draw.
func columnCurves(draws []*mat.Dense, stats preprocessing.Stats, col int) [][]float64 {
	curves := make([][]float64, len(draws))
	for i, d := range draws {
		curves[i] = stats.Denormalize(mat.Col(nil, col, d))
	}
	return curves
}

func (r *Result) computeDiagnostics() error {
	var err error
	if r.HasSingleTask() {
		if r.Diagnostics.SingleTaskMain, err = metrics.CurveScore(r.TruthMain, r.SingleTaskMean); err != nil {
			return err
		}
	}
	if r.Diagnostics.MultiTaskMain, err = metrics.CurveScore(r.TruthMain, r.MultiTaskMainMean); err != nil {
		return err
	}
	if r.Diagnostics.MultiTaskAux, err = metrics.CurveScore(r.TruthAux, r.MultiTaskAuxMean); err != nil {
		return err
	}
	return nil
}
