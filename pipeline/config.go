package pipeline

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/mtgp/core/model"
	"github.com/YuminosukeSato/mtgp/dataset"
	"github.com/YuminosukeSato/mtgp/gp"
	"github.com/YuminosukeSato/mtgp/pkg/errors"
	"github.com/YuminosukeSato/mtgp/pkg/log"
)

const (
	// DefaultSampleCount is the number of posterior curves per series.
	DefaultSampleCount = 100
	// DefaultGridSize is the number of evaluation points in [0,1].
	DefaultGridSize = 100

	// samplingStream separates the sampling PCG stream from the
	// data-generation stream of the same seed.
	samplingStream uint64 = 0xda3e39cb94b95bdb
)

// ModelFactory builds an unfitted model that draws posterior samples from
// src.
type ModelFactory func(src rand.Source, logger log.Logger) model.GaussianProcess

// Config holds everything about a run that is not a user parameter.
type Config struct {
	Seed        uint64
	SampleCount int
	GridSize    int

	// MaxEvaluations is the optimizer budget of the default models.
	MaxEvaluations int

	// NewSingleTask and NewMultiTask default to gp.NewSingleTaskGP and
	// gp.NewMultiTaskGP. The multitask model must accept inputs with a
	// trailing task column and answer grid queries without it with one
	// output column per task.
	NewSingleTask ModelFactory
	NewMultiTask  ModelFactory

	Logger log.Logger
}

// DefaultConfig returns seed 100, 100 samples over a 100-point grid.
func DefaultConfig() Config {
	return Config{
		Seed:           dataset.DefaultSeed,
		SampleCount:    DefaultSampleCount,
		GridSize:       DefaultGridSize,
		MaxEvaluations: gp.DefaultMaxEvaluations,
	}
}

func (c Config) withDefaults() (Config, error) {
	if c.SampleCount == 0 {
		c.SampleCount = DefaultSampleCount
	}
	if c.GridSize == 0 {
		c.GridSize = DefaultGridSize
	}
	if c.SampleCount < 0 {
		return c, errors.NewValidationError("samples", "must be positive", c.SampleCount)
	}
	if c.GridSize < 2 {
		return c, errors.NewValidationError("grid_size", "must be at least 2", c.GridSize)
	}
	if c.Logger == nil {
		c.Logger = log.GetLoggerWithName("pipeline")
	}

	maxEvals := c.MaxEvaluations
	if c.NewSingleTask == nil {
		c.NewSingleTask = func(src rand.Source, logger log.Logger) model.GaussianProcess {
			return gp.NewSingleTaskGP(gp.WithSource(src), gp.WithMaxEvaluations(maxEvals), gp.WithLogger(logger))
		}
	}
	if c.NewMultiTask == nil {
		c.NewMultiTask = func(src rand.Source, logger log.Logger) model.GaussianProcess {
			return gp.NewMultiTaskGP(gp.WithSource(src), gp.WithMaxEvaluations(maxEvals), gp.WithLogger(logger),
				gp.WithNumTasks(dataset.NumTasks))
		}
	}
	return c, nil
}

func (c Config) samplingSource() rand.Source {
	return rand.NewPCG(c.Seed, samplingStream)
}

// Grid returns n equally spaced points from 0 to 1 inclusive. n must be at
// least 2.
func Grid(n int) []float64 {
	return floats.Span(make([]float64, n), 0, 1)
}
