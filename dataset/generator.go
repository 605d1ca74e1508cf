package dataset

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/mtgp/pkg/errors"
)

// DefaultSeed is the seed of the reference demo.
const DefaultSeed uint64 = 100

// pcgStream is the PCG increment used for data generation. Other consumers
// of the same seed (posterior sampling) use a different stream.
const pcgStream uint64 = 0x9e3779b97f4a7c15

// NewSource returns a PCG source for seed.
func NewSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, pcgStream)
}

// Generator draws stratified inputs and noisy observations from a single
// random source. It is not safe for concurrent use.
type Generator struct {
	uniform distuv.Uniform
	normal  distuv.Normal
}

// NewGenerator returns a Generator drawing from src.
func NewGenerator(src rand.Source) *Generator {
	return &Generator{
		uniform: distuv.Uniform{Min: 0, Max: 1, Src: src},
		normal:  distuv.Normal{Mu: 0, Sigma: 1, Src: src},
	}
}

// Inputs returns n stratified inputs in [0,1): x_i = (i + u_i)/n with
// u_i ~ U[0,1), so x_i falls in bin [i/n, (i+1)/n). n = 0 yields an empty
// slice.
func (g *Generator) Inputs(n int) ([]float64, error) {
	if n < 0 {
		return nil, errors.NewValidationError("n", "must be non-negative", n)
	}

	xs := make([]float64, n)
	fn := float64(n)
	for i := range xs {
		x := (float64(i) + g.uniform.Rand()) / fn
		// i+u can round up to i+1
		if upper := float64(i+1) / fn; x >= upper {
			x = math.Nextafter(upper, 0)
		}
		xs[i] = x
	}
	return xs, nil
}

// Observe returns y_i = f(x_i) + noise·ε_i with ε_i ~ N(0,1).
func (g *Generator) Observe(xs []float64, f func(float64) float64, noise float64) ([]float64, error) {
	if noise < 0 || math.IsNaN(noise) || math.IsInf(noise, 0) {
		return nil, errors.NewValidationError("noise", "must be a finite non-negative number", noise)
	}

	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = f(x) + noise*g.normal.Rand()
	}
	return ys, nil
}

// Config holds the data-generation parameters.
type Config struct {
	Period float64
	NMain  int
	NAux   int
	Noise  float64
}

// Generate builds both tasks' training data. The source is consumed in
// this order: Auxiliary inputs, Main inputs, Main noise, Auxiliary noise.
func (g *Generator) Generate(cfg Config) (*TrainingData, error) {
	if math.IsNaN(cfg.Period) || math.IsInf(cfg.Period, 0) {
		return nil, errors.NewValidationError("period", "must be finite", cfg.Period)
	}

	auxX, err := g.Inputs(cfg.NAux)
	if err != nil {
		return nil, errors.Wrap(err, "auxiliary inputs")
	}
	mainX, err := g.Inputs(cfg.NMain)
	if err != nil {
		return nil, errors.Wrap(err, "main inputs")
	}
	mainY, err := g.Observe(mainX, Func(Main, cfg.Period), cfg.Noise)
	if err != nil {
		return nil, errors.Wrap(err, "main observations")
	}
	auxY, err := g.Observe(auxX, Func(Auxiliary, cfg.Period), cfg.Noise)
	if err != nil {
		return nil, errors.Wrap(err, "auxiliary observations")
	}

	return &TrainingData{
		Period: cfg.Period,
		Noise:  cfg.Noise,
		AuxX:   auxX,
		AuxY:   auxY,
		MainX:  mainX,
		MainY:  mainY,
	}, nil
}

// Generate is a convenience wrapper that seeds a fresh source.
func Generate(seed uint64, cfg Config) (*TrainingData, error) {
	return NewGenerator(NewSource(seed)).Generate(cfg)
}
