package gp

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// MinNoise is the lower bound on the Gaussian noise variance.
const MinNoise = 1e-4

// Priors are the hyperpriors used for MAP fitting. Gamma Beta is the rate.
//
// TaskFactor and TaskVariance bound the task covariance of a multitask
// model. The likelihood alone does not constrain the W row or V entry of a
// task without observations.
type Priors struct {
	Lengthscale distuv.Gamma
	Outputscale distuv.Gamma
	Noise       distuv.Gamma

	// TaskFactor is the prior on every entry of W.
	TaskFactor distuv.Normal
	// TaskVariance is the prior on every entry of V.
	TaskVariance distuv.Gamma
}

// DefaultPriors returns lengthscale Gamma(3, 6), outputscale
// Gamma(2, 0.15), noise Gamma(1.1, 0.05), task factors N(0, 1) and task
// variances Gamma(2, 2).
func DefaultPriors() Priors {
	return Priors{
		Lengthscale:  distuv.Gamma{Alpha: 3, Beta: 6},
		Outputscale:  distuv.Gamma{Alpha: 2, Beta: 0.15},
		Noise:        distuv.Gamma{Alpha: 1.1, Beta: 0.05},
		TaskFactor:   distuv.Normal{Mu: 0, Sigma: 1},
		TaskVariance: distuv.Gamma{Alpha: 2, Beta: 2},
	}
}

func (p Priors) logLengthscales(ls []float64) float64 {
	var lp float64
	for _, l := range ls {
		lp += p.Lengthscale.LogProb(l)
	}
	return lp
}

// logTaskCovariance is the log prior of W and V. A zero-valued TaskFactor
// or TaskVariance is treated as flat.
func (p Priors) logTaskCovariance(W *mat.Dense, v []float64) float64 {
	var lp float64
	if p.TaskFactor.Sigma > 0 {
		for _, w := range W.RawMatrix().Data {
			lp += p.TaskFactor.LogProb(w)
		}
	}
	if p.TaskVariance.Alpha > 0 {
		for _, x := range v {
			lp += p.TaskVariance.LogProb(x)
		}
	}
	return lp
}
