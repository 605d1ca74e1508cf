package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる。X は n×d、y は n×1。
	Fit(X, y mat.Matrix) error
}

// PosteriorQueryable は学習済みモデルから事後分布を取り出すインターフェース
type PosteriorQueryable interface {
	// Posterior は X の各行における潜在関数の事後分布を返す
	Posterior(X mat.Matrix) (Posterior, error)
}

// Posterior is a joint Gaussian over m query points and t output tasks.
type Posterior interface {
	// Mean returns the m×t posterior mean, one column per task.
	Mean() *mat.Dense

	// Sample draws count joint samples. Each draw is an m×t matrix laid
	// out like Mean.
	Sample(count int) ([]*mat.Dense, error)
}

// GaussianProcess is anything that can be fitted and then queried for a
// posterior. The pipeline depends only on this.
type GaussianProcess interface {
	Fitter
	PosteriorQueryable
}
