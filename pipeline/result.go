package pipeline

import (
	"time"

	"github.com/YuminosukeSato/mtgp/dataset"
	"github.com/YuminosukeSato/mtgp/metrics"
	"github.com/YuminosukeSato/mtgp/preprocessing"
)

// Result is everything the renderer needs from one run.
type Result struct {
	Params Params
	Seed   uint64
	Data   *dataset.TrainingData

	// Grid is the evaluation grid; every curve below is sampled on it.
	Grid      []float64
	TruthMain []float64
	TruthAux  []float64

	// MainStats is nil when the single-task model was skipped.
	MainStats     *preprocessing.Stats
	CombinedStats preprocessing.Stats

	// Posterior sample curves, de-normalized. Each is SampleCount×len(Grid).
	SingleTask    [][]float64
	MultiTaskAux  [][]float64
	MultiTaskMain [][]float64

	// Posterior mean curves, de-normalized.
	SingleTaskMean    []float64
	MultiTaskAuxMean  []float64
	MultiTaskMainMean []float64

	// SingleTaskSkipped is the reason the single-task model was not fitted,
	// empty when it was.
	SingleTaskSkipped string

	Diagnostics Diagnostics
	Duration    time.Duration
}

// HasSingleTask reports whether the single-task model was fitted.
func (r *Result) HasSingleTask() bool {
	return r.SingleTaskSkipped == ""
}

// Diagnostics compare posterior means against the ground truth on the grid.
type Diagnostics struct {
	// SingleTaskMain is zero when the single-task model was skipped.
	SingleTaskMain metrics.Score `json:"single_task_main"`
	MultiTaskMain  metrics.Score `json:"multi_task_main"`
	MultiTaskAux   metrics.Score `json:"multi_task_aux"`
}
