package dataset

import "gonum.org/v1/gonum/mat"

// TrainingData is one generated data set. It is never mutated after
// Generate returns it.
type TrainingData struct {
	Period float64
	Noise  float64

	AuxX, AuxY   []float64
	MainX, MainY []float64
}

// Inputs returns the inputs of task.
func (d *TrainingData) Inputs(task Task) []float64 {
	if task == Main {
		return d.MainX
	}
	return d.AuxX
}

// Targets returns the observations of task.
func (d *TrainingData) Targets(task Task) []float64 {
	if task == Main {
		return d.MainY
	}
	return d.AuxY
}

// MainInputs returns the Main inputs as an n_main×1 matrix, or nil when
// there are no Main observations.
func (d *TrainingData) MainInputs() *mat.Dense {
	if len(d.MainX) == 0 {
		return nil
	}
	return mat.NewDense(len(d.MainX), 1, append([]float64(nil), d.MainX...))
}

// CombinedTrainingSet is the multitask encoding of both tasks: each row is
// (input, task indicator). Auxiliary rows come first.
type CombinedTrainingSet struct {
	// X is (n_aux+n_main)×2, nil when both tasks are empty.
	X *mat.Dense
	// Y holds the raw observations in the row order of X.
	Y []float64
}

// Len returns the number of rows.
func (c *CombinedTrainingSet) Len() int {
	return len(c.Y)
}

// Combined stacks Auxiliary then Main rows with their task indicators.
func (d *TrainingData) Combined() *CombinedTrainingSet {
	n := len(d.AuxX) + len(d.MainX)
	set := &CombinedTrainingSet{Y: make([]float64, 0, n)}
	set.Y = append(set.Y, d.AuxY...)
	set.Y = append(set.Y, d.MainY...)
	if n == 0 {
		return set
	}

	data := make([]float64, 0, 2*n)
	for _, x := range d.AuxX {
		data = append(data, x, Auxiliary.Indicator())
	}
	for _, x := range d.MainX {
		data = append(data, x, Main.Indicator())
	}
	set.X = mat.NewDense(n, 2, data)
	return set
}
