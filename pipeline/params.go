// Package pipeline runs one full recomputation of the demo: generate data,
// normalize, fit both GPs, draw posterior samples and compute diagnostics.
// It keeps no state between runs.
package pipeline

import (
	"fmt"
	"math"

	"github.com/asaskevich/govalidator"

	"github.com/YuminosukeSato/mtgp/dataset"
	"github.com/YuminosukeSato/mtgp/pkg/errors"
)

// Slider ranges of the UI.
const (
	PeriodMin  = 2.0
	PeriodMax  = 10.0
	PeriodStep = 0.5

	ObservationsMin = 0
	ObservationsMax = 50

	NoiseMin  = 0.0
	NoiseMax  = 1.0
	NoiseStep = 0.1

	stepTolerance = 1e-9
)

// Params are the four user-controlled inputs.
type Params struct {
	Period float64 `json:"period"`
	NMain  int     `json:"n_main"`
	NAux   int     `json:"n_aux"`
	Noise  float64 `json:"noise"`
}

// DefaultParams returns the initial slider positions.
func DefaultParams() Params {
	return Params{Period: 5.0, NMain: 20, NAux: 20, Noise: 0.1}
}

// onStep reports whether v is a whole multiple of step from min.
func onStep(v, min, step float64) bool {
	k := (v - min) / step
	return math.Abs(k-math.Round(k)) <= stepTolerance
}

// Validate checks every parameter against its slider range and step.
func (p Params) Validate() error {
	if !govalidator.InRangeFloat64(p.Period, PeriodMin, PeriodMax) {
		return errors.NewValidationError("period", fmt.Sprintf("must be in [%g, %g]", PeriodMin, PeriodMax), p.Period)
	}
	if !onStep(p.Period, PeriodMin, PeriodStep) {
		return errors.NewValidationError("period", fmt.Sprintf("must be a multiple of %g", PeriodStep), p.Period)
	}
	if !govalidator.InRangeInt(p.NMain, ObservationsMin, ObservationsMax) {
		return errors.NewValidationError("n_main", fmt.Sprintf("must be in [%d, %d]", ObservationsMin, ObservationsMax), p.NMain)
	}
	if !govalidator.InRangeInt(p.NAux, ObservationsMin, ObservationsMax) {
		return errors.NewValidationError("n_aux", fmt.Sprintf("must be in [%d, %d]", ObservationsMin, ObservationsMax), p.NAux)
	}
	if !govalidator.InRangeFloat64(p.Noise, NoiseMin, NoiseMax) {
		return errors.NewValidationError("noise", fmt.Sprintf("must be in [%g, %g]", NoiseMin, NoiseMax), p.Noise)
	}
	if !onStep(p.Noise, NoiseMin, NoiseStep) {
		return errors.NewValidationError("noise", fmt.Sprintf("must be a multiple of %g", NoiseStep), p.Noise)
	}
	return nil
}

func (p Params) datasetConfig() dataset.Config {
	return dataset.Config{Period: p.Period, NMain: p.NMain, NAux: p.NAux, Noise: p.Noise}
}

func (p Params) String() string {
	return fmt.Sprintf("period=%g n_main=%d n_aux=%d noise=%g", p.Period, p.NMain, p.NAux, p.Noise)
}
