package server

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/mtgp/pipeline"
	"github.com/YuminosukeSato/mtgp/pkg/errors"
)

// Query parameter names. They match the form field names of the page.
const (
	paramPeriod = "period"
	paramNMain  = "n_main"
	paramNAux   = "n_aux"
	paramNoise  = "noise"
)

// ParseParams reads the slider values from q. Missing or empty values
// take their defaults. The result is validated.
func ParseParams(q url.Values) (pipeline.Params, error) {
	p := pipeline.DefaultParams()

	var err error
	if p.Period, err = floatParam(q, paramPeriod, p.Period); err != nil {
		return p, err
	}
	if p.NMain, err = intParam(q, paramNMain, p.NMain); err != nil {
		return p, err
	}
	if p.NAux, err = intParam(q, paramNAux, p.NAux); err != nil {
		return p, err
	}
	if p.Noise, err = floatParam(q, paramNoise, p.Noise); err != nil {
		return p, err
	}
	return p, p.Validate()
}

// EncodeParams is the inverse of ParseParams.
func EncodeParams(p pipeline.Params) url.Values {
	q := url.Values{}
	q.Set(paramPeriod, strconv.FormatFloat(p.Period, 'g', -1, 64))
	q.Set(paramNMain, strconv.Itoa(p.NMain))
	q.Set(paramNAux, strconv.Itoa(p.NAux))
	q.Set(paramNoise, strconv.FormatFloat(p.Noise, 'g', -1, 64))
	return q
}

func floatParam(q url.Values, name string, def float64) (float64, error) {
	s := strings.TrimSpace(q.Get(name))
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def, errors.NewValidationError(name, "must be a number", s)
	}
	return v, nil
}

func intParam(q url.Values, name string, def int) (int, error) {
	s := strings.TrimSpace(q.Get(name))
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def, errors.NewValidationError(name, "must be an integer", s)
	}
	return v, nil
}
