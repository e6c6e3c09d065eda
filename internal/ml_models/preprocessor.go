package ml_models

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Preprocessor standardizes tabular feature rows to zero mean and unit
// variance. An unfit preprocessor transforms rows unchanged, which is
// what the fallback model expects.
type Preprocessor struct {
	Mean  []float64 `cbor:"mean"`
	Scale []float64 `cbor:"scale"`
}

// Fit computes per-feature statistics.
func (p *Preprocessor) Fit(x [][]float64) error {
	if len(x) == 0 {
		return errors.New("preprocessor fit: empty training data")
	}

	numFeatures := len(x[0])
	p.Mean = make([]float64, numFeatures)
	p.Scale = make([]float64, numFeatures)

	column := make([]float64, len(x))
	for f := 0; f < numFeatures; f++ {
		for i, row := range x {
			column[i] = row[f]
		}
		p.Mean[f] = stat.Mean(column, nil)
		p.Scale[f] = stat.StdDev(column, nil)
		if p.Scale[f] == 0 || math.IsNaN(p.Scale[f]) {
			p.Scale[f] = 1
		}
	}
	return nil
}

// Transform standardizes a single row.
func (p *Preprocessor) Transform(row []float64) ([]float64, error) {
	if len(p.Mean) == 0 {
		return append([]float64(nil), row...), nil
	}
	if len(row) != len(p.Mean) {
		return nil, fmt.Errorf("preprocessor transform: expected %d features, got %d", len(p.Mean), len(row))
	}

	out := make([]float64, len(row))
	for i, v := range row {
		out[i] = (v - p.Mean[i]) / p.Scale[i]
	}
	return out, nil
}

// TransformAll standardizes every row.
func (p *Preprocessor) TransformAll(x [][]float64) ([][]float64, error) {
	out := make([][]float64, len(x))
	for i, row := range x {
		transformed, err := p.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = transformed
	}
	return out, nil
}
