package ml_models

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Stump is a single depth-one regression tree.
type Stump struct {
	Feature   int     `cbor:"feature"`
	Threshold float64 `cbor:"threshold"`
	Left      float64 `cbor:"left"`
	Right     float64 `cbor:"right"`
}

// TabularRegressor is a gradient-boosted ensemble of regression stumps
// fit on the 4-feature tabular representation of a task.
type TabularRegressor struct {
	Base         float64 `cbor:"base"`
	LearningRate float64 `cbor:"learning_rate"`
	Stumps       []Stump `cbor:"stumps"`
}

// NewTabularRegressor returns an unfit regressor with default shrinkage.
func NewTabularRegressor() *TabularRegressor {
	return &TabularRegressor{LearningRate: 0.1}
}

func (m *TabularRegressor) Kind() ModelKind { return KindTabular }

// Fit trains the ensemble with the given number of boosting rounds.
func (m *TabularRegressor) Fit(x [][]float64, y []float64, rounds int) error {
	if len(x) == 0 || len(x) != len(y) {
		return errors.New("tabular fit: empty or mismatched training data")
	}

	m.Base = stat.Mean(y, nil)
	m.Stumps = m.Stumps[:0]

	residuals := make([]float64, len(y))
	for i, target := range y {
		residuals[i] = target - m.Base
	}

	for round := 0; round < rounds; round++ {
		stump, ok := bestStump(x, residuals)
		if !ok {
			break
		}
		m.Stumps = append(m.Stumps, stump)
		for i, row := range x {
			residuals[i] -= m.LearningRate * stump.apply(row)
		}
	}
	return nil
}

// Predict returns the estimate for a single feature row.
func (m *TabularRegressor) Predict(features []float64) (float64, error) {
	for _, stump := range m.Stumps {
		if stump.Feature >= len(features) {
			return 0, fmt.Errorf("tabular predict: expected at least %d features, got %d",
				stump.Feature+1, len(features))
		}
	}

	prediction := m.Base
	for _, stump := range m.Stumps {
		prediction += m.LearningRate * stump.apply(features)
	}
	return prediction, nil
}

func (s Stump) apply(row []float64) float64 {
	if row[s.Feature] <= s.Threshold {
		return s.Left
	}
	return s.Right
}

// bestStump exhaustively searches feature/threshold splits minimizing the
// squared residual error. Thresholds are midpoints between consecutive
// distinct feature values.
func bestStump(x [][]float64, residuals []float64) (Stump, bool) {
	numFeatures := len(x[0])
	best := Stump{}
	bestErr := math.Inf(1)
	found := false

	for feature := 0; feature < numFeatures; feature++ {
		values := make([]float64, len(x))
		for i, row := range x {
			values[i] = row[feature]
		}
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)

		for i := 1; i < len(sorted); i++ {
			if sorted[i] == sorted[i-1] {
				continue
			}
			threshold := (sorted[i] + sorted[i-1]) / 2

			var leftSum, rightSum float64
			var leftN, rightN int
			for j, v := range values {
				if v <= threshold {
					leftSum += residuals[j]
					leftN++
				} else {
					rightSum += residuals[j]
					rightN++
				}
			}
			if leftN == 0 || rightN == 0 {
				continue
			}

			left := leftSum / float64(leftN)
			right := rightSum / float64(rightN)

			var sse float64
			for j, v := range values {
				fit := right
				if v <= threshold {
					fit = left
				}
				diff := residuals[j] - fit
				sse += diff * diff
			}
			if sse < bestErr {
				bestErr = sse
				best = Stump{Feature: feature, Threshold: threshold, Left: left, Right: right}
				found = true
			}
		}
	}
	return best, found
}
