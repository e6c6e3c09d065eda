package ml_models

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SequenceRegressor predicts a duration from a window of time-ordered
// feature steps. Step weights are shared across positions, so a model
// trained on fixed-length windows can also score the one-step history
// window built at serving time.
type SequenceRegressor struct {
	FeatureDim  int       `cbor:"feature_dim"`
	StepWeights []float64 `cbor:"step_weights"`
	Bias        float64   `cbor:"bias"`
	TargetMean  float64   `cbor:"target_mean"`
	TargetScale float64   `cbor:"target_scale"`
}

// NewSequenceRegressor returns an unfit regressor for the given number
// of features per step.
func NewSequenceRegressor(featureDim int) *SequenceRegressor {
	return &SequenceRegressor{
		FeatureDim:  featureDim,
		StepWeights: make([]float64, featureDim),
		TargetScale: 1,
	}
}

func (m *SequenceRegressor) Kind() ModelKind { return KindSequence }

// Fit trains with SGD and early stopping on a validation slice taken
// from the tail of the window series.
func (m *SequenceRegressor) Fit(windows [][][]float64, targets []float64, epochs int) error {
	if len(windows) == 0 || len(windows) != len(targets) {
		return errors.New("sequence fit: empty or mismatched training data")
	}

	m.TargetMean = stat.Mean(targets, nil)
	m.TargetScale = stat.StdDev(targets, nil)
	if m.TargetScale == 0 || math.IsNaN(m.TargetScale) {
		m.TargetScale = 1
	}
	scaled := make([]float64, len(targets))
	for i, t := range targets {
		scaled[i] = (t - m.TargetMean) / m.TargetScale
	}

	valSize := len(windows) / 5
	if valSize == 0 {
		valSize = 1
	}
	trainEnd := len(windows) - valSize
	if trainEnd == 0 {
		trainEnd = len(windows)
		valSize = 0
	}

	const learningRate = 0.01
	const patience = 5

	bestWeights := append([]float64(nil), m.StepWeights...)
	bestBias := m.Bias
	bestValErr := math.Inf(1)
	badEpochs := 0

	for epoch := 0; epoch < epochs; epoch++ {
		for i := 0; i < trainEnd; i++ {
			pred := m.scoreScaled(windows[i])
			grad := pred - scaled[i]
			steps := float64(len(windows[i]))
			for _, step := range windows[i] {
				// d(pred)/d(w) = step / numSteps
				floats.AddScaled(m.StepWeights, -learningRate*grad/steps, step)
			}
			m.Bias -= learningRate * grad
		}

		if valSize == 0 {
			continue
		}
		var valErr float64
		for i := trainEnd; i < len(windows); i++ {
			diff := m.scoreScaled(windows[i]) - scaled[i]
			valErr += diff * diff
		}
		if valErr < bestValErr {
			bestValErr = valErr
			copy(bestWeights, m.StepWeights)
			bestBias = m.Bias
			badEpochs = 0
		} else {
			badEpochs++
			if badEpochs >= patience {
				break
			}
		}
	}

	if valSize > 0 {
		copy(m.StepWeights, bestWeights)
		m.Bias = bestBias
	}
	return nil
}

// Predict scores a flattened window: the slice length must be a multiple
// of FeatureDim, each chunk being one time step.
func (m *SequenceRegressor) Predict(features []float64) (float64, error) {
	window, err := m.reshape(features)
	if err != nil {
		return 0, err
	}
	return m.scoreScaled(window)*m.TargetScale + m.TargetMean, nil
}

func (m *SequenceRegressor) scoreScaled(window [][]float64) float64 {
	var sum float64
	for _, step := range window {
		sum += floats.Dot(m.StepWeights, step)
	}
	return sum/float64(len(window)) + m.Bias
}

func (m *SequenceRegressor) reshape(features []float64) ([][]float64, error) {
	if m.FeatureDim == 0 || len(features) == 0 || len(features)%m.FeatureDim != 0 {
		return nil, fmt.Errorf("sequence predict: %d features is not a multiple of step size %d",
			len(features), m.FeatureDim)
	}
	steps := len(features) / m.FeatureDim
	window := make([][]float64, steps)
	for i := 0; i < steps; i++ {
		window[i] = features[i*m.FeatureDim : (i+1)*m.FeatureDim]
	}
	return window, nil
}
