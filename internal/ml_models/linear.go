package ml_models

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// LinearClassifier is a one-vs-rest linear margin classifier trained
// with hinge-loss SGD. Decision scores, not probabilities: the argmax
// score picks the class and doubles as the confidence signal.
type LinearClassifier struct {
	Classes []string    `cbor:"classes"`
	Weights [][]float64 `cbor:"weights"`
	Bias    []float64   `cbor:"bias"`
}

// NewLinearClassifier returns an unfit classifier over the given class
// labels.
func NewLinearClassifier(classes []string) *LinearClassifier {
	return &LinearClassifier{Classes: append([]string(nil), classes...)}
}

// Fit trains on rows x with class indices y. sampleWeights scales each
// example's update; pass nil for uniform weighting.
func (c *LinearClassifier) Fit(x [][]float64, y []int, sampleWeights []float64, epochs int) error {
	if len(x) == 0 || len(x) != len(y) {
		return errors.New("linear fit: empty or mismatched training data")
	}
	if len(c.Classes) == 0 {
		return errors.New("linear fit: no classes")
	}

	dim := len(x[0])
	c.Weights = make([][]float64, len(c.Classes))
	c.Bias = make([]float64, len(c.Classes))
	for i := range c.Weights {
		c.Weights[i] = make([]float64, dim)
	}

	const learningRate = 0.05
	const lambda = 1e-4

	for epoch := 0; epoch < epochs; epoch++ {
		for i, row := range x {
			weight := 1.0
			if sampleWeights != nil {
				weight = sampleWeights[i]
			}
			for class := range c.Classes {
				target := -1.0
				if y[i] == class {
					target = 1.0
				}
				margin := target * (floats.Dot(c.Weights[class], row) + c.Bias[class])
				floats.Scale(1-learningRate*lambda, c.Weights[class])
				if margin < 1 {
					floats.AddScaled(c.Weights[class], learningRate*weight*target, row)
					c.Bias[class] += learningRate * weight * target
				}
			}
		}
	}
	return nil
}

// DecisionFunction returns the per-class decision scores for a row.
func (c *LinearClassifier) DecisionFunction(row []float64) ([]float64, error) {
	if len(c.Weights) == 0 {
		return nil, errors.New("linear predict: classifier is not fit")
	}
	if len(row) != len(c.Weights[0]) {
		return nil, fmt.Errorf("linear predict: expected %d features, got %d", len(c.Weights[0]), len(row))
	}

	scores := make([]float64, len(c.Classes))
	for class := range c.Classes {
		scores[class] = floats.Dot(c.Weights[class], row) + c.Bias[class]
	}
	return scores, nil
}

// PredictClass returns the argmax class label and its decision score.
func (c *LinearClassifier) PredictClass(row []float64) (string, float64, error) {
	scores, err := c.DecisionFunction(row)
	if err != nil {
		return "", 0, err
	}
	best := 0
	for i := range scores {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return c.Classes[best], scores[best], nil
}
