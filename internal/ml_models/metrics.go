package ml_models

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// MeanSquaredError computes the MSE between targets and predictions.
func MeanSquaredError(y, pred []float64) float64 {
	if len(y) == 0 || len(y) != len(pred) {
		return math.NaN()
	}
	sq := make([]float64, len(y))
	for i := range y {
		diff := y[i] - pred[i]
		sq[i] = diff * diff
	}
	return stat.Mean(sq, nil)
}

// MeanAbsoluteError computes the MAE between targets and predictions.
func MeanAbsoluteError(y, pred []float64) float64 {
	if len(y) == 0 || len(y) != len(pred) {
		return math.NaN()
	}
	abs := make([]float64, len(y))
	for i := range y {
		abs[i] = math.Abs(y[i] - pred[i])
	}
	return stat.Mean(abs, nil)
}
