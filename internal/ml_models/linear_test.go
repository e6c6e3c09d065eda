package ml_models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearClassifierSeparableClasses(t *testing.T) {
	// Two clearly separated clusters on orthogonal axes.
	x := [][]float64{
		{1, 0}, {0.9, 0.1}, {1.1, 0}, {0.8, 0},
		{0, 1}, {0.1, 0.9}, {0, 1.1}, {0, 0.8},
	}
	y := []int{0, 0, 0, 0, 1, 1, 1, 1}

	m := NewLinearClassifier([]string{"bug", "feature"})
	require.NoError(t, m.Fit(x, y, nil, 100))

	label, _, err := m.PredictClass([]float64{1, 0})
	require.NoError(t, err)
	assert.Equal(t, "bug", label)

	label, _, err = m.PredictClass([]float64{0, 1})
	require.NoError(t, err)
	assert.Equal(t, "feature", label)
}

func TestLinearClassifierSampleWeights(t *testing.T) {
	x := [][]float64{{1, 0}, {0, 1}}
	y := []int{0, 1}
	weights := []float64{2, 0.5}

	m := NewLinearClassifier([]string{"a", "b"})
	require.NoError(t, m.Fit(x, y, weights, 50))

	label, _, err := m.PredictClass([]float64{1, 0})
	require.NoError(t, err)
	assert.Equal(t, "a", label)
}

func TestLinearClassifierUnfit(t *testing.T) {
	m := NewLinearClassifier([]string{"a"})
	_, _, err := m.PredictClass([]float64{1})
	assert.Error(t, err)
}

func TestLinearClassifierDimensionMismatch(t *testing.T) {
	m := NewLinearClassifier([]string{"a", "b"})
	require.NoError(t, m.Fit([][]float64{{1, 0}, {0, 1}}, []int{0, 1}, nil, 10))

	_, err := m.DecisionFunction([]float64{1})
	assert.Error(t, err)
}

func TestLinearClassifierFitValidation(t *testing.T) {
	m := NewLinearClassifier(nil)
	assert.Error(t, m.Fit([][]float64{{1}}, []int{0}, nil, 10))

	m = NewLinearClassifier([]string{"a"})
	assert.Error(t, m.Fit(nil, nil, nil, 10))
}
