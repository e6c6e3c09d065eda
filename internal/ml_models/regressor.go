// Package ml_models implements the model families behind the duration
// prediction and category classification pipeline. All model types have
// exported fields so they can be round-tripped through the artifact
// registry.
package ml_models

// ModelKind identifies a concrete regressor family.
type ModelKind string

const (
	KindTabular  ModelKind = "tabular"
	KindSequence ModelKind = "sequence"
)

// Regressor is the closed prediction capability shared by the model
// families. Predict consumes a flat feature slice and returns the
// estimate in seconds.
type Regressor interface {
	Predict(features []float64) (float64, error)
	Kind() ModelKind
}
