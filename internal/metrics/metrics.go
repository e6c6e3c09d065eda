// Package metrics exposes the ML pipeline observability signals.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PredictionErrors counts classification failures that degraded to
	// the default category.
	PredictionErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classifier_prediction_errors_total",
		Help: "Number of category predictions that fell back to the default category.",
	})

	// PredictionConfidence records the decision score of the last
	// model-based category prediction.
	PredictionConfidence = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "classifier_prediction_confidence",
		Help: "Decision score of the most recent model-based category prediction.",
	})

	// DurationPredictions counts task duration estimates by model kind.
	DurationPredictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duration_predictions_total",
		Help: "Number of task duration predictions by model kind.",
	}, []string{"model"})

	// TrainingRuns counts duration-model training runs by outcome.
	TrainingRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duration_training_runs_total",
		Help: "Number of duration model training runs by status.",
	}, []string{"status"})
)

// Handler serves the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
