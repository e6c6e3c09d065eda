// Package predictor estimates task durations from the published
// regression models. Prediction is best-effort: any failure leaves the
// task's predicted duration untouched and is reported through the log.
package predictor

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"tasktracker/internal/feature"
	"tasktracker/internal/metrics"
	"tasktracker/internal/ml_models"
	"tasktracker/internal/models"
	"tasktracker/internal/registry"
	"tasktracker/internal/trainer"
)

// TaskStore covers the persistence the predictor needs.
type TaskStore interface {
	EarliestCompletedStart() (*time.Time, error)
	UpdatePredictedDuration(taskID int64, hours float64) error
}

// Extractor computes the numeric representation of a task.
type Extractor interface {
	Extract(task *models.Task, baseTime *time.Time) feature.Vector
}

// Config tunes duration prediction.
type Config struct {
	// TabularStatuses routes tasks in these statuses to the tabular
	// model; everything else goes through the sequence model.
	TabularStatuses []string
}

// DurationPredictor routes a task to the right regression model and
// persists the estimate.
type DurationPredictor struct {
	tasks     TaskStore
	extractor Extractor
	registry  *registry.Registry
	tabular   map[string]struct{}
	logger    *zap.Logger
}

func New(tasks TaskStore, extractor Extractor, reg *registry.Registry, cfg Config, logger *zap.Logger) *DurationPredictor {
	tabular := make(map[string]struct{}, len(cfg.TabularStatuses))
	for _, status := range cfg.TabularStatuses {
		tabular[status] = struct{}{}
	}
	return &DurationPredictor{
		tasks:     tasks,
		extractor: extractor,
		registry:  reg,
		tabular:   tabular,
		logger:    logger,
	}
}

// PredictDuration estimates the task's duration in hours and persists
// it on the task row. Returns nil when no estimate could be produced;
// the stored value is then left untouched.
func (p *DurationPredictor) PredictDuration(ctx context.Context, task *models.Task) *float64 {
	seconds, ok := p.estimate(task)
	if !ok {
		return nil
	}

	hours := math.Round(seconds/3600*10) / 10
	if hours < 0 {
		hours = 0
	}

	if err := p.tasks.UpdatePredictedDuration(task.ID, hours); err != nil {
		p.logger.Error("Failed to persist predicted duration",
			zap.Int64("task_id", task.ID), zap.Error(err))
		return nil
	}

	p.logger.Info("Predicted task duration",
		zap.Int64("task_id", task.ID),
		zap.String("status", task.Status),
		zap.Float64("hours", hours))
	return &hours
}

// estimate returns the raw model output in seconds.
func (p *DurationPredictor) estimate(task *models.Task) (float64, bool) {
	if _, ok := p.tabular[task.Status]; ok {
		return p.estimateTabular(task)
	}
	return p.estimateSequence(task)
}

func (p *DurationPredictor) estimateTabular(task *models.Task) (float64, bool) {
	var model ml_models.TabularRegressor
	if err := p.registry.Load(registry.KindTabular, &model); err != nil {
		p.logger.Warn("Tabular model unavailable", zap.Int64("task_id", task.ID), zap.Error(err))
		return 0, false
	}
	var preprocessor ml_models.Preprocessor
	if err := p.registry.Load(registry.KindPreprocessor, &preprocessor); err != nil {
		p.logger.Warn("Preprocessor unavailable", zap.Int64("task_id", task.ID), zap.Error(err))
		return 0, false
	}

	v := p.extractor.Extract(task, nil)
	input, err := preprocessor.Transform(trainer.TabularInput(v))
	if err != nil {
		p.logger.Error("Feature transform failed", zap.Int64("task_id", task.ID), zap.Error(err))
		return 0, false
	}

	return p.predictSeconds(&model, input, task.ID)
}

func (p *DurationPredictor) estimateSequence(task *models.Task) (float64, bool) {
	var model ml_models.SequenceRegressor
	if err := p.registry.Load(registry.KindSequence, &model); err != nil {
		p.logger.Warn("Sequence model unavailable", zap.Int64("task_id", task.ID), zap.Error(err))
		return 0, false
	}

	anchor, err := p.tasks.EarliestCompletedStart()
	if err != nil {
		p.logger.Error("Failed to load sequence anchor", zap.Int64("task_id", task.ID), zap.Error(err))
		return 0, false
	}
	if anchor == nil {
		p.logger.Warn("No completed task history for sequence prediction",
			zap.Int64("task_id", task.ID))
		return 0, false
	}

	v := p.extractor.Extract(task, anchor)
	return p.predictSeconds(&model, trainer.SequenceStep(v), task.ID)
}

func (p *DurationPredictor) predictSeconds(model ml_models.Regressor, input []float64, taskID int64) (float64, bool) {
	seconds, err := model.Predict(input)
	if err != nil {
		p.logger.Error("Duration prediction failed",
			zap.Int64("task_id", taskID),
			zap.String("model", string(model.Kind())),
			zap.Error(err))
		return 0, false
	}
	metrics.DurationPredictions.WithLabelValues(string(model.Kind())).Inc()
	return seconds, true
}
