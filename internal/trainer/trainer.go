// Package trainer builds and publishes the duration prediction models
// from completed tasks. A run that cannot produce a real model still
// leaves the serving path with a usable artifact: either the previously
// active set or a deterministic fallback model.
package trainer

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tasktracker/internal/feature"
	"tasktracker/internal/metrics"
	"tasktracker/internal/ml_models"
	"tasktracker/internal/models"
	"tasktracker/internal/registry"
)

// Training run outcomes.
const (
	StatusSuccess = "success"
	StatusWarning = "warning"
	StatusError   = "error"
)

// TaskSource supplies the training ground truth.
type TaskSource interface {
	CompletedTasks() ([]models.CompletedTask, error)
}

// Extractor computes the numeric representation of a task.
type Extractor interface {
	Extract(task *models.Task, baseTime *time.Time) feature.Vector
}

// Config tunes the training pipeline.
type Config struct {
	MinSamples     int
	Timesteps      int
	BoostingRounds int
}

// Result is the structured outcome of one training run. Training never
// propagates errors; failures surface here.
type Result struct {
	RunID           string   `json:"run_id"`
	Status          string   `json:"status"`
	Message         string   `json:"message,omitempty"`
	Version         string   `json:"version,omitempty"`
	Samples         int      `json:"samples"`
	MSE             *float64 `json:"mse,omitempty"`
	MAE             *float64 `json:"mae,omitempty"`
	SequenceTrained bool     `json:"sequence_trained"`
}

// Trainer runs the duration model training pipeline.
type Trainer struct {
	tasks     TaskSource
	extractor Extractor
	registry  *registry.Registry
	cfg       Config
	logger    *zap.Logger
}

func New(tasks TaskSource, extractor Extractor, reg *registry.Registry, cfg Config, logger *zap.Logger) *Trainer {
	if cfg.BoostingRounds == 0 {
		cfg.BoostingRounds = 50
	}
	return &Trainer{tasks: tasks, extractor: extractor, registry: reg, cfg: cfg, logger: logger}
}

// Train prepares features for all eligible completed tasks, fits the
// tabular and (when enough windows exist) sequence regressors, and
// publishes the artifact set under a fresh version.
func (t *Trainer) Train() (result Result) {
	result.RunID = uuid.NewString()

	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("Training panicked", zap.Any("panic", r))
			result = t.failed(result.RunID, fmt.Sprintf("training panicked: %v", r))
		}
		metrics.TrainingRuns.WithLabelValues(result.Status).Inc()
	}()

	t.logger.Info("Starting duration model training", zap.String("run_id", result.RunID))

	completed, err := t.tasks.CompletedTasks()
	if err != nil {
		return t.failed(result.RunID, fmt.Sprintf("load completed tasks: %v", err))
	}
	result.Samples = len(completed)

	if len(completed) < t.cfg.MinSamples {
		return t.insufficient(result)
	}

	x, y := t.prepareTabular(completed)
	if len(x) < t.cfg.MinSamples {
		result.Samples = len(x)
		return t.insufficient(result)
	}

	preprocessor := &ml_models.Preprocessor{}
	if err := preprocessor.Fit(x); err != nil {
		return t.failed(result.RunID, fmt.Sprintf("fit preprocessor: %v", err))
	}
	px, err := preprocessor.TransformAll(x)
	if err != nil {
		return t.failed(result.RunID, fmt.Sprintf("transform features: %v", err))
	}

	tabular := ml_models.NewTabularRegressor()
	if err := tabular.Fit(px, y, t.cfg.BoostingRounds); err != nil {
		return t.failed(result.RunID, fmt.Sprintf("fit tabular model: %v", err))
	}

	preds := make([]float64, len(px))
	for i, row := range px {
		preds[i], _ = tabular.Predict(row)
	}
	mse := ml_models.MeanSquaredError(y, preds)
	mae := ml_models.MeanAbsoluteError(y, preds)
	result.MSE = &mse
	result.MAE = &mae
	t.logger.Info("Tabular model trained",
		zap.Int("samples", len(px)),
		zap.Float64("mse", mse),
		zap.Float64("mae", mae))

	artifacts := map[registry.Kind]interface{}{
		registry.KindTabular:      tabular,
		registry.KindPreprocessor: preprocessor,
	}

	windows, targets := t.prepareSequence(completed, y)
	if len(windows) > 0 {
		sequence := ml_models.NewSequenceRegressor(feature.Size)
		if err := sequence.Fit(windows, targets, 200); err != nil {
			t.logger.Warn("Sequence model training failed, publishing tabular only", zap.Error(err))
		} else {
			artifacts[registry.KindSequence] = sequence
			result.SequenceTrained = true
			t.logger.Info("Sequence model trained", zap.Int("windows", len(windows)))
		}
	} else {
		t.logger.Warn("Not enough windows for sequence model training",
			zap.Int("samples", len(completed)), zap.Int("timesteps", t.cfg.Timesteps))
	}

	version := registry.TimestampVersion(time.Now())
	if err := t.registry.Publish(version, artifacts); err != nil {
		return t.failed(result.RunID, fmt.Sprintf("publish artifacts: %v", err))
	}

	result.Status = StatusSuccess
	result.Version = version
	return result
}

// prepareTabular builds scaled 4-feature rows and duration targets in
// seconds for every eligible completed task.
func (t *Trainer) prepareTabular(completed []models.CompletedTask) ([][]float64, []float64) {
	var x [][]float64
	var y []float64
	for i := range completed {
		task := &completed[i]
		if task.DurationSec <= 0 {
			continue
		}
		v := t.extractor.Extract(&task.Task, nil)
		x = append(x, TabularInput(v))
		y = append(y, task.DurationSec)
	}
	return x, y
}

// prepareSequence builds overlapping fixed-length windows over the
// time-ordered feature series, anchored at the earliest completed
// task's start time.
func (t *Trainer) prepareSequence(completed []models.CompletedTask, y []float64) ([][][]float64, []float64) {
	if len(completed) == 0 || completed[0].StartTime == nil {
		return nil, nil
	}
	anchor := *completed[0].StartTime

	rows := make([][]float64, 0, len(completed))
	for i := range completed {
		task := &completed[i]
		if task.DurationSec <= 0 {
			continue
		}
		v := t.extractor.Extract(&task.Task, &anchor)
		rows = append(rows, SequenceStep(v))
	}

	var windows [][][]float64
	var targets []float64
	for i := 0; i+t.cfg.Timesteps < len(rows); i++ {
		windows = append(windows, rows[i:i+t.cfg.Timesteps])
		targets = append(targets, y[i+t.cfg.Timesteps])
	}
	return windows, targets
}

// insufficient reports a warning outcome. Previously published
// artifacts are left untouched; only when no tabular model exists at
// all is the deterministic fallback published, so the serving path is
// never left with zero usable model.
func (t *Trainer) insufficient(result Result) Result {
	result.Status = StatusWarning
	result.Message = "not enough data"
	t.logger.Warn("Not enough data for duration training",
		zap.Int("samples", result.Samples), zap.Int("min_samples", t.cfg.MinSamples))

	if !t.registry.Has(registry.KindTabular) {
		if err := t.CreateFallbackModels(); err != nil {
			t.logger.Error("Failed to create fallback model", zap.Error(err))
			result.Status = StatusError
			result.Message = fmt.Sprintf("fallback model creation failed: %v", err)
			return result
		}
		result.Version = registry.VersionFallback
	}
	return result
}

func (t *Trainer) failed(runID, message string) Result {
	t.logger.Error("Duration training failed", zap.String("run_id", runID), zap.String("message", message))

	result := Result{RunID: runID, Status: StatusError, Message: message}
	if !t.registry.Has(registry.KindTabular) {
		if err := t.CreateFallbackModels(); err != nil {
			t.logger.Error("Failed to create fallback model", zap.Error(err))
			return result
		}
		result.Version = registry.VersionFallback
	}
	return result
}

// CreateFallbackModels fits a tabular model on small synthetic data and
// publishes it under the fallback version. Seeded, so repeated fallback
// publications are byte-identical.
func (t *Trainer) CreateFallbackModels() error {
	rng := rand.New(rand.NewSource(42))

	x := make([][]float64, 10)
	y := make([]float64, 10)
	for i := range x {
		x[i] = []float64{rng.Float64(), rng.Float64(), rng.Float64(), rng.Float64()}
		y[i] = rng.Float64() * 3600
	}

	model := ml_models.NewTabularRegressor()
	if err := model.Fit(x, y, 10); err != nil {
		return fmt.Errorf("fit fallback model: %w", err)
	}

	artifacts := map[registry.Kind]interface{}{
		registry.KindTabular:      model,
		registry.KindPreprocessor: &ml_models.Preprocessor{},
	}
	if err := t.registry.Publish(registry.VersionFallback, artifacts); err != nil {
		return fmt.Errorf("publish fallback model: %w", err)
	}

	t.logger.Info("Fallback model created")
	return nil
}

// TabularInput converts a feature vector into the 4-feature model
// input: the time offset is dropped, the category average is scaled to
// hours and the description length to thousands of characters.
func TabularInput(v feature.Vector) []float64 {
	return []float64{
		v[feature.PriorityWeight],
		v[feature.CurrentLoad],
		v[feature.CategoryAvgDuration] / 3600,
		v[feature.DescriptionLength] / 1000,
	}
}

// SequenceStep converts a feature vector into one sequence model step:
// same scaling as TabularInput plus the time offset scaled to days.
func SequenceStep(v feature.Vector) []float64 {
	return []float64{
		v[feature.PriorityWeight],
		v[feature.CurrentLoad],
		v[feature.CategoryAvgDuration] / 3600,
		v[feature.DescriptionLength] / 1000,
		v[feature.TimeOffset] / 86400,
	}
}
