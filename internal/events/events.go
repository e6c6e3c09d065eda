// Package events dispatches task lifecycle events to the ML pipeline:
// saving a task triggers categorization and a duration estimate,
// completing one triggers model retraining.
package events

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tasktracker/internal/classifier"
	"tasktracker/internal/models"
	"tasktracker/internal/predictor"
	"tasktracker/internal/trainer"
)

// TaskStore covers the persistence the event handlers need.
type TaskStore interface {
	GetTaskByID(id int64) (*models.Task, error)
	TasksWithoutCategory() ([]models.Task, error)
	UpdateCategory(taskID, categoryID int64) error
}

// CategoryStore resolves predicted labels to category rows.
type CategoryStore interface {
	GetOrCreate(name string) (*models.Category, error)
}

// RetrainOutcome reports both halves of a full retraining run.
type RetrainOutcome struct {
	Duration   trainer.Result `json:"duration"`
	Classifier string         `json:"classifier"`
}

// Handler wires the task lifecycle into the ML components.
type Handler struct {
	tasks      TaskStore
	categories CategoryStore
	classifier *classifier.Classifier
	predictor  *predictor.DurationPredictor
	trainer    *trainer.Trainer
	logger     *zap.Logger
}

func NewHandler(tasks TaskStore, categories CategoryStore, cls *classifier.Classifier, pred *predictor.DurationPredictor, trn *trainer.Trainer, logger *zap.Logger) *Handler {
	return &Handler{
		tasks:      tasks,
		categories: categories,
		classifier: cls,
		predictor:  pred,
		trainer:    trn,
		logger:     logger,
	}
}

// OnTaskSaved runs after a task is created or its text changes: a task
// without a category gets one assigned, then its duration estimate is
// refreshed. The task is mutated in place with the results.
func (h *Handler) OnTaskSaved(ctx context.Context, task *models.Task, isNew bool) {
	if isNew || task.CategoryID == nil {
		if err := h.AssignCategory(ctx, task); err != nil {
			h.logger.Error("Category assignment failed",
				zap.Int64("task_id", task.ID), zap.Error(err))
		}
	}

	if hours := h.predictor.PredictDuration(ctx, task); hours != nil {
		task.PredictedDuration = hours
	}
}

// OnTaskCompleted retrains the duration models and the category
// classifier on the grown history. Runs in the caller's goroutine.
func (h *Handler) OnTaskCompleted(ctx context.Context, task *models.Task) RetrainOutcome {
	h.logger.Info("Task completed, retraining models", zap.Int64("task_id", task.ID))
	return h.Retrain(ctx)
}

// Retrain runs both training pipelines and reports their outcomes.
func (h *Handler) Retrain(ctx context.Context) RetrainOutcome {
	outcome := RetrainOutcome{
		Duration:   h.trainer.Train(),
		Classifier: "retrained",
	}

	if err := h.classifier.Retrain(ctx); err != nil {
		if errors.Is(err, models.ErrInsufficientData) {
			outcome.Classifier = "not enough data"
			h.logger.Warn("Classifier retraining skipped", zap.Error(err))
		} else {
			outcome.Classifier = fmt.Sprintf("failed: %v", err)
			h.logger.Error("Classifier retraining failed", zap.Error(err))
		}
	}
	return outcome
}

// AssignCategory classifies the task's text and persists the resulting
// category on the task. Prediction itself never fails; only resolving
// or persisting the category can.
func (h *Handler) AssignCategory(ctx context.Context, task *models.Task) error {
	name := h.classifier.PredictCategory(ctx, task.Text())

	category, err := h.categories.GetOrCreate(name)
	if err != nil {
		return fmt.Errorf("resolve category %q: %w", name, err)
	}
	if err := h.tasks.UpdateCategory(task.ID, category.ID); err != nil {
		return fmt.Errorf("update task category: %w", err)
	}

	task.CategoryID = &category.ID
	h.logger.Info("Category assigned",
		zap.Int64("task_id", task.ID),
		zap.String("category", category.Name))
	return nil
}

// AssignCategories classifies every task that has no category yet and
// returns how many were updated.
func (h *Handler) AssignCategories(ctx context.Context) (int, error) {
	tasks, err := h.tasks.TasksWithoutCategory()
	if err != nil {
		return 0, fmt.Errorf("load uncategorized tasks: %w", err)
	}

	assigned := 0
	for i := range tasks {
		if ctx.Err() != nil {
			return assigned, ctx.Err()
		}
		if err := h.AssignCategory(ctx, &tasks[i]); err != nil {
			h.logger.Error("Batch category assignment failed",
				zap.Int64("task_id", tasks[i].ID), zap.Error(err))
			continue
		}
		assigned++
	}

	h.logger.Info("Batch category assignment finished",
		zap.Int("total", len(tasks)), zap.Int("assigned", assigned))
	return assigned, nil
}
