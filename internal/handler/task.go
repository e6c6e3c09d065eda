package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tasktracker/internal/events"
	"tasktracker/internal/models"
	"tasktracker/internal/predictor"
	"tasktracker/internal/repository"
)

type TaskHandler interface {
	AssignCategory(c *gin.Context)
	PredictDuration(c *gin.Context)
}

type taskHandler struct {
	taskRepo  repository.TaskRepository
	events    *events.Handler
	predictor *predictor.DurationPredictor
	logger    *zap.Logger
}

func NewTaskHandler(taskRepo repository.TaskRepository, ev *events.Handler, pred *predictor.DurationPredictor, logger *zap.Logger) TaskHandler {
	return &taskHandler{
		taskRepo:  taskRepo,
		events:    ev,
		predictor: pred,
		logger:    logger,
	}
}

func (h *taskHandler) loadTask(c *gin.Context) (*models.Task, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.logger.Error("Invalid task ID", zap.String("id", idStr), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID"})
		return nil, false
	}

	task, err := h.taskRepo.GetTaskByID(id)
	if err != nil {
		h.logger.Error("Failed to get task", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return nil, false
	}
	return task, true
}

// AssignCategory handles POST /api/tasks/:id/assign-category
func (h *taskHandler) AssignCategory(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}

	if err := h.events.AssignCategory(c.Request.Context(), task); err != nil {
		h.logger.Error("Failed to assign category", zap.Int64("task_id", task.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign category"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task_id":     task.ID,
		"category_id": task.CategoryID,
	})
}

// PredictDuration handles POST /api/tasks/:id/predict-duration
func (h *taskHandler) PredictDuration(c *gin.Context) {
	task, ok := h.loadTask(c)
	if !ok {
		return
	}

	hours := h.predictor.PredictDuration(c.Request.Context(), task)
	if hours == nil {
		c.JSON(http.StatusOK, gin.H{
			"task_id":         task.ID,
			"predicted_hours": nil,
			"message":         "No estimate available",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task_id":         task.ID,
		"predicted_hours": *hours,
	})
}
