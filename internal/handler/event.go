package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tasktracker/internal/events"
)

type EventHandler interface {
	TaskSaved(c *gin.Context)
	TaskCompleted(c *gin.Context)
}

type taskSavedRequest struct {
	TaskID int64 `json:"task_id" binding:"required"`
	IsNew  bool  `json:"is_new"`
}

type taskCompletedRequest struct {
	TaskID int64 `json:"task_id" binding:"required"`
}

type eventHandler struct {
	worker *events.Worker
	logger *zap.Logger
}

func NewEventHandler(worker *events.Worker, logger *zap.Logger) EventHandler {
	return &eventHandler{worker: worker, logger: logger}
}

// TaskSaved handles POST /api/events/task-saved
func (h *eventHandler) TaskSaved(c *gin.Context) {
	var req taskSavedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid task-saved event", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "task_id is required"})
		return
	}

	if !h.worker.EnqueueSaved(req.TaskID, req.IsNew) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Event queue full"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": req.TaskID})
}

// TaskCompleted handles POST /api/events/task-completed
func (h *eventHandler) TaskCompleted(c *gin.Context) {
	var req taskCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid task-completed event", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "task_id is required"})
		return
	}

	if !h.worker.EnqueueCompleted(req.TaskID) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Event queue full"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": req.TaskID})
}
