package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tasktracker/internal/recommender"
	"tasktracker/internal/repository"
)

type RecommendationHandler interface {
	Recommend(c *gin.Context)
}

type recommendationRequest struct {
	TaskID   int64 `json:"task_id" binding:"required"`
	SprintID int64 `json:"sprint_id" binding:"required"`
}

type recommendationHandler struct {
	taskRepo    repository.TaskRepository
	recommender *recommender.Recommender
	logger      *zap.Logger
}

func NewRecommendationHandler(taskRepo repository.TaskRepository, rec *recommender.Recommender, logger *zap.Logger) RecommendationHandler {
	return &recommendationHandler{
		taskRepo:    taskRepo,
		recommender: rec,
		logger:      logger,
	}
}

// Recommend handles POST /api/recommendations
func (h *recommendationHandler) Recommend(c *gin.Context) {
	var req recommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid recommendation request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "task_id and sprint_id are required"})
		return
	}

	task, err := h.taskRepo.GetTaskByID(req.TaskID)
	if err != nil {
		h.logger.Error("Failed to get task", zap.Int64("id", req.TaskID), zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	employeeIDs, err := h.recommender.Recommend(task, req.SprintID)
	if err != nil {
		h.logger.Error("Recommendation failed",
			zap.Int64("task_id", req.TaskID),
			zap.Int64("sprint_id", req.SprintID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build recommendations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task_id":      req.TaskID,
		"sprint_id":    req.SprintID,
		"employee_ids": employeeIDs,
	})
}
