package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tasktracker/internal/events"
)

type MLHandler interface {
	Retrain(c *gin.Context)
	AssignCategories(c *gin.Context)
}

type mlHandler struct {
	events *events.Handler
	logger *zap.Logger
}

func NewMLHandler(ev *events.Handler, logger *zap.Logger) MLHandler {
	return &mlHandler{events: ev, logger: logger}
}

// Retrain handles POST /api/ml/retrain
func (h *mlHandler) Retrain(c *gin.Context) {
	outcome := h.events.Retrain(c.Request.Context())
	c.JSON(http.StatusOK, outcome)
}

// AssignCategories handles POST /api/ml/assign-categories
func (h *mlHandler) AssignCategories(c *gin.Context) {
	assigned, err := h.events.AssignCategories(c.Request.Context())
	if err != nil {
		h.logger.Error("Batch category assignment failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign categories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"assigned": assigned})
}
