package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"tasktracker/internal/events"
)

func newEventRouter(queueSize int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	// The worker is never run here, so a nil pipeline handler is fine:
	// these tests only exercise enqueueing.
	worker := events.NewWorker(nil, nil, queueSize, logger)
	h := NewEventHandler(worker, logger)

	router := gin.New()
	router.POST("/api/events/task-saved", h.TaskSaved)
	router.POST("/api/events/task-completed", h.TaskCompleted)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestTaskSavedAccepted(t *testing.T) {
	router := newEventRouter(4)

	w := postJSON(router, "/api/events/task-saved", `{"task_id": 7, "is_new": true}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"task_id":7`)
}

func TestTaskSavedMissingTaskID(t *testing.T) {
	router := newEventRouter(4)

	w := postJSON(router, "/api/events/task-saved", `{"is_new": true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTaskCompletedAccepted(t *testing.T) {
	router := newEventRouter(4)

	w := postJSON(router, "/api/events/task-completed", `{"task_id": 3}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestTaskEventQueueFull(t *testing.T) {
	router := newEventRouter(1)

	first := postJSON(router, "/api/events/task-completed", `{"task_id": 1}`)
	assert.Equal(t, http.StatusAccepted, first.Code)

	second := postJSON(router, "/api/events/task-completed", `{"task_id": 2}`)
	assert.Equal(t, http.StatusServiceUnavailable, second.Code)
}

func TestTaskCompletedMalformedBody(t *testing.T) {
	router := newEventRouter(4)

	w := postJSON(router, "/api/events/task-completed", `{`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
