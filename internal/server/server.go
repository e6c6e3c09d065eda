package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"tasktracker/internal/events"
	"tasktracker/internal/handler"
	"tasktracker/internal/metrics"
	"tasktracker/internal/predictor"
	"tasktracker/internal/recommender"
	"tasktracker/internal/repository"
)

// Deps carries the wired application components the routes expose.
type Deps struct {
	TaskRepo    repository.TaskRepository
	Events      *events.Handler
	Worker      *events.Worker
	Predictor   *predictor.DurationPredictor
	Recommender *recommender.Recommender
	Logger      *zap.Logger
}

type Server struct {
	router *gin.Engine
	deps   Deps
	log    *logrus.Logger
}

func NewServer(deps Deps, log *logrus.Logger) *Server {
	router := gin.Default()

	s := &Server{
		router: router,
		deps:   deps,
		log:    log,
	}

	// Setup routes
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	taskHandler := handler.NewTaskHandler(s.deps.TaskRepo, s.deps.Events, s.deps.Predictor, s.deps.Logger)
	mlHandler := handler.NewMLHandler(s.deps.Events, s.deps.Logger)
	recommendationHandler := handler.NewRecommendationHandler(s.deps.TaskRepo, s.deps.Recommender, s.deps.Logger)
	eventHandler := handler.NewEventHandler(s.deps.Worker, s.deps.Logger)

	// Ping route for health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := s.router.Group("/api")
	{
		api.POST("/tasks/:id/assign-category", taskHandler.AssignCategory)
		api.POST("/tasks/:id/predict-duration", taskHandler.PredictDuration)
		api.POST("/recommendations", recommendationHandler.Recommend)

		api.POST("/ml/retrain", mlHandler.Retrain)
		api.POST("/ml/assign-categories", mlHandler.AssignCategories)

		api.POST("/events/task-saved", eventHandler.TaskSaved)
		api.POST("/events/task-completed", eventHandler.TaskCompleted)
	}
}

func (s *Server) Run(addr string) {
	s.log.Infof("Server starting on port %s...", addr)
	if err := s.router.Run(addr); err != nil {
		s.log.Fatalf("Server failed to start: %v", err)
	}
}
