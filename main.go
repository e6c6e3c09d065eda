package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"tasktracker/internal/classifier"
	"tasktracker/internal/config"
	"tasktracker/internal/events"
	"tasktracker/internal/feature"
	"tasktracker/internal/predictor"
	"tasktracker/internal/recommender"
	"tasktracker/internal/registry"
	"tasktracker/internal/repository"
	"tasktracker/internal/server"
	"tasktracker/internal/text_processing"
	"tasktracker/internal/trainer"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err) // Should not happen in development
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	// Load configuration
	cfgPath := "configs/config.yml"
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Database connection
	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	repository.MigrateDB(db, logger)

	// Text normalization backend
	var normalizer text_processing.Normalizer
	if cfg.NLP.Mode == "http" {
		normalizer = text_processing.NewClient(cfg.NLP.URL)
		logger.Info("Using NLP service for text normalization", zap.String("url", cfg.NLP.URL))
	} else {
		normalizer = text_processing.NewBuiltinNormalizer()
		logger.Info("Using builtin text normalization")
	}

	// Initialize repositories
	taskRepo := repository.NewTaskRepository(db, logger)
	categoryRepo := repository.NewCategoryRepository(db, normalizer, logger)
	employeeRepo := repository.NewEmployeeRepository(db, logger)

	// Model artifact registry
	reg, err := registry.New(cfg.ML.ModelsDir, cfg.ML.KeepModelVersions,
		time.Duration(cfg.ML.PublishLockWaitSeconds)*time.Second, logger)
	if err != nil {
		logger.Fatal("Failed to open model registry", zap.Error(err))
	}

	// Feature extraction with the shared average-duration cache
	extractor := feature.NewExtractor(taskRepo,
		time.Duration(cfg.ML.AvgDurationCacheSeconds)*time.Second, logger)

	// Duration models: train once at startup when nothing is published yet
	durationTrainer := trainer.New(taskRepo, extractor, reg, trainer.Config{
		MinSamples: cfg.ML.MinSamples,
		Timesteps:  cfg.ML.LSTMTimesteps,
	}, logger)
	if !reg.Has(registry.KindTabular) {
		logger.Info("No duration model published, running bootstrap training")
		result := durationTrainer.Train()
		logger.Info("Bootstrap training finished",
			zap.String("status", result.Status),
			zap.String("message", result.Message))
	}

	// Category classifier
	cls, err := classifier.New(normalizer, categoryRepo, taskRepo, reg, classifier.Config{
		KeywordRefreshInterval: time.Duration(cfg.ML.KeywordRefreshSeconds) * time.Second,
		ResultCacheTTL:         time.Duration(cfg.ML.CategoryCacheSeconds) * time.Second,
		MinSamples:             cfg.ML.MinSamples,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize classifier", zap.Error(err))
	}

	durationPredictor := predictor.New(taskRepo, extractor, reg, predictor.Config{
		TabularStatuses: cfg.ML.TabularStatuses,
	}, logger)

	rec := recommender.New(employeeRepo, extractor, reg, recommender.Config{
		TopN:        cfg.Recommend.TopN,
		TimeWeight:  cfg.Recommend.Weights.Time,
		LoadWeight:  cfg.Recommend.Weights.Load,
		SkillWeight: cfg.Recommend.Weights.Skill,
	}, logger)

	eventsHandler := events.NewHandler(taskRepo, categoryRepo, cls, durationPredictor, durationTrainer, logger)
	worker := events.NewWorker(eventsHandler, taskRepo, 64, logger)

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Reload the classifier whenever another process publishes models
	go func() {
		if err := reg.Watch(ctx, cls.Reload); err != nil {
			logger.Error("Model registry watch failed", zap.Error(err))
		}
	}()

	// Run event worker in a goroutine
	go worker.Run(ctx)

	// Initialize and run the server
	log := logrus.New()
	srv := server.NewServer(server.Deps{
		TaskRepo:    taskRepo,
		Events:      eventsHandler,
		Worker:      worker,
		Predictor:   durationPredictor,
		Recommender: rec,
		Logger:      logger,
	}, log)
	srv.Run(cfg.Server.Port)

	<-ctx.Done()
	logger.Info("Application stopped.")
}
