// Package classifier assigns task categories from free text: keyword
// matching first, a trained linear model second, the default category as
// the last resort. The classifier is always callable; a missing model is
// replaced by a synthetic fallback at construction time.
package classifier

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"tasktracker/internal/cache"
	"tasktracker/internal/metrics"
	"tasktracker/internal/ml_models"
	"tasktracker/internal/models"
	"tasktracker/internal/registry"
	"tasktracker/internal/text_processing"
)

// DefaultCategory is the label every prediction path degrades to.
const DefaultCategory = "Other"

// CategorySource is the slice of category persistence the classifier
// needs.
type CategorySource interface {
	All() ([]models.Category, error)
	KeywordCategories() ([]models.Category, error)
}

// TaskSource provides the labeled examples for retraining.
type TaskSource interface {
	LabeledTasks() ([]models.Task, error)
}

// Config tunes cache and training behavior.
type Config struct {
	KeywordRefreshInterval time.Duration
	ResultCacheTTL         time.Duration
	MinSamples             int
}

// Classifier predicts a category label for task text.
type Classifier struct {
	normalizer text_processing.Normalizer
	categories CategorySource
	tasks      TaskSource
	registry   *registry.Registry
	cfg        Config
	logger     *zap.Logger

	mu                 sync.Mutex
	model              *ml_models.LinearClassifier
	vectorizer         *ml_models.Vectorizer
	embedding          *ml_models.Embedding
	classes            []string
	trained            bool
	keywordCategories  []models.Category
	lastKeywordRefresh time.Time

	resultCache *cache.TTLCache[string]
}

// New constructs a classifier. The text normalizer must be reachable;
// its absence is a deployment error and the only construction failure.
// Missing model artifacts are repaired with a synthetic fallback model.
func New(
	normalizer text_processing.Normalizer,
	categories CategorySource,
	tasks TaskSource,
	reg *registry.Registry,
	cfg Config,
	logger *zap.Logger,
) (*Classifier, error) {
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := normalizer.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("text normalizer unavailable: %w", err)
	}

	c := &Classifier{
		normalizer:  normalizer,
		categories:  categories,
		tasks:       tasks,
		registry:    reg,
		cfg:         cfg,
		logger:      logger,
		classes:     []string{DefaultCategory},
		resultCache: cache.New[string](4096, cfg.ResultCacheTTL),
	}

	if err := c.refreshKeywords(); err != nil {
		logger.Warn("Failed to load category keywords", zap.Error(err))
	}
	c.initializeModel()
	return c, nil
}

// Trained reports whether the active model was produced by real
// training data.
func (c *Classifier) Trained() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trained
}

// Reload re-reads the active artifact set after a publish.
func (c *Classifier) Reload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadArtifactsLocked(); err != nil {
		c.logger.Warn("Classifier reload failed, keeping current model", zap.Error(err))
		return
	}
	c.trained = c.trainedVersionLocked()
	c.resultCache.Clear()
	c.logger.Info("Classifier artifacts reloaded")
}

// trainedVersionLocked reports whether the active classifier artifacts
// come from a real training run. The watcher also fires on the
// classifier's own initial publish, so the active version decides, not
// the load outcome.
func (c *Classifier) trainedVersionLocked() bool {
	version, err := c.registry.ActiveVersion(registry.KindClassifier)
	if err != nil {
		return false
	}
	return version != registry.VersionInitial && version != registry.VersionFallback
}

// PredictCategory returns a category label for the text. It never
// returns an error: every failure degrades to the default category and
// increments the error counter.
func (c *Classifier) PredictCategory(ctx context.Context, text string) string {
	cacheKey := resultCacheKey(text)
	if cached, ok := c.resultCache.Get(cacheKey); ok {
		return cached
	}

	label, cacheable, err := c.predict(ctx, text)
	if err != nil {
		metrics.PredictionErrors.Inc()
		c.logger.Warn("Category prediction failed, using default category", zap.Error(err))
		return DefaultCategory
	}
	if cacheable {
		c.resultCache.Set(cacheKey, label)
	}
	return label
}

func (c *Classifier) predict(ctx context.Context, text string) (string, bool, error) {
	normalized, err := c.normalizer.Normalize(ctx, text)
	if err != nil {
		return "", false, fmt.Errorf("normalize text: %w", err)
	}
	lemmas := LemmaSet(normalized)

	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Since(c.lastKeywordRefresh) > c.cfg.KeywordRefreshInterval {
		if err := c.refreshKeywordsLocked(); err != nil {
			c.logger.Warn("Keyword refresh failed, using cached keywords", zap.Error(err))
		}
	}

	if category, ok := MatchKeywords(lemmas, c.keywordCategories); ok {
		return category.Name, true, nil
	}

	// With nothing but the default class and no trained model there is
	// nothing to score against. Cacheable like any computed result:
	// Retrain and Reload clear the cache.
	if len(c.classes) == 1 && !c.trained {
		return DefaultCategory, true, nil
	}

	if c.model == nil || c.vectorizer == nil {
		return "", false, fmt.Errorf("no usable classifier model")
	}

	row := c.vectorizer.Transform(normalized)
	if c.embedding != nil {
		row = append(row, c.embedding.MeanVector(normalized)...)
	}

	label, score, err := c.model.PredictClass(row)
	if err != nil {
		return "", false, fmt.Errorf("score text: %w", err)
	}
	metrics.PredictionConfidence.Set(score)
	return label, true, nil
}

func (c *Classifier) initializeModel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadArtifactsLocked(); err != nil {
		c.logger.Warn("Models not found, initializing default", zap.Error(err))
		if err := c.createInitialModelLocked(); err != nil {
			c.logger.Error("Failed to create initial model", zap.Error(err))
		}
		c.trained = false
		return
	}
	c.trained = c.trainedVersionLocked()
}

func (c *Classifier) loadArtifactsLocked() error {
	var model ml_models.LinearClassifier
	if err := c.registry.Load(registry.KindClassifier, &model); err != nil {
		return err
	}
	var vectorizer ml_models.Vectorizer
	if err := c.registry.Load(registry.KindVectorizer, &vectorizer); err != nil {
		return err
	}
	var classes []string
	if err := c.registry.Load(registry.KindClasses, &classes); err != nil {
		return err
	}

	var embedding *ml_models.Embedding
	if c.registry.Has(registry.KindEmbedding) {
		embedding = &ml_models.Embedding{}
		if err := c.registry.Load(registry.KindEmbedding, embedding); err != nil {
			c.logger.Warn("Failed to load embedding artifact, continuing without it", zap.Error(err))
			embedding = nil
		}
	}

	c.model = &model
	c.vectorizer = &vectorizer
	c.classes = classes
	c.embedding = embedding
	return nil
}

// createInitialModelLocked builds a minimal model from one synthetic
// example per known category so the classifier is never left without a
// scorable model.
func (c *Classifier) createInitialModelLocked() error {
	categories, err := c.categories.All()
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}

	names := make([]string, 0, len(categories)+1)
	hasDefault := false
	for _, category := range categories {
		names = append(names, category.Name)
		if category.Name == DefaultCategory {
			hasDefault = true
		}
	}
	if !hasDefault {
		names = append(names, DefaultCategory)
	}
	c.classes = names

	if len(names) <= 1 {
		c.logger.Info("Only default category exists, skipping model creation")
		return nil
	}

	texts := make([]string, len(names))
	labels := make([]int, len(names))
	for i, name := range names {
		normalized, err := c.normalizer.Normalize(context.Background(), "Sample task for category "+name)
		if err != nil {
			return fmt.Errorf("normalize synthetic example: %w", err)
		}
		texts[i] = normalized
		labels[i] = i
	}

	vectorizer := ml_models.NewVectorizer(5000)
	if err := vectorizer.Fit(texts); err != nil {
		return fmt.Errorf("fit initial vectorizer: %w", err)
	}

	rows := make([][]float64, len(texts))
	for i, text := range texts {
		rows[i] = vectorizer.Transform(text)
	}

	model := ml_models.NewLinearClassifier(names)
	if err := model.Fit(rows, labels, nil, 50); err != nil {
		return fmt.Errorf("fit initial model: %w", err)
	}

	c.model = model
	c.vectorizer = vectorizer
	c.embedding = nil

	artifacts := map[registry.Kind]interface{}{
		registry.KindClassifier: model,
		registry.KindVectorizer: vectorizer,
		registry.KindClasses:    names,
	}
	if err := c.registry.Publish(registry.VersionInitial, artifacts); err != nil {
		c.logger.Warn("Failed to persist initial model, keeping it in memory", zap.Error(err))
	} else {
		c.logger.Info("Initial model created successfully")
	}
	return nil
}

func (c *Classifier) refreshKeywords() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshKeywordsLocked()
}

func (c *Classifier) refreshKeywordsLocked() error {
	categories, err := c.categories.KeywordCategories()
	if err != nil {
		return err
	}
	c.keywordCategories = categories
	c.lastKeywordRefresh = time.Now()
	return nil
}

func resultCacheKey(text string) string {
	h := fnv.New64a()
	h.Write([]byte(text))
	return fmt.Sprintf("category:%x", h.Sum64())
}
