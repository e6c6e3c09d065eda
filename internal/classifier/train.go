package classifier

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"tasktracker/internal/ml_models"
	"tasktracker/internal/models"
	"tasktracker/internal/registry"
)

// Corpus sizes that change the training recipe.
const (
	embeddingThreshold = 100 // examples needed before word embeddings are added
	largeCorpus        = 1000
)

// Retrain fits a new classifier on all labeled tasks and publishes the
// resulting artifact set. With fewer than MinSamples examples it returns
// models.ErrInsufficientData and leaves the active artifacts untouched.
func (c *Classifier) Retrain(ctx context.Context) error {
	tasks, err := c.tasks.LabeledTasks()
	if err != nil {
		return fmt.Errorf("load labeled tasks: %w", err)
	}
	if len(tasks) < c.cfg.MinSamples {
		c.logger.Info("Not enough samples for classifier training",
			zap.Int("samples", len(tasks)), zap.Int("min_samples", c.cfg.MinSamples))
		return models.ErrInsufficientData
	}

	labelByID, err := c.categoryNames()
	if err != nil {
		return err
	}

	var texts []string
	var labels []string
	for _, task := range tasks {
		name, ok := labelByID[*task.CategoryID]
		if !ok {
			continue
		}
		normalized, err := c.normalizer.Normalize(ctx, task.Text())
		if err != nil || normalized == "" {
			continue
		}
		texts = append(texts, normalized)
		labels = append(labels, name)
	}
	if len(texts) < c.cfg.MinSamples {
		return models.ErrInsufficientData
	}

	classes := uniqueSorted(labels)
	classIndex := make(map[string]int, len(classes))
	for i, class := range classes {
		classIndex[class] = i
	}
	y := make([]int, len(labels))
	for i, label := range labels {
		y[i] = classIndex[label]
	}

	vectorizer := ml_models.NewVectorizer(5000)
	if err := vectorizer.Fit(texts); err != nil {
		return fmt.Errorf("fit vectorizer: %w", err)
	}

	var embedding *ml_models.Embedding
	if len(texts) >= embeddingThreshold {
		embedding = ml_models.TrainEmbedding(texts, 100, 3)
	}

	rows := make([][]float64, len(texts))
	for i, text := range texts {
		rows[i] = vectorizer.Transform(text)
		if embedding != nil {
			rows[i] = append(rows[i], embedding.MeanVector(text)...)
		}
	}

	sampleWeights := balancedSampleWeights(y, len(classes))

	testFrac := 0.1
	if len(rows) > largeCorpus {
		testFrac = 0.2
	}
	trainIdx, testIdx := stratifiedSplit(y, testFrac)

	model := ml_models.NewLinearClassifier(classes)
	trainRows, trainY, trainW := gather(rows, y, sampleWeights, trainIdx)
	if err := model.Fit(trainRows, trainY, trainW, 100); err != nil {
		return fmt.Errorf("fit classifier: %w", err)
	}

	if len(testIdx) > 0 {
		correct := 0
		for _, i := range testIdx {
			label, _, err := model.PredictClass(rows[i])
			if err == nil && label == classes[y[i]] {
				correct++
			}
		}
		c.logger.Info("Classifier holdout evaluation",
			zap.Int("holdout", len(testIdx)),
			zap.Float64("accuracy", float64(correct)/float64(len(testIdx))))
	}

	artifacts := map[registry.Kind]interface{}{
		registry.KindClassifier: model,
		registry.KindVectorizer: vectorizer,
		registry.KindClasses:    classes,
	}
	if embedding != nil {
		artifacts[registry.KindEmbedding] = embedding
	}
	version := registry.TimestampVersion(time.Now())
	if err := c.registry.Publish(version, artifacts); err != nil {
		return fmt.Errorf("publish classifier artifacts: %w", err)
	}

	c.mu.Lock()
	c.model = model
	c.vectorizer = vectorizer
	c.embedding = embedding
	c.classes = classes
	c.trained = true
	c.mu.Unlock()
	c.resultCache.Clear()

	c.logger.Info("Classifier successfully retrained",
		zap.String("version", version),
		zap.Int("samples", len(texts)),
		zap.Int("classes", len(classes)))
	return nil
}

func (c *Classifier) categoryNames() (map[int64]string, error) {
	categories, err := c.categories.All()
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	names := make(map[int64]string, len(categories))
	for _, category := range categories {
		names[category.ID] = category.Name
	}
	return names, nil
}

// balancedSampleWeights assigns each example the weight
// n / (numClasses * count(class)).
func balancedSampleWeights(y []int, numClasses int) []float64 {
	counts := make([]int, numClasses)
	for _, class := range y {
		counts[class]++
	}
	weights := make([]float64, len(y))
	n := float64(len(y))
	for i, class := range y {
		weights[i] = n / (float64(numClasses) * float64(counts[class]))
	}
	return weights
}

// stratifiedSplit deterministically holds out roughly frac of the
// examples of every class.
func stratifiedSplit(y []int, frac float64) (train, test []int) {
	byClass := make(map[int][]int)
	for i, class := range y {
		byClass[class] = append(byClass[class], i)
	}

	classes := make([]int, 0, len(byClass))
	for class := range byClass {
		classes = append(classes, class)
	}
	sort.Ints(classes)

	for _, class := range classes {
		indices := byClass[class]
		holdout := int(float64(len(indices)) * frac)
		if holdout == 0 && len(indices) > 1 {
			holdout = 1
		}
		test = append(test, indices[:holdout]...)
		train = append(train, indices[holdout:]...)
	}
	return train, test
}

func gather(rows [][]float64, y []int, w []float64, idx []int) ([][]float64, []int, []float64) {
	outRows := make([][]float64, len(idx))
	outY := make([]int, len(idx))
	outW := make([]float64, len(idx))
	for i, j := range idx {
		outRows[i] = rows[j]
		outY[i] = y[j]
		outW[i] = w[j]
	}
	return outRows, outY, outW
}

func uniqueSorted(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	var out []string
	for _, label := range labels {
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}
