package trainer

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tasktracker/internal/feature"
	"tasktracker/internal/ml_models"
	"tasktracker/internal/models"
	"tasktracker/internal/registry"
)

type fakeTaskSource struct {
	tasks []models.CompletedTask
	err   error
}

func (f *fakeTaskSource) CompletedTasks() ([]models.CompletedTask, error) {
	return f.tasks, f.err
}

type loadExtractor struct{}

// Extract derives a deterministic vector from the task so different
// tasks produce different rows.
func (loadExtractor) Extract(task *models.Task, baseTime *time.Time) feature.Vector {
	var v feature.Vector
	v[feature.PriorityWeight] = float64(models.PriorityWeight(task.Priority))
	v[feature.DescriptionLength] = float64(len(task.Description))
	if baseTime != nil && task.StartTime != nil {
		v[feature.TimeOffset] = task.StartTime.Sub(*baseTime).Seconds()
	}
	return v
}

func completedTasks(n int) []models.CompletedTask {
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	tasks := make([]models.CompletedTask, n)
	for i := range tasks {
		start := base.Add(time.Duration(i) * 24 * time.Hour)
		duration := float64(1800 + 600*(i%5))
		end := start.Add(time.Duration(duration) * time.Second)
		priority := models.PriorityLow
		if i%2 == 0 {
			priority = models.PriorityHigh
		}
		tasks[i] = models.CompletedTask{
			Task: models.Task{
				ID:          int64(i + 1),
				Name:        "task",
				Description: strings.Repeat("x", 10+i),
				Status:      models.StatusCompleted,
				Priority:    priority,
				StartTime:   &start,
				EndTime:     &end,
			},
			DurationSec: duration,
		}
	}
	return tasks
}

func newTestTrainer(t *testing.T, tasks *fakeTaskSource, minSamples int) (*Trainer, *registry.Registry) {
	t.Helper()
	reg, err := registry.New(t.TempDir(), 3, time.Second, zap.NewNop())
	require.NoError(t, err)

	cfg := Config{MinSamples: minSamples, Timesteps: 3}
	return New(tasks, loadExtractor{}, reg, cfg, zap.NewNop()), reg
}

func TestTrainSuccess(t *testing.T) {
	tr, reg := newTestTrainer(t, &fakeTaskSource{tasks: completedTasks(20)}, 10)

	result := tr.Train()
	assert.Equal(t, StatusSuccess, result.Status)
	assert.NotEmpty(t, result.Version)
	assert.Equal(t, 20, result.Samples)
	require.NotNil(t, result.MSE)
	require.NotNil(t, result.MAE)
	assert.True(t, result.SequenceTrained)

	assert.True(t, reg.Has(registry.KindTabular))
	assert.True(t, reg.Has(registry.KindPreprocessor))
	assert.True(t, reg.Has(registry.KindSequence))

	var model ml_models.TabularRegressor
	require.NoError(t, reg.Load(registry.KindTabular, &model))
	var preprocessor ml_models.Preprocessor
	require.NoError(t, reg.Load(registry.KindPreprocessor, &preprocessor))

	row, err := preprocessor.Transform(TabularInput(feature.Vector{4, 0, 0, 20, 0}))
	require.NoError(t, err)
	pred, err := model.Predict(row)
	require.NoError(t, err)
	// Training durations range from 1800 to 4200 seconds.
	assert.Greater(t, pred, 1000.0)
	assert.Less(t, pred, 5000.0)
}

func TestTrainInsufficientDataPublishesFallback(t *testing.T) {
	tr, reg := newTestTrainer(t, &fakeTaskSource{tasks: completedTasks(3)}, 10)

	result := tr.Train()
	assert.Equal(t, StatusWarning, result.Status)
	assert.Equal(t, "not enough data", result.Message)
	assert.Equal(t, registry.VersionFallback, result.Version)

	version, err := reg.ActiveVersion(registry.KindTabular)
	require.NoError(t, err)
	assert.Equal(t, registry.VersionFallback, version)
}

func TestTrainInsufficientDataKeepsExistingModel(t *testing.T) {
	source := &fakeTaskSource{tasks: completedTasks(20)}
	tr, reg := newTestTrainer(t, source, 10)

	first := tr.Train()
	require.Equal(t, StatusSuccess, first.Status)

	// History shrinks below the threshold; the published model stays.
	source.tasks = completedTasks(2)
	second := tr.Train()
	assert.Equal(t, StatusWarning, second.Status)
	assert.Empty(t, second.Version)

	version, err := reg.ActiveVersion(registry.KindTabular)
	require.NoError(t, err)
	assert.Equal(t, first.Version, version)
}

func TestTrainSourceFailure(t *testing.T) {
	tr, reg := newTestTrainer(t, &fakeTaskSource{err: errors.New("db down")}, 10)

	result := tr.Train()
	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Message, "db down")

	// A failed first run still leaves a usable fallback model.
	assert.True(t, reg.Has(registry.KindTabular))
}

func TestTrainSkipsSequenceWithFewSamples(t *testing.T) {
	// Enough for tabular training but not for a single window.
	tr, _ := newTestTrainer(t, &fakeTaskSource{tasks: completedTasks(3)}, 3)

	result := tr.Train()
	assert.Equal(t, StatusSuccess, result.Status)
	assert.False(t, result.SequenceTrained)
}

func TestFallbackModelsDeterministic(t *testing.T) {
	tr, reg := newTestTrainer(t, &fakeTaskSource{}, 10)

	require.NoError(t, tr.CreateFallbackModels())
	var first ml_models.TabularRegressor
	require.NoError(t, reg.Load(registry.KindTabular, &first))

	require.NoError(t, tr.CreateFallbackModels())
	var second ml_models.TabularRegressor
	require.NoError(t, reg.Load(registry.KindTabular, &second))

	assert.Equal(t, first, second)
}

func TestTabularInputScaling(t *testing.T) {
	v := feature.Vector{4, 2, 7200, 500, 86400}

	got := TabularInput(v)
	assert.Equal(t, []float64{4, 2, 2, 0.5}, got)

	step := SequenceStep(v)
	assert.Equal(t, []float64{4, 2, 2, 0.5, 1}, step)
}
