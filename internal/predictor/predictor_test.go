package predictor

import (
	"context"
	"errors"
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

type fakeTaskStore struct {
	anchor    *time.Time
	anchorErr error
	updated   map[int64]float64
	updateErr error
}

func (f *fakeTaskStore) EarliestCompletedStart() (*time.Time, error) {
	return f.anchor, f.anchorErr
}

func (f *fakeTaskStore) UpdatePredictedDuration(taskID int64, hours float64) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.updated == nil {
		f.updated = make(map[int64]float64)
	}
	f.updated[taskID] = hours
	return nil
}

type fixedExtractor struct {
	vector feature.Vector
}

func (f fixedExtractor) Extract(*models.Task, *time.Time) feature.Vector {
	return f.vector
}

func testConfig() Config {
	return Config{TabularStatuses: []string{models.StatusPlanned, models.StatusRequiredCheck}}
}

// publishConstantTabular publishes a tabular model that predicts the
// given number of seconds for any input.
func publishConstantTabular(t *testing.T, reg *registry.Registry, seconds float64) {
	t.Helper()
	x := [][]float64{{1, 0, 0, 0}, {2, 1, 0, 0}, {3, 0, 1, 0}}
	y := []float64{seconds, seconds, seconds}

	model := ml_models.NewTabularRegressor()
	require.NoError(t, model.Fit(x, y, 5))
	require.NoError(t, reg.Publish("test", map[registry.Kind]interface{}{
		registry.KindTabular:      model,
		registry.KindPreprocessor: &ml_models.Preprocessor{},
	}))
}

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New(t.TempDir(), 3, time.Second, zap.NewNop())
	require.NoError(t, err)
	return reg
}

func TestPredictDurationTabularPath(t *testing.T) {
	reg := newTestRegistry(t)
	publishConstantTabular(t, reg, 3600)

	store := &fakeTaskStore{}
	p := New(store, fixedExtractor{}, reg, testConfig(), zap.NewNop())

	task := &models.Task{ID: 7, Status: models.StatusPlanned, Priority: models.PriorityHigh}
	hours := p.PredictDuration(context.Background(), task)

	require.NotNil(t, hours)
	assert.InDelta(t, 1.0, *hours, 1e-9)
	assert.InDelta(t, 1.0, store.updated[7], 1e-9)
}

func TestPredictDurationRoundsToOneDecimal(t *testing.T) {
	reg := newTestRegistry(t)
	publishConstantTabular(t, reg, 5550) // 1.5416… hours

	store := &fakeTaskStore{}
	p := New(store, fixedExtractor{}, reg, testConfig(), zap.NewNop())

	task := &models.Task{ID: 1, Status: models.StatusRequiredCheck}
	hours := p.PredictDuration(context.Background(), task)

	require.NotNil(t, hours)
	assert.InDelta(t, 1.5, *hours, 1e-9)
}

func TestPredictDurationMissingTabularModel(t *testing.T) {
	reg := newTestRegistry(t)
	store := &fakeTaskStore{}
	p := New(store, fixedExtractor{}, reg, testConfig(), zap.NewNop())

	task := &models.Task{ID: 1, Status: models.StatusPlanned}
	assert.Nil(t, p.PredictDuration(context.Background(), task))
	assert.Empty(t, store.updated)
}

func TestPredictDurationSequencePath(t *testing.T) {
	reg := newTestRegistry(t)

	windows := make([][][]float64, 12)
	targets := make([]float64, 12)
	for i := range windows {
		windows[i] = [][]float64{{1, 0, 0, 0, 0}, {1, 0, 0, 0, 0}}
		targets[i] = 7200
	}
	sequence := ml_models.NewSequenceRegressor(feature.Size)
	require.NoError(t, sequence.Fit(windows, targets, 100))
	require.NoError(t, reg.Publish("test", map[registry.Kind]interface{}{
		registry.KindSequence: sequence,
	}))

	anchor := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeTaskStore{anchor: &anchor}
	p := New(store, fixedExtractor{vector: feature.Vector{1, 0, 0, 0, 0}}, reg, testConfig(), zap.NewNop())

	task := &models.Task{ID: 2, Status: models.StatusActive}
	hours := p.PredictDuration(context.Background(), task)

	require.NotNil(t, hours)
	assert.InDelta(t, 2.0, *hours, 0.1)
	assert.Contains(t, store.updated, int64(2))
}

func TestPredictDurationSequenceNoAnchor(t *testing.T) {
	reg := newTestRegistry(t)

	sequence := ml_models.NewSequenceRegressor(feature.Size)
	windows := [][][]float64{
		{{1, 0, 0, 0, 0}},
		{{1, 0, 0, 0, 0}},
	}
	require.NoError(t, sequence.Fit(windows, []float64{100, 100}, 10))
	require.NoError(t, reg.Publish("test", map[registry.Kind]interface{}{
		registry.KindSequence: sequence,
	}))

	store := &fakeTaskStore{anchor: nil}
	p := New(store, fixedExtractor{}, reg, testConfig(), zap.NewNop())

	task := &models.Task{ID: 3, Status: models.StatusActive}
	assert.Nil(t, p.PredictDuration(context.Background(), task))
	assert.Empty(t, store.updated)
}

func TestPredictDurationPersistFailure(t *testing.T) {
	reg := newTestRegistry(t)
	publishConstantTabular(t, reg, 3600)

	store := &fakeTaskStore{updateErr: errors.New("connection lost")}
	p := New(store, fixedExtractor{}, reg, testConfig(), zap.NewNop())

	task := &models.Task{ID: 4, Status: models.StatusPlanned}
	assert.Nil(t, p.PredictDuration(context.Background(), task))
}

func TestPredictDurationNegativeClampedToZero(t *testing.T) {
	reg := newTestRegistry(t)
	publishConstantTabular(t, reg, -500)

	store := &fakeTaskStore{}
	p := New(store, fixedExtractor{}, reg, testConfig(), zap.NewNop())

	task := &models.Task{ID: 5, Status: models.StatusPlanned}
	hours := p.PredictDuration(context.Background(), task)

	require.NotNil(t, hours)
	assert.Zero(t, *hours)
}
