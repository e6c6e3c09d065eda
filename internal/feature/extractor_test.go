package feature

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tasktracker/internal/models"
)

type fakeTaskSource struct {
	load     int
	loadErr  error
	avg      float64
	avgErr   error
	avgCalls int
}

func (f *fakeTaskSource) FirstExecutorLoad(taskID int64) (int, error) {
	return f.load, f.loadErr
}

func (f *fakeTaskSource) CategoryAvgDurationSeconds(categoryIDs []int64) (float64, error) {
	f.avgCalls++
	return f.avg, f.avgErr
}

func TestExtractVector(t *testing.T) {
	src := &fakeTaskSource{load: 2, avg: 7200}
	e := NewExtractor(src, time.Minute, zap.NewNop())

	categoryID := int64(5)
	task := &models.Task{
		ID:          1,
		Priority:    models.PriorityHigh,
		Status:      models.StatusPlanned,
		Description: "fix the login bug",
		CategoryID:  &categoryID,
	}

	v := e.Extract(task, nil)
	assert.Equal(t, 4.0, v[PriorityWeight])
	assert.Equal(t, 2.0, v[CurrentLoad])
	assert.Equal(t, 7200.0, v[CategoryAvgDuration])
	assert.Equal(t, 17.0, v[DescriptionLength])
	assert.Zero(t, v[TimeOffset])
}

func TestExtractDescriptionLengthInCharacters(t *testing.T) {
	src := &fakeTaskSource{}
	e := NewExtractor(src, time.Minute, zap.NewNop())

	// 22 characters, 42 bytes in UTF-8.
	task := &models.Task{
		ID:          1,
		Priority:    models.PriorityHigh,
		Description: "исправить ошибку входа",
	}

	v := e.Extract(task, nil)
	assert.Equal(t, 22.0, v[DescriptionLength])
}

func TestExtractTimeOffset(t *testing.T) {
	src := &fakeTaskSource{}
	e := NewExtractor(src, time.Minute, zap.NewNop())

	anchor := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	start := anchor.Add(2 * time.Hour)
	task := &models.Task{ID: 1, Priority: models.PriorityLow, StartTime: &start}

	v := e.Extract(task, &anchor)
	assert.Equal(t, 7200.0, v[TimeOffset])

	// Without an anchor the offset is zero even when the start is set.
	v = e.Extract(task, nil)
	assert.Zero(t, v[TimeOffset])
}

func TestExtractNoCategorySkipsAggregate(t *testing.T) {
	src := &fakeTaskSource{load: 1}
	e := NewExtractor(src, time.Minute, zap.NewNop())

	task := &models.Task{ID: 1, Priority: models.PriorityMedium}
	v := e.Extract(task, nil)

	assert.Equal(t, 3.0, v[PriorityWeight])
	assert.Zero(t, v[CategoryAvgDuration])
	assert.Zero(t, src.avgCalls)
}

func TestExtractFailureYieldsZeroVector(t *testing.T) {
	src := &fakeTaskSource{loadErr: errors.New("connection refused")}
	e := NewExtractor(src, time.Minute, zap.NewNop())

	task := &models.Task{ID: 1, Priority: models.PriorityHigh, Description: "text"}
	assert.Equal(t, Vector{}, e.Extract(task, nil))
}

func TestCategoryAvgDurationCached(t *testing.T) {
	src := &fakeTaskSource{avg: 1800}
	e := NewExtractor(src, time.Minute, zap.NewNop())

	first, err := e.CategoryAvgDuration(3)
	require.NoError(t, err)
	assert.Equal(t, 1800.0, first)

	// The source changes but the cached aggregate is still served.
	src.avg = 9999
	second, err := e.CategoryAvgDuration(3)
	require.NoError(t, err)
	assert.Equal(t, 1800.0, second)
	assert.Equal(t, 1, src.avgCalls)
}

func TestCategoryAvgDurationKeyOrderInsensitive(t *testing.T) {
	src := &fakeTaskSource{avg: 600}
	e := NewExtractor(src, time.Minute, zap.NewNop())

	_, err := e.CategoryAvgDuration(2, 1)
	require.NoError(t, err)
	_, err = e.CategoryAvgDuration(1, 2)
	require.NoError(t, err)

	assert.Equal(t, 1, src.avgCalls, "same id set must share one cache entry")
}

func TestVectorSlice(t *testing.T) {
	v := Vector{1, 2, 3, 4, 5}
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, v.Slice())
}
