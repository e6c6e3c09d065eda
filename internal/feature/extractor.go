// Package feature computes the fixed-length numeric representation of a
// task consumed by the duration models.
package feature

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"tasktracker/internal/cache"
	"tasktracker/internal/models"
)

// Vector positions.
const (
	PriorityWeight = iota
	CurrentLoad
	CategoryAvgDuration
	DescriptionLength
	TimeOffset
	Size
)

// Vector is the ordered feature 5-tuple
// [priority_weight, current_load, category_avg_duration_seconds,
// description_length, time_offset_seconds].
type Vector [Size]float64

// Slice returns the vector as a mutable slice.
func (v Vector) Slice() []float64 {
	out := make([]float64, Size)
	copy(out, v[:])
	return out
}

// TaskSource is the slice of task persistence the extractor needs.
type TaskSource interface {
	FirstExecutorLoad(taskID int64) (int, error)
	CategoryAvgDurationSeconds(categoryIDs []int64) (float64, error)
}

// Extractor builds feature vectors. Category duration aggregates are
// cached with a time-based TTL; staleness up to the TTL is acceptable,
// there is no write-through invalidation on new completions.
type Extractor struct {
	tasks    TaskSource
	avgCache *cache.TTLCache[float64]
	group    singleflight.Group
	logger   *zap.Logger
}

// NewExtractor creates an extractor with the given aggregate cache TTL.
func NewExtractor(tasks TaskSource, avgDurationTTL time.Duration, logger *zap.Logger) *Extractor {
	return &Extractor{
		tasks:    tasks,
		avgCache: cache.New[float64](1024, avgDurationTTL),
		logger:   logger,
	}
}

// Extract computes the feature vector for a task. baseTime anchors the
// time offset; pass nil for a zero offset. Any internal failure yields a
// zero vector so one bad task never aborts a batch pass.
func (e *Extractor) Extract(task *models.Task, baseTime *time.Time) Vector {
	var v Vector

	load, err := e.tasks.FirstExecutorLoad(task.ID)
	if err != nil {
		e.logger.Warn("Feature extraction failed, returning zero vector",
			zap.Int64("task_id", task.ID), zap.Error(err))
		return Vector{}
	}

	var categoryAvg float64
	if task.CategoryID != nil {
		categoryAvg, err = e.CategoryAvgDuration(*task.CategoryID)
		if err != nil {
			e.logger.Warn("Feature extraction failed, returning zero vector",
				zap.Int64("task_id", task.ID), zap.Error(err))
			return Vector{}
		}
	}

	v[PriorityWeight] = float64(models.PriorityWeight(task.Priority))
	v[CurrentLoad] = float64(load)
	v[CategoryAvgDuration] = categoryAvg
	v[DescriptionLength] = float64(task.DescriptionChars())
	if baseTime != nil && task.StartTime != nil {
		v[TimeOffset] = task.StartTime.Sub(*baseTime).Seconds()
	}
	return v
}

// CategoryAvgDuration returns the mean completion duration in seconds
// over completed tasks in the given categories. Cached for the TTL under
// a sorted-category-id key; concurrent misses for the same key share one
// database query.
func (e *Extractor) CategoryAvgDuration(categoryIDs ...int64) (float64, error) {
	if len(categoryIDs) == 0 {
		return 0, nil
	}

	key := avgDurationKey(categoryIDs)
	if avg, ok := e.avgCache.Get(key); ok {
		return avg, nil
	}

	value, err, _ := e.group.Do(key, func() (interface{}, error) {
		avg, err := e.tasks.CategoryAvgDurationSeconds(categoryIDs)
		if err != nil {
			return 0.0, err
		}
		e.avgCache.Set(key, avg)
		return avg, nil
	})
	if err != nil {
		return 0, err
	}
	return value.(float64), nil
}

func avgDurationKey(categoryIDs []int64) string {
	ids := append([]int64(nil), categoryIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("avg_duration:%s", strings.Join(parts, "-"))
}
