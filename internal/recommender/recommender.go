// Package recommender ranks project employees as candidates for a task
// by combining the predicted completion time, the candidate's current
// load, and their experience with the task's category.
package recommender

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"tasktracker/internal/feature"
	"tasktracker/internal/ml_models"
	"tasktracker/internal/models"
	"tasktracker/internal/registry"
	"tasktracker/internal/trainer"
)

// EmployeeSource supplies candidates and their track record.
type EmployeeSource interface {
	ByProject(projectID int64) ([]models.Employee, error)
	ProjectBySprint(sprintID int64) (int64, error)
	ExperiencedEmployeeIDs(projectID, categoryID int64) ([]int64, error)
}

// AvgDurationSource supplies the historical category average used in
// candidate feature vectors.
type AvgDurationSource interface {
	CategoryAvgDuration(categoryIDs ...int64) (float64, error)
}

// Config tunes candidate scoring. Lower scores rank higher.
type Config struct {
	TopN        int
	TimeWeight  float64
	LoadWeight  float64
	SkillWeight float64
}

// Recommender scores employees for a task within a sprint's project.
type Recommender struct {
	employees EmployeeSource
	durations AvgDurationSource
	registry  *registry.Registry
	cfg       Config
	logger    *zap.Logger
}

func New(employees EmployeeSource, durations AvgDurationSource, reg *registry.Registry, cfg Config, logger *zap.Logger) *Recommender {
	return &Recommender{
		employees: employees,
		durations: durations,
		registry:  reg,
		cfg:       cfg,
		logger:    logger,
	}
}

type candidate struct {
	employeeID int64
	score      float64
}

// Recommend returns up to TopN employee ids for the task, best first.
func (r *Recommender) Recommend(task *models.Task, sprintID int64) ([]int64, error) {
	projectID, err := r.employees.ProjectBySprint(sprintID)
	if err != nil {
		return nil, fmt.Errorf("resolve sprint project: %w", err)
	}

	employees, err := r.employees.ByProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("load project employees: %w", err)
	}
	if len(employees) == 0 {
		return nil, nil
	}

	experienced := make(map[int64]struct{})
	var categoryAvg float64
	if task.CategoryID != nil {
		ids, err := r.employees.ExperiencedEmployeeIDs(projectID, *task.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("load experienced employees: %w", err)
		}
		for _, id := range ids {
			experienced[id] = struct{}{}
		}

		if avg, err := r.durations.CategoryAvgDuration(*task.CategoryID); err == nil {
			categoryAvg = avg
		} else {
			r.logger.Warn("Failed to load category average duration",
				zap.Int64("category_id", *task.CategoryID), zap.Error(err))
		}
	}

	var model ml_models.TabularRegressor
	if err := r.registry.Load(registry.KindTabular, &model); err != nil {
		return nil, fmt.Errorf("load duration model: %w", err)
	}
	var preprocessor ml_models.Preprocessor
	if err := r.registry.Load(registry.KindPreprocessor, &preprocessor); err != nil {
		return nil, fmt.Errorf("load preprocessor: %w", err)
	}

	candidates := make([]candidate, 0, len(employees))
	for _, emp := range employees {
		hours, err := r.estimateHours(&model, &preprocessor, task, emp.CurrentLoad, categoryAvg)
		if err != nil {
			r.logger.Warn("Candidate duration estimate failed",
				zap.Int64("employee_id", emp.ID), zap.Error(err))
			continue
		}

		skillPenalty := 1.0
		if _, ok := experienced[emp.ID]; ok {
			skillPenalty = 0
		}

		score := r.cfg.TimeWeight*hours +
			r.cfg.LoadWeight*float64(emp.CurrentLoad) +
			r.cfg.SkillWeight*skillPenalty
		candidates = append(candidates, candidate{employeeID: emp.ID, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score < candidates[j].score
	})

	topN := r.cfg.TopN
	if topN > len(candidates) {
		topN = len(candidates)
	}
	result := make([]int64, 0, topN)
	for _, c := range candidates[:topN] {
		result = append(result, c.employeeID)
	}
	return result, nil
}

// estimateHours predicts the completion time for the task as if the
// candidate executed it: their load replaces the assignee load and the
// time offset is zero.
func (r *Recommender) estimateHours(model *ml_models.TabularRegressor, preprocessor *ml_models.Preprocessor, task *models.Task, load int, categoryAvg float64) (float64, error) {
	var v feature.Vector
	v[feature.PriorityWeight] = float64(models.PriorityWeight(task.Priority))
	v[feature.CurrentLoad] = float64(load)
	v[feature.CategoryAvgDuration] = categoryAvg
	v[feature.DescriptionLength] = float64(task.DescriptionChars())

	input, err := preprocessor.Transform(trainer.TabularInput(v))
	if err != nil {
		return 0, err
	}
	seconds, err := model.Predict(input)
	if err != nil {
		return 0, err
	}
	return math.Max(seconds/3600, 0), nil
}
