package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"tasktracker/internal/models"
)

type TaskRepository interface {
	GetTaskByID(id int64) (*models.Task, error)
	// CompletedTasks returns completed tasks with both timestamps set,
	// annotated with duration in seconds and ordered by start time.
	CompletedTasks() ([]models.CompletedTask, error)
	// LabeledTasks returns tasks that have a category assigned; used as
	// ground truth for classifier training.
	LabeledTasks() ([]models.Task, error)
	TasksWithoutCategory() ([]models.Task, error)
	// FirstExecutorLoad returns the current load of the task's first
	// assigned executor by ascending assignment id, 0 if none.
	FirstExecutorLoad(taskID int64) (int, error)
	// CategoryAvgDurationSeconds returns the mean completion duration in
	// seconds over completed tasks in the given categories, 0 if none.
	CategoryAvgDurationSeconds(categoryIDs []int64) (float64, error)
	EarliestCompletedStart() (*time.Time, error)
	UpdateCategory(taskID, categoryID int64) error
	// UpdatePredictedDuration persists the estimate (hours) as a single
	// field update; it never touches other columns so domain-event hooks
	// are not re-fired.
	UpdatePredictedDuration(taskID int64, hours float64) error
}

type taskRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewTaskRepository(db *sqlx.DB, logger *zap.Logger) TaskRepository {
	return &taskRepository{db: db, logger: logger}
}

const taskColumns = `id, name, description, status, priority, category_id,
	given_time, start_time, end_time, author_id, predicted_duration, nlp_metadata`

func (r *taskRepository) GetTaskByID(id int64) (*models.Task, error) {
	var task models.Task
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	if err := r.db.Get(&task, query, id); err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) CompletedTasks() ([]models.CompletedTask, error) {
	var tasks []models.CompletedTask
	query := `SELECT ` + taskColumns + `,
			EXTRACT(EPOCH FROM (end_time - start_time)) AS duration_sec
		FROM tasks
		WHERE status = $1 AND start_time IS NOT NULL AND end_time IS NOT NULL
		ORDER BY start_time`
	if err := r.db.Select(&tasks, query, models.StatusCompleted); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) LabeledTasks() ([]models.Task, error) {
	var tasks []models.Task
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE category_id IS NOT NULL`
	if err := r.db.Select(&tasks, query); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) TasksWithoutCategory() ([]models.Task, error) {
	var tasks []models.Task
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE category_id IS NULL`
	if err := r.db.Select(&tasks, query); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) FirstExecutorLoad(taskID int64) (int, error) {
	var load int
	query := `SELECT e.current_load
		FROM executors x
		JOIN employees e ON e.id = x.employee_id
		WHERE x.task_id = $1
		ORDER BY x.id
		LIMIT 1`
	err := r.db.Get(&load, query, taskID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return load, nil
}

func (r *taskRepository) CategoryAvgDurationSeconds(categoryIDs []int64) (float64, error) {
	if len(categoryIDs) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`SELECT
			COALESCE(AVG(EXTRACT(EPOCH FROM (end_time - start_time))), 0)
		FROM tasks
		WHERE category_id IN (?)
			AND status = ?
			AND start_time IS NOT NULL
			AND end_time IS NOT NULL`, categoryIDs, models.StatusCompleted)
	if err != nil {
		return 0, err
	}

	var avg float64
	if err := r.db.Get(&avg, r.db.Rebind(query), args...); err != nil {
		return 0, err
	}
	return avg, nil
}

func (r *taskRepository) EarliestCompletedStart() (*time.Time, error) {
	var start time.Time
	query := `SELECT start_time FROM tasks
		WHERE status = $1 AND start_time IS NOT NULL
		ORDER BY start_time
		LIMIT 1`
	err := r.db.Get(&start, query, models.StatusCompleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &start, nil
}

func (r *taskRepository) UpdateCategory(taskID, categoryID int64) error {
	query := `UPDATE tasks SET category_id = $1 WHERE id = $2`
	result, err := r.db.Exec(query, categoryID, taskID)
	if err != nil {
		return err
	}
	return requireRowsAffected(result, "task", taskID)
}

func (r *taskRepository) UpdatePredictedDuration(taskID int64, hours float64) error {
	query := `UPDATE tasks SET predicted_duration = $1 WHERE id = $2`
	result, err := r.db.Exec(query, hours, taskID)
	if err != nil {
		r.logger.Error("Failed to update predicted duration",
			zap.Int64("task_id", taskID),
			zap.Float64("hours", hours),
			zap.Error(err))
		return err
	}
	return requireRowsAffected(result, "task", taskID)
}

func requireRowsAffected(result sql.Result, entity string, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s not found: %d", entity, id)
	}
	return nil
}
