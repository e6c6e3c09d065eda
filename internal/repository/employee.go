package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"tasktracker/internal/models"
)

type EmployeeRepository interface {
	ByProject(projectID int64) ([]models.Employee, error)
	ProjectBySprint(sprintID int64) (int64, error)
	// ExperiencedEmployeeIDs returns ids of employees that executed at
	// least one task of the given category on the project.
	ExperiencedEmployeeIDs(projectID, categoryID int64) ([]int64, error)
}

type employeeRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewEmployeeRepository(db *sqlx.DB, logger *zap.Logger) EmployeeRepository {
	return &employeeRepository{db: db, logger: logger}
}

func (r *employeeRepository) ByProject(projectID int64) ([]models.Employee, error) {
	var employees []models.Employee
	query := `SELECT id, user_id, project_id, current_load
		FROM employees WHERE project_id = $1 ORDER BY id`
	if err := r.db.Select(&employees, query, projectID); err != nil {
		return nil, err
	}
	return employees, nil
}

func (r *employeeRepository) ProjectBySprint(sprintID int64) (int64, error) {
	var projectID int64
	query := `SELECT project_id FROM sprints WHERE id = $1`
	err := r.db.Get(&projectID, query, sprintID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("sprint not found: %d", sprintID)
	}
	if err != nil {
		return 0, err
	}
	return projectID, nil
}

func (r *employeeRepository) ExperiencedEmployeeIDs(projectID, categoryID int64) ([]int64, error) {
	var ids []int64
	query := `SELECT DISTINCT x.employee_id
		FROM executors x
		JOIN tasks t ON t.id = x.task_id
		JOIN employees e ON e.id = x.employee_id
		WHERE t.category_id = $1 AND e.project_id = $2`
	if err := r.db.Select(&ids, query, categoryID, projectID); err != nil {
		return nil, err
	}
	return ids, nil
}
