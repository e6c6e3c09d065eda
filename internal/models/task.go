package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// Task statuses. "completed" tasks with both timestamps set are the
// ground truth for duration model training.
const (
	StatusRequiredCheck = "required check"
	StatusPlanned       = "planned"
	StatusActive        = "active"
	StatusCompleted     = "completed"
	StatusArchived      = "archived"
)

// Task priorities and their fixed integer weights.
const (
	PriorityHigh    = "high"
	PriorityMedium  = "medium"
	PriorityLow     = "low"
	PriorityDefault = "default"
)

var priorityWeights = map[string]int{
	PriorityHigh:    4,
	PriorityMedium:  3,
	PriorityLow:     2,
	PriorityDefault: 1,
}

// PriorityWeight returns the fixed weight for a priority type, 0 if unset
// or unknown.
func PriorityWeight(priority string) int {
	return priorityWeights[priority]
}

// JSONMap stores an opaque key-value bag in a JSONB column.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *JSONMap) Scan(src interface{}) error {
	if src == nil {
		*m = JSONMap{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("unsupported type for JSONMap: %T", src)
	}
}

// Task represents a task stored in the 'tasks' table.
type Task struct {
	ID                int64      `db:"id" json:"id"`
	Name              string     `db:"name" json:"name"`
	Description       string     `db:"description" json:"description"`
	Status            string     `db:"status" json:"status"`
	Priority          string     `db:"priority" json:"priority"`
	CategoryID        *int64     `db:"category_id" json:"category_id,omitempty"`
	GivenTime         *time.Time `db:"given_time" json:"given_time,omitempty"`
	StartTime         *time.Time `db:"start_time" json:"start_time,omitempty"`
	EndTime           *time.Time `db:"end_time" json:"end_time,omitempty"`
	AuthorID          *int64     `db:"author_id" json:"author_id,omitempty"`
	PredictedDuration *float64   `db:"predicted_duration" json:"predicted_duration,omitempty"` // hours
	NLPMetadata       JSONMap    `db:"nlp_metadata" json:"nlp_metadata,omitempty"`
}

// Validate enforces the timestamp invariants before a task is persisted.
func (t *Task) Validate() error {
	if t.Name == "" {
		return errors.New("task name is required")
	}
	if t.StartTime != nil && t.EndTime != nil && !t.StartTime.Before(*t.EndTime) {
		return errors.New("the start date of the task must be earlier than the end date")
	}
	if t.GivenTime != nil && t.StartTime != nil && t.GivenTime.After(*t.StartTime) {
		return errors.New("the issue task date cannot be later than the start date")
	}
	return nil
}

// Text returns the free text used for categorization.
func (t *Task) Text() string {
	if t.Description == "" {
		return t.Name
	}
	return t.Name + " " + t.Description
}

// DescriptionChars returns the description length in characters, not
// bytes. The two differ for any non-ASCII description.
func (t *Task) DescriptionChars() int {
	return utf8.RuneCountInString(t.Description)
}

// CompletedTask is a completed task annotated with its duration in seconds.
type CompletedTask struct {
	Task
	DurationSec float64 `db:"duration_sec"`
}
