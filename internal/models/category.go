package models

// Category classifies tasks by topic or type of work. Keywords is a raw
// comma-separated keyword list; ProcessedKeywords is the derived normalized
// representation recomputed by the repository whenever Keywords changes.
type Category struct {
	ID                int64  `db:"id" json:"id"`
	Name              string `db:"name" json:"name"`
	Description       string `db:"description" json:"description"`
	Keywords          string `db:"keywords" json:"keywords"`
	ProcessedKeywords string `db:"processed_keywords" json:"-"`
}

// Employee belongs to a project. CurrentLoad counts currently active
// assigned tasks and is maintained outside the ML pipeline.
type Employee struct {
	ID          int64 `db:"id" json:"id"`
	UserID      int64 `db:"user_id" json:"user_id"`
	ProjectID   int64 `db:"project_id" json:"project_id"`
	CurrentLoad int   `db:"current_load" json:"current_load"`
}

// Sprint groups tasks within a project.
type Sprint struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	ProjectID int64  `db:"project_id" json:"project_id"`
}

// Executor assigns an employee to a task.
type Executor struct {
	ID         int64 `db:"id" json:"id"`
	EmployeeID int64 `db:"employee_id" json:"employee_id"`
	TaskID     int64 `db:"task_id" json:"task_id"`
}
