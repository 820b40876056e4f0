package model

import "time"

// Status is the lifecycle of a single task.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task is a single work item on a project, always attached to a work category.
type Task struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid"`
	Title       string    `json:"title" gorm:"not null"`
	Description *string   `json:"description"`
	Status      Status    `json:"status" gorm:"default:'not_started'"`
	ProjectID   string    `json:"project_id" gorm:"type:uuid;index;not null"`
	CategoryID  string    `json:"category_id" gorm:"type:uuid;index;not null"`
	DueDate     *string   `json:"due_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskWithCategory is a task row joined against its work category.
// CategoryName is display data only; CategoryID remains the grouping key.
type TaskWithCategory struct {
	Task
	CategoryName string `json:"category_name"`
}

// UncategorizedLabel is the display name used for tasks whose category row
// no longer exists. Such tasks must still surface, never be dropped.
const UncategorizedLabel = "Uncategorized"
