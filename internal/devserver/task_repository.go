package devserver

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"sitetrack/internal/model"
)

// JoinedTask is a task row with its category resolved by a left join.
// CatID and CatName are nil when the category row is gone.
type JoinedTask struct {
	model.Task
	CatID   *string
	CatName *string
}

// TaskRepository handles CRUD for tasks. Tasks carry no owner column;
// ownership flows through the parent project, so every query joins
// projects and filters on its user_id.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = "tasks.*, work_categories.id AS cat_id, work_categories.name AS cat_name"

// ListByProject returns a project's tasks with category names resolved,
// newest first. The category join is a left join: a task never drops out
// because its category vanished.
func (r *TaskRepository) ListByProject(ctx context.Context, ownerID, projectID string) ([]JoinedTask, error) {
	var rows []JoinedTask
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select(taskColumns).
		Joins("JOIN projects ON projects.id = tasks.project_id").
		Joins("LEFT JOIN work_categories ON work_categories.id = tasks.category_id").
		Where("projects.user_id = ? AND tasks.project_id = ?", ownerID, projectID).
		Order("tasks.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID returns one owned task with its category resolved.
func (r *TaskRepository) FindByID(ctx context.Context, ownerID, id string) (*JoinedTask, error) {
	var rows []JoinedTask
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select(taskColumns).
		Joins("JOIN projects ON projects.id = tasks.project_id").
		Joins("LEFT JOIN work_categories ON work_categories.id = tasks.category_id").
		Where("projects.user_id = ? AND tasks.id = ?", ownerID, id).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

// Create inserts a task under an owned project. A project id belonging to
// someone else reads as not found; dangling references trip the foreign
// keys.
func (r *TaskRepository) Create(ctx context.Context, ownerID string, task *model.Task) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Project{}).
		Where("user_id = ? AND id = ?", ownerID, task.ProjectID).
		Count(&n).Error; err != nil {
		return fmt.Errorf("check project: %w", err)
	}
	if n == 0 {
		return gorm.ErrRecordNotFound
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Status == "" {
		task.Status = model.StatusNotStarted
	}
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Update applies the given column values to an owned task.
func (r *TaskRepository) Update(ctx context.Context, ownerID, id string, updates map[string]interface{}) (*JoinedTask, error) {
	existing, err := r.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&model.Task{ID: existing.ID}).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return r.FindByID(ctx, ownerID, id)
}

// Delete removes an owned task, returning the row as it was.
func (r *TaskRepository) Delete(ctx context.Context, ownerID, id string) (*JoinedTask, error) {
	existing, err := r.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Delete(&model.Task{}, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("delete task: %w", err)
	}
	return existing, nil
}
