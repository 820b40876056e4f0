package devserver

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"sitetrack/internal/model"
)

// ProjectRepository handles CRUD for projects. Every query is scoped to
// the owning account; other owners' rows are indistinguishable from
// missing ones.
type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(ctx context.Context, project *model.Project) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Project, error) {
	var projects []model.Project
	if err := r.db.WithContext(ctx).Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *ProjectRepository) FindByID(ctx context.Context, ownerID, id string) (*model.Project, error) {
	var project model.Project
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", ownerID, id).
		First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// Update applies the given column values to an owned project and returns
// the stored row.
func (r *ProjectRepository) Update(ctx context.Context, ownerID, id string, updates map[string]interface{}) (*model.Project, error) {
	project, err := r.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(project).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return r.FindByID(ctx, ownerID, id)
}

// Delete removes an owned project, returning the row as it was.
func (r *ProjectRepository) Delete(ctx context.Context, ownerID, id string) (*model.Project, error) {
	project, err := r.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Delete(&model.Project{}, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("delete project: %w", err)
	}
	return project, nil
}
