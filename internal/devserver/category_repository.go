package devserver

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"sitetrack/internal/model"
)

// CategoryRepository manages the work category reference data. Categories
// are global, not per-account.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(ctx context.Context, name string) (*model.WorkCategory, error) {
	category := model.WorkCategory{ID: uuid.NewString(), Name: name}
	if err := r.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return &category, nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]model.WorkCategory, error) {
	var categories []model.WorkCategory
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// Delete removes a category. The restrict foreign key makes this fail
// with a constraint error while any task still references it.
func (r *CategoryRepository) Delete(ctx context.Context, id string) (*model.WorkCategory, error) {
	var category model.WorkCategory
	db := r.db.WithContext(ctx)
	if err := db.First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := db.Delete(&model.WorkCategory{}, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}
