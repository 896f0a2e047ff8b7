package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"taskpulse/internal/model"
)

// CategoryRepository reads the free-text categories in use.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// ListByUser returns the distinct categories of the user's tasks, sorted by name.
func (r *CategoryRepository) ListByUser(ctx context.Context, userID string) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND category <> ''", userID).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}
