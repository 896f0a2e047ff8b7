package service

import (
	"context"

	"taskpulse/internal/model"
	"taskpulse/internal/repository"
)

// CategoryService provides helpers around categories.
type CategoryService struct {
	repo *repository.CategoryRepository
}

func NewCategoryService(repo *repository.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

// List returns the distinct categories the user has used, sorted.
func (s *CategoryService) List(ctx context.Context, user *model.User) ([]string, error) {
	categories, err := s.repo.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}
