package services

import (
	"context"

	"taskboard/internal/models"
	"taskboard/internal/store"
)

type CategoryService interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	CreateCategory(ctx context.Context, input models.CategoryInput) (*models.Category, error)
	UpdateCategory(ctx context.Context, id string, changes []byte) (*models.Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

type CategoryServiceImpl struct {
	categories collection[models.Category]
}

func NewCategoryService(categories store.Collection[models.Category], opts Options) *CategoryServiceImpl {
	return &CategoryServiceImpl{categories: newCollection("Category", store.CategoriesName, categories, opts)}
}

func (s *CategoryServiceImpl) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.categories.list(ctx, store.Query{Sort: []store.SortField{store.Asc("name")}})
}

func (s *CategoryServiceImpl) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	_, category, err := s.categories.get(ctx, id)
	return category, err
}

func (s *CategoryServiceImpl) CreateCategory(ctx context.Context, input models.CategoryInput) (*models.Category, error) {
	category, err := models.NewCategory(input, s.categories.now())
	if err != nil {
		return nil, err
	}
	if err := s.categories.insert(ctx, category.ID, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *CategoryServiceImpl) UpdateCategory(ctx context.Context, id string, changes []byte) (*models.Category, error) {
	return s.categories.merge(ctx, id, changes, func(merged, stored *models.Category) {
		merged.ID = stored.ID
	})
}

func (s *CategoryServiceImpl) DeleteCategory(ctx context.Context, id string) error {
	return s.categories.remove(ctx, id)
}
