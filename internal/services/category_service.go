package services

import (
	"context"
	"fmt"
	"strings"

	"fintrack/internal/auth"
	"fintrack/internal/core"
)

type CategoryStore interface {
	InsertCategory(ctx context.Context, c core.Category) (core.Category, error)
	ListCategories(ctx context.Context, owner string, typ core.CategoryType, division core.Division) ([]core.Category, error)
	GetCategory(ctx context.Context, id string) (core.Category, error)
	DeactivateCategory(ctx context.Context, id string) error
}

type CategoryService struct {
	store CategoryStore
}

func NewCategoryService(store CategoryStore) *CategoryService {
	return &CategoryService{store: store}
}

func (s *CategoryService) Create(ctx context.Context, c core.Category) (core.Category, error) {
	c.ID = ""
	c.Owner = strings.TrimSpace(c.Owner)
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := auth.CheckOwner(ctx, c.Owner); err != nil {
		return core.Category{}, err
	}
	if c.Type == "" {
		c.Type = core.CategoryBoth
	}
	if c.Division == "" {
		c.Division = core.DivisionPersonal
	}
	c.IsActive = true
	return s.store.InsertCategory(ctx, c)
}

// List returns active categories; typ and division narrow the result when set.
func (s *CategoryService) List(ctx context.Context, owner string, typ core.CategoryType, division core.Division) ([]core.Category, error) {
	if err := auth.CheckOwner(ctx, owner); err != nil {
		return nil, err
	}
	categories, err := s.store.ListCategories(ctx, owner, typ, division)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// Deactivate hides a category from listings; other owners' categories read as missing.
func (s *CategoryService) Deactivate(ctx context.Context, id string) error {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.CheckOwner(ctx, c.Owner); err != nil {
		return core.ErrNotFound
	}
	return s.store.DeactivateCategory(ctx, id)
}
