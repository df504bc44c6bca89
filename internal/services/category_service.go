package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "ledgerwise/internal/errors"
	"ledgerwise/internal/models"
	"ledgerwise/internal/pagination"
)

const maxCategoryNameLength = 100

// categoryService handles category-related business logic.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// scoped restricts q to the categories owned by ownerID, or to the global
// categories when ownerID is nil.
func scoped(q *gorm.DB, ownerID *string) *gorm.DB {
	if ownerID == nil {
		return q.Where("user_id IS NULL")
	}
	return q.Where("user_id = ?", *ownerID)
}

// visibleTo restricts q to the categories a user can reference.
func visibleTo(q *gorm.DB, userID string) *gorm.DB {
	return q.Where("(user_id IS NULL OR user_id = ?)", userID)
}

func normalizeCategoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}
	if len([]rune(name)) > maxCategoryNameLength {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "category name must be at most 100 characters")
	}
	return name, nil
}

// nameTaken reports whether another category in the same scope already uses
// name, ignoring case.
func (s *categoryService) nameTaken(ownerID *string, name, excludeID string) (bool, error) {
	q := scoped(s.db.Model(&models.Category{}), ownerID).Where("LOWER(name) = ?", strings.ToLower(name))
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateCategory creates a category for ownerID, or a global one when ownerID is nil.
func (s *categoryService) CreateCategory(ownerID *string, name, description string) (*models.Category, error) {
	name, err := normalizeCategoryName(name)
	if err != nil {
		return nil, err
	}

	taken, err := s.nameTaken(ownerID, name, "")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if taken {
		return nil, apperrors.ErrDuplicateCategory
	}

	category := &models.Category{
		UserID:      ownerID,
		Name:        name,
		Description: strings.TrimSpace(description),
	}
	if err := s.db.Create(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return category, nil
}

// ListCategories returns the global categories and the user's own, ordered by name.
func (s *categoryService) ListCategories(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	return s.list(visibleTo(s.db.Model(&models.Category{}), userID), page)
}

// ListGlobalCategories returns the categories shared by all users.
func (s *categoryService) ListGlobalCategories(page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	return s.list(scoped(s.db.Model(&models.Category{}), nil), page)
}

func (s *categoryService) list(base *gorm.DB, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	page.Defaults()

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var categories []models.Category
	if err := base.Scopes(pagination.Paginate(page)).
		Order("name ASC").
		Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(categories, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetCategoryByID retrieves a category the user can see.
func (s *categoryService) GetCategoryByID(userID, categoryID string) (*models.Category, error) {
	var category models.Category
	if err := visibleTo(s.db.Where("id = ?", categoryID), userID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// getOwned retrieves a category from exactly the given scope, so users cannot
// modify global categories through the user endpoints.
func (s *categoryService) getOwned(ownerID *string, categoryID string) (*models.Category, error) {
	var category models.Category
	if err := scoped(s.db.Where("id = ?", categoryID), ownerID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// UpdateCategory renames a category and replaces its description.
func (s *categoryService) UpdateCategory(ownerID *string, categoryID, name, description string) (*models.Category, error) {
	category, err := s.getOwned(ownerID, categoryID)
	if err != nil {
		return nil, err
	}

	name, err = normalizeCategoryName(name)
	if err != nil {
		return nil, err
	}

	taken, err := s.nameTaken(ownerID, name, category.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if taken {
		return nil, apperrors.ErrDuplicateCategory
	}

	description = strings.TrimSpace(description)
	if err := s.db.Model(category).Updates(map[string]interface{}{
		"name":        name,
		"description": description,
	}).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	category.Name = name
	category.Description = description

	return category, nil
}

// DeleteCategory deletes a category that no transaction references.
func (s *categoryService) DeleteCategory(ownerID *string, categoryID string) error {
	category, err := s.getOwned(ownerID, categoryID)
	if err != nil {
		return err
	}

	var inUse int64
	if err := s.db.Model(&models.Transaction{}).Where("category_id = ?", category.ID).Count(&inUse).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if inUse > 0 {
		return apperrors.ErrCategoryInUse
	}

	if err := s.db.Delete(category).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
