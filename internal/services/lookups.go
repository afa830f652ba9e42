package services

import (
	"context"
	"strings"

	"github.com/localnerve/maintdb/internal/forms"
	"github.com/localnerve/maintdb/internal/models"
	"github.com/localnerve/maintdb/internal/types"
	"gorm.io/gorm"
)

// ListCategories returns categories ordered by name.
func ListCategories(ctx context.Context, db *gorm.DB) ([]models.ItemCategory, error) {
	var rows []models.ItemCategory
	if err := db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, wrapDBError(ctx, "list categories", err)
	}
	return rows, nil
}

// GetCategory reads one category.
func GetCategory(ctx context.Context, db *gorm.DB, id string) (*models.ItemCategory, error) {
	var c models.ItemCategory
	if err := silent(db.WithContext(ctx)).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, wrapDBError(ctx, "get category", err)
	}
	return &c, nil
}

// CreateCategory inserts a category with a unique name.
func CreateCategory(ctx context.Context, db *gorm.DB, form forms.CategoryForm) (*models.ItemCategory, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	c := models.ItemCategory{Name: strings.TrimSpace(form.Name)}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := uniqueName(tx, &models.ItemCategory{}, c.Name, ""); err != nil {
			return err
		}
		return tx.Create(&c).Error
	})
	if err != nil {
		return nil, wrapDBError(ctx, "create category", err)
	}
	return &c, nil
}

// UpdateCategory renames a category.
func UpdateCategory(ctx context.Context, db *gorm.DB, id string, form forms.CategoryForm) (*models.ItemCategory, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(form.Name)

	var c models.ItemCategory
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := silent(tx).Where("id = ?", id).First(&c).Error; err != nil {
			return err
		}
		if err := uniqueName(tx, &models.ItemCategory{}, name, id); err != nil {
			return err
		}
		return tx.Model(&c).Update("name", name).Error
	})
	if err != nil {
		return nil, wrapDBError(ctx, "update category", err)
	}
	return &c, nil
}

// DeleteCategory removes a category no request refers to.
func DeleteCategory(ctx context.Context, db *gorm.DB, id string) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.ItemCategory
		if err := silent(tx).Where("id = ?", id).First(&c).Error; err != nil {
			return err
		}
		if err := refuseReferenced(tx, "category", "category_id = ?", id); err != nil {
			return err
		}
		return tx.Delete(&c).Error
	})
	return wrapDBError(ctx, "delete category", err)
}

// ListStatusTypes returns status types in creation order.
func ListStatusTypes(ctx context.Context, db *gorm.DB) ([]models.RequestStatusType, error) {
	var rows []models.RequestStatusType
	if err := db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, wrapDBError(ctx, "list status types", err)
	}
	return rows, nil
}

// CreateStatusType inserts a status type with a unique machine name.
func CreateStatusType(ctx context.Context, db *gorm.DB, form forms.StatusTypeForm) (*models.RequestStatusType, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	s := models.RequestStatusType{
		Name:  strings.TrimSpace(form.Name),
		Label: strings.TrimSpace(form.Label),
		Color: strings.TrimSpace(form.Color),
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := uniqueName(tx, &models.RequestStatusType{}, s.Name, ""); err != nil {
			return err
		}
		return tx.Create(&s).Error
	})
	if err != nil {
		return nil, wrapDBError(ctx, "create status type", err)
	}
	return &s, nil
}

// UpdateStatusType replaces the name, label and color of a status type.
func UpdateStatusType(ctx context.Context, db *gorm.DB, id string, form forms.StatusTypeForm) (*models.RequestStatusType, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	var s models.RequestStatusType
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := silent(tx).Where("id = ?", id).First(&s).Error; err != nil {
			return err
		}
		name := strings.TrimSpace(form.Name)
		if err := uniqueName(tx, &models.RequestStatusType{}, name, id); err != nil {
			return err
		}
		return tx.Model(&s).Updates(map[string]interface{}{
			"name":  name,
			"label": strings.TrimSpace(form.Label),
			"color": strings.TrimSpace(form.Color),
		}).Error
	})
	if err != nil {
		return nil, wrapDBError(ctx, "update status type", err)
	}
	return &s, nil
}

// DeleteStatusType removes a status type no request refers to.
func DeleteStatusType(ctx context.Context, db *gorm.DB, id string) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s models.RequestStatusType
		if err := silent(tx).Where("id = ?", id).First(&s).Error; err != nil {
			return err
		}
		if err := refuseReferenced(tx, "status type", "status = ?", id); err != nil {
			return err
		}
		return tx.Delete(&s).Error
	})
	return wrapDBError(ctx, "delete status type", err)
}

// refuseReferenced counts the requests matching cond and fails when there are any.
func refuseReferenced(tx *gorm.DB, entity, cond string, id string) error {
	var count int64
	if err := tx.Model(&models.Request{}).Where(cond, id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return &types.ReferencedError{Entity: entity, Count: count}
	}
	return nil
}

func uniqueName(tx *gorm.DB, model interface{}, name, exceptID string) error {
	query := tx.Model(model).Where("name = ?", name)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return types.Invalid("name", "name already exists")
	}
	return nil
}
