package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/localnerve/maintdb/internal/forms"
	"github.com/localnerve/maintdb/internal/models"
	"github.com/localnerve/maintdb/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/hints"
)

func preloadRequest(db *gorm.DB) *gorm.DB {
	return db.Preload("Category").Preload("StatusType")
}

// ListRequests returns requests newest first with category and status, optionally
// filtered by a case-insensitive search over item, requester and category name.
func ListRequests(ctx context.Context, db *gorm.DB, search string) ([]models.Request, error) {
	query := preloadRequest(db.WithContext(ctx).Clauses(hints.Comment("select", "requests.list"))).
		Model(&models.Request{}).
		Select("requests.*").
		Joins("LEFT JOIN item_categories ON item_categories.id = requests.category_id")

	if strings.TrimSpace(search) != "" {
		pattern := likePattern(search)
		query = query.Where(
			"LOWER(requests.item_name) LIKE ? ESCAPE '!' OR LOWER(requests.requester) LIKE ? ESCAPE '!' OR LOWER(item_categories.name) LIKE ? ESCAPE '!'",
			pattern, pattern, pattern,
		)
	}

	var rows []models.Request
	if err := query.Order("requests.created_at DESC").Find(&rows).Error; err != nil {
		return nil, wrapDBError(ctx, "list requests", err)
	}
	return rows, nil
}

// GetRequest reads one request with its category and status.
func GetRequest(ctx context.Context, db *gorm.DB, id string) (*models.Request, error) {
	var r models.Request
	if err := preloadRequest(silent(db.WithContext(ctx))).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, wrapDBError(ctx, "get request", err)
	}
	return &r, nil
}

// ResolveDefaultStatus picks the status for new requests: the one named
// "solicitado", else the earliest created, else ErrNoDefaultStatus.
func ResolveDefaultStatus(ctx context.Context, db *gorm.DB) (*models.RequestStatusType, error) {
	var status models.RequestStatusType
	err := silent(db.WithContext(ctx)).Where("name = ?", models.DefaultStatusName).First(&status).Error
	if err == nil {
		return &status, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, wrapDBError(ctx, "resolve default status", err)
	}

	err = silent(db.WithContext(ctx)).Order("created_at ASC").First(&status).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.ErrNoDefaultStatus
	}
	if err != nil {
		return nil, wrapDBError(ctx, "resolve default status", err)
	}
	return &status, nil
}

// CreateRequest validates the form, resolves the default status and inserts the
// request in one transaction. Nothing is inserted when no status type exists.
func CreateRequest(ctx context.Context, db *gorm.DB, form forms.RequestForm, now time.Time) (*models.Request, error) {
	var r models.Request
	if err := form.Apply(&r, now); err != nil {
		return nil, err
	}
	if err := checkContext(ctx, "create request"); err != nil {
		return nil, err
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureCategory(tx, *r.CategoryID); err != nil {
			return err
		}
		status, err := ResolveDefaultStatus(ctx, tx)
		if err != nil {
			return err
		}
		r.StatusID = status.ID

		if err := tx.Create(&r).Error; err != nil {
			return err
		}
		return preloadRequest(tx).Where("id = ?", r.ID).First(&r).Error
	})
	if err != nil {
		return nil, wrapDBError(ctx, "create request", err)
	}
	return &r, nil
}

// UpdateRequest replaces every form field of a request. The status is not changed.
func UpdateRequest(ctx context.Context, db *gorm.DB, id string, form forms.RequestForm, now time.Time) (*models.Request, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	if err := checkContext(ctx, "update request"); err != nil {
		return nil, err
	}

	var r models.Request
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := silent(tx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&r).Error; err != nil {
			return err
		}
		if err := form.Apply(&r, now); err != nil {
			return err
		}
		if err := ensureCategory(tx, *r.CategoryID); err != nil {
			return err
		}

		if err := tx.Model(&models.Request{}).Where("id = ?", id).Updates(map[string]interface{}{
			"date":         r.Date,
			"item_name":    r.ItemName,
			"category_id":  r.CategoryID,
			"quantity":     r.Quantity,
			"requester":    r.Requester,
			"observations": r.Observations,
		}).Error; err != nil {
			return err
		}
		return preloadRequest(tx).Where("id = ?", id).First(&r).Error
	})
	if err != nil {
		return nil, wrapDBError(ctx, "update request", err)
	}
	return &r, nil
}

// UpdateRequestStatus moves a request to an existing status type.
func UpdateRequestStatus(ctx context.Context, db *gorm.DB, id string, form forms.StatusChangeForm) (*models.Request, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	statusID := strings.TrimSpace(form.StatusID)

	var r models.Request
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.RequestStatusType{}).Where("id = ?", statusID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return types.Invalid("status", "status type does not exist")
		}

		res := tx.Model(&models.Request{}).Where("id = ?", id).Update("status", statusID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return preloadRequest(tx).Where("id = ?", id).First(&r).Error
	})
	if err != nil {
		return nil, wrapDBError(ctx, "update request status", err)
	}
	return &r, nil
}

// DeleteRequest removes a request.
func DeleteRequest(ctx context.Context, db *gorm.DB, id string) error {
	if err := checkContext(ctx, "delete request"); err != nil {
		return err
	}
	res := db.WithContext(ctx).Delete(&models.Request{}, "id = ?", id)
	if res.Error != nil {
		return wrapDBError(ctx, "delete request", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrapDBError(ctx, "delete request", gorm.ErrRecordNotFound)
	}
	return nil
}

func ensureCategory(tx *gorm.DB, id string) error {
	var count int64
	if err := tx.Model(&models.ItemCategory{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return types.Invalid("category_id", "category does not exist")
	}
	return nil
}
