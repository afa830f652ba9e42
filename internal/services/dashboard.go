package services

import (
	"context"

	"github.com/localnerve/maintdb/internal/models"
	"gorm.io/gorm"
	"gorm.io/hints"
)

// StatusCount is the number of requests in one status.
type StatusCount struct {
	StatusID string `json:"status_id"`
	Name     string `json:"name"`
	Label    string `json:"label"`
	Color    string `json:"color"`
	Count    int64  `json:"count"`
}

// Dashboard summarizes maintenances and requests.
type Dashboard struct {
	MaintenancesInProgress int64         `json:"maintenances_in_progress"`
	MaintenancesCompleted  int64         `json:"maintenances_completed"`
	Requests               int64         `json:"requests"`
	RequestsByStatus       []StatusCount `json:"requests_by_status"`
}

// GetDashboard counts maintenances by status and requests per status type.
func GetDashboard(ctx context.Context, db *gorm.DB) (*Dashboard, error) {
	db = db.WithContext(ctx)
	d := &Dashboard{RequestsByStatus: []StatusCount{}}

	if err := db.Model(&models.Maintenance{}).Where("status = ?", models.StatusInProgress).
		Count(&d.MaintenancesInProgress).Error; err != nil {
		return nil, wrapDBError(ctx, "dashboard", err)
	}
	if err := db.Model(&models.Maintenance{}).Where("status = ?", models.StatusCompleted).
		Count(&d.MaintenancesCompleted).Error; err != nil {
		return nil, wrapDBError(ctx, "dashboard", err)
	}
	if err := db.Model(&models.Request{}).Count(&d.Requests).Error; err != nil {
		return nil, wrapDBError(ctx, "dashboard", err)
	}

	err := db.Clauses(hints.Comment("select", "dashboard.requests_by_status")).
		Table("request_status_types").
		Select("request_status_types.id AS status_id, request_status_types.name, request_status_types.label, " +
			"request_status_types.color, COUNT(requests.id) AS count").
		Joins("LEFT JOIN requests ON requests.status = request_status_types.id").
		Group("request_status_types.id, request_status_types.name, request_status_types.label, " +
			"request_status_types.color, request_status_types.created_at").
		Order("request_status_types.created_at ASC").
		Scan(&d.RequestsByStatus).Error
	if err != nil {
		return nil, wrapDBError(ctx, "dashboard", err)
	}
	return d, nil
}
