package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Maintenance statuses
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Maintenance is one equipment maintenance job.
type Maintenance struct {
	ID              string            `gorm:"primaryKey;type:char(36)" json:"id"`
	ClientName      string            `gorm:"size:255;not null" json:"client_name"`
	SerialNumber    string            `gorm:"size:255;not null" json:"serial_number"`
	Model           string            `gorm:"size:255;not null" json:"model"`
	Year            string            `gorm:"size:16;not null" json:"year"`
	MaintenanceDate Date              `gorm:"not null" json:"maintenance_date"`
	Progress        int               `gorm:"not null" json:"progress"`
	Status          string            `gorm:"size:32;not null;index" json:"status"`
	Version         uint64            `gorm:"not null;default:0" json:"version"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	Tasks           []MaintenanceTask `gorm:"foreignKey:MaintenanceID" json:"tasks,omitempty"`
}

// MaintenanceTask is one checklist row of a Maintenance, ordered by OrderIndex.
type MaintenanceTask struct {
	ID            string    `gorm:"primaryKey;type:char(36)" json:"id"`
	MaintenanceID string    `gorm:"type:char(36);not null;index" json:"maintenance_id"`
	Description   string    `gorm:"size:1024;not null" json:"description"`
	Completed     bool      `gorm:"not null" json:"completed"`
	OrderIndex    int       `gorm:"not null" json:"order_index"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName overrides the table name for Maintenance
func (Maintenance) TableName() string {
	return "maintenances"
}

// TableName overrides the table name for MaintenanceTask
func (MaintenanceTask) TableName() string {
	return "maintenance_tasks"
}

func (m *Maintenance) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

func (t *MaintenanceTask) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
