package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultStatusName is the status type assigned to new requests when present.
const DefaultStatusName = "solicitado"

// ItemCategory groups requested items.
type ItemCategory struct {
	ID        string    `gorm:"primaryKey;type:char(36)" json:"id"`
	Name      string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RequestStatusType is one step of the request workflow.
type RequestStatusType struct {
	ID        string    `gorm:"primaryKey;type:char(36)" json:"id"`
	Name      string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Label     string    `gorm:"size:255;not null" json:"label"`
	Color     string    `gorm:"size:32;not null" json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Request is a materials purchase request.
type Request struct {
	ID           string             `gorm:"primaryKey;type:char(36)" json:"id"`
	Date         Date               `gorm:"not null" json:"date"`
	ItemName     string             `gorm:"size:255;not null" json:"item_name"`
	CategoryID   *string            `gorm:"type:char(36);index" json:"category_id"`
	Category     *ItemCategory      `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Quantity     int                `gorm:"not null" json:"quantity"`
	Requester    string             `gorm:"size:255;not null" json:"requester"`
	Observations *string            `gorm:"size:2048" json:"observations"`
	StatusID     string             `gorm:"column:status;type:char(36);not null;index" json:"status"`
	StatusType   *RequestStatusType `gorm:"foreignKey:StatusID" json:"status_type,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// TableName overrides the table name for ItemCategory
func (ItemCategory) TableName() string {
	return "item_categories"
}

// TableName overrides the table name for RequestStatusType
func (RequestStatusType) TableName() string {
	return "request_status_types"
}

// TableName overrides the table name for Request
func (Request) TableName() string {
	return "requests"
}

func (c *ItemCategory) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func (s *RequestStatusType) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (r *Request) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// All lists every model in migration order.
func All() []interface{} {
	return []interface{}{
		&ItemCategory{},
		&RequestStatusType{},
		&Request{},
		&Maintenance{},
		&MaintenanceTask{},
	}
}
