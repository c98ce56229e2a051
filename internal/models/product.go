package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncStatus represents the synchronization status of local writes
type SyncStatus string

const (
	SyncStatusSynced  SyncStatus = "SYNCED"
	SyncStatusPending SyncStatus = "PENDING"
	SyncStatusFailed  SyncStatus = "FAILED"
)

// Product represents an inventory product
type Product struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID string    `json:"tenantId" gorm:"type:varchar(255);not null;index"`

	Name     string `json:"name" gorm:"type:varchar(255);not null"`
	Category string `json:"category" gorm:"type:varchar(100);index"`

	// Pricing
	CostPrice    float64 `json:"costPrice" gorm:"type:decimal(12,2);default:0"`
	SellingPrice float64 `json:"sellingPrice" gorm:"type:decimal(12,2);not null"`

	// Stock
	CurrentStock      int `json:"currentStock" gorm:"default:0"`
	LowStockThreshold int `json:"lowStockThreshold" gorm:"default:10"`

	// Optional metadata
	Description string `json:"description" gorm:"type:text"`
	Barcode     string `json:"barcode" gorm:"type:varchar(100)"`
	ImageURL    string `json:"imageUrl" gorm:"column:image_url;type:varchar(500)"`

	// Variations reference their parent product
	ParentID *uuid.UUID `json:"parentId,omitempty" gorm:"type:uuid;index"`

	// Audit fields
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	DeletedAt *gorm.DeletedAt `json:"deletedAt,omitempty" gorm:"index"`
	CreatedBy *string         `json:"createdBy,omitempty"`
	UpdatedBy *string         `json:"updatedBy,omitempty"`
}

// IsLowStock reports whether current stock is at or below the threshold
func (p *Product) IsLowStock() bool {
	return p.CurrentStock <= p.LowStockThreshold
}

// ProductTemplate is a predefined product reference used to guide bulk entry.
// Templates are read-only from this service's point of view; the catalog
// owner publishes changes over NATS.
type ProductTemplate struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID string    `json:"tenantId" gorm:"type:varchar(255);not null;index"`
	Name     string    `json:"name" gorm:"type:varchar(255);not null"`
	Category string    `json:"category" gorm:"type:varchar(100);index"`
	ImageURL *string   `json:"image_url,omitempty" gorm:"column:image_url;type:varchar(500)"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateProductRequest is the payload for single product creation
type CreateProductRequest struct {
	Name              string  `json:"name" binding:"required"`
	Category          string  `json:"category"`
	CostPrice         float64 `json:"costPrice" binding:"gte=0"`
	SellingPrice      float64 `json:"sellingPrice" binding:"gte=0"`
	CurrentStock      int     `json:"currentStock" binding:"gte=0"`
	LowStockThreshold *int    `json:"lowStockThreshold"`
	Description       string  `json:"description"`
	Barcode           string  `json:"barcode"`
	ImageURL          string  `json:"imageUrl"`
}

// UpdateProductRequest is the payload for product edits; nil fields are unchanged
type UpdateProductRequest struct {
	Name              *string  `json:"name"`
	Category          *string  `json:"category"`
	CostPrice         *float64 `json:"costPrice"`
	SellingPrice      *float64 `json:"sellingPrice"`
	CurrentStock      *int     `json:"currentStock"`
	LowStockThreshold *int     `json:"lowStockThreshold"`
	Description       *string  `json:"description"`
	Barcode           *string  `json:"barcode"`
	ImageURL          *string  `json:"imageUrl"`
}

// RestockRequest adds (or removes) stock for a product
type RestockRequest struct {
	Quantity int     `json:"quantity" binding:"required"`
	Note     *string `json:"note"`
}

// ListProductsQuery captures product listing filters
type ListProductsQuery struct {
	Search   string `form:"search"`
	Category string `form:"category"`
	LowStock bool   `form:"lowStock"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

// Error represents an API error
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the standard error envelope
type ErrorResponse struct {
	Success bool  `json:"success"`
	Error   Error `json:"error"`
}

// TableName implementations
func (Product) TableName() string {
	return "products"
}

func (ProductTemplate) TableName() string {
	return "product_templates"
}
