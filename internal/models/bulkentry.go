package models

import (
	"time"

	"github.com/google/uuid"
)

// Entry row field names accepted by the bulk-entry session PATCH endpoint
const (
	EntryFieldName              = "name"
	EntryFieldCategory          = "category"
	EntryFieldCostPrice         = "costPrice"
	EntryFieldSellingPrice      = "sellingPrice"
	EntryFieldCurrentStock      = "currentStock"
	EntryFieldLowStockThreshold = "lowStockThreshold"
)

// Defaults substituted when a valid row is collected for saving
const (
	DefaultCostPrice         = 0
	DefaultCurrentStock      = 0
	DefaultLowStockThreshold = 10
)

// EntryRow is one editable slot in a bulk-entry session. Numeric fields are
// pointers: nil means the user has not entered a usable number yet.
type EntryRow struct {
	ID                int      `json:"id"`
	Name              string   `json:"name"`
	Category          string   `json:"category"`
	CostPrice         *float64 `json:"costPrice"`
	SellingPrice      *float64 `json:"sellingPrice"`
	CurrentStock      *int     `json:"currentStock"`
	LowStockThreshold *int     `json:"lowStockThreshold"`
	IsValid           bool     `json:"isValid"`
	Errors            []string `json:"errors"`
}

// EntrySessionView is the JSON shape of a bulk-entry session
type EntrySessionView struct {
	ID          uuid.UUID   `json:"id"`
	Rows        []*EntryRow `json:"rows"`
	ValidCount  int         `json:"validCount"`
	FilledCount int         `json:"filledCount"`
	SelectedIDs []uuid.UUID `json:"selectedTemplateIds"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// UpdateRowRequest carries a single field edit. RawValue is the literal text
// from the entry grid; numeric fields tolerate non-numeric input.
type UpdateRowRequest struct {
	Field    string `json:"field" binding:"required"`
	RawValue string `json:"value"`
}

// BulkSaveRowError describes one failed create during bulk save
type BulkSaveRowError struct {
	Row     int    `json:"row"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BulkSaveResult reports the outcome of saving a bulk-entry session.
// Creates are independent per row, so successful and failed can both be
// non-zero.
type BulkSaveResult struct {
	Success    bool               `json:"success"`
	Total      int                `json:"total"`
	Successful int                `json:"successful"`
	Failed     int                `json:"failed"`
	Errors     []BulkSaveRowError `json:"errors,omitempty"`
	CreatedIDs []string           `json:"createdIds,omitempty"`
}

// EntryTemplateColumn defines a column in the downloadable entry template
type EntryTemplateColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"`
}

// EntryTemplateColumns returns the column definitions for the bulk-entry
// template download. Column order matches the CSV header.
func EntryTemplateColumns() []EntryTemplateColumn {
	return []EntryTemplateColumn{
		{Name: "Name", Description: "Product name", Required: true, Type: "string"},
		{Name: "Category", Description: "Product category", Required: false, Type: "string"},
		{Name: "Cost Price", Description: "Purchase cost per unit", Required: false, Type: "number"},
		{Name: "Selling Price", Description: "Sale price per unit", Required: true, Type: "number"},
		{Name: "Current Stock", Description: "Units currently on hand", Required: false, Type: "number"},
		{Name: "Low Stock Threshold", Description: "Stock level that triggers a low-stock alert", Required: false, Type: "number"},
	}
}

// EntryTemplateSampleRows returns the fixed example rows shipped with the
// template download. These are illustrative literals, never live data.
func EntryTemplateSampleRows() [][]string {
	return [][]string{
		{"Sample Product", "General", "10.00", "15.00", "100", "10"},
		{"Another Product", "Electronics", "25.50", "35.00", "50", "5"},
	}
}
