// Package bulkentry holds the in-memory row store behind the bulk-add entry
// grid: sessions of editable product rows with per-row validation, plus the
// advisory template selection set.
package bulkentry

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"product-entry-service/internal/models"
)

// DefaultRowCount is the number of blank rows a new session opens with
const DefaultRowCount = 20

// Session is one open bulk-entry grid. All row and selection state lives in
// memory and is discarded when the session is saved or closed.
type Session struct {
	ID        uuid.UUID
	TenantID  string
	CreatedAt time.Time

	mu       sync.Mutex
	rows     []*models.EntryRow
	selected map[uuid.UUID]struct{}
}

// newSession creates a session with count blank rows. Row ids are a simple
// sequence; they stay stable for the session's lifetime.
func newSession(tenantID string, count int) *Session {
	if count <= 0 {
		count = DefaultRowCount
	}
	rows := make([]*models.EntryRow, count)
	for i := range rows {
		rows[i] = &models.EntryRow{ID: i + 1, Errors: []string{}}
	}
	return &Session{
		ID:        uuid.New(),
		TenantID:  tenantID,
		CreatedAt: time.Now(),
		rows:      rows,
		selected:  make(map[uuid.UUID]struct{}),
	}
}

// UpdateField applies a single field edit and re-validates only that row.
// Non-numeric text in a numeric field is stored as unset rather than
// rejected; unknown fields and row ids return false.
func (s *Session) UpdateField(rowID int, field, raw string) (*models.EntryRow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.findRow(rowID)
	if row == nil {
		return nil, false
	}

	switch field {
	case models.EntryFieldName:
		row.Name = raw
	case models.EntryFieldCategory:
		row.Category = raw
	case models.EntryFieldCostPrice:
		row.CostPrice = parseOptionalFloat(raw)
	case models.EntryFieldSellingPrice:
		row.SellingPrice = parseOptionalFloat(raw)
	case models.EntryFieldCurrentStock:
		row.CurrentStock = parseOptionalInt(raw)
	case models.EntryFieldLowStockThreshold:
		row.LowStockThreshold = parseOptionalInt(raw)
	default:
		return nil, false
	}

	row.IsValid, row.Errors = validateRow(row)
	copied := *row
	return &copied, true
}

// validateRow is the pure validation rule: a row is valid iff its trimmed
// name is non-empty and selling price is a present, non-negative number.
// Cost price, stock, and threshold are never required; defaults are
// substituted at save time instead.
func validateRow(row *models.EntryRow) (bool, []string) {
	errs := []string{}
	if strings.TrimSpace(row.Name) == "" {
		errs = append(errs, "Product name is required")
	}
	if row.SellingPrice == nil {
		errs = append(errs, "Selling price is required")
	} else if *row.SellingPrice < 0 {
		errs = append(errs, "Selling price must be a non-negative number")
	}
	return len(errs) == 0, errs
}

// ClearAll resets every row's editable fields while preserving row identity
// and count, and empties the template selection set.
func (s *Session) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		row.Name = ""
		row.Category = ""
		row.CostPrice = nil
		row.SellingPrice = nil
		row.CurrentStock = nil
		row.LowStockThreshold = nil
		row.IsValid = false
		row.Errors = []string{}
	}
	s.selected = make(map[uuid.UUID]struct{})
}

// CollectValidProducts maps valid rows to product records, substituting
// defaults for absent optional fields. An empty result means there is
// nothing to save; callers surface that as a blocking condition, not an
// error.
func (s *Session) CollectValidProducts() []*models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make([]*models.Product, 0, len(s.rows))
	for _, row := range s.rows {
		name := strings.TrimSpace(row.Name)
		if !row.IsValid || name == "" {
			continue
		}
		p := &models.Product{
			Name:              name,
			Category:          row.Category,
			CostPrice:         models.DefaultCostPrice,
			SellingPrice:      *row.SellingPrice,
			CurrentStock:      models.DefaultCurrentStock,
			LowStockThreshold: models.DefaultLowStockThreshold,
		}
		if row.CostPrice != nil {
			p.CostPrice = *row.CostPrice
		}
		if row.CurrentStock != nil {
			p.CurrentStock = *row.CurrentStock
		}
		if row.LowStockThreshold != nil {
			p.LowStockThreshold = *row.LowStockThreshold
		}
		products = append(products, p)
	}
	return products
}

// CountValid returns the number of rows passing validation
func (s *Session) CountValid() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, row := range s.rows {
		if row.IsValid {
			count++
		}
	}
	return count
}

// CountFilled returns the number of rows with a non-empty trimmed name.
// A filled row can still be invalid (e.g. missing selling price), so this
// is a superset signal of CountValid.
func (s *Session) CountFilled() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, row := range s.rows {
		if strings.TrimSpace(row.Name) != "" {
			count++
		}
	}
	return count
}

// ToggleTemplate flips a template's membership in the selection set and
// reports whether it is selected afterwards. Selection is advisory metadata
// for the entry grid; it never populates rows.
func (s *Session) ToggleTemplate(templateID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.selected[templateID]; ok {
		delete(s.selected, templateID)
		return false
	}
	s.selected[templateID] = struct{}{}
	return true
}

// IsSelected reports whether a template is in the selection set
func (s *Session) IsSelected(templateID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.selected[templateID]
	return ok
}

// SelectedTemplateIDs returns the current selection set. Order carries no
// meaning beyond membership.
func (s *Session) SelectedTemplateIDs() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(s.selected))
	for id := range s.selected {
		ids = append(ids, id)
	}
	return ids
}

// View renders the session for API responses
func (s *Session) View() *models.EntrySessionView {
	s.mu.Lock()
	rows := make([]*models.EntryRow, len(s.rows))
	for i, row := range s.rows {
		copied := *row
		rows[i] = &copied
	}
	ids := make([]uuid.UUID, 0, len(s.selected))
	for id := range s.selected {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	validCount := 0
	filledCount := 0
	for _, row := range rows {
		if row.IsValid {
			validCount++
		}
		if strings.TrimSpace(row.Name) != "" {
			filledCount++
		}
	}

	return &models.EntrySessionView{
		ID:          s.ID,
		Rows:        rows,
		ValidCount:  validCount,
		FilledCount: filledCount,
		SelectedIDs: ids,
		CreatedAt:   s.CreatedAt,
	}
}

// RowCount returns the number of rows in the session
func (s *Session) RowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *Session) findRow(rowID int) *models.EntryRow {
	for _, row := range s.rows {
		if row.ID == rowID {
			return row
		}
	}
	return nil
}

// parseOptionalFloat returns nil for empty or non-numeric input
func parseOptionalFloat(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return &v
	}
	return nil
}

// parseOptionalInt returns nil for empty or non-numeric input
func parseOptionalInt(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if v, err := strconv.Atoi(raw); err == nil {
		return &v
	}
	return nil
}
