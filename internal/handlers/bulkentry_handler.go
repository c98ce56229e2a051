package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"product-entry-service/internal/bulkentry"
	"product-entry-service/internal/middleware"
	"product-entry-service/internal/models"
	"product-entry-service/internal/notify"
	"product-entry-service/internal/repository"
)

// Bulk save concurrency limits
const (
	saveWorkers    = 4   // concurrent create calls per save
	saveRateLimit  = 50  // creates per second across all saves
	saveRateBurst  = 10
)

var entryFields = map[string]struct{}{
	models.EntryFieldName:              {},
	models.EntryFieldCategory:          {},
	models.EntryFieldCostPrice:         {},
	models.EntryFieldSellingPrice:      {},
	models.EntryFieldCurrentStock:      {},
	models.EntryFieldLowStockThreshold: {},
}

// BulkEntryHandler owns the bulk-add entry grid: session lifecycle, row
// edits, template selection, and the save orchestration against the product
// store.
type BulkEntryHandler struct {
	sessions *bulkentry.SessionStore
	store    repository.ProductsStoreInterface
	notifier notify.Sink
	limiter  *rate.Limiter
	logger   *logrus.Entry
}

func NewBulkEntryHandler(sessions *bulkentry.SessionStore, store repository.ProductsStoreInterface, notifier notify.Sink, logger *logrus.Logger) *BulkEntryHandler {
	log := logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &BulkEntryHandler{
		sessions: sessions,
		store:    store,
		notifier: notifier,
		limiter:  rate.NewLimiter(rate.Limit(saveRateLimit), saveRateBurst),
		logger:   log.WithField("component", "bulk-entry-handler"),
	}
}

// OpenSession opens the tenant's bulk-entry session, creating one with blank
// rows if none exists. Re-opening an existing session never resets its rows.
// POST /api/v1/bulk-entry/sessions
func (h *BulkEntryHandler) OpenSession(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	rowCount := bulkentry.DefaultRowCount
	if rc := c.DefaultQuery("rows", ""); rc != "" {
		if parsed, err := strconv.Atoi(rc); err == nil && parsed > 0 {
			rowCount = parsed
		}
	}

	session, created := h.sessions.Open(tenantID, rowCount)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"success": true,
		"session": session.View(),
	})
}

// GetSession returns the session's rows, counts, and selection
// GET /api/v1/bulk-entry/sessions/:id
func (h *BulkEntryHandler) GetSession(c *gin.Context) {
	session, ok := h.findSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": session.View(),
	})
}

// UpdateRow applies one field edit and returns the re-validated row
// PATCH /api/v1/bulk-entry/sessions/:id/rows/:rowId
func (h *BulkEntryHandler) UpdateRow(c *gin.Context) {
	session, ok := h.findSession(c)
	if !ok {
		return
	}

	rowID, err := strconv.Atoi(c.Param("rowId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ROW_ID",
				Message: "Row ID must be an integer",
			},
		})
		return
	}

	var req models.UpdateRowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	if _, known := entryFields[req.Field]; !known {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "UNKNOWN_FIELD",
				Message: fmt.Sprintf("Unknown field '%s'", req.Field),
			},
		})
		return
	}

	row, ok := session.UpdateField(rowID, req.Field, req.RawValue)
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "ROW_NOT_FOUND",
				Message: fmt.Sprintf("Row %d does not exist", rowID),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"row":         row,
		"validCount":  session.CountValid(),
		"filledCount": session.CountFilled(),
	})
}

// ClearSession resets every row and empties the selection set. The session
// stays open.
// POST /api/v1/bulk-entry/sessions/:id/clear
func (h *BulkEntryHandler) ClearSession(c *gin.Context) {
	session, ok := h.findSession(c)
	if !ok {
		return
	}

	session.ClearAll()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": session.View(),
	})
}

// ToggleTemplate flips a template's membership in the session's selection
// set. Selection drives highlighting in the entry grid only; it never
// populates rows.
// POST /api/v1/bulk-entry/sessions/:id/templates/:templateId/toggle
func (h *BulkEntryHandler) ToggleTemplate(c *gin.Context) {
	session, ok := h.findSession(c)
	if !ok {
		return
	}

	templateID, err := uuid.Parse(c.Param("templateId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_TEMPLATE_ID",
				Message: "Invalid template ID",
			},
		})
		return
	}

	selected := session.ToggleTemplate(templateID)

	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"selected":            selected,
		"selectedTemplateIds": session.SelectedTemplateIDs(),
	})
}

// SaveSession collects the valid rows and creates them through the product
// store. Creates run independently: one row's failure never blocks the
// rest, and successful and failed counts are reported together. The session
// is discarded afterwards. A save with zero valid rows is a blocking
// condition that leaves the session untouched.
// POST /api/v1/bulk-entry/sessions/:id/save
func (h *BulkEntryHandler) SaveSession(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	session, ok := h.findSession(c)
	if !ok {
		return
	}

	products := session.CollectValidProducts()
	if len(products) == 0 {
		if h.notifier != nil {
			h.notifier.Notify(c.Request.Context(), tenantID, notify.Toast{
				Title:       "No Products to Save",
				Description: "Fill in at least one row with a name and selling price.",
				Variant:     notify.VariantDestructive,
			})
		}
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "NO_VALID_PRODUCTS",
				Message: "No valid products to save",
			},
		})
		return
	}

	result := h.bulkCreate(c, tenantID, products)

	h.sessions.Close(tenantID, session.ID)

	if h.notifier != nil {
		if result.Failed == 0 {
			h.notifier.Notify(c.Request.Context(), tenantID, notify.Toast{
				Title:       "Bulk Add Complete",
				Description: fmt.Sprintf("%d products added to your inventory.", result.Successful),
			})
		} else {
			h.notifier.Notify(c.Request.Context(), tenantID, notify.Toast{
				Title:       "Bulk Add Finished with Errors",
				Description: fmt.Sprintf("%d products added, %d failed.", result.Successful, result.Failed),
				Variant:     notify.VariantDestructive,
			})
		}
	}

	c.JSON(http.StatusOK, result)
}

// CloseSession discards the session without saving
// DELETE /api/v1/bulk-entry/sessions/:id
func (h *BulkEntryHandler) CloseSession(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_SESSION_ID",
				Message: "Invalid session ID",
			},
		})
		return
	}

	if !h.sessions.Close(tenantID, id) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "SESSION_NOT_FOUND",
				Message: "Session not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}

// bulkCreate runs per-row creates through a bounded worker pool and waits
// for every outcome before reporting counts.
func (h *BulkEntryHandler) bulkCreate(c *gin.Context, tenantID string, products []*models.Product) *models.BulkSaveResult {
	result := &models.BulkSaveResult{
		Total:      len(products),
		Errors:     make([]models.BulkSaveRowError, 0),
		CreatedIDs: make([]string, 0, len(products)),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, saveWorkers)

	for i, product := range products {
		wg.Add(1)
		sem <- struct{}{}
		go func(index int, p *models.Product) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := h.limiter.Wait(c.Request.Context()); err != nil {
				mu.Lock()
				result.Failed++
				result.Errors = append(result.Errors, models.BulkSaveRowError{
					Row:     index + 1,
					Code:    "CANCELLED",
					Message: err.Error(),
				})
				mu.Unlock()
				return
			}

			if err := h.store.CreateProduct(tenantID, p); err != nil {
				h.logger.WithFields(logrus.Fields{
					"tenantId": tenantID,
					"name":     p.Name,
				}).WithError(err).Error("Bulk create failed for row")
				mu.Lock()
				result.Failed++
				result.Errors = append(result.Errors, models.BulkSaveRowError{
					Row:     index + 1,
					Code:    "CREATE_FAILED",
					Message: err.Error(),
				})
				mu.Unlock()
				return
			}

			mu.Lock()
			result.Successful++
			result.CreatedIDs = append(result.CreatedIDs, p.ID.String())
			mu.Unlock()
		}(i, product)
	}

	wg.Wait()

	result.Success = result.Successful > 0
	return result
}

// findSession resolves the :id path param to an open session for the
// request tenant, writing the error response itself on failure.
func (h *BulkEntryHandler) findSession(c *gin.Context) (*bulkentry.Session, bool) {
	tenantID := middleware.GetTenantID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_SESSION_ID",
				Message: "Invalid session ID",
			},
		})
		return nil, false
	}

	session, ok := h.sessions.Get(tenantID, id)
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "SESSION_NOT_FOUND",
				Message: "Session not found",
			},
		})
		return nil, false
	}
	return session, true
}
