package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"product-entry-service/internal/bulkentry"
	"product-entry-service/internal/models"
	"product-entry-service/internal/repository"
)

// MockProductsStore is a mock product store
type MockProductsStore struct {
	mock.Mock
}

var _ repository.ProductsStoreInterface = (*MockProductsStore)(nil)

func (m *MockProductsStore) CreateProduct(tenantID string, product *models.Product) error {
	args := m.Called(tenantID, product)
	return args.Error(0)
}

func (m *MockProductsStore) GetProductByID(tenantID string, id uuid.UUID) (*models.Product, error) {
	args := m.Called(tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductsStore) ListProducts(tenantID string, q *models.ListProductsQuery) ([]models.Product, int64, error) {
	args := m.Called(tenantID, q)
	return args.Get(0).([]models.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductsStore) UpdateProduct(tenantID string, id uuid.UUID, req *models.UpdateProductRequest) (*models.Product, error) {
	args := m.Called(tenantID, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductsStore) DeleteProduct(tenantID string, id uuid.UUID) error {
	args := m.Called(tenantID, id)
	return args.Error(0)
}

func (m *MockProductsStore) RestockProduct(tenantID string, id uuid.UUID, quantity int) (*models.Product, error) {
	args := m.Called(tenantID, id, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductsStore) CreateVariation(tenantID string, parentID uuid.UUID, product *models.Product) error {
	args := m.Called(tenantID, parentID, product)
	return args.Error(0)
}

func (m *MockProductsStore) ListTemplates(tenantID string) ([]models.ProductTemplate, error) {
	args := m.Called(tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ProductTemplate), args.Error(1)
}

const testTenantID = "tenant-123"

// setupBulkEntryRouter wires the handler behind routes matching production
func setupBulkEntryRouter(h *BulkEntryHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("tenant_id", testTenantID)
		c.Next()
	})

	sessions := router.Group("/api/v1/bulk-entry/sessions")
	sessions.POST("", h.OpenSession)
	sessions.GET("/:id", h.GetSession)
	sessions.PATCH("/:id/rows/:rowId", h.UpdateRow)
	sessions.POST("/:id/clear", h.ClearSession)
	sessions.POST("/:id/templates/:templateId/toggle", h.ToggleTemplate)
	sessions.POST("/:id/save", h.SaveSession)
	sessions.DELETE("/:id", h.CloseSession)
	return router
}

func openSession(t *testing.T, router *gin.Engine) uuid.UUID {
	t.Helper()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/bulk-entry/sessions", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Session models.EntrySessionView `json:"session"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Session.ID
}

func patchRow(t *testing.T, router *gin.Engine, sessionID uuid.UUID, rowID int, field, value string) *httptest.ResponseRecorder {
	t.Helper()

	body, _ := json.Marshal(models.UpdateRowRequest{Field: field, RawValue: value})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PATCH",
		fmt.Sprintf("/api/v1/bulk-entry/sessions/%s/rows/%d", sessionID, rowID),
		bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestOpenSession_Idempotent(t *testing.T) {
	store := new(MockProductsStore)
	h := NewBulkEntryHandler(bulkentry.NewSessionStore(), store, nil, nil)
	router := setupBulkEntryRouter(h)

	first := openSession(t, router)

	// Re-opening returns the same session with 200
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/bulk-entry/sessions", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Session models.EntrySessionView `json:"session"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, first, resp.Session.ID)
	assert.Len(t, resp.Session.Rows, bulkentry.DefaultRowCount)
}

func TestUpdateRow_ReturnsRevalidatedRow(t *testing.T) {
	store := new(MockProductsStore)
	h := NewBulkEntryHandler(bulkentry.NewSessionStore(), store, nil, nil)
	router := setupBulkEntryRouter(h)
	sessionID := openSession(t, router)

	w := patchRow(t, router, sessionID, 1, models.EntryFieldName, "Widget")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Row         models.EntryRow `json:"row"`
		ValidCount  int             `json:"validCount"`
		FilledCount int             `json:"filledCount"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Row.IsValid)
	assert.Contains(t, resp.Row.Errors, "Selling price is required")
	assert.Equal(t, 0, resp.ValidCount)
	assert.Equal(t, 1, resp.FilledCount)

	w = patchRow(t, router, sessionID, 1, models.EntryFieldSellingPrice, "9.99")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Row.IsValid)
	assert.Empty(t, resp.Row.Errors)
	assert.Equal(t, 1, resp.ValidCount)
}

func TestUpdateRow_UnknownFieldAndMissingRow(t *testing.T) {
	store := new(MockProductsStore)
	h := NewBulkEntryHandler(bulkentry.NewSessionStore(), store, nil, nil)
	router := setupBulkEntryRouter(h)
	sessionID := openSession(t, router)

	w := patchRow(t, router, sessionID, 1, "sku", "W-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var errResp models.ErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "UNKNOWN_FIELD", errResp.Error.Code)

	w = patchRow(t, router, sessionID, 999, models.EntryFieldName, "Widget")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "ROW_NOT_FOUND", errResp.Error.Code)
}

func TestSaveSession_NoValidRowsIsBlocking(t *testing.T) {
	store := new(MockProductsStore)
	sessions := bulkentry.NewSessionStore()
	h := NewBulkEntryHandler(sessions, store, nil, nil)
	router := setupBulkEntryRouter(h)
	sessionID := openSession(t, router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", fmt.Sprintf("/api/v1/bulk-entry/sessions/%s/save", sessionID), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var errResp models.ErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "NO_VALID_PRODUCTS", errResp.Error.Code)

	// No create reached the store and the session survives
	store.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
	_, ok := sessions.Get(testTenantID, sessionID)
	assert.True(t, ok)
}

func TestSaveSession_PartialFailure(t *testing.T) {
	store := new(MockProductsStore)
	sessions := bulkentry.NewSessionStore()
	h := NewBulkEntryHandler(sessions, store, nil, nil)
	router := setupBulkEntryRouter(h)
	sessionID := openSession(t, router)

	for i, name := range []string{"Alpha", "Beta", "Gamma"} {
		patchRow(t, router, sessionID, i+1, models.EntryFieldName, name)
		patchRow(t, router, sessionID, i+1, models.EntryFieldSellingPrice, "9.99")
	}

	store.On("CreateProduct", testTenantID, mock.MatchedBy(func(p *models.Product) bool {
		return p.Name == "Beta"
	})).Return(fmt.Errorf("duplicate barcode"))
	store.On("CreateProduct", testTenantID, mock.MatchedBy(func(p *models.Product) bool {
		return p.Name != "Beta"
	})).Return(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", fmt.Sprintf("/api/v1/bulk-entry/sessions/%s/save", sessionID), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var result models.BulkSaveResult
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 1, result.Failed)
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, "CREATE_FAILED", result.Errors[0].Code)

	// Session is discarded after a save, even a partial one
	_, ok := sessions.Get(testTenantID, sessionID)
	assert.False(t, ok)

	store.AssertNumberOfCalls(t, "CreateProduct", 3)
}

func TestSaveSession_AllRowsSucceed(t *testing.T) {
	store := new(MockProductsStore)
	sessions := bulkentry.NewSessionStore()
	h := NewBulkEntryHandler(sessions, store, nil, nil)
	router := setupBulkEntryRouter(h)
	sessionID := openSession(t, router)

	patchRow(t, router, sessionID, 1, models.EntryFieldName, "Widget")
	patchRow(t, router, sessionID, 1, models.EntryFieldSellingPrice, "9.99")

	store.On("CreateProduct", testTenantID, mock.Anything).Run(func(args mock.Arguments) {
		p := args.Get(1).(*models.Product)
		assert.Equal(t, "Widget", p.Name)
		assert.Equal(t, 9.99, p.SellingPrice)
		assert.Equal(t, models.DefaultLowStockThreshold, p.LowStockThreshold)
		p.ID = uuid.New()
	}).Return(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", fmt.Sprintf("/api/v1/bulk-entry/sessions/%s/save", sessionID), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var result models.BulkSaveResult
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 0, result.Failed)
	assert.Len(t, result.CreatedIDs, 1)
}

func TestClearSession_KeepsSessionOpen(t *testing.T) {
	store := new(MockProductsStore)
	sessions := bulkentry.NewSessionStore()
	h := NewBulkEntryHandler(sessions, store, nil, nil)
	router := setupBulkEntryRouter(h)
	sessionID := openSession(t, router)

	patchRow(t, router, sessionID, 1, models.EntryFieldName, "Widget")
	patchRow(t, router, sessionID, 1, models.EntryFieldSellingPrice, "9.99")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", fmt.Sprintf("/api/v1/bulk-entry/sessions/%s/clear", sessionID), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Session models.EntrySessionView `json:"session"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, sessionID, resp.Session.ID)
	assert.Len(t, resp.Session.Rows, bulkentry.DefaultRowCount)
	assert.Equal(t, 0, resp.Session.ValidCount)
	assert.Equal(t, 0, resp.Session.FilledCount)

	_, ok := sessions.Get(testTenantID, sessionID)
	assert.True(t, ok)
}

func TestToggleTemplate_Selection(t *testing.T) {
	store := new(MockProductsStore)
	h := NewBulkEntryHandler(bulkentry.NewSessionStore(), store, nil, nil)
	router := setupBulkEntryRouter(h)
	sessionID := openSession(t, router)
	templateID := uuid.New()

	toggle := func() (bool, []string) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST",
			fmt.Sprintf("/api/v1/bulk-entry/sessions/%s/templates/%s/toggle", sessionID, templateID), nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Selected    bool     `json:"selected"`
			SelectedIDs []string `json:"selectedTemplateIds"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp.Selected, resp.SelectedIDs
	}

	selected, ids := toggle()
	assert.True(t, selected)
	assert.Equal(t, []string{templateID.String()}, ids)

	selected, ids = toggle()
	assert.False(t, selected)
	assert.Empty(t, ids)
}

func TestCloseSession(t *testing.T) {
	store := new(MockProductsStore)
	sessions := bulkentry.NewSessionStore()
	h := NewBulkEntryHandler(sessions, store, nil, nil)
	router := setupBulkEntryRouter(h)
	sessionID := openSession(t, router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", fmt.Sprintf("/api/v1/bulk-entry/sessions/%s", sessionID), nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Closing again is a 404
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("DELETE", fmt.Sprintf("/api/v1/bulk-entry/sessions/%s", sessionID), nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
