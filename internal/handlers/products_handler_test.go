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
	"product-entry-service/internal/models"
	"product-entry-service/internal/repository"
)

func setupProductsRouter(h *ProductsHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("tenant_id", testTenantID)
		c.Next()
	})

	products := router.Group("/api/v1/products")
	products.POST("", h.CreateProduct)
	products.GET("", h.ListProducts)
	products.GET("/:id", h.GetProduct)
	products.PUT("/:id", h.UpdateProduct)
	products.DELETE("/:id", h.DeleteProduct)
	products.POST("/:id/restock", h.RestockProduct)
	products.POST("/:id/variations", h.CreateVariation)
	return router
}

func TestCreateProduct_AppliesThresholdDefault(t *testing.T) {
	store := new(MockProductsStore)
	h := NewProductsHandler(store, nil, nil, nil)
	router := setupProductsRouter(h)

	store.On("CreateProduct", testTenantID, mock.Anything).Run(func(args mock.Arguments) {
		p := args.Get(1).(*models.Product)
		assert.Equal(t, "Widget", p.Name)
		assert.Equal(t, 9.99, p.SellingPrice)
		assert.Equal(t, models.DefaultLowStockThreshold, p.LowStockThreshold)
		p.ID = uuid.New()
	}).Return(nil)

	body, _ := json.Marshal(models.CreateProductRequest{
		Name:         "Widget",
		SellingPrice: 9.99,
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/products", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	store.AssertExpectations(t)
}

func TestCreateProduct_MissingName(t *testing.T) {
	store := new(MockProductsStore)
	h := NewProductsHandler(store, nil, nil, nil)
	router := setupProductsRouter(h)

	body := []byte(`{"sellingPrice": 9.99}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/products", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	store.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
}

func TestGetProduct_NotFound(t *testing.T) {
	store := new(MockProductsStore)
	h := NewProductsHandler(store, nil, nil, nil)
	router := setupProductsRouter(h)

	id := uuid.New()
	store.On("GetProductByID", testTenantID, id).Return(nil, repository.ErrProductNotFound)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/products/"+id.String(), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var errResp models.ErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "NOT_FOUND", errResp.Error.Code)
}

func TestGetProduct_InvalidID(t *testing.T) {
	store := new(MockProductsStore)
	h := NewProductsHandler(store, nil, nil, nil)
	router := setupProductsRouter(h)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/products/not-a-uuid", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateProduct_PartialEdit(t *testing.T) {
	store := new(MockProductsStore)
	h := NewProductsHandler(store, nil, nil, nil)
	router := setupProductsRouter(h)

	id := uuid.New()
	store.On("UpdateProduct", testTenantID, id, mock.MatchedBy(func(req *models.UpdateProductRequest) bool {
		return req.SellingPrice != nil && *req.SellingPrice == 12.50 && req.Name == nil
	})).Return(&models.Product{ID: id, TenantID: testTenantID, Name: "Widget", SellingPrice: 12.50}, nil)

	body := []byte(`{"sellingPrice": 12.50}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/v1/products/"+id.String(), bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	store.AssertExpectations(t)
}

func TestRestockProduct(t *testing.T) {
	store := new(MockProductsStore)
	h := NewProductsHandler(store, nil, nil, nil)
	router := setupProductsRouter(h)

	id := uuid.New()
	store.On("RestockProduct", testTenantID, id, 25).Return(&models.Product{
		ID: id, TenantID: testTenantID, Name: "Widget", CurrentStock: 30, LowStockThreshold: 10,
	}, nil)

	body := []byte(`{"quantity": 25}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", fmt.Sprintf("/api/v1/products/%s/restock", id), bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	store.AssertExpectations(t)
}

func TestCreateVariation_ParentNotFound(t *testing.T) {
	store := new(MockProductsStore)
	h := NewProductsHandler(store, nil, nil, nil)
	router := setupProductsRouter(h)

	parentID := uuid.New()
	store.On("CreateVariation", testTenantID, parentID, mock.Anything).Return(repository.ErrParentNotFound)

	body, _ := json.Marshal(models.CreateProductRequest{Name: "Widget XL", SellingPrice: 14.99})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", fmt.Sprintf("/api/v1/products/%s/variations", parentID), bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var errResp models.ErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "PARENT_NOT_FOUND", errResp.Error.Code)
}

func TestDeleteProduct(t *testing.T) {
	store := new(MockProductsStore)
	h := NewProductsHandler(store, nil, nil, nil)
	router := setupProductsRouter(h)

	id := uuid.New()
	store.On("DeleteProduct", testTenantID, id).Return(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/api/v1/products/"+id.String(), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	store.AssertExpectations(t)
}
