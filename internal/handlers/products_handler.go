package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"product-entry-service/internal/events"
	"product-entry-service/internal/middleware"
	"product-entry-service/internal/models"
	"product-entry-service/internal/notify"
	"product-entry-service/internal/repository"
)

type ProductsHandler struct {
	store     repository.ProductsStoreInterface
	publisher *events.ProductEventPublisher
	notifier  notify.Sink
	logger    *logrus.Entry
}

func NewProductsHandler(store repository.ProductsStoreInterface, publisher *events.ProductEventPublisher, notifier notify.Sink, logger *logrus.Logger) *ProductsHandler {
	log := logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ProductsHandler{
		store:     store,
		publisher: publisher,
		notifier:  notifier,
		logger:    log.WithField("component", "products-handler"),
	}
}

// CreateProduct creates a single product
// POST /api/v1/products
func (h *ProductsHandler) CreateProduct(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	var req models.CreateProductRequest
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

	product := productFromCreateRequest(&req)
	if err := h.store.CreateProduct(tenantID, product); err != nil {
		h.logger.WithError(err).Error("Failed to create product")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "CREATE_FAILED",
				Message: "Failed to create product",
			},
		})
		return
	}

	if h.publisher != nil {
		h.publisher.PublishProductCreated(c.Request.Context(), tenantID, product)
		if product.IsLowStock() {
			h.publisher.PublishLowStockAlert(c.Request.Context(), tenantID, product)
		}
	}
	if h.notifier != nil {
		h.notifier.Notify(c.Request.Context(), tenantID, notify.Toast{
			Title:       "Product Added",
			Description: product.Name + " has been added to your inventory.",
		})
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"product": product,
	})
}

// ListProducts returns a filtered, paginated product list
// GET /api/v1/products
func (h *ProductsHandler) ListProducts(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	var q models.ListProductsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_QUERY",
				Message: err.Error(),
			},
		})
		return
	}

	products, total, err := h.store.ListProducts(tenantID, &q)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list products")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "LIST_FAILED",
				Message: "Failed to list products",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"products": products,
		"total":    total,
	})
}

// GetProduct returns a single product
// GET /api/v1/products/:id
func (h *ProductsHandler) GetProduct(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Invalid product ID",
			},
		})
		return
	}

	product, err := h.store.GetProductByID(tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "NOT_FOUND",
					Message: "Product not found",
				},
			})
			return
		}
		h.logger.WithError(err).Error("Failed to get product")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "GET_FAILED",
				Message: "Failed to get product",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"product": product,
	})
}

// UpdateProduct applies a partial edit to a product
// PUT /api/v1/products/:id
func (h *ProductsHandler) UpdateProduct(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Invalid product ID",
			},
		})
		return
	}

	var req models.UpdateProductRequest
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

	product, err := h.store.UpdateProduct(tenantID, id, &req)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "NOT_FOUND",
					Message: "Product not found",
				},
			})
			return
		}
		h.logger.WithError(err).Error("Failed to update product")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "UPDATE_FAILED",
				Message: "Failed to update product",
			},
		})
		return
	}

	if h.publisher != nil {
		h.publisher.PublishProductUpdated(c.Request.Context(), tenantID, product, changedFields(&req))
	}
	if h.notifier != nil {
		h.notifier.Notify(c.Request.Context(), tenantID, notify.Toast{
			Title:       "Product Updated",
			Description: "Your changes have been saved.",
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"product": product,
	})
}

// DeleteProduct removes a product
// DELETE /api/v1/products/:id
func (h *ProductsHandler) DeleteProduct(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Invalid product ID",
			},
		})
		return
	}

	if err := h.store.DeleteProduct(tenantID, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "NOT_FOUND",
					Message: "Product not found",
				},
			})
			return
		}
		h.logger.WithError(err).Error("Failed to delete product")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DELETE_FAILED",
				Message: "Failed to delete product",
			},
		})
		return
	}

	if h.publisher != nil {
		h.publisher.PublishProductDeleted(c.Request.Context(), tenantID, &models.Product{ID: id, TenantID: tenantID})
	}
	if h.notifier != nil {
		h.notifier.Notify(c.Request.Context(), tenantID, notify.Toast{
			Title:       "Product Deleted",
			Description: "The product has been removed from your inventory.",
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}

// RestockProduct adjusts a product's stock level
// POST /api/v1/products/:id/restock
func (h *ProductsHandler) RestockProduct(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Invalid product ID",
			},
		})
		return
	}

	var req models.RestockRequest
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

	product, err := h.store.RestockProduct(tenantID, id, req.Quantity)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "NOT_FOUND",
					Message: "Product not found",
				},
			})
			return
		}
		h.logger.WithError(err).Error("Failed to restock product")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "RESTOCK_FAILED",
				Message: "Failed to restock product",
			},
		})
		return
	}

	if h.publisher != nil && product.IsLowStock() {
		h.publisher.PublishLowStockAlert(c.Request.Context(), tenantID, product)
	}
	if h.notifier != nil {
		h.notifier.Notify(c.Request.Context(), tenantID, notify.Toast{
			Title:       "Stock Updated",
			Description: product.Name + " stock has been adjusted.",
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"product": product,
	})
}

// CreateVariation creates a new product as a variation of an existing one
// POST /api/v1/products/:id/variations
func (h *ProductsHandler) CreateVariation(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	parentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Invalid product ID",
			},
		})
		return
	}

	var req models.CreateProductRequest
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

	variation := productFromCreateRequest(&req)
	if err := h.store.CreateVariation(tenantID, parentID, variation); err != nil {
		if errors.Is(err, repository.ErrParentNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "PARENT_NOT_FOUND",
					Message: "Parent product not found",
				},
			})
			return
		}
		h.logger.WithError(err).Error("Failed to create variation")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "CREATE_FAILED",
				Message: "Failed to create variation",
			},
		})
		return
	}

	if h.publisher != nil {
		h.publisher.PublishProductCreated(c.Request.Context(), tenantID, variation)
	}
	if h.notifier != nil {
		h.notifier.Notify(c.Request.Context(), tenantID, notify.Toast{
			Title:       "Variation Added",
			Description: variation.Name + " has been added as a variation.",
		})
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"product": variation,
	})
}

// productFromCreateRequest maps a create payload to the product model,
// applying the same defaults the bulk-entry path uses.
func productFromCreateRequest(req *models.CreateProductRequest) *models.Product {
	threshold := models.DefaultLowStockThreshold
	if req.LowStockThreshold != nil {
		threshold = *req.LowStockThreshold
	}
	return &models.Product{
		Name:              req.Name,
		Category:          req.Category,
		CostPrice:         req.CostPrice,
		SellingPrice:      req.SellingPrice,
		CurrentStock:      req.CurrentStock,
		LowStockThreshold: threshold,
		Description:       req.Description,
		Barcode:           req.Barcode,
		ImageURL:          req.ImageURL,
	}
}

// changedFields lists the non-nil fields in an update request
func changedFields(req *models.UpdateProductRequest) []string {
	fields := make([]string, 0, 9)
	if req.Name != nil {
		fields = append(fields, "name")
	}
	if req.Category != nil {
		fields = append(fields, "category")
	}
	if req.CostPrice != nil {
		fields = append(fields, "costPrice")
	}
	if req.SellingPrice != nil {
		fields = append(fields, "sellingPrice")
	}
	if req.CurrentStock != nil {
		fields = append(fields, "currentStock")
	}
	if req.LowStockThreshold != nil {
		fields = append(fields, "lowStockThreshold")
	}
	if req.Description != nil {
		fields = append(fields, "description")
	}
	if req.Barcode != nil {
		fields = append(fields, "barcode")
	}
	if req.ImageURL != nil {
		fields = append(fields, "imageUrl")
	}
	return fields
}
