package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"product-entry-service/internal/models"
)

// Cache TTL constants
const (
	ProductCacheTTL      = 5 * time.Minute
	ProductListCacheTTL  = 2 * time.Minute
	TemplateListCacheTTL = 30 * time.Minute // Templates rarely change
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrParentNotFound   = errors.New("parent product not found")
	ErrTemplateNotFound = errors.New("template not found")
)

// ProductsStoreInterface is the product store surface consumed by handlers
// and by the sync layer. The concrete repository and the sync-aware wrapper
// both implement it.
type ProductsStoreInterface interface {
	CreateProduct(tenantID string, product *models.Product) error
	GetProductByID(tenantID string, id uuid.UUID) (*models.Product, error)
	ListProducts(tenantID string, q *models.ListProductsQuery) ([]models.Product, int64, error)
	UpdateProduct(tenantID string, id uuid.UUID, req *models.UpdateProductRequest) (*models.Product, error)
	DeleteProduct(tenantID string, id uuid.UUID) error
	RestockProduct(tenantID string, id uuid.UUID, quantity int) (*models.Product, error)
	CreateVariation(tenantID string, parentID uuid.UUID, product *models.Product) error
	ListTemplates(tenantID string) ([]models.ProductTemplate, error)
}

type ProductsRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

var _ ProductsStoreInterface = (*ProductsRepository)(nil)

func NewProductsRepository(db *gorm.DB, redis *redis.Client) *ProductsRepository {
	return &ProductsRepository{
		db:    db,
		redis: redis,
	}
}

// invalidateProductCaches invalidates all product caches for a tenant
func (r *ProductsRepository) invalidateProductCaches(ctx context.Context, tenantID string, productID *uuid.UUID) {
	if r.redis == nil {
		return
	}

	if productID != nil {
		r.redis.Del(ctx, fmt.Sprintf("entry:product:%s:%s", tenantID, productID.String()))
	}
	pattern := fmt.Sprintf("entry:products:list:%s:*", tenantID)
	keys, _ := r.redis.Keys(ctx, pattern).Result()
	if len(keys) > 0 {
		r.redis.Del(ctx, keys...)
	}
}

// InvalidateTemplateCache drops the cached template list for a tenant.
// Called by the catalog event subscriber when the upstream catalog changes.
func (r *ProductsRepository) InvalidateTemplateCache(ctx context.Context, tenantID string) {
	if r.redis == nil {
		return
	}
	r.redis.Del(ctx, fmt.Sprintf("entry:templates:%s", tenantID))
}

// CreateProduct creates a new product with tenant isolation
func (r *ProductsRepository) CreateProduct(tenantID string, product *models.Product) error {
	product.TenantID = tenantID
	product.CreatedAt = time.Now()
	product.UpdatedAt = time.Now()

	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}

	err := r.db.Create(product).Error
	if err == nil {
		r.invalidateProductCaches(context.Background(), tenantID, nil)
	}
	return err
}

// GetProductByID retrieves a product by ID with tenant isolation and caching
// SECURITY: Always requires tenantID to prevent cross-tenant access
func (r *ProductsRepository) GetProductByID(tenantID string, id uuid.UUID) (*models.Product, error) {
	ctx := context.Background()
	cacheKey := fmt.Sprintf("entry:product:%s:%s", tenantID, id.String())

	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var product models.Product
			if err := json.Unmarshal([]byte(val), &product); err == nil {
				return &product, nil
			}
		}
	}

	var product models.Product
	err := r.db.Where("tenant_id = ? AND id = ?", tenantID, id).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(&product); err == nil {
			r.redis.Set(ctx, cacheKey, data, ProductCacheTTL)
		}
	}

	return &product, nil
}

// ListProducts returns a filtered, paginated product page with caching
func (r *ProductsRepository) ListProducts(tenantID string, q *models.ListProductsQuery) ([]models.Product, int64, error) {
	ctx := context.Background()
	cacheKey := fmt.Sprintf("entry:products:list:%s:%s:%s:%t:%d:%d",
		tenantID, q.Search, q.Category, q.LowStock, q.Page, q.Limit)

	type listPage struct {
		Products []models.Product `json:"products"`
		Total    int64            `json:"total"`
	}

	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var page listPage
			if err := json.Unmarshal([]byte(val), &page); err == nil {
				return page.Products, page.Total, nil
			}
		}
	}

	query := r.db.Model(&models.Product{}).Where("tenant_id = ?", tenantID)

	if q.Search != "" {
		like := "%" + q.Search + "%"
		query = query.Where("name ILIKE ? OR category ILIKE ? OR barcode ILIKE ?", like, like, like)
	}
	if q.Category != "" && q.Category != "all" {
		query = query.Where("category = ?", q.Category)
	}
	if q.LowStock {
		query = query.Where("current_stock <= low_stock_threshold")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = 20
	}

	var products []models.Product
	err := query.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(listPage{Products: products, Total: total}); err == nil {
			r.redis.Set(ctx, cacheKey, data, ProductListCacheTTL)
		}
	}

	return products, total, nil
}

// UpdateProduct applies a partial update to a product, returning the updated
// record. Nil request fields are left unchanged.
func (r *ProductsRepository) UpdateProduct(tenantID string, id uuid.UUID, req *models.UpdateProductRequest) (*models.Product, error) {
	var product models.Product
	err := r.db.Where("tenant_id = ? AND id = ?", tenantID, id).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.CostPrice != nil {
		updates["cost_price"] = *req.CostPrice
	}
	if req.SellingPrice != nil {
		updates["selling_price"] = *req.SellingPrice
	}
	if req.CurrentStock != nil {
		updates["current_stock"] = *req.CurrentStock
	}
	if req.LowStockThreshold != nil {
		updates["low_stock_threshold"] = *req.LowStockThreshold
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Barcode != nil {
		updates["barcode"] = *req.Barcode
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}

	if err := r.db.Model(&product).Updates(updates).Error; err != nil {
		return nil, err
	}

	r.invalidateProductCaches(context.Background(), tenantID, &id)
	return &product, nil
}

// DeleteProduct soft-deletes a product with tenant isolation
func (r *ProductsRepository) DeleteProduct(tenantID string, id uuid.UUID) error {
	result := r.db.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&models.Product{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}

	r.invalidateProductCaches(context.Background(), tenantID, &id)
	return nil
}

// RestockProduct adjusts a product's stock by quantity. Stock never drops
// below zero.
func (r *ProductsRepository) RestockProduct(tenantID string, id uuid.UUID, quantity int) (*models.Product, error) {
	var product models.Product

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ? AND id = ?", tenantID, id).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}

		newStock := product.CurrentStock + quantity
		if newStock < 0 {
			newStock = 0
		}
		product.CurrentStock = newStock
		product.UpdatedAt = time.Now()

		return tx.Model(&product).Updates(map[string]interface{}{
			"current_stock": newStock,
			"updated_at":    product.UpdatedAt,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	r.invalidateProductCaches(context.Background(), tenantID, &id)
	return &product, nil
}

// CreateVariation creates a product as a variation of an existing parent.
// The variation inherits the parent's category when none is given.
func (r *ProductsRepository) CreateVariation(tenantID string, parentID uuid.UUID, product *models.Product) error {
	var parent models.Product
	err := r.db.Where("tenant_id = ? AND id = ?", tenantID, parentID).First(&parent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrParentNotFound
		}
		return err
	}

	if product.Category == "" {
		product.Category = parent.Category
	}
	product.ParentID = &parent.ID

	return r.CreateProduct(tenantID, product)
}

// ListTemplates returns the tenant's product template catalog with caching.
// The catalog is owned upstream; this service only reads it.
func (r *ProductsRepository) ListTemplates(tenantID string) ([]models.ProductTemplate, error) {
	ctx := context.Background()
	cacheKey := fmt.Sprintf("entry:templates:%s", tenantID)

	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var templates []models.ProductTemplate
			if err := json.Unmarshal([]byte(val), &templates); err == nil {
				return templates, nil
			}
		}
	}

	var templates []models.ProductTemplate
	err := r.db.Where("tenant_id = ?", tenantID).
		Order("name ASC").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(templates); err == nil {
			r.redis.Set(ctx, cacheKey, data, TemplateListCacheTTL)
		}
	}

	return templates, nil
}

// RedisHealth pings Redis for health checks
func (r *ProductsRepository) RedisHealth(ctx context.Context) error {
	if r.redis == nil {
		return errors.New("redis not configured")
	}
	return r.redis.Ping(ctx).Err()
}

// DBHealth pings the database for health and connectivity probing
func (r *ProductsRepository) DBHealth(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
