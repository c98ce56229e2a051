package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"product-entry-service/internal/repository"
	"product-entry-service/internal/syncer"
)

// HealthCheck returns service health status (basic)
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "product-entry-service",
	})
}

type HealthHandler struct {
	repo *repository.ProductsRepository
	sync *syncer.Store
}

func NewHealthHandler(repo *repository.ProductsRepository, sync *syncer.Store) *HealthHandler {
	return &HealthHandler{repo: repo, sync: sync}
}

// ExtendedHealthCheck returns detailed health status including the database
// and Redis
func (h *HealthHandler) ExtendedHealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	health := gin.H{
		"status":  "healthy",
		"service": "product-entry-service",
		"checks":  gin.H{},
	}

	checks := health["checks"].(gin.H)

	if err := h.repo.DBHealth(ctx); err != nil {
		checks["database"] = gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		}
	} else {
		checks["database"] = gin.H{
			"status": "healthy",
		}
	}

	if err := h.repo.RedisHealth(ctx); err != nil {
		checks["redis"] = gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		}
	} else {
		checks["redis"] = gin.H{
			"status": "healthy",
		}
	}

	if h.sync != nil {
		checks["sync"] = gin.H{
			"isOnline":          h.sync.IsOnline(),
			"pendingOperations": h.sync.PendingOperations(),
		}
	}

	// Determine overall health
	for _, check := range checks {
		if checkMap, ok := check.(gin.H); ok {
			if status, ok := checkMap["status"]; ok && status == "unhealthy" {
				health["status"] = "degraded"
				break
			}
		}
	}

	c.JSON(http.StatusOK, health)
}
