package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"product-entry-service/internal/syncer"
)

type SyncHandler struct {
	sync *syncer.Store
}

func NewSyncHandler(sync *syncer.Store) *SyncHandler {
	return &SyncHandler{sync: sync}
}

// GetStatus returns the offline-sync bookkeeping: connectivity, the number
// of pending operations, and the overall sync state.
// GET /api/v1/sync/status
func (h *SyncHandler) GetStatus(c *gin.Context) {
	status := h.sync.Status()
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"isOnline":          status.IsOnline,
		"pendingOperations": status.PendingOperations,
		"syncStatus":        status.SyncStatus,
	})
}
