// Package syncer wraps the product store with offline bookkeeping: a
// connectivity prober, a pending-operation backlog that replays on
// reconnect, and online/offline notifications.
package syncer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"product-entry-service/internal/models"
	"product-entry-service/internal/notify"
	"product-entry-service/internal/repository"
)

// DefaultProbeInterval is how often connectivity is checked
const DefaultProbeInterval = 10 * time.Second

// Backend is the persistence layer the syncer fronts
type Backend interface {
	repository.ProductsStoreInterface
	DBHealth(ctx context.Context) error
}

// Status is the sync bookkeeping exposed to clients
type Status struct {
	IsOnline          bool              `json:"isOnline"`
	PendingOperations int               `json:"pendingOperations"`
	SyncStatus        models.SyncStatus `json:"syncStatus"`
}

// operation is one queued write awaiting replay
type operation struct {
	kind     string
	tenantID string
	apply    func(ctx context.Context) error
}

// Store is a sync-aware product store. Reads always pass through; writes are
// queued while the backend is unreachable and replayed in order once it
// recovers.
type Store struct {
	backend  Backend
	notifier notify.Sink
	logger   *logrus.Entry

	online atomic.Bool

	mu      sync.Mutex
	backlog []operation
	status  models.SyncStatus

	cancel context.CancelFunc
}

var _ repository.ProductsStoreInterface = (*Store)(nil)

// New creates a sync-aware store. It starts online; the prober corrects
// that on its first pass if the backend is down.
func New(backend Backend, notifier notify.Sink, logger *logrus.Logger) *Store {
	log := logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Store{
		backend:  backend,
		notifier: notifier,
		logger:   log.WithField("component", "syncer"),
		status:   models.SyncStatusSynced,
	}
	s.online.Store(true)
	return s
}

// Start launches the connectivity prober
func (s *Store) Start(parent context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	go s.probe(ctx, interval)
}

// Stop halts the prober
func (s *Store) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// probe pings the backend on an interval and drives online/offline
// transitions.
func (s *Store) probe(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := s.backend.DBHealth(pingCtx)
		cancel()

		if err != nil {
			s.markOffline(ctx)
			continue
		}
		s.markOnline(ctx)
	}
}

func (s *Store) markOffline(ctx context.Context) {
	if !s.online.CompareAndSwap(true, false) {
		return
	}
	s.logger.Warn("Backend unreachable, entering offline mode")
	if s.notifier != nil {
		s.notifier.Notify(ctx, "", notify.Toast{
			Title:       "You're Offline",
			Description: "Changes will be saved locally and synced when you're back online.",
			Variant:     notify.VariantDestructive,
		})
	}
}

func (s *Store) markOnline(ctx context.Context) {
	if !s.online.CompareAndSwap(false, true) {
		return
	}

	pending := s.PendingOperations()
	s.logger.WithField("pendingOperations", pending).Info("Backend reachable again")
	if s.notifier != nil {
		s.notifier.Notify(ctx, "", notify.Toast{
			Title:       "Back Online",
			Description: "Connection restored. Syncing your changes...",
		})
	}
	s.replay(ctx)
}

// replay drains the backlog in FIFO order. A failed operation is dropped
// after logging; the user already saw an optimistic result, so the status
// flips to FAILED instead of blocking the remaining operations.
func (s *Store) replay(ctx context.Context) {
	s.mu.Lock()
	ops := s.backlog
	s.backlog = nil
	if len(ops) > 0 {
		s.status = models.SyncStatusPending
	}
	s.mu.Unlock()

	if len(ops) == 0 {
		return
	}

	failed := 0
	for _, op := range ops {
		if err := op.apply(ctx); err != nil {
			failed++
			s.logger.WithFields(logrus.Fields{
				"operation": op.kind,
				"tenantId":  op.tenantID,
			}).WithError(err).Error("Failed to replay queued operation")
		}
	}

	s.mu.Lock()
	if failed > 0 {
		s.status = models.SyncStatusFailed
	} else {
		s.status = models.SyncStatusSynced
	}
	s.mu.Unlock()

	if s.notifier != nil {
		if failed == 0 {
			s.notifier.Notify(ctx, "", notify.Toast{
				Title:       "Sync Complete",
				Description: "All pending changes have been saved.",
			})
		} else {
			s.notifier.Notify(ctx, "", notify.Toast{
				Title:       "Sync Incomplete",
				Description: "Some pending changes could not be saved.",
				Variant:     notify.VariantDestructive,
			})
		}
	}
}

// IsOnline reports current connectivity
func (s *Store) IsOnline() bool {
	return s.online.Load()
}

// PendingOperations returns the backlog size
func (s *Store) PendingOperations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.backlog)
}

// Status returns the current sync bookkeeping
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		IsOnline:          s.online.Load(),
		PendingOperations: len(s.backlog),
		SyncStatus:        s.status,
	}
}

// enqueue adds an operation to the backlog
func (s *Store) enqueue(kind, tenantID string, apply func(ctx context.Context) error) {
	s.mu.Lock()
	s.backlog = append(s.backlog, operation{kind: kind, tenantID: tenantID, apply: apply})
	s.status = models.SyncStatusPending
	size := len(s.backlog)
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"operation": kind,
		"tenantId":  tenantID,
		"backlog":   size,
	}).Info("Queued operation for sync")
}

// CreateProduct creates a product, or queues the create while offline.
// Offline creates are optimistic: the product gets its ID immediately and
// the write replays later.
func (s *Store) CreateProduct(tenantID string, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}

	if !s.online.Load() {
		queued := *product
		s.enqueue("create_product", tenantID, func(ctx context.Context) error {
			return s.backend.CreateProduct(tenantID, &queued)
		})
		return nil
	}
	return s.backend.CreateProduct(tenantID, product)
}

// UpdateProduct applies a product edit, or queues it while offline. Offline
// updates return the patch echoed onto a minimal product record.
func (s *Store) UpdateProduct(tenantID string, id uuid.UUID, req *models.UpdateProductRequest) (*models.Product, error) {
	if !s.online.Load() {
		queued := *req
		s.enqueue("update_product", tenantID, func(ctx context.Context) error {
			_, err := s.backend.UpdateProduct(tenantID, id, &queued)
			return err
		})
		return &models.Product{ID: id, TenantID: tenantID}, nil
	}
	return s.backend.UpdateProduct(tenantID, id, req)
}

// DeleteProduct deletes a product, or queues the delete while offline
func (s *Store) DeleteProduct(tenantID string, id uuid.UUID) error {
	if !s.online.Load() {
		s.enqueue("delete_product", tenantID, func(ctx context.Context) error {
			return s.backend.DeleteProduct(tenantID, id)
		})
		return nil
	}
	return s.backend.DeleteProduct(tenantID, id)
}

// RestockProduct adjusts stock, or queues the adjustment while offline
func (s *Store) RestockProduct(tenantID string, id uuid.UUID, quantity int) (*models.Product, error) {
	if !s.online.Load() {
		s.enqueue("restock_product", tenantID, func(ctx context.Context) error {
			_, err := s.backend.RestockProduct(tenantID, id, quantity)
			return err
		})
		return &models.Product{ID: id, TenantID: tenantID}, nil
	}
	return s.backend.RestockProduct(tenantID, id, quantity)
}

// CreateVariation creates a product variation, or queues it while offline
func (s *Store) CreateVariation(tenantID string, parentID uuid.UUID, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}

	if !s.online.Load() {
		queued := *product
		s.enqueue("create_variation", tenantID, func(ctx context.Context) error {
			return s.backend.CreateVariation(tenantID, parentID, &queued)
		})
		return nil
	}
	return s.backend.CreateVariation(tenantID, parentID, product)
}

// GetProductByID always reads through to the backend
func (s *Store) GetProductByID(tenantID string, id uuid.UUID) (*models.Product, error) {
	return s.backend.GetProductByID(tenantID, id)
}

// ListProducts always reads through to the backend
func (s *Store) ListProducts(tenantID string, q *models.ListProductsQuery) ([]models.Product, int64, error) {
	return s.backend.ListProducts(tenantID, q)
}

// ListTemplates always reads through to the backend
func (s *Store) ListTemplates(tenantID string) ([]models.ProductTemplate, error) {
	return s.backend.ListTemplates(tenantID)
}
