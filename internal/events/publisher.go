// Package events provides NATS event publishing and subscription for
// product-entry-service
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/Tesseract-Nexus/go-shared/events"
	"github.com/sirupsen/logrus"
	"product-entry-service/internal/models"
)

// ProductEventPublisher handles publishing product and stock events to NATS
type ProductEventPublisher struct {
	publisher *events.Publisher
	logger    *logrus.Entry
}

// NewProductEventPublisher creates a new product event publisher
func NewProductEventPublisher(natsURL string, logger *logrus.Logger) (*ProductEventPublisher, error) {
	if natsURL == "" {
		return nil, fmt.Errorf("NATS URL is required")
	}

	log := logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	config := events.DefaultPublisherConfig(natsURL)
	config.Name = "product-entry-service-publisher"

	publisher, err := events.NewPublisher(config, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}

	// Ensure streams exist
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := publisher.EnsureStream(ctx, events.StreamProducts, []string{"product.>"}); err != nil {
		log.WithError(err).Warn("Failed to ensure products stream exists")
	}
	if err := publisher.EnsureStream(ctx, events.StreamInventory, []string{"inventory.>"}); err != nil {
		log.WithError(err).Warn("Failed to ensure inventory stream exists")
	}

	return &ProductEventPublisher{
		publisher: publisher,
		logger:    log.WithField("component", "product-events"),
	}, nil
}

// PublishProductCreated publishes a product.created event
func (p *ProductEventPublisher) PublishProductCreated(ctx context.Context, tenantID string, product *models.Product) error {
	event := p.buildProductEvent(events.ProductCreated, tenantID, product)
	event.ChangeType = "created"
	return p.publish(ctx, event)
}

// PublishProductUpdated publishes a product.updated event
func (p *ProductEventPublisher) PublishProductUpdated(ctx context.Context, tenantID string, product *models.Product, changedFields []string) error {
	event := p.buildProductEvent(events.ProductUpdated, tenantID, product)
	event.ChangeType = "updated"
	event.ChangedFields = changedFields
	return p.publish(ctx, event)
}

// PublishProductDeleted publishes a product.deleted event
func (p *ProductEventPublisher) PublishProductDeleted(ctx context.Context, tenantID string, product *models.Product) error {
	event := p.buildProductEvent(events.ProductDeleted, tenantID, product)
	event.ChangeType = "deleted"
	return p.publish(ctx, event)
}

// PublishLowStockAlert publishes an inventory.low_stock event
func (p *ProductEventPublisher) PublishLowStockAlert(ctx context.Context, tenantID string, product *models.Product) error {
	event := events.NewInventoryEvent(events.InventoryLowStock, tenantID)
	event.Items = []events.InventoryItem{
		{
			ProductID:    product.ID.String(),
			Name:         product.Name,
			SKU:          product.Barcode,
			CurrentStock: product.CurrentStock,
			ReorderPoint: product.LowStockThreshold,
		},
	}
	event.AlertLevel = "warning"
	event.AlertMessage = fmt.Sprintf("Low stock alert: %s has %d units remaining (threshold: %d)", product.Name, product.CurrentStock, product.LowStockThreshold)
	event.CalculateSummary()

	if err := p.publisher.PublishInventory(ctx, event); err != nil {
		p.logger.WithFields(logrus.Fields{
			"productId": product.ID.String(),
			"name":      product.Name,
		}).WithError(err).Error("Failed to publish inventory.low_stock event")
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"productId":    product.ID.String(),
		"currentStock": product.CurrentStock,
		"threshold":    product.LowStockThreshold,
	}).Info("Published inventory.low_stock event")
	return nil
}

// buildProductEvent creates a ProductEvent from a product model
func (p *ProductEventPublisher) buildProductEvent(eventType string, tenantID string, product *models.Product) *events.ProductEvent {
	event := events.NewProductEvent(eventType, tenantID)
	event.ProductID = product.ID.String()
	event.ProductName = product.Name
	event.SKU = product.Barcode
	event.Price = product.SellingPrice
	return event
}

// publish logs and publishes a product event
func (p *ProductEventPublisher) publish(ctx context.Context, event *events.ProductEvent) error {
	if err := p.publisher.PublishProduct(ctx, event); err != nil {
		p.logger.WithFields(logrus.Fields{
			"eventType": event.EventType,
			"productId": event.ProductID,
		}).WithError(err).Error("Failed to publish product event")
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"eventType": event.EventType,
		"productId": event.ProductID,
	}).Info("Published product event")
	return nil
}

// IsConnected returns true if connected to NATS
func (p *ProductEventPublisher) IsConnected() bool {
	return p.publisher.IsConnected()
}

// Close closes the NATS connection
func (p *ProductEventPublisher) Close() {
	p.publisher.Close()
}
