package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"
	"product-entry-service/internal/notify"
	"product-entry-service/internal/repository"
)

// CatalogEvent represents a template catalog change published by the
// catalog owner.
type CatalogEvent struct {
	EventType  string    `json:"eventType"`
	TenantID   string    `json:"tenantId"`
	TemplateID string    `json:"templateId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// CatalogSubscriber invalidates the cached template catalog when the
// upstream owner publishes changes, and exposes the NATS connection for
// toast fan-out.
type CatalogSubscriber struct {
	nc           *nats.Conn
	js           jetstream.JetStream
	repo         *repository.ProductsRepository
	logger       *logrus.Entry
	consumerName string
}

// NewCatalogSubscriber connects to NATS and prepares the catalog consumer
func NewCatalogSubscriber(natsURL string, repo *repository.ProductsRepository, logger *logrus.Logger) (*CatalogSubscriber, error) {
	if natsURL == "" {
		return nil, fmt.Errorf("NATS URL is required")
	}

	log := logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	entry := log.WithField("component", "catalog-subscriber")

	nc, err := nats.Connect(natsURL,
		nats.Name("product-entry-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			entry.WithField("url", nc.ConnectedUrl()).Info("Reconnected to NATS")
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			entry.WithError(err).Warn("Disconnected from NATS")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	hostname, _ := os.Hostname()

	return &CatalogSubscriber{
		nc:           nc,
		js:           js,
		repo:         repo,
		logger:       entry,
		consumerName: fmt.Sprintf("entry-catalog-%s", hostname),
	}, nil
}

// Start begins listening for catalog events
func (s *CatalogSubscriber) Start(ctx context.Context) error {
	if err := s.ensureStream(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to ensure catalog stream")
	}

	go s.subscribe(ctx)

	s.logger.Info("Catalog event subscriber started")
	return nil
}

// ensureStream creates the catalog stream if it does not exist
func (s *CatalogSubscriber) ensureStream(ctx context.Context) error {
	_, err := s.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "CATALOG_EVENTS",
		Subjects:  []string{"catalog.>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour * 7,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	})
	return err
}

// subscribe consumes catalog template events
func (s *CatalogSubscriber) subscribe(ctx context.Context) {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, "CATALOG_EVENTS", jetstream.ConsumerConfig{
		Durable:       s.consumerName,
		FilterSubject: "catalog.template.>",
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    3,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		s.logger.WithError(err).Warn("Failed to create catalog events consumer")
		return
	}

	msgs, err := consumer.Messages()
	if err != nil {
		s.logger.WithError(err).Warn("Failed to get catalog messages iterator")
		return
	}

	for {
		select {
		case <-ctx.Done():
			msgs.Stop()
			return
		default:
			msg, err := msgs.Next()
			if err != nil {
				if err == context.Canceled {
					return
				}
				s.logger.WithError(err).Error("Error getting next catalog message")
				time.Sleep(time.Second)
				continue
			}

			if err := s.handleCatalogEvent(ctx, msg); err != nil {
				s.logger.WithError(err).Error("Error handling catalog event")
				msg.Nak()
			} else {
				msg.Ack()
			}
		}
	}
}

// handleCatalogEvent drops the cached template list so the next read picks
// up the upstream change.
func (s *CatalogSubscriber) handleCatalogEvent(ctx context.Context, msg jetstream.Msg) error {
	var event CatalogEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		return fmt.Errorf("failed to unmarshal catalog event: %w", err)
	}

	if event.TenantID == "" {
		return fmt.Errorf("catalog event missing tenant id")
	}

	s.repo.InvalidateTemplateCache(ctx, event.TenantID)
	s.logger.WithFields(logrus.Fields{
		"eventType":  event.EventType,
		"tenantId":   event.TenantID,
		"templateId": event.TemplateID,
	}).Info("Invalidated template cache")
	return nil
}

// PublishNotification forwards a toast over core NATS for UI consumers.
// Implements notify.Publisher.
func (s *CatalogSubscriber) PublishNotification(_ context.Context, tenantID string, toast notify.Toast) error {
	data, err := json.Marshal(toast)
	if err != nil {
		return err
	}
	subject := "notification.toast"
	if tenantID != "" {
		subject = fmt.Sprintf("notification.toast.%s", tenantID)
	}
	return s.nc.Publish(subject, data)
}

// Close drains the NATS connection
func (s *CatalogSubscriber) Close() {
	if s.nc != nil {
		s.nc.Close()
	}
}
