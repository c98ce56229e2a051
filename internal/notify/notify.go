// Package notify delivers user-facing toast notifications. The service is
// headless, so toasts are emitted as structured log records and, when NATS
// is available, published for UI consumers to display.
package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Variant values mirror the UI toast variants
const (
	VariantDefault     = "default"
	VariantDestructive = "destructive"
)

// Toast is a fire-and-forget user-facing message
type Toast struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Variant     string `json:"variant,omitempty"`
	Duration    int    `json:"duration,omitempty"` // milliseconds; 0 means sink default
}

// Sink accepts toasts. Implementations must never block the caller on
// delivery failures.
type Sink interface {
	Notify(ctx context.Context, tenantID string, toast Toast)
}

// LogSink writes toasts to the service log
type LogSink struct {
	logger *logrus.Entry
}

// NewLogSink creates a log-backed sink
func NewLogSink(logger *logrus.Logger) *LogSink {
	log := logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogSink{logger: log.WithField("component", "notifications")}
}

// Notify logs the toast at a level matching its variant
func (s *LogSink) Notify(_ context.Context, tenantID string, toast Toast) {
	entry := s.logger.WithFields(logrus.Fields{
		"tenantId":    tenantID,
		"title":       toast.Title,
		"description": toast.Description,
	})
	if toast.Variant == VariantDestructive {
		entry.Warn("Notification")
		return
	}
	entry.Info("Notification")
}

// Publisher is implemented by event publishers that can forward toasts
type Publisher interface {
	PublishNotification(ctx context.Context, tenantID string, toast Toast) error
}

// FanoutSink logs every toast and forwards it to a publisher when one is
// configured. Publish failures are logged and swallowed.
type FanoutSink struct {
	log       *LogSink
	publisher Publisher
}

// NewFanoutSink creates a sink that logs and optionally publishes
func NewFanoutSink(logger *logrus.Logger, publisher Publisher) *FanoutSink {
	return &FanoutSink{
		log:       NewLogSink(logger),
		publisher: publisher,
	}
}

// Notify delivers the toast to all configured outputs
func (s *FanoutSink) Notify(ctx context.Context, tenantID string, toast Toast) {
	s.log.Notify(ctx, tenantID, toast)
	if s.publisher != nil {
		if err := s.publisher.PublishNotification(ctx, tenantID, toast); err != nil {
			s.log.logger.WithError(err).Warn("Failed to publish notification")
		}
	}
}
