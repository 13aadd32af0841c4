// Package mqhandler consumes broker events and feeds them into the process.
package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "brokenweave/contracts/mq"
	"brokenweave/internal/feed"
	"brokenweave/internal/model"
	"brokenweave/pkg/logger"
	"brokenweave/pkg/metrics"
	"brokenweave/pkg/trace"
)

// EventPublisher fans a feed event out to mounted widgets.
type EventPublisher interface {
	Publish(ev feed.Event)
}

// Deduper guards against handling a redelivered message twice.
type Deduper interface {
	AcquireOnce(ctx context.Context, handler string, id int64) bool
}

const dedupHandler = "feed"

type AdminNotificationHandler struct {
	hub     EventPublisher
	deduper Deduper
	scope   string
	logger  *zap.Logger
}

func NewAdminNotificationHandler(hub EventPublisher, deduper Deduper, logger *zap.Logger) *AdminNotificationHandler {
	return &AdminNotificationHandler{hub: hub, deduper: deduper, scope: dedupHandler, logger: logger}
}

// ForInstance keys deduplication by instance, so each process consuming its
// own broadcast queue fans a message out once.
func (h *AdminNotificationHandler) ForInstance(instance string) *AdminNotificationHandler {
	h.scope = dedupHandler + ":" + instance
	return h
}

// HandleCreated turns an admin_notification.created message into a feed
// INSERT event.
func (h *AdminNotificationHandler) HandleCreated(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.AdminNotificationCreatedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal admin notification payload (non-retryable, sending to DLQ)",
			zap.Error(err),
			zap.String("raw_payload", string(raw)),
		)
		return fmt.Errorf("json_unmarshal_error: %w", err)
	}
	if p.TraceID != "" && trace.FromContext(ctx) == "" {
		ctx = trace.WithContext(ctx, p.TraceID)
	}
	log := logger.WithTrace(ctx, h.logger)

	if h.deduper != nil && !h.deduper.AcquireOnce(ctx, h.scope, p.ID) {
		log.Info("Skipped duplicated event",
			zap.String("handler", h.scope),
			zap.Int64("notification_id", p.ID),
		)
		metrics.IncrementNotificationEvent("duplicate")
		return nil
	}

	h.hub.Publish(feed.InsertEvent(model.AdminNotification{
		ID:        p.ID,
		Title:     p.Title,
		Message:   p.Message,
		Type:      model.NotificationType(p.Type),
		IsRead:    p.IsRead,
		UserID:    p.UserID,
		CreatedAt: p.CreatedAt,
	}))

	log.Info("Admin notification fanned out",
		zap.Int64("notification_id", p.ID),
		zap.String("type", p.Type),
	)
	return nil
}
