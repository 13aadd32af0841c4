package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "brokenweave/contracts/mq"
	"brokenweave/internal/model"
	"brokenweave/pkg/db"
	"brokenweave/pkg/logger"
	"brokenweave/pkg/metrics"
	"brokenweave/pkg/outbox"
	"brokenweave/pkg/trace"
)

// NotificationInserter writes an admin notification through q.
type NotificationInserter interface {
	Insert(ctx context.Context, q db.Querier, n *model.AdminNotification) error
}

// OutboxNotifier inserts the notification row and its admin_notification.created
// outbox event in one transaction.
type OutboxNotifier struct {
	pool          db.Pool
	notifications NotificationInserter
	outboxRepo    *outbox.Repository
	logger        *zap.Logger
}

func NewOutboxNotifier(pool db.Pool, notifications NotificationInserter, outboxRepo *outbox.Repository, logger *zap.Logger) *OutboxNotifier {
	return &OutboxNotifier{pool: pool, notifications: notifications, outboxRepo: outboxRepo, logger: logger}
}

func (s *OutboxNotifier) Notify(ctx context.Context, n *model.AdminNotification) error {
	log := logger.WithTrace(ctx, s.logger)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		log.Error("Failed to begin transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback(ctx)

	if err := s.notifications.Insert(ctx, tx, n); err != nil {
		return err
	}

	payload := mqcontracts.AdminNotificationCreatedPayload{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      string(n.Type),
		IsRead:    n.IsRead,
		UserID:    n.UserID,
		CreatedAt: n.CreatedAt,
		TraceID:   trace.FromContext(ctx),
	}
	id := n.ID
	if _, err := outbox.InsertEventInTx(ctx, tx, s.outboxRepo, "admin_notification", &id,
		mqcontracts.RoutingKeyAdminNotificationCreated, payload); err != nil {
		log.Error("Failed to insert admin_notification.created to outbox", zap.Error(err))
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		log.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit notification: %w", err)
	}

	metrics.IncrementNotificationEvent("created")
	log.Info("Admin notification recorded",
		zap.Int64("notification_id", n.ID),
		zap.String("type", string(n.Type)),
	)
	return nil
}
