package repository

import (
	"context"

	"go.uber.org/zap"

	"brokenweave/internal/model"
	"brokenweave/pkg/db"
	"brokenweave/pkg/otel"
)

type NotificationRepository struct {
	db     db.Pool
	logger *zap.Logger
}

func NewNotificationRepository(pool db.Pool, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{db: pool, logger: logger}
}

// Pool exposes the pool so callers can group an insert with other writes.
func (r *NotificationRepository) Pool() db.Pool {
	return r.db
}

// Insert writes n through q, which may be a transaction.
func (r *NotificationRepository) Insert(ctx context.Context, q db.Querier, n *model.AdminNotification) error {
	r.logger.Debug("Inserting admin notification",
		zap.String("type", string(n.Type)),
		zap.Int64p("user_id", n.UserID),
	)

	query := `
        INSERT INTO admin_notifications (title, message, type, user_id)
        VALUES ($1, $2, $3, $4)
        RETURNING id, is_read, created_at
    `
	err := q.QueryRow(ctx, query, n.Title, n.Message, string(n.Type), n.UserID).Scan(&n.ID, &n.IsRead, &n.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert admin notification", zap.Error(err))
		return err
	}

	r.logger.Info("Admin notification inserted successfully", zap.Int64("id", n.ID))
	return nil
}

// Recent returns the newest limit notifications, newest first.
func (r *NotificationRepository) Recent(ctx context.Context, limit int) ([]model.AdminNotification, error) {
	query := `
        SELECT id, title, message, type, is_read, user_id, created_at
        FROM admin_notifications
        ORDER BY created_at DESC, id DESC
        LIMIT $1
    `
	var out []model.AdminNotification
	err := otel.Observe(ctx, "select", "admin_notifications", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = []model.AdminNotification{}
		for rows.Next() {
			var n model.AdminNotification
			var typ string
			if err := rows.Scan(&n.ID, &n.Title, &n.Message, &typ, &n.IsRead, &n.UserID, &n.CreatedAt); err != nil {
				return err
			}
			n.Type = model.NotificationType(typ)
			out = append(out, n)
		}
		return rows.Err()
	})
	if err != nil {
		r.logger.Error("Failed to fetch recent notifications", zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id int64) error {
	return otel.Observe(ctx, "update", "admin_notifications", func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, `UPDATE admin_notifications SET is_read = TRUE WHERE id = $1`, id)
		return err
	})
}

// MarkAllRead flips every unread notification, not only the loaded ones.
func (r *NotificationRepository) MarkAllRead(ctx context.Context) error {
	return otel.Observe(ctx, "update", "admin_notifications", func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, `UPDATE admin_notifications SET is_read = TRUE WHERE is_read = FALSE`)
		return err
	})
}
