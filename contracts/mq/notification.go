package mq

import "time"

// RoutingKeyAdminNotificationCreated is published once per admin_notifications insert.
const RoutingKeyAdminNotificationCreated = "admin_notification.created"

// AdminNotificationCreatedPayload mirrors the inserted admin_notifications row.
type AdminNotificationCreatedPayload struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"is_read"`
	UserID    *int64    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	TraceID   string    `json:"trace_id,omitempty"`
}
