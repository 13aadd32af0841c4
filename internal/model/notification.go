package model

import (
	"fmt"
	"time"
)

type NotificationType string

const (
	NotificationLogin        NotificationType = "login"
	NotificationReport       NotificationType = "report"
	NotificationDonation     NotificationType = "donation"
	NotificationVolunteer    NotificationType = "volunteer"
	NotificationRegistration NotificationType = "registration"
)

func ParseNotificationType(s string) (NotificationType, error) {
	switch t := NotificationType(s); t {
	case NotificationLogin, NotificationReport, NotificationDonation, NotificationVolunteer, NotificationRegistration:
		return t, nil
	}
	return "", fmt.Errorf("unknown notification type %q", s)
}

type AdminNotification struct {
	ID        int64            `json:"id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	IsRead    bool             `json:"is_read"`
	UserID    *int64           `json:"user_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
