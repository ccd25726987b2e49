package notification

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationLevelUp        NotificationType = "level_up"
	NotificationMissionClaimed NotificationType = "mission_claimed"
)

type Notification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    string           `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Data      map[string]any   `json:"data" db:"data"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

type DeviceToken struct {
	Token     string    `json:"token" db:"token"`
	Platform  string    `json:"platform" db:"platform"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
