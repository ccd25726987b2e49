package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"glowUpAPI/internal/logger"
	"glowUpAPI/internal/notification"
	"glowUpAPI/internal/progress"
	"glowUpAPI/internal/storage"

	"github.com/google/uuid"
)

type NotificationService struct {
	store      storage.Store
	dispatcher *NotificationDispatcher
}

func NewNotificationService(store storage.Store, provider PushNotificationProvider) *NotificationService {
	return &NotificationService{
		store:      store,
		dispatcher: NewNotificationDispatcher(provider, 5, 100),
	}
}

func (s *NotificationService) RegisterDevice(ctx context.Context, userID string, req *notification.RegisterDeviceRequest) error {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return fmt.Errorf("%w: device token is required", progress.ErrInvalidInput)
	}
	platform := strings.ToLower(strings.TrimSpace(req.Platform))
	if !notification.ValidPlatform(platform) {
		return fmt.Errorf("%w: unknown platform %q", progress.ErrInvalidInput, req.Platform)
	}

	err := s.store.RegisterDevice(ctx, userID, notification.DeviceToken{
		Token:     token,
		Platform:  platform,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

// NotifyLevelUp congratulates the user on reaching level.
func (s *NotificationService) NotifyLevelUp(ctx context.Context, userID string, level int) {
	s.send(ctx, &notification.Notification{
		UserID:  userID,
		Type:    notification.NotificationLevelUp,
		Title:   "Level up!",
		Message: fmt.Sprintf("You reached level %d. Keep glowing!", level),
		Data:    map[string]any{"level": level},
	})
}

func (s *NotificationService) NotifyMissionClaimed(ctx context.Context, userID string, mission progress.Mission) {
	s.send(ctx, &notification.Notification{
		UserID:  userID,
		Type:    notification.NotificationMissionClaimed,
		Title:   "Mission complete",
		Message: fmt.Sprintf("%s: +%d points", mission.Title, mission.PointsReward),
		Data:    map[string]any{"missionId": mission.ID, "points": mission.PointsReward},
	})
}

func (s *NotificationService) send(ctx context.Context, notif *notification.Notification) {
	notif.ID = uuid.New()
	notif.CreatedAt = time.Now()

	tokens, err := s.store.DeviceTokens(ctx, notif.UserID)
	if err != nil {
		logger.Warn("failed to load device tokens", "user", notif.UserID, "err", err)
		return
	}
	s.dispatcher.Dispatch(&DispatchJob{Notification: notif, Tokens: tokens})
}

func (s *NotificationService) Stop() {
	s.dispatcher.Stop()
}
