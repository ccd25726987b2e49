package notification

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"glowUpAPI/internal/logger"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type FCMService struct {
	client *messaging.Client
}

// NewFCMService prefers base64 encoded service account JSON and falls back
// to a credentials file on disk.
func NewFCMService(ctx context.Context, encodedCreds, localFilePath string) (*FCMService, error) {
	var opt option.ClientOption

	if encodedCreds != "" {
		decoded, err := base64.StdEncoding.DecodeString(encodedCreds)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 firebase credentials: %w", err)
		}
		opt = option.WithCredentialsJSON(decoded)
		logger.Info("FCM: initializing from FCM_SERVICE_ACCOUNT_JSON")
	} else {
		if _, err := os.Stat(localFilePath); os.IsNotExist(err) {
			return nil, fmt.Errorf("local firebase file not found: %s, and FCM_SERVICE_ACCOUNT_JSON is not set", localFilePath)
		}
		opt = option.WithCredentialsFile(localFilePath)
		logger.Info("FCM: initializing from credentials file", "path", localFilePath)
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client}, nil
}

// SendPush sends one message per token; the batch endpoint is not used.
// It fails only when every message failed.
func (s *FCMService) SendPush(ctx context.Context, tokens []DeviceToken, title, body string, data map[string]any) error {
	if len(tokens) == 0 {
		return nil
	}

	stringData := make(map[string]string, len(data))
	for k, v := range data {
		stringData[k] = fmt.Sprintf("%v", v)
	}

	successCount := 0
	failureCount := 0

	for _, token := range tokens {
		message := &messaging.Message{
			Token: token.Token,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Data: stringData,
		}

		switch token.Platform {
		case "ios":
			message.APNS = &messaging.APNSConfig{
				Payload: &messaging.APNSPayload{
					Aps: &messaging.Aps{Sound: "default"},
				},
			}
		default:
			message.Android = &messaging.AndroidConfig{
				Priority: "high",
				Notification: &messaging.AndroidNotification{
					Sound: "default",
				},
			}
		}

		if _, err := s.client.Send(ctx, message); err != nil {
			logger.Warn("FCM: send failed", "platform", token.Platform, "err", err)
			failureCount++
			continue
		}
		successCount++
	}

	logger.Debug("FCM: push batch finished", "sent", successCount, "failed", failureCount)

	if successCount == 0 && failureCount > 0 {
		return fmt.Errorf("all %d push notifications failed", failureCount)
	}
	return nil
}
