package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"glowUpAPI/internal/activity"
	"glowUpAPI/internal/notification"
	"glowUpAPI/internal/progress"
	"glowUpAPI/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentPush struct {
	tokens []notification.DeviceToken
	title  string
	body   string
	data   map[string]any
}

type recordingPushProvider struct {
	mu   sync.Mutex
	sent chan sentPush
	err  error
}

func newRecordingPushProvider() *recordingPushProvider {
	return &recordingPushProvider{sent: make(chan sentPush, 16)}
}

func (p *recordingPushProvider) SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent <- sentPush{tokens: tokens, title: title, body: body, data: data}
	return p.err
}

func waitForPush(t *testing.T, p *recordingPushProvider) sentPush {
	t.Helper()
	select {
	case push := <-p.sent:
		return push
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for push")
	}
	return sentPush{}
}

func TestRegisterDevice_Validation(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewNotificationService(store, newRecordingPushProvider())
	defer svc.Stop()
	ctx := context.Background()

	err := svc.RegisterDevice(ctx, testUser, &notification.RegisterDeviceRequest{Token: "", Platform: "ios"})
	assert.ErrorIs(t, err, progress.ErrInvalidInput)

	err = svc.RegisterDevice(ctx, testUser, &notification.RegisterDeviceRequest{Token: "abc", Platform: "blackberry"})
	assert.ErrorIs(t, err, progress.ErrInvalidInput)

	require.NoError(t, svc.RegisterDevice(ctx, testUser, &notification.RegisterDeviceRequest{Token: " abc ", Platform: "Android"}))
	tokens, err := store.DeviceTokens(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "abc", tokens[0].Token)
	assert.Equal(t, "android", tokens[0].Platform)
}

func TestLevelUpSendsPush(t *testing.T) {
	store := storage.NewMemoryStore()
	provider := newRecordingPushProvider()
	notifications := NewNotificationService(store, provider)
	defer notifications.Stop()

	svc := NewProgressService(store, nil, notifications)
	svc.now = func() time.Time { return testNow }
	ctx := context.Background()

	require.NoError(t, notifications.RegisterDevice(ctx, testUser, &notification.RegisterDeviceRequest{Token: "tok", Platform: "ios"}))
	seedPoints(t, store, 90)

	res, err := svc.RecordActivity(ctx, testUser, today, activity.Request{
		Kind:    activity.KindWorkout,
		Workout: &activity.Workout{Type: "yoga", DurationMinutes: 20, Intensity: activity.IntensityLow},
	})
	require.NoError(t, err)
	require.True(t, res.LeveledUp)

	push := waitForPush(t, provider)
	assert.Equal(t, "Level up!", push.title)
	assert.Equal(t, 2, push.data["level"])
	require.Len(t, push.tokens, 1)
	assert.Equal(t, "tok", push.tokens[0].Token)
}

func TestDispatcher_SkipsWithoutTokens(t *testing.T) {
	provider := newRecordingPushProvider()
	d := NewNotificationDispatcher(provider, 1, 1)

	ok := d.Dispatch(&DispatchJob{Notification: &notification.Notification{UserID: testUser}})
	assert.True(t, ok)
	d.Stop()

	select {
	case <-provider.sent:
		t.Fatal("push sent without device tokens")
	default:
	}

	assert.False(t, d.Dispatch(&DispatchJob{Notification: &notification.Notification{UserID: testUser}}))
}

func TestDispatcher_ProviderErrorIsContained(t *testing.T) {
	provider := newRecordingPushProvider()
	provider.err = errors.New("fcm down")
	d := NewNotificationDispatcher(provider, 1, 4)
	defer d.Stop()

	d.Dispatch(&DispatchJob{
		Notification: &notification.Notification{UserID: testUser, Title: "t"},
		Tokens:       []notification.DeviceToken{{Token: "tok"}},
	})
	push := waitForPush(t, provider)
	assert.Equal(t, "t", push.title)
}

func TestLiveHub_DeliversToOwnerOnly(t *testing.T) {
	hub := NewLiveHub()
	go hub.Run()
	defer hub.Stop()

	mine := NewLiveClient(hub, testUser, nil)
	other := NewLiveClient(hub, "someone_else", nil)
	hub.Register(mine)
	hub.Register(other)

	hub.Publish(testUser, LiveEvent{Type: EventPointsAwarded, PointsAwarded: 10, At: testNow})

	select {
	case data := <-mine.Send:
		var event LiveEvent
		require.NoError(t, json.Unmarshal(data, &event))
		assert.Equal(t, EventPointsAwarded, event.Type)
		assert.Equal(t, 10, event.PointsAwarded)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	select {
	case <-other.Send:
		t.Fatal("event leaked to another user")
	case <-time.After(50 * time.Millisecond):
	}

	hub.Unregister(mine)
	_, open := <-mine.Send
	assert.False(t, open)
}

func TestLiveHub_NilIsNoop(t *testing.T) {
	var hub *LiveHub
	assert.NotPanics(t, func() {
		hub.Publish(testUser, LiveEvent{Type: EventLevelUp})
	})
}
