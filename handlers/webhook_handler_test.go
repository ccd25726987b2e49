package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"glowUpAPI/internal/logger"
	"glowUpAPI/internal/storage"
	"glowUpAPI/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var webhookNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newWebhookFixture(t *testing.T, secret string) (*WebhookHandler, *services.UserService, *services.RoutineService) {
	t.Helper()
	store := storage.NewMemoryStore()
	routines := services.NewRoutineService(store)
	users := services.NewUserService(store, routines)

	h := NewWebhookHandler(users, secret)
	h.now = func() time.Time { return webhookNow }
	return h, users, routines
}

func signedRequest(secret, id string, at time.Time, body []byte) *http.Request {
	ts := strconv.FormatInt(at.Unix(), 10)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(body))
	req.Header.Set("svix-id", id)
	req.Header.Set("svix-timestamp", ts)
	req.Header.Set("svix-signature", "v1,bogus v1,"+signWebhook(secret, id, ts, body))
	return req
}

const userCreatedEvent = `{
	"type": "user.created",
	"object": "event",
	"data": {
		"id": "user_abc",
		"first_name": "Ana",
		"last_name": "Petrova",
		"image_url": "https://img.example/ana.png",
		"primary_email_address_id": "em_2",
		"email_addresses": [
			{"id": "em_1", "email_address": "old@example.com"},
			{"id": "em_2", "email_address": "ana@example.com"}
		]
	}
}`

func TestHandleClerkWebhook_UserCreated(t *testing.T) {
	secret := "whsec_" + base64.StdEncoding.EncodeToString([]byte("super-secret-key"))
	h, users, routines := newWebhookFixture(t, secret)

	rr := httptest.NewRecorder()
	h.HandleClerkWebhook(rr, signedRequest(secret, "msg_1", webhookNow, []byte(userCreatedEvent)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	profile, err := users.GetProfile(context.Background(), "user_abc")
	require.NoError(t, err)
	require.NotNil(t, profile.Profile)
	assert.Equal(t, "ana@example.com", profile.Profile.Email)
	assert.Equal(t, "Ana Petrova", profile.Profile.FullName)

	tasks, err := routines.ListRoutine(context.Background(), "user_abc", "2026-03-14")
	require.NoError(t, err)
	assert.NotEmpty(t, tasks)
}

func TestHandleClerkWebhook_RejectsBadSignatures(t *testing.T) {
	secret := "whsec_" + base64.StdEncoding.EncodeToString([]byte("super-secret-key"))
	h, _, _ := newWebhookFixture(t, secret)

	tests := []struct {
		name string
		req  func() *http.Request
	}{
		{
			name: "missing headers",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader([]byte(userCreatedEvent)))
			},
		},
		{
			name: "wrong secret",
			req: func() *http.Request {
				return signedRequest("whsec_"+base64.StdEncoding.EncodeToString([]byte("other")), "msg_1", webhookNow, []byte(userCreatedEvent))
			},
		},
		{
			name: "stale timestamp",
			req: func() *http.Request {
				return signedRequest(secret, "msg_1", webhookNow.Add(-10*time.Minute), []byte(userCreatedEvent))
			},
		},
		{
			name: "tampered body",
			req: func() *http.Request {
				req := signedRequest(secret, "msg_1", webhookNow, []byte(userCreatedEvent))
				req.Body = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{"type":"user.deleted"}`))).Body
				return req
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.HandleClerkWebhook(rr, tt.req())
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}
}

func TestHandleClerkWebhook_UserDeleted(t *testing.T) {
	h, users, _ := newWebhookFixture(t, "")

	rr := httptest.NewRecorder()
	h.HandleClerkWebhook(rr, httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader([]byte(userCreatedEvent))))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	deleted := `{"type": "user.deleted", "data": {"id": "user_abc", "deleted": true}}`
	h.HandleClerkWebhook(rr, httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader([]byte(deleted))))
	require.Equal(t, http.StatusOK, rr.Code)

	profile, err := users.GetProfile(context.Background(), "user_abc")
	require.NoError(t, err)
	assert.Nil(t, profile.Profile)

	rr = httptest.NewRecorder()
	h.HandleClerkWebhook(rr, httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader([]byte(`{"type": "user.deleted", "data": {}}`))))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	rr = httptest.NewRecorder()
	h.HandleClerkWebhook(rr, httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader([]byte(`not json`))))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestNewWebhookHandler_WarnsWithoutSecret(t *testing.T) {
	var buf bytes.Buffer
	logger.Logger.SetOutput(&buf)
	t.Cleanup(func() { logger.Logger.SetOutput(os.Stderr) })

	newWebhookFixture(t, "whsec_"+base64.StdEncoding.EncodeToString([]byte("super-secret-key")))
	assert.NotContains(t, buf.String(), "CLERK_WEBHOOK_SECRET")

	newWebhookFixture(t, "")
	assert.Contains(t, buf.String(), "CLERK_WEBHOOK_SECRET is not set")
}
