package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"glowUpAPI/internal/logger"
	"glowUpAPI/internal/user"
	"glowUpAPI/services"
)

const webhookTolerance = 5 * time.Minute

type ClerkWebhookEvent struct {
	Type   string          `json:"type"`
	Object string          `json:"object"`
	Data   json.RawMessage `json:"data"`
}

type clerkEmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

type ClerkUserData struct {
	ID                    string              `json:"id"`
	FirstName             string              `json:"first_name"`
	LastName              string              `json:"last_name"`
	ImageURL              string              `json:"image_url"`
	ProfileImageURL       string              `json:"profile_image_url"`
	PrimaryEmailAddressID string              `json:"primary_email_address_id"`
	EmailAddresses        []clerkEmailAddress `json:"email_addresses"`
}

func (d ClerkUserData) primaryEmail() string {
	for _, e := range d.EmailAddresses {
		if e.ID == d.PrimaryEmailAddressID {
			return e.EmailAddress
		}
	}
	if len(d.EmailAddresses) > 0 {
		return d.EmailAddresses[0].EmailAddress
	}
	return ""
}

func (d ClerkUserData) profileRequest() *user.UpsertProfileRequest {
	imageURL := d.ImageURL
	if imageURL == "" {
		imageURL = d.ProfileImageURL
	}
	return &user.UpsertProfileRequest{
		UserID:    d.ID,
		Email:     d.primaryEmail(),
		FullName:  strings.TrimSpace(d.FirstName + " " + d.LastName),
		AvatarURL: imageURL,
	}
}

type WebhookHandler struct {
	userService *services.UserService
	secret      string
	now         func() time.Time
}

// NewWebhookHandler verifies Clerk (svix) signatures with secret. An empty
// secret disables verification for local development.
func NewWebhookHandler(userService *services.UserService, secret string) *WebhookHandler {
	if secret == "" {
		logger.Warn("CLERK_WEBHOOK_SECRET is not set, webhook signatures will not be verified")
	}
	return &WebhookHandler{
		userService: userService,
		secret:      secret,
		now:         time.Now,
	}
}

func (h *WebhookHandler) HandleClerkWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		logger.Warn("error reading webhook body", "err", err)
		respondWithError(w, http.StatusBadRequest, "Error reading body")
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	if err := h.verifyWebhookSignature(r.Header, body); err != nil {
		logger.Warn("invalid webhook signature", "err", err)
		respondWithError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var event ClerkWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		logger.Warn("error parsing webhook", "err", err)
		respondWithError(w, http.StatusBadRequest, "Error parsing webhook")
		return
	}

	logger.Info("received webhook event", "type", event.Type)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	switch event.Type {
	case "user.created":
		err = h.handleUserCreated(ctx, event.Data)
	case "user.updated":
		err = h.handleUserUpdated(ctx, event.Data)
	case "user.deleted":
		err = h.handleUserDeleted(ctx, event.Data)
	default:
		logger.Debug("unhandled webhook event type", "type", event.Type)
	}
	if err != nil {
		logger.Error("error processing webhook", "type", event.Type, "err", err)
		respondWithError(w, http.StatusInternalServerError, "Error processing webhook")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *WebhookHandler) handleUserCreated(ctx context.Context, data json.RawMessage) error {
	var userData ClerkUserData
	if err := json.Unmarshal(data, &userData); err != nil {
		return fmt.Errorf("failed to unmarshal user data: %w", err)
	}

	profile, err := h.userService.CreateUser(ctx, userData.profileRequest())
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	logger.Info("created user", "user", profile.UserID)
	return nil
}

func (h *WebhookHandler) handleUserUpdated(ctx context.Context, data json.RawMessage) error {
	var userData ClerkUserData
	if err := json.Unmarshal(data, &userData); err != nil {
		return fmt.Errorf("failed to unmarshal user data: %w", err)
	}

	if _, err := h.userService.UpsertProfile(ctx, userData.profileRequest()); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	logger.Info("updated user", "user", userData.ID)
	return nil
}

func (h *WebhookHandler) handleUserDeleted(ctx context.Context, data json.RawMessage) error {
	var userData struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &userData); err != nil {
		return fmt.Errorf("failed to unmarshal user data: %w", err)
	}
	if userData.ID == "" {
		return fmt.Errorf("user.deleted event without id")
	}

	return h.userService.DeleteUser(ctx, userData.ID)
}

// verifyWebhookSignature checks the svix headers Clerk sends: an HMAC-SHA256
// over "id.timestamp.body", base64 encoded, possibly one of several
// space separated "v1,<sig>" entries.
func (h *WebhookHandler) verifyWebhookSignature(header http.Header, body []byte) error {
	if h.secret == "" {
		return nil
	}

	svixID := header.Get("svix-id")
	svixTimestamp := header.Get("svix-timestamp")
	svixSignature := header.Get("svix-signature")
	if svixID == "" || svixTimestamp == "" || svixSignature == "" {
		return fmt.Errorf("missing webhook signature headers")
	}

	ts, err := strconv.ParseInt(svixTimestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid svix-timestamp: %w", err)
	}
	if skew := h.now().Sub(time.Unix(ts, 0)); math.Abs(float64(skew)) > float64(webhookTolerance) {
		return fmt.Errorf("webhook timestamp outside tolerance")
	}

	expected := signWebhook(h.secret, svixID, svixTimestamp, body)
	for _, candidate := range strings.Fields(svixSignature) {
		version, sig, found := strings.Cut(candidate, ",")
		if !found || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return fmt.Errorf("no matching signature")
}

func signWebhook(secret, id, timestamp string, body []byte) string {
	key := []byte(secret)
	if encoded, ok := strings.CutPrefix(secret, "whsec_"); ok {
		if decoded, err := base64.StdEncoding.DecodeString(encoded); err == nil {
			key = decoded
		}
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(id + "." + timestamp + "."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
