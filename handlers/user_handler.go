package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"glowUpAPI/internal/logger"
	"glowUpAPI/internal/progress"
	"glowUpAPI/internal/storage"
	"glowUpAPI/middleware"
	"glowUpAPI/services"
)

type UserHandler struct {
	userService     *services.UserService
	progressService *services.ProgressService
}

func NewUserHandler(userService *services.UserService, progressService *services.ProgressService) *UserHandler {
	return &UserHandler{
		userService:     userService,
		progressService: progressService,
	}
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	profile, err := h.userService.GetProfile(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, profile)
}

// GET /api/v1/user/points/history?limit=50
func (h *UserHandler) GetPointHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	limit, err := intQuery(r, "limit", 50)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	events, err := h.progressService.GetPointHistory(ctx, clerkID, limit)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, events)
}

func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	if err := h.userService.DeleteUser(ctx, clerkID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Account deleted successfully"})
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps service errors onto status codes. Messages of
// unexpected errors are not leaked to the client.
func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, progress.ErrInvalidInput):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, progress.ErrAlreadyCompleted):
		respondWithError(w, http.StatusConflict, progress.ErrAlreadyCompleted.Error())
	case errors.Is(err, progress.ErrNotEligible):
		respondWithError(w, http.StatusUnprocessableEntity, progress.ErrNotEligible.Error())
	case errors.Is(err, storage.ErrUnavailable):
		logger.Error("persistence unavailable", "err", err)
		respondWithError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		respondWithError(w, http.StatusGatewayTimeout, "Request timed out")
	default:
		logger.Error("request failed", "err", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// respondWithResult writes a completion outcome. Rejected attempts keep the
// result body so clients see the current points alongside the reason.
func respondWithResult(w http.ResponseWriter, result services.CompletionResult, payload interface{}) {
	switch {
	case result.Success:
		respondWithJSON(w, http.StatusOK, payload)
	case errors.Is(result.Rejection, progress.ErrAlreadyCompleted):
		respondWithJSON(w, http.StatusConflict, payload)
	default:
		respondWithJSON(w, http.StatusUnprocessableEntity, payload)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body", progress.ErrInvalidInput)
	}
	return nil
}
