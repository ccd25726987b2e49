package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"glowUpAPI/internal/activity"
	"glowUpAPI/internal/progress"
	"glowUpAPI/middleware"
	"glowUpAPI/services"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type ProgressHandler struct {
	progressService *services.ProgressService
	clock           *DayClock
}

func NewProgressHandler(progressService *services.ProgressService, clock *DayClock) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
		clock:           clock,
	}
}

// GET /api/v1/user/snapshot?day=2026-03-14
func (h *ProgressHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	day, err := h.clock.DayParam(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	snapshot, err := h.progressService.GetDailySnapshot(ctx, clerkID, day)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, snapshot)
}

// GET /api/v1/user/stats/history?days=7
func (h *ProgressHandler) GetStatsHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	days, err := intQuery(r, "days", 7)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	today, err := h.clock.Today(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	history, err := h.progressService.GetStatsHistory(ctx, clerkID, today, days)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, history)
}

// POST /api/v1/activities
func (h *ProgressHandler) RecordActivity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req activity.Request
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithServiceError(w, err)
		return
	}

	today, err := h.clock.Today(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	result, err := h.progressService.RecordActivity(ctx, clerkID, today, req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	if result.Success {
		respondWithJSON(w, http.StatusCreated, result)
		return
	}
	respondWithResult(w, result.CompletionResult, result)
}

// GET /api/v1/activities?kind=meal&day=2026-03-14
func (h *ProgressHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	day, err := h.clock.DayParam(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	entries, err := h.progressService.ListActivities(ctx, clerkID, day, activity.Kind(r.URL.Query().Get("kind")))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, entries)
}

// DELETE /api/v1/activities/{id}
func (h *ProgressHandler) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, fmt.Errorf("%w: invalid activity id", progress.ErrInvalidInput))
		return
	}

	today, err := h.clock.Today(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	stats, err := h.progressService.DeleteActivity(ctx, clerkID, today, id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"deleted": true,
		"stats":   stats,
	})
}

type aiAnalysisRequest struct {
	Kind activity.Kind `json:"kind"`
}

// POST /api/v1/activities/ai-analysis
func (h *ProgressHandler) RecordAIAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req aiAnalysisRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithServiceError(w, err)
		return
	}

	result, err := h.progressService.RecordAIAnalysis(ctx, clerkID, req.Kind)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// POST /api/v1/missions/{missionId}/claim
func (h *ProgressHandler) ClaimMission(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	today, err := h.clock.Today(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	result, err := h.progressService.ClaimMission(ctx, clerkID, today, mux.Vars(r)["missionId"])
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithResult(w, result.CompletionResult, result)
}
