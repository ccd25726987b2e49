package handlers

import (
	"context"
	"net/http"
	"time"

	"glowUpAPI/middleware"
	"glowUpAPI/services"

	"github.com/gorilla/mux"
)

type RoutineHandler struct {
	routineService  *services.RoutineService
	progressService *services.ProgressService
	clock           *DayClock
}

func NewRoutineHandler(routineService *services.RoutineService, progressService *services.ProgressService, clock *DayClock) *RoutineHandler {
	return &RoutineHandler{
		routineService:  routineService,
		progressService: progressService,
		clock:           clock,
	}
}

// GET /api/v1/routines
func (h *RoutineHandler) ListRoutine(w http.ResponseWriter, r *http.Request) {
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

	tasks, err := h.routineService.ListRoutine(ctx, clerkID, day)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, tasks)
}

// POST /api/v1/routines
func (h *RoutineHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req services.CreateTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithServiceError(w, err)
		return
	}

	task, err := h.routineService.CreateTask(ctx, clerkID, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, task)
}

// DELETE /api/v1/routines/{taskId}
func (h *RoutineHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	if err := h.routineService.DeleteTask(ctx, clerkID, mux.Vars(r)["taskId"]); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Task deleted"})
}

// POST /api/v1/routines/defaults
func (h *RoutineHandler) SeedDefaults(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	created, err := h.routineService.SeedDefaultRoutine(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int{"created": created})
}

// POST /api/v1/routines/{taskId}/complete
func (h *RoutineHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.progressService.CompleteScheduledTask(ctx, clerkID, today, mux.Vars(r)["taskId"])
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithResult(w, result.CompletionResult, result)
}
