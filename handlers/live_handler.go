package handlers

import (
	"net/http"

	"glowUpAPI/internal/logger"
	"glowUpAPI/middleware"
	"glowUpAPI/services"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Mobile clients do not send an Origin; auth is enforced by the token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type LiveHandler struct {
	hub *services.LiveHub
}

func NewLiveHandler(hub *services.LiveHub) *LiveHandler {
	return &LiveHandler{hub: hub}
}

// GET /api/v1/live streams the caller's progress events over a websocket.
func (h *LiveHandler) Connect(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := middleware.GetClerkID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("could not upgrade live connection", "user", clerkID, "err", err)
		return
	}

	client := services.NewLiveClient(h.hub, clerkID, conn)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
