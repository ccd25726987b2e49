package services

import (
	"encoding/json"
	"time"

	"glowUpAPI/internal/logger"
	"glowUpAPI/internal/progress"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames.
	maxMessageSize = 512
)

type LiveEventType string

const (
	EventActivityRecorded LiveEventType = "activity_recorded"
	EventActivityDeleted  LiveEventType = "activity_deleted"
	EventMissionClaimed   LiveEventType = "mission_claimed"
	EventTaskCompleted    LiveEventType = "task_completed"
	EventPointsAwarded    LiveEventType = "points_awarded"
	EventLevelUp          LiveEventType = "level_up"
)

type LiveEvent struct {
	Type          LiveEventType             `json:"type"`
	Day           progress.Day              `json:"day,omitempty"`
	PointsAwarded int                       `json:"pointsAwarded,omitempty"`
	Points        *progress.UserPointsState `json:"points,omitempty"`
	Stats         *progress.DailyStats      `json:"stats,omitempty"`
	MissionID     string                    `json:"missionId,omitempty"`
	TaskID        string                    `json:"taskId,omitempty"`
	At            time.Time                 `json:"at"`
}

type liveMessage struct {
	userID string
	data   []byte
}

// LiveHub fans progress events out to the websocket connections of the user
// they belong to. Clients are added and removed only inside Run, so the
// client map needs no lock.
type LiveHub struct {
	clients    map[string]map[*LiveClient]bool
	register   chan *LiveClient
	unregister chan *LiveClient
	broadcast  chan liveMessage
	stop       chan struct{}
	done       chan struct{}
}

func NewLiveHub() *LiveHub {
	return &LiveHub{
		clients:    make(map[string]map[*LiveClient]bool),
		register:   make(chan *LiveClient),
		unregister: make(chan *LiveClient),
		broadcast:  make(chan liveMessage, 256),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (h *LiveHub) Run() {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*LiveClient]bool)
			}
			h.clients[client.UserID][client] = true
			liveConnections.Inc()
			logger.Debug("live client connected", "user", client.UserID, "connections", len(h.clients[client.UserID]))

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			for client := range h.clients[msg.userID] {
				select {
				case client.Send <- msg.data:
				default:
					// Slow consumer.
					h.remove(client)
				}
			}

		case <-h.stop:
			for _, set := range h.clients {
				for client := range set {
					h.remove(client)
				}
			}
			return
		}
	}
}

func (h *LiveHub) remove(client *LiveClient) {
	set, ok := h.clients[client.UserID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.UserID)
	}
	close(client.Send)
	liveConnections.Dec()
}

// Publish queues event for every connection of userID. It never blocks the
// caller; events are dropped when the hub is saturated.
func (h *LiveHub) Publish(userID string, event LiveEvent) {
	if h == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("failed to marshal live event", "type", event.Type, "err", err)
		return
	}

	select {
	case h.broadcast <- liveMessage{userID: userID, data: data}:
	default:
		logger.Warn("live hub saturated, dropping event", "user", userID, "type", event.Type)
	}
}

func (h *LiveHub) Register(client *LiveClient) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

func (h *LiveHub) Unregister(client *LiveClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Stop closes every client and waits for Run to return.
func (h *LiveHub) Stop() {
	close(h.stop)
	<-h.done
}

// LiveClient sits between one websocket connection and the hub.
type LiveClient struct {
	hub    *LiveHub
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
}

func NewLiveClient(hub *LiveHub, userID string, conn *websocket.Conn) *LiveClient {
	return &LiveClient{
		hub:    hub,
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 64),
	}
}

// ReadPump drains control frames so pongs are processed, and unregisters the
// client once the peer goes away.
func (c *LiveClient) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("live client read error", "user", c.UserID, "err", err)
			}
			return
		}
	}
}

// WritePump forwards hub messages to the peer and keeps the connection alive.
func (c *LiveClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
