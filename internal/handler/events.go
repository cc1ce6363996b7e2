package handler

import (
	"net/http"
	"time"

	"fakestore-offline/internal/model"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	eventsWriteTimeout = 10 * time.Second
	eventsPongTimeout  = 60 * time.Second
	eventsPingInterval = 30 * time.Second
)

// Subscriber is the event source streamed to websocket clients.
type Subscriber interface {
	Subscribe() (<-chan model.HubMessage, func())
}

// EventsHandler streams hub messages over a websocket.
type EventsHandler struct {
	hub      Subscriber
	upgrader websocket.Upgrader
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(hub Subscriber) *EventsHandler {
	return &EventsHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin:      func(*http.Request) bool { return true },
		},
	}
}

// Stream handles GET /api/v1/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		log.WithField("component", "EventsHandler").Debugf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	messages, cancel := h.hub.Subscribe()
	defer cancel()

	logger := log.WithFields(log.Fields{"component": "EventsHandler", "remote": r.RemoteAddr})
	logger.Debug("subscriber connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(1024)
		_ = conn.SetReadDeadline(time.Now().Add(eventsPongTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(eventsPongTimeout))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(eventsPingInterval)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debugf("write failed: %v", err)
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			logger.Debug("subscriber disconnected")
			return
		case <-r.Context().Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(time.Second))
			return
		}
	}
}
