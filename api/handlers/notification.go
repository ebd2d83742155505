package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ojamarket/realtime-api/api"
	"github.com/ojamarket/realtime-api/cache"
	"github.com/ojamarket/realtime-api/chat"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NotificationHub holds the live notification feeds, one connection per user.
// A reconnect replaces the previous connection. Fan-out reaches hubs on every
// instance through the cache pub/sub channel.
type NotificationHub struct {
	Auth  *api.Authenticator
	Cache cache.Service

	mutex   sync.Mutex
	clients map[string]*websocket.Conn
}

// NewNotificationHub returns an empty hub bound to the authenticator and the
// shared cache
func NewNotificationHub(auth *api.Authenticator, c cache.Service) *NotificationHub {
	return &NotificationHub{
		Auth:    auth,
		Cache:   c,
		clients: make(map[string]*websocket.Conn),
	}
}

// ServeHTTP upgrades the request to a websocket and registers the caller's
// feed. The token travels in the token query parameter since browsers cannot
// set headers on websocket dials.
func (h *NotificationHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal, err := h.Auth.Authenticate(r.Context(), r.URL.Query().Get("token"), api.IsAdminRequest(r))
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "unauthorized"}`))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("websocket upgrade failed", "error", err)
		return
	}

	h.mutex.Lock()
	if prev, ok := h.clients[principal.ID]; ok {
		prev.Close()
	}
	h.clients[principal.ID] = conn
	h.mutex.Unlock()
	zap.S().Infow("notification feed connected", "userID", principal.ID)

	conn.SetCloseHandler(func(code int, text string) error {
		h.remove(principal.ID, conn)
		zap.S().Infow("notification feed disconnected", "userID", principal.ID)
		return nil
	})

	// drain client frames to observe disconnects
	for {
		if _, _, err := conn.NextReader(); err != nil {
			h.remove(principal.ID, conn)
			conn.Close()
			break
		}
	}
}

// Run consumes the notification pub/sub channel and dispatches each envelope
// to the recipient's feed on this instance. Blocks until ctx is done.
func (h *NotificationHub) Run(ctx context.Context) {
	payloads, closeSub := h.Cache.Subscribe(ctx, chat.NotifyChannel())
	defer closeSub()

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-payloads:
			if !ok {
				return
			}
			var envelope chat.NotifyEnvelope
			if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
				zap.S().Warnw("malformed notification envelope", "error", err)
				continue
			}
			h.send(envelope.RecipientID, envelope.Notification)
		}
	}
}

// send delivers the notification to the user's feed when connected here
func (h *NotificationHub) send(userID string, notification interface{}) {
	h.mutex.Lock()
	conn, exists := h.clients[userID]
	h.mutex.Unlock()
	if !exists {
		return
	}

	err := conn.WriteJSON(map[string]interface{}{
		"event": "new_notification",
		"data":  notification,
	})
	if err != nil {
		zap.S().Warnw("failed to push notification, dropping connection", "userID", userID, "error", err)
		h.remove(userID, conn)
		conn.Close()
	}
}

func (h *NotificationHub) remove(userID string, conn *websocket.Conn) {
	h.mutex.Lock()
	if h.clients[userID] == conn {
		delete(h.clients, userID)
	}
	h.mutex.Unlock()
}
