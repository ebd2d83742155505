package sockets

import (
	"context"
	"time"

	socketio "github.com/googollee/go-socket.io"
	"go.uber.org/zap"

	"github.com/ojamarket/realtime-api/api"
	"github.com/ojamarket/realtime-api/chat"
	"github.com/ojamarket/realtime-api/models"
)

// Per-principal send-message rate limit
const (
	sendMessageLimit  = 20
	sendMessageWindow = 10 * time.Second
)

func (g *Gateway) registerChatEvents(server *socketio.Server) {
	server.OnEvent("/", "join-order-chat", func(s socketio.Conn, msg interface{}) {
		p := principalOf(s)
		if p == nil {
			return
		}
		orderID := orderIDOf(msg)
		if orderID == "" {
			emitError(s, models.InvalidStateError{Reason: "orderID required"})
			return
		}

		ctx, cancel := api.WithQueryTimeout(context.Background())
		defer cancel()

		order, err := g.Chat.Order(ctx, orderID)
		if err != nil {
			emitError(s, err)
			return
		}
		if !order.IsParticipant(p) {
			emitError(s, models.AuthorizationError{Reason: "not a participant of this order"})
			return
		}

		s.Join(chat.OrderRoom(orderID))

		// joining brings the chat live and resets its expiry
		if _, err := g.Chat.Activate(ctx, p, orderID); err != nil {
			zap.S().Warnw("failed to activate chat on join", "orderID", orderID, "error", err)
		}

		history, err := g.Chat.MessagesByOrder(ctx, orderID)
		if err != nil {
			emitError(s, err)
		} else {
			s.Emit("previous-messages", map[string]interface{}{
				"orderID":  orderID,
				"messages": history,
			})
		}

		if _, err := g.Chat.MarkMessagesAsRead(ctx, orderID, p.ID); err != nil {
			zap.S().Warnw("failed to mark messages read on join", "orderID", orderID, "error", err)
		}

		g.IO.BroadcastToRoom("/", chat.OrderRoom(orderID), "user-joined", map[string]interface{}{
			"orderID": orderID,
			"user": map[string]interface{}{
				"id":   p.ID,
				"role": p.Role,
				"name": p.DisplayName,
			},
		})
	})

	server.OnEvent("/", "send-message", func(s socketio.Conn, msg map[string]interface{}) {
		p := principalOf(s)
		if p == nil {
			return
		}
		orderID := stringField(msg, "orderId", "orderID")
		body := stringField(msg, "message")
		imageURL := stringField(msg, "imageUrl", "imageURL")
		if orderID == "" || (body == "" && imageURL == "") {
			emitError(s, models.InvalidStateError{Reason: "orderID and message required"})
			return
		}

		ctx, cancel := api.WithQueryTimeout(context.Background())
		defer cancel()

		// the limiter fails open: a redis outage must not mute the chat
		if g.Limiter != nil {
			allowed, err := g.Limiter.Allow(ctx, "rl:chat:"+p.ID, sendMessageLimit, sendMessageWindow)
			if err != nil {
				zap.S().Warnw("rate limiter unavailable, allowing message", "principal", p.ID, "error", err)
			} else if !allowed {
				emitError(s, models.InvalidStateError{Reason: "too many messages, slow down"})
				return
			}
		}

		if _, err := g.Chat.SendMessage(ctx, p, orderID, body, imageURL); err != nil {
			emitError(s, err)
		}
	})

	server.OnEvent("/", "typing", func(s socketio.Conn, msg map[string]interface{}) {
		p := principalOf(s)
		if p == nil {
			return
		}
		orderID := stringField(msg, "orderId", "orderID")
		if orderID == "" {
			return
		}
		isTyping, _ := msg["isTyping"].(bool)
		g.IO.BroadcastToRoom("/", chat.OrderRoom(orderID), "user-typing", map[string]interface{}{
			"orderID":  orderID,
			"userID":   p.ID,
			"name":     p.DisplayName,
			"isTyping": isTyping,
		})
	})

	server.OnEvent("/", "activate-chat", func(s socketio.Conn, msg interface{}) {
		p := principalOf(s)
		if p == nil {
			return
		}
		orderID := orderIDOf(msg)
		if orderID == "" {
			emitError(s, models.InvalidStateError{Reason: "orderID required"})
			return
		}

		ctx, cancel := api.WithQueryTimeout(context.Background())
		defer cancel()

		if _, err := g.Chat.Activate(ctx, p, orderID); err != nil {
			emitError(s, err)
		}
	})

	server.OnEvent("/", "mark-messages-read", func(s socketio.Conn, msg interface{}) {
		p := principalOf(s)
		if p == nil {
			return
		}
		orderID := orderIDOf(msg)
		if orderID == "" {
			emitError(s, models.InvalidStateError{Reason: "orderID required"})
			return
		}

		ctx, cancel := api.WithQueryTimeout(context.Background())
		defer cancel()

		updated, err := g.Chat.MarkMessagesAsRead(ctx, orderID, p.ID)
		if err != nil {
			emitError(s, err)
			return
		}
		s.Emit("messages-read", map[string]interface{}{
			"orderID": orderID,
			"updated": updated,
		})
	})

	server.OnEvent("/", "leave-order-chat", func(s socketio.Conn, msg interface{}) {
		p := principalOf(s)
		if p == nil {
			return
		}
		orderID := orderIDOf(msg)
		if orderID == "" {
			return
		}
		s.Leave(chat.OrderRoom(orderID))

		ctx, cancel := api.WithQueryTimeout(context.Background())
		defer cancel()
		g.Chat.Leave(ctx, p, orderID)
	})
}
