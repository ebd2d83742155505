package chat

import (
	"context"
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/ojamarket/realtime-api/cache"
	"github.com/ojamarket/realtime-api/databases"
	"github.com/ojamarket/realtime-api/models"
)

// notificationBodyLimit caps notification bodies so fan-out payloads stay small
const notificationBodyLimit = 50

// notifyChannel is the cache pub/sub channel bridging notification pushes to
// the websocket hubs of every running instance
const notifyChannel = "notifications"

var notificationHeadings = map[string]string{
	models.NotificationKindChatMessage:   "New message",
	models.NotificationKindChatActivated: "Chat started",
	models.NotificationKindChatLeft:      "Participant left the chat",
}

// NotifyEnvelope is the payload published on the notifications pub/sub channel
type NotifyEnvelope struct {
	RecipientID  string              `json:"recipientID"`
	Notification models.Notification `json:"notification"`
}

// Notifier resolves the interested participants of a chat event and records
// one notification per recipient. Delivery side channels (pub/sub to the
// websocket hubs, mobile push) are best-effort and never fail the triggering
// chat operation.
type Notifier struct {
	Orders        databases.OrderDatabase
	Notifications databases.NotificationDatabase
	PushTokens    databases.PushTokenDatabase
	Cache         cache.Service
	Push          PushSender
}

// ChatEvent fans out a notification for a chat event on the order to every
// participant except the actor. Errors are logged, never returned: the
// triggering operation has already succeeded.
func (n *Notifier) ChatEvent(ctx context.Context, kind, orderID string, actor *models.Principal, body string) {
	order, err := n.Orders.FindOne(ctx, bson.M{"_id": orderID})
	if err != nil {
		zap.S().Errorw("notification fan-out: failed to load order", "orderID", orderID, "error", err)
		return
	}

	heading := notificationHeadings[kind]
	now := primitive.NewDateTimeFromTime(time.Now().UTC())

	var notifications []models.Notification
	for _, recipientID := range order.ParticipantIDs() {
		if recipientID == actor.ID {
			continue
		}
		notifications = append(notifications, models.Notification{
			Kind:        kind,
			RecipientID: recipientID,
			ActorID:     actor.ID,
			Resource:    "order:" + orderID,
			Heading:     heading,
			Body:        truncateBody(body),
			Read:        false,
			Metadata: map[string]interface{}{
				"orderID":   orderID,
				"actorName": actor.DisplayName,
				"actorRole": actor.Role,
			},
			CreatedAt: now,
		})
	}
	if len(notifications) == 0 {
		return
	}

	if _, err := n.Notifications.InsertMany(ctx, notifications); err != nil {
		zap.S().Errorw("notification fan-out: failed to create notifications", "orderID", orderID, "error", err)
		return
	}

	for _, notification := range notifications {
		n.publish(ctx, notification)
	}
	n.push(ctx, notifications)
}

// MarkRead flips the order's unread notifications for the recipient; called as
// a best-effort cascade when chat messages are marked read
func (n *Notifier) MarkRead(ctx context.Context, orderID, recipientID string) error {
	_, err := n.Notifications.UpdateMany(ctx,
		bson.M{"resource": "order:" + orderID, "recipientID": recipientID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	return err
}

// publish pushes the notification to the recipient's live websocket feeds on
// every instance via the cache pub/sub bridge
func (n *Notifier) publish(ctx context.Context, notification models.Notification) {
	b, err := json.Marshal(NotifyEnvelope{
		RecipientID:  notification.RecipientID,
		Notification: notification,
	})
	if err != nil {
		zap.S().Errorw("notification fan-out: failed to marshal envelope", "error", err)
		return
	}
	if err := n.Cache.Publish(ctx, notifyChannel, string(b)); err != nil {
		zap.S().Warnw("notification fan-out: publish failed", "recipientID", notification.RecipientID, "error", err)
	}
}

// push delivers a mobile push per recipient when device tokens are registered
func (n *Notifier) push(ctx context.Context, notifications []models.Notification) {
	if n.Push == nil || n.PushTokens == nil {
		return
	}
	for _, notification := range notifications {
		tokens, err := n.PushTokens.Find(ctx, bson.M{"userID": notification.RecipientID})
		if err != nil {
			zap.S().Warnw("notification fan-out: failed to load push tokens", "recipientID", notification.RecipientID, "error", err)
			continue
		}
		raw := make([]string, 0, len(tokens))
		for _, t := range tokens {
			raw = append(raw, t.Token)
		}
		if err := n.Push.Send(raw, notification.Heading, notification.Body, notification.Metadata); err != nil {
			zap.S().Warnw("notification fan-out: push delivery failed", "recipientID", notification.RecipientID, "error", err)
		}
	}
}

// NotifyChannel returns the pub/sub channel name the websocket hubs subscribe to
func NotifyChannel() string {
	return notifyChannel
}

func truncateBody(s string) string {
	runes := []rune(s)
	if len(runes) <= notificationBodyLimit {
		return s
	}
	return string(runes[:notificationBodyLimit]) + "..."
}
