package chat

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/ojamarket/realtime-api/databases"
	"github.com/ojamarket/realtime-api/models"
)

// Broadcaster fans an event out to every connection in a room. The socket
// server implements it; tests inject a fake.
type Broadcaster interface {
	BroadcastToRoom(room, event string, args ...interface{})
}

// OrderRoom names the broadcast room for an order's chat
func OrderRoom(orderID string) string {
	return "order:" + orderID
}

// Service persists chat messages and coordinates activation, room broadcast
// and notification fan-out. Persistence is the source of truth; broadcast and
// fan-out are best-effort side channels.
type Service struct {
	DB         databases.DatabaseHelper
	Messages   databases.ChatMessageDatabase
	Orders     databases.OrderDatabase
	Users      databases.UserDatabase
	Activation *ActivationStore
	Notifier   *Notifier
	Broadcast  Broadcaster
}

// Order loads an order or reports it missing
func (s *Service) Order(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.Orders.FindOne(ctx, bson.M{"_id": orderID})
	if err != nil {
		return nil, models.NotFoundError{Reason: "order not found"}
	}
	return order, nil
}

// SendMessage persists a message for the order and broadcasts the stored
// record to the order room. The chat must be active and the sender must be a
// participant. The insert and the sender display-field read run inside one
// mongo session transaction so the returned record is consistent under
// concurrent writers; on deployments without session support (standalone
// mongo) it degrades to a plain insert with a warning.
func (s *Service) SendMessage(ctx context.Context, sender *models.Principal, orderID, body, imageURL string) (*models.ChatMessage, error) {
	if !s.Activation.IsActive(ctx, orderID) {
		return nil, models.InvalidStateError{Reason: "chat not active"}
	}

	order, err := s.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsParticipant(sender) {
		return nil, models.AuthorizationError{Reason: "sender is not a participant of this order"}
	}

	msg := models.ChatMessage{
		OrderID:    orderID,
		SenderID:   sender.ID,
		SenderType: sender.Role,
		SenderName: sender.DisplayName,
		Message:    body,
		ImageURL:   imageURL,
		IsRead:     false,
		CreatedAt:  primitive.NewDateTimeFromTime(time.Now().UTC()),
	}

	persist := func(ctx context.Context) error {
		if !sender.IsAdmin() {
			user, err := s.Users.FindOne(ctx, bson.M{"_id": sender.ID})
			if err != nil {
				return fmt.Errorf("failed to load sender: %w", err)
			}
			if user.Details.Name != "" {
				msg.SenderName = user.Details.Name
			}
		}
		res, err := s.Messages.InsertOne(ctx, msg)
		if err != nil {
			return fmt.Errorf("failed to persist message: %w", err)
		}
		if id, ok := res.Decode().(primitive.ObjectID); ok {
			msg.ID = id
		}
		return nil
	}

	sess, err := s.DB.Client().StartSession()
	if err != nil {
		zap.S().Warnw("sessions unavailable, persisting message without transaction", "error", err)
		if err := persist(ctx); err != nil {
			return nil, err
		}
	} else {
		defer sess.EndSession(ctx)
		if _, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
			return nil, persist(sc)
		}); err != nil {
			return nil, err
		}
	}

	// broadcast after commit; a delivery failure never rolls back persistence
	s.Broadcast.BroadcastToRoom(OrderRoom(orderID), "new-message", msg)

	go s.Notifier.ChatEvent(context.Background(), models.NotificationKindChatMessage, orderID, sender, msg.Message)

	return &msg, nil
}

// MessagesByOrder returns all of the order's messages ascending by creation
// time. Authorization is the caller's responsibility: callers must already
// have passed room/participant checks.
func (s *Service) MessagesByOrder(ctx context.Context, orderID string) ([]models.ChatMessage, error) {
	messages, err := s.Messages.Find(ctx, bson.M{"orderID": orderID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to get messages by order: %w", err)
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	return messages, nil
}

// MessagesByOrderPage returns one page of the order's messages for REST
// clients that page through long threads
func (s *Service) MessagesByOrderPage(ctx context.Context, orderID string, limit, page int) ([]models.ChatMessage, error) {
	messages, err := s.Messages.FindPaginated(ctx, bson.M{"orderID": orderID}, limit, page)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages by order: %w", err)
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	return messages, nil
}

// MarkMessagesAsRead flips isRead on every message in the order not authored
// by the reader and not already read, returning the number updated. The
// matching unread notifications are marked read as a best-effort cascade on
// an independent failure path.
func (s *Service) MarkMessagesAsRead(ctx context.Context, orderID, readerID string) (int64, error) {
	res, err := s.Messages.UpdateMany(ctx,
		bson.M{"orderID": orderID, "senderID": bson.M{"$ne": readerID}, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages as read: %w", err)
	}

	if err := s.Notifier.MarkRead(ctx, orderID, readerID); err != nil {
		zap.S().Warnw("failed to cascade read state to notifications", "orderID", orderID, "readerID", readerID, "error", err)
	}

	return res.ModifiedCount, nil
}

// UnreadCount returns the number of unread messages addressed to the reader
// in one order
func (s *Service) UnreadCount(ctx context.Context, readerID, orderID string) (int64, error) {
	return s.Messages.CountDocuments(ctx,
		bson.M{"orderID": orderID, "senderID": bson.M{"$ne": readerID}, "isRead": false})
}

// UnreadCountsByOrder returns the reader's unread message counts grouped by
// order, scoped to orders the reader participates in
func (s *Service) UnreadCountsByOrder(ctx context.Context, readerID string) ([]models.UnreadOrderCount, error) {
	orders, err := s.Orders.Find(ctx, bson.M{"$or": []bson.M{
		{"order.customerID": readerID},
		{"order.agentID": readerID},
		{"order.agent._id": readerID},
	}})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve reader orders: %w", err)
	}
	orderIDs := make([]string, 0, len(orders))
	for _, o := range orders {
		orderIDs = append(orderIDs, o.ID)
	}
	if len(orderIDs) == 0 {
		return []models.UnreadOrderCount{}, nil
	}

	pipeline := []bson.M{
		{"$match": bson.M{
			"orderID":  bson.M{"$in": orderIDs},
			"senderID": bson.M{"$ne": readerID},
			"isRead":   false,
		}},
		{"$group": bson.M{"_id": "$orderID", "count": bson.M{"$sum": 1}}},
	}
	cursor, err := s.Messages.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate unread counts: %w", err)
	}
	defer cursor.Close(ctx)

	var counts []models.UnreadOrderCount
	if err := cursor.All(ctx, &counts); err != nil {
		return nil, fmt.Errorf("failed to decode unread counts: %w", err)
	}
	if counts == nil {
		counts = []models.UnreadOrderCount{}
	}
	return counts, nil
}

// Activate brings the order's chat live on behalf of the principal and
// announces it to the room plus the other participants. Idempotent;
// re-activation resets the TTL and re-attributes the record.
func (s *Service) Activate(ctx context.Context, by *models.Principal, orderID string) (*models.ChatActivation, error) {
	order, err := s.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsParticipant(by) {
		return nil, models.AuthorizationError{Reason: "not a participant of this order"}
	}

	wasActive := s.Activation.IsActive(ctx, orderID)
	if !s.Activation.Activate(ctx, orderID, models.ChatActivator{
		ID:   by.ID,
		Role: by.Role,
		Name: by.DisplayName,
	}) {
		return nil, fmt.Errorf("failed to activate chat")
	}

	record := s.Activation.Get(ctx, orderID)
	if record == nil {
		record = &models.ChatActivation{
			OrderID:     orderID,
			ActivatedBy: models.ChatActivator{ID: by.ID, Role: by.Role, Name: by.DisplayName},
			ActivatedAt: time.Now().UTC(),
		}
	}

	s.Broadcast.BroadcastToRoom(OrderRoom(orderID), "chat-activated", record)
	if !wasActive {
		go s.Notifier.ChatEvent(context.Background(), models.NotificationKindChatActivated, orderID, by, by.DisplayName+" started the chat")
	}
	return record, nil
}

// Leave announces the principal's departure to the remaining room members and
// fans out a notification to the other participants
func (s *Service) Leave(ctx context.Context, who *models.Principal, orderID string) {
	s.Broadcast.BroadcastToRoom(OrderRoom(orderID), "user-left", map[string]interface{}{
		"orderID": orderID,
		"user": map[string]interface{}{
			"id":   who.ID,
			"role": who.Role,
			"name": who.DisplayName,
		},
	})
	go s.Notifier.ChatEvent(context.Background(), models.NotificationKindChatLeft, orderID, who, who.DisplayName+" left the chat")
}
