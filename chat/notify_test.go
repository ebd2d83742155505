package chat

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	cachemocks "github.com/ojamarket/realtime-api/cache/mocks"
	"github.com/ojamarket/realtime-api/databases/mocks"
	"github.com/ojamarket/realtime-api/models"
)

func testOrder() *models.Order {
	return &models.Order{
		ID: "order-1",
		Details: models.OrderDetails{
			CustomerID: "customer-1",
			Agent:      &models.OrderAgent{ID: "agent-1", Name: "Femi"},
			RegionID:   "region-1",
			Status:     "in_transit",
		},
	}
}

func TestChatEventNotifiesOtherParticipants(t *testing.T) {
	orderDB := mocks.NewOrderDatabase(t)
	notificationDB := mocks.NewNotificationDatabase(t)
	c := cachemocks.NewService(t)

	orderDB.On("FindOne", mock.Anything, bson.M{"_id": "order-1"}).Return(testOrder(), nil)

	var inserted []models.Notification
	notificationDB.On("InsertMany", mock.Anything, mock.AnythingOfType("[]models.Notification")).
		Run(func(args mock.Arguments) { inserted = args.Get(1).([]models.Notification) }).
		Return([]interface{}{"id-1"}, nil)

	var published string
	c.On("Publish", mock.Anything, "notifications", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { published = args.String(2) }).
		Return(nil).
		Once()

	n := &Notifier{Orders: orderDB, Notifications: notificationDB, Cache: c}
	actor := &models.Principal{ID: "customer-1", Role: models.RoleCustomer, DisplayName: "Ada"}
	n.ChatEvent(context.Background(), models.NotificationKindChatMessage, "order-1", actor, "hello there")

	assert.Len(t, inserted, 1)
	assert.Equal(t, "agent-1", inserted[0].RecipientID)
	assert.Equal(t, "customer-1", inserted[0].ActorID)
	assert.Equal(t, "order:order-1", inserted[0].Resource)
	assert.Equal(t, "New message", inserted[0].Heading)
	assert.Equal(t, "hello there", inserted[0].Body)
	assert.False(t, inserted[0].Read)
	assert.Equal(t, "order-1", inserted[0].Metadata["orderID"])
	assert.Equal(t, "Ada", inserted[0].Metadata["actorName"])

	var envelope NotifyEnvelope
	assert.NoError(t, json.Unmarshal([]byte(published), &envelope))
	assert.Equal(t, "agent-1", envelope.RecipientID)
	assert.Equal(t, models.NotificationKindChatMessage, envelope.Notification.Kind)
}

func TestChatEventTruncatesLongBodies(t *testing.T) {
	orderDB := mocks.NewOrderDatabase(t)
	notificationDB := mocks.NewNotificationDatabase(t)
	c := cachemocks.NewService(t)

	orderDB.On("FindOne", mock.Anything, bson.M{"_id": "order-1"}).Return(testOrder(), nil)

	var inserted []models.Notification
	notificationDB.On("InsertMany", mock.Anything, mock.AnythingOfType("[]models.Notification")).
		Run(func(args mock.Arguments) { inserted = args.Get(1).([]models.Notification) }).
		Return([]interface{}{"id-1"}, nil)
	c.On("Publish", mock.Anything, "notifications", mock.AnythingOfType("string")).Return(nil)

	n := &Notifier{Orders: orderDB, Notifications: notificationDB, Cache: c}
	actor := &models.Principal{ID: "agent-1", Role: models.RoleAgent, DisplayName: "Femi"}
	body := strings.Repeat("x", 80)
	n.ChatEvent(context.Background(), models.NotificationKindChatMessage, "order-1", actor, body)

	assert.Len(t, inserted, 1)
	assert.Equal(t, "customer-1", inserted[0].RecipientID)
	assert.Len(t, inserted[0].Body, 53)
	assert.True(t, strings.HasSuffix(inserted[0].Body, "..."))
}

func TestChatEventTruncatesMultibyteBodiesOnRuneBoundaries(t *testing.T) {
	orderDB := mocks.NewOrderDatabase(t)
	notificationDB := mocks.NewNotificationDatabase(t)
	c := cachemocks.NewService(t)

	orderDB.On("FindOne", mock.Anything, bson.M{"_id": "order-1"}).Return(testOrder(), nil)

	var inserted []models.Notification
	notificationDB.On("InsertMany", mock.Anything, mock.AnythingOfType("[]models.Notification")).
		Run(func(args mock.Arguments) { inserted = args.Get(1).([]models.Notification) }).
		Return([]interface{}{"id-1"}, nil)
	c.On("Publish", mock.Anything, "notifications", mock.AnythingOfType("string")).Return(nil)

	n := &Notifier{Orders: orderDB, Notifications: notificationDB, Cache: c}
	actor := &models.Principal{ID: "agent-1", Role: models.RoleAgent, DisplayName: "Femi"}
	body := strings.Repeat("é", 60)
	n.ChatEvent(context.Background(), models.NotificationKindChatMessage, "order-1", actor, body)

	assert.Len(t, inserted, 1)
	assert.True(t, utf8.ValidString(inserted[0].Body))
	assert.Equal(t, 53, utf8.RuneCountInString(inserted[0].Body))
	assert.True(t, strings.HasSuffix(inserted[0].Body, "..."))
	assert.Equal(t, strings.Repeat("é", 50), strings.TrimSuffix(inserted[0].Body, "..."))
}

func TestChatEventSkipsWhenActorIsOnlyParticipant(t *testing.T) {
	orderDB := mocks.NewOrderDatabase(t)
	notificationDB := mocks.NewNotificationDatabase(t)
	c := cachemocks.NewService(t)

	order := &models.Order{
		ID:      "order-2",
		Details: models.OrderDetails{CustomerID: "customer-1"},
	}
	orderDB.On("FindOne", mock.Anything, bson.M{"_id": "order-2"}).Return(order, nil)

	n := &Notifier{Orders: orderDB, Notifications: notificationDB, Cache: c}
	actor := &models.Principal{ID: "customer-1", Role: models.RoleCustomer, DisplayName: "Ada"}
	n.ChatEvent(context.Background(), models.NotificationKindChatMessage, "order-2", actor, "hello")

	notificationDB.AssertNotCalled(t, "InsertMany", mock.Anything, mock.Anything)
	c.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkReadFlipsUnreadNotifications(t *testing.T) {
	notificationDB := mocks.NewNotificationDatabase(t)

	notificationDB.On("UpdateMany", mock.Anything,
		bson.M{"resource": "order:order-1", "recipientID": "customer-1", "read": false},
		bson.M{"$set": bson.M{"read": true}},
	).Return(&mongo.UpdateResult{MatchedCount: 2, ModifiedCount: 2}, nil)

	n := &Notifier{Notifications: notificationDB}
	assert.NoError(t, n.MarkRead(context.Background(), "order-1", "customer-1"))
}
