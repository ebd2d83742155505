package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	cachemocks "github.com/ojamarket/realtime-api/cache/mocks"
	"github.com/ojamarket/realtime-api/databases/mocks"
	"github.com/ojamarket/realtime-api/models"
)

// fakeBroadcaster records room broadcasts for assertions
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []broadcastCall
}

type broadcastCall struct {
	room  string
	event string
	args  []interface{}
}

func (f *fakeBroadcaster) BroadcastToRoom(room, event string, args ...interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, broadcastCall{room: room, event: event, args: args})
}

func (f *fakeBroadcaster) calls() []broadcastCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]broadcastCall(nil), f.events...)
}

// quietNotifier builds a notifier whose mocks tolerate the async fan-out
// goroutine without asserting on it
func quietNotifier() *Notifier {
	orderDB := &mocks.OrderDatabase{}
	orderDB.On("FindOne", mock.Anything, mock.Anything).Return(testOrder(), nil).Maybe()
	notificationDB := &mocks.NotificationDatabase{}
	notificationDB.On("InsertMany", mock.Anything, mock.Anything).Return([]interface{}{}, nil).Maybe()
	notificationDB.On("UpdateMany", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{}, nil).Maybe()
	c := &cachemocks.Service{}
	c.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return &Notifier{Orders: orderDB, Notifications: notificationDB, Cache: c}
}

func activeCache(t *testing.T, active bool) *cachemocks.Service {
	c := cachemocks.NewService(t)
	c.On("Exists", mock.Anything, mock.AnythingOfType("string")).Return(active, nil).Maybe()
	return c
}

func TestSendMessageRejectsInactiveChat(t *testing.T) {
	messageDB := mocks.NewChatMessageDatabase(t)
	broadcast := &fakeBroadcaster{}

	s := &Service{
		Messages:   messageDB,
		Activation: &ActivationStore{Cache: activeCache(t, false)},
		Broadcast:  broadcast,
	}

	sender := &models.Principal{ID: "customer-1", Role: models.RoleCustomer, DisplayName: "Ada"}
	msg, err := s.SendMessage(context.Background(), sender, "order-1", "hello", "")

	assert.Nil(t, msg)
	assert.IsType(t, models.InvalidStateError{}, err)
	assert.Empty(t, broadcast.calls())
	messageDB.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestSendMessageRejectsNonParticipant(t *testing.T) {
	orderDB := mocks.NewOrderDatabase(t)
	messageDB := mocks.NewChatMessageDatabase(t)
	broadcast := &fakeBroadcaster{}

	orderDB.On("FindOne", mock.Anything, bson.M{"_id": "order-1"}).Return(testOrder(), nil)

	s := &Service{
		Messages:   messageDB,
		Orders:     orderDB,
		Activation: &ActivationStore{Cache: activeCache(t, true)},
		Broadcast:  broadcast,
	}

	sender := &models.Principal{ID: "stranger-1", Role: models.RoleCustomer, DisplayName: "Eve"}
	msg, err := s.SendMessage(context.Background(), sender, "order-1", "hello", "")

	assert.Nil(t, msg)
	assert.IsType(t, models.AuthorizationError{}, err)
	assert.Empty(t, broadcast.calls())
}

func TestSendMessagePersistsAndBroadcasts(t *testing.T) {
	dbHelper := mocks.NewDatabaseHelper(t)
	client := mocks.NewClientHelper(t)
	orderDB := mocks.NewOrderDatabase(t)
	messageDB := mocks.NewChatMessageDatabase(t)
	userDB := mocks.NewUserDatabase(t)
	insertResult := mocks.NewInsertOneResultHelper(t)
	broadcast := &fakeBroadcaster{}

	// standalone mongo, no sessions: the plain insert path
	dbHelper.On("Client").Return(client)
	client.On("StartSession").Return(nil, errors.New("sessions not supported"))

	orderDB.On("FindOne", mock.Anything, bson.M{"_id": "order-1"}).Return(testOrder(), nil)
	userDB.On("FindOne", mock.Anything, bson.M{"_id": "customer-1"}).Return(&models.User{
		ID:      "customer-1",
		Details: models.UserDetails{Name: "Ada Obi", Role: models.RoleCustomer},
	}, nil)

	msgID := primitive.NewObjectID()
	insertResult.On("Decode").Return(msgID)

	var inserted models.ChatMessage
	messageDB.On("InsertOne", mock.Anything, mock.AnythingOfType("models.ChatMessage")).
		Run(func(args mock.Arguments) { inserted = args.Get(1).(models.ChatMessage) }).
		Return(insertResult, nil)

	s := &Service{
		DB:         dbHelper,
		Messages:   messageDB,
		Orders:     orderDB,
		Users:      userDB,
		Activation: &ActivationStore{Cache: activeCache(t, true)},
		Notifier:   quietNotifier(),
		Broadcast:  broadcast,
	}

	sender := &models.Principal{ID: "customer-1", Role: models.RoleCustomer, DisplayName: "Ada"}
	msg, err := s.SendMessage(context.Background(), sender, "order-1", "hello", "")

	assert.NoError(t, err)
	assert.NotNil(t, msg)
	assert.Equal(t, msgID, msg.ID)
	assert.Equal(t, "Ada Obi", msg.SenderName)
	assert.Equal(t, "order-1", inserted.OrderID)
	assert.Equal(t, "customer-1", inserted.SenderID)
	assert.False(t, inserted.IsRead)

	calls := broadcast.calls()
	assert.Len(t, calls, 1)
	assert.Equal(t, "order:order-1", calls[0].room)
	assert.Equal(t, "new-message", calls[0].event)
}

func TestSendMessageReturnsInsertFailure(t *testing.T) {
	dbHelper := mocks.NewDatabaseHelper(t)
	client := mocks.NewClientHelper(t)
	orderDB := mocks.NewOrderDatabase(t)
	messageDB := mocks.NewChatMessageDatabase(t)
	userDB := mocks.NewUserDatabase(t)
	broadcast := &fakeBroadcaster{}

	dbHelper.On("Client").Return(client)
	client.On("StartSession").Return(nil, errors.New("sessions not supported"))
	orderDB.On("FindOne", mock.Anything, bson.M{"_id": "order-1"}).Return(testOrder(), nil)
	userDB.On("FindOne", mock.Anything, bson.M{"_id": "agent-1"}).Return(&models.User{
		ID:      "agent-1",
		Details: models.UserDetails{Name: "Femi", Role: models.RoleAgent},
	}, nil)
	messageDB.On("InsertOne", mock.Anything, mock.AnythingOfType("models.ChatMessage")).
		Return(nil, errors.New("write failed"))

	s := &Service{
		DB:         dbHelper,
		Messages:   messageDB,
		Orders:     orderDB,
		Users:      userDB,
		Activation: &ActivationStore{Cache: activeCache(t, true)},
		Broadcast:  broadcast,
	}

	sender := &models.Principal{ID: "agent-1", Role: models.RoleAgent, DisplayName: "Femi"}
	msg, err := s.SendMessage(context.Background(), sender, "order-1", "hello", "")

	assert.Nil(t, msg)
	assert.Error(t, err)
	assert.Empty(t, broadcast.calls())
}

func TestMessagesByOrderReturnsEmptySliceNotNil(t *testing.T) {
	messageDB := mocks.NewChatMessageDatabase(t)
	messageDB.On("Find", mock.Anything, bson.M{"orderID": "order-1"}, mock.Anything).
		Return(nil, nil)

	s := &Service{Messages: messageDB}
	messages, err := s.MessagesByOrder(context.Background(), "order-1")

	assert.NoError(t, err)
	assert.NotNil(t, messages)
	assert.Empty(t, messages)
}

func TestMarkMessagesAsRead(t *testing.T) {
	messageDB := mocks.NewChatMessageDatabase(t)
	notificationDB := mocks.NewNotificationDatabase(t)

	messageDB.On("UpdateMany", mock.Anything,
		bson.M{"orderID": "order-1", "senderID": bson.M{"$ne": "customer-1"}, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true}},
	).Return(&mongo.UpdateResult{MatchedCount: 3, ModifiedCount: 3}, nil).Once()
	messageDB.On("UpdateMany", mock.Anything,
		bson.M{"orderID": "order-1", "senderID": bson.M{"$ne": "customer-1"}, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true}},
	).Return(&mongo.UpdateResult{}, nil).Once()
	notificationDB.On("UpdateMany", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{}, nil)

	s := &Service{
		Messages: messageDB,
		Notifier: &Notifier{Notifications: notificationDB},
	}

	updated, err := s.MarkMessagesAsRead(context.Background(), "order-1", "customer-1")
	assert.NoError(t, err)
	assert.Equal(t, int64(3), updated)

	updated, err = s.MarkMessagesAsRead(context.Background(), "order-1", "customer-1")
	assert.NoError(t, err)
	assert.Zero(t, updated)
}

func TestUnreadCountsByOrder(t *testing.T) {
	orderDB := mocks.NewOrderDatabase(t)
	messageDB := mocks.NewChatMessageDatabase(t)
	cursor := mocks.NewCursorHelper(t)

	orderDB.On("Find", mock.Anything, bson.M{"$or": []bson.M{
		{"order.customerID": "customer-1"},
		{"order.agentID": "customer-1"},
		{"order.agent._id": "customer-1"},
	}}).Return([]models.Order{
		{ID: "order-1", Details: models.OrderDetails{CustomerID: "customer-1"}},
		{ID: "order-2", Details: models.OrderDetails{CustomerID: "customer-1"}},
	}, nil)

	messageDB.On("Aggregate", mock.Anything, mock.Anything).Return(cursor, nil)
	cursor.On("All", mock.Anything, mock.AnythingOfType("*[]models.UnreadOrderCount")).
		Run(func(args mock.Arguments) {
			counts := args.Get(1).(*[]models.UnreadOrderCount)
			*counts = []models.UnreadOrderCount{{OrderID: "order-1", Count: 2}}
		}).
		Return(nil)
	cursor.On("Close", mock.Anything).Return(nil)

	s := &Service{Messages: messageDB, Orders: orderDB}
	counts, err := s.UnreadCountsByOrder(context.Background(), "customer-1")

	assert.NoError(t, err)
	assert.Len(t, counts, 1)
	assert.Equal(t, "order-1", counts[0].OrderID)
	assert.Equal(t, int64(2), counts[0].Count)
}

func TestUnreadCountsByOrderNoOrders(t *testing.T) {
	orderDB := mocks.NewOrderDatabase(t)
	messageDB := mocks.NewChatMessageDatabase(t)

	orderDB.On("Find", mock.Anything, mock.Anything).Return([]models.Order{}, nil)

	s := &Service{Messages: messageDB, Orders: orderDB}
	counts, err := s.UnreadCountsByOrder(context.Background(), "customer-1")

	assert.NoError(t, err)
	assert.Empty(t, counts)
	messageDB.AssertNotCalled(t, "Aggregate", mock.Anything, mock.Anything)
}

func TestActivateBroadcastsAndNotifiesOnFirstActivation(t *testing.T) {
	orderDB := mocks.NewOrderDatabase(t)
	c := cachemocks.NewService(t)
	broadcast := &fakeBroadcaster{}

	orderDB.On("FindOne", mock.Anything, bson.M{"_id": "order-1"}).Return(testOrder(), nil)
	c.On("Exists", mock.Anything, "chat:active:order-1").Return(false, nil)
	var stored string
	c.On("Set", mock.Anything, "chat:active:order-1", mock.AnythingOfType("string"), activationTTL).
		Run(func(args mock.Arguments) { stored = args.String(2) }).
		Return(nil)
	c.On("Get", mock.Anything, "chat:active:order-1").
		Return(func(context.Context, string) string { return stored }, nil)

	s := &Service{
		Orders:     orderDB,
		Activation: &ActivationStore{Cache: c},
		Notifier:   quietNotifier(),
		Broadcast:  broadcast,
	}

	by := &models.Principal{ID: "customer-1", Role: models.RoleCustomer, DisplayName: "Ada"}
	record, err := s.Activate(context.Background(), by, "order-1")

	assert.NoError(t, err)
	assert.NotNil(t, record)
	assert.Equal(t, "customer-1", record.ActivatedBy.ID)

	calls := broadcast.calls()
	assert.Len(t, calls, 1)
	assert.Equal(t, "order:order-1", calls[0].room)
	assert.Equal(t, "chat-activated", calls[0].event)
}

func TestActivateRejectsNonParticipant(t *testing.T) {
	orderDB := mocks.NewOrderDatabase(t)
	broadcast := &fakeBroadcaster{}

	orderDB.On("FindOne", mock.Anything, bson.M{"_id": "order-1"}).Return(testOrder(), nil)

	s := &Service{Orders: orderDB, Broadcast: broadcast}
	by := &models.Principal{ID: "stranger-1", Role: models.RoleCustomer, DisplayName: "Eve"}
	record, err := s.Activate(context.Background(), by, "order-1")

	assert.Nil(t, record)
	assert.IsType(t, models.AuthorizationError{}, err)
	assert.Empty(t, broadcast.calls())
}

func TestLeaveBroadcastsDeparture(t *testing.T) {
	broadcast := &fakeBroadcaster{}
	s := &Service{Notifier: quietNotifier(), Broadcast: broadcast}

	who := &models.Principal{ID: "agent-1", Role: models.RoleAgent, DisplayName: "Femi"}
	s.Leave(context.Background(), who, "order-1")

	calls := broadcast.calls()
	assert.Len(t, calls, 1)
	assert.Equal(t, "order:order-1", calls[0].room)
	assert.Equal(t, "user-left", calls[0].event)
	payload := calls[0].args[0].(map[string]interface{})
	assert.Equal(t, "order-1", payload["orderID"])
}
