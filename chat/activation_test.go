package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	cachemocks "github.com/ojamarket/realtime-api/cache/mocks"
	"github.com/ojamarket/realtime-api/models"
)

func TestActivateStoresRecordWithTTL(t *testing.T) {
	c := cachemocks.NewService(t)

	var stored string
	c.On("Set", mock.Anything, "chat:active:order-1", mock.AnythingOfType("string"), activationTTL).
		Run(func(args mock.Arguments) { stored = args.String(2) }).
		Return(nil)

	store := &ActivationStore{Cache: c}
	ok := store.Activate(context.Background(), "order-1", models.ChatActivator{ID: "u1", Role: models.RoleCustomer, Name: "Ada"})
	assert.True(t, ok)

	var record models.ChatActivation
	assert.NoError(t, json.Unmarshal([]byte(stored), &record))
	assert.Equal(t, "order-1", record.OrderID)
	assert.Equal(t, "u1", record.ActivatedBy.ID)
	assert.Equal(t, models.RoleCustomer, record.ActivatedBy.Role)
	assert.False(t, record.ActivatedAt.IsZero())
}

func TestActivateIsIdempotentAndLastWriterWins(t *testing.T) {
	c := cachemocks.NewService(t)

	var stored string
	c.On("Set", mock.Anything, "chat:active:order-1", mock.AnythingOfType("string"), activationTTL).
		Run(func(args mock.Arguments) { stored = args.String(2) }).
		Return(nil).
		Twice()

	store := &ActivationStore{Cache: c}
	assert.True(t, store.Activate(context.Background(), "order-1", models.ChatActivator{ID: "u1", Role: models.RoleCustomer, Name: "Ada"}))
	assert.True(t, store.Activate(context.Background(), "order-1", models.ChatActivator{ID: "a1", Role: models.RoleAgent, Name: "Femi"}))

	var record models.ChatActivation
	assert.NoError(t, json.Unmarshal([]byte(stored), &record))
	assert.Equal(t, "a1", record.ActivatedBy.ID)
	assert.Equal(t, models.RoleAgent, record.ActivatedBy.Role)
}

func TestActivateReportsCacheFailure(t *testing.T) {
	c := cachemocks.NewService(t)
	c.On("Set", mock.Anything, "chat:active:order-1", mock.AnythingOfType("string"), activationTTL).
		Return(errors.New("redis down"))

	store := &ActivationStore{Cache: c}
	assert.False(t, store.Activate(context.Background(), "order-1", models.ChatActivator{ID: "u1"}))
}

func TestIsActive(t *testing.T) {
	c := cachemocks.NewService(t)
	c.On("Exists", mock.Anything, "chat:active:order-1").Return(true, nil)
	c.On("Exists", mock.Anything, "chat:active:order-2").Return(false, nil)

	store := &ActivationStore{Cache: c}
	assert.True(t, store.IsActive(context.Background(), "order-1"))
	assert.False(t, store.IsActive(context.Background(), "order-2"))
}

func TestIsActiveFailsClosedOnCacheError(t *testing.T) {
	c := cachemocks.NewService(t)
	c.On("Exists", mock.Anything, "chat:active:order-1").Return(false, errors.New("redis down"))

	store := &ActivationStore{Cache: c}
	assert.False(t, store.IsActive(context.Background(), "order-1"))
}

func TestGetRoundTripsActivationRecord(t *testing.T) {
	c := cachemocks.NewService(t)

	var stored string
	c.On("Set", mock.Anything, "chat:active:order-1", mock.AnythingOfType("string"), activationTTL).
		Run(func(args mock.Arguments) { stored = args.String(2) }).
		Return(nil)
	c.On("Get", mock.Anything, "chat:active:order-1").
		Return(func(context.Context, string) string { return stored }, nil)

	store := &ActivationStore{Cache: c}
	assert.True(t, store.Activate(context.Background(), "order-1", models.ChatActivator{ID: "u1", Role: models.RoleCustomer, Name: "Ada"}))

	record := store.Get(context.Background(), "order-1")
	assert.NotNil(t, record)
	assert.Equal(t, "order-1", record.OrderID)
	assert.Equal(t, "Ada", record.ActivatedBy.Name)
}
