package sockets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionRoomsMatchesEveryIdentifier(t *testing.T) {
	rooms := subscriptionRooms(map[string]interface{}{
		"agentID":  "agent-1",
		"orderID":  "order-1",
		"regionID": "region-1",
	})

	assert.Equal(t, []string{
		"location:agent:agent-1",
		"location:order:order-1",
		"location:region:region-1",
	}, rooms)
}

func TestSubscriptionRoomsSingleIdentifier(t *testing.T) {
	rooms := subscriptionRooms(map[string]interface{}{"orderID": "order-1"})
	assert.Equal(t, []string{"location:order:order-1"}, rooms)
}

func TestSubscriptionRoomsAcceptsCamelCaseIdentifiers(t *testing.T) {
	rooms := subscriptionRooms(map[string]interface{}{
		"agentId":  "agent-1",
		"orderId":  "order-1",
		"regionId": "region-1",
	})

	assert.Equal(t, []string{
		"location:agent:agent-1",
		"location:order:order-1",
		"location:region:region-1",
	}, rooms)
}

func TestSubscriptionRoomsEmptyRequest(t *testing.T) {
	assert.Empty(t, subscriptionRooms(map[string]interface{}{}))
	assert.Empty(t, subscriptionRooms(map[string]interface{}{"agentID": ""}))
	assert.Empty(t, subscriptionRooms(map[string]interface{}{"agentID": 42}))
}
