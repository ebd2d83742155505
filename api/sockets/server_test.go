package sockets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringFieldPrefersFirstNonEmptyAlias(t *testing.T) {
	msg := map[string]interface{}{"orderId": "order-1", "orderID": "order-2"}
	assert.Equal(t, "order-1", stringField(msg, "orderId", "orderID"))

	msg = map[string]interface{}{"orderID": "order-2"}
	assert.Equal(t, "order-2", stringField(msg, "orderId", "orderID"))

	assert.Equal(t, "", stringField(map[string]interface{}{}, "orderId", "orderID"))
	assert.Equal(t, "", stringField(map[string]interface{}{"orderId": 42}, "orderId", "orderID"))
}

func TestOrderIDOfAcceptsBareStringPayload(t *testing.T) {
	assert.Equal(t, "order-1", orderIDOf("order-1"))
}

func TestOrderIDOfAcceptsObjectPayload(t *testing.T) {
	assert.Equal(t, "order-1", orderIDOf(map[string]interface{}{"orderId": "order-1"}))
	assert.Equal(t, "order-1", orderIDOf(map[string]interface{}{"orderID": "order-1"}))
}

func TestOrderIDOfRejectsOtherShapes(t *testing.T) {
	assert.Equal(t, "", orderIDOf(nil))
	assert.Equal(t, "", orderIDOf(42))
	assert.Equal(t, "", orderIDOf(map[string]interface{}{"order": "order-1"}))
	assert.Equal(t, "", orderIDOf(""))
}
