package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// ChatMessage holds the structure for the chatmessages collection in mongo.
// Sender display fields are denormalized at write time so the stored document
// is already wire-ready for room broadcast.
type ChatMessage struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	OrderID    string             `json:"orderID" bson:"orderID"`
	SenderID   string             `json:"senderID" bson:"senderID"`
	SenderType string             `json:"senderType" bson:"senderType"` // "customer", "agent", "admin"
	SenderName string             `json:"senderName" bson:"senderName"`
	Message    string             `json:"message" bson:"message"`
	ImageURL   string             `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	IsRead     bool               `json:"isRead" bson:"isRead"`
	CreatedAt  primitive.DateTime `json:"createdAt" bson:"createdAt"`
}

// UnreadOrderCount is one row of the unread-count aggregation grouped by order
type UnreadOrderCount struct {
	OrderID string `json:"orderID" bson:"_id"`
	Count   int64  `json:"count" bson:"count"`
}
