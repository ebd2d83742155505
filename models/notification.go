package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Notification kinds produced by the chat fan-out
const (
	NotificationKindChatMessage   = "chat.message"
	NotificationKindChatActivated = "chat.activated"
	NotificationKindChatLeft      = "chat.left"
)

// Notification holds the structure for the notifications collection in mongo
type Notification struct {
	ID          primitive.ObjectID     `json:"_id" bson:"_id,omitempty"`
	Kind        string                 `json:"kind" bson:"kind"`
	RecipientID string                 `json:"recipientID" bson:"recipientID"`
	ActorID     string                 `json:"actorID" bson:"actorID"`
	Resource    string                 `json:"resource" bson:"resource"` // e.g. "order:<id>"
	Heading     string                 `json:"heading" bson:"heading"`
	Body        string                 `json:"body" bson:"body"`
	Read        bool                   `json:"read" bson:"read"`
	Metadata    map[string]interface{} `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt   primitive.DateTime     `json:"createdAt" bson:"createdAt"`
}
