package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// PushToken holds the structure for the pushtokens collection in mongo. Tokens
// are registered by the mobile clients; the realtime core only reads them.
type PushToken struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID    string             `bson:"userID" json:"userID"`
	Token     string             `bson:"token" json:"token"`
	Platform  string             `bson:"platform" json:"platform"`
	UpdatedAt interface{}        `bson:"updatedAt" json:"updatedAt"`
}
