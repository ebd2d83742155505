package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// AgentLocation is a single agent position sample. The same shape is inserted
// into the agentlocations history collection, cached as the agent's last-known
// position, and broadcast to location rooms.
type AgentLocation struct {
	ID        primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	AgentID   string             `json:"agentID" bson:"agentID"`
	Latitude  float64            `json:"latitude" bson:"latitude"`
	Longitude float64            `json:"longitude" bson:"longitude"`
	OrderID   string             `json:"orderID,omitempty" bson:"orderID,omitempty"`
	RegionID  string             `json:"regionID,omitempty" bson:"regionID,omitempty"`
	Timestamp primitive.DateTime `json:"timestamp" bson:"recordedAt"`
}
