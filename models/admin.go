package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// AdminUser represents an administrative user for platform management
type AdminUser struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"`
	Name      string             `bson:"name" json:"name"`
	Roles     []string           `bson:"roles" json:"roles"`
	Scope     string             `bson:"scope" json:"scope"` // "super" or "support"
	Active    bool               `bson:"active" json:"active"`
	CreatedAt interface{}        `bson:"createdAt" json:"createdAt"`
	UpdatedAt interface{}        `bson:"updatedAt" json:"updatedAt"`
}
