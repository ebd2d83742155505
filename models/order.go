package models

// Order holds the structure for the orders collection in mongo. The realtime
// core only reads participant and region fields; the order lifecycle itself is
// owned by the order service.
type Order struct {
	ID      string       `json:"_id" bson:"_id"`
	Details OrderDetails `json:"order" bson:"order"`
	Version int32        `json:"__v" bson:"__v"`
}

// OrderDetails holds the inner order structure as defined in the orders collection
type OrderDetails struct {
	CustomerID string      `json:"customerID" bson:"customerID"`
	AgentID    string      `json:"agentID,omitempty" bson:"agentID,omitempty"`
	Agent      *OrderAgent `json:"agent,omitempty" bson:"agent,omitempty"`
	MarketID   string      `json:"marketID" bson:"marketID"`
	RegionID   string      `json:"regionID,omitempty" bson:"regionID,omitempty"`
	Status     string      `json:"status" bson:"status"`
	Reference  string      `json:"reference" bson:"reference"`
	CreatedAt  interface{} `json:"createdAt" bson:"createdAt"`
	UpdatedAt  interface{} `json:"updatedAt" bson:"updatedAt"`
}

// OrderAgent is the embedded snapshot of the assigned delivery agent
type OrderAgent struct {
	ID   string `json:"_id" bson:"_id"`
	Name string `json:"name" bson:"name"`
}

// ParticipantIDs returns the user ids entitled to the order's chat. The bare
// agentID foreign key still counts when the embedded snapshot is missing, so a
// half-loaded order never silently drops the agent.
func (o *Order) ParticipantIDs() []string {
	ids := []string{o.Details.CustomerID}
	switch {
	case o.Details.Agent != nil && o.Details.Agent.ID != "":
		ids = append(ids, o.Details.Agent.ID)
	case o.Details.AgentID != "":
		ids = append(ids, o.Details.AgentID)
	}
	return ids
}

// IsParticipant reports whether the given principal may read and write this
// order's chat. Admins are participants of every order.
func (o *Order) IsParticipant(p *Principal) bool {
	if p.IsAdmin() {
		return true
	}
	for _, id := range o.ParticipantIDs() {
		if id == p.ID {
			return true
		}
	}
	return false
}
