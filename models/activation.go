package models

import "time"

// ChatActivation is the ephemeral cache record marking an order's chat live.
// It expires via cache TTL; there is no hard delete.
type ChatActivation struct {
	OrderID     string        `json:"orderID"`
	ActivatedBy ChatActivator `json:"activatedBy"`
	ActivatedAt time.Time     `json:"activatedAt"`
}

// ChatActivator identifies who brought the chat live
type ChatActivator struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	Name string `json:"name"`
}
