package models

// Roles a principal can carry on a connection
const (
	RoleCustomer = "customer"
	RoleAgent    = "agent"
	RoleAdmin    = "admin"
)

// Admin scopes resolved from the admin token
const (
	AdminScopeSuper   = "super"
	AdminScopeSupport = "support"
)

// Principal is the authenticated identity attached to a connection after a
// successful handshake. Created once per handshake and immutable for the
// lifetime of the connection.
type Principal struct {
	ID          string `json:"id"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
	AdminScope  string `json:"adminScope,omitempty"`
	Token       string `json:"-"`
}

// IsAdmin reports whether the principal authenticated through the admin path
func (p *Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
