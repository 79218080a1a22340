package models

import "time"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleWaiter   Role = "waiter"
	RoleChef     Role = "chef"
	RoleCashier  Role = "cashier"
	RoleManager  Role = "manager"
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
)

// Roles is the closed set of recognized roles. Anything outside it is treated
// as a plain customer when scoping queries (fail-safe, never fail-open).
var Roles = []Role{RoleCustomer, RoleWaiter, RoleChef, RoleCashier, RoleManager, RoleOwner, RoleAdmin}

func (r Role) Known() bool {
	for _, v := range Roles {
		if r == v {
			return true
		}
	}
	return false
}

// Privileged roles see every order and may read aggregate statistics.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleManager || r == RoleOwner
}

// Staff roles may drive order status and payment transitions.
func (r Role) Staff() bool {
	return r.Privileged() || r == RoleChef || r == RoleWaiter || r == RoleCashier
}

// Actor is the verified identity attached to a request by the auth middleware.
type Actor struct {
	ID   string
	Name string
	Role Role
}

type User struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Role         Role      `json:"role" bson:"role"`
	Token        string    `json:"-" bson:"token,omitempty"`
	RefreshToken string    `json:"-" bson:"refresh_token,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`
}
