package orders

import (
	"github.com/dinehall/orderdesk/pkg/models"
)

// Scope is the visibility predicate for order list queries. Zero values mean
// "no restriction" for the corresponding field.
type Scope struct {
	// CustomerID restricts results to orders owned by this customer.
	CustomerID string
	// Statuses restricts results to orders whose status is in the set.
	Statuses []models.OrderStatus
	// NotStatuses excludes orders whose status is in the set.
	NotStatuses []models.OrderStatus
	// OrderType restricts results to one order type.
	OrderType models.OrderType
	// TableNumber restricts results to one table.
	TableNumber int
}

// ScopeFor computes the visibility scope for a list query. It is a pure
// function of the actor's role and the caller's explicit filters:
//
//	customer           only their own orders
//	chef               kitchen work queue (pending, confirmed, preparing)
//	waiter             dine-in orders that are still in flight
//	cashier            payment collection queue (ready, delivered)
//	admin/manager/owner unrestricted
//	anything else      treated as customer (fail-safe)
//
// An explicit status filter replaces the role's default status window but never
// widens the ownership, order-type or table restriction.
func ScopeFor(actor models.Actor, status models.OrderStatus, tableNumber int) Scope {
	var scope Scope

	switch actor.Role {
	case models.RoleChef:
		scope.Statuses = []models.OrderStatus{
			models.StatusPending,
			models.StatusConfirmed,
			models.StatusPreparing,
		}
	case models.RoleWaiter:
		scope.OrderType = models.TypeDineIn
		scope.NotStatuses = []models.OrderStatus{
			models.StatusDelivered,
			models.StatusCancelled,
		}
	case models.RoleCashier:
		scope.Statuses = []models.OrderStatus{
			models.StatusReady,
			models.StatusDelivered,
		}
	case models.RoleAdmin, models.RoleManager, models.RoleOwner:
		// Unrestricted.
	default:
		// Customers and unknown roles see only their own orders.
		scope.CustomerID = actor.ID
	}

	if status != "" {
		scope.Statuses = []models.OrderStatus{status}
		scope.NotStatuses = nil
	}
	if tableNumber > 0 {
		scope.TableNumber = tableNumber
	}

	return scope
}

// Matches reports whether an order falls inside the scope. The mongo store
// compiles Scope into a query filter; this is the reference predicate used by
// in-memory stores and tests.
func (s Scope) Matches(o *models.Order) bool {
	if s.CustomerID != "" && o.CustomerID != s.CustomerID {
		return false
	}
	if s.OrderType != "" && o.OrderType != s.OrderType {
		return false
	}
	if s.TableNumber > 0 && o.TableNumber != s.TableNumber {
		return false
	}
	if len(s.Statuses) > 0 {
		found := false
		for _, st := range s.Statuses {
			if o.OrderStatus == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, st := range s.NotStatuses {
		if o.OrderStatus == st {
			return false
		}
	}
	return true
}
