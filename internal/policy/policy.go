// Package policy holds the authorization matrix for orders and deliveries.
// It is a pure function over ownership facts so the same decision is made by
// the order state machine and the delivery assignment manager, and so it can
// be tested without any storage.
package policy

import (
	"github.com/google/uuid"
	"github.com/mealdash/api/internal/enum"
)

// OrderFacts describes who is attached to an order. CourierID is the courier
// on the linked delivery; zero when the order has no claimed delivery.
type OrderFacts struct {
	CustomerID        uuid.UUID
	RestaurantOwnerID uuid.UUID
	CourierID         uuid.UUID
}

// CanActOnOrder reports whether the actor may read or transition the order.
//
// Matrix: admin → always; customer → own orders; restaurant → orders placed
// at a restaurant they own; courier → orders they are the assigned courier
// for. Everything else is denied.
func CanActOnOrder(role string, actorID uuid.UUID, f OrderFacts) bool {
	switch role {
	case enum.RoleAdmin:
		return true
	case enum.RoleCustomer:
		return actorID != uuid.Nil && actorID == f.CustomerID
	case enum.RoleRestaurant:
		return actorID != uuid.Nil && actorID == f.RestaurantOwnerID
	case enum.RoleCourier:
		return actorID != uuid.Nil && actorID == f.CourierID
	}
	return false
}

// CanActOnDelivery reports whether the actor may mutate a delivery
// assignment: the assigned courier, or an admin.
func CanActOnDelivery(role string, actorID, assignedCourierID uuid.UUID) bool {
	if role == enum.RoleAdmin {
		return true
	}
	return role == enum.RoleCourier && actorID != uuid.Nil && actorID == assignedCourierID
}
