package enum

// ── State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusPickedUp  = "picked_up"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

const (
	DeliveryStatusAssigned  = "assigned"
	DeliveryStatusPickedUp  = "picked_up"
	DeliveryStatusEnRoute   = "en_route"
	DeliveryStatusDelivered = "delivered"
)

// ── Canonical vocabulary (CHECK constrained in DB) ──
//
// RoleCourier is the only internal name for the courier identity. The legacy
// external role string "delivery" is rewritten at the HTTP boundary and must
// never appear below the middleware layer.

const (
	RoleCustomer   = "customer"
	RoleRestaurant = "restaurant"
	RoleCourier    = "courier"
	RoleAdmin      = "admin"
)

const (
	OrderTypeDelivery = "delivery"
	OrderTypePickup   = "pickup"
)

// IsOrderStatus reports whether s is a member of the order status set.
func IsOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReady, OrderStatusPickedUp, OrderStatusDelivered,
		OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminalOrderStatus reports whether s admits no further transitions.
func IsTerminalOrderStatus(s string) bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// IsDeliveryStatus reports whether s is a member of the delivery status set.
func IsDeliveryStatus(s string) bool {
	switch s {
	case DeliveryStatusAssigned, DeliveryStatusPickedUp,
		DeliveryStatusEnRoute, DeliveryStatusDelivered:
		return true
	}
	return false
}

// IsRole reports whether s is a canonical internal role.
func IsRole(s string) bool {
	switch s {
	case RoleCustomer, RoleRestaurant, RoleCourier, RoleAdmin:
		return true
	}
	return false
}

// IsOrderType reports whether s is a recognized order type.
func IsOrderType(s string) bool {
	return s == OrderTypeDelivery || s == OrderTypePickup
}
