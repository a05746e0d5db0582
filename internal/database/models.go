package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID             uuid.UUID
	Email          string
	HashedPassword string
	FullName       string
	Phone          pgtype.Text
	Role           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Address struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	StreetAddress string
	City          string
	State         string
	ZipCode       string
	CreatedAt     time.Time
}

type Restaurant struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	Name         string
	Address      string
	Phone        pgtype.Text
	DeliveryFee  pgtype.Numeric
	MinimumOrder pgtype.Numeric
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type MenuItem struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Description  pgtype.Text
	Price        pgtype.Numeric
	IsAvailable  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Order struct {
	ID                    uuid.UUID
	CustomerID            uuid.UUID
	RestaurantID          uuid.UUID
	DeliveryAddressID     pgtype.UUID
	OrderType             string
	Status                string
	Subtotal              pgtype.Numeric
	DeliveryFee           pgtype.Numeric
	TaxAmount             pgtype.Numeric
	TipAmount             pgtype.Numeric
	TotalAmount           pgtype.Numeric
	SpecialInstructions   pgtype.Text
	EstimatedDeliveryTime pgtype.Timestamptz
	ActualDeliveryTime    pgtype.Timestamptz
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type OrderItem struct {
	ID                  uuid.UUID
	OrderID             uuid.UUID
	MenuItemID          uuid.UUID
	Quantity            int32
	UnitPrice           pgtype.Numeric
	SpecialInstructions pgtype.Text
	CreatedAt           time.Time
}

type OrderStatusEvent struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	Status    string
	Note      pgtype.Text
	CreatedBy uuid.UUID
	CreatedAt time.Time
}

type Delivery struct {
	ID                    uuid.UUID
	OrderID               uuid.UUID
	CourierID             pgtype.UUID
	Status                string
	PickupTime            pgtype.Timestamptz
	DeliveryTime          pgtype.Timestamptz
	EstimatedDeliveryTime pgtype.Timestamptz
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
