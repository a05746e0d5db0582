package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createOrder = `
INSERT INTO orders (
    customer_id,
    restaurant_id,
    delivery_address_id,
    order_type,
    status,
    subtotal,
    delivery_fee,
    tax_amount,
    tip_amount,
    total_amount,
    special_instructions,
    estimated_delivery_time
)
VALUES ($1, $2, $3, $4, 'pending', $5, $6, $7, $8, $9, $10, $11)
RETURNING id, customer_id, restaurant_id, delivery_address_id, order_type, status,
          subtotal, delivery_fee, tax_amount, tip_amount, total_amount,
          special_instructions, estimated_delivery_time, actual_delivery_time,
          created_at, updated_at
`

type CreateOrderParams struct {
	CustomerID            uuid.UUID
	RestaurantID          uuid.UUID
	DeliveryAddressID     pgtype.UUID
	OrderType             string
	Subtotal              pgtype.Numeric
	DeliveryFee           pgtype.Numeric
	TaxAmount             pgtype.Numeric
	TipAmount             pgtype.Numeric
	TotalAmount           pgtype.Numeric
	SpecialInstructions   pgtype.Text
	EstimatedDeliveryTime pgtype.Timestamptz
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.CustomerID, arg.RestaurantID, arg.DeliveryAddressID, arg.OrderType,
		arg.Subtotal, arg.DeliveryFee, arg.TaxAmount, arg.TipAmount,
		arg.TotalAmount, arg.SpecialInstructions, arg.EstimatedDeliveryTime)
	return scanOrder(row)
}

const createOrderItem = `
INSERT INTO order_items (order_id, menu_item_id, quantity, unit_price, special_instructions)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_id, menu_item_id, quantity, unit_price, special_instructions, created_at
`

type CreateOrderItemParams struct {
	OrderID             uuid.UUID
	MenuItemID          uuid.UUID
	Quantity            int32
	UnitPrice           pgtype.Numeric
	SpecialInstructions pgtype.Text
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.MenuItemID, arg.Quantity, arg.UnitPrice, arg.SpecialInstructions)
	var i OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.MenuItemID, &i.Quantity, &i.UnitPrice, &i.SpecialInstructions, &i.CreatedAt)
	return i, err
}

const createOrderStatusEvent = `
INSERT INTO order_status_events (order_id, status, note, created_by)
VALUES ($1, $2, $3, $4)
RETURNING id, order_id, status, note, created_by, created_at
`

type CreateOrderStatusEventParams struct {
	OrderID   uuid.UUID
	Status    string
	Note      pgtype.Text
	CreatedBy uuid.UUID
}

func (q *Queries) CreateOrderStatusEvent(ctx context.Context, arg CreateOrderStatusEventParams) (OrderStatusEvent, error) {
	row := q.db.QueryRow(ctx, createOrderStatusEvent,
		arg.OrderID, arg.Status, arg.Note, arg.CreatedBy)
	var e OrderStatusEvent
	err := row.Scan(&e.ID, &e.OrderID, &e.Status, &e.Note, &e.CreatedBy, &e.CreatedAt)
	return e, err
}

const getOrder = `
SELECT id, customer_id, restaurant_id, delivery_address_id, order_type, status,
       subtotal, delivery_fee, tax_amount, tip_amount, total_amount,
       special_instructions, estimated_delivery_time, actual_delivery_time,
       created_at, updated_at
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderAccessFacts = `
SELECT o.id,
       o.customer_id,
       o.restaurant_id,
       r.owner_id,
       o.order_type,
       o.status,
       d.id,
       d.courier_id
FROM orders o
JOIN restaurants r ON r.id = o.restaurant_id
LEFT JOIN deliveries d ON d.order_id = o.id
WHERE o.id = $1
`

// GetOrderAccessFactsRow carries exactly the ownership facts the
// authorization matrix needs, plus the linked delivery when one exists.
type GetOrderAccessFactsRow struct {
	ID                uuid.UUID
	CustomerID        uuid.UUID
	RestaurantID      uuid.UUID
	RestaurantOwnerID uuid.UUID
	OrderType         string
	Status            string
	DeliveryID        pgtype.UUID
	CourierID         pgtype.UUID
}

func (q *Queries) GetOrderAccessFacts(ctx context.Context, id uuid.UUID) (GetOrderAccessFactsRow, error) {
	row := q.db.QueryRow(ctx, getOrderAccessFacts, id)
	var f GetOrderAccessFactsRow
	err := row.Scan(&f.ID, &f.CustomerID, &f.RestaurantID, &f.RestaurantOwnerID,
		&f.OrderType, &f.Status, &f.DeliveryID, &f.CourierID)
	return f, err
}

const getOrderDetail = `
SELECT o.id, o.customer_id, o.restaurant_id, o.delivery_address_id, o.order_type, o.status,
       o.subtotal, o.delivery_fee, o.tax_amount, o.tip_amount, o.total_amount,
       o.special_instructions, o.estimated_delivery_time, o.actual_delivery_time,
       o.created_at, o.updated_at,
       c.full_name,
       r.name,
       r.address,
       d.status,
       cu.full_name,
       cu.phone
FROM orders o
JOIN users c ON c.id = o.customer_id
JOIN restaurants r ON r.id = o.restaurant_id
LEFT JOIN deliveries d ON d.order_id = o.id
LEFT JOIN users cu ON cu.id = d.courier_id
WHERE o.id = $1
`

type GetOrderDetailRow struct {
	Order             Order
	CustomerName      string
	RestaurantName    string
	RestaurantAddress string
	DeliveryStatus    pgtype.Text
	CourierName       pgtype.Text
	CourierPhone      pgtype.Text
}

func (q *Queries) GetOrderDetail(ctx context.Context, id uuid.UUID) (GetOrderDetailRow, error) {
	row := q.db.QueryRow(ctx, getOrderDetail, id)
	var d GetOrderDetailRow
	o := &d.Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.RestaurantID, &o.DeliveryAddressID,
		&o.OrderType, &o.Status, &o.Subtotal, &o.DeliveryFee, &o.TaxAmount,
		&o.TipAmount, &o.TotalAmount, &o.SpecialInstructions,
		&o.EstimatedDeliveryTime, &o.ActualDeliveryTime, &o.CreatedAt, &o.UpdatedAt,
		&d.CustomerName, &d.RestaurantName, &d.RestaurantAddress,
		&d.DeliveryStatus, &d.CourierName, &d.CourierPhone)
	return d, err
}

const listOrderItemsDetailed = `
SELECT oi.id, oi.menu_item_id, mi.name, oi.quantity, oi.unit_price, oi.special_instructions
FROM order_items oi
JOIN menu_items mi ON mi.id = oi.menu_item_id
WHERE oi.order_id = $1
ORDER BY oi.created_at ASC
`

type ListOrderItemsDetailedRow struct {
	ID                  uuid.UUID
	MenuItemID          uuid.UUID
	MenuItemName        string
	Quantity            int32
	UnitPrice           pgtype.Numeric
	SpecialInstructions pgtype.Text
}

func (q *Queries) ListOrderItemsDetailed(ctx context.Context, orderID uuid.UUID) ([]ListOrderItemsDetailedRow, error) {
	rows, err := q.db.Query(ctx, listOrderItemsDetailed, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListOrderItemsDetailedRow
	for rows.Next() {
		var i ListOrderItemsDetailedRow
		if err := rows.Scan(&i.ID, &i.MenuItemID, &i.MenuItemName, &i.Quantity, &i.UnitPrice, &i.SpecialInstructions); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listOrderStatusEvents = `
SELECT id, order_id, status, note, created_by, created_at
FROM order_status_events
WHERE order_id = $1
ORDER BY created_at ASC, id ASC
`

func (q *Queries) ListOrderStatusEvents(ctx context.Context, orderID uuid.UUID) ([]OrderStatusEvent, error) {
	rows, err := q.db.Query(ctx, listOrderStatusEvents, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []OrderStatusEvent
	for rows.Next() {
		var e OrderStatusEvent
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Status, &e.Note, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

const updateOrderStatus = `
UPDATE orders
SET status = $2,
    updated_at = now(),
    actual_delivery_time = CASE WHEN $2 = 'delivered' THEN now() ELSE actual_delivery_time END
WHERE id = $1
RETURNING id, status, updated_at
`

type UpdateOrderStatusParams struct {
	ID     uuid.UUID
	Status string
}

type UpdateOrderStatusRow struct {
	ID        uuid.UUID
	Status    string
	UpdatedAt time.Time
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (UpdateOrderStatusRow, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status)
	var r UpdateOrderStatusRow
	err := row.Scan(&r.ID, &r.Status, &r.UpdatedAt)
	return r, err
}

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.RestaurantID, &o.DeliveryAddressID,
		&o.OrderType, &o.Status, &o.Subtotal, &o.DeliveryFee, &o.TaxAmount,
		&o.TipAmount, &o.TotalAmount, &o.SpecialInstructions,
		&o.EstimatedDeliveryTime, &o.ActualDeliveryTime, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}
