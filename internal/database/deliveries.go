package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createDelivery = `
INSERT INTO deliveries (order_id, status, estimated_delivery_time)
VALUES ($1, 'assigned', $2)
RETURNING id, order_id, courier_id, status, pickup_time, delivery_time,
          estimated_delivery_time, created_at, updated_at
`

type CreateDeliveryParams struct {
	OrderID               uuid.UUID
	EstimatedDeliveryTime pgtype.Timestamptz
}

func (q *Queries) CreateDelivery(ctx context.Context, arg CreateDeliveryParams) (Delivery, error) {
	return scanDelivery(q.db.QueryRow(ctx, createDelivery, arg.OrderID, arg.EstimatedDeliveryTime))
}

const claimDelivery = `
UPDATE deliveries
SET courier_id = $2,
    status = 'assigned',
    updated_at = now()
WHERE id = $1
  AND courier_id IS NULL
RETURNING id, order_id, courier_id, status, pickup_time, delivery_time,
          estimated_delivery_time, created_at, updated_at
`

type ClaimDeliveryParams struct {
	ID        uuid.UUID
	CourierID uuid.UUID
}

// ClaimDelivery is the single conditional write that decides claim races.
// When another courier already holds the delivery the condition matches zero
// rows and the scan returns pgx.ErrNoRows; callers map that to a conflict,
// never to a retry.
func (q *Queries) ClaimDelivery(ctx context.Context, arg ClaimDeliveryParams) (Delivery, error) {
	return scanDelivery(q.db.QueryRow(ctx, claimDelivery, arg.ID, arg.CourierID))
}

const getDelivery = `
SELECT id, order_id, courier_id, status, pickup_time, delivery_time,
       estimated_delivery_time, created_at, updated_at
FROM deliveries
WHERE id = $1
`

func (q *Queries) GetDelivery(ctx context.Context, id uuid.UUID) (Delivery, error) {
	return scanDelivery(q.db.QueryRow(ctx, getDelivery, id))
}

const updateDeliveryStatus = `
UPDATE deliveries
SET status = $2,
    updated_at = now(),
    pickup_time = CASE WHEN $2 = 'picked_up' THEN now() ELSE pickup_time END,
    delivery_time = CASE WHEN $2 = 'delivered' THEN now() ELSE delivery_time END
WHERE id = $1
RETURNING id, order_id, courier_id, status, pickup_time, delivery_time,
          estimated_delivery_time, created_at, updated_at
`

type UpdateDeliveryStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) UpdateDeliveryStatus(ctx context.Context, arg UpdateDeliveryStatusParams) (Delivery, error) {
	return scanDelivery(q.db.QueryRow(ctx, updateDeliveryStatus, arg.ID, arg.Status))
}

const setDeliveryStatusByOrder = `
UPDATE deliveries
SET status = $2,
    updated_at = now(),
    pickup_time = CASE WHEN $2 = 'picked_up' THEN now() ELSE pickup_time END,
    delivery_time = CASE WHEN $2 = 'delivered' THEN now() ELSE delivery_time END
WHERE order_id = $1
`

type SetDeliveryStatusByOrderParams struct {
	OrderID uuid.UUID
	Status  string
}

// SetDeliveryStatusByOrder mirrors an order transition onto its linked
// delivery. A missing delivery row (pickup order) matches zero rows, which
// is fine.
func (q *Queries) SetDeliveryStatusByOrder(ctx context.Context, arg SetDeliveryStatusByOrderParams) error {
	_, err := q.db.Exec(ctx, setDeliveryStatusByOrder, arg.OrderID, arg.Status)
	return err
}

const listCourierAssignments = `
SELECT d.id,
       d.status,
       d.pickup_time,
       d.delivery_time,
       d.estimated_delivery_time,
       o.id,
       o.total_amount,
       o.delivery_fee,
       o.tip_amount,
       r.name,
       r.address,
       c.full_name,
       c.phone,
       a.street_address,
       a.city,
       a.state,
       a.zip_code
FROM deliveries d
JOIN orders o ON o.id = d.order_id
JOIN restaurants r ON r.id = o.restaurant_id
JOIN users c ON c.id = o.customer_id
LEFT JOIN addresses a ON a.id = o.delivery_address_id
WHERE d.courier_id = $1
  AND ($2::text IS NULL OR d.status = $2)
ORDER BY d.created_at DESC
`

type ListCourierAssignmentsParams struct {
	CourierID uuid.UUID
	Status    pgtype.Text
}

type ListCourierAssignmentsRow struct {
	ID                    uuid.UUID
	Status                string
	PickupTime            pgtype.Timestamptz
	DeliveryTime          pgtype.Timestamptz
	EstimatedDeliveryTime pgtype.Timestamptz
	OrderID               uuid.UUID
	TotalAmount           pgtype.Numeric
	DeliveryFee           pgtype.Numeric
	TipAmount             pgtype.Numeric
	RestaurantName        string
	RestaurantAddress     string
	CustomerName          string
	CustomerPhone         pgtype.Text
	StreetAddress         pgtype.Text
	City                  pgtype.Text
	State                 pgtype.Text
	ZipCode               pgtype.Text
}

func (q *Queries) ListCourierAssignments(ctx context.Context, arg ListCourierAssignmentsParams) ([]ListCourierAssignmentsRow, error) {
	rows, err := q.db.Query(ctx, listCourierAssignments, arg.CourierID, arg.Status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []ListCourierAssignmentsRow
	for rows.Next() {
		var a ListCourierAssignmentsRow
		if err := rows.Scan(&a.ID, &a.Status, &a.PickupTime, &a.DeliveryTime,
			&a.EstimatedDeliveryTime, &a.OrderID, &a.TotalAmount, &a.DeliveryFee,
			&a.TipAmount, &a.RestaurantName, &a.RestaurantAddress,
			&a.CustomerName, &a.CustomerPhone, &a.StreetAddress, &a.City,
			&a.State, &a.ZipCode); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

const listAvailableDeliveries = `
SELECT d.id,
       d.order_id,
       d.estimated_delivery_time,
       d.created_at,
       o.total_amount,
       o.delivery_fee,
       o.tip_amount,
       r.name,
       r.address
FROM deliveries d
JOIN orders o ON o.id = d.order_id
JOIN restaurants r ON r.id = o.restaurant_id
WHERE d.courier_id IS NULL
  AND o.status NOT IN ('delivered', 'cancelled')
ORDER BY d.created_at ASC
`

type ListAvailableDeliveriesRow struct {
	ID                    uuid.UUID
	OrderID               uuid.UUID
	EstimatedDeliveryTime pgtype.Timestamptz
	CreatedAt             pgtype.Timestamptz
	TotalAmount           pgtype.Numeric
	DeliveryFee           pgtype.Numeric
	TipAmount             pgtype.Numeric
	RestaurantName        string
	RestaurantAddress     string
}

func (q *Queries) ListAvailableDeliveries(ctx context.Context) ([]ListAvailableDeliveriesRow, error) {
	rows, err := q.db.Query(ctx, listAvailableDeliveries)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []ListAvailableDeliveriesRow
	for rows.Next() {
		var d ListAvailableDeliveriesRow
		if err := rows.Scan(&d.ID, &d.OrderID, &d.EstimatedDeliveryTime,
			&d.CreatedAt, &d.TotalAmount, &d.DeliveryFee, &d.TipAmount,
			&d.RestaurantName, &d.RestaurantAddress); err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

func scanDelivery(row interface{ Scan(dest ...any) error }) (Delivery, error) {
	var d Delivery
	err := row.Scan(&d.ID, &d.OrderID, &d.CourierID, &d.Status, &d.PickupTime,
		&d.DeliveryTime, &d.EstimatedDeliveryTime, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}
