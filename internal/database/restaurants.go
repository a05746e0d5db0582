package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getRestaurantPolicy = `
SELECT id, owner_id, name, delivery_fee, minimum_order, is_active
FROM restaurants
WHERE id = $1
`

// GetRestaurantPolicyRow is the pricing-relevant snapshot of a restaurant,
// consulted at order-creation time only.
type GetRestaurantPolicyRow struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	Name         string
	DeliveryFee  pgtype.Numeric
	MinimumOrder pgtype.Numeric
	IsActive     bool
}

func (q *Queries) GetRestaurantPolicy(ctx context.Context, id uuid.UUID) (GetRestaurantPolicyRow, error) {
	row := q.db.QueryRow(ctx, getRestaurantPolicy, id)
	var r GetRestaurantPolicyRow
	err := row.Scan(&r.ID, &r.OwnerID, &r.Name, &r.DeliveryFee, &r.MinimumOrder, &r.IsActive)
	return r, err
}
