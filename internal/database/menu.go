package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const listMenuItemsForOrder = `
SELECT id, name, price, is_available
FROM menu_items
WHERE id = ANY($1::uuid[])
  AND restaurant_id = $2
`

type ListMenuItemsForOrderParams struct {
	IDs          []uuid.UUID
	RestaurantID uuid.UUID
}

type ListMenuItemsForOrderRow struct {
	ID          uuid.UUID
	Name        string
	Price       pgtype.Numeric
	IsAvailable bool
}

// ListMenuItemsForOrder returns the menu items from the given restaurant
// matching the id set. Items from other restaurants are silently absent; the
// caller compares set sizes to detect foreign or unknown ids.
func (q *Queries) ListMenuItemsForOrder(ctx context.Context, arg ListMenuItemsForOrderParams) ([]ListMenuItemsForOrderRow, error) {
	rows, err := q.db.Query(ctx, listMenuItemsForOrder, arg.IDs, arg.RestaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListMenuItemsForOrderRow
	for rows.Next() {
		var i ListMenuItemsForOrderRow
		if err := rows.Scan(&i.ID, &i.Name, &i.Price, &i.IsAvailable); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
