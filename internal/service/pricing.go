package service

import (
	"github.com/google/uuid"
	"github.com/mealdash/api/internal/database"
	"github.com/mealdash/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Quote is the money breakdown of a priced cart. Always:
// TotalAmount = Subtotal + TaxAmount + DeliveryFee + TipAmount.
type Quote struct {
	Subtotal    decimal.Decimal
	TaxAmount   decimal.Decimal
	DeliveryFee decimal.Decimal
	TipAmount   decimal.Decimal
	TotalAmount decimal.Decimal
}

// priceCart is the pricing calculator: a pure function of the validated
// cart, the restaurant policy snapshot, and the tip. No I/O.
func (s *OrderService) priceCart(
	items []CreateOrderItemRequest,
	itemIDs []uuid.UUID,
	menuByID map[uuid.UUID]database.ListMenuItemsForOrderRow,
	restaurant database.GetRestaurantPolicyRow,
	orderType string,
	tip decimal.Decimal,
) (Quote, error) {
	subtotal := decimal.Zero
	for i, item := range items {
		price := numericToDecimal(menuByID[itemIDs[i]].Price)
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt32(item.Quantity)))
	}

	deliveryFee := decimal.Zero
	if orderType == enum.OrderTypeDelivery {
		if subtotal.LessThan(numericToDecimal(restaurant.MinimumOrder)) {
			return Quote{}, ErrBelowMinimumOrder
		}
		deliveryFee = numericToDecimal(restaurant.DeliveryFee)
	}

	taxAmount := subtotal.Mul(s.taxRate).Round(2)
	totalAmount := subtotal.Add(taxAmount).Add(deliveryFee).Add(tip)

	return Quote{
		Subtotal:    subtotal,
		TaxAmount:   taxAmount,
		DeliveryFee: deliveryFee,
		TipAmount:   tip,
		TotalAmount: totalAmount,
	}, nil
}
