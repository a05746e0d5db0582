package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mealdash/api/internal/database"
	"github.com/mealdash/api/internal/enum"
	"github.com/mealdash/api/internal/logger"
	"github.com/mealdash/api/internal/policy"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// deliveryEstimate is added to the creation time of delivery orders.
const deliveryEstimate = 45 * time.Minute

// Errors returned by the order service.
var (
	ErrEmptyItems          = errors.New("order items are required")
	ErrInvalidCustomerID   = errors.New("invalid customer_id")
	ErrInvalidOrderType    = errors.New("invalid order_type")
	ErrInvalidQuantity     = errors.New("quantity must be a positive integer")
	ErrInvalidMenuItemID   = errors.New("invalid menu_item_id")
	ErrInvalidTip          = errors.New("tip_amount must not be negative")
	ErrInvalidAddressID    = errors.New("invalid delivery_address_id")
	ErrMenuItemInvalid     = errors.New("one or more menu items are invalid")
	ErrMenuItemUnavailable = errors.New("menu item is not available")
	ErrBelowMinimumOrder   = errors.New("subtotal is below the restaurant minimum order amount")
	ErrRestaurantNotFound  = errors.New("restaurant not found")
	ErrRestaurantInactive  = errors.New("restaurant is not accepting orders")
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidStatus       = errors.New("invalid order status")
	ErrTerminalStatus      = errors.New("order is in a terminal status")
	ErrForbidden           = errors.New("not allowed to act on this order")
)

// Actor is the authenticated identity performing an operation, with the role
// already canonicalized at the boundary.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order service.
// Satisfied by *database.Queries (pool- or tx-backed).
type OrderStore interface {
	GetRestaurantPolicy(ctx context.Context, id uuid.UUID) (database.GetRestaurantPolicyRow, error)
	ListMenuItemsForOrder(ctx context.Context, arg database.ListMenuItemsForOrderParams) ([]database.ListMenuItemsForOrderRow, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	CreateOrderStatusEvent(ctx context.Context, arg database.CreateOrderStatusEventParams) (database.OrderStatusEvent, error)
	CreateDelivery(ctx context.Context, arg database.CreateDeliveryParams) (database.Delivery, error)
	GetOrderAccessFacts(ctx context.Context, id uuid.UUID) (database.GetOrderAccessFactsRow, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.UpdateOrderStatusRow, error)
	SetDeliveryStatusByOrder(ctx context.Context, arg database.SetDeliveryStatusByOrderParams) error
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// OrderStatusMessage is the event published after a committed transition.
type OrderStatusMessage struct {
	OrderID    uuid.UUID `json:"order_id"`
	Status     string    `json:"status"`
	Note       string    `json:"note,omitempty"`
	ActorID    uuid.UUID `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher hands committed status events to external consumers
// (notification and reporting layers). Implementations must be best-effort;
// the core never fails a request over a publish error.
type EventPublisher interface {
	PublishOrderStatus(ctx context.Context, msg OrderStatusMessage) error
}

// CreateOrderRequest is the input for creating an order. ID fields arrive as
// strings straight from the request body and are parsed here.
type CreateOrderRequest struct {
	Actor               Actor
	CustomerID          string
	RestaurantID        string
	OrderType           string
	DeliveryAddressID   string
	TipAmount           string
	SpecialInstructions string
	Items               []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single cart entry.
type CreateOrderItemRequest struct {
	MenuItemID string
	Quantity   int32
	Note       string
}

// CreateOrderResult is the created order with its lines and, for delivery
// orders, the unclaimed delivery record.
type CreateOrderResult struct {
	Order    database.Order
	Items    []database.OrderItem
	Delivery *database.Delivery
}

// StatusUpdateResult is the outcome of a successful transition.
type StatusUpdateResult struct {
	ID        uuid.UUID
	Status    string
	UpdatedAt time.Time
}

// OrderService handles order business logic.
type OrderService struct {
	pool      TxBeginner
	newStore  NewOrderStore
	taxRate   decimal.Decimal
	publisher EventPublisher // nil disables publishing
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, taxRate decimal.Decimal, publisher EventPublisher) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, taxRate: taxRate, publisher: publisher}
}

// CreateOrder validates the cart, prices it, and creates the order, its
// lines, the initiating status event, and (for delivery orders) an unclaimed
// delivery in one transaction. Nothing is visible to other readers unless
// every insert succeeds.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return nil, ErrInvalidCustomerID
	}

	// Only the customer themselves, or an admin, may place this order.
	if req.Actor.Role != enum.RoleAdmin && req.Actor.ID != customerID {
		return nil, ErrForbidden
	}

	restaurantID, err := uuid.Parse(req.RestaurantID)
	if err != nil {
		return nil, ErrRestaurantNotFound
	}

	orderType := req.OrderType
	if orderType == "" {
		orderType = enum.OrderTypeDelivery
	}
	if !enum.IsOrderType(orderType) {
		return nil, ErrInvalidOrderType
	}

	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	itemIDs := make([]uuid.UUID, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
		id, err := uuid.Parse(item.MenuItemID)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidMenuItemID)
		}
		itemIDs[i] = id
	}

	tip := decimal.Zero
	if req.TipAmount != "" {
		tip, err = decimal.NewFromString(req.TipAmount)
		if err != nil || tip.IsNegative() {
			return nil, ErrInvalidTip
		}
	}

	addressID := pgtype.UUID{}
	if orderType == enum.OrderTypeDelivery && req.DeliveryAddressID != "" {
		aid, err := uuid.Parse(req.DeliveryAddressID)
		if err != nil {
			return nil, ErrInvalidAddressID
		}
		addressID = pgtype.UUID{Bytes: aid, Valid: true}
	}

	result, err := s.createOrderTx(ctx, req, customerID, restaurantID, orderType, itemIDs, tip, addressID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, OrderStatusMessage{
		OrderID:    result.Order.ID,
		Status:     result.Order.Status,
		ActorID:    req.Actor.ID,
		OccurredAt: result.Order.CreatedAt,
	})
	return result, nil
}

// createOrderTx executes the full order creation in a single transaction.
func (s *OrderService) createOrderTx(
	ctx context.Context,
	req CreateOrderRequest,
	customerID, restaurantID uuid.UUID,
	orderType string,
	itemIDs []uuid.UUID,
	tip decimal.Decimal,
	addressID pgtype.UUID,
) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	restaurant, err := store.GetRestaurantPolicy(ctx, restaurantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRestaurantNotFound
		}
		return nil, fmt.Errorf("get restaurant: %w", err)
	}
	if !restaurant.IsActive {
		return nil, ErrRestaurantInactive
	}

	menu, err := store.ListMenuItemsForOrder(ctx, database.ListMenuItemsForOrderParams{
		IDs:          itemIDs,
		RestaurantID: restaurantID,
	})
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}

	// An unknown id, an id from another restaurant, or a duplicate all show
	// up as a set-size mismatch.
	if len(menu) != len(req.Items) {
		return nil, ErrMenuItemInvalid
	}
	menuByID := make(map[uuid.UUID]database.ListMenuItemsForOrderRow, len(menu))
	for _, m := range menu {
		if !m.IsAvailable {
			return nil, fmt.Errorf("%s: %w", m.Name, ErrMenuItemUnavailable)
		}
		menuByID[m.ID] = m
	}

	quote, err := s.priceCart(req.Items, itemIDs, menuByID, restaurant, orderType, tip)
	if err != nil {
		return nil, err
	}

	estimate := pgtype.Timestamptz{}
	if orderType == enum.OrderTypeDelivery {
		estimate = pgtype.Timestamptz{Time: time.Now().Add(deliveryEstimate), Valid: true}
	}

	instructions := pgtype.Text{}
	if req.SpecialInstructions != "" {
		instructions = pgtype.Text{String: req.SpecialInstructions, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		CustomerID:            customerID,
		RestaurantID:          restaurantID,
		DeliveryAddressID:     addressID,
		OrderType:             orderType,
		Subtotal:              decimalToNumeric(quote.Subtotal),
		DeliveryFee:           decimalToNumeric(quote.DeliveryFee),
		TaxAmount:             decimalToNumeric(quote.TaxAmount),
		TipAmount:             decimalToNumeric(quote.TipAmount),
		TotalAmount:           decimalToNumeric(quote.TotalAmount),
		SpecialInstructions:   instructions,
		EstimatedDeliveryTime: estimate,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]database.OrderItem, 0, len(req.Items))
	for i, reqItem := range req.Items {
		note := pgtype.Text{}
		if reqItem.Note != "" {
			note = pgtype.Text{String: reqItem.Note, Valid: true}
		}
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:             order.ID,
			MenuItemID:          itemIDs[i],
			Quantity:            reqItem.Quantity,
			UnitPrice:           menuByID[itemIDs[i]].Price, // price snapshot
			SpecialInstructions: note,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	// The initiating "pending" row anchors the audit trail.
	if _, err := store.CreateOrderStatusEvent(ctx, database.CreateOrderStatusEventParams{
		OrderID:   order.ID,
		Status:    order.Status,
		CreatedBy: req.Actor.ID,
	}); err != nil {
		return nil, fmt.Errorf("create status event: %w", err)
	}

	var delivery *database.Delivery
	if orderType == enum.OrderTypeDelivery {
		d, err := store.CreateDelivery(ctx, database.CreateDeliveryParams{
			OrderID:               order.ID,
			EstimatedDeliveryTime: estimate,
		})
		if err != nil {
			return nil, fmt.Errorf("create delivery: %w", err)
		}
		delivery = &d
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: items, Delivery: delivery}, nil
}

// UpdateStatus applies a status transition: authorization matrix, order
// update, audit event, and delivery mirror happen as one atomic unit.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus, note string, actor Actor) (*StatusUpdateResult, error) {
	// Membership is the only structural check; any authorized actor may set
	// any non-terminal status. Strict sequencing would slot in here.
	if err := validateStatusChange(newStatus); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	facts, err := store.GetOrderAccessFacts(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order facts: %w", err)
	}

	if enum.IsTerminalOrderStatus(facts.Status) {
		return nil, ErrTerminalStatus
	}

	if !policy.CanActOnOrder(actor.Role, actor.ID, orderFacts(facts)) {
		return nil, ErrForbidden
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:     orderID,
		Status: newStatus,
	})
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	noteText := pgtype.Text{}
	if note != "" {
		noteText = pgtype.Text{String: note, Valid: true}
	}
	if _, err := store.CreateOrderStatusEvent(ctx, database.CreateOrderStatusEventParams{
		OrderID:   orderID,
		Status:    newStatus,
		Note:      noteText,
		CreatedBy: actor.ID,
	}); err != nil {
		return nil, fmt.Errorf("create status event: %w", err)
	}

	if facts.DeliveryID.Valid {
		if mirror, ok := deliveryMirrorStatus(newStatus); ok {
			if err := store.SetDeliveryStatusByOrder(ctx, database.SetDeliveryStatusByOrderParams{
				OrderID: orderID,
				Status:  mirror,
			}); err != nil {
				return nil, fmt.Errorf("mirror delivery status: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.publish(ctx, OrderStatusMessage{
		OrderID:    orderID,
		Status:     newStatus,
		Note:       note,
		ActorID:    actor.ID,
		OccurredAt: updated.UpdatedAt,
	})

	return &StatusUpdateResult{ID: updated.ID, Status: updated.Status, UpdatedAt: updated.UpdatedAt}, nil
}

// publish hands the event to the publisher after commit. Failures are logged
// and swallowed: the transition is already durable.
func (s *OrderService) publish(ctx context.Context, msg OrderStatusMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOrderStatus(ctx, msg); err != nil {
		logWarnPublish(msg, err)
	}
}

func logWarnPublish(msg OrderStatusMessage, err error) {
	logger.L().Warn("publish order status event failed",
		zap.String("order_id", msg.OrderID.String()),
		zap.String("status", msg.Status),
		zap.Error(err))
}

// --- Helpers ---

func validateStatusChange(newStatus string) error {
	if !enum.IsOrderStatus(newStatus) {
		return ErrInvalidStatus
	}
	return nil
}

// deliveryMirrorStatus maps an order transition onto the linked delivery.
// Cancellation releases the delivery back to "assigned" instead of
// propagating, so the courier assignment survives for reassignment.
func deliveryMirrorStatus(orderStatus string) (string, bool) {
	switch orderStatus {
	case enum.OrderStatusPickedUp, enum.OrderStatusDelivered:
		return orderStatus, true
	case enum.OrderStatusCancelled:
		return enum.DeliveryStatusAssigned, true
	}
	return "", false
}

func orderFacts(f database.GetOrderAccessFactsRow) policy.OrderFacts {
	facts := policy.OrderFacts{
		CustomerID:        f.CustomerID,
		RestaurantOwnerID: f.RestaurantOwnerID,
	}
	if f.CourierID.Valid {
		facts.CourierID = uuid.UUID(f.CourierID.Bytes)
	}
	return facts
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
