package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mealdash/api/internal/database"
	"github.com/mealdash/api/internal/enum"
	"github.com/mealdash/api/internal/policy"
)

// Errors returned by the delivery service.
var (
	ErrDeliveryNotFound      = errors.New("delivery not found")
	ErrDeliveryUnavailable   = errors.New("delivery already claimed by another courier")
	ErrInvalidDeliveryStatus = errors.New("invalid delivery status")
	ErrNotAssignedCourier    = errors.New("delivery is assigned to another courier")
)

// DeliveryStore defines the DB methods needed by the delivery service.
// Satisfied by *database.Queries (pool- or tx-backed).
type DeliveryStore interface {
	ClaimDelivery(ctx context.Context, arg database.ClaimDeliveryParams) (database.Delivery, error)
	GetDelivery(ctx context.Context, id uuid.UUID) (database.Delivery, error)
	UpdateDeliveryStatus(ctx context.Context, arg database.UpdateDeliveryStatusParams) (database.Delivery, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.UpdateOrderStatusRow, error)
	CreateOrderStatusEvent(ctx context.Context, arg database.CreateOrderStatusEventParams) (database.OrderStatusEvent, error)
	ListAvailableDeliveries(ctx context.Context) ([]database.ListAvailableDeliveriesRow, error)
	ListCourierAssignments(ctx context.Context, arg database.ListCourierAssignmentsParams) ([]database.ListCourierAssignmentsRow, error)
}

// NewDeliveryStore creates a DeliveryStore from a DBTX (pool or tx).
type NewDeliveryStore func(db database.DBTX) DeliveryStore

// DeliveryDB is what the delivery service needs from the connection pool:
// direct queries for reads and transactions for writes. *pgxpool.Pool
// satisfies both.
type DeliveryDB interface {
	TxBeginner
	database.DBTX
}

// DeliveryService handles courier-facing delivery logic.
type DeliveryService struct {
	db        DeliveryDB
	newStore  NewDeliveryStore
	publisher EventPublisher // nil disables publishing
}

// NewDeliveryService creates a new DeliveryService.
func NewDeliveryService(db DeliveryDB, newStore NewDeliveryStore, publisher EventPublisher) *DeliveryService {
	return &DeliveryService{db: db, newStore: newStore, publisher: publisher}
}

// Claim assigns an unclaimed delivery to the acting courier. The write is a
// single conditional UPDATE; when two couriers race, exactly one matches the
// courier_id IS NULL predicate and the loser gets a conflict, never a retry.
func (s *DeliveryService) Claim(ctx context.Context, deliveryID uuid.UUID, actor Actor) (*database.Delivery, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	claimed, err := store.ClaimDelivery(ctx, database.ClaimDeliveryParams{
		ID:        deliveryID,
		CourierID: actor.ID,
	})
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("claim delivery: %w", err)
		}
		// Zero rows matched: either the delivery does not exist or another
		// courier got there first. Tell those apart for the caller.
		if _, getErr := store.GetDelivery(ctx, deliveryID); getErr != nil {
			if errors.Is(getErr, pgx.ErrNoRows) {
				return nil, ErrDeliveryNotFound
			}
			return nil, fmt.Errorf("get delivery: %w", getErr)
		}
		return nil, ErrDeliveryUnavailable
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &claimed, nil
}

// UpdateAssignmentStatus advances a courier's own delivery. Pickup and
// drop-off transitions also advance the parent order and append to its audit
// trail, all in one transaction.
func (s *DeliveryService) UpdateAssignmentStatus(ctx context.Context, deliveryID uuid.UUID, newStatus string, actor Actor) (*database.Delivery, error) {
	if !enum.IsDeliveryStatus(newStatus) {
		return nil, ErrInvalidDeliveryStatus
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	delivery, err := store.GetDelivery(ctx, deliveryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDeliveryNotFound
		}
		return nil, fmt.Errorf("get delivery: %w", err)
	}

	assignedCourier := uuid.Nil
	if delivery.CourierID.Valid {
		assignedCourier = uuid.UUID(delivery.CourierID.Bytes)
	}
	if !policy.CanActOnDelivery(actor.Role, actor.ID, assignedCourier) {
		return nil, ErrNotAssignedCourier
	}

	updated, err := store.UpdateDeliveryStatus(ctx, database.UpdateDeliveryStatusParams{
		ID:     deliveryID,
		Status: newStatus,
	})
	if err != nil {
		return nil, fmt.Errorf("update delivery status: %w", err)
	}

	// picked_up and delivered are shared between the two status vocabularies,
	// so they propagate to the order as-is.
	var orderMsg *OrderStatusMessage
	if newStatus == enum.DeliveryStatusPickedUp || newStatus == enum.DeliveryStatusDelivered {
		orderUpdate, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
			ID:     delivery.OrderID,
			Status: newStatus,
		})
		if err != nil {
			return nil, fmt.Errorf("advance order status: %w", err)
		}
		if _, err := store.CreateOrderStatusEvent(ctx, database.CreateOrderStatusEventParams{
			OrderID:   delivery.OrderID,
			Status:    newStatus,
			CreatedBy: actor.ID,
		}); err != nil {
			return nil, fmt.Errorf("create status event: %w", err)
		}
		orderMsg = &OrderStatusMessage{
			OrderID:    delivery.OrderID,
			Status:     newStatus,
			ActorID:    actor.ID,
			OccurredAt: orderUpdate.UpdatedAt,
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	if orderMsg != nil {
		s.publishDeliveryEvent(ctx, *orderMsg)
	}
	return &updated, nil
}

// ListAvailable returns unclaimed deliveries for live orders, oldest first.
func (s *DeliveryService) ListAvailable(ctx context.Context) ([]database.ListAvailableDeliveriesRow, error) {
	return s.newStore(s.db).ListAvailableDeliveries(ctx)
}

// ListAssignments returns the courier's own deliveries, optionally filtered
// by delivery status. An unknown filter value matches nothing rather than
// erroring.
func (s *DeliveryService) ListAssignments(ctx context.Context, courierID uuid.UUID, statusFilter string) ([]database.ListCourierAssignmentsRow, error) {
	filter := pgtype.Text{}
	if statusFilter != "" {
		filter = pgtype.Text{String: statusFilter, Valid: true}
	}
	return s.newStore(s.db).ListCourierAssignments(ctx, database.ListCourierAssignmentsParams{
		CourierID: courierID,
		Status:    filter,
	})
}

func (s *DeliveryService) publishDeliveryEvent(ctx context.Context, msg OrderStatusMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOrderStatus(ctx, msg); err != nil {
		logWarnPublish(msg, err)
	}
}
