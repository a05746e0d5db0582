package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mealdash/api/internal/database"
	"github.com/mealdash/api/internal/service"
	"github.com/shopspring/decimal"
)

// --- Mock transaction / pool ---

type mockTx struct {
	committed  bool
	rolledBack bool
	commitFn   func(ctx context.Context) error
}

func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitFn != nil {
		if err := m.commitFn(ctx); err != nil {
			return err
		}
	}
	m.committed = true
	return nil
}

func (m *mockTx) Rollback(ctx context.Context) error {
	m.rolledBack = true
	return nil
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }

func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockTx) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return nil
}

func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }

func (m *mockTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (m *mockTx) Conn() *pgx.Conn { return nil }

type mockPool struct {
	tx *mockTx
}

func (m *mockPool) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.tx == nil {
		m.tx = &mockTx{}
	}
	return m.tx, nil
}

func (m *mockPool) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

// --- Mock order store ---

type mockOrderStore struct {
	getRestaurantPolicyFn      func(ctx context.Context, id uuid.UUID) (database.GetRestaurantPolicyRow, error)
	listMenuItemsForOrderFn    func(ctx context.Context, arg database.ListMenuItemsForOrderParams) ([]database.ListMenuItemsForOrderRow, error)
	createOrderFn              func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	createOrderItemFn          func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	createOrderStatusEventFn   func(ctx context.Context, arg database.CreateOrderStatusEventParams) (database.OrderStatusEvent, error)
	createDeliveryFn           func(ctx context.Context, arg database.CreateDeliveryParams) (database.Delivery, error)
	getOrderAccessFactsFn      func(ctx context.Context, id uuid.UUID) (database.GetOrderAccessFactsRow, error)
	updateOrderStatusFn        func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.UpdateOrderStatusRow, error)
	setDeliveryStatusByOrderFn func(ctx context.Context, arg database.SetDeliveryStatusByOrderParams) error
}

func (m *mockOrderStore) GetRestaurantPolicy(ctx context.Context, id uuid.UUID) (database.GetRestaurantPolicyRow, error) {
	if m.getRestaurantPolicyFn != nil {
		return m.getRestaurantPolicyFn(ctx, id)
	}
	return database.GetRestaurantPolicyRow{}, pgx.ErrNoRows
}

func (m *mockOrderStore) ListMenuItemsForOrder(ctx context.Context, arg database.ListMenuItemsForOrderParams) ([]database.ListMenuItemsForOrderRow, error) {
	if m.listMenuItemsForOrderFn != nil {
		return m.listMenuItemsForOrderFn(ctx, arg)
	}
	return nil, nil
}

func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	if m.createOrderFn != nil {
		return m.createOrderFn(ctx, arg)
	}
	return database.Order{}, pgx.ErrNoRows
}

func (m *mockOrderStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	if m.createOrderItemFn != nil {
		return m.createOrderItemFn(ctx, arg)
	}
	return database.OrderItem{ID: uuid.New(), OrderID: arg.OrderID, MenuItemID: arg.MenuItemID, Quantity: arg.Quantity, UnitPrice: arg.UnitPrice}, nil
}

func (m *mockOrderStore) CreateOrderStatusEvent(ctx context.Context, arg database.CreateOrderStatusEventParams) (database.OrderStatusEvent, error) {
	if m.createOrderStatusEventFn != nil {
		return m.createOrderStatusEventFn(ctx, arg)
	}
	return database.OrderStatusEvent{ID: uuid.New(), OrderID: arg.OrderID, Status: arg.Status, CreatedBy: arg.CreatedBy}, nil
}

func (m *mockOrderStore) CreateDelivery(ctx context.Context, arg database.CreateDeliveryParams) (database.Delivery, error) {
	if m.createDeliveryFn != nil {
		return m.createDeliveryFn(ctx, arg)
	}
	return database.Delivery{ID: uuid.New(), OrderID: arg.OrderID, Status: "assigned"}, nil
}

func (m *mockOrderStore) GetOrderAccessFacts(ctx context.Context, id uuid.UUID) (database.GetOrderAccessFactsRow, error) {
	if m.getOrderAccessFactsFn != nil {
		return m.getOrderAccessFactsFn(ctx, id)
	}
	return database.GetOrderAccessFactsRow{}, pgx.ErrNoRows
}

func (m *mockOrderStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.UpdateOrderStatusRow, error) {
	if m.updateOrderStatusFn != nil {
		return m.updateOrderStatusFn(ctx, arg)
	}
	return database.UpdateOrderStatusRow{ID: arg.ID, Status: arg.Status}, nil
}

func (m *mockOrderStore) SetDeliveryStatusByOrder(ctx context.Context, arg database.SetDeliveryStatusByOrderParams) error {
	if m.setDeliveryStatusByOrderFn != nil {
		return m.setDeliveryStatusByOrderFn(ctx, arg)
	}
	return nil
}

// --- Mock delivery store ---

type mockDeliveryStore struct {
	claimDeliveryFn            func(ctx context.Context, arg database.ClaimDeliveryParams) (database.Delivery, error)
	getDeliveryFn              func(ctx context.Context, id uuid.UUID) (database.Delivery, error)
	updateDeliveryStatusFn     func(ctx context.Context, arg database.UpdateDeliveryStatusParams) (database.Delivery, error)
	updateOrderStatusFn        func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.UpdateOrderStatusRow, error)
	createOrderStatusEventFn   func(ctx context.Context, arg database.CreateOrderStatusEventParams) (database.OrderStatusEvent, error)
	listAvailableDeliveriesFn  func(ctx context.Context) ([]database.ListAvailableDeliveriesRow, error)
	listCourierAssignmentsFn   func(ctx context.Context, arg database.ListCourierAssignmentsParams) ([]database.ListCourierAssignmentsRow, error)
}

func (m *mockDeliveryStore) ClaimDelivery(ctx context.Context, arg database.ClaimDeliveryParams) (database.Delivery, error) {
	if m.claimDeliveryFn != nil {
		return m.claimDeliveryFn(ctx, arg)
	}
	return database.Delivery{}, pgx.ErrNoRows
}

func (m *mockDeliveryStore) GetDelivery(ctx context.Context, id uuid.UUID) (database.Delivery, error) {
	if m.getDeliveryFn != nil {
		return m.getDeliveryFn(ctx, id)
	}
	return database.Delivery{}, pgx.ErrNoRows
}

func (m *mockDeliveryStore) UpdateDeliveryStatus(ctx context.Context, arg database.UpdateDeliveryStatusParams) (database.Delivery, error) {
	if m.updateDeliveryStatusFn != nil {
		return m.updateDeliveryStatusFn(ctx, arg)
	}
	return database.Delivery{ID: arg.ID, Status: arg.Status}, nil
}

func (m *mockDeliveryStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.UpdateOrderStatusRow, error) {
	if m.updateOrderStatusFn != nil {
		return m.updateOrderStatusFn(ctx, arg)
	}
	return database.UpdateOrderStatusRow{ID: arg.ID, Status: arg.Status}, nil
}

func (m *mockDeliveryStore) CreateOrderStatusEvent(ctx context.Context, arg database.CreateOrderStatusEventParams) (database.OrderStatusEvent, error) {
	if m.createOrderStatusEventFn != nil {
		return m.createOrderStatusEventFn(ctx, arg)
	}
	return database.OrderStatusEvent{ID: uuid.New(), OrderID: arg.OrderID, Status: arg.Status}, nil
}

func (m *mockDeliveryStore) ListAvailableDeliveries(ctx context.Context) ([]database.ListAvailableDeliveriesRow, error) {
	if m.listAvailableDeliveriesFn != nil {
		return m.listAvailableDeliveriesFn(ctx)
	}
	return nil, nil
}

func (m *mockDeliveryStore) ListCourierAssignments(ctx context.Context, arg database.ListCourierAssignmentsParams) ([]database.ListCourierAssignmentsRow, error) {
	if m.listCourierAssignmentsFn != nil {
		return m.listCourierAssignmentsFn(ctx, arg)
	}
	return nil, nil
}

// --- Mock event publisher ---

type mockPublisher struct {
	messages []service.OrderStatusMessage
	err      error
}

func (m *mockPublisher) PublishOrderStatus(ctx context.Context, msg service.OrderStatusMessage) error {
	m.messages = append(m.messages, msg)
	return m.err
}

// --- Helpers ---

func testNumeric(t *testing.T, s string) pgtype.Numeric {
	t.Helper()
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		t.Fatalf("scan numeric %q: %v", s, err)
	}
	return n
}

func numericString(t *testing.T, n pgtype.Numeric) string {
	t.Helper()
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		t.Fatalf("numeric value: %v", err)
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		t.Fatalf("parse numeric %v: %v", val, err)
	}
	return d.StringFixed(2)
}
