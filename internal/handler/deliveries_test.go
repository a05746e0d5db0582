package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mealdash/api/internal/auth"
	"github.com/mealdash/api/internal/database"
	"github.com/mealdash/api/internal/handler"
	"github.com/mealdash/api/internal/middleware"
	"github.com/mealdash/api/internal/service"
)

type mockDeliveryService struct {
	claimFn           func(ctx context.Context, deliveryID uuid.UUID, actor service.Actor) (*database.Delivery, error)
	updateStatusFn    func(ctx context.Context, deliveryID uuid.UUID, newStatus string, actor service.Actor) (*database.Delivery, error)
	listAvailableFn   func(ctx context.Context) ([]database.ListAvailableDeliveriesRow, error)
	listAssignmentsFn func(ctx context.Context, courierID uuid.UUID, statusFilter string) ([]database.ListCourierAssignmentsRow, error)
}

func (m *mockDeliveryService) Claim(ctx context.Context, deliveryID uuid.UUID, actor service.Actor) (*database.Delivery, error) {
	return m.claimFn(ctx, deliveryID, actor)
}

func (m *mockDeliveryService) UpdateAssignmentStatus(ctx context.Context, deliveryID uuid.UUID, newStatus string, actor service.Actor) (*database.Delivery, error) {
	return m.updateStatusFn(ctx, deliveryID, newStatus, actor)
}

func (m *mockDeliveryService) ListAvailable(ctx context.Context) ([]database.ListAvailableDeliveriesRow, error) {
	if m.listAvailableFn != nil {
		return m.listAvailableFn(ctx)
	}
	return nil, nil
}

func (m *mockDeliveryService) ListAssignments(ctx context.Context, courierID uuid.UUID, statusFilter string) ([]database.ListCourierAssignmentsRow, error) {
	if m.listAssignmentsFn != nil {
		return m.listAssignmentsFn(ctx, courierID, statusFilter)
	}
	return nil, nil
}

func setupDeliveryRouter(svc *mockDeliveryService) *chi.Mux {
	h := handler.NewDeliveryHandler(svc)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole("courier", "admin"))
		r.Route("/deliveries", h.RegisterRoutes)
	})
	return r
}

func courierClaims() *auth.Claims {
	return &auth.Claims{UserID: uuid.New(), Role: "courier"}
}

func TestClaimDeliveryHandler(t *testing.T) {
	claims := courierClaims()
	deliveryID := uuid.New()
	orderID := uuid.New()

	svc := &mockDeliveryService{
		claimFn: func(ctx context.Context, id uuid.UUID, actor service.Actor) (*database.Delivery, error) {
			if id != deliveryID {
				t.Errorf("claimed delivery %s, want %s", id, deliveryID)
			}
			if actor.ID != claims.UserID {
				t.Errorf("actor = %s, want %s", actor.ID, claims.UserID)
			}
			return &database.Delivery{
				ID:        id,
				OrderID:   orderID,
				CourierID: pgtype.UUID{Bytes: actor.ID, Valid: true},
				Status:    "assigned",
			}, nil
		},
	}

	router := setupDeliveryRouter(svc)
	rr := doAuthRequest(t, router, "POST", "/deliveries/"+deliveryID.String()+"/claim", nil, claims)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	resp := decodeBody(t, rr)
	if resp["courier_id"] != claims.UserID.String() {
		t.Errorf("courier_id = %v, want %s", resp["courier_id"], claims.UserID)
	}
}

func TestClaimDeliveryHandlerConflict(t *testing.T) {
	svc := &mockDeliveryService{
		claimFn: func(ctx context.Context, id uuid.UUID, actor service.Actor) (*database.Delivery, error) {
			return nil, service.ErrDeliveryUnavailable
		},
	}
	router := setupDeliveryRouter(svc)
	rr := doAuthRequest(t, router, "POST", "/deliveries/"+uuid.New().String()+"/claim", nil, courierClaims())
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rr.Code)
	}
}

func TestClaimDeliveryHandlerNotFound(t *testing.T) {
	svc := &mockDeliveryService{
		claimFn: func(ctx context.Context, id uuid.UUID, actor service.Actor) (*database.Delivery, error) {
			return nil, service.ErrDeliveryNotFound
		},
	}
	router := setupDeliveryRouter(svc)
	rr := doAuthRequest(t, router, "POST", "/deliveries/"+uuid.New().String()+"/claim", nil, courierClaims())
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestClaimDeliveryHandlerRoleGate(t *testing.T) {
	router := setupDeliveryRouter(&mockDeliveryService{})
	rr := doAuthRequest(t, router, "POST", "/deliveries/"+uuid.New().String()+"/claim", nil, customerClaims())
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}
}

func TestUpdateDeliveryStatusHandler(t *testing.T) {
	claims := courierClaims()
	deliveryID := uuid.New()

	svc := &mockDeliveryService{
		updateStatusFn: func(ctx context.Context, id uuid.UUID, newStatus string, actor service.Actor) (*database.Delivery, error) {
			if newStatus != "picked_up" {
				t.Errorf("status = %q, want picked_up", newStatus)
			}
			return &database.Delivery{
				ID:        id,
				OrderID:   uuid.New(),
				CourierID: pgtype.UUID{Bytes: actor.ID, Valid: true},
				Status:    newStatus,
			}, nil
		},
	}

	router := setupDeliveryRouter(svc)
	rr := doAuthRequest(t, router, "PATCH", "/deliveries/"+deliveryID.String()+"/status",
		map[string]any{"status": "picked_up"}, claims)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	resp := decodeBody(t, rr)
	if resp["status"] != "picked_up" {
		t.Errorf("status = %v, want picked_up", resp["status"])
	}
}

func TestUpdateDeliveryStatusHandlerWrongCourier(t *testing.T) {
	svc := &mockDeliveryService{
		updateStatusFn: func(ctx context.Context, id uuid.UUID, newStatus string, actor service.Actor) (*database.Delivery, error) {
			return nil, service.ErrNotAssignedCourier
		},
	}
	router := setupDeliveryRouter(svc)
	rr := doAuthRequest(t, router, "PATCH", "/deliveries/"+uuid.New().String()+"/status",
		map[string]any{"status": "picked_up"}, courierClaims())
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}
}

func TestUpdateDeliveryStatusHandlerMissingStatus(t *testing.T) {
	router := setupDeliveryRouter(&mockDeliveryService{})
	rr := doAuthRequest(t, router, "PATCH", "/deliveries/"+uuid.New().String()+"/status",
		map[string]any{}, courierClaims())
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestAvailableDeliveriesHandler(t *testing.T) {
	svc := &mockDeliveryService{
		listAvailableFn: func(ctx context.Context) ([]database.ListAvailableDeliveriesRow, error) {
			return []database.ListAvailableDeliveriesRow{
				{
					ID:                uuid.New(),
					OrderID:           uuid.New(),
					TotalAmount:       testNumeric(t, "32.00"),
					DeliveryFee:       testNumeric(t, "3.00"),
					TipAmount:         testNumeric(t, "2.00"),
					RestaurantName:    "Pasta Republic",
					RestaurantAddress: "1 Via Roma",
				},
			}, nil
		},
	}

	router := setupDeliveryRouter(svc)
	rr := doAuthRequest(t, router, "GET", "/deliveries/available", nil, courierClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	resp := decodeBody(t, rr)
	deliveries, ok := resp["deliveries"].([]interface{})
	if !ok || len(deliveries) != 1 {
		t.Fatalf("deliveries = %v, want 1 entry", resp["deliveries"])
	}
	first := deliveries[0].(map[string]interface{})
	if first["delivery_fee"] != "3.00" {
		t.Errorf("delivery_fee = %v, want 3.00", first["delivery_fee"])
	}
}

func TestAssignmentsHandlerAdminCourierOverride(t *testing.T) {
	admin := &auth.Claims{UserID: uuid.New(), Role: "admin"}
	target := uuid.New()

	var gotCourier uuid.UUID
	svc := &mockDeliveryService{
		listAssignmentsFn: func(ctx context.Context, courierID uuid.UUID, statusFilter string) ([]database.ListCourierAssignmentsRow, error) {
			gotCourier = courierID
			return nil, nil
		},
	}

	router := setupDeliveryRouter(svc)
	rr := doAuthRequest(t, router, "GET", "/deliveries/assignments?courier_id="+target.String(), nil, admin)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if gotCourier != target {
		t.Errorf("listed for courier %s, want %s", gotCourier, target)
	}
}

func TestAssignmentsHandlerIgnoresOverrideForCourier(t *testing.T) {
	claims := courierClaims()

	var gotCourier uuid.UUID
	svc := &mockDeliveryService{
		listAssignmentsFn: func(ctx context.Context, courierID uuid.UUID, statusFilter string) ([]database.ListCourierAssignmentsRow, error) {
			gotCourier = courierID
			return nil, nil
		},
	}

	router := setupDeliveryRouter(svc)
	rr := doAuthRequest(t, router, "GET", "/deliveries/assignments?courier_id="+uuid.New().String(), nil, claims)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if gotCourier != claims.UserID {
		t.Errorf("listed for courier %s, want the caller %s", gotCourier, claims.UserID)
	}
}

func TestAssignmentsHandlerPassesFilter(t *testing.T) {
	claims := courierClaims()

	var gotCourier uuid.UUID
	var gotFilter string
	svc := &mockDeliveryService{
		listAssignmentsFn: func(ctx context.Context, courierID uuid.UUID, statusFilter string) ([]database.ListCourierAssignmentsRow, error) {
			gotCourier = courierID
			gotFilter = statusFilter
			return []database.ListCourierAssignmentsRow{
				{
					ID:             uuid.New(),
					OrderID:        uuid.New(),
					Status:         "en_route",
					TotalAmount:    testNumeric(t, "20.00"),
					DeliveryFee:    testNumeric(t, "3.00"),
					TipAmount:      testNumeric(t, "0.00"),
					RestaurantName: "Pasta Republic",
					CustomerName:   "Casey Customer",
					StreetAddress:  pgtype.Text{String: "42 Elm Street", Valid: true},
					City:           pgtype.Text{String: "Springfield", Valid: true},
					State:          pgtype.Text{String: "IL", Valid: true},
					ZipCode:        pgtype.Text{String: "62701", Valid: true},
				},
			}, nil
		},
	}

	router := setupDeliveryRouter(svc)
	rr := doAuthRequest(t, router, "GET", "/deliveries/assignments?status=en_route", nil, claims)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if gotCourier != claims.UserID {
		t.Errorf("listed for courier %s, want %s", gotCourier, claims.UserID)
	}
	if gotFilter != "en_route" {
		t.Errorf("filter = %q, want en_route", gotFilter)
	}

	resp := decodeBody(t, rr)
	assignments := resp["assignments"].([]interface{})
	first := assignments[0].(map[string]interface{})
	if first["dropoff_address"] != "42 Elm Street, Springfield, IL 62701" {
		t.Errorf("dropoff_address = %v", first["dropoff_address"])
	}
}
