package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mealdash/api/internal/database"
	"github.com/mealdash/api/internal/logger"
	"github.com/mealdash/api/internal/middleware"
	"github.com/mealdash/api/internal/policy"
	"github.com/mealdash/api/internal/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus, note string, actor service.Actor) (*service.StatusUpdateResult, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrderAccessFacts(ctx context.Context, id uuid.UUID) (database.GetOrderAccessFactsRow, error)
	GetOrderDetail(ctx context.Context, id uuid.UUID) (database.GetOrderDetailRow, error)
	ListOrderItemsDetailed(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsDetailedRow, error)
	ListOrderStatusEvents(ctx context.Context, orderID uuid.UUID) ([]database.OrderStatusEvent, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside the authenticated subrouter at /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/history", h.History)
	r.Patch("/{id}/status", h.UpdateStatus)
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerID          string                   `json:"customer_id"`
	RestaurantID        string                   `json:"restaurant_id"`
	OrderType           string                   `json:"order_type"`
	DeliveryAddressID   string                   `json:"delivery_address_id"`
	TipAmount           string                   `json:"tip_amount"`
	SpecialInstructions string                   `json:"special_instructions"`
	Items               []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	MenuItemID          string `json:"menu_item_id"`
	Quantity            int32  `json:"quantity"`
	SpecialInstructions string `json:"special_instructions"`
}

type orderResponse struct {
	ID                    uuid.UUID           `json:"id"`
	CustomerID            uuid.UUID           `json:"customer_id"`
	RestaurantID          uuid.UUID           `json:"restaurant_id"`
	DeliveryAddressID     *string             `json:"delivery_address_id"`
	OrderType             string              `json:"order_type"`
	Status                string              `json:"status"`
	Subtotal              string              `json:"subtotal"`
	DeliveryFee           string              `json:"delivery_fee"`
	TaxAmount             string              `json:"tax_amount"`
	TipAmount             string              `json:"tip_amount"`
	TotalAmount           string              `json:"total_amount"`
	SpecialInstructions   *string             `json:"special_instructions"`
	EstimatedDeliveryTime *time.Time          `json:"estimated_delivery_time"`
	ActualDeliveryTime    *time.Time          `json:"actual_delivery_time"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
	Items                 []orderItemResponse `json:"items"`
}

type orderItemResponse struct {
	ID                  uuid.UUID `json:"id"`
	MenuItemID          uuid.UUID `json:"menu_item_id"`
	MenuItemName        string    `json:"menu_item_name,omitempty"`
	Quantity            int32     `json:"quantity"`
	UnitPrice           string    `json:"unit_price"`
	SpecialInstructions *string   `json:"special_instructions"`
}

// orderDetailResponse extends orderResponse with names and courier info for
// the GET detail endpoint.
type orderDetailResponse struct {
	orderResponse
	CustomerName      string        `json:"customer_name"`
	RestaurantName    string        `json:"restaurant_name"`
	RestaurantAddress string        `json:"restaurant_address"`
	Delivery          *deliveryInfo `json:"delivery,omitempty"`
}

type deliveryInfo struct {
	Status       string  `json:"status"`
	CourierName  *string `json:"courier_name"`
	CourierPhone *string `json:"courier_phone"`
}

type statusEventResponse struct {
	ID        uuid.UUID `json:"id"`
	Status    string    `json:"status"`
	Note      *string   `json:"note"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

type statusUpdateResponse struct {
	ID        uuid.UUID `json:"id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.RestaurantID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "restaurant_id is required"})
		return
	}

	// Customers order for themselves unless an admin says otherwise.
	customerID := req.CustomerID
	if customerID == "" {
		customerID = claims.UserID.String()
	}

	svcItems := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		svcItems[i] = service.CreateOrderItemRequest{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			Note:       item.SpecialInstructions,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		Actor:               service.Actor{ID: claims.UserID, Role: claims.Role},
		CustomerID:          customerID,
		RestaurantID:        req.RestaurantID,
		OrderType:           req.OrderType,
		DeliveryAddressID:   req.DeliveryAddressID,
		TipAmount:           req.TipAmount,
		SpecialInstructions: req.SpecialInstructions,
		Items:               svcItems,
	})
	if err != nil {
		h.writeOrderError(w, err, "create order")
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(result))
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	if !h.authorizeOrderRead(w, r, orderID, claims.UserID, claims.Role) {
		return
	}

	detail, err := h.store.GetOrderDetail(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		logger.L().Error("get order detail failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsDetailed(r.Context(), orderID)
	if err != nil {
		logger.L().Error("list order items failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := orderDetailResponse{
		orderResponse:     dbOrderToResponse(detail.Order),
		CustomerName:      detail.CustomerName,
		RestaurantName:    detail.RestaurantName,
		RestaurantAddress: detail.RestaurantAddress,
	}
	if detail.DeliveryStatus.Valid {
		info := &deliveryInfo{Status: detail.DeliveryStatus.String}
		if detail.CourierName.Valid {
			info.CourierName = &detail.CourierName.String
		}
		if detail.CourierPhone.Valid {
			info.CourierPhone = &detail.CourierPhone.String
		}
		resp.Delivery = info
	}
	resp.Items = make([]orderItemResponse, len(items))
	for i, item := range items {
		resp.Items[i] = orderItemResponse{
			ID:           item.ID,
			MenuItemID:   item.MenuItemID,
			MenuItemName: item.MenuItemName,
			Quantity:     item.Quantity,
			UnitPrice:    numericToString(item.UnitPrice),
		}
		if item.SpecialInstructions.Valid {
			resp.Items[i].SpecialInstructions = &item.SpecialInstructions.String
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// History handles GET /orders/{id}/history. Events come back in the order
// they were recorded.
func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	if !h.authorizeOrderRead(w, r, orderID, claims.UserID, claims.Role) {
		return
	}

	events, err := h.store.ListOrderStatusEvents(r.Context(), orderID)
	if err != nil {
		logger.L().Error("list status events failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]statusEventResponse, len(events))
	for i, e := range events {
		resp[i] = statusEventResponse{
			ID:        e.ID,
			Status:    e.Status,
			CreatedBy: e.CreatedBy,
			CreatedAt: e.CreatedAt,
		}
		if e.Note.Valid {
			resp[i].Note = &e.Note.String
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"order_id": orderID, "events": resp})
}

// UpdateStatus handles PATCH /orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	result, err := h.svc.UpdateStatus(r.Context(), orderID, req.Status, req.Note,
		service.Actor{ID: claims.UserID, Role: claims.Role})
	if err != nil {
		h.writeOrderError(w, err, "update order status")
		return
	}

	writeJSON(w, http.StatusOK, statusUpdateResponse{
		ID:        result.ID,
		Status:    result.Status,
		UpdatedAt: result.UpdatedAt,
	})
}

// --- Helpers ---

// authorizeOrderRead enforces the ownership matrix for read endpoints and
// writes the error response itself. Returns true when the caller may proceed.
func (h *OrderHandler) authorizeOrderRead(w http.ResponseWriter, r *http.Request, orderID, actorID uuid.UUID, role string) bool {
	facts, err := h.store.GetOrderAccessFacts(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return false
		}
		logger.L().Error("get order access facts failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return false
	}

	pf := policy.OrderFacts{
		CustomerID:        facts.CustomerID,
		RestaurantOwnerID: facts.RestaurantOwnerID,
	}
	if facts.CourierID.Valid {
		pf.CourierID = uuid.UUID(facts.CourierID.Bytes)
	}
	if !policy.CanActOnOrder(role, actorID, pf) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not allowed to view this order"})
		return false
	}
	return true
}

// writeOrderError maps service errors to HTTP status codes.
func (h *OrderHandler) writeOrderError(w http.ResponseWriter, err error, op string) {
	switch {
	case isOrderValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotFound), errors.Is(err, service.ErrRestaurantNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrTerminalStatus):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		logger.L().Error(op+" failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// isOrderValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isOrderValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidCustomerID) ||
		errors.Is(err, service.ErrInvalidOrderType) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidMenuItemID) ||
		errors.Is(err, service.ErrInvalidTip) ||
		errors.Is(err, service.ErrInvalidAddressID) ||
		errors.Is(err, service.ErrMenuItemInvalid) ||
		errors.Is(err, service.ErrMenuItemUnavailable) ||
		errors.Is(err, service.ErrBelowMinimumOrder) ||
		errors.Is(err, service.ErrRestaurantInactive) ||
		errors.Is(err, service.ErrInvalidStatus)
}

func toOrderResponse(result *service.CreateOrderResult) orderResponse {
	resp := dbOrderToResponse(result.Order)
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, item := range result.Items {
		resp.Items[i] = orderItemResponse{
			ID:         item.ID,
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			UnitPrice:  numericToString(item.UnitPrice),
		}
		if item.SpecialInstructions.Valid {
			resp.Items[i].SpecialInstructions = &item.SpecialInstructions.String
		}
	}
	return resp
}

// dbOrderToResponse converts a database.Order to an orderResponse.
func dbOrderToResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:           o.ID,
		CustomerID:   o.CustomerID,
		RestaurantID: o.RestaurantID,
		OrderType:    o.OrderType,
		Status:       o.Status,
		Subtotal:     numericToString(o.Subtotal),
		DeliveryFee:  numericToString(o.DeliveryFee),
		TaxAmount:    numericToString(o.TaxAmount),
		TipAmount:    numericToString(o.TipAmount),
		TotalAmount:  numericToString(o.TotalAmount),
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
		Items:        []orderItemResponse{},
	}

	if o.DeliveryAddressID.Valid {
		s := uuid.UUID(o.DeliveryAddressID.Bytes).String()
		resp.DeliveryAddressID = &s
	}
	if o.SpecialInstructions.Valid {
		resp.SpecialInstructions = &o.SpecialInstructions.String
	}
	if o.EstimatedDeliveryTime.Valid {
		resp.EstimatedDeliveryTime = &o.EstimatedDeliveryTime.Time
	}
	if o.ActualDeliveryTime.Valid {
		resp.ActualDeliveryTime = &o.ActualDeliveryTime.Time
	}

	return resp
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
