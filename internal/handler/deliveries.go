package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mealdash/api/internal/database"
	"github.com/mealdash/api/internal/enum"
	"github.com/mealdash/api/internal/logger"
	"github.com/mealdash/api/internal/middleware"
	"github.com/mealdash/api/internal/service"
	"go.uber.org/zap"
)

// DeliveryServicer defines the service methods needed by delivery handlers.
// Satisfied by *service.DeliveryService; narrow interface for testability.
type DeliveryServicer interface {
	Claim(ctx context.Context, deliveryID uuid.UUID, actor service.Actor) (*database.Delivery, error)
	UpdateAssignmentStatus(ctx context.Context, deliveryID uuid.UUID, newStatus string, actor service.Actor) (*database.Delivery, error)
	ListAvailable(ctx context.Context) ([]database.ListAvailableDeliveriesRow, error)
	ListAssignments(ctx context.Context, courierID uuid.UUID, statusFilter string) ([]database.ListCourierAssignmentsRow, error)
}

// DeliveryHandler handles courier-facing delivery endpoints.
type DeliveryHandler struct {
	svc DeliveryServicer
}

// NewDeliveryHandler creates a new DeliveryHandler.
func NewDeliveryHandler(svc DeliveryServicer) *DeliveryHandler {
	return &DeliveryHandler{svc: svc}
}

// RegisterRoutes registers delivery endpoints on the given Chi router.
// Expected to be mounted inside the courier-scoped subrouter at /deliveries.
func (h *DeliveryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/available", h.Available)
	r.Get("/assignments", h.Assignments)
	r.Post("/{id}/claim", h.Claim)
	r.Patch("/{id}/status", h.UpdateStatus)
}

// --- Response types ---

type deliveryResponse struct {
	ID                    uuid.UUID  `json:"id"`
	OrderID               uuid.UUID  `json:"order_id"`
	CourierID             *string    `json:"courier_id"`
	Status                string     `json:"status"`
	PickupTime            *time.Time `json:"pickup_time"`
	DeliveryTime          *time.Time `json:"delivery_time"`
	EstimatedDeliveryTime *time.Time `json:"estimated_delivery_time"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

type availableDeliveryResponse struct {
	ID                    uuid.UUID  `json:"id"`
	OrderID               uuid.UUID  `json:"order_id"`
	EstimatedDeliveryTime *time.Time `json:"estimated_delivery_time"`
	TotalAmount           string     `json:"total_amount"`
	DeliveryFee           string     `json:"delivery_fee"`
	TipAmount             string     `json:"tip_amount"`
	RestaurantName        string     `json:"restaurant_name"`
	RestaurantAddress     string     `json:"restaurant_address"`
}

type assignmentResponse struct {
	ID                    uuid.UUID  `json:"id"`
	OrderID               uuid.UUID  `json:"order_id"`
	Status                string     `json:"status"`
	PickupTime            *time.Time `json:"pickup_time"`
	DeliveryTime          *time.Time `json:"delivery_time"`
	EstimatedDeliveryTime *time.Time `json:"estimated_delivery_time"`
	TotalAmount           string     `json:"total_amount"`
	DeliveryFee           string     `json:"delivery_fee"`
	TipAmount             string     `json:"tip_amount"`
	RestaurantName        string     `json:"restaurant_name"`
	RestaurantAddress     string     `json:"restaurant_address"`
	CustomerName          string     `json:"customer_name"`
	CustomerPhone         *string    `json:"customer_phone"`
	DropoffAddress        *string    `json:"dropoff_address"`
}

type updateDeliveryStatusRequest struct {
	Status string `json:"status"`
}

// --- Handlers ---

// Available handles GET /deliveries/available.
func (h *DeliveryHandler) Available(w http.ResponseWriter, r *http.Request) {
	deliveries, err := h.svc.ListAvailable(r.Context())
	if err != nil {
		logger.L().Error("list available deliveries failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]availableDeliveryResponse, len(deliveries))
	for i, d := range deliveries {
		resp[i] = availableDeliveryResponse{
			ID:                d.ID,
			OrderID:           d.OrderID,
			TotalAmount:       numericToString(d.TotalAmount),
			DeliveryFee:       numericToString(d.DeliveryFee),
			TipAmount:         numericToString(d.TipAmount),
			RestaurantName:    d.RestaurantName,
			RestaurantAddress: d.RestaurantAddress,
		}
		if d.EstimatedDeliveryTime.Valid {
			resp[i].EstimatedDeliveryTime = &d.EstimatedDeliveryTime.Time
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"deliveries": resp})
}

// Assignments handles GET /deliveries/assignments. Supports an optional
// ?status= filter on the delivery status; admins may inspect another
// courier's assignments via ?courier_id=.
func (h *DeliveryHandler) Assignments(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	courierID := claims.UserID
	if raw := r.URL.Query().Get("courier_id"); raw != "" && claims.Role == enum.RoleAdmin {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid courier_id"})
			return
		}
		courierID = id
	}

	assignments, err := h.svc.ListAssignments(r.Context(), courierID, r.URL.Query().Get("status"))
	if err != nil {
		logger.L().Error("list courier assignments failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]assignmentResponse, len(assignments))
	for i, a := range assignments {
		resp[i] = assignmentResponse{
			ID:                a.ID,
			OrderID:           a.OrderID,
			Status:            a.Status,
			TotalAmount:       numericToString(a.TotalAmount),
			DeliveryFee:       numericToString(a.DeliveryFee),
			TipAmount:         numericToString(a.TipAmount),
			RestaurantName:    a.RestaurantName,
			RestaurantAddress: a.RestaurantAddress,
			CustomerName:      a.CustomerName,
		}
		if a.PickupTime.Valid {
			resp[i].PickupTime = &a.PickupTime.Time
		}
		if a.DeliveryTime.Valid {
			resp[i].DeliveryTime = &a.DeliveryTime.Time
		}
		if a.EstimatedDeliveryTime.Valid {
			resp[i].EstimatedDeliveryTime = &a.EstimatedDeliveryTime.Time
		}
		if a.CustomerPhone.Valid {
			resp[i].CustomerPhone = &a.CustomerPhone.String
		}
		if a.StreetAddress.Valid {
			addr := a.StreetAddress.String
			if a.City.Valid {
				addr += ", " + a.City.String
			}
			if a.State.Valid {
				addr += ", " + a.State.String
			}
			if a.ZipCode.Valid {
				addr += " " + a.ZipCode.String
			}
			resp[i].DropoffAddress = &addr
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"assignments": resp})
}

// Claim handles POST /deliveries/{id}/claim.
func (h *DeliveryHandler) Claim(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	deliveryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid delivery ID"})
		return
	}

	claimed, err := h.svc.Claim(r.Context(), deliveryID, service.Actor{ID: claims.UserID, Role: claims.Role})
	if err != nil {
		h.writeDeliveryError(w, err, "claim delivery")
		return
	}

	writeJSON(w, http.StatusOK, toDeliveryResponse(*claimed))
}

// UpdateStatus handles PATCH /deliveries/{id}/status.
func (h *DeliveryHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	deliveryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid delivery ID"})
		return
	}

	var req updateDeliveryStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	updated, err := h.svc.UpdateAssignmentStatus(r.Context(), deliveryID, req.Status,
		service.Actor{ID: claims.UserID, Role: claims.Role})
	if err != nil {
		h.writeDeliveryError(w, err, "update delivery status")
		return
	}

	writeJSON(w, http.StatusOK, toDeliveryResponse(*updated))
}

// --- Helpers ---

func (h *DeliveryHandler) writeDeliveryError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrInvalidDeliveryStatus):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrNotAssignedCourier):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrDeliveryNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrDeliveryUnavailable):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		logger.L().Error(op+" failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func toDeliveryResponse(d database.Delivery) deliveryResponse {
	resp := deliveryResponse{
		ID:        d.ID,
		OrderID:   d.OrderID,
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if d.CourierID.Valid {
		s := uuid.UUID(d.CourierID.Bytes).String()
		resp.CourierID = &s
	}
	if d.PickupTime.Valid {
		resp.PickupTime = &d.PickupTime.Time
	}
	if d.DeliveryTime.Valid {
		resp.DeliveryTime = &d.DeliveryTime.Time
	}
	if d.EstimatedDeliveryTime.Valid {
		resp.EstimatedDeliveryTime = &d.EstimatedDeliveryTime.Time
	}
	return resp
}
