package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"vitrin-be/internal/identity"
	"vitrin-be/internal/order"
	"vitrin-be/internal/pricing"

	"github.com/google/uuid"
)

// OrderHandler exposes the fulfillment-facing order surface. Orders are only
// ever created by the payment reconciler; this handler reads and transitions
// them.
type OrderHandler struct {
	Orders order.Service
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{Orders: svc}
}

func (h *OrderHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
	mux.HandleFunc("PATCH /api/orders/{id}/status", h.UpdateStatus)
}

type orderResponse struct {
	Success bool         `json:"success"`
	Order   *orderDetail `json:"order,omitempty"`
	Error   string       `json:"error,omitempty"`
}

type orderDetail struct {
	ID              string                      `json:"id"`
	Items           []pricing.ValidatedLineItem `json:"items"`
	TotalAmount     int64                       `json:"totalAmount"`
	ShippingAddress order.ShippingAddress       `json:"shippingAddress"`
	Status          string                      `json:"status"`
	PaymentStatus   string                      `json:"paymentStatus"`
	RefID           string                      `json:"refId,omitempty"`
	CreatedAt       string                      `json:"createdAt"`
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, orderResponse{Success: false, Error: "authentication required"})
		return
	}

	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, orderResponse{Success: false, Error: "invalid order id"})
		return
	}

	isAdmin := identity.RoleFromContext(r.Context()) == "admin"
	o, err := h.Orders.GetOrderDetail(r.Context(), userID, orderID, isAdmin)
	if err != nil {
		writeJSON(w, orderStatusFor(err), orderResponse{Success: false, Error: orderReason(err)})
		return
	}

	writeJSON(w, http.StatusOK, orderResponse{Success: true, Order: toDetail(o)})
}

type updateStatusRequest struct {
	Status        string `json:"status,omitempty"`
	PaymentStatus string `json:"paymentStatus,omitempty"`
}

// UpdateStatus applies a fulfillment or payment-status transition. Admin
// only: buyers never move orders themselves.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if identity.RoleFromContext(r.Context()) != "admin" {
		writeJSON(w, http.StatusForbidden, orderResponse{Success: false, Error: "admin access required"})
		return
	}

	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, orderResponse{Success: false, Error: "invalid order id"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, orderResponse{Success: false, Error: "invalid JSON payload"})
		return
	}
	defer r.Body.Close()

	switch {
	case req.Status != "":
		err = h.Orders.UpdateOrderStatus(r.Context(), orderID, order.Status(req.Status))
	case req.PaymentStatus != "":
		err = h.Orders.UpdatePaymentStatus(r.Context(), orderID, order.PaymentStatus(req.PaymentStatus))
	default:
		writeJSON(w, http.StatusBadRequest, orderResponse{Success: false, Error: "status or paymentStatus is required"})
		return
	}
	if err != nil {
		writeJSON(w, orderStatusFor(err), orderResponse{Success: false, Error: orderReason(err)})
		return
	}

	writeJSON(w, http.StatusOK, orderResponse{Success: true})
}

func toDetail(o *order.Order) *orderDetail {
	return &orderDetail{
		ID:              o.ID.String(),
		Items:           o.Items,
		TotalAmount:     o.TotalAmount,
		ShippingAddress: o.ShippingAddress,
		Status:          string(o.Status),
		PaymentStatus:   string(o.PaymentStatus),
		RefID:           o.PaymentRefID,
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
	}
}

func orderStatusFor(err error) int {
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrInvalidStatus):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func orderReason(err error) string {
	if errors.Is(err, order.ErrOrderNotFound) || errors.Is(err, order.ErrInvalidStatus) {
		return err.Error()
	}
	return "internal error, please contact support"
}
