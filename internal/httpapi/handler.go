package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"vitrin-be/internal/checkout"
	"vitrin-be/internal/logger"
	"vitrin-be/internal/order"
	"vitrin-be/internal/pricing"

	"go.uber.org/zap"
)

// Handler exposes the payment workflow over HTTP: one JSON initiation
// endpoint, the gateway's browser callback, and the explicit verify API.
type Handler struct {
	Checkout checkout.Service

	// Pages the callback redirects the buyer's browser to.
	SuccessURL string
	FailureURL string
}

func NewHandler(svc checkout.Service, successURL, failureURL string) *Handler {
	return &Handler{
		Checkout:   svc,
		SuccessURL: successURL,
		FailureURL: failureURL,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/payment/initiate", h.InitiatePayment)
	mux.HandleFunc("/api/payment/callback", h.Callback)
	mux.HandleFunc("/api/payment/verify", h.VerifyReturn)
}

type initiateRequest struct {
	CartItems       []pricing.CartLineItem `json:"cartItems"`
	ShippingAddress order.ShippingAddress  `json:"shippingAddress"`
}

type initiateResponse struct {
	Success    bool   `json:"success"`
	PaymentURL string `json:"paymentUrl,omitempty"`
	Authority  string `json:"authority,omitempty"`
	Amount     int64  `json:"amount,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (h *Handler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, initiateResponse{Success: false, Error: "invalid JSON payload"})
		return
	}
	defer r.Body.Close()

	res, err := h.Checkout.Initiate(r.Context(), checkout.InitiateInput{
		Items:           req.CartItems,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		writeJSON(w, statusFor(err), initiateResponse{Success: false, Error: publicReason(err)})
		return
	}

	writeJSON(w, http.StatusOK, initiateResponse{
		Success:    true,
		PaymentURL: res.PaymentURL,
		Authority:  res.Authority,
		Amount:     res.Amount,
	})
}

// Callback handles the gateway's browser redirect. It always answers with a
// redirect carrying a correlatable reference, never a bare error body.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	authority := r.URL.Query().Get("Authority")
	status := r.URL.Query().Get("Status")

	o, err := h.Checkout.Resolve(r.Context(), authority, status)
	if err != nil {
		logger.FromCtx(r.Context()).Info("payment callback did not settle",
			zap.String("authority", authority),
			zap.Error(err),
		)

		q := url.Values{}
		q.Set("authority", authority)
		q.Set("reason", publicReason(err))
		http.Redirect(w, r, h.FailureURL+"?"+q.Encode(), http.StatusFound)
		return
	}

	q := url.Values{}
	q.Set("authority", authority)
	q.Set("orderId", o.ID.String())
	q.Set("refId", o.PaymentRefID)
	http.Redirect(w, r, h.SuccessURL+"?"+q.Encode(), http.StatusFound)
}

type verifyRequest struct {
	Authority string `json:"authority"`
}

type verifyResponse struct {
	Success       bool   `json:"success"`
	PaymentStatus string `json:"paymentStatus,omitempty"`
	OrderID       string `json:"orderId,omitempty"`
	RefID         string `json:"refId,omitempty"`
	Amount        int64  `json:"amount,omitempty"`
	Error         string `json:"error,omitempty"`
}

// VerifyReturn is the explicit API entry point used when a separate return
// page mediates the flow.
func (h *Handler) VerifyReturn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, verifyResponse{Success: false, Error: "invalid JSON payload"})
		return
	}
	defer r.Body.Close()

	o, err := h.Checkout.Resolve(r.Context(), req.Authority, checkout.StatusOK)
	if err != nil {
		writeJSON(w, statusFor(err), verifyResponse{Success: false, Error: publicReason(err)})
		return
	}

	writeJSON(w, http.StatusOK, verifyResponse{
		Success:       true,
		PaymentStatus: string(o.PaymentStatus),
		OrderID:       o.ID.String(),
		RefID:         o.PaymentRefID,
		Amount:        o.TotalAmount,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, checkout.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInvalidAddress),
		errors.Is(err, checkout.ErrInvalidCart),
		errors.Is(err, checkout.ErrMissingAuthority):
		return http.StatusBadRequest
	case errors.Is(err, checkout.ErrGatewayRejected):
		return http.StatusBadGateway
	case errors.Is(err, checkout.ErrReservationNotFound),
		errors.Is(err, checkout.ErrReservationExpired):
		return http.StatusGone
	case errors.Is(err, checkout.ErrPaymentFailed),
		errors.Is(err, checkout.ErrVerificationFailed):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// publicReason maps errors to response text. Not-found and expired share one
// message so callers cannot probe which authorities ever existed.
func publicReason(err error) string {
	switch {
	case errors.Is(err, checkout.ErrReservationNotFound),
		errors.Is(err, checkout.ErrReservationExpired):
		return "payment session expired, please retry checkout"
	case errors.Is(err, checkout.ErrInternal):
		return "internal error, please contact support"
	default:
		return err.Error()
	}
}
