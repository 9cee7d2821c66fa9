package checkout

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"vitrin-be/internal/gateway"
	"vitrin-be/internal/identity"
	"vitrin-be/internal/logger"
	"vitrin-be/internal/order"
	"vitrin-be/internal/pricing"
	"vitrin-be/internal/reservation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StatusOK is the coarse flag the gateway attaches to the callback redirect.
const StatusOK = "OK"

type InitiateInput struct {
	Items           []pricing.CartLineItem
	ShippingAddress order.ShippingAddress
}

type InitiateResult struct {
	PaymentURL string
	Authority  string
	// Amount is in display units; only the outbound gateway request uses
	// the minor-unit conversion.
	Amount int64
}

// CartValidator is what Initiate needs from the price validator.
type CartValidator interface {
	ValidateCart(ctx context.Context, storeID string, items []pricing.CartLineItem) ([]pricing.ValidatedLineItem, int64, error)
}

// Service owns the two-phase payment workflow: Initiate reserves a priced
// cart and hands off to the gateway; Resolve reconciles the gateway's
// outcome into exactly one committed order per authority.
type Service interface {
	Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error)
	Resolve(ctx context.Context, authority, reportedStatus string) (*order.Order, error)
}

type service struct {
	validator    CartValidator
	reservations reservation.Store
	orders       order.Repository
	gateway      gateway.Gateway

	minorUnitFactor int64
	reservationTTL  time.Duration
}

type Config struct {
	MinorUnitFactor int64
	ReservationTTL  time.Duration
}

func NewService(
	validator CartValidator,
	reservations reservation.Store,
	orders order.Repository,
	gw gateway.Gateway,
	cfg Config,
) Service {
	return &service{
		validator:       validator,
		reservations:    reservations,
		orders:          orders,
		gateway:         gw,
		minorUnitFactor: cfg.MinorUnitFactor,
		reservationTTL:  cfg.ReservationTTL,
	}
}

func (s *service) Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("method", "Initiate"),
		zap.Int("item_count", len(input.Items)),
	)

	userID, ok := identity.UserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	storeID := identity.StoreIDFromContext(ctx)
	if storeID == "" {
		return nil, ErrUnauthorized
	}

	if len(input.Items) == 0 {
		return nil, ErrEmptyCart
	}

	if !input.ShippingAddress.Valid() {
		return nil, ErrInvalidAddress
	}

	items, total, err := s.validator.ValidateCart(ctx, storeID, input.Items)
	if err != nil {
		log.Warn("cart validation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidCart, err)
	}

	description := fmt.Sprintf("order payment for store %s", storeID)
	res, err := s.gateway.RequestPayment(ctx, total*s.minorUnitFactor, description)
	if err != nil {
		log.Error("gateway request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGatewayRejected, err)
	}
	if !res.OK() {
		log.Warn("gateway rejected initiation",
			zap.Int("code", res.Code),
			zap.String("message", res.Message),
		)
		return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, res.Message)
	}

	now := time.Now()
	err = s.reservations.Put(ctx, &reservation.PendingReservation{
		Authority:       res.Authority,
		UserID:          userID,
		StoreID:         storeID,
		Items:           items,
		TotalAmount:     total,
		ShippingAddress: input.ShippingAddress,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.reservationTTL),
	})
	if err != nil {
		log.Error("failed to persist reservation",
			zap.String("authority", res.Authority),
			zap.Error(err),
		)
		return nil, err
	}

	log.Info("payment session initiated",
		zap.String("authority", res.Authority),
		zap.Int64("total_amount", total),
	)

	return &InitiateResult{
		PaymentURL: s.gateway.StartPayURL(res.Authority),
		Authority:  res.Authority,
		Amount:     total,
	}, nil
}

// Resolve is the single reconciliation entry point behind both the gateway
// callback and the explicit verify API. Whatever happens, the authority's
// reservation never survives the call: it either becomes an order or is
// discarded.
func (s *service) Resolve(ctx context.Context, authority, reportedStatus string) (o *order.Order, err error) {
	log := logger.FromCtx(ctx).With(
		zap.String("method", "Resolve"),
		zap.String("authority", authority),
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic during reconciliation", zap.Any("panic", r))
			o, err = nil, ErrInternal
		}
	}()

	if authority == "" {
		return nil, ErrMissingAuthority
	}

	if reportedStatus != StatusOK {
		// Buyer cancelled or the gateway reported failure outright.
		if _, derr := s.reservations.ClaimAndDelete(ctx, authority); derr != nil {
			log.Error("failed to discard reservation", zap.Error(derr))
		}
		log.Info("payment reported failed by gateway", zap.String("status", reportedStatus))
		return nil, ErrPaymentFailed
	}

	// The atomic claim is the idempotency guard: a duplicate callback for a
	// settled authority finds nothing here.
	res, err := s.reservations.ClaimAndDelete(ctx, authority)
	if err != nil {
		log.Error("reservation claim failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if res == nil {
		return nil, ErrReservationNotFound
	}

	if res.Expired(time.Now()) {
		log.Info("reservation expired before resolution",
			zap.Time("expires_at", res.ExpiresAt),
		)
		return nil, ErrReservationExpired
	}

	verify, err := s.gateway.VerifyPayment(ctx, res.TotalAmount*s.minorUnitFactor, authority)
	if err != nil {
		log.Error("verification unreachable after retries", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	if !verify.Settled() {
		log.Warn("verification rejected",
			zap.Int("code", verify.Code),
			zap.String("message", verify.Message),
		)
		return nil, fmt.Errorf("%w: %s", ErrVerificationFailed, failureReason(verify.Code))
	}

	if verify.Code == gateway.CodeAlreadyVerified {
		existing, gerr := s.orders.GetByAuthority(ctx, authority)
		if gerr != nil {
			log.Error("order lookup failed", zap.Error(gerr))
			return nil, fmt.Errorf("%w: %v", ErrInternal, gerr)
		}
		if existing != nil {
			log.Info("authority already settled", zap.String("order_id", existing.ID.String()))
			return existing, nil
		}
	}

	now := time.Now()
	committed := &order.Order{
		ID:               uuid.New(),
		UserID:           res.UserID,
		StoreID:          res.StoreID,
		Items:            res.Items,
		TotalAmount:      res.TotalAmount,
		ShippingAddress:  res.ShippingAddress,
		Status:           order.StatusPaid,
		PaymentStatus:    order.PaymentStatusCompleted,
		PaymentAuthority: authority,
		PaymentRefID:     strconv.FormatInt(verify.RefID, 10),
		PaymentCardPAN:   verify.CardPAN,
		CreatedAt:        now,
		PaidAt:           &now,
	}

	if err := s.orders.Create(ctx, committed); err != nil {
		log.Error("order commit failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	log.Info("payment settled",
		zap.String("order_id", committed.ID.String()),
		zap.String("ref_id", committed.PaymentRefID),
		zap.Int64("total_amount", committed.TotalAmount),
	)

	return committed, nil
}

// failureReason maps verify result codes to user-facing text.
func failureReason(code int) string {
	switch code {
	case gateway.CodeAmountMismatch:
		return "paid amount does not match the order total"
	case gateway.CodeTransactionFailed:
		return "transaction failed or was cancelled"
	default:
		return "payment could not be verified"
	}
}
