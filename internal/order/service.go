package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service is the small CRUD surface fulfillment consumes. Order creation is
// not here: only the payment reconciler commits orders.
type Service interface {
	GetOrderDetail(ctx context.Context, userID uint, orderID uuid.UUID, isAdmin bool) (*Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status Status) error
	UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status PaymentStatus) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetOrderDetail(ctx context.Context, userID uint, orderID uuid.UUID, isAdmin bool) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !isAdmin && o.UserID != userID {
		return nil, fmt.Errorf("cannot access others' orders: %w", ErrOrderNotFound)
	}

	return o, nil
}

// UpdateOrderStatus applies a fulfillment transition. Payment states (paid,
// failed) are owned by the reconciler and cannot be set here.
func (s *service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status Status) error {
	validStatuses := map[Status]bool{
		StatusProcessing: true,
		StatusShipped:    true,
		StatusDelivered:  true,
		StatusCancelled:  true,
	}

	if !validStatuses[status] {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	return s.repo.UpdateStatus(ctx, orderID, status)
}

// UpdatePaymentStatus marks a stuck attempt as failed or resets it to
// pending. Completed is owned by the reconciler and cannot be set here.
func (s *service) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status PaymentStatus) error {
	if status != PaymentStatusPending && status != PaymentStatusFailed {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	return s.repo.UpdatePaymentStatus(ctx, orderID, status)
}
