package order

import "errors"

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrOrderImmutable = errors.New("paid order is immutable")
	ErrInvalidStatus  = errors.New("invalid order status transition")
)
